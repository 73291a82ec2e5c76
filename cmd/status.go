package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/marcus/dailygate/internal/audit"
	"github.com/marcus/dailygate/internal/credential"
	"github.com/marcus/dailygate/internal/instance"
	"github.com/marcus/dailygate/internal/models"
	"github.com/marcus/dailygate/internal/output"
	"github.com/marcus/dailygate/internal/state"
	"github.com/spf13/cobra"
)

// statusReport is the JSON shape of `dailygate status --json`
type statusReport struct {
	Today      string              `json:"today"`
	Timezone   string              `json:"timezone"`
	State      string              `json:"state"`
	LastUnlock models.UnlockRecord `json:"last_unlock"`
	Cookie     bool                `json:"cookie_stored"`
	Running    string              `json:"running,omitempty"`
	StatePath  string              `json:"state_path"`
	LogPath    string              `json:"log_path"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show today's gate state and the last unlock",
	GroupID: "gate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		rec, _ := state.New(cfg.StatePath).Load()
		today := models.Day(time.Now(), cfg.Location)

		report := statusReport{
			Today:      today,
			Timezone:   cfg.Location.String(),
			State:      models.StateFor(rec, today).String(),
			LastUnlock: rec,
			StatePath:  cfg.StatePath,
			LogPath:    cfg.LogPath,
		}

		if creds, err := credential.Open(cfg); err == nil {
			_, getErr := creds.Get()
			report.Cookie = getErr == nil
			if getErr != nil && !errors.Is(getErr, credential.ErrNotFound) {
				output.Warning("read cookie: %v", getErr)
			}
		}

		probe := instance.New(cfg.LockPath)
		if err := probe.TryAcquire(); errors.Is(err, instance.ErrHeld) {
			report.Running = instance.Holder(cfg.LockPath)
		} else if err == nil {
			probe.Release()
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(report)
		}

		const w = 12
		fmt.Println(output.KeyValue("Today", fmt.Sprintf("%s (%s)", today, report.Timezone), w))
		fmt.Println(output.KeyValue("Gate", output.FormatState(models.StateFor(rec, today)), w))
		fmt.Println(output.KeyValue("Last unlock", output.FormatRecord(rec), w))
		cookie := "not set"
		if report.Cookie {
			cookie = "stored"
		}
		fmt.Println(output.KeyValue("Cookie", cookie, w))
		if report.Running != "" {
			fmt.Println(output.KeyValue("Running", report.Running, w))
		}

		if recent, _ := audit.Tail(cfg.LogPath, 5); len(recent) > 0 {
			fmt.Print(output.SectionHeader("recent log"))
			for _, line := range output.IndentLines(recent, 2) {
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "JSON output")
	rootCmd.AddCommand(statusCmd)
}
