package cmd

import (
	"fmt"

	"github.com/marcus/dailygate/internal/audit"
	"github.com/marcus/dailygate/internal/output"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:     "log",
	Short:   "Show recent gate log entries (unlocks, overrides, errors)",
	GroupID: "gate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		n, _ := cmd.Flags().GetInt("lines")
		lines, err := audit.Tail(cfg.LogPath, n)
		if err != nil {
			output.Error("read %s: %v", cfg.LogPath, err)
			return err
		}
		if len(lines) == 0 {
			output.Info("No gate log entries yet (%s)", cfg.LogPath)
			return nil
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().IntP("lines", "n", 20, "number of lines to show (0 for all)")
	rootCmd.AddCommand(logCmd)
}
