package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcus/dailygate/internal/achievement"
	"github.com/marcus/dailygate/internal/credential"
	"github.com/marcus/dailygate/internal/gateerr"
	"github.com/marcus/dailygate/internal/instance"
	"github.com/marcus/dailygate/internal/models"
	"github.com/marcus/dailygate/internal/output"
	"github.com/marcus/dailygate/internal/state"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Run diagnostic checks for the gate setup",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		offline, _ := cmd.Flags().GetBool("offline")
		if !runDoctor(cmd.Context(), os.Stdout, offline) {
			return errors.New("doctor found problems")
		}
		return nil
	},
}

func check(w io.Writer, label, result string) {
	const width = 24
	dots := width - len(label)
	if dots < 3 {
		dots = 3
	}
	fmt.Fprintf(w, "%s %s %s\n", label, strings.Repeat(".", dots), result)
}

// runDoctor prints one line per check and reports whether every required
// check passed. Nothing is modified except the gate log, which is opened
// for append to prove it is writable.
func runDoctor(ctx context.Context, w io.Writer, offline bool) bool {
	ok := true

	// 1. Config
	cfg, err := loadConfig()
	if err != nil {
		check(w, "Config", fmt.Sprintf("FAIL (%v)", err))
		return false
	}
	if err := cfg.Validate(); err != nil {
		check(w, "Config", fmt.Sprintf("FAIL (%v)", err))
		ok = false
	} else {
		check(w, "Config", fmt.Sprintf("OK (%s)", resolvedConfigPath()))
	}
	check(w, "Timezone", fmt.Sprintf("OK (%s, today is %s)", cfg.Location, models.Day(time.Now(), cfg.Location)))

	// 2. State file
	records := state.New(cfg.StatePath)
	if err := records.Check(); err != nil {
		check(w, "State file", fmt.Sprintf("WARN (%v; treated as no unlock)", err))
	} else {
		rec, _ := records.Load()
		check(w, "State file", fmt.Sprintf("OK (last unlock: %s)", output.FormatRecord(rec)))
	}

	// 3. Gate log
	if err := checkWritable(cfg.LogPath); err != nil {
		check(w, "Gate log", fmt.Sprintf("FAIL (%v)", err))
		ok = false
	} else {
		check(w, "Gate log", fmt.Sprintf("OK (%s)", cfg.LogPath))
	}

	// 4. Cookie
	creds, err := credential.Open(cfg)
	cookieOK := false
	if err != nil {
		check(w, "Session cookie", fmt.Sprintf("FAIL (%v)", err))
		ok = false
	} else if token, err := creds.Get(); errors.Is(err, credential.ErrNotFound) {
		check(w, "Session cookie", "WARN (not set; run 'dailygate session set')")
	} else if err != nil {
		check(w, "Session cookie", fmt.Sprintf("FAIL (%v)", err))
		ok = false
	} else {
		cookieOK = true
		check(w, "Session cookie", fmt.Sprintf("OK (%s via %s)", credential.Mask(token), cfg.CredentialBackend))
	}

	// 5. LeetCode
	switch {
	case offline || !cookieOK:
		check(w, "LeetCode", "SKIP")
	default:
		_, err := achievement.New(cfg, creds).FetchTodayCompletion(ctx)
		switch gateerr.KindOf(err) {
		case gateerr.KindNone:
			check(w, "LeetCode", fmt.Sprintf("OK (%s)", cfg.GraphQLURL))
		case gateerr.KindCredentialInvalid:
			check(w, "LeetCode", "FAIL (session cookie rejected; run 'dailygate session set')")
			ok = false
		default:
			check(w, "LeetCode", fmt.Sprintf("WARN (%v)", err))
		}
	}

	// 6. Instance
	probe := instance.New(cfg.LockPath)
	switch err := probe.TryAcquire(); {
	case errors.Is(err, instance.ErrHeld):
		check(w, "Running gate", fmt.Sprintf("YES (%s)", instance.Holder(cfg.LockPath)))
	case err != nil:
		check(w, "Running gate", fmt.Sprintf("WARN (%v)", err))
	default:
		probe.Release()
		check(w, "Running gate", "NO")
	}

	return ok
}

func checkWritable(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

func init() {
	doctorCmd.Flags().Bool("offline", false, "skip the LeetCode request")
	rootCmd.AddCommand(doctorCmd)
}
