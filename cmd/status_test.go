package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marcus/dailygate/internal/credential"
	"github.com/marcus/dailygate/internal/models"
	"github.com/marcus/dailygate/internal/state"
)

func statusJSON(t *testing.T) statusReport {
	t.Helper()
	out, err := execute(t, "status", "--json")
	t.Cleanup(func() { statusCmd.Flags().Set("json", "false") })
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return report
}

func TestStatusLockedWithoutRecord(t *testing.T) {
	useHome(t)
	report := statusJSON(t)
	if report.State != models.StateLocked.String() {
		t.Errorf("state = %q", report.State)
	}
	if report.Cookie {
		t.Error("cookie reported without one stored")
	}
	if report.Timezone != "UTC" {
		t.Errorf("timezone = %q", report.Timezone)
	}
	if report.Running != "" {
		t.Errorf("running = %q", report.Running)
	}
}

func TestStatusUnlockedToday(t *testing.T) {
	home := useHome(t)
	today := models.Day(time.Now(), time.UTC)
	if err := state.New(filepath.Join(home, "state.json")).Save(models.UnlockRecord{Date: today, Reason: models.ReasonSolved, SourceID: "7"}); err != nil {
		t.Fatal(err)
	}
	if err := credential.NewFile(filepath.Join(home, "credential")).Set("tok"); err != nil {
		t.Fatal(err)
	}

	report := statusJSON(t)
	if report.State != models.StateUnlocked.String() {
		t.Errorf("state = %q", report.State)
	}
	if report.LastUnlock.SourceID != "7" {
		t.Errorf("last unlock = %+v", report.LastUnlock)
	}
	if !report.Cookie {
		t.Error("stored cookie not reported")
	}
}

func TestStatusShowsRecentLog(t *testing.T) {
	home := useHome(t)
	log := "[2024-06-01T09:00:00Z] Gate locked (last unlock: none)\n[2024-06-01T09:30:00Z] Emergency exit used at 2024-06-01T09:30:00Z\n"
	if err := os.WriteFile(filepath.Join(home, "gate.log"), []byte(log), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "RECENT LOG:") || !strings.Contains(out, "  [2024-06-01T09:30:00Z] Emergency exit used") {
		t.Errorf("output = %q", out)
	}
}
