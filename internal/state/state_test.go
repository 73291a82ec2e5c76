package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/dailygate/internal/gateerr"
	"github.com/marcus/dailygate/internal/models"
)

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	rec, ok := s.Load()
	if ok {
		t.Fatalf("expected no record, got %+v", rec)
	}
}

func TestLoadCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New(path)
	if _, ok := s.Load(); ok {
		t.Fatal("corrupt file should load as empty")
	}
	if _, err := s.read(); !gateerr.Is(err, gateerr.KindPersistenceCorrupt) {
		t.Errorf("read() kind = %v, want persistence-corrupt", gateerr.KindOf(err))
	}
}

func TestSaveThenLoad(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nested", "state.json"))
	at := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	want := models.UnlockRecord{
		Date:       "2024-06-01",
		Reason:     models.ReasonSolved,
		SourceID:   "42",
		UnlockedAt: at,
	}

	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok := s.Load()
	if !ok {
		t.Fatal("expected record after save")
	}
	if got.Date != want.Date || got.Reason != want.Reason || got.SourceID != want.SourceID {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if !got.UnlockedAt.Equal(at) {
		t.Errorf("UnlockedAt = %v, want %v", got.UnlockedAt, at)
	}
}

func TestSaveOverwritesPreviousRecord(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	if err := s.Save(models.UnlockRecord{Date: "2024-05-31", Reason: models.ReasonSolved, SourceID: "7"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(models.UnlockRecord{Date: "2024-06-01", Reason: models.ReasonEmergencyOverride}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _ := s.Load()
	if got.Date != "2024-06-01" || got.Reason != models.ReasonEmergencyOverride {
		t.Errorf("Load() = %+v", got)
	}
	if got.SourceID != "" {
		t.Errorf("SourceID = %q, stale source id should not survive", got.SourceID)
	}
}

func TestSavePreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"note":"keep me","last_unlock_date":"2024-05-01"}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New(path)
	if err := s.Save(models.UnlockRecord{Date: "2024-06-01", Reason: models.ReasonSolved}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["note"] != "keep me" {
		t.Errorf("unknown key lost: %v", doc)
	}
	if doc["last_unlock_date"] != "2024-06-01" {
		t.Errorf("last_unlock_date = %v", doc["last_unlock_date"])
	}
}

func TestSaveOverCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("\x00\x00garbage"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New(path)
	if err := s.Save(models.UnlockRecord{Date: "2024-06-01", Reason: models.ReasonCrashFailsafe}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok := s.Load()
	if !ok || got.Reason != models.ReasonCrashFailsafe {
		t.Errorf("Load() = %+v, %v", got, ok)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "state.json"))
	for i := 0; i < 3; i++ {
		if err := s.Save(models.UnlockRecord{Date: "2024-06-01", Reason: models.ReasonSolved}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only state.json, got %v", names)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	s := New(path)

	if err := s.Check(); err != nil {
		t.Errorf("missing file: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.Check(); gateerr.KindOf(err) != gateerr.KindPersistenceCorrupt {
		t.Errorf("corrupt file: kind = %v", gateerr.KindOf(err))
	}
	if err := s.Save(models.UnlockRecord{Date: "2024-06-01", Reason: models.ReasonSolved}); err != nil {
		t.Fatal(err)
	}
	if err := s.Check(); err != nil {
		t.Errorf("after save: %v", err)
	}
}
