// Package state persists the most recent unlock record as a small JSON
// document. A missing or unreadable file is treated as "no unlock", never as
// an error the gate has to act on.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/marcus/dailygate/internal/gateerr"
	"github.com/marcus/dailygate/internal/models"
)

// Store reads and writes the unlock record at a fixed path
type Store struct {
	path string
}

// New returns a store backed by path
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted record. ok is false when the file is missing or
// corrupt; corruption is logged and otherwise ignored.
func (s *Store) Load() (rec models.UnlockRecord, ok bool) {
	rec, err := s.read()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("state: treating unreadable record as empty", "path", s.path, "err", err)
		}
		return models.UnlockRecord{}, false
	}
	return rec, !rec.IsZero()
}

// read returns the raw load error so callers can tell missing from corrupt.
func (s *Store) read() (models.UnlockRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.UnlockRecord{}, err
	}
	var rec models.UnlockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.UnlockRecord{}, gateerr.New(gateerr.KindPersistenceCorrupt, "state load", err)
	}
	return rec, nil
}

// Check reports whether the state file can be read. A missing file is fine.
func (s *Store) Check() error {
	_, err := s.read()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Save replaces the record. Unknown keys already in the document survive.
// The write goes to a temp file in the same directory and is renamed over
// the target so an interrupted write never leaves a truncated file.
func (s *Store) Save(rec models.UnlockRecord) error {
	doc := s.existingDoc()

	fields, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var recDoc map[string]json.RawMessage
	if err := json.Unmarshal(fields, &recDoc); err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	delete(doc, "last_unlock_source")
	for k, v := range recDoc {
		doc[k] = v
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return writeAtomic(s.path, data)
}

func (s *Store) existingDoc() map[string]json.RawMessage {
	doc := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc
	}
	if json.Unmarshal(data, &doc) != nil || doc == nil {
		return make(map[string]json.RawMessage)
	}
	return doc
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
