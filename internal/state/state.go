// Package state persists the last observed route status between runs.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"routewatch/internal/model"
)

// Store reads and writes the single monitor state record. Reads fail soft:
// a missing, unreadable, or malformed state file is treated as if no prior
// observation exists, so a corrupt file can never block alerting.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load returns the persisted state, or the UNKNOWN default if the file is
// missing or cannot be parsed.
func (s *Store) Load() model.MonitorState {
	def := model.MonitorState{LastStatus: model.StatusUnknown}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read state file, assuming no prior state", "path", s.path, "error", err)
		}
		return def
	}

	var st model.MonitorState
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Warn("state file is malformed, assuming no prior state", "path", s.path, "error", err)
		return def
	}
	if !st.LastStatus.Valid() || st.LastCheck < 0 {
		slog.Warn("state file contains an unrecognized record, assuming no prior state",
			"path", s.path, "status", st.LastStatus)
		return def
	}
	return st
}

// Save writes {status, now} to the state file. The write goes through a
// temporary file and a rename so a crash mid-write leaves either the old
// record or the new one, never a truncated file.
func (s *Store) Save(status model.Status) error {
	st := model.MonitorState{
		LastStatus: status,
		LastCheck:  s.now().Unix(),
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
