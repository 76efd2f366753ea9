// Package eventlog stores every collected event in a single JSON array file.
//
// Appending rewrites the whole file: the existing array is loaded, the new
// events are concatenated after it and the result replaces the file. The cost
// grows with the history, which is acceptable at a low polling cadence.
package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// Log is the on-disk event log.
type Log struct {
	path string
}

func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Append adds events after everything already stored, preserving order. The
// file is created holding an empty array when it does not exist yet.
func (l *Log) Append(events []model.Event) error {
	if _, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) {
		if err := l.write([]model.Event{}); err != nil {
			return fmt.Errorf("initialize event log: %w", err)
		}
	}

	old, err := l.Load()
	if err != nil {
		return err
	}

	all := make([]model.Event, 0, len(old)+len(events))
	all = append(all, old...)
	all = append(all, events...)
	return l.write(all)
}

// Load returns every stored event, or nil when the log does not exist.
func (l *Log) Load() ([]model.Event, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode event log %s: %w", l.path, err)
	}
	return events, nil
}

// Count returns the number of stored events.
func (l *Log) Count() (int, error) {
	events, err := l.Load()
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// Snapshot returns the raw bytes of the log file.
func (l *Log) Snapshot() ([]byte, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return data, nil
}

// write replaces the log with events. The data goes to a temp file in the same
// directory first so a failed write never truncates the existing log.
func (l *Log) write(events []model.Event) error {
	data, err := model.Encode(events, "  ")
	if err != nil {
		return fmt.Errorf("encode event log: %w", err)
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write event log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod event log: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("replace event log: %w", err)
	}
	return nil
}
