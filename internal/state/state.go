// Package state persists the collector's watermark and cached token between
// runs.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// Store reads and writes the persisted state. Read returns the zero State when
// nothing has been written yet. Write replaces whatever was stored.
type Store interface {
	Read(ctx context.Context) (model.State, error)
	Write(ctx context.Context, s model.State) error
	Close() error
}

// FileStore keeps the state as a single JSON object in a file.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Read(_ context.Context) (model.State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.State{}, nil
	}
	if err != nil {
		return model.State{}, fmt.Errorf("read state: %w", err)
	}
	return decode(data)
}

func (s *FileStore) Write(_ context.Context, st model.State) error {
	data, err := model.Encode(st, "")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

func decode(data []byte) (model.State, error) {
	var st model.State
	if err := json.Unmarshal(data, &st); err != nil {
		return model.State{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}
