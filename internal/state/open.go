package state

import (
	"fmt"

	"github.com/alfredjeanlab/evcollect/internal/config"
)

// Open returns the store selected by backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case config.BackendFile, "":
		return NewFileStore(path), nil
	case config.BackendBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
