// Package sync mirrors the event log to external destinations after each run
// that collected new events.
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// Destination is a mirror target for the event log (S3, git, etc.).
type Destination interface {
	// Name identifies the destination in logs and metrics.
	Name() string
	// Write replaces the destination's copy with data, the full event log.
	Write(ctx context.Context, data []byte) error
}

// Snapshotter returns the current event log contents.
type Snapshotter interface {
	Snapshot() ([]byte, error)
}

// MirrorSink sends a snapshot of the event log to every destination.
type MirrorSink struct {
	log          Snapshotter
	destinations []Destination
}

func NewMirrorSink(log Snapshotter, destinations ...Destination) *MirrorSink {
	return &MirrorSink{log: log, destinations: destinations}
}

func (s *MirrorSink) Name() string { return "mirror" }

// Deliver writes the current log to every destination. A failing destination
// does not stop the others; all failures are returned together.
func (s *MirrorSink) Deliver(ctx context.Context, _ model.Batch) error {
	data, err := s.log.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot event log: %w", err)
	}

	var errs []error
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dest.Name(), err))
		}
	}
	return errors.Join(errs...)
}
