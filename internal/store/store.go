package store

import (
	"context"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// Archive defines the persistence interface for collected events kept outside
// the local event log.
type Archive interface {
	// ArchiveEvents stores events atomically, tagged with the run that
	// collected them.
	ArchiveEvents(ctx context.Context, runID string, events []model.Event) error

	// CountEvents returns the number of archived events.
	CountEvents(ctx context.Context) (int64, error)

	// LatestPublished returns the greatest archived published value, or ""
	// when the archive is empty.
	LatestPublished(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// Sink delivers collector batches to an Archive.
type Sink struct {
	archive Archive
}

func NewSink(a Archive) *Sink {
	return &Sink{archive: a}
}

func (s *Sink) Name() string { return "archive" }

func (s *Sink) Deliver(ctx context.Context, batch model.Batch) error {
	return s.archive.ArchiveEvents(ctx, batch.RunID, batch.Events)
}
