// Package events republishes collected events on a message bus.
package events

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// DefaultSubject is the subject collected events are published to.
const DefaultSubject = "evcollect.events"

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Flusher is implemented by publishers that buffer outgoing messages.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Sink publishes every event of a batch, in order, to one subject.
type Sink struct {
	pub     Publisher
	subject string
}

func NewSink(pub Publisher, subject string) *Sink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Sink{pub: pub, subject: subject}
}

func (s *Sink) Name() string { return "nats" }

// Deliver publishes the batch and waits for buffered messages to reach the
// server.
func (s *Sink) Deliver(ctx context.Context, batch model.Batch) error {
	for i, ev := range batch.Events {
		if err := s.pub.Publish(ctx, s.subject, ev); err != nil {
			return fmt.Errorf("publishing event %d of %d: %w", i+1, len(batch.Events), err)
		}
	}
	if f, ok := s.pub.(Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			return fmt.Errorf("flushing published events: %w", err)
		}
	}
	return nil
}
