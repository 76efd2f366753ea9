package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// flushTimeout bounds Flush when the caller's context has no deadline.
const flushTimeout = 5 * time.Second

// NATSPublisher publishes JSON-encoded events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	defaults := []nats.Option{nats.Name("evcollect")}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish sends event to topic. Collected events go out as their raw payload;
// anything else is JSON-encoded.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	var data []byte
	switch v := event.(type) {
	case model.Event:
		data = v
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		if data, err = model.Encode(event, ""); err != nil {
			return fmt.Errorf("marshaling event: %w", err)
		}
	}
	return p.conn.Publish(topic, data)
}

// Flush waits until the server has processed everything published so far.
func (p *NATSPublisher) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
