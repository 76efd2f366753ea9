package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event is a single event as returned by the reporting API. The payload is
// kept verbatim; only the "published" field is ever interpreted. Write it
// with Encode so markup characters are not escaped.
type Event json.RawMessage

// ErrNoPublished is returned when an event has no string "published" field.
var ErrNoPublished = errors.New("event has no published field")

// MarshalJSON returns the raw event payload.
func (e Event) MarshalJSON() ([]byte, error) {
	if len(e) == 0 {
		return []byte("null"), nil
	}
	return e, nil
}

// UnmarshalJSON stores a copy of data as the event payload.
func (e *Event) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("model.Event: UnmarshalJSON on nil pointer")
	}
	*e = append((*e)[0:0], data...)
	return nil
}

// Published returns the event's "published" timestamp exactly as sent by the
// API. The value is used as the watermark for the next fetch.
func (e Event) Published() (string, error) {
	var fields struct {
		Published *string `json:"published"`
	}
	if err := json.Unmarshal(e, &fields); err != nil {
		return "", fmt.Errorf("decoding event: %w", err)
	}
	if fields.Published == nil {
		return "", ErrNoPublished
	}
	return *fields.Published, nil
}

// Batch is one run's newly collected events, handed to sinks after the event
// log has been updated.
type Batch struct {
	RunID  string
	Events []Event
}
