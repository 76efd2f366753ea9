package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

const (
	keyLastEventTime = "last_event_time"
	keyAPIToken      = "api_token"
)

// State is what survives between runs: the watermark and the cached bearer
// token. Both fields encode as JSON null when unset.
type State struct {
	LastEventTime *string `json:"last_event_time"`
	APIToken      *string `json:"api_token"`

	// Extra holds any other keys found in the stored document. They are
	// written back untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

// Watermark returns the last collected event time, or "" when none is recorded.
func (s State) Watermark() string {
	if s.LastEventTime == nil {
		return ""
	}
	return *s.LastEventTime
}

// Token returns the cached API token, or "" when none is recorded.
func (s State) Token() string {
	if s.APIToken == nil {
		return ""
	}
	return *s.APIToken
}

// WithRun returns a copy of s carrying the token and watermark of a finished run.
func (s State) WithRun(token, watermark string) State {
	s.APIToken = &token
	s.LastEventTime = &watermark
	s.Extra = maps.Clone(s.Extra)
	return s
}

// MarshalJSON writes the two known keys first, then Extra in key order.
func (s State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	field := func(key string, value any) error {
		k, err := Encode(key, "")
		if err != nil {
			return err
		}
		v, err := Encode(value, "")
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := field(keyLastEventTime, s.LastEventTime); err != nil {
		return nil, err
	}
	if err := field(keyAPIToken, s.APIToken); err != nil {
		return nil, err
	}
	for _, k := range slices.Sorted(maps.Keys(s.Extra)) {
		if k == keyLastEventTime || k == keyAPIToken {
			continue
		}
		v := s.Extra[k]
		if len(v) == 0 {
			v = json.RawMessage("null")
		}
		if err := field(k, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the known keys and keeps every other key in Extra.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var st State
	for k, v := range raw {
		switch k {
		case keyLastEventTime:
			if err := json.Unmarshal(v, &st.LastEventTime); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		case keyAPIToken:
			if err := json.Unmarshal(v, &st.APIToken); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		default:
			if st.Extra == nil {
				st.Extra = make(map[string]json.RawMessage)
			}
			st.Extra[k] = v
		}
	}
	*s = st
	return nil
}
