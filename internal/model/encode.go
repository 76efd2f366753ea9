package model

import (
	"bytes"
	"encoding/json"
)

// Encode marshals v like json.MarshalIndent but leaves <, > and & as they
// are, so event payloads reach files and subscribers unchanged. An empty
// indent produces compact output. No trailing newline is written.
func Encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
