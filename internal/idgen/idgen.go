// Package idgen generates run identifiers that tag log records, archived
// events and metrics of a single collection run.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RunPrefix is prepended to every run ID.
const RunPrefix = "run-"

// alphabet is lowercase alphanumerics so IDs survive case-insensitive log
// search.
const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// RunID returns a new run identifier such as "run-3k9x0q2m7abc".
func RunID() (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return RunPrefix + id, nil
}
