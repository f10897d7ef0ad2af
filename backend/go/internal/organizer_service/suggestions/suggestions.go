// Package suggestions remembers the last suggestion issued for a file or a
// folder until it is applied, discarded or expires.
package suggestions

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Target is what a suggestion is about.
type Target string

const (
	TargetFile   Target = "file"
	TargetFolder Target = "folder"
)

// ErrNotFound is returned when no live record exists.
var ErrNotFound = errors.New("suggestion not found")

// Record is one issued suggestion.
type Record struct {
	Target     Target          `json:"target"`
	ID         string          `json:"id"`
	FileIDs    []string        `json:"fileIds,omitempty"`
	Suggestion json.RawMessage `json:"suggestion"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Store keeps at most one record per (target, id).
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, target Target, id string) (*Record, error)
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, target Target, id string) (bool, error)
}

func key(target Target, id string) string {
	return string(target) + ":" + id
}
