// Package vectorstore holds (id, embedding, metadata) triples and answers
// nearest-neighbour queries against a named collection.
package vectorstore

import (
	"context"
	"errors"
	"strings"
)

// Metadata is the flat attribute map stored next to each vector. Values are
// kept scalar so every backend can store them.
type Metadata map[string]interface{}

// Index is implemented by every backend.
type Index interface {
	// Upsert adds or replaces one vector. Backends that refuse duplicates
	// report ErrAlreadyExists.
	Upsert(ctx context.Context, collection, id string, vector []float32, meta Metadata) error
	// Query returns up to k metadata entries, most similar first.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]Metadata, error)
}

// ErrAlreadyExists is returned when the id is already present and the backend
// does not overwrite.
var ErrAlreadyExists = errors.New("vector already exists")

// IsAlreadyExists reports whether err means the id was already indexed.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAlreadyExists) || strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// ID returns the "id" entry of m, or "".
func (m Metadata) ID() string {
	if v, ok := m["id"].(string); ok {
		return v
	}
	return ""
}
