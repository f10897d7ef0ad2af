// Package store is the relational data access layer for files, folders and tags.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"file-organizer/backend/go/internal/organizer_service/apperr"

	"gorm.io/gorm"
)

// Store provides data access methods on an explicitly injected *gorm.DB.
type Store struct {
	db *gorm.DB
}

// New creates a new Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// transaction runs fn in a transaction. Errors that are already classified pass
// through, anything else becomes a PersistenceError.
func (s *Store) transaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Persistence(fmt.Sprintf("failed to %s", op), err)
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// SplitPath turns "/Invoices//2024/" into ["Invoices", "2024"].
func SplitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// NormalizeTagNames trims names and drops empties and duplicates, keeping first-seen order.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
