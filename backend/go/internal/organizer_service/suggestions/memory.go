package suggestions

import (
	"context"
	"time"

	"file-organizer/backend/go/pkg/util"
)

// MemoryStore keeps records in a bounded in-process LRU.
type MemoryStore struct {
	cache *util.LRUCache[string, Record]
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(capacity int, ttl time.Duration) (*MemoryStore, error) {
	cache, err := util.NewLRU[string, Record](capacity, ttl)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache}, nil
}

func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	s.cache.Put(key(rec.Target, rec.ID), rec)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, target Target, id string) (*Record, error) {
	rec, ok := s.cache.Get(key(target, id))
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, target Target, id string) (bool, error) {
	return s.cache.Delete(key(target, id)), nil
}
