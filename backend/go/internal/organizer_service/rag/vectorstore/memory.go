package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process index using cosine similarity. It is the
// default backend and the one used in tests.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	order   []string
	entries map[string]memoryEntry
}

type memoryEntry struct {
	vector []float32
	meta   Metadata
}

var _ Index = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string]*memoryCollection)}
}

// Upsert overwrites an existing id in place.
func (m *MemoryIndex) Upsert(_ context.Context, collection, id string, vector []float32, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collection]
	if !ok {
		col = &memoryCollection{entries: make(map[string]memoryEntry)}
		m.collections[collection] = col
	}
	if _, exists := col.entries[id]; !exists {
		col.order = append(col.order, id)
	}
	col.entries[id] = memoryEntry{
		vector: append([]float32(nil), vector...),
		meta:   copyMetadata(meta),
	}
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, collection string, vector []float32, k int) ([]Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[collection]
	if !ok || k <= 0 {
		return []Metadata{}, nil
	}

	type scored struct {
		meta  Metadata
		score float64
	}
	hits := make([]scored, 0, len(col.order))
	for _, id := range col.order {
		e := col.entries[id]
		if len(e.vector) != len(vector) {
			continue
		}
		hits = append(hits, scored{meta: e.meta, score: cosine(vector, e.vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Metadata, len(hits))
	for i, h := range hits {
		out[i] = copyMetadata(h.meta)
	}
	return out, nil
}

// Len returns the number of vectors in collection.
func (m *MemoryIndex) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if col, ok := m.collections[collection]; ok {
		return len(col.order)
	}
	return 0
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func copyMetadata(m Metadata) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
