// Package mediacache caches AI image analyses keyed by file name, with a
// fixed TTL enforced lazily on read and an explicit cleanup sweep.
package mediacache

import (
	"context"
	"sort"
	"sync"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

// MemoryStore is a thread-safe in-memory AnalysisStore. It backs tests and
// single-run invocations where persistence across processes isn't needed.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]schemas.MediaAnalysis
}

var _ schemas.AnalysisStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]schemas.MediaAnalysis)}
}

// Get returns the record for the file name, or nil when absent.
func (s *MemoryStore) Get(ctx context.Context, fileName string) (*schemas.MediaAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[fileName]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Put inserts or replaces the record keyed by its file name.
func (s *MemoryStore) Put(ctx context.Context, analysis schemas.MediaAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[analysis.FileName] = analysis
	return nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (s *MemoryStore) Delete(ctx context.Context, fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, fileName)
	return nil
}

// List returns all records of the category, newest first.
func (s *MemoryStore) List(ctx context.Context, category string) ([]schemas.MediaAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schemas.MediaAnalysis, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.Category == category {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].FileName < out[j].FileName
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Clear removes every record of the category.
func (s *MemoryStore) Clear(ctx context.Context, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, entry := range s.entries {
		if entry.Category == category {
			delete(s.entries, name)
		}
	}
	return nil
}
