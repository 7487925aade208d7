package httpcache

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]models.CacheEntry)}
}

func (r *MemoryRepository) Put(_ context.Context, e models.CacheEntry) error {
	e.Body = slices.Clone(e.Body)
	e.Header = e.Header.Clone()

	r.mu.Lock()
	r.entries[e.Key] = e
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, key string) (models.CacheEntry, bool, error) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return models.CacheEntry{}, false, nil
	}
	e.Body = slices.Clone(e.Body)
	e.Header = e.Header.Clone()
	return e, true, nil
}

func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}
