package metadata

import (
	"context"
	"maps"
	"slices"
	"sync"
)

type MemoryRepository struct {
	mu sync.RWMutex
	kv map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{kv: make(map[string][]byte)}
}

func (r *MemoryRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.kv[key]), nil
}

func (r *MemoryRepository) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kv[key] = slices.Clone(value)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.kv, key)
	return nil
}

func (r *MemoryRepository) List(_ context.Context) (map[string][]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.kv), nil
}
