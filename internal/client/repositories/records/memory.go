package records

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

type memKey struct {
	c  models.Collection
	id string
}

type memRow struct {
	seq int64
	rec models.CachedRecord
}

// MemoryRepository keeps records in process memory. It backs the degraded
// mode used when the SQLite file cannot be opened.
type MemoryRepository struct {
	mu   sync.RWMutex
	seq  int64
	rows map[memKey]*memRow
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[memKey]*memRow)}
}

func (r *MemoryRepository) Upsert(_ context.Context, rec models.CachedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey{rec.Collection, rec.ID}
	if row, ok := r.rows[k]; ok {
		rec.CreatedAt = row.rec.CreatedAt
		row.rec = clone(rec)
		return nil
	}
	r.seq++
	r.rows[k] = &memRow{seq: r.seq, rec: clone(rec)}
	return nil
}

func (r *MemoryRepository) InsertIfAbsent(_ context.Context, rec models.CachedRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey{rec.Collection, rec.ID}
	if _, ok := r.rows[k]; ok {
		return false, nil
	}
	r.seq++
	r.rows[k] = &memRow{seq: r.seq, rec: clone(rec)}
	return true, nil
}

func (r *MemoryRepository) Get(_ context.Context, c models.Collection, id string) (models.CachedRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[memKey{c, id}]
	if !ok {
		return models.CachedRecord{}, false, nil
	}
	return clone(row.rec), true, nil
}

func (r *MemoryRepository) List(_ context.Context, c models.Collection) ([]models.CachedRecord, error) {
	return r.filter(func(rec models.CachedRecord) bool { return rec.Collection == c }), nil
}

func (r *MemoryRepository) ListByIndex(_ context.Context, c models.Collection, index string) ([]models.CachedRecord, error) {
	return r.filter(func(rec models.CachedRecord) bool {
		return rec.Collection == c && rec.IndexKey == index
	}), nil
}

func (r *MemoryRepository) Delete(_ context.Context, c models.Collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, memKey{c, id})
	return nil
}

func (r *MemoryRepository) SetSynced(_ context.Context, c models.Collection, id string, synced bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[memKey{c, id}]; ok {
		row.rec.Synced = synced
	}
	return nil
}

func (r *MemoryRepository) filter(keep func(models.CachedRecord) bool) []models.CachedRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*memRow
	for _, row := range r.rows {
		if keep(row.rec) {
			matched = append(matched, row)
		}
	}
	slices.SortFunc(matched, func(a, b *memRow) int { return int(a.seq - b.seq) })

	out := make([]models.CachedRecord, 0, len(matched))
	for _, row := range matched {
		out = append(out, clone(row.rec))
	}
	return out
}

func clone(rec models.CachedRecord) models.CachedRecord {
	rec.Payload = slices.Clone(rec.Payload)
	return rec
}
