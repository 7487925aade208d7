package syncqueue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

// MemoryRepository is an in-process Repository used when no database is
// available. Tasks are kept in enqueue order.
type MemoryRepository struct {
	mu    sync.Mutex
	tasks []models.SyncTask
}

// NewMemoryRepository returns an empty queue.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Enqueue(_ context.Context, t models.SyncTask) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, q := range r.tasks {
		if q.IdempotencyKey == t.IdempotencyKey {
			return false, nil
		}
	}
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	t.Payload = slices.Clone(t.Payload)
	r.tasks = append(r.tasks, t)
	return true, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (models.SyncTask, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.index(id); i >= 0 {
		return r.tasks[i], true, nil
	}
	return models.SyncTask{}, false, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]models.SyncTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.tasks), nil
}

func (r *MemoryRepository) Due(_ context.Context, now time.Time) ([]models.SyncTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.SyncTask
	for _, t := range r.tasks {
		if t.Status == models.TaskPending && !t.NextAttemptAt.After(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.index(id); i >= 0 {
		r.tasks = slices.Delete(r.tasks, i, i+1)
	}
	return nil
}

func (r *MemoryRepository) RecordFailure(_ context.Context, id string, attempts int, next time.Time, lastErr string, status models.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.index(id); i >= 0 {
		t := &r.tasks[i]
		t.Attempts = attempts
		t.NextAttemptAt = next
		t.LastError = lastErr
		t.Status = status
	}
	return nil
}

func (r *MemoryRepository) Requeue(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.tasks {
		if r.tasks[i].Status == models.TaskDead {
			r.tasks[i].Status = models.TaskPending
			r.tasks[i].Attempts = 0
			r.tasks[i].NextAttemptAt = now
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Stats(_ context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s Stats
	for _, t := range r.tasks {
		switch t.Status {
		case models.TaskPending:
			s.Pending++
		case models.TaskDead:
			s.Dead++
		}
	}
	return s, nil
}

func (r *MemoryRepository) index(id string) int {
	return slices.IndexFunc(r.tasks, func(t models.SyncTask) bool { return t.ID == id })
}
