// Package syncqueue persists SyncTasks waiting for delivery to the backend.
package syncqueue

import (
	"context"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

// Stats counts queued tasks by status.
type Stats struct {
	Pending int
	Dead    int
}

// Repository describes the task queue storage.
type Repository interface {
	// Enqueue appends task. A task whose idempotency key is already queued is
	// ignored and inserted reports false.
	Enqueue(ctx context.Context, task models.SyncTask) (inserted bool, err error)

	// Get returns a task by id; found is false when it does not exist.
	Get(ctx context.Context, id string) (task models.SyncTask, found bool, err error)

	// List returns all tasks, pending and dead, in enqueue order.
	List(ctx context.Context) ([]models.SyncTask, error)

	// Due returns pending tasks whose next attempt is not after now,
	// in enqueue order.
	Due(ctx context.Context, now time.Time) ([]models.SyncTask, error)

	// Delete removes a task. Deleting an absent task is not an error.
	Delete(ctx context.Context, id string) error

	// RecordFailure stores the outcome of a failed attempt.
	RecordFailure(ctx context.Context, id string, attempts int, next time.Time, lastErr string, status models.TaskStatus) error

	// Requeue moves dead tasks back to pending with a fresh attempt budget,
	// due at now. It returns the number of tasks moved.
	Requeue(ctx context.Context, now time.Time) (int, error)

	// Stats counts tasks by status.
	Stats(ctx context.Context) (Stats, error)
}
