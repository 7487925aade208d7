// Package services contains application services of the farmadvisor client.
// This file defines the sync service: it queues writes the backend has not
// accepted yet and replays them when connectivity returns.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

// Defaults of SyncOptions.
const (
	DefaultMaxAttempts = 8
	DefaultBackoffBase = 2 * time.Second
	DefaultBackoffCap  = 10 * time.Minute
	backoffJitterPct   = 20
)

// SyncService defines the queue operations used by the CLI and the
// connectivity watcher.
//
// Contract:
//   - Enqueue: local write only, never touches the network.
//   - Flush: deliver due tasks in enqueue order; safe to call concurrently.
//   - Requeue: give dead tasks a fresh attempt budget.
//   - Stats: pending and dead counts.
type SyncService interface {
	Enqueue(ctx context.Context, task models.SyncTask) (models.SyncTask, error)
	Flush(ctx context.Context) (FlushReport, error)
	Requeue(ctx context.Context) (int, error)
	Stats(ctx context.Context) (syncqueue.Stats, error)
}

// FlushReport summarizes one delivery pass.
type FlushReport struct {
	Attempted int
	Delivered int
	Failed    int
	// Dead counts tasks that ran out of attempts during this pass.
	Dead int
	// Interrupted is set when the backend became unavailable mid-pass.
	Interrupted bool
	// Pending is the number of tasks still queued after the pass.
	Pending int
}

// SyncOptions tunes retries. Zero values select the defaults.
type SyncOptions struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Now         func() time.Time
}

type syncService struct {
	queue    syncqueue.Repository
	store    store.Store
	metadata metadata.Repository
	client   client.Client
	log      logging.Logger

	maxAttempts int
	base        time.Duration
	cap         time.Duration
	now         func() time.Time

	group singleflight.Group
}

// NewSyncService wires the queue to a remote client. st is used to flag the
// originating records as synced; meta (optional) records the last sync time.
func NewSyncService(queue syncqueue.Repository, st store.Store, meta metadata.Repository, c client.Client, log logging.Logger, opts SyncOptions) SyncService {
	s := &syncService{
		queue:       queue,
		store:       st,
		metadata:    meta,
		client:      c,
		log:         log.With("module", "sync"),
		maxAttempts: opts.MaxAttempts,
		base:        opts.BackoffBase,
		cap:         opts.BackoffCap,
		now:         opts.Now,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.base <= 0 {
		s.base = DefaultBackoffBase
	}
	if s.cap <= 0 {
		s.cap = DefaultBackoffCap
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Enqueue fills in id, idempotency key and timestamps when missing and
// stores the task. Enqueueing a key that is already queued is a no-op.
func (s *syncService) Enqueue(ctx context.Context, task models.SyncTask) (models.SyncTask, error) {
	now := s.now().UTC()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.IdempotencyKey == "" {
		task.IdempotencyKey = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = now
	}
	if task.NextAttemptAt.IsZero() {
		task.NextAttemptAt = task.EnqueuedAt
	}
	task.Status = models.TaskPending

	if err := models.Validate(task); err != nil {
		return models.SyncTask{}, err
	}

	inserted, err := s.queue.Enqueue(ctx, task)
	if err != nil {
		return models.SyncTask{}, fmt.Errorf("failed to enqueue %s: %w", task.Type, err)
	}
	if inserted {
		s.log.Debug(ctx, "task queued", "task_id", task.ID, "type", task.Type)
	}
	return task, nil
}

// Flush coalesces concurrent callers into a single pass; all of them get
// the same report.
func (s *syncService) Flush(ctx context.Context) (FlushReport, error) {
	v, err, shared := s.group.Do("flush", func() (any, error) {
		return s.flush(ctx)
	})
	if shared {
		s.log.Debug(ctx, "flush joined a pass already in progress")
	}
	rep, _ := v.(FlushReport)
	return rep, err
}

func (s *syncService) flush(ctx context.Context) (FlushReport, error) {
	var rep FlushReport

	now := s.now().UTC()
	tasks, err := s.queue.Due(ctx, now)
	if err != nil {
		return rep, fmt.Errorf("failed to load due tasks: %w", err)
	}
	if len(tasks) == 0 {
		return s.finish(ctx, rep)
	}

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		rep.Attempted++
		err := s.client.SubmitTask(ctx, t.IdempotencyKey, t.Submission())
		if err == nil {
			if err := s.delivered(ctx, t); err != nil {
				return rep, err
			}
			rep.Delivered++
			continue
		}

		if errors.Is(err, client.ErrUnavailable) {
			// not the task's fault: leave it and the rest untouched
			rep.Attempted--
			rep.Interrupted = true
			s.log.Info(ctx, "backend unavailable, flush stopped", "remaining", len(tasks)-rep.Delivered-rep.Failed)
			break
		}

		dead, ferr := s.failed(ctx, t, now, err)
		if ferr != nil {
			return rep, ferr
		}
		rep.Failed++
		if dead {
			rep.Dead++
		}
	}

	return s.finish(ctx, rep)
}

func (s *syncService) finish(ctx context.Context, rep FlushReport) (FlushReport, error) {
	st, err := s.queue.Stats(ctx)
	if err != nil {
		return rep, fmt.Errorf("failed to count tasks: %w", err)
	}
	rep.Pending = st.Pending

	if !rep.Interrupted && s.metadata != nil {
		if err := metadata.SetString(ctx, s.metadata, metadata.KeyLastSyncAt, s.now().UTC().Format(time.RFC3339)); err != nil {
			s.log.Warn(ctx, "cannot store last sync time", "error", err)
		}
	}
	if rep.Attempted > 0 {
		s.log.Info(ctx, "flush finished",
			"delivered", rep.Delivered, "failed", rep.Failed, "dead", rep.Dead, "pending", rep.Pending)
	}
	return rep, nil
}

func (s *syncService) delivered(ctx context.Context, t models.SyncTask) error {
	if err := s.queue.Delete(ctx, t.ID); err != nil {
		return fmt.Errorf("failed to remove delivered task %s: %w", t.ID, err)
	}
	if t.RecordID == "" || t.Collection == "" {
		return nil
	}
	if err := s.store.MarkSynced(ctx, t.Collection, t.RecordID); err != nil {
		// the task is gone already; a stale flag is harmless
		s.log.Warn(ctx, "cannot mark record synced", "collection", t.Collection, "id", t.RecordID, "error", err)
	}
	return nil
}

func (s *syncService) failed(ctx context.Context, t models.SyncTask, now time.Time, cause error) (bool, error) {
	attempts := t.Attempts + 1
	status := models.TaskPending
	if attempts >= s.maxAttempts {
		status = models.TaskDead
	}
	next := now.Add(s.backoff(attempts))

	if err := s.queue.RecordFailure(ctx, t.ID, attempts, next, cause.Error(), status); err != nil {
		return false, fmt.Errorf("failed to record attempt of %s: %w", t.ID, err)
	}

	if status == models.TaskDead {
		s.log.Warn(ctx, "task gave up after max attempts",
			"task_id", t.ID, "type", t.Type, "attempts", attempts, "error", cause)
		return true, nil
	}
	s.log.Debug(ctx, "task delivery failed", "task_id", t.ID, "attempts", attempts, "next_attempt_at", next, "error", cause)
	return false, nil
}

// backoff returns the delay before attempt number attempts+1: exponential
// from base, jittered by ±20%, capped.
func (s *syncService) backoff(attempts int) time.Duration {
	b := retry.NewExponential(s.base)
	b = retry.WithJitterPercent(backoffJitterPct, b)
	b = retry.WithCappedDuration(s.cap, b)

	var d time.Duration
	for i := 0; i < attempts; i++ {
		next, stop := b.Next()
		if stop {
			break
		}
		d = next
	}
	return d
}

func (s *syncService) Requeue(ctx context.Context) (int, error) {
	n, err := s.queue.Requeue(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to requeue dead tasks: %w", err)
	}
	if n > 0 {
		s.log.Info(ctx, "dead tasks requeued", "count", n)
	}
	return n, nil
}

func (s *syncService) Stats(ctx context.Context) (syncqueue.Stats, error) {
	return s.queue.Stats(ctx)
}
