package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/dbx"
)

// SQLiteRepository implements Repository on the sync_queue table.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const taskColumns = `id, idempotency_key, type, payload, record_id, collection,
	enqueued_at, attempts, next_attempt_at, last_error, status`

func (r *SQLiteRepository) Enqueue(ctx context.Context, t models.SyncTask) (bool, error) {
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	query := `INSERT INTO sync_queue (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		t.ID, t.IdempotencyKey, t.Type, []byte(t.Payload), t.RecordID, t.Collection,
		nanos(t.EnqueuedAt), t.Attempts, nanos(t.NextAttemptAt), t.LastError, t.Status)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue task %s: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (models.SyncTask, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM sync_queue WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncTask{}, false, nil
	}
	if err != nil {
		return models.SyncTask{}, false, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return t, true, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.SyncTask, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM sync_queue ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return collect(rows)
}

func (r *SQLiteRepository) Due(ctx context.Context, now time.Time) ([]models.SyncTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM sync_queue
		WHERE status = ? AND next_attempt_at <= ? ORDER BY seq`,
		models.TaskPending, nanos(now))
	if err != nil {
		return nil, fmt.Errorf("failed to select due tasks: %w", err)
	}
	return collect(rows)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) RecordFailure(ctx context.Context, id string, attempts int, next time.Time, lastErr string, status models.TaskStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET attempts = ?, next_attempt_at = ?, last_error = ?, status = ? WHERE id = ?`,
		attempts, nanos(next), lastErr, status, id)
	if err != nil {
		return fmt.Errorf("failed to record failure of task %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Requeue(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, attempts = 0, next_attempt_at = ? WHERE status = ?`,
		models.TaskPending, nanos(now), models.TaskDead)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue dead tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'dead' THEN 1 ELSE 0 END), 0)
		FROM sync_queue`).Scan(&s.Pending, &s.Dead)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count tasks: %w", err)
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (models.SyncTask, error) {
	var (
		t                   models.SyncTask
		payload             []byte
		enqueued, nextAfter int64
	)
	err := s.Scan(&t.ID, &t.IdempotencyKey, &t.Type, &payload, &t.RecordID, &t.Collection,
		&enqueued, &t.Attempts, &nextAfter, &t.LastError, &t.Status)
	if err != nil {
		return models.SyncTask{}, err
	}
	t.Payload = payload
	t.EnqueuedAt = fromNanos(enqueued)
	t.NextAttemptAt = fromNanos(nextAfter)
	return t, nil
}

func collect(rows *sql.Rows) ([]models.SyncTask, error) {
	out, err := dbx.Collect(rows, func(rs *sql.Rows) (models.SyncTask, error) { return scanTask(rs) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}
	return out, nil
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
