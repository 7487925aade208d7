package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, collection, index_key, payload, synced, static, created_at, updated_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, rec models.CachedRecord) error {
	query := `INSERT INTO records (collection, id, index_key, payload, synced, static, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			index_key = excluded.index_key,
			payload = excluded.payload,
			synced = excluded.synced,
			static = excluded.static,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		rec.Collection, rec.ID, rec.IndexKey, []byte(rec.Payload), rec.Synced, rec.Static,
		toNanos(rec.CreatedAt), toNanos(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert %s[%s]: %w", rec.Collection, rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) InsertIfAbsent(ctx context.Context, rec models.CachedRecord) (bool, error) {
	query := `INSERT INTO records (collection, id, index_key, payload, synced, static, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		rec.Collection, rec.ID, rec.IndexKey, []byte(rec.Payload), rec.Synced, rec.Static,
		toNanos(rec.CreatedAt), toNanos(rec.UpdatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert %s[%s]: %w", rec.Collection, rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, c models.Collection, id string) (models.CachedRecord, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM records WHERE collection = ? AND id = ?`, c, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CachedRecord{}, false, nil
	}
	if err != nil {
		return models.CachedRecord{}, false, fmt.Errorf("failed to get %s[%s]: %w", c, id, err)
	}
	return rec, true, nil
}

func (r *SQLiteRepository) List(ctx context.Context, c models.Collection) ([]models.CachedRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM records WHERE collection = ? ORDER BY seq`, c)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c, err)
	}
	out, err := dbx.Collect(rows, func(rs *sql.Rows) (models.CachedRecord, error) { return scanRecord(rs) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", c, err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListByIndex(ctx context.Context, c models.Collection, index string) ([]models.CachedRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM records WHERE collection = ? AND index_key = ? ORDER BY seq`, c, index)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s by index: %w", c, err)
	}
	out, err := dbx.Collect(rows, func(rs *sql.Rows) (models.CachedRecord, error) { return scanRecord(rs) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", c, err)
	}
	return out, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, c models.Collection, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, c, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", c, id, err)
	}
	return nil
}

func (r *SQLiteRepository) SetSynced(ctx context.Context, c models.Collection, id string, synced bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE records SET synced = ? WHERE collection = ? AND id = ?`, synced, c, id)
	if err != nil {
		return fmt.Errorf("failed to mark %s[%s] synced: %w", c, id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (models.CachedRecord, error) {
	var (
		rec              models.CachedRecord
		payload          []byte
		created, updated int64
	)
	if err := s.Scan(&rec.ID, &rec.Collection, &rec.IndexKey, &payload,
		&rec.Synced, &rec.Static, &created, &updated); err != nil {
		return models.CachedRecord{}, err
	}
	rec.Payload = payload
	rec.CreatedAt = fromNanos(created)
	rec.UpdatedAt = fromNanos(updated)
	return rec, nil
}

func toNanos(t time.Time) int64 {
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
