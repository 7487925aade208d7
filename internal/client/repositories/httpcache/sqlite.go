package httpcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, e models.CacheEntry) error {
	header, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO http_cache (key, method, url, category, status_code, header, body, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			method = excluded.method,
			url = excluded.url,
			category = excluded.category,
			status_code = excluded.status_code,
			header = excluded.header,
			body = excluded.body,
			captured_at = excluded.captured_at
	`, e.Key, e.Method, e.URL, e.Category, e.StatusCode, header, e.Body, e.CapturedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", e.URL, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	var (
		e        models.CacheEntry
		header   []byte
		captured int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT key, method, url, category, status_code, header, body, captured_at
		FROM http_cache WHERE key = ?`, key).
		Scan(&e.Key, &e.Method, &e.URL, &e.Category, &e.StatusCode, &header, &e.Body, &captured)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	e.Header = http.Header{}
	if err := json.Unmarshal(header, &e.Header); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("failed to decode headers: %w", err)
	}
	e.CapturedAt = time.Unix(0, captured).UTC()
	return e, true, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM http_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM http_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
