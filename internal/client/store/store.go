// Package store is the local persistent store of the client: named
// collections of records, a queue of writes waiting for the backend, an
// HTTP response cache and a small settings table, all backed by SQLite
// with an in-memory fallback.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/records"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/syncqueue"
	"github.com/google/uuid"
)

// Store is the collection API used by services.
type Store interface {
	// Put inserts or replaces rec in c and returns its id. Surrogate-keyed
	// collections get a generated id when rec.ID is empty.
	Put(ctx context.Context, c models.Collection, rec models.CachedRecord) (string, error)
	// Get looks a record up by key; found is false when it is absent.
	Get(ctx context.Context, c models.Collection, key string) (rec models.CachedRecord, found bool, err error)
	// GetAll returns the records of c in insertion order.
	GetAll(ctx context.Context, c models.Collection) ([]models.CachedRecord, error)
	// GetAllByIndex returns the records of c whose index key equals index.
	GetAllByIndex(ctx context.Context, c models.Collection, index string) ([]models.CachedRecord, error)
	// Delete removes a record; deleting an absent key is not an error.
	Delete(ctx context.Context, c models.Collection, key string) error
	// MarkSynced flags a record as delivered to the backend.
	MarkSynced(ctx context.Context, c models.Collection, key string) error
}

// txFunc runs fn with a records repository that sees a consistent view.
type txFunc func(ctx context.Context, fn func(ctx context.Context, repo records.Repository) error) error

// RecordStore implements Store on top of the records and sync queue
// repositories.
type RecordStore struct {
	records records.Repository
	queue   syncqueue.Repository
	inTx    txFunc
	now     func() time.Time
}

var _ Store = (*RecordStore)(nil)

func newRecordStore(r records.Repository, q syncqueue.Repository, inTx txFunc, now func() time.Time) *RecordStore {
	if inTx == nil {
		var mu sync.Mutex
		inTx = func(ctx context.Context, fn func(context.Context, records.Repository) error) error {
			mu.Lock()
			defer mu.Unlock()
			return fn(ctx, r)
		}
	}
	return &RecordStore{records: r, queue: q, inTx: inTx, now: now}
}

func (s *RecordStore) Put(ctx context.Context, c models.Collection, rec models.CachedRecord) (string, error) {
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	if c == models.CollSyncQueue {
		return s.putTask(ctx, rec)
	}

	if rec.ID == "" {
		if c.KeyKind() != models.KeySurrogate {
			return "", fmt.Errorf("%w for %s", ErrMissingKey, c)
		}
		rec.ID = uuid.NewString()
	}
	rec.Collection = c
	rec.Static = false

	now := s.now().UTC()
	err := s.inTx(ctx, func(ctx context.Context, repo records.Repository) error {
		existing, found, err := repo.Get(ctx, c, rec.ID)
		if err != nil {
			return storageErr("put", c, err)
		}
		if found && existing.Static {
			return fmt.Errorf("%w: %s[%s]", ErrReadOnly, c, rec.ID)
		}

		rec.CreatedAt = now
		if found {
			rec.CreatedAt = existing.CreatedAt
		}
		rec.UpdatedAt = now

		return storageErr("put", c, repo.Upsert(ctx, rec))
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *RecordStore) Get(ctx context.Context, c models.Collection, key string) (models.CachedRecord, bool, error) {
	if !c.Valid() {
		return models.CachedRecord{}, false, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	if c == models.CollSyncQueue {
		t, found, err := s.queue.Get(ctx, key)
		if err != nil || !found {
			return models.CachedRecord{}, false, storageErr("get", c, err)
		}
		rec, err := taskRecord(t)
		return rec, err == nil, err
	}

	rec, found, err := s.records.Get(ctx, c, key)
	return rec, found, storageErr("get", c, err)
}

func (s *RecordStore) GetAll(ctx context.Context, c models.Collection) ([]models.CachedRecord, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	if c == models.CollSyncQueue {
		tasks, err := s.queue.List(ctx)
		if err != nil {
			return nil, storageErr("get all", c, err)
		}
		return taskRecords(tasks)
	}

	out, err := s.records.List(ctx, c)
	return out, storageErr("get all", c, err)
}

func (s *RecordStore) GetAllByIndex(ctx context.Context, c models.Collection, index string) ([]models.CachedRecord, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	if c == models.CollSyncQueue {
		// tasks are indexed by type
		tasks, err := s.queue.List(ctx)
		if err != nil {
			return nil, storageErr("get by index", c, err)
		}
		var matched []models.SyncTask
		for _, t := range tasks {
			if t.Type == index {
				matched = append(matched, t)
			}
		}
		return taskRecords(matched)
	}

	out, err := s.records.ListByIndex(ctx, c, index)
	return out, storageErr("get by index", c, err)
}

func (s *RecordStore) Delete(ctx context.Context, c models.Collection, key string) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	if c == models.CollSyncQueue {
		return storageErr("delete", c, s.queue.Delete(ctx, key))
	}
	if c.Static() {
		rec, found, err := s.records.Get(ctx, c, key)
		if err != nil {
			return storageErr("delete", c, err)
		}
		if found && rec.Static {
			return fmt.Errorf("%w: %s[%s]", ErrReadOnly, c, key)
		}
	}
	return storageErr("delete", c, s.records.Delete(ctx, c, key))
}

func (s *RecordStore) MarkSynced(ctx context.Context, c models.Collection, key string) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return storageErr("mark synced", c, s.records.SetSynced(ctx, c, key, true))
}

// putTask enqueues a task written through the collection API. The payload
// of rec must be a JSON encoded models.SyncTask.
func (s *RecordStore) putTask(ctx context.Context, rec models.CachedRecord) (string, error) {
	var t models.SyncTask
	if err := json.Unmarshal(rec.Payload, &t); err != nil {
		return "", fmt.Errorf("decode sync task: %w", err)
	}
	if t.ID == "" {
		t.ID = rec.ID
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.IdempotencyKey == "" {
		t.IdempotencyKey = uuid.NewString()
	}
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = s.now().UTC()
	}
	if t.NextAttemptAt.IsZero() {
		t.NextAttemptAt = t.EnqueuedAt
	}
	if err := models.Validate(t); err != nil {
		return "", err
	}

	if _, err := s.queue.Enqueue(ctx, t); err != nil {
		return "", storageErr("put", models.CollSyncQueue, err)
	}
	return t.ID, nil
}

func taskRecord(t models.SyncTask) (models.CachedRecord, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return models.CachedRecord{}, fmt.Errorf("encode sync task: %w", err)
	}
	return models.CachedRecord{
		ID:         t.ID,
		Collection: models.CollSyncQueue,
		IndexKey:   t.Type,
		Payload:    payload,
		CreatedAt:  t.EnqueuedAt,
		UpdatedAt:  t.EnqueuedAt,
	}, nil
}

func taskRecords(tasks []models.SyncTask) ([]models.CachedRecord, error) {
	out := make([]models.CachedRecord, 0, len(tasks))
	for _, t := range tasks {
		rec, err := taskRecord(t)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
