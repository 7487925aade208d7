// Package records persists CachedRecord envelopes for all collections in a
// single table keyed by (collection, id), with insertion order kept in a
// monotonic sequence column.
package records

import (
	"context"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

// Repository describes storage of record envelopes.
type Repository interface {
	// Upsert inserts rec or replaces the stored record with the same
	// (collection, id). Replacing keeps the original position and CreatedAt.
	Upsert(ctx context.Context, rec models.CachedRecord) error

	// InsertIfAbsent inserts rec unless a record with the same key exists.
	// It reports whether a row was written.
	InsertIfAbsent(ctx context.Context, rec models.CachedRecord) (bool, error)

	// Get returns the record; found is false when it does not exist.
	Get(ctx context.Context, c models.Collection, id string) (rec models.CachedRecord, found bool, err error)

	// List returns every record of c in insertion order.
	List(ctx context.Context, c models.Collection) ([]models.CachedRecord, error)

	// ListByIndex returns the records of c whose index key equals index.
	ListByIndex(ctx context.Context, c models.Collection, index string) ([]models.CachedRecord, error)

	// Delete removes the record. Deleting an absent record is not an error.
	Delete(ctx context.Context, c models.Collection, id string) error

	// SetSynced updates the synced flag of one record.
	SetSynced(ctx context.Context, c models.Collection, id string, synced bool) error
}
