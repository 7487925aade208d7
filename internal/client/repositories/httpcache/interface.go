// Package httpcache stores HTTP responses captured by the network
// interceptor. Writes are last-writer-wins per request key.
package httpcache

import (
	"context"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

type Repository interface {
	Put(ctx context.Context, e models.CacheEntry) error
	Get(ctx context.Context, key string) (e models.CacheEntry, found bool, err error)
	Delete(ctx context.Context, key string) error
	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
}
