// Package metadata stores small key/value settings of the client, such as
// the preferred language and the time of the last successful sync.
package metadata

import (
	"context"
)

// Keys persisted by the client.
const (
	KeyLanguage    = "language"
	KeyCurrentUser = "current_user"
	KeyLastSyncAt  = "last_sync_at"
	KeyView        = "view"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
}

// GetString reads key as text; absent keys yield "".
func GetString(ctx context.Context, r Repository, key string) (string, error) {
	v, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// SetString stores a text value under key.
func SetString(ctx context.Context, r Repository, key, value string) error {
	return r.Set(ctx, key, []byte(value))
}
