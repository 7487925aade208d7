package store

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrReadOnly          = errors.New("reference data is read-only")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrMissingKey        = errors.New("record key is required")
)

// StorageError reports a failed operation against the persistence backend.
type StorageError struct {
	Op         string
	Collection models.Collection
	Err        error
}

func (e *StorageError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, c models.Collection, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Collection: c, Err: err}
}
