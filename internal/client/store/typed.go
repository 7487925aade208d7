package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/google/uuid"
)

// recordPtr is satisfied by pointers to the typed record structs.
type recordPtr[T any] interface {
	*T
	models.Record
}

// Encode validates v and wraps it into an envelope for its collection.
// Surrogate-keyed records without an id get one assigned first.
func Encode[T any, PT recordPtr[T]](v PT) (models.CachedRecord, error) {
	c := v.Collection()
	if v.Key() == "" && c.KeyKind() == models.KeySurrogate {
		if ks, ok := any(v).(models.KeySetter); ok {
			ks.SetKey(uuid.NewString())
		}
	}
	if err := models.Validate(v); err != nil {
		return models.CachedRecord{}, err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return models.CachedRecord{}, fmt.Errorf("encode %s: %w", c, err)
	}
	return models.CachedRecord{
		ID:         v.Key(),
		Collection: c,
		IndexKey:   v.Index(),
		Payload:    payload,
	}, nil
}

// Decode unmarshals the payload of rec into a T.
func Decode[T any](rec models.CachedRecord) (*T, error) {
	var v T
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		return nil, fmt.Errorf("decode %s[%s]: %w", rec.Collection, rec.ID, err)
	}
	return &v, nil
}

// PutTyped validates and stores v in its own collection, returning the id.
func PutTyped[T any, PT recordPtr[T]](ctx context.Context, s Store, v PT) (string, error) {
	rec, err := Encode[T, PT](v)
	if err != nil {
		return "", err
	}
	return s.Put(ctx, rec.Collection, rec)
}

// GetTyped loads the record with key from T's collection.
func GetTyped[T any, PT recordPtr[T]](ctx context.Context, s Store, key string) (*T, bool, error) {
	var zero PT = new(T)
	rec, found, err := s.Get(ctx, zero.Collection(), key)
	if err != nil || !found {
		return nil, false, err
	}
	v, err := Decode[T](rec)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// GetAllTyped loads every record of T's collection in insertion order.
func GetAllTyped[T any, PT recordPtr[T]](ctx context.Context, s Store) ([]T, error) {
	var zero PT = new(T)
	recs, err := s.GetAll(ctx, zero.Collection())
	if err != nil {
		return nil, err
	}
	return decodeAll[T](recs)
}

// GetAllTypedByIndex loads the records of T's collection with the index value.
func GetAllTypedByIndex[T any, PT recordPtr[T]](ctx context.Context, s Store, index string) ([]T, error) {
	var zero PT = new(T)
	recs, err := s.GetAllByIndex(ctx, zero.Collection(), index)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](recs)
}

func decodeAll[T any](recs []models.CachedRecord) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := Decode[T](rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
