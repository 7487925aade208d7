package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
)

// WeatherService keeps the last known weather per location for offline use.
type WeatherService interface {
	// Current returns the cached snapshot for location if it is still within
	// the weather TTL. Stale snapshots are deleted and reported as a miss.
	Current(ctx context.Context, location string) (*models.WeatherSnapshot, bool, error)
	// Remember stores snap, stamping it with the current time when unset.
	Remember(ctx context.Context, snap *models.WeatherSnapshot) error
}

type weatherService struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewWeatherService(st store.Store, ttl time.Duration, now func() time.Time) WeatherService {
	if now == nil {
		now = time.Now
	}
	return &weatherService{store: st, ttl: ttl, now: now}
}

func (s *weatherService) Current(ctx context.Context, location string) (*models.WeatherSnapshot, bool, error) {
	snap, found, err := store.GetTyped[models.WeatherSnapshot](ctx, s.store, location)
	if err != nil || !found {
		return nil, false, err
	}

	if s.now().Sub(snap.CapturedAt) > s.ttl {
		if err := s.store.Delete(ctx, models.CollWeatherCache, location); err != nil {
			return nil, false, fmt.Errorf("failed to drop stale weather for %s: %w", location, err)
		}
		return nil, false, nil
	}
	return snap, true, nil
}

func (s *weatherService) Remember(ctx context.Context, snap *models.WeatherSnapshot) error {
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = s.now().UTC()
	}
	_, err := store.PutTyped(ctx, s.store, snap)
	return err
}
