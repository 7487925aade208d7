package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"github.com/google/uuid"
)

// Connectivity reports whether the backend is believed reachable.
type Connectivity interface {
	IsOnline() bool
}

// RecordService defines the write path for user data.
//
// Every save lands in the local store first. When online the write is then
// submitted to the backend; when offline, or when the backend turns out to be
// unavailable, it is queued for the next flush.
type RecordService interface {
	SaveFarmLog(ctx context.Context, l *models.FarmLog) (SaveResult, error)
	SaveSoilSample(ctx context.Context, s *models.SoilSample) (SaveResult, error)
	SaveRecommendation(ctx context.Context, r *models.Recommendation) (SaveResult, error)
	SaveProfile(ctx context.Context, p *models.UserProfile) (SaveResult, error)
	List(ctx context.Context, c models.Collection) ([]models.CachedRecord, error)
	Get(ctx context.Context, c models.Collection, key string) (models.CachedRecord, error)
	Delete(ctx context.Context, c models.Collection, key string) error
}

// SaveResult tells the caller where a write ended up.
type SaveResult struct {
	ID string
	// Synced is set when the backend accepted the write right away.
	Synced bool
	// TaskID is set when the write was queued.
	TaskID string
}

type recordService struct {
	store  store.Store
	sync   SyncService
	client client.Client
	conn   Connectivity
	log    logging.Logger
	now    func() time.Time
}

// NewRecordService builds the write path. now may be nil.
func NewRecordService(st store.Store, sync SyncService, c client.Client, conn Connectivity, log logging.Logger, now func() time.Time) RecordService {
	if now == nil {
		now = time.Now
	}
	return &recordService{store: st, sync: sync, client: c, conn: conn, log: log.With("module", "records"), now: now}
}

func (s *recordService) SaveFarmLog(ctx context.Context, l *models.FarmLog) (SaveResult, error) {
	return save(ctx, s, l, models.TaskFarmLogCreate)
}

func (s *recordService) SaveSoilSample(ctx context.Context, v *models.SoilSample) (SaveResult, error) {
	if v.SampledAt.IsZero() {
		v.SampledAt = s.now().UTC()
	}
	return save(ctx, s, v, models.TaskSoilSampleCreate)
}

func (s *recordService) SaveRecommendation(ctx context.Context, r *models.Recommendation) (SaveResult, error) {
	if r.IssuedAt.IsZero() {
		r.IssuedAt = s.now().UTC()
	}
	return save(ctx, s, r, models.TaskRecommendationCreate)
}

func (s *recordService) SaveProfile(ctx context.Context, p *models.UserProfile) (SaveResult, error) {
	if p.ID == "" {
		p.ID = models.DefaultProfileID
	}
	return save(ctx, s, p, models.TaskProfileUpdate)
}

type writable[T any] interface {
	*T
	models.Record
}

func save[T any, PT writable[T]](ctx context.Context, s *recordService, v PT, taskType string) (SaveResult, error) {
	rec, err := store.Encode[T, PT](v)
	if err != nil {
		return SaveResult{}, err
	}

	id, err := s.store.Put(ctx, rec.Collection, rec)
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to save %s locally: %w", rec.Collection, err)
	}
	res := SaveResult{ID: id}

	task := models.SyncTask{
		IdempotencyKey: uuid.NewString(),
		Type:           taskType,
		Payload:        rec.Payload,
		RecordID:       id,
		Collection:     rec.Collection,
		EnqueuedAt:     s.now().UTC(),
	}

	if s.conn == nil || s.conn.IsOnline() {
		err := s.client.SubmitTask(ctx, task.IdempotencyKey, task.Submission())
		switch {
		case err == nil:
			if err := s.store.MarkSynced(ctx, rec.Collection, id); err != nil {
				return res, fmt.Errorf("failed to mark %s synced: %w", id, err)
			}
			res.Synced = true
			return res, nil
		case !errors.Is(err, client.ErrUnavailable):
			s.log.Warn(ctx, "backend refused write, kept locally", "collection", rec.Collection, "id", id, "error", err)
			return res, fmt.Errorf("backend refused %s: %w", taskType, err)
		}
		s.log.Info(ctx, "backend unavailable, queueing write", "collection", rec.Collection, "id", id)
	}

	// the same idempotency key is reused, so a submit that did reach the
	// backend before timing out is not applied twice
	queued, err := s.sync.Enqueue(ctx, task)
	if err != nil {
		return res, err
	}
	res.TaskID = queued.ID
	return res, nil
}

func (s *recordService) List(ctx context.Context, c models.Collection) ([]models.CachedRecord, error) {
	return s.store.GetAll(ctx, c)
}

// Get returns store.ErrNotFound for an absent key.
func (s *recordService) Get(ctx context.Context, c models.Collection, key string) (models.CachedRecord, error) {
	rec, found, err := s.store.Get(ctx, c, key)
	if err != nil {
		return models.CachedRecord{}, err
	}
	if !found {
		return models.CachedRecord{}, fmt.Errorf("%w: %s[%s]", store.ErrNotFound, c, key)
	}
	return rec, nil
}

func (s *recordService) Delete(ctx context.Context, c models.Collection, key string) error {
	return s.store.Delete(ctx, c, key)
}
