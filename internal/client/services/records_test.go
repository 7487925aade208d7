package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordsFixture struct {
	repos *store.Repositories
	fc    *fakeClient
	sync  SyncService
	svc   RecordService
	clock *fakeClock
}

func newRecords(t *testing.T, online bool, errs ...error) *recordsFixture {
	t.Helper()
	clock := newClock()
	r := openRepos(t, clock)
	fc := &fakeClient{errs: errs}
	sync := NewSyncService(r.Queue, r.Store, r.Metadata, fc, logging.Nop(), SyncOptions{Now: clock.Now})
	return &recordsFixture{
		repos: r,
		fc:    fc,
		sync:  sync,
		svc:   NewRecordService(r.Store, sync, fc, staticConn(online), logging.Nop(), clock.Now),
		clock: clock,
	}
}

func farmLog() *models.FarmLog {
	return &models.FarmLog{Date: "2025-07-14", Crop: "rice", Activity: "irrigation", Water: 1200, Fertilizer: 0, Rotation: true}
}

func TestRecords_OnlineSaveIsSubmittedAndMarkedSynced(t *testing.T) {
	f := newRecords(t, true)
	ctx := context.Background()

	res, err := f.svc.SaveFarmLog(ctx, farmLog())
	require.NoError(t, err)
	assert.True(t, res.Synced)
	assert.Empty(t, res.TaskID)

	rec, err := f.svc.Get(ctx, models.CollFarmLogs, res.ID)
	require.NoError(t, err)
	assert.True(t, rec.Synced)
	assert.Equal(t, "2025-07-14", rec.IndexKey)

	calls := f.fc.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.TaskFarmLogCreate, calls[0].sub.Type)

	st, err := f.sync.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Pending)
}

func TestRecords_OfflineSaveIsQueuedThenFlushed(t *testing.T) {
	f := newRecords(t, false)
	ctx := context.Background()

	res, err := f.svc.SaveSoilSample(ctx, &models.SoilSample{Crop: "wheat", Location: "plot-3", PH: 6.8, Nitrogen: 240})
	require.NoError(t, err)
	assert.False(t, res.Synced)
	assert.NotEmpty(t, res.TaskID)
	assert.Empty(t, f.fc.Calls())

	rec, err := f.svc.Get(ctx, models.CollSoilData, res.ID)
	require.NoError(t, err)
	assert.False(t, rec.Synced)

	rep, err := f.sync.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Delivered)

	rec, err = f.svc.Get(ctx, models.CollSoilData, res.ID)
	require.NoError(t, err)
	assert.True(t, rec.Synced)
}

func TestRecords_UnavailableFallsBackToQueueWithSameKey(t *testing.T) {
	f := newRecords(t, true, client.ErrUnavailable)
	ctx := context.Background()

	res, err := f.svc.SaveRecommendation(ctx, &models.Recommendation{Crop: "maize", Title: "Apply urea in two splits"})
	require.NoError(t, err)
	require.NotEmpty(t, res.TaskID)

	_, err = f.sync.Flush(ctx)
	require.NoError(t, err)

	calls := f.fc.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].key, calls[1].key)
}

func TestRecords_RejectedWriteStaysLocal(t *testing.T) {
	f := newRecords(t, true, errors.Join(client.ErrRejected, errors.New("status 400")))
	ctx := context.Background()

	res, err := f.svc.SaveFarmLog(ctx, farmLog())
	require.ErrorIs(t, err, client.ErrRejected)
	require.NotEmpty(t, res.ID)

	_, err = f.svc.Get(ctx, models.CollFarmLogs, res.ID)
	require.NoError(t, err)

	st, err := f.sync.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Pending)
}

func TestRecords_InvalidRecordIsNotStored(t *testing.T) {
	f := newRecords(t, true)
	ctx := context.Background()

	_, err := f.svc.SaveFarmLog(ctx, &models.FarmLog{Date: "14/07/2025"})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "date", ve.Field)

	all, err := f.svc.List(ctx, models.CollFarmLogs)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.fc.Calls())
}

func TestRecords_ProfileUsesDefaultKey(t *testing.T) {
	f := newRecords(t, false)
	ctx := context.Background()

	res, err := f.svc.SaveProfile(ctx, &models.UserProfile{Name: "Lakshmi", Language: "te"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultProfileID, res.ID)

	p, found, err := store.GetTyped[models.UserProfile](ctx, f.repos.Store, models.DefaultProfileID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "te", p.Language)
}

func TestRecords_GetAbsentAndDelete(t *testing.T) {
	f := newRecords(t, false)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, models.CollFarmLogs, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)

	res, err := f.svc.SaveFarmLog(ctx, farmLog())
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, models.CollFarmLogs, res.ID))
	require.NoError(t, f.svc.Delete(ctx, models.CollFarmLogs, res.ID))

	_, err = f.svc.Get(ctx, models.CollFarmLogs, res.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
