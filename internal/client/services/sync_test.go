package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSync(t *testing.T, clock *fakeClock, fc *fakeClient, max int) (SyncService, func() []models.SyncTask) {
	t.Helper()
	r := openRepos(t, clock)
	svc := NewSyncService(r.Queue, r.Store, r.Metadata, fc, logging.Nop(), SyncOptions{
		MaxAttempts: max,
		Now:         clock.Now,
	})
	list := func() []models.SyncTask {
		tasks, err := r.Queue.List(context.Background())
		require.NoError(t, err)
		return tasks
	}
	return svc, list
}

func task(typ, payload string) models.SyncTask {
	return models.SyncTask{Type: typ, Payload: json.RawMessage(payload)}
}

func TestSync_EnqueueFillsDefaultsAndDoesNotCallNetwork(t *testing.T) {
	clock := newClock()
	fc := &fakeClient{}
	svc, list := newSync(t, clock, fc, 0)

	got, err := svc.Enqueue(context.Background(), task(models.TaskFarmLogCreate, `{"date":"2025-07-14"}`))
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.NotEmpty(t, got.IdempotencyKey)
	assert.Equal(t, clock.Now(), got.EnqueuedAt)
	assert.Equal(t, models.TaskPending, got.Status)
	assert.Empty(t, fc.Calls())
	assert.Len(t, list(), 1)
}

func TestSync_EnqueueSameKeyTwiceKeepsOne(t *testing.T) {
	svc, list := newSync(t, newClock(), &fakeClient{}, 0)
	ctx := context.Background()

	tk := task(models.TaskFarmLogCreate, `{}`)
	tk.IdempotencyKey = "same"
	_, err := svc.Enqueue(ctx, tk)
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, tk)
	require.NoError(t, err)

	assert.Len(t, list(), 1)
}

func TestSync_EnqueueRejectsInvalid(t *testing.T) {
	svc, _ := newSync(t, newClock(), &fakeClient{}, 0)
	_, err := svc.Enqueue(context.Background(), models.SyncTask{Payload: json.RawMessage(`{}`)})

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSync_FlushDeliversInOrderAndEmptiesQueue(t *testing.T) {
	clock := newClock()
	fc := &fakeClient{}
	svc, list := newSync(t, clock, fc, 0)
	ctx := context.Background()

	for _, p := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		_, err := svc.Enqueue(ctx, task(models.TaskFarmLogCreate, p))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	rep, err := svc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushReport{Attempted: 3, Delivered: 3}, rep)
	assert.Empty(t, list())

	calls := fc.Calls()
	require.Len(t, calls, 3)
	for i, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		assert.JSONEq(t, want, string(calls[i].sub.Payload))
		assert.Equal(t, models.TaskFarmLogCreate, calls[i].sub.Type)
		assert.NotEmpty(t, calls[i].key)
	}
}

func TestSync_FlushEmptyQueueIsNoop(t *testing.T) {
	fc := &fakeClient{}
	svc, _ := newSync(t, newClock(), fc, 0)

	rep, err := svc.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FlushReport{}, rep)
	assert.Empty(t, fc.Calls())
}

func TestSync_UnavailableStopsPassWithoutChargingAttempts(t *testing.T) {
	clock := newClock()
	fc := &fakeClient{errs: []error{nil, client.ErrUnavailable}}
	svc, list := newSync(t, clock, fc, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Enqueue(ctx, task(models.TaskSoilSampleCreate, `{}`))
		require.NoError(t, err)
	}

	rep, err := svc.Flush(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Interrupted)
	assert.Equal(t, 1, rep.Delivered)
	assert.Equal(t, 2, rep.Pending)
	assert.Len(t, fc.Calls(), 2)

	for _, tk := range list() {
		assert.Zero(t, tk.Attempts)
	}
}

func TestSync_RejectionBacksOffThenGoesDead(t *testing.T) {
	clock := newClock()
	rejected := errors.New("request rejected: bad crop")
	fc := &fakeClient{errs: []error{rejected, rejected}}
	svc, list := newSync(t, clock, fc, 2)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, task(models.TaskFarmLogCreate, `{}`))
	require.NoError(t, err)

	rep, err := svc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Zero(t, rep.Dead)

	tasks := list()
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, tasks[0].Attempts)
	assert.Equal(t, "request rejected: bad crop", tasks[0].LastError)
	delay := tasks[0].NextAttemptAt.Sub(clock.Now())
	assert.GreaterOrEqual(t, delay, 1600*time.Millisecond)
	assert.LessOrEqual(t, delay, 2400*time.Millisecond)

	// not due yet
	rep, err = svc.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Attempted)

	clock.Advance(time.Minute)
	rep, err = svc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Dead)

	tasks = list()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskDead, tasks[0].Status)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Dead)

	n, err := svc.Requeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rep, err = svc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Delivered)
	assert.Empty(t, list())
}

func TestSync_LaterTaskMayOvertakeFailedOne(t *testing.T) {
	clock := newClock()
	fc := &fakeClient{errs: []error{errors.New("rejected")}}
	svc, list := newSync(t, clock, fc, 0)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, task(models.TaskFarmLogCreate, `{"n":1}`))
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, task(models.TaskFarmLogCreate, `{"n":2}`))
	require.NoError(t, err)

	rep, err := svc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Delivered)
	assert.Equal(t, 1, rep.Failed)

	left := list()
	require.Len(t, left, 1)
	assert.Equal(t, first.ID, left[0].ID)
}

func TestSync_FlushMarksOriginatingRecordSynced(t *testing.T) {
	clock := newClock()
	r := openRepos(t, clock)
	fc := &fakeClient{}
	svc := NewSyncService(r.Queue, r.Store, r.Metadata, fc, logging.Nop(), SyncOptions{Now: clock.Now})
	ctx := context.Background()

	id, err := r.Store.Put(ctx, models.CollFarmLogs, models.CachedRecord{Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	tk := task(models.TaskFarmLogCreate, `{}`)
	tk.RecordID = id
	tk.Collection = models.CollFarmLogs
	_, err = svc.Enqueue(ctx, tk)
	require.NoError(t, err)

	_, err = svc.Flush(ctx)
	require.NoError(t, err)

	rec, found, err := r.Store.Get(ctx, models.CollFarmLogs, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rec.Synced)

	last, err := metadata.GetString(ctx, r.Metadata, metadata.KeyLastSyncAt)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Format(time.RFC3339), last)
}

func TestSync_ConcurrentFlushesShareOnePass(t *testing.T) {
	clock := newClock()
	fc := &fakeClient{block: make(chan struct{}), called: make(chan struct{}, 1)}
	svc, _ := newSync(t, clock, fc, 0)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, task(models.TaskFarmLogCreate, `{}`))
	require.NoError(t, err)

	var wg sync.WaitGroup
	reports := make([]FlushReport, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reports[0], _ = svc.Flush(ctx)
	}()
	<-fc.called

	wg.Add(1)
	go func() {
		defer wg.Done()
		reports[1], _ = svc.Flush(ctx)
	}()
	// give the second caller time to join the in-flight pass
	time.Sleep(50 * time.Millisecond)
	close(fc.block)
	wg.Wait()

	assert.Len(t, fc.Calls(), 1)
	assert.Equal(t, 1, reports[0].Delivered)
}

func TestSync_Backoff(t *testing.T) {
	s := NewSyncService(nil, nil, nil, nil, logging.Nop(), SyncOptions{
		BackoffBase: time.Second,
		BackoffCap:  10 * time.Second,
	}).(*syncService)

	tests := []struct {
		attempts int
		min, max time.Duration
	}{
		{1, 800 * time.Millisecond, 1200 * time.Millisecond},
		{2, 1600 * time.Millisecond, 2400 * time.Millisecond},
		{3, 3200 * time.Millisecond, 4800 * time.Millisecond},
		{10, 0, 10 * time.Second},
	}
	for _, tt := range tests {
		d := s.backoff(tt.attempts)
		assert.GreaterOrEqual(t, d, tt.min, "attempts=%d", tt.attempts)
		assert.LessOrEqual(t, d, tt.max, "attempts=%d", tt.attempts)
	}
}
