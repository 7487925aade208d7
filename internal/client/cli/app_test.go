package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/backup"
	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/client/config"
	"github.com/dmitrijs2005/farmadvisor/internal/client/interceptor"
	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/farmadvisor/internal/client/services"
	"github.com/dmitrijs2005/farmadvisor/internal/client/state"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

/***** fakes *****/

type fakeClient struct {
	mu      sync.Mutex
	online  bool
	pings   int
	submits []string
}

func (f *fakeClient) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if !f.online {
		return client.ErrUnavailable
	}
	return nil
}

func (f *fakeClient) SubmitTask(ctx context.Context, key string, sub models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return client.ErrUnavailable
	}
	f.submits = append(f.submits, sub.Type)
	return nil
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) setOnline(v bool) {
	f.mu.Lock()
	f.online = v
	f.mu.Unlock()
}

func (f *fakeClient) Pings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeClient) Submits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submits...)
}

type fakeBackup struct {
	enabled bool
	err     error
}

func (f fakeBackup) Enabled() bool { return f.enabled }
func (f fakeBackup) Run(ctx context.Context) (backup.Result, error) {
	return backup.Result{Bucket: "farm", Key: "backups/x.db", Size: 4096}, f.err
}

type fakeStorage struct {
	path    string
	version int64
}

func (f fakeStorage) Persistent() bool     { return f.path != "" }
func (f fakeStorage) Path() string         { return f.path }
func (f fakeStorage) SchemaVersion() int64 { return f.version }

/***** harness *****/

// cachedHTTP routes the app's backend calls through the request cache, the
// way the client binary wires them.
func (h *harness) cachedHTTP(backend *httptest.Server) {
	h.app.http = &http.Client{Transport: interceptor.New(h.repos.Cache,
		interceptor.WithTransport(backend.Client().Transport),
		interceptor.WithClock(func() time.Time { return testNow }),
	)}
}

type harness struct {
	app    *App
	out    *bytes.Buffer
	client *fakeClient
	repos  *store.Repositories
	state  *state.AppState
}

var testNow = time.Date(2025, 7, 14, 6, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, input string, backend *httptest.Server) *harness {
	t.Helper()
	ctx := context.Background()

	repos, err := store.OpenMemory(ctx, store.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	cfg := &config.Config{OnlineCheckInterval: 10 * time.Millisecond, RequestTimeout: time.Second, BackendURL: "http://127.0.0.1:1", SyncTransport: "http"}
	httpClient := http.DefaultClient
	if backend != nil {
		cfg.BackendURL = backend.URL
		httpClient = backend.Client()
	}

	fc := &fakeClient{}
	st := state.New(repos.Metadata, "en", nil)
	log := logging.Nop()
	now := func() time.Time { return testNow }

	syncSvc := services.NewSyncService(repos.Queue, repos.Store, repos.Metadata, fc, log, services.SyncOptions{MaxAttempts: 3, Now: now})
	out := &bytes.Buffer{}
	app, err := NewApp(Deps{
		Config:   cfg,
		State:    st,
		Client:   fc,
		Records:  services.NewRecordService(repos.Store, syncSvc, fc, st, log, now),
		Sync:     syncSvc,
		Weather:  services.NewWeatherService(repos.Store, 30*time.Minute, now),
		Store:    repos.Store,
		Metadata: repos.Metadata,
		HTTP:     httpClient,
		Logger:   log,
		In:       strings.NewReader(input),
		Out:      out,
		Now:      now,
	})
	require.NoError(t, err)
	t.Cleanup(app.announcer.Stop)

	return &harness{app: app, out: out, client: fc, repos: repos, state: st}
}

/***** connectivity *****/

func TestStartOnlineStatusWatcher_FlushesOnReconnect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, "", nil)
	ctx := context.Background()

	_, err := h.app.records.SaveFarmLog(ctx, &models.FarmLog{Date: "2025-07-14", Water: 10})
	require.NoError(t, err)

	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.app.StartOnlineStatusWatcher(wctx, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return h.client.Pings() >= 2 }, time.Second, time.Millisecond)
	assert.False(t, h.state.IsOnline())

	h.client.setOnline(true)
	require.Eventually(t, func() bool { return len(h.client.Submits()) == 1 }, time.Second, time.Millisecond)
	assert.True(t, h.state.IsOnline())

	stats, err := h.app.sync.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)

	h.client.setOnline(false)
	require.Eventually(t, func() bool { return !h.state.IsOnline() }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestGetStatus(t *testing.T) {
	h := newHarness(t, "", nil)
	assert.Equal(t, "(offline en)", h.app.getStatus())

	require.NoError(t, h.state.SetUser(context.Background(), "ravi"))
	h.state.SetMode(context.Background(), state.ModeOnline)
	assert.Equal(t, "(ravi online en)", h.app.getStatus())
}

/***** records *****/

func TestLogActivity_QueuedWhileOffline(t *testing.T) {
	h := newHarness(t, strings.Join([]string{
		"",            // date: today
		"rice",        // crop
		"weeding",     // activity
		"120",         // water
		"",            // fertilizer
		"",            // pesticide
		"y",           // rotation
		"hand weeded", // notes
		"",
	}, "\n"), nil)
	ctx := context.Background()

	require.NoError(t, h.app.LogActivity(ctx))
	assert.Contains(t, h.out.String(), "(queued for sync)")

	logs, err := store.GetAllTyped[models.FarmLog](ctx, h.repos.Store)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "2025-07-14", logs[0].Date)
	assert.Equal(t, "rice", logs[0].Crop)
	assert.Equal(t, 120.0, logs[0].Water)
	assert.True(t, logs[0].Rotation)
	assert.Equal(t, "hand weeded", logs[0].Notes)
}

func TestAddSoilSample_SyncedWhenOnline(t *testing.T) {
	h := newHarness(t, "north plot\nwheat\n6.5\n280\n\n\n\n", nil)
	h.client.setOnline(true)
	h.state.SetMode(context.Background(), state.ModeOnline)

	require.NoError(t, h.app.AddSoilSample(context.Background()))
	assert.Contains(t, h.out.String(), "(synced)")
	assert.Equal(t, []string{models.TaskSoilSampleCreate}, h.client.Submits())
}

func TestAddSoilSample_ValidationError(t *testing.T) {
	h := newHarness(t, "\nwheat\n6.5\n\n\n\n\n", nil)
	err := h.app.AddSoilSample(context.Background())
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestListShowDelete(t *testing.T) {
	h := newHarness(t, "", nil)
	ctx := context.Background()

	res, err := h.app.records.SaveFarmLog(ctx, &models.FarmLog{Date: "2025-07-13", Crop: "rice"})
	require.NoError(t, err)

	require.NoError(t, h.app.List(ctx, nil))
	assert.Contains(t, h.out.String(), res.ID)
	assert.Contains(t, h.out.String(), "2025-07-13")

	h.out.Reset()
	require.NoError(t, h.app.List(ctx, []string{"cropDatabase"}))
	assert.Contains(t, h.out.String(), "static")

	h.out.Reset()
	require.NoError(t, h.app.Show(ctx, []string{"farmLogs", res.ID}))
	assert.Contains(t, h.out.String(), `"crop": "rice"`)

	require.NoError(t, h.app.Delete(ctx, []string{"farmLogs", res.ID}))
	assert.ErrorIs(t, h.app.Show(ctx, []string{"farmLogs", res.ID}), store.ErrNotFound)

	assert.Error(t, h.app.List(ctx, []string{"nope"}))
	assert.Error(t, h.app.Show(ctx, []string{"farmLogs"}))
}

/***** sync and settings *****/

func TestSyncRequeueStatus(t *testing.T) {
	h := newHarness(t, "", nil)
	ctx := context.Background()

	_, err := h.app.records.SaveFarmLog(ctx, &models.FarmLog{Date: "2025-07-13"})
	require.NoError(t, err)

	require.NoError(t, h.app.Sync(ctx))
	assert.Contains(t, h.out.String(), "Backend unavailable")

	h.out.Reset()
	require.NoError(t, h.app.Status(ctx))
	out := h.out.String()
	assert.Contains(t, out, "Mode:      offline")
	assert.Contains(t, out, "Queue:     1 pending, 0 gave up")
	assert.Contains(t, out, "Last sync: never")

	h.client.setOnline(true)
	h.out.Reset()
	require.NoError(t, h.app.Sync(ctx))
	assert.Contains(t, h.out.String(), "Delivered 1")

	h.out.Reset()
	require.NoError(t, h.app.Status(ctx))
	assert.NotContains(t, h.out.String(), "Last sync: never")

	h.out.Reset()
	require.NoError(t, h.app.Requeue(ctx))
	assert.Contains(t, h.out.String(), "Requeued 0 task(s)")
}

func TestLanguageAndUser(t *testing.T) {
	h := newHarness(t, "", nil)
	ctx := context.Background()

	require.NoError(t, h.app.Language(ctx, nil))
	assert.Contains(t, h.out.String(), "Language: en")

	require.NoError(t, h.app.Language(ctx, []string{"HI"}))
	assert.Equal(t, "hi", h.state.Language())
	assert.ErrorContains(t, h.app.Language(ctx, []string{"fr"}), "unsupported language")

	require.NoError(t, h.app.User(ctx, []string{"Ravi", "Kumar"}))
	assert.Equal(t, "Ravi Kumar", h.state.User())
	assert.Error(t, h.app.User(ctx, nil))

	require.NoError(t, h.app.User(ctx, []string{"-"}))
	assert.Empty(t, h.state.User())
	assert.Contains(t, h.out.String(), "Signed out")
	stored, err := h.repos.Metadata.Get(ctx, metadata.KeyCurrentUser)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestBackupCommand(t *testing.T) {
	h := newHarness(t, "", nil)
	ctx := context.Background()

	require.NoError(t, h.app.Backup(ctx))
	assert.Contains(t, h.out.String(), "not configured")

	h.app.backup = fakeBackup{enabled: true}
	h.out.Reset()
	require.NoError(t, h.app.Backup(ctx))
	assert.Contains(t, h.out.String(), "s3://farm/backups/x.db")

	h.app.backup = fakeBackup{enabled: true, err: errors.New("denied")}
	assert.ErrorContains(t, h.app.Backup(ctx), "denied")
}

/***** voice *****/

func TestVoice_IntentWithCrop(t *testing.T) {
	h := newHarness(t, "", nil)
	ctx := context.Background()

	require.NoError(t, h.app.Voice(ctx, "rice fertilizer"))
	out := h.out.String()
	assert.Contains(t, out, "[en] Here is fertilizer advice. Crop: rice.")
	assert.Equal(t, "fertilizer", h.state.View())
}

func TestVoice_HindiCropInfo(t *testing.T) {
	h := newHarness(t, "", nil)
	ctx := context.Background()
	require.NoError(t, h.state.SetLanguage(ctx, "hi"))

	require.NoError(t, h.app.Voice(ctx, "चावल"))
	out := h.out.String()
	assert.Contains(t, out, "[hi] चावल")
	assert.Contains(t, out, "rice: season")
	assert.Equal(t, "crops", h.state.View())
}

func TestVoice_RecognitionErrorIsReported(t *testing.T) {
	h := newHarness(t, "", nil)
	require.NoError(t, h.app.Voice(context.Background(), "!no-speech"))
	assert.Contains(t, h.out.String(), "I did not hear anything")
}

func TestVoice_FreeTextGoesToChat(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(chatResponse{Reply: "You said: " + req.Message})
	}))
	defer backend.Close()

	h := newHarness(t, "", backend)
	require.NoError(t, h.app.Voice(context.Background(), "xyz abc"))
	out := h.out.String()
	assert.Contains(t, out, "[en] You said: xyz abc")
	assert.Equal(t, "chat", h.state.View())
}

func TestVoice_MarketThroughBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"crop":"` + r.URL.Query().Get("crop") + `","price":2300}`))
	}))
	defer backend.Close()

	h := newHarness(t, "", backend)
	require.NoError(t, h.app.Voice(context.Background(), "onion price"))
	assert.Contains(t, h.out.String(), `{"crop":"onion","price":2300}`)
	assert.Equal(t, "market", h.state.View())
}

func TestVoice_PestAndIrrigationUseReferenceData(t *testing.T) {
	h := newHarness(t, "", nil)
	ctx := context.Background()

	require.NoError(t, h.app.Voice(ctx, "rice pest"))
	assert.Contains(t, h.out.String(), "Treatment:")

	h.out.Reset()
	require.NoError(t, h.app.Voice(ctx, "wheat irrigation"))
	assert.Contains(t, h.out.String(), "wheat water need:")
}

func TestStatus_ReportsStorage(t *testing.T) {
	h := newHarness(t, "", nil)
	ctx := context.Background()

	h.app.storage = h.repos
	require.NoError(t, h.app.Status(ctx))
	assert.Contains(t, h.out.String(), "Storage:   memory only, changes are lost on exit")

	h.app.storage = fakeStorage{path: "/var/lib/farm/farm.db", version: 3}
	h.out.Reset()
	require.NoError(t, h.app.Status(ctx))
	assert.Contains(t, h.out.String(), "Storage:   /var/lib/farm/farm.db (schema v3)")
}

func weatherBackend(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/weather" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		*hits++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.WeatherSnapshot{
			Location:     r.URL.Query().Get("location"),
			TemperatureC: 31,
			Humidity:     70,
			RainfallMM:   4,
			Condition:    "light rain",
		})
	}))
}

func TestVoice_WeatherIsFetchedOnceAndKept(t *testing.T) {
	hits := 0
	backend := weatherBackend(t, &hits)
	h := newHarness(t, "", backend)
	h.cachedHTTP(backend)
	ctx := context.Background()

	require.NoError(t, h.app.Voice(ctx, "weather"))
	assert.Contains(t, h.out.String(), "default: light rain, 31.0°C, humidity 70%, rain 4.0 mm")
	assert.Equal(t, "weather", h.state.View())

	snap, found, err := store.GetTyped[models.WeatherSnapshot](ctx, h.repos.Store, "default")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, testNow.Equal(snap.CapturedAt))

	backend.Close()
	h.out.Reset()
	require.NoError(t, h.app.Voice(ctx, "weather"))
	assert.Contains(t, h.out.String(), "default: light rain, 31.0°C")
	assert.Equal(t, 1, hits)
}

func TestVoice_WeatherOfflineWithNothingSaved(t *testing.T) {
	backend := weatherBackend(t, new(int))
	h := newHarness(t, "", backend)
	h.cachedHTTP(backend)
	backend.Close()

	require.NoError(t, h.app.Voice(context.Background(), "weather"))
	assert.Contains(t, h.out.String(), "No recent weather for default")
}

func TestVoice_MarketLabelsCachedAndMissingPrices(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"crop":"` + r.URL.Query().Get("crop") + `","price":1800}`))
	}))
	h := newHarness(t, "", backend)
	h.cachedHTTP(backend)
	ctx := context.Background()

	require.NoError(t, h.app.Voice(ctx, "onion price"))
	assert.NotContains(t, h.out.String(), "offline")

	backend.Close()
	h.out.Reset()
	require.NoError(t, h.app.Voice(ctx, "onion price"))
	out := h.out.String()
	assert.Contains(t, out, "(offline, cached prices from 0s ago)")
	assert.Contains(t, out, `{"crop":"onion","price":1800}`)

	h.out.Reset()
	require.NoError(t, h.app.Voice(ctx, "wheat price"))
	out = h.out.String()
	assert.Contains(t, out, "Market prices are not available offline.")
	assert.NotContains(t, out, "cached prices")
}
