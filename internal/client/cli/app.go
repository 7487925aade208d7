package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/backup"
	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/client/config"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/farmadvisor/internal/client/services"
	"github.com/dmitrijs2005/farmadvisor/internal/client/state"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
	"github.com/dmitrijs2005/farmadvisor/internal/client/voice"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
)

// Backuper uploads a snapshot of the local store.
type Backuper interface {
	Enabled() bool
	Run(ctx context.Context) (backup.Result, error)
}

// StorageInfo describes where the local store keeps its data.
// *store.Repositories implements it.
type StorageInfo interface {
	Persistent() bool
	Path() string
	SchemaVersion() int64
}

// Deps are the collaborators the App drives. Backup, HTTP and Storage may
// be nil.
type Deps struct {
	Config   *config.Config
	State    *state.AppState
	Client   client.Client
	Records  services.RecordService
	Sync     services.SyncService
	Weather  services.WeatherService
	Store    store.Store
	Metadata metadata.Repository
	Backup   Backuper
	Storage  StorageInfo
	// HTTP reaches the backend through the network interceptor.
	HTTP   *http.Client
	Logger logging.Logger
	In     io.Reader
	Out    io.Writer
	Now    func() time.Time
}

type App struct {
	config    *config.Config
	state     *state.AppState
	client    client.Client
	records   services.RecordService
	sync      services.SyncService
	weather   services.WeatherService
	store     store.Store
	meta      metadata.Repository
	backup    Backuper
	storage   StorageInfo
	http      *http.Client
	log       logging.Logger
	reader    *bufio.Reader
	out       io.Writer
	now       func() time.Time
	announcer *voice.Announcer
	voice     *voice.Interpreter
}

func NewApp(d Deps) (*App, error) {
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.HTTP == nil {
		d.HTTP = http.DefaultClient
	}

	a := &App{
		config:  d.Config,
		state:   d.State,
		client:  d.Client,
		records: d.Records,
		sync:    d.Sync,
		weather: d.Weather,
		store:   d.Store,
		meta:    d.Metadata,
		backup:  d.Backup,
		storage: d.Storage,
		http:    d.HTTP,
		log:     d.Logger.With("module", "cli"),
		reader:  bufio.NewReader(d.In),
		out:     &lockedWriter{w: d.Out},
		now:     d.Now,
	}

	a.announcer = voice.NewAnnouncer(&voice.WriterSpeaker{W: a.out}, d.Logger)
	interp, err := voice.NewInterpreter(voice.InterpreterOptions{
		Announcer: a.announcer,
		Handler:   &voiceHandler{app: a},
		Crops:     voice.StoreCrops{Store: d.Store},
		Language:  d.State.Language,
		Logger:    d.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up voice commands: %w", err)
	}
	a.voice = interp

	return a, nil
}

// Run starts the connectivity watcher and blocks in the REPL until the user
// exits or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	fmt.Fprintln(a.out, "Farm advisor client (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out, interactive())

	cancel()
	wg.Wait()
	a.announcer.Stop()
}

func (a *App) getStatus() string {
	s := a.state.Snapshot()
	status := string(s.Mode) + " " + s.Language
	if s.User != "" {
		status = s.User + " " + status
	}
	return "(" + status + ")"
}

// StartOnlineStatusWatcher pings the backend right away and then every
// interval. Going online flushes the sync queue.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	timeout := 3 * time.Second
	if a.config != nil && a.config.RequestTimeout > 0 && a.config.RequestTimeout < timeout {
		timeout = a.config.RequestTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	err := a.client.Ping(pctx)
	cancel()

	if err != nil {
		if ctx.Err() == nil {
			a.state.SetMode(ctx, state.ModeOffline)
		}
		return
	}
	if a.state.SetMode(ctx, state.ModeOnline) {
		a.flush(ctx)
	}
}

func (a *App) flush(ctx context.Context) {
	rep, err := a.sync.Flush(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error(ctx, "sync after reconnect failed", "error", err)
		return
	}
	if rep.Attempted > 0 {
		a.log.Info(ctx, "sync after reconnect", "delivered", rep.Delivered, "failed", rep.Failed, "dead", rep.Dead, "pending", rep.Pending)
	}
}

// lockedWriter serializes command output with announcements printed from the
// announcer goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
