// Package server runs a development sync backend: the JSON API and the gRPC
// sync service, both applying writes to one in-memory ledger.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"github.com/dmitrijs2005/farmadvisor/internal/server/config"
	"github.com/dmitrijs2005/farmadvisor/internal/server/httpapi"
	"github.com/dmitrijs2005/farmadvisor/internal/server/ledger"

	gs "github.com/dmitrijs2005/farmadvisor/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	ledger *ledger.Ledger
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		logger: logging.New(logging.Options{Format: c.LogFormat, Level: c.LogLevel}),
		ledger: ledger.New(time.Now),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.ledger, app.config.AuthToken)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           httpapi.NewRouter(app.ledger, httpapi.Options{AuthToken: app.config.AuthToken, Logger: app.logger}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until a signal arrives or ctx is cancelled.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting sync backend...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	wg.Wait()

	app.logger.Info(ctx, "Sync backend stopped", "applied", app.ledger.Len())
}
