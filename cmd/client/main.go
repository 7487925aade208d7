package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/backup"
	"github.com/dmitrijs2005/farmadvisor/internal/client/cli"
	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/client/config"
	"github.com/dmitrijs2005/farmadvisor/internal/client/interceptor"
	"github.com/dmitrijs2005/farmadvisor/internal/client/services"
	"github.com/dmitrijs2005/farmadvisor/internal/client/state"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	logger := logging.New(logging.Options{Format: cfg.LogFormat, Level: cfg.LogLevel})

	repos, err := store.OpenOrFallback(ctx, cfg.DBPath, store.WithLogger(logger))
	if repos == nil {
		return err
	}
	defer repos.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning: local database unavailable, changes will not survive a restart")
	}

	c, err := client.New(client.Options{
		Transport: cfg.SyncTransport,
		Endpoint:  cfg.SyncEndpoint(),
		AuthToken: cfg.AuthToken,
	}, cfg.RequestTimeout)
	if err != nil {
		return err
	}
	defer c.Close()

	st := state.New(repos.Metadata, cfg.Language, logger)
	if err := st.Load(ctx); err != nil {
		return err
	}

	syncSvc := services.NewSyncService(repos.Queue, repos.Store, repos.Metadata, c, logger, services.SyncOptions{
		MaxAttempts: cfg.SyncMaxAttempts,
		BackoffBase: cfg.SyncBackoffBase,
		BackoffCap:  cfg.SyncBackoffCap,
	})

	ic := interceptor.New(repos.Cache,
		interceptor.WithTTLs(cfg.CacheTTL.ByCategory()),
		interceptor.WithReference(interceptor.StoreReference{Store: repos.Store}),
		interceptor.WithTimeout(cfg.RequestTimeout),
		interceptor.WithLogger(logger),
		interceptor.WithFailureHook(func(ctx context.Context, err error) {
			st.SetMode(ctx, state.ModeOffline)
		}),
	)

	backend, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend url %q: %w", cfg.BackendURL, err)
	}
	proxy := &http.Server{
		Addr: cfg.ProxyListenAddr,
		Handler: interceptor.NewProxy(backend, ic, interceptor.ProxyOptions{
			AllowedOrigins: []string{cfg.UIOrigin},
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info(ctx, "proxy listening", "addr", cfg.ProxyListenAddr, "backend", cfg.BackendURL)
		if err := proxy.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "proxy stopped", "error", err)
		}
	}()

	app, err := cli.NewApp(cli.Deps{
		Config:   cfg,
		State:    st,
		Client:   c,
		Records:  services.NewRecordService(repos.Store, syncSvc, c, st, logger, time.Now),
		Sync:     syncSvc,
		Weather:  services.NewWeatherService(repos.Store, cfg.CacheTTL.Weather, time.Now),
		Store:    repos.Store,
		Metadata: repos.Metadata,
		Storage:  repos,
		Backup:   backup.New(cfg.Backup, repos.DB(), logger, time.Now),
		HTTP:     &http.Client{Transport: ic},
		Logger:   logger,
		In:       os.Stdin,
		Out:      os.Stdout,
	})
	if err != nil {
		return err
	}

	app.Run(ctx)

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return proxy.Shutdown(sctx)
}
