package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/server/config"
	"github.com/stretchr/testify/assert"
)

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := &config.Config{HTTPAddr: "127.0.0.1:0", GRPCAddr: "127.0.0.1:0", LogFormat: "text", LogLevel: "error"}
	app := NewApp(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Zero(t, app.ledger.Len())
}

func TestRun_StopsWhenListenerFails(t *testing.T) {
	cfg := &config.Config{HTTPAddr: "127.0.0.1:99999", GRPCAddr: "127.0.0.1:0", LogFormat: "text", LogLevel: "error"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewApp(cfg).Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after the HTTP listener failed")
	}
}
