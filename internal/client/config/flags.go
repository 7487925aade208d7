package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/flagx"
)

var clientFlags = []string{"-a", "-i", "-l", "-d", "-t"}

// parseFlags applies the command-line overrides from os.Args. It panics on a
// malformed value since there is no sensible config to fall back to.
func parseFlags(cfg *Config) {
	if err := applyFlags(cfg, os.Args[1:]); err != nil {
		panic(err)
	}
}

// applyFlags reads the client flags out of args and ignores everything else:
//
//	-a  backend base URL
//	-i  online check interval, whole seconds
//	-l  local proxy listen address
//	-d  local database file
//	-t  sync transport, http or grpc
func applyFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("farmadvisor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	interval := fs.Int("i", int(cfg.OnlineCheckInterval/time.Second), "online check interval in seconds")
	fs.StringVar(&cfg.BackendURL, "a", cfg.BackendURL, "backend base URL")
	fs.StringVar(&cfg.ProxyListenAddr, "l", cfg.ProxyListenAddr, "local proxy listen address")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database file")
	fs.StringVar(&cfg.SyncTransport, "t", cfg.SyncTransport, "sync transport (http|grpc)")

	if err := fs.Parse(flagx.FilterArgs(args, clientFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
	return nil
}
