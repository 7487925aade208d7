package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/farmadvisor/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   HTTP bind address
//	-g string   gRPC bind address
//	-k string   bearer token clients must present
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "HTTP address and port")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "gRPC address and port")
	fs.StringVar(&cfg.AuthToken, "k", cfg.AuthToken, "bearer token required from clients")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
