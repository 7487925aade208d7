// Package config handles configuration for the development sync backend:
// defaults, an optional JSON or YAML file, then command-line flags.
package config

// Config holds runtime settings for the sync backend.
//
// Fields:
//   - HTTPAddr: bind address of the JSON API (/api/ping, /api/sync/tasks).
//   - GRPCAddr: bind address of the gRPC sync service.
//   - AuthToken: bearer token required from clients; empty disables auth.
//   - LogFormat / LogLevel: passed to logging.New.
type Config struct {
	HTTPAddr  string
	GRPCAddr  string
	AuthToken string
	LogFormat string
	LogLevel  string
}

// LoadDefaults populates Config with development defaults matching the
// client's defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = "127.0.0.1:8080"
	c.GRPCAddr = "127.0.0.1:50051"
	c.AuthToken = ""
	c.LogFormat = "json"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
