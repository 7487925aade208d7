package config

import (
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

// Config holds runtime settings for the farmadvisor client.
//
// Durations are time.Duration values; file sources spell them as "30m" or
// integer nanoseconds (see timex.Duration).
type Config struct {
	// BackendURL is the base URL of the recommendation backend. The local
	// proxy forwards to it and the HTTP sync transport posts to it.
	BackendURL string
	// SyncTransport is "http" or "grpc".
	SyncTransport string
	// SyncGRPCAddr is host:port of the gRPC sync service.
	SyncGRPCAddr string
	AuthToken    string

	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration

	ProxyListenAddr string
	// UIOrigin is allowed by the proxy's CORS policy.
	UIOrigin string

	DBPath   string
	Language string

	LogFormat string
	LogLevel  string

	SyncMaxAttempts int
	SyncBackoffBase time.Duration
	SyncBackoffCap  time.Duration

	CacheTTL CacheTTL

	Backup BackupConfig
}

// CacheTTL holds the freshness window of each cache category.
type CacheTTL struct {
	Weather      time.Duration
	Reference    time.Duration
	Market       time.Duration
	Translations time.Duration
	Shell        time.Duration
	Default      time.Duration
}

// ByCategory returns the windows keyed by cache category.
func (t CacheTTL) ByCategory() map[models.CacheCategory]time.Duration {
	return map[models.CacheCategory]time.Duration{
		models.CategoryWeather:      t.Weather,
		models.CategoryReference:    t.Reference,
		models.CategoryMarket:       t.Market,
		models.CategoryTranslations: t.Translations,
		models.CategoryShell:        t.Shell,
		models.CategoryDefault:      t.Default,
	}
}

// BackupConfig points at an S3-compatible bucket. Backups are disabled while
// Bucket is empty.
type BackupConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether a bucket is configured.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:8080"
	c.SyncTransport = "http"
	c.SyncGRPCAddr = "127.0.0.1:50051"
	c.AuthToken = ""

	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second

	c.ProxyListenAddr = "127.0.0.1:8787"
	c.UIOrigin = "http://localhost:3000"

	c.DBPath = "farmadvisor.db"
	c.Language = "en"

	c.LogFormat = "text"
	c.LogLevel = "info"

	c.SyncMaxAttempts = 8
	c.SyncBackoffBase = 2 * time.Second
	c.SyncBackoffCap = 10 * time.Minute

	c.CacheTTL = CacheTTL{
		Weather:      30 * time.Minute,
		Reference:    24 * time.Hour,
		Market:       time.Hour,
		Translations: 7 * 24 * time.Hour,
		Shell:        24 * time.Hour,
		Default:      5 * time.Minute,
	}

	c.Backup = BackupConfig{Region: "us-east-1", Prefix: "backups/"}
}

// SyncEndpoint returns the endpoint for the configured sync transport.
func (c *Config) SyncEndpoint() string {
	if c.SyncTransport == "grpc" {
		return c.SyncGRPCAddr
	}
	return c.BackendURL
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present), the environment, and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
