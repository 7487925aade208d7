package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable the client reads.
const EnvPrefix = "FARM_"

// parseEnv loads .env from the working directory when present and overlays
// cfg with FARM_* variables. Variables already set in the process
// environment win over .env entries. Malformed numbers and durations panic.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	envString(&cfg.BackendURL, "BACKEND_URL")
	envString(&cfg.SyncTransport, "SYNC_TRANSPORT")
	envString(&cfg.SyncGRPCAddr, "SYNC_GRPC_ADDR")
	envString(&cfg.AuthToken, "AUTH_TOKEN")
	envDuration(&cfg.OnlineCheckInterval, "ONLINE_CHECK_INTERVAL")
	envDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	envString(&cfg.ProxyListenAddr, "PROXY_LISTEN_ADDR")
	envString(&cfg.UIOrigin, "UI_ORIGIN")
	envString(&cfg.DBPath, "DB_PATH")
	envString(&cfg.Language, "LANGUAGE")
	envString(&cfg.LogFormat, "LOG_FORMAT")
	envString(&cfg.LogLevel, "LOG_LEVEL")

	envInt(&cfg.SyncMaxAttempts, "SYNC_MAX_ATTEMPTS")
	envDuration(&cfg.SyncBackoffBase, "SYNC_BACKOFF_BASE")
	envDuration(&cfg.SyncBackoffCap, "SYNC_BACKOFF_CAP")

	envDuration(&cfg.CacheTTL.Weather, "TTL_WEATHER")
	envDuration(&cfg.CacheTTL.Reference, "TTL_REFERENCE")
	envDuration(&cfg.CacheTTL.Market, "TTL_MARKET")
	envDuration(&cfg.CacheTTL.Translations, "TTL_TRANSLATIONS")
	envDuration(&cfg.CacheTTL.Shell, "TTL_SHELL")
	envDuration(&cfg.CacheTTL.Default, "TTL_DEFAULT")

	envString(&cfg.Backup.Endpoint, "S3_ENDPOINT")
	envString(&cfg.Backup.Region, "S3_REGION")
	envString(&cfg.Backup.Bucket, "S3_BUCKET")
	envString(&cfg.Backup.Prefix, "S3_PREFIX")
	envString(&cfg.Backup.AccessKey, "S3_ACCESS_KEY")
	envString(&cfg.Backup.SecretKey, "S3_SECRET_KEY")
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, name string) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envDuration(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
