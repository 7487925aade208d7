package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/flagx"
	"github.com/dmitrijs2005/farmadvisor/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the DTO for config files. Pointer-free fields overlay the
// runtime Config only when set, so a partial file keeps the defaults.
type FileConfig struct {
	BackendURL          string         `json:"backend_url" yaml:"backend_url"`
	SyncTransport       string         `json:"sync_transport" yaml:"sync_transport"`
	SyncGRPCAddr        string         `json:"sync_grpc_addr" yaml:"sync_grpc_addr"`
	AuthToken           string         `json:"auth_token" yaml:"auth_token"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	ProxyListenAddr     string         `json:"proxy_listen_addr" yaml:"proxy_listen_addr"`
	UIOrigin            string         `json:"ui_origin" yaml:"ui_origin"`
	DBPath              string         `json:"db_path" yaml:"db_path"`
	Language            string         `json:"language" yaml:"language"`
	LogFormat           string         `json:"log_format" yaml:"log_format"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`

	Sync struct {
		MaxAttempts int            `json:"max_attempts" yaml:"max_attempts"`
		BackoffBase timex.Duration `json:"backoff_base" yaml:"backoff_base"`
		BackoffCap  timex.Duration `json:"backoff_cap" yaml:"backoff_cap"`
	} `json:"sync" yaml:"sync"`

	CacheTTL struct {
		Weather      timex.Duration `json:"weather" yaml:"weather"`
		Reference    timex.Duration `json:"reference" yaml:"reference"`
		Market       timex.Duration `json:"market" yaml:"market"`
		Translations timex.Duration `json:"translations" yaml:"translations"`
		Shell        timex.Duration `json:"shell" yaml:"shell"`
		Default      timex.Duration `json:"default" yaml:"default"`
	} `json:"cache_ttl" yaml:"cache_ttl"`

	Backup struct {
		Endpoint  string `json:"endpoint" yaml:"endpoint"`
		Region    string `json:"region" yaml:"region"`
		Bucket    string `json:"bucket" yaml:"bucket"`
		Prefix    string `json:"prefix" yaml:"prefix"`
		AccessKey string `json:"access_key" yaml:"access_key"`
		SecretKey string `json:"secret_key" yaml:"secret_key"`
	} `json:"backup" yaml:"backup"`
}

// parseFile overlays cfg with values from the file named by -c/-config.
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
// Read or decode errors panic, like the flag parser.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFromOS()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc, err := decodeFile(path, data)
	if err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

func decodeFile(path string, data []byte) (*FileConfig, error) {
	var fc FileConfig

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse json config %s: %w", path, err)
		}
	}
	return &fc, nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.BackendURL, fc.BackendURL)
	setString(&cfg.SyncTransport, fc.SyncTransport)
	setString(&cfg.SyncGRPCAddr, fc.SyncGRPCAddr)
	setString(&cfg.AuthToken, fc.AuthToken)
	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	setDuration(&cfg.RequestTimeout, fc.RequestTimeout)
	setString(&cfg.ProxyListenAddr, fc.ProxyListenAddr)
	setString(&cfg.UIOrigin, fc.UIOrigin)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.Language, fc.Language)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.Sync.MaxAttempts > 0 {
		cfg.SyncMaxAttempts = fc.Sync.MaxAttempts
	}
	setDuration(&cfg.SyncBackoffBase, fc.Sync.BackoffBase)
	setDuration(&cfg.SyncBackoffCap, fc.Sync.BackoffCap)

	setDuration(&cfg.CacheTTL.Weather, fc.CacheTTL.Weather)
	setDuration(&cfg.CacheTTL.Reference, fc.CacheTTL.Reference)
	setDuration(&cfg.CacheTTL.Market, fc.CacheTTL.Market)
	setDuration(&cfg.CacheTTL.Translations, fc.CacheTTL.Translations)
	setDuration(&cfg.CacheTTL.Shell, fc.CacheTTL.Shell)
	setDuration(&cfg.CacheTTL.Default, fc.CacheTTL.Default)

	setString(&cfg.Backup.Endpoint, fc.Backup.Endpoint)
	setString(&cfg.Backup.Region, fc.Backup.Region)
	setString(&cfg.Backup.Bucket, fc.Backup.Bucket)
	setString(&cfg.Backup.Prefix, fc.Backup.Prefix)
	setString(&cfg.Backup.AccessKey, fc.Backup.AccessKey)
	setString(&cfg.Backup.SecretKey, fc.Backup.SecretKey)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
