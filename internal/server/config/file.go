package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/farmadvisor/internal/flagx"
	"gopkg.in/yaml.v3"
)

// FileConfig is the DTO for config files.
type FileConfig struct {
	HTTPAddr  string `json:"http_addr" yaml:"http_addr"`
	GRPCAddr  string `json:"grpc_addr" yaml:"grpc_addr"`
	AuthToken string `json:"auth_token" yaml:"auth_token"`
	LogFormat string `json:"log_format" yaml:"log_format"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config. A file that
// cannot be read or decoded panics.
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
	for _, f := range []struct {
		dst *string
		v   string
	}{
		{&cfg.HTTPAddr, fc.HTTPAddr},
		{&cfg.GRPCAddr, fc.GRPCAddr},
		{&cfg.AuthToken, fc.AuthToken},
		{&cfg.LogFormat, fc.LogFormat},
		{&cfg.LogLevel, fc.LogLevel},
	} {
		if f.v != "" {
			*f.dst = f.v
		}
	}
}
