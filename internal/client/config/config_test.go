package config

import (
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.BackendURL)
	assert.Equal(t, "http", c.SyncTransport)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, 8, c.SyncMaxAttempts)
	assert.Equal(t, 30*time.Minute, c.CacheTTL.Weather)
	assert.Equal(t, 7*24*time.Hour, c.CacheTTL.Translations)
	assert.False(t, c.Backup.Enabled())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "127.0.0.1:8787", cfg.ProxyListenAddr)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTemp(t, "cfg.yaml", "backend_url: http://file:1\ndb_path: /from/file.db\nlanguage: hi\n")
	t.Setenv("FARM_DB_PATH", "/from/env.db")
	t.Setenv("FARM_LANGUAGE", "ta")

	os.Args = []string{"testbin", "-c", path, "-d", "/from/flag.db"}
	cfg := LoadConfig()

	assert.Equal(t, "http://file:1", cfg.BackendURL)
	assert.Equal(t, "ta", cfg.Language)
	assert.Equal(t, "/from/flag.db", cfg.DBPath)
}

func TestCacheTTL_ByCategory(t *testing.T) {
	var c Config
	c.LoadDefaults()

	m := c.CacheTTL.ByCategory()
	assert.Len(t, m, 6)
	assert.Equal(t, 30*time.Minute, m[models.CategoryWeather])
	assert.Equal(t, 5*time.Minute, m[models.CategoryDefault])
}

func TestSyncEndpoint(t *testing.T) {
	var c Config
	c.LoadDefaults()
	assert.Equal(t, c.BackendURL, c.SyncEndpoint())

	c.SyncTransport = "grpc"
	assert.Equal(t, c.SyncGRPCAddr, c.SyncEndpoint())
}
