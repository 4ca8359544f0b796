package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "/data", cfg.Store.BaseDir)
	assert.Equal(t, int64(100*1024*1024), cfg.Store.MaxFileSize)
	assert.Equal(t, 100, cfg.Store.CacheSize)
	assert.Equal(t, 5*time.Minute, cfg.Store.CacheTTL)
	assert.Equal(t, 10, cfg.Store.PersistEvery)
	assert.True(t, cfg.Store.Versioning)
	assert.Equal(t, 30, cfg.Store.ArchiveRetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("VAULT_BASE_DIR", "/srv/vault")
	t.Setenv("VAULT_CACHE_TTL", "90s")
	t.Setenv("VAULT_VERSIONING", "false")
	t.Setenv("RATE_LIMIT_RPS", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "/srv/vault", cfg.Store.BaseDir)
	assert.Equal(t, 90*time.Second, cfg.Store.CacheTTL)
	assert.False(t, cfg.Store.Versioning)
	assert.Equal(t, 25, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("VAULT_CACHE_SIZE", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestApplyFileOverlaysEnvironment(t *testing.T) {
	t.Setenv("PORT", "9100")
	cfg, err := Load()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vault.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  base_dir: /mnt/storage
  cache_size: 42
logging:
  level: debug
`), 0o644))

	require.NoError(t, cfg.ApplyFile(path))

	// File values win where present.
	assert.Equal(t, "/mnt/storage", cfg.Store.BaseDir)
	assert.Equal(t, 42, cfg.Store.CacheSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Environment survives where the file is silent.
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.True(t, cfg.Store.Versioning)
}

func TestApplyFileMissing(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.ApplyFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestApplyFileMalformedYAML(t *testing.T) {
	cfg := Default()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - ]["), 0o644))
	assert.Error(t, cfg.ApplyFile(path))
}

func TestArchiveRetention(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 30*24*time.Hour, cfg.ArchiveRetention())
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("VAULT_MAX_FILE_SIZE", "garbage")
	cfg := LoadOrDefault()
	assert.Equal(t, Default(), cfg)
}
