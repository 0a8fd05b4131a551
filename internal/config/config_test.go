package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `env: test
storage_path: /tmp/test.db
log:
  level: debug
  format: json
backend:
  base_url: https://api.example.com
  api_key: secret
  timeout: 30
server:
  enabled: true
  port: 9000
tracking:
  ingest_buffer_size: 512
sync:
  drain_interval: 120
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "test", cfg.Env)
	require.Equal(t, "/tmp/test.db", cfg.StoragePath)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	require.Equal(t, 30, cfg.Backend.Timeout)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, 512, cfg.Tracking.IngestBufferSize)
	require.Equal(t, 120, cfg.Sync.DrainInterval)
	// Unset fields fall back to defaults
	require.Equal(t, 100, cfg.Sync.BatchSize)
	require.Equal(t, 168, cfg.Sync.MaxItemAgeHours)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig("does-not-exist.yaml")
	require.Error(t, err)
}
