package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServeConfigDefaults(t *testing.T) {
	cfg, err := loadServeConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "distillery-data", cfg.DB)
	assert.Equal(t, 1, cfg.MaxConcurrent)
}

func TestLoadServeConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9090"
db: /var/lib/distillery
max_concurrent: 4
ai:
  provider: openai
  host: https://api.openai.com
  model: gpt-4o-mini
  api_key: sk-test
`), 0o600))

	cfg, err := loadServeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "/var/lib/distillery", cfg.DB)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
}

func TestLoadServeConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: elsewhere\n"), 0o600))

	cfg, err := loadServeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", cfg.DB)
	assert.Equal(t, ":8080", cfg.Listen)
}

func TestLoadServeConfigErrors(t *testing.T) {
	_, err := loadServeConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))
	_, err = loadServeConfig(path)
	assert.Error(t, err)
}
