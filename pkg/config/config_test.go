package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Retriever.BufferSize)
	assert.Equal(t, 100000, cfg.Retriever.MaxFacts)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 60*time.Second, cfg.Store.BusyTimeout)
	assert.Equal(t, "data/retriever.mat.vocab", cfg.Retriever.VocabPath())
	assert.Equal(t, "data/retriever.mat.db", cfg.SQLitePath())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retriever.yaml")
	body := []byte(`
retriever:
  file: /tmp/facts.mat
  tokensFile: /tmp/facts.tokens
  workers: 2
store:
  driver: postgres
redis:
  cacheTTL: 5s
`)
	require.NoError(t, os.WriteFile(path, body, 0o644))
	t.Setenv("FR_RETRIEVER_WORKERS", "6")
	t.Setenv("FR_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/facts.mat", cfg.Retriever.File)
	assert.Equal(t, "/tmp/facts.tokens", cfg.Retriever.VocabPath())
	assert.Equal(t, 6, cfg.Retriever.Workers)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 1000, cfg.Retriever.BufferSize, "unset fields keep defaults")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("FR_STORE_DRIVER", "mongo")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
