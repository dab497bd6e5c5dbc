package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"port": 8000, "database": {"host": "localhost", "port": 5432, "user": "u", "password": "p", "db_name": "d"}}`))
	require.NoError(t, err)
	require.Equal(t, 1000, cfg.Ingest.ChunkSize)
	require.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	require.Equal(t, 64, cfg.Ingest.EmbedBatchSize)
	require.Equal(t, 3, cfg.Podcast.MaxVersions)
	require.Equal(t, 120, cfg.Provider.TimeoutSeconds)
	require.Equal(t, "storage/uploads", cfg.Storage.UploadDir)
	require.Equal(t, "storage/audio", cfg.Storage.AudioDir)
	require.Equal(t, "local", cfg.Storage.Type)
	require.Equal(t, "info", cfg.LogConfig.Level)
}

func TestLoadRequiresPort(t *testing.T) {
	_, err := Load(writeConfig(t, `{"database": {"dsn": "postgres://x"}}`))
	require.Error(t, err)
}

func TestLoadRequiresDatabase(t *testing.T) {
	_, err := Load(writeConfig(t, `{"port": 8000}`))
	require.Error(t, err)
}

func TestLoadClampsOverlapLargerThanChunk(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"port": 8000, "database": {"dsn": "postgres://x"}, "ingest": {"chunk_size": 100, "chunk_overlap": 150}}`))
	require.NoError(t, err)
	require.Equal(t, 20, cfg.Ingest.ChunkOverlap)
}
