package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Point at a nonexistent file so only defaults apply.
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "~/.config/codescout/index", cfg.Index.Path)
	assert.Equal(t, 1000, cfg.Indexing.ChunkSize)
	assert.Equal(t, 100, cfg.Indexing.ChunkOverlap)
	assert.Equal(t, 100, cfg.Indexing.BatchSize)
	assert.Equal(t, int64(1024*1024), cfg.Indexing.MaxFileSize)
	assert.Equal(t, float32(0.3), cfg.Search.MinScore)
	assert.Equal(t, 5, cfg.Search.Limit)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Contains(t, cfg.Indexing.Extensions, ".go")
	assert.Contains(t, cfg.Indexing.IgnorePatterns, "node_modules/")
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
source:
  folder: /srv/repos
indexing:
  chunk_size: 500
  chunk_overlap: 50
search:
  min_score: 0.4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/repos", cfg.Source.Folder)
	assert.Equal(t, 500, cfg.Indexing.ChunkSize)
	assert.Equal(t, 50, cfg.Indexing.ChunkOverlap)
	assert.Equal(t, float32(0.4), cfg.Search.MinScore)
	// Unset fields still get defaults.
	assert.Equal(t, 100, cfg.Indexing.BatchSize)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("indexing:\n  chunk_size: 500\n"), 0600))

	t.Setenv("CODESCOUT_INDEXING_CHUNK_SIZE", "800")
	t.Setenv("CODESCOUT_SEARCH_LIMIT", "10")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Indexing.ChunkSize)
	assert.Equal(t, 10, cfg.Search.Limit)
}

func TestLoad_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// Overlap larger than chunk size is a startup-fatal configuration error.
	require.NoError(t, os.WriteFile(path, []byte("indexing:\n  chunk_size: 100\n  chunk_overlap: 200\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestLoad_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	big := make([]byte, maxConfigFileSize+1)
	for i := range big {
		big[i] = '#'
	}
	require.NoError(t, os.WriteFile(path, big, 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("valid defaults", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("bad extension", func(t *testing.T) {
		cfg := base()
		cfg.Indexing.Extensions = []string{"go"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad min score", func(t *testing.T) {
		cfg := base()
		cfg.Search.MinScore = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero batch", func(t *testing.T) {
		cfg := base()
		cfg.Indexing.BatchSize = 0
		assert.Error(t, cfg.Validate())
	})
}
