// Package config provides configuration loading for codescout.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix namespaces codescout environment variables.
	envPrefix = "CODESCOUT_"
)

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CODESCOUT_INDEXING_CHUNK_SIZE, ...)
//  2. YAML config file (~/.config/codescout/config.yaml)
//  3. Hardcoded defaults
//
// The configPath parameter specifies the YAML file to load. If empty, the
// default path is used. A missing file is not an error; defaults apply.
//
// Environment variables map to YAML fields by splitting on the first
// underscore after the prefix:
//
//	CODESCOUT_INDEXING_CHUNK_SIZE -> indexing.chunk_size
//	CODESCOUT_SEARCH_MIN_SCORE    -> search.min_score
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "codescout", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// rawbytes provider avoids re-opening the file.
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// CODESCOUT_INDEXING_CHUNK_SIZE -> indexing.chunk_size
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// defaultExtensions is the built-in extension allow-list.
var defaultExtensions = []string{
	".py", ".js", ".jsx", ".ts", ".tsx",
	".java", ".cpp", ".c", ".h", ".hpp", ".cs",
	".php", ".rb", ".go", ".rs", ".swift", ".kt", ".scala",
	".md", ".txt", ".json", ".yml", ".yaml",
}

// defaultIgnorePatterns is the built-in skip list.
var defaultIgnorePatterns = []string{
	".git/", "node_modules/", "vendor/", "__pycache__/",
	"venv/", ".venv/", "dist/", "build/", "target/",
	".idea/", ".vscode/",
	"*.min.js", "*.lock", "package-lock*",
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Index.Path == "" {
		cfg.Index.Path = "~/.config/codescout/index"
	}
	if cfg.Source.Concurrency == 0 {
		cfg.Source.Concurrency = 4
	}

	if len(cfg.Indexing.Extensions) == 0 {
		cfg.Indexing.Extensions = defaultExtensions
	}
	if len(cfg.Indexing.IgnorePatterns) == 0 {
		cfg.Indexing.IgnorePatterns = defaultIgnorePatterns
	}
	if cfg.Indexing.ChunkSize == 0 {
		cfg.Indexing.ChunkSize = 1000
	}
	if cfg.Indexing.ChunkOverlap == 0 {
		cfg.Indexing.ChunkOverlap = 100
	}
	if cfg.Indexing.BatchSize == 0 {
		cfg.Indexing.BatchSize = 100
	}
	if cfg.Indexing.MaxFileSize == 0 {
		cfg.Indexing.MaxFileSize = 1024 * 1024 // 1MB
	}

	if cfg.Search.MinScore == 0 {
		cfg.Search.MinScore = 0.3
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = 5
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}
	if cfg.Embeddings.CacheDir == "" {
		cfg.Embeddings.CacheDir = "~/.cache/codescout/models"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}
