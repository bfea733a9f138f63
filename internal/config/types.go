package config

import "fmt"

// Config is the root configuration for codescout.
//
// It is loaded once at process start and treated as immutable for the
// lifetime of the run.
type Config struct {
	Source     SourceConfig     `koanf:"source"`
	Index      IndexConfig      `koanf:"index"`
	Indexing   IndexingConfig   `koanf:"indexing"`
	Search     SearchConfig     `koanf:"search"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// SourceConfig describes where repositories live.
type SourceConfig struct {
	// Folder is the directory scanned for git repositories by index-all.
	Folder string `koanf:"folder"`

	// MaxRepos caps how many repositories index-all will process.
	// Zero means no limit.
	MaxRepos int `koanf:"max_repos"`

	// Concurrency bounds how many repositories are indexed in parallel.
	Concurrency int `koanf:"concurrency"`
}

// IndexConfig describes where the vector index is persisted.
type IndexConfig struct {
	// Path is the directory holding the persistent vector store.
	Path string `koanf:"path"`
}

// IndexingConfig controls file discovery and chunking.
type IndexingConfig struct {
	// Extensions is the allow-list of file extensions (with leading dot).
	Extensions []string `koanf:"extensions"`

	// IgnorePatterns are skip rules in three forms: trailing-slash
	// directory patterns ("node_modules/"), wildcard patterns ("*.min.js",
	// "tmp*"), and plain substrings.
	IgnorePatterns []string `koanf:"ignore_patterns"`

	// ChunkSize is the target chunk size in characters.
	ChunkSize int `koanf:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive chunks in characters.
	ChunkOverlap int `koanf:"chunk_overlap"`

	// BatchSize bounds how many chunk documents go into a single store write.
	BatchSize int `koanf:"batch_size"`

	// MaxFileSize is the largest file (in bytes) that will be indexed.
	MaxFileSize int64 `koanf:"max_file_size"`
}

// SearchConfig controls query-time behavior.
type SearchConfig struct {
	// MinScore is the default minimum similarity for returned results.
	MinScore float32 `koanf:"min_score"`

	// Limit is the default number of results per collection.
	Limit int `koanf:"limit"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "fastembed" (local ONNX) or "tei" (HTTP service).
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// BaseURL is the TEI endpoint (tei provider only).
	BaseURL string `koanf:"base_url"`

	// CacheDir is the model cache directory (fastembed provider only).
	CacheDir string `koanf:"cache_dir"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate checks the configuration for startup-fatal problems.
//
// Configuration errors surface before any index mutation occurs.
func (c *Config) Validate() error {
	if c.Index.Path == "" {
		return fmt.Errorf("index.path is required")
	}
	if c.Indexing.ChunkSize <= 0 {
		return fmt.Errorf("indexing.chunk_size must be positive, got %d", c.Indexing.ChunkSize)
	}
	if c.Indexing.ChunkOverlap < 0 {
		return fmt.Errorf("indexing.chunk_overlap cannot be negative, got %d", c.Indexing.ChunkOverlap)
	}
	if c.Indexing.ChunkOverlap >= c.Indexing.ChunkSize {
		return fmt.Errorf("indexing.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Indexing.ChunkOverlap, c.Indexing.ChunkSize)
	}
	if c.Indexing.BatchSize <= 0 {
		return fmt.Errorf("indexing.batch_size must be positive, got %d", c.Indexing.BatchSize)
	}
	if c.Indexing.MaxFileSize <= 0 {
		return fmt.Errorf("indexing.max_file_size must be positive, got %d", c.Indexing.MaxFileSize)
	}
	for _, ext := range c.Indexing.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("indexing.extensions entry %q must start with a dot", ext)
		}
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return fmt.Errorf("search.min_score must be in [0,1], got %v", c.Search.MinScore)
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("search.limit must be positive, got %d", c.Search.Limit)
	}
	if c.Source.Concurrency < 0 {
		return fmt.Errorf("source.concurrency cannot be negative, got %d", c.Source.Concurrency)
	}
	return nil
}
