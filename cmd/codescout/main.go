// Package main implements the codescout CLI: incremental semantic
// indexing and search across local git repositories.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codescout/internal/config"
	"github.com/fyrsmithlabs/codescout/internal/embeddings"
	"github.com/fyrsmithlabs/codescout/internal/indexer"
	"github.com/fyrsmithlabs/codescout/internal/logging"
	"github.com/fyrsmithlabs/codescout/internal/search"
	"github.com/fyrsmithlabs/codescout/internal/vectorstore"
)

var (
	// configPath is the --config flag value; empty means the default
	// location (~/.config/codescout/config.yaml).
	configPath string

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "codescout",
	Short: "Semantic code search across local repositories",
	Long: `codescout indexes local git repositories into an embedded vector store
and answers natural-language queries against them. Indexing is
incremental: unchanged files are detected by size, mtime, and content
hash, and only changed content is re-embedded.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/codescout/config.yaml)")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(indexAllCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(checkDbCmd)
	rootCmd.AddCommand(resetDbCmd)
}

// app bundles the wired components behind every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider embeddings.Provider
	store    *vectorstore.ChromemStore
	indexer  *indexer.Indexer
	search   *search.Service
}

// openApp loads configuration and opens the store. Callers must Close.
func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	provider, err := embeddings.NewProvider(embeddings.Config{
		Provider: cfg.Embeddings.Provider,
		Model:    cfg.Embeddings.Model,
		BaseURL:  cfg.Embeddings.BaseURL,
		CacheDir: cfg.Embeddings.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing embedding provider: %w", err)
	}

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       cfg.Index.Path,
		VectorSize: provider.Dimension(),
	}, provider, logger)
	if err != nil {
		provider.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		store:    store,
		indexer: indexer.New(store, indexer.Config{
			Extensions:     cfg.Indexing.Extensions,
			IgnorePatterns: cfg.Indexing.IgnorePatterns,
			MaxFileSize:    cfg.Indexing.MaxFileSize,
			ChunkSize:      cfg.Indexing.ChunkSize,
			ChunkOverlap:   cfg.Indexing.ChunkOverlap,
			BatchSize:      cfg.Indexing.BatchSize,
		}, logger),
		search: search.NewService(store, search.Config{
			MinScore: cfg.Search.MinScore,
			Limit:    cfg.Search.Limit,
		}, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	if err := a.provider.Close(); err != nil {
		a.logger.Warn("closing embedding provider", zap.Error(err))
	}
	_ = a.logger.Sync()
}
