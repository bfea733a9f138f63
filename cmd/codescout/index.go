package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/codescout/internal/indexer"
)

var (
	indexName        string
	indexAllMaxRepos int
	indexAllWorkers  int
	reindexForce     bool
	watchName        string
	watchDebounce    time.Duration
)

func init() {
	indexCmd.Flags().StringVar(&indexName, "name", "", "repository name (default: directory name)")
	indexAllCmd.Flags().IntVar(&indexAllMaxRepos, "max-repos", 0, "limit how many repositories get indexed (0 = config default)")
	indexAllCmd.Flags().IntVar(&indexAllWorkers, "concurrency", 0, "repositories indexed in parallel (0 = config default)")
	reindexCmd.Flags().BoolVar(&reindexForce, "force", false, "drop stored entries first and rebuild from scratch")
	watchCmd.Flags().StringVar(&watchName, "name", "", "repository name (default: directory name)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "wait after the last change before re-indexing")
}

// repoNameFor derives a repository name from a path unless one was given.
func repoNameFor(flag, path string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return filepath.Base(abs), nil
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a repository (incremental)",
	Long: `Index a repository into the vector store. Re-running is cheap:
unchanged files are skipped via size, mtime, and content-hash checks,
and only changed files are re-chunked and re-embedded.

Examples:
  codescout index .
  codescout index ~/src/myproject --name myproject`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		name, err := repoNameFor(indexName, path)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.indexer.SetObserver(progressObserver{})
		_, err = a.indexer.IndexRepository(cmd.Context(), name, path)
		return err
	},
}

var indexAllCmd = &cobra.Command{
	Use:   "index-all [folder]",
	Short: "Index every git repository under a folder",
	Long: `Discover git repositories directly under a folder and index each
one. The folder defaults to source.folder from the configuration.

Examples:
  codescout index-all ~/src
  codescout index-all --max-repos 10 --concurrency 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		folder := a.cfg.Source.Folder
		if len(args) == 1 {
			folder = args[0]
		}
		if folder == "" {
			return fmt.Errorf("no folder given and source.folder is not configured")
		}

		maxRepos := a.cfg.Source.MaxRepos
		if indexAllMaxRepos > 0 {
			maxRepos = indexAllMaxRepos
		}
		workers := a.cfg.Source.Concurrency
		if indexAllWorkers > 0 {
			workers = indexAllWorkers
		}

		a.indexer.SetObserver(newBatchProgress(os.Stdout))
		results, err := a.indexer.IndexAll(cmd.Context(), folder, maxRepos, workers)
		if err != nil {
			return err
		}

		fmt.Printf("\nIndexed %d repositories\n", len(results))
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [path]",
	Short: "Re-index a repository",
	Long: `Re-index a repository. By default this is the same incremental run
as "index". With --force all stored entries for the repository are
dropped first, producing a clean rebuild.

Examples:
  codescout reindex .
  codescout reindex ~/src/myproject --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		name, err := repoNameFor(indexName, path)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if reindexForce {
			if err := a.indexer.DeleteRepository(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Printf("Dropped stored entries for %s\n", name)
		}

		a.indexer.SetObserver(progressObserver{})
		_, err = a.indexer.IndexRepository(cmd.Context(), name, path)
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a repository and re-index on change",
	Long: `Index a repository and then keep it fresh: filesystem events are
debounced and each burst triggers an incremental re-index.

Examples:
  codescout watch .
  codescout watch ~/src/myproject --debounce 5s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		name, err := repoNameFor(watchName, path)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.indexer.SetObserver(progressObserver{})
		w := indexer.NewWatcher(a.indexer, watchDebounce, a.logger)
		fmt.Printf("Watching %s, press Ctrl-C to stop\n", path)
		if err := w.Watch(ctx, name, path); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
