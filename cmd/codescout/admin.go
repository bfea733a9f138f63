package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/codescout/internal/config"
	"github.com/fyrsmithlabs/codescout/internal/vectorstore"
)

var (
	inspectLimit int
	deleteYes    bool
	resetYes     bool
)

func init() {
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 10, "max documents to show")
	deleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "skip the confirmation prompt")
	resetDbCmd.Flags().BoolVar(&resetYes, "yes", false, "skip the confirmation prompt")
}

// indexDir resolves the configured index path without opening the store.
func indexDir() (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	return vectorstore.ExpandPath(cfg.Index.Path)
}

var checkDbCmd = &cobra.Command{
	Use:   "check-db",
	Short: "Diagnose the vector store",
	Long: `Report where the index lives, whether another process holds its
write lock, and how many documents each collection contains.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := indexDir()
		if err != nil {
			return err
		}
		fmt.Printf("Index path:  %s\n", dir)

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			fmt.Println("Status:      not created yet (run \"codescout index\" first)")
			return nil
		}
		if pid, locked := vectorstore.LockInfo(dir); locked {
			fmt.Printf("Status:      locked by process %s\n", pid)
			return nil
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.search.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("Status:      ok")
		for _, name := range vectorstore.Collections() {
			fmt.Printf("  %-14s %6d documents\n", name, stats[name])
		}
		return nil
	},
}

var resetDbCmd = &cobra.Command{
	Use:   "reset-db",
	Short: "Delete the entire index",
	Long: `Remove the index directory and everything in it. Every repository
must be re-indexed afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := indexDir()
		if err != nil {
			return err
		}
		if pid, locked := vectorstore.LockInfo(dir); locked {
			return fmt.Errorf("index at %s is locked by process %s", dir, pid)
		}

		if !resetYes {
			fmt.Printf("Delete the entire index at %q? [y/N]: ", dir)
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(line)) != "y" {
				fmt.Println("aborted")
				return nil
			}
		}

		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing index directory: %w", err)
		}
		fmt.Printf("Removed %s\n", dir)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info [repo]",
	Short: "Show indexed repositories",
	Long: `Without arguments, list every indexed repository. With a name,
show that repository's details and its indexed files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if len(args) == 0 {
			repos, err := a.search.ListRepositories(ctx)
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Println("no repositories indexed")
				return nil
			}
			for _, r := range repos {
				fmt.Printf("%-24s %-10s %-10s %4d files  indexed %s\n",
					r.Name, r.Language, r.Branch, r.FileCount,
					r.IndexedAt.Local().Format(time.RFC822))
			}
			return nil
		}

		name := args[0]
		info, err := a.search.RepoInfo(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("Name:        %s\n", info.Name)
		fmt.Printf("Path:        %s\n", info.Path)
		fmt.Printf("Branch:      %s\n", info.Branch)
		fmt.Printf("Language:    %s\n", info.Language)
		fmt.Printf("Files:       %d indexed of %d total\n", info.FileCount, info.TotalFiles)
		fmt.Printf("Indexed at:  %s\n", info.IndexedAt.Local().Format(time.RFC822))

		files, err := a.search.RepoFiles(ctx, name)
		if err != nil {
			return err
		}
		fmt.Println("Files:")
		for _, f := range files {
			fmt.Printf("  %-50s %-12s %8d bytes\n", f.FilePath, f.Language, f.Size)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		stats, err := a.search.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Collections:")
		for _, name := range vectorstore.Collections() {
			fmt.Printf("  %-14s %6d documents\n", name, stats[name])
		}

		langs, err := a.search.Languages(ctx)
		if err != nil {
			return err
		}
		if len(langs) > 0 {
			fmt.Println("Languages:")
			for _, lang := range sortedKeys(langs) {
				fmt.Printf("  %-14s %6d files\n", lang, langs[lang])
			}
		}
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <collection>",
	Short: "Dump raw documents from a collection",
	Long: `Show stored document IDs and metadata from one collection
(repositories, files, or chunks). Useful for debugging the index.

Examples:
  codescout inspect files --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		got, err := a.search.Inspect(cmd.Context(), args[0], inspectLimit)
		if err != nil {
			return err
		}
		for i, id := range got.IDs {
			fmt.Printf("%s\n", id)
			for _, k := range sortedMetaKeys(got.Metadatas[i]) {
				fmt.Printf("    %s: %s\n", k, got.Metadatas[i][k])
			}
		}
		fmt.Printf("%d documents shown\n", got.Len())
		return nil
	},
}

func sortedMetaKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var deleteCmd = &cobra.Command{
	Use:   "delete <repo>",
	Short: "Remove a repository from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if !deleteYes {
			fmt.Printf("Delete all indexed data for %q? [y/N]: ", name)
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(line)) != "y" {
				fmt.Println("aborted")
				return nil
			}
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.indexer.DeleteRepository(cmd.Context(), name); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", name)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		cfg := a.cfg

		fmt.Printf("source.folder:            %s\n", cfg.Source.Folder)
		fmt.Printf("source.max_repos:         %d\n", cfg.Source.MaxRepos)
		fmt.Printf("source.concurrency:       %d\n", cfg.Source.Concurrency)
		fmt.Printf("index.path:               %s\n", cfg.Index.Path)
		fmt.Printf("indexing.extensions:      %s\n", strings.Join(cfg.Indexing.Extensions, " "))
		fmt.Printf("indexing.ignore_patterns: %s\n", strings.Join(cfg.Indexing.IgnorePatterns, " "))
		fmt.Printf("indexing.chunk_size:      %d\n", cfg.Indexing.ChunkSize)
		fmt.Printf("indexing.chunk_overlap:   %d\n", cfg.Indexing.ChunkOverlap)
		fmt.Printf("indexing.batch_size:      %d\n", cfg.Indexing.BatchSize)
		fmt.Printf("indexing.max_file_size:   %d\n", cfg.Indexing.MaxFileSize)
		fmt.Printf("search.min_score:         %.2f\n", cfg.Search.MinScore)
		fmt.Printf("search.limit:             %d\n", cfg.Search.Limit)
		fmt.Printf("embeddings.provider:      %s\n", cfg.Embeddings.Provider)
		fmt.Printf("embeddings.model:         %s\n", cfg.Embeddings.Model)
		fmt.Printf("embeddings.base_url:      %s\n", cfg.Embeddings.BaseURL)
		fmt.Printf("embeddings.cache_dir:     %s\n", cfg.Embeddings.CacheDir)
		fmt.Printf("logging.level:            %s\n", cfg.Logging.Level)
		fmt.Printf("logging.format:           %s\n", cfg.Logging.Format)
		return nil
	},
}
