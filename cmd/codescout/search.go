package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/codescout/internal/search"
	"github.com/fyrsmithlabs/codescout/internal/vectorstore"
)

var (
	searchType     string
	searchRepo     string
	searchLang     string
	searchLimit    int
	searchMinScore float32
)

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "all", "what to search: all, repos, files, or chunks")
	searchCmd.Flags().StringVar(&searchRepo, "repo", "", "restrict to one repository")
	searchCmd.Flags().StringVar(&searchLang, "lang", "", "restrict chunks to one language")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results per collection (0 = config default)")
	searchCmd.Flags().Float32Var(&searchMinScore, "min-score", 0, "minimum similarity in [0,1]; negative disables the threshold (0 = config default)")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed repositories",
	Long: `Run a natural-language similarity search against the index.

Examples:
  codescout search "parse yaml config"
  codescout search "http retry logic" --type chunks --repo myproject --lang Go
  codescout search "database layer" --limit 10 --min-score 0.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := search.Options{
			Repo:     searchRepo,
			Language: searchLang,
			Limit:    searchLimit,
			MinScore: searchMinScore,
		}
		return runSearch(cmd, a, query, searchType, opts)
	},
}

func runSearch(cmd *cobra.Command, a *app, query, kind string, opts search.Options) error {
	ctx := cmd.Context()

	switch kind {
	case "all":
		out, err := a.search.SearchAll(ctx, query, opts)
		if err != nil {
			return err
		}
		for _, collection := range vectorstore.Collections() {
			printResults(collection, out[collection])
		}
		return nil

	case "repos", "repo", "repositories":
		results, err := a.search.SearchRepositories(ctx, query, opts)
		if err != nil {
			return err
		}
		printResults(vectorstore.CollectionRepositories, results)
		return nil

	case "files", "file":
		results, err := a.search.SearchFiles(ctx, query, opts)
		if err != nil {
			return err
		}
		printResults(vectorstore.CollectionFiles, results)
		return nil

	case "chunks", "chunk":
		results, err := a.search.SearchChunks(ctx, query, opts)
		if err != nil {
			return err
		}
		printResults(vectorstore.CollectionChunks, results)
		return nil

	default:
		return fmt.Errorf("unknown search type %q (want all, repos, files, or chunks)", kind)
	}
}

func printResults(collection string, results []search.Result) {
	fmt.Printf("%s:\n", collection)
	if len(results) == 0 {
		fmt.Println("  (no results)")
		return
	}
	for _, r := range results {
		fmt.Printf("  %.3f  %s\n", r.Similarity, r.DisplayName)
		if r.Summary != "" {
			fmt.Printf("         %s\n", r.Summary)
		}
		if snippet := firstLine(r.Content); snippet != "" {
			fmt.Printf("         | %s\n", snippet)
		}
	}
}

// firstLine returns a one-line preview of content.
func firstLine(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 100 {
		line = line[:100] + "..."
	}
	return line
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Interactive search session",
	Long: `Start an interactive prompt. Each line is searched across all
collections; "exit" or an empty line quits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		in := bufio.NewScanner(os.Stdin)
		fmt.Println("codescout interactive search; empty line or \"exit\" to quit")
		for {
			fmt.Print("query> ")
			if !in.Scan() {
				fmt.Println()
				return in.Err()
			}
			query := strings.TrimSpace(in.Text())
			if query == "" || query == "exit" || query == "quit" {
				return nil
			}
			if err := runSearch(cmd, a, query, "all", search.Options{}); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		}
	},
}
