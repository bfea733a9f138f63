package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/codescout/internal/indexer"
)

const timeRound = 10 * time.Millisecond

const progressLegend = "  + added  * modified  = unchanged  - deleted  ! error"

// progressObserver streams per-file progress symbols while indexing:
// + added, * modified, = unchanged, - deleted, ! error.
type progressObserver struct{}

func (progressObserver) RepoStarted(name, path string) {
	fmt.Printf("Indexing %s (%s)\n", name, path)
	fmt.Println(progressLegend)
	fmt.Print("  ")
}

func (progressObserver) FileSeen(event indexer.FileEvent) {
	fmt.Print(verdictSymbol(event))
}

func (progressObserver) RepoFinished(name string, result *indexer.Result) {
	fmt.Println()
	printResult(os.Stdout, result)
}

func verdictSymbol(event indexer.FileEvent) string {
	if event.Err != nil {
		return "!"
	}
	switch event.Verdict {
	case indexer.VerdictAdded:
		return "+"
	case indexer.VerdictModified:
		return "*"
	case indexer.VerdictUnchanged:
		return "="
	case indexer.VerdictDeleted:
		return "-"
	}
	return ""
}

// batchProgress buffers each repository's progress and prints it as one
// block when the repository finishes. Concurrent runs share a single
// observer, so streaming symbols directly would interleave the output of
// different repositories.
type batchProgress struct {
	mu   sync.Mutex
	out  io.Writer
	runs map[string]*strings.Builder
}

func newBatchProgress(out io.Writer) *batchProgress {
	if out == nil {
		out = os.Stdout
	}
	return &batchProgress{out: out, runs: make(map[string]*strings.Builder)}
}

func (p *batchProgress) RepoStarted(name, path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := &strings.Builder{}
	fmt.Fprintf(b, "Indexing %s (%s)\n%s\n  ", name, path, progressLegend)
	p.runs[name] = b
}

func (p *batchProgress) FileSeen(event indexer.FileEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b := p.runs[event.Repo]; b != nil {
		b.WriteString(verdictSymbol(event))
	}
}

func (p *batchProgress) RepoFinished(name string, result *indexer.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b := p.runs[name]; b != nil {
		fmt.Fprintln(p.out, b.String())
		delete(p.runs, name)
	}
	printResult(p.out, result)
}

func printResult(w io.Writer, r *indexer.Result) {
	fmt.Fprintf(w, "%s: %d files (%d added, %d modified, %d unchanged, %d deleted), %d chunks (+%d/-%d) in %s\n",
		r.RepoName, r.SupportedFiles, r.Added, r.Modified, r.Unchanged, r.Deleted,
		r.TotalChunks, r.ChunksAdded, r.ChunksDeleted, r.Duration.Round(timeRound))
}
