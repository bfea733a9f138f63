package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	git "github.com/go-git/go-git/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/codescout/internal/chunk"
	"github.com/fyrsmithlabs/codescout/internal/scanner"
	"github.com/fyrsmithlabs/codescout/internal/vectorstore"
)

var indexerTracer = otel.Tracer("codescout.indexer")

// Config holds indexing pipeline configuration.
type Config struct {
	// Extensions is the allow-list of file extensions (with leading dot).
	Extensions []string

	// IgnorePatterns are scanner skip rules.
	IgnorePatterns []string

	// MaxFileSize is the largest file in bytes that will be indexed.
	MaxFileSize int64

	// ChunkSize is the target chunk size in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between adjacent chunks in characters.
	ChunkOverlap int

	// BatchSize bounds how many documents go to the store per write.
	BatchSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 100
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
}

// Result summarizes one repository indexing run.
type Result struct {
	RepoName string

	// TotalFiles counts every regular file visited by the scan.
	TotalFiles int

	// SupportedFiles counts files that passed all scanner filters.
	SupportedFiles int

	Added     int
	Modified  int
	Unchanged int
	Deleted   int

	ChunksAdded   int
	ChunksDeleted int

	// TotalChunks is the chunk count for the repository after the run,
	// tracked incrementally (kept plus added).
	TotalChunks int

	Duration time.Duration
}

// Indexer synchronizes repository trees into the vector store.
//
// Each run scans the tree, diffs it against the stored file entries, and
// writes only what changed: chunks are deleted and re-created only for
// files that were modified or removed, then file entries are refreshed
// wholesale (they are cheap upserts). Chunks go first: a file entry is
// only rewritten once its chunks are in place, so a file whose chunk sync
// failed keeps its old hash and mtime and is picked up again as modified
// on the next run.
type Indexer struct {
	store     vectorstore.Store
	scanner   *scanner.Scanner
	segmenter *chunk.Segmenter
	cfg       Config
	logger    *zap.Logger
	observer  Observer
}

// New creates an indexer writing to the given store.
func New(store vectorstore.Store, cfg Config, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	return &Indexer{
		store: store,
		scanner: scanner.New(scanner.Config{
			Extensions:     cfg.Extensions,
			IgnorePatterns: cfg.IgnorePatterns,
			MaxFileSize:    cfg.MaxFileSize,
		}, logger),
		segmenter: chunk.NewSegmenter(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:       cfg,
		logger:    logger,
		observer:  NopObserver{},
	}
}

// SetObserver installs a progress observer. Must be called before indexing
// starts.
func (ix *Indexer) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	ix.observer = o
}

// IndexRepository scans the tree at path and synchronizes the store's
// view of the repository named name.
func (ix *Indexer) IndexRepository(ctx context.Context, name, path string) (*Result, error) {
	ctx, span := indexerTracer.Start(ctx, "Indexer.IndexRepository")
	defer span.End()
	span.SetAttributes(
		attribute.String("repo", name),
		attribute.String("path", path),
	)

	start := time.Now()
	ix.observer.RepoStarted(name, path)

	scanRes, err := ix.scanner.Scan(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	prior, err := ix.store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"repo_name": name})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("loading stored file entries: %w", err)
	}
	priorByPath := make(map[string]*FileEntry, prior.Len())
	for _, m := range prior.Metadatas {
		entry := FileEntryFromMetadata(m)
		priorByPath[entry.FilePath] = entry
	}

	result := &Result{
		RepoName:       name,
		TotalFiles:     scanRes.TotalFiles,
		SupportedFiles: len(scanRes.Files),
	}

	var changed []*scanner.FileRecord
	seen := make(map[string]bool, len(scanRes.Files))
	for _, f := range scanRes.Files {
		seen[f.RelPath] = true
		verdict := DetectChange(f, priorByPath[f.RelPath])
		ix.observer.FileSeen(FileEvent{Repo: name, Path: f.RelPath, Verdict: verdict})

		switch verdict {
		case VerdictAdded:
			result.Added++
			changed = append(changed, f)
		case VerdictModified:
			result.Modified++
			changed = append(changed, f)
		case VerdictUnchanged:
			result.Unchanged++
		}
	}

	var deletedPaths []string
	for p := range priorByPath {
		if !seen[p] {
			deletedPaths = append(deletedPaths, p)
		}
	}
	sort.Strings(deletedPaths)
	for _, p := range deletedPaths {
		result.Deleted++
		ix.observer.FileSeen(FileEvent{Repo: name, Path: p, Verdict: VerdictDeleted})
	}

	// Chunk deletion is scoped to files that changed or disappeared;
	// chunks of unchanged files are kept as-is.
	priorChunks, err := ix.store.Get(ctx, vectorstore.CollectionChunks, map[string]string{"repo_name": name})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("loading stored chunk entries: %w", err)
	}

	stalePaths := make(map[string]bool, len(changed)+len(deletedPaths))
	for _, f := range changed {
		stalePaths[f.RelPath] = true
	}
	for _, p := range deletedPaths {
		stalePaths[p] = true
	}

	// failedPaths collects files whose chunk sync did not complete. Their
	// stored entries are left untouched below, so the next run sees them
	// as modified and retries.
	failedPaths := make(map[string]bool)

	var staleChunkIDs []string
	for i, m := range priorChunks.Metadatas {
		if stalePaths[m["file_path"]] {
			staleChunkIDs = append(staleChunkIDs, priorChunks.IDs[i])
		}
	}
	if len(staleChunkIDs) > 0 {
		if err := ix.store.Delete(ctx, vectorstore.CollectionChunks, nil, staleChunkIDs...); err != nil {
			span.RecordError(err)
			ix.logger.Error("deleting stale chunks failed",
				zap.String("repo", name),
				zap.Int("chunk_count", len(staleChunkIDs)),
				zap.Error(err))
			for p := range stalePaths {
				failedPaths[p] = true
			}
		} else {
			result.ChunksDeleted = len(staleChunkIDs)
		}
	}

	var chunkDocs []vectorstore.Document
	for _, f := range changed {
		if failedPaths[f.RelPath] {
			continue
		}
		for _, c := range ix.segmenter.Split(f.Content, f.Language) {
			chunkDocs = append(chunkDocs, vectorstore.Document{
				ID:       ChunkID(name, f.RelPath, c.Index),
				Content:  c.Content,
				Metadata: NewChunkEntry(name, f, c).Metadata(),
			})
		}
	}
	added, failedChunkPaths := ix.addBatches(ctx, vectorstore.CollectionChunks, chunkDocs)
	result.ChunksAdded = added
	for p := range failedChunkPaths {
		failedPaths[p] = true
	}
	result.TotalChunks = priorChunks.Len() - result.ChunksDeleted + result.ChunksAdded

	// A deleted file's entry is kept while its chunks could not be
	// removed: the entry is what makes the next run see the file as
	// deleted and retry.
	var staleFileIDs []string
	for _, p := range deletedPaths {
		if failedPaths[p] {
			continue
		}
		staleFileIDs = append(staleFileIDs, FileID(name, p))
	}
	if len(staleFileIDs) > 0 {
		if err := ix.store.Delete(ctx, vectorstore.CollectionFiles, nil, staleFileIDs...); err != nil {
			span.RecordError(err)
			ix.logger.Error("deleting stale file entries failed",
				zap.String("repo", name),
				zap.Int("file_count", len(staleFileIDs)),
				zap.Error(err))
		}
	}

	// File entries are refreshed for every scanned file whose chunks are
	// in sync. Upserts are cheap and this heals entries from interrupted
	// or partially failed runs.
	fileDocs := make([]vectorstore.Document, 0, len(scanRes.Files))
	for _, f := range scanRes.Files {
		if failedPaths[f.RelPath] {
			continue
		}
		fileDocs = append(fileDocs, vectorstore.Document{
			ID:       FileID(name, f.RelPath),
			Content:  FileDocument(f.Content),
			Metadata: NewFileEntry(name, f).Metadata(),
		})
	}
	ix.addBatches(ctx, vectorstore.CollectionFiles, fileDocs)

	if err := ix.writeRepoEntry(ctx, name, path, scanRes); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("files_added", result.Added),
		attribute.Int("files_modified", result.Modified),
		attribute.Int("files_deleted", result.Deleted),
		attribute.Int("chunks_added", result.ChunksAdded),
	)
	span.SetStatus(codes.Ok, "success")

	ix.logger.Info("indexed repository",
		zap.String("repo", name),
		zap.Int("added", result.Added),
		zap.Int("modified", result.Modified),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("deleted", result.Deleted),
		zap.Int("chunks_added", result.ChunksAdded),
		zap.Int("chunks_deleted", result.ChunksDeleted),
		zap.Duration("duration", result.Duration),
	)

	ix.observer.RepoFinished(name, result)
	return result, nil
}

// addBatches writes documents in batches of the configured size. A failed
// batch is logged and skipped; later batches still go through. The
// returned set holds the file paths of documents in failed batches, so
// callers can leave those files' stored entries stale and let the next
// run repair the gap via change detection.
func (ix *Indexer) addBatches(ctx context.Context, collection string, docs []vectorstore.Document) (int, map[string]bool) {
	added := 0
	failed := make(map[string]bool)
	for i := 0; i < len(docs); i += ix.cfg.BatchSize {
		end := min(i+ix.cfg.BatchSize, len(docs))
		batch := docs[i:end]
		if err := ix.store.Add(ctx, collection, batch); err != nil {
			ix.logger.Error("batch write failed",
				zap.String("collection", collection),
				zap.Int("batch_start", i),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			for _, doc := range batch {
				failed[doc.Metadata["file_path"]] = true
			}
			continue
		}
		added += len(batch)
	}
	return added, failed
}

// writeRepoEntry replaces the repository summary entry.
func (ix *Indexer) writeRepoEntry(ctx context.Context, name, path string, scanRes *scanner.Result) error {
	entry := &RepoEntry{
		Name:       name,
		Path:       path,
		Branch:     detectBranch(path),
		Language:   majorityLanguage(scanRes.Files),
		FileCount:  len(scanRes.Files),
		TotalFiles: scanRes.TotalFiles,
		IndexedAt:  time.Now(),
	}

	if err := ix.store.Delete(ctx, vectorstore.CollectionRepositories, map[string]string{"repo_name": name}); err != nil {
		return fmt.Errorf("replacing repository entry: %w", err)
	}
	doc := vectorstore.Document{
		ID:       RepoID(name),
		Content:  entry.Document(),
		Metadata: entry.Metadata(),
	}
	if err := ix.store.Add(ctx, vectorstore.CollectionRepositories, []vectorstore.Document{doc}); err != nil {
		return fmt.Errorf("writing repository entry: %w", err)
	}
	return nil
}

// DeleteRepository removes everything stored for a repository.
func (ix *Indexer) DeleteRepository(ctx context.Context, name string) error {
	ctx, span := indexerTracer.Start(ctx, "Indexer.DeleteRepository")
	defer span.End()
	span.SetAttributes(attribute.String("repo", name))

	where := map[string]string{"repo_name": name}
	for _, collection := range vectorstore.Collections() {
		if err := ix.store.Delete(ctx, collection, where); err != nil {
			span.RecordError(err)
			return fmt.Errorf("deleting from %s: %w", collection, err)
		}
	}

	ix.logger.Info("deleted repository", zap.String("repo", name))
	return nil
}

// IsIndexed reports whether a repository summary entry exists.
func (ix *Indexer) IsIndexed(ctx context.Context, name string) (bool, error) {
	got, err := ix.store.Get(ctx, vectorstore.CollectionRepositories, map[string]string{"repo_name": name})
	if err != nil {
		return false, err
	}
	return got.Len() > 0, nil
}

// IndexAll discovers git repositories directly under root and indexes up
// to maxRepos of them, at most concurrency at a time. Repositories are
// independent; they share the single store connection.
func (ix *Indexer) IndexAll(ctx context.Context, root string, maxRepos, concurrency int) ([]*Result, error) {
	ctx, span := indexerTracer.Start(ctx, "Indexer.IndexAll")
	defer span.End()

	repos, err := DiscoverRepositories(root, maxRepos)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("repo_count", len(repos)))

	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*Result, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, repo := range repos {
		g.Go(func() error {
			res, err := ix.IndexRepository(gctx, repo.Name, repo.Path)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", repo.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Repo identifies a discovered repository.
type Repo struct {
	Name string
	Path string
}

// DiscoverRepositories lists git repositories directly under root, sorted
// by name. A directory counts as a repository iff go-git can open it.
// maxRepos <= 0 means no limit.
func DiscoverRepositories(root string, maxRepos int) ([]Repo, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading source folder: %w", err)
	}

	var repos []Repo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(root, e.Name())
		if _, err := git.PlainOpen(path); err != nil {
			continue
		}
		repos = append(repos, Repo{Name: e.Name(), Path: path})
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name < repos[j].Name })

	if maxRepos > 0 && len(repos) > maxRepos {
		repos = repos[:maxRepos]
	}
	return repos, nil
}

// detectBranch returns the current branch name, or "" when the path is
// not a git repository or HEAD is detached.
func detectBranch(path string) string {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}

// majorityLanguage picks the most common language among files, breaking
// ties alphabetically for determinism.
func majorityLanguage(files []*scanner.FileRecord) string {
	if len(files) == 0 {
		return "Unknown"
	}

	counts := make(map[string]int)
	for _, f := range files {
		counts[f.Language]++
	}

	best := ""
	for lang, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && lang < best) {
			best = lang
		}
	}
	return best
}
