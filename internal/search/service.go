package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codescout/internal/indexer"
	"github.com/fyrsmithlabs/codescout/internal/vectorstore"
)

var searchTracer = otel.Tracer("codescout.search")

// ErrRepoNotFound is returned when no repository entry matches a name.
var ErrRepoNotFound = errors.New("repository not found")

// Config holds search defaults.
type Config struct {
	// MinScore is the default similarity threshold in [0, 1].
	MinScore float32

	// Limit is the default maximum number of results.
	Limit int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MinScore == 0 {
		c.MinScore = 0.3
	}
	if c.Limit == 0 {
		c.Limit = 5
	}
}

// Options narrows a single search. Zero values fall back to configured
// defaults; a negative MinScore disables the threshold entirely.
type Options struct {
	Repo     string
	Language string
	Limit    int
	MinScore float32
}

// Service runs similarity searches and metadata lookups against the store.
type Service struct {
	store  vectorstore.Store
	cfg    Config
	logger *zap.Logger
}

// NewService creates a search service.
func NewService(store vectorstore.Store, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	return &Service{store: store, cfg: cfg, logger: logger}
}

func (s *Service) limit(opts Options) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	return s.cfg.Limit
}

func (s *Service) minScore(opts Options) float32 {
	switch {
	case opts.MinScore < 0:
		return 0
	case opts.MinScore > 0:
		return opts.MinScore
	default:
		return s.cfg.MinScore
	}
}

// search runs one normalized query against a collection.
func (s *Service) search(ctx context.Context, collection, query string, where map[string]string, opts Options) ([]Result, error) {
	ctx, span := searchTracer.Start(ctx, "Service.search")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("limit", s.limit(opts)),
	)

	qr, err := s.store.Query(ctx, collection, query, s.limit(opts), where)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("searching %s: %w", collection, err)
	}

	results := normalize(qr, s.minScore(opts))
	span.SetAttributes(attribute.Int("results", len(results)))

	s.logger.Debug("search completed",
		zap.String("collection", collection),
		zap.Int("raw_results", qr.Len()),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// SearchRepositories searches repository summary entries.
func (s *Service) SearchRepositories(ctx context.Context, query string, opts Options) ([]Result, error) {
	return s.search(ctx, vectorstore.CollectionRepositories, query, nil, opts)
}

// SearchFiles searches file entries, optionally scoped to one repository.
func (s *Service) SearchFiles(ctx context.Context, query string, opts Options) ([]Result, error) {
	where := map[string]string{}
	if opts.Repo != "" {
		where["repo_name"] = opts.Repo
	}
	return s.search(ctx, vectorstore.CollectionFiles, query, where, opts)
}

// SearchChunks searches content chunks, optionally scoped by repository
// and language.
func (s *Service) SearchChunks(ctx context.Context, query string, opts Options) ([]Result, error) {
	where := map[string]string{}
	if opts.Repo != "" {
		where["repo_name"] = opts.Repo
	}
	if opts.Language != "" {
		where["language"] = opts.Language
	}
	return s.search(ctx, vectorstore.CollectionChunks, query, where, opts)
}

// SearchAll searches every collection and returns results keyed by
// collection name.
func (s *Service) SearchAll(ctx context.Context, query string, opts Options) (map[string][]Result, error) {
	out := make(map[string][]Result, 3)

	repos, err := s.SearchRepositories(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	out[vectorstore.CollectionRepositories] = repos

	files, err := s.SearchFiles(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	out[vectorstore.CollectionFiles] = files

	chunks, err := s.SearchChunks(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	out[vectorstore.CollectionChunks] = chunks

	return out, nil
}

// RepoInfo returns the stored summary entry for a repository.
func (s *Service) RepoInfo(ctx context.Context, name string) (*indexer.RepoEntry, error) {
	got, err := s.store.Get(ctx, vectorstore.CollectionRepositories, map[string]string{"repo_name": name})
	if err != nil {
		return nil, err
	}
	if got.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, name)
	}
	return indexer.RepoEntryFromMetadata(got.Metadatas[0]), nil
}

// ListRepositories returns all stored repository entries, sorted by name.
func (s *Service) ListRepositories(ctx context.Context) ([]*indexer.RepoEntry, error) {
	got, err := s.store.Get(ctx, vectorstore.CollectionRepositories, nil)
	if err != nil {
		return nil, err
	}

	entries := make([]*indexer.RepoEntry, 0, got.Len())
	for _, m := range got.Metadatas {
		entries = append(entries, indexer.RepoEntryFromMetadata(m))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// RepoFiles returns the stored file entries for a repository, ordered by
// path.
func (s *Service) RepoFiles(ctx context.Context, name string) ([]*indexer.FileEntry, error) {
	got, err := s.store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"repo_name": name})
	if err != nil {
		return nil, err
	}

	entries := make([]*indexer.FileEntry, 0, got.Len())
	for _, m := range got.Metadatas {
		entries = append(entries, indexer.FileEntryFromMetadata(m))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].FilePath < entries[j].FilePath })
	return entries, nil
}

// Languages returns how many indexed files exist per language.
func (s *Service) Languages(ctx context.Context) (map[string]int, error) {
	got, err := s.store.Get(ctx, vectorstore.CollectionFiles, nil)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, m := range got.Metadatas {
		counts[m["language"]]++
	}
	return counts, nil
}

// Stats returns document counts per collection.
func (s *Service) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int, 3)
	for _, collection := range vectorstore.Collections() {
		n, err := s.store.Count(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", collection, err)
		}
		stats[collection] = n
	}
	return stats, nil
}

// Inspect returns up to limit raw documents from a collection, ordered
// by ID.
func (s *Service) Inspect(ctx context.Context, collection string, limit int) (*vectorstore.GetResult, error) {
	got, err := s.store.Get(ctx, collection, nil)
	if err != nil {
		return nil, err
	}
	if limit > 0 && got.Len() > limit {
		got.IDs = got.IDs[:limit]
		got.Documents = got.Documents[:limit]
		got.Metadatas = got.Metadatas[:limit]
	}
	return got, nil
}
