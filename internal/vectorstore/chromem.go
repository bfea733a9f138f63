package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("codescout.vectorstore.chromem")

const manifestFileName = "manifest.gob"

// ChromemConfig holds configuration for the chromem-go embedded vector
// database.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/codescout/index"
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// VectorSize is the expected embedding dimension.
	// Must match the embedder's output dimension.
	// Default: 384 (for FastEmbed bge-small-en-v1.5)
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/codescout/index"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements the Store interface using chromem-go.
//
// chromem-go is an embeddable vector database with zero third-party
// dependencies and gob persistence, so no external database service is
// needed. Because chromem exposes no metadata enumeration, the store keeps
// a sidecar manifest of all document metadata alongside the vector data;
// the manifest backs Get, filtered deletes, and Query result capping.
//
// The store is single-writer: construction takes a lock file in the data
// directory and a second process gets ErrStoreLocked.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	manifest *manifest
	config   ChromemConfig
	logger   *zap.Logger
	lockPath string
}

// NewChromemStore opens (or creates) the persistent store at the
// configured path.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	expandedPath, err := ExpandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(expandedPath, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", expandedPath, err)
	}

	lockPath, err := acquireLock(expandedPath)
	if err != nil {
		return nil, err
	}

	db, err := chromem.NewPersistentDB(expandedPath, config.Compress)
	if err != nil {
		releaseLock(lockPath)
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	man, err := loadManifest(filepath.Join(expandedPath, manifestFileName))
	if err != nil {
		releaseLock(lockPath)
		return nil, err
	}

	store := &ChromemStore{
		db:       db,
		embedder: embedder,
		manifest: man,
		config:   config,
		logger:   logger,
		lockPath: lockPath,
	}

	logger.Info("chromem store opened",
		zap.String("path", expandedPath),
		zap.Bool("compress", config.Compress),
		zap.Int("vector_size", config.VectorSize),
	)

	return store, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// embeddingFunc adapts the Embedder to chromem's callback type.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// Add upserts documents into a collection.
func (s *ChromemStore) Add(ctx context.Context, collection string, docs []Document) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Add")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("document_count", len(docs)),
	)

	if err := ValidateCollection(collection); err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrEmptyDocuments
	}

	coll, err := s.db.GetOrCreateCollection(collection, nil, s.embeddingFunc())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("getting/creating collection %s: %w", collection, err)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: embeddings[i],
		}
	}

	// Concurrency of 1 since embeddings are already computed.
	if err := coll.AddDocuments(ctx, chromemDocs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}

	for _, doc := range docs {
		s.manifest.put(collection, doc.ID, manifestEntry{
			Content:  doc.Content,
			Metadata: cloneMetadata(doc.Metadata),
		})
	}
	if err := s.manifest.save(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("saving manifest: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("added documents",
		zap.String("collection", collection),
		zap.Int("count", len(docs)),
	)
	return nil
}

// Get returns documents matching the metadata filter, ordered by ID.
func (s *ChromemStore) Get(ctx context.Context, collection string, where map[string]string) (*GetResult, error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.Get")
	defer span.End()

	span.SetAttributes(attribute.String("collection", collection))

	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}

	result := s.manifest.get(collection, where)
	span.SetAttributes(attribute.Int("results_count", result.Len()))
	return result, nil
}

// Delete removes documents by IDs and/or metadata filter.
func (s *ChromemStore) Delete(ctx context.Context, collection string, where map[string]string, ids ...string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("id_count", len(ids)),
	)

	if err := ValidateCollection(collection); err != nil {
		return err
	}

	if len(where) > 0 {
		ids = append(ids, s.manifest.get(collection, where).IDs...)
	}
	if len(ids) == 0 {
		return nil
	}

	coll := s.db.GetCollection(collection, s.embeddingFunc())
	if coll != nil {
		if err := coll.Delete(ctx, nil, nil, ids...); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("deleting documents: %w", err)
		}
	}

	s.manifest.remove(collection, ids...)
	if err := s.manifest.save(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("saving manifest: %w", err)
	}

	span.SetAttributes(attribute.Int("documents_deleted", len(ids)))
	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("deleted documents",
		zap.String("collection", collection),
		zap.Int("count", len(ids)),
	)
	return nil
}

// Query performs similarity search in a collection.
func (s *ChromemStore) Query(ctx context.Context, collection string, text string, k int, where map[string]string) (*QueryResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("k", k),
	)

	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if text == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	coll := s.db.GetCollection(collection, s.embeddingFunc())
	if coll == nil {
		return &QueryResult{}, nil
	}

	// chromem rejects nResults larger than the number of documents that
	// satisfy the filter, so cap k via the manifest.
	matching := s.manifest.countMatching(collection, where)
	if matching == 0 {
		return &QueryResult{}, nil
	}
	if k > matching {
		k = matching
	}

	results, err := coll.Query(ctx, text, k, where, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", collection, err)
	}

	out := &QueryResult{}
	for _, r := range results {
		out.IDs = append(out.IDs, r.ID)
		out.Documents = append(out.Documents, r.Content)
		out.Metadatas = append(out.Metadatas, r.Metadata)
		// chromem reports cosine similarity; callers work in distance.
		out.Distances = append(out.Distances, 1-r.Similarity)
	}

	span.SetAttributes(attribute.Int("results_count", out.Len()))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("queried collection",
		zap.String("collection", collection),
		zap.Int("k", k),
		zap.Int("results", out.Len()),
	)
	return out, nil
}

// Count returns the number of documents in a collection.
func (s *ChromemStore) Count(ctx context.Context, collection string) (int, error) {
	if err := ValidateCollection(collection); err != nil {
		return 0, err
	}
	return s.manifest.count(collection), nil
}

// Close persists the manifest and releases the store lock.
func (s *ChromemStore) Close() error {
	if err := s.manifest.save(); err != nil {
		s.logger.Warn("failed to save manifest on close", zap.Error(err))
	}
	return releaseLock(s.lockPath)
}
