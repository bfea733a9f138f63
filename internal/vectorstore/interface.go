// Package vectorstore provides embedded vector storage for indexed
// repository content.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for vector store operations.
var (
	// ErrStoreLocked is returned when another process holds the store lock.
	ErrStoreLocked = errors.New("store is locked by another process")

	// ErrUnknownCollection is returned for a collection name outside the
	// fixed set the store manages.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Collection names managed by the store. Every document lives in exactly
// one of these.
const (
	CollectionRepositories = "repositories"
	CollectionFiles        = "files"
	CollectionChunks       = "chunks"
)

// Collections lists the managed collection names in display order.
func Collections() []string {
	return []string{CollectionRepositories, CollectionFiles, CollectionChunks}
}

// ValidateCollection checks that name is one of the managed collections.
func ValidateCollection(name string) error {
	switch name {
	case CollectionRepositories, CollectionFiles, CollectionChunks:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// Returns a slice of embeddings (one per input text) or an error.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	// Some models optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for vector storage operations.
//
// The store owns a fixed set of collections (repositories, files, chunks)
// and supports exact-match metadata filtering alongside similarity search.
// All metadata crosses this boundary as string key/value pairs.
type Store interface {
	// Add upserts documents into a collection. Documents are embedded in
	// batch before being written; a document with an existing ID replaces
	// the stored one.
	Add(ctx context.Context, collection string, docs []Document) error

	// Get returns the IDs, contents, and metadata of all documents in a
	// collection whose metadata matches every key/value pair in where.
	// A nil or empty where matches everything. Results are ordered by ID
	// so repeated calls are deterministic.
	Get(ctx context.Context, collection string, where map[string]string) (*GetResult, error)

	// Delete removes documents by explicit IDs and/or by metadata filter.
	// Deleting documents that do not exist is not an error.
	Delete(ctx context.Context, collection string, where map[string]string, ids ...string) error

	// Query performs similarity search, returning up to k documents
	// matching the metadata filter, ordered by ascending distance.
	Query(ctx context.Context, collection string, text string, k int, where map[string]string) (*QueryResult, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close persists pending state and releases the store lock.
	Close() error
}
