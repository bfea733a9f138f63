package vectorstore_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/fyrsmithlabs/codescout/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chromemTestEmbedder returns normalized vectors for testing.
type chromemTestEmbedder struct {
	vectorSize int
}

func (e *chromemTestEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.makeEmbedding(text)
	}
	return embeddings, nil
}

func (e *chromemTestEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.makeEmbedding(text), nil
}

// makeEmbedding creates a normalized embedding based on text hash.
func (e *chromemTestEmbedder) makeEmbedding(text string) []float32 {
	embedding := make([]float32, e.vectorSize)
	hash := 0
	for _, c := range text {
		hash = (hash*31 + int(c)) % 1000
	}
	var sumSq float32
	for i := range embedding {
		embedding[i] = float32((hash+i)%100) / 100.0
		sumSq += embedding[i] * embedding[i]
	}
	// chromem requires normalized vectors.
	if sumSq > 0 {
		norm := float32(1.0) / sqrt32(sumSq)
		for i := range embedding {
			embedding[i] *= norm
		}
	}
	return embedding
}

func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	z := x / 2
	for i := 0; i < 10; i++ {
		z = (z + x/z) / 2
	}
	return z
}

func newTestStore(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()

	config := vectorstore.ChromemConfig{
		Path:       t.TempDir(),
		VectorSize: 384,
	}
	store, err := vectorstore.NewChromemStore(config, &chromemTestEmbedder{vectorSize: 384}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocs() []vectorstore.Document {
	return []vectorstore.Document{
		{ID: "file_repo_a_py", Content: "def main(): pass", Metadata: map[string]string{"repo_name": "repo", "file_path": "a.py", "type": "file"}},
		{ID: "file_repo_b_py", Content: "class Thing: pass", Metadata: map[string]string{"repo_name": "repo", "file_path": "b.py", "type": "file"}},
		{ID: "file_other_c_go", Content: "func main() {}", Metadata: map[string]string{"repo_name": "other", "file_path": "c.go", "type": "file"}},
	}
}

func TestChromemConfig_ApplyDefaults(t *testing.T) {
	config := vectorstore.ChromemConfig{}
	config.ApplyDefaults()

	assert.Equal(t, "~/.config/codescout/index", config.Path)
	assert.Equal(t, 384, config.VectorSize)
}

func TestValidateCollection(t *testing.T) {
	assert.NoError(t, vectorstore.ValidateCollection("repositories"))
	assert.NoError(t, vectorstore.ValidateCollection("files"))
	assert.NoError(t, vectorstore.ValidateCollection("chunks"))

	err := vectorstore.ValidateCollection("memories")
	assert.ErrorIs(t, err, vectorstore.ErrUnknownCollection)
}

func TestChromemStore_AddAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, vectorstore.CollectionFiles, testDocs()))

	all, err := store.Get(ctx, vectorstore.CollectionFiles, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())

	// Results are ordered by ID.
	assert.Equal(t, []string{"file_other_c_go", "file_repo_a_py", "file_repo_b_py"}, all.IDs)

	filtered, err := store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"repo_name": "repo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"file_repo_a_py", "file_repo_b_py"}, filtered.IDs)
	assert.Equal(t, "a.py", filtered.Metadatas[0]["file_path"])
}

func TestChromemStore_AddEmpty(t *testing.T) {
	store := newTestStore(t)

	err := store.Add(context.Background(), vectorstore.CollectionFiles, nil)
	assert.ErrorIs(t, err, vectorstore.ErrEmptyDocuments)
}

func TestChromemStore_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, vectorstore.CollectionFiles, testDocs()))

	updated := []vectorstore.Document{{
		ID:       "file_repo_a_py",
		Content:  "def main(): return 42",
		Metadata: map[string]string{"repo_name": "repo", "file_path": "a.py", "type": "file"},
	}}
	require.NoError(t, store.Add(ctx, vectorstore.CollectionFiles, updated))

	count, err := store.Count(ctx, vectorstore.CollectionFiles)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	got, err := store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"file_path": "a.py"})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "def main(): return 42", got.Documents[0])
}

func TestChromemStore_DeleteByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, vectorstore.CollectionFiles, testDocs()))
	require.NoError(t, store.Delete(ctx, vectorstore.CollectionFiles, nil, "file_repo_a_py"))

	count, err := store.Count(ctx, vectorstore.CollectionFiles)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Deleting a missing ID is not an error.
	assert.NoError(t, store.Delete(ctx, vectorstore.CollectionFiles, nil, "file_repo_a_py"))
}

func TestChromemStore_DeleteByFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, vectorstore.CollectionFiles, testDocs()))
	require.NoError(t, store.Delete(ctx, vectorstore.CollectionFiles, map[string]string{"repo_name": "repo"}))

	remaining, err := store.Get(ctx, vectorstore.CollectionFiles, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"file_other_c_go"}, remaining.IDs)
}

func TestChromemStore_Query(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, vectorstore.CollectionFiles, testDocs()))

	result, err := store.Query(ctx, vectorstore.CollectionFiles, "def main(): pass", 2, nil)
	require.NoError(t, err)
	require.Equal(t, 2, result.Len())

	// Exact content match comes back first with near-zero distance.
	assert.Equal(t, "file_repo_a_py", result.IDs[0])
	assert.InDelta(t, 0.0, result.Distances[0], 0.01)
	assert.LessOrEqual(t, result.Distances[0], result.Distances[1])
}

func TestChromemStore_QueryCapsK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, vectorstore.CollectionFiles, testDocs()))

	// k larger than the matching document count must not error.
	result, err := store.Query(ctx, vectorstore.CollectionFiles, "main", 50, map[string]string{"repo_name": "other"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Len())
}

func TestChromemStore_QueryEmptyCollection(t *testing.T) {
	store := newTestStore(t)

	result, err := store.Query(context.Background(), vectorstore.CollectionChunks, "anything", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Len())
}

func TestChromemStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	config := vectorstore.ChromemConfig{Path: dir, VectorSize: 384}
	embedder := &chromemTestEmbedder{vectorSize: 384}
	ctx := context.Background()

	store, err := vectorstore.NewChromemStore(config, embedder, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, vectorstore.CollectionFiles, testDocs()))
	require.NoError(t, store.Close())

	reopened, err := vectorstore.NewChromemStore(config, embedder, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.Get(ctx, vectorstore.CollectionFiles, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())

	result, err := reopened.Query(ctx, vectorstore.CollectionFiles, "def main(): pass", 1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, "file_repo_a_py", result.IDs[0])
}

func TestChromemStore_SingleWriter(t *testing.T) {
	dir := t.TempDir()
	config := vectorstore.ChromemConfig{Path: dir, VectorSize: 384}
	embedder := &chromemTestEmbedder{vectorSize: 384}

	first, err := vectorstore.NewChromemStore(config, embedder, zap.NewNop())
	require.NoError(t, err)
	defer first.Close()

	_, err = vectorstore.NewChromemStore(config, embedder, zap.NewNop())
	assert.ErrorIs(t, err, vectorstore.ErrStoreLocked)
}

func TestChromemStore_UnknownCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "nope", nil)
	assert.ErrorIs(t, err, vectorstore.ErrUnknownCollection)

	err = store.Add(ctx, "nope", testDocs())
	assert.ErrorIs(t, err, vectorstore.ErrUnknownCollection)
}

func TestLockInfo(t *testing.T) {
	dir := t.TempDir()

	_, locked := vectorstore.LockInfo(dir)
	assert.False(t, locked)

	config := vectorstore.ChromemConfig{Path: dir, VectorSize: 384}
	store, err := vectorstore.NewChromemStore(config, &chromemTestEmbedder{vectorSize: 384}, zap.NewNop())
	require.NoError(t, err)

	pid, locked := vectorstore.LockInfo(dir)
	assert.True(t, locked)
	assert.Equal(t, strconv.Itoa(os.Getpid()), pid)

	require.NoError(t, store.Close())
	_, locked = vectorstore.LockInfo(dir)
	assert.False(t, locked)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := vectorstore.ExpandPath("~/.config/codescout/index")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "codescout", "index"), expanded)

	plain, err := vectorstore.ExpandPath("/var/lib/codescout")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/codescout", plain)
}
