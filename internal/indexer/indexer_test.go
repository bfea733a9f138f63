package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codescout/internal/vectorstore"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	mu   sync.Mutex
	data map[string]map[string]vectorstore.Document

	// failAddOn makes Add fail once for the given collection.
	failAddOn string

	// failDeleteOn makes Delete fail once for the given collection.
	failDeleteOn string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]map[string]vectorstore.Document)}
}

func (s *fakeStore) Add(ctx context.Context, collection string, docs []vectorstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAddOn == collection {
		s.failAddOn = ""
		return errors.New("injected add failure")
	}

	coll, ok := s.data[collection]
	if !ok {
		coll = make(map[string]vectorstore.Document)
		s.data[collection] = coll
	}
	for _, doc := range docs {
		coll[doc.ID] = doc
	}
	return nil
}

func (s *fakeStore) Get(ctx context.Context, collection string, where map[string]string) (*vectorstore.GetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, doc := range s.data[collection] {
		if matches(doc.Metadata, where) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	result := &vectorstore.GetResult{}
	for _, id := range ids {
		doc := s.data[collection][id]
		result.IDs = append(result.IDs, id)
		result.Documents = append(result.Documents, doc.Content)
		result.Metadatas = append(result.Metadatas, doc.Metadata)
	}
	return result, nil
}

func (s *fakeStore) Delete(ctx context.Context, collection string, where map[string]string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDeleteOn == collection {
		s.failDeleteOn = ""
		return errors.New("injected delete failure")
	}

	coll := s.data[collection]
	for _, id := range ids {
		delete(coll, id)
	}
	if len(where) > 0 {
		for id, doc := range coll {
			if matches(doc.Metadata, where) {
				delete(coll, id)
			}
		}
	}
	return nil
}

func (s *fakeStore) Query(ctx context.Context, collection string, text string, k int, where map[string]string) (*vectorstore.QueryResult, error) {
	return &vectorstore.QueryResult{}, nil
}

func (s *fakeStore) Count(ctx context.Context, collection string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[collection]), nil
}

func (s *fakeStore) Close() error { return nil }

func matches(metadata, where map[string]string) bool {
	for k, v := range where {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// recordingObserver captures file events for assertions.
type recordingObserver struct {
	NopObserver
	mu     sync.Mutex
	events []FileEvent
}

func (o *recordingObserver) FileSeen(e FileEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) verdictFor(path string) Verdict {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.events) - 1; i >= 0; i-- {
		if o.events[i].Path == path {
			return o.events[i].Verdict
		}
	}
	return ""
}

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func testIndexer(store vectorstore.Store) *Indexer {
	return New(store, Config{
		Extensions: []string{".go", ".py", ".md"},
		ChunkSize:  200,
		BatchSize:  2,
	}, zap.NewNop())
}

func seedRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeRepoFile(t, root, "main.py", "def main():\n    print('hello')\n")
	writeRepoFile(t, root, "util.py", "def util():\n    return 1\n")
	writeRepoFile(t, root, "README.md", "# demo\n\nA test repository.\n")
	return root
}

func TestIndexRepository_FirstRun(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	root := seedRepo(t)

	result, err := ix.IndexRepository(context.Background(), "demo", root)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Added)
	assert.Equal(t, 0, result.Modified)
	assert.Equal(t, 0, result.Unchanged)
	assert.Equal(t, 0, result.Deleted)
	assert.Equal(t, 3, result.SupportedFiles)
	assert.Greater(t, result.ChunksAdded, 0)
	assert.Equal(t, result.ChunksAdded, result.TotalChunks)

	files, err := store.Get(context.Background(), vectorstore.CollectionFiles, map[string]string{"repo_name": "demo"})
	require.NoError(t, err)
	assert.Equal(t, 3, files.Len())
	assert.Contains(t, files.IDs, "file_demo_main_py")

	repos, err := store.Get(context.Background(), vectorstore.CollectionRepositories, nil)
	require.NoError(t, err)
	require.Equal(t, 1, repos.Len())
	entry := RepoEntryFromMetadata(repos.Metadatas[0])
	assert.Equal(t, "demo", entry.Name)
	assert.Equal(t, "Python", entry.Language)
	assert.Equal(t, 3, entry.FileCount)
	assert.False(t, entry.IndexedAt.IsZero())
}

func TestIndexRepository_Idempotent(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	root := seedRepo(t)
	ctx := context.Background()

	first, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	second, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 0, second.Modified)
	assert.Equal(t, 3, second.Unchanged)
	assert.Equal(t, 0, second.ChunksAdded)
	assert.Equal(t, 0, second.ChunksDeleted)
	assert.Equal(t, first.TotalChunks, second.TotalChunks)
}

func TestIndexRepository_ModifiedFile(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	root := seedRepo(t)
	ctx := context.Background()

	_, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	chunksBefore, err := store.Get(ctx, vectorstore.CollectionChunks, map[string]string{"file_path": "util.py"})
	require.NoError(t, err)

	writeRepoFile(t, root, "main.py", "def main():\n    print('hello, world')\n")

	obs := &recordingObserver{}
	ix.SetObserver(obs)
	result, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Modified)
	assert.Equal(t, 2, result.Unchanged)
	assert.Equal(t, VerdictModified, obs.verdictFor("main.py"))
	assert.Equal(t, VerdictUnchanged, obs.verdictFor("util.py"))
	for _, e := range obs.events {
		assert.Equal(t, "demo", e.Repo)
	}

	// Chunks of unchanged files survive untouched.
	chunksAfter, err := store.Get(ctx, vectorstore.CollectionChunks, map[string]string{"file_path": "util.py"})
	require.NoError(t, err)
	assert.Equal(t, chunksBefore.IDs, chunksAfter.IDs)

	// The stored file entry reflects the new content.
	files, err := store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"file_path": "main.py"})
	require.NoError(t, err)
	require.Equal(t, 1, files.Len())
	assert.Contains(t, files.Documents[0], "hello, world")
}

func TestIndexRepository_DeletedFile(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	root := seedRepo(t)
	ctx := context.Background()

	_, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "util.py")))

	obs := &recordingObserver{}
	ix.SetObserver(obs)
	result, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, VerdictDeleted, obs.verdictFor("util.py"))

	files, err := store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"file_path": "util.py"})
	require.NoError(t, err)
	assert.Equal(t, 0, files.Len())

	chunks, err := store.Get(ctx, vectorstore.CollectionChunks, map[string]string{"file_path": "util.py"})
	require.NoError(t, err)
	assert.Equal(t, 0, chunks.Len())
}

func TestIndexRepository_BatchFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	root := seedRepo(t)
	ctx := context.Background()

	// First chunk batch fails; the run still completes and later batches
	// land.
	store.failAddOn = vectorstore.CollectionChunks
	result, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	count, err := store.Count(ctx, vectorstore.CollectionChunks)
	require.NoError(t, err)
	assert.Equal(t, result.ChunksAdded, count)

	// Files in the failed batch kept no entry, so the next healthy run
	// re-detects and repairs them.
	second, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Added)
	assert.Equal(t, 1, second.Unchanged)

	count, err = store.Count(ctx, vectorstore.CollectionChunks)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIndexRepository_ChunkDeleteFailureIsRetried(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	root := seedRepo(t)
	ctx := context.Background()

	_, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	writeRepoFile(t, root, "main.py", "def main():\n    print('changed')\n")

	// The stale-chunk delete fails once. The run completes, but the old
	// chunks stay in place and the file's stored entry is not refreshed.
	store.failDeleteOn = vectorstore.CollectionChunks
	second, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Modified)
	assert.Equal(t, 0, second.ChunksAdded)
	assert.Equal(t, 0, second.ChunksDeleted)

	chunks, err := store.Get(ctx, vectorstore.CollectionChunks, map[string]string{"file_path": "main.py"})
	require.NoError(t, err)
	require.Equal(t, 1, chunks.Len())
	assert.Contains(t, chunks.Documents[0], "hello")

	// The next run sees the file as modified again and reconciles.
	third, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Modified)
	assert.Equal(t, 1, third.ChunksDeleted)
	assert.Equal(t, 1, third.ChunksAdded)

	chunks, err = store.Get(ctx, vectorstore.CollectionChunks, map[string]string{"file_path": "main.py"})
	require.NoError(t, err)
	require.Equal(t, 1, chunks.Len())
	assert.Contains(t, chunks.Documents[0], "changed")
}

func TestIndexRepository_DeletedFileChunkFailureIsRetried(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	root := seedRepo(t)
	ctx := context.Background()

	_, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "util.py")))

	// The chunk delete fails, so the file entry must survive too: it is
	// what makes the next run see the deletion again.
	store.failDeleteOn = vectorstore.CollectionChunks
	second, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Deleted)

	files, err := store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"file_path": "util.py"})
	require.NoError(t, err)
	require.Equal(t, 1, files.Len())

	third, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Deleted)

	files, err = store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"file_path": "util.py"})
	require.NoError(t, err)
	assert.Equal(t, 0, files.Len())

	chunks, err := store.Get(ctx, vectorstore.CollectionChunks, map[string]string{"file_path": "util.py"})
	require.NoError(t, err)
	assert.Equal(t, 0, chunks.Len())
}

func TestIndexRepository_FileDeleteFailureIsRetried(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	root := seedRepo(t)
	ctx := context.Background()

	_, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "util.py")))

	// The stale file-entry delete fails once; the run still completes and
	// the orphaned entry survives until the next run cleans it up.
	store.failDeleteOn = vectorstore.CollectionFiles
	second, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Deleted)

	files, err := store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"file_path": "util.py"})
	require.NoError(t, err)
	require.Equal(t, 1, files.Len())

	third, err := ix.IndexRepository(ctx, "demo", root)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Deleted)

	files, err = store.Get(ctx, vectorstore.CollectionFiles, map[string]string{"file_path": "util.py"})
	require.NoError(t, err)
	assert.Equal(t, 0, files.Len())
}

func TestDeleteRepository(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	ctx := context.Background()

	_, err := ix.IndexRepository(ctx, "demo", seedRepo(t))
	require.NoError(t, err)
	_, err = ix.IndexRepository(ctx, "other", seedRepo(t))
	require.NoError(t, err)

	require.NoError(t, ix.DeleteRepository(ctx, "demo"))

	for _, collection := range vectorstore.Collections() {
		got, err := store.Get(ctx, collection, map[string]string{"repo_name": "demo"})
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len(), collection)

		kept, err := store.Get(ctx, collection, map[string]string{"repo_name": "other"})
		require.NoError(t, err)
		assert.Greater(t, kept.Len(), 0, collection)
	}
}

func TestIsIndexed(t *testing.T) {
	store := newFakeStore()
	ix := testIndexer(store)
	ctx := context.Background()

	indexed, err := ix.IsIndexed(ctx, "demo")
	require.NoError(t, err)
	assert.False(t, indexed)

	_, err = ix.IndexRepository(ctx, "demo", seedRepo(t))
	require.NoError(t, err)

	indexed, err = ix.IsIndexed(ctx, "demo")
	require.NoError(t, err)
	assert.True(t, indexed)
}

func TestDiscoverRepositories(t *testing.T) {
	root := t.TempDir()

	for _, name := range []string{"beta", "alpha"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(path, 0755))
		_, err := git.PlainInit(path, false)
		require.NoError(t, err)
	}
	// A plain directory is not a repository.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-repo"), 0755))

	repos, err := DiscoverRepositories(root, 0)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "alpha", repos[0].Name)
	assert.Equal(t, "beta", repos[1].Name)

	limited, err := DiscoverRepositories(root, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "alpha", limited[0].Name)
}

func TestIndexAll(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"one", "two"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(path, 0755))
		_, err := git.PlainInit(path, false)
		require.NoError(t, err)
		writeRepoFile(t, path, "main.go", "package main\n\nfunc main() {}\n")
	}

	store := newFakeStore()
	ix := testIndexer(store)

	results, err := ix.IndexAll(context.Background(), root, 0, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	repos, err := store.Get(context.Background(), vectorstore.CollectionRepositories, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, repos.Len())
}
