package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func testScanner(cfg Config) *Scanner {
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".go", ".py", ".md"}
	}
	return New(cfg, zap.NewNop())
}

func TestScan_FiltersAndRecords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "docs/readme.md", "# readme\n")
	writeFile(t, root, "util.py", "def util():\n    pass\n")
	writeFile(t, root, "image.png", "not really a png")    // unsupported extension
	writeFile(t, root, "empty.go", "   \n\t\n")            // whitespace-only
	writeFile(t, root, "node_modules/dep/index.py", "x=1") // ignored dir

	s := testScanner(Config{IgnorePatterns: []string{"node_modules/"}})
	result, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	var paths []string
	for _, f := range result.Files {
		paths = append(paths, f.RelPath)
	}
	assert.ElementsMatch(t, []string{"main.go", "docs/readme.md", "util.py"}, paths)

	// node_modules is pruned, so its files never count toward the total.
	assert.Equal(t, 5, result.TotalFiles)
}

func TestScan_SkipsBinary(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.go"), []byte{0xff, 0xfe, 0x00, 0x80}, 0644))
	writeFile(t, root, "ok.go", "package ok\n")

	s := testScanner(Config{})
	result, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, "ok.go", result.Files[0].RelPath)
	assert.Equal(t, 1, result.SkippedFiles)
}

func TestScan_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.go", string(make([]byte, 0))+"package big\n"+string(bytesOf('a', 100)))
	writeFile(t, root, "small.go", "package small\n")

	s := testScanner(Config{MaxFileSize: 50})
	result, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, "small.go", result.Files[0].RelPath)
	assert.Equal(t, 1, result.SkippedFiles)
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestScan_RecordFields(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/thing.py", "print('hi')\n")

	s := testScanner(Config{})
	result, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)

	f := result.Files[0]
	assert.Equal(t, "pkg/thing.py", f.RelPath)
	assert.Equal(t, "thing.py", f.Name())
	assert.Equal(t, "Python", f.Language)
	assert.Equal(t, int64(len("print('hi')\n")), f.Size)
	assert.False(t, f.ModTime.IsZero())
}

func TestScan_NotADirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f.go", "package f\n")

	s := testScanner(Config{})
	_, err := s.Scan(context.Background(), filepath.Join(root, "f.go"))
	require.Error(t, err)
}

func TestScan_Restartable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")

	s := testScanner(Config{})
	first, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	writeFile(t, root, "b.go", "package b\n")
	second, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, first.Files, 1)
	assert.Len(t, second.Files, 2)
}

func TestFileRecord_HashCached(t *testing.T) {
	f := &FileRecord{Content: "hello"}
	h1 := f.Hash()
	h2 := f.Hash()
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Known SHA-256 of "hello".
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", h1)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "Go", DetectLanguage(".go"))
	assert.Equal(t, "Python", DetectLanguage(".PY"))
	assert.Equal(t, "Unknown", DetectLanguage(".zig"))
	assert.True(t, IsCode("Go"))
	assert.False(t, IsCode("Markdown"))
}
