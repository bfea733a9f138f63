package indexer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/codescout/internal/chunk"
	"github.com/fyrsmithlabs/codescout/internal/scanner"
)

// Entity type tags stored in document metadata.
const (
	TypeRepository = "repository"
	TypeFile       = "file"
	TypeChunk      = "chunk"
)

// maxFileDocChars bounds the stored document text for a file entry. The
// full content lives on disk; the entry only needs enough text to embed.
const maxFileDocChars = 5000

// FileEntry is the stored representation of one indexed file.
type FileEntry struct {
	RepoName string
	FilePath string
	FileName string
	Language string
	Size     int64

	// ModTime is the file modification time in Unix nanoseconds.
	ModTime int64

	// Hash is the SHA-256 hex digest of the file content.
	Hash string
}

// NewFileEntry builds a FileEntry from a scanned file.
func NewFileEntry(repoName string, f *scanner.FileRecord) *FileEntry {
	return &FileEntry{
		RepoName: repoName,
		FilePath: f.RelPath,
		FileName: f.Name(),
		Language: f.Language,
		Size:     f.Size,
		ModTime:  f.ModTime.UnixNano(),
		Hash:     f.Hash(),
	}
}

// Metadata encodes the entry as flat string pairs for the store.
func (e *FileEntry) Metadata() map[string]string {
	return map[string]string{
		"type":      TypeFile,
		"repo_name": e.RepoName,
		"file_path": e.FilePath,
		"file_name": e.FileName,
		"language":  e.Language,
		"file_type": "text",
		"size":      strconv.FormatInt(e.Size, 10),
		"mtime":     strconv.FormatInt(e.ModTime, 10),
		"hash":      e.Hash,
	}
}

// FileEntryFromMetadata decodes a stored file entry. Missing or malformed
// fields degrade to zero values rather than failing: a corrupt entry then
// compares as modified and gets rewritten on the next run.
func FileEntryFromMetadata(m map[string]string) *FileEntry {
	size, _ := strconv.ParseInt(m["size"], 10, 64)
	mtime, _ := strconv.ParseInt(m["mtime"], 10, 64)
	return &FileEntry{
		RepoName: m["repo_name"],
		FilePath: m["file_path"],
		FileName: m["file_name"],
		Language: m["language"],
		Size:     size,
		ModTime:  mtime,
		Hash:     m["hash"],
	}
}

// FileDocument returns the text stored for a file, truncated so oversized
// files do not bloat the index.
func FileDocument(content string) string {
	if len(content) > maxFileDocChars {
		return content[:maxFileDocChars] + "..."
	}
	return content
}

// ChunkEntry is the stored representation of one content chunk.
type ChunkEntry struct {
	RepoName  string
	FilePath  string
	FileName  string
	ChunkID   int
	ChunkType string
	Language  string
}

// NewChunkEntry builds a ChunkEntry for one chunk of a scanned file.
func NewChunkEntry(repoName string, f *scanner.FileRecord, c chunk.Chunk) *ChunkEntry {
	return &ChunkEntry{
		RepoName:  repoName,
		FilePath:  f.RelPath,
		FileName:  f.Name(),
		ChunkID:   c.Index,
		ChunkType: string(c.Kind),
		Language:  f.Language,
	}
}

// Metadata encodes the entry as flat string pairs for the store.
func (e *ChunkEntry) Metadata() map[string]string {
	return map[string]string{
		"type":       TypeChunk,
		"repo_name":  e.RepoName,
		"file_path":  e.FilePath,
		"file_name":  e.FileName,
		"chunk_id":   strconv.Itoa(e.ChunkID),
		"chunk_type": e.ChunkType,
		"language":   e.Language,
		"file_type":  "text",
	}
}

// ChunkEntryFromMetadata decodes a stored chunk entry.
func ChunkEntryFromMetadata(m map[string]string) *ChunkEntry {
	chunkID, _ := strconv.Atoi(m["chunk_id"])
	return &ChunkEntry{
		RepoName:  m["repo_name"],
		FilePath:  m["file_path"],
		FileName:  m["file_name"],
		ChunkID:   chunkID,
		ChunkType: m["chunk_type"],
		Language:  m["language"],
	}
}

// RepoEntry is the stored summary of one indexed repository. It is fully
// replaced on every indexing run.
type RepoEntry struct {
	Name       string
	Path       string
	Branch     string
	Language   string
	FileCount  int
	TotalFiles int
	IndexedAt  time.Time
}

// Metadata encodes the entry as flat string pairs for the store.
func (e *RepoEntry) Metadata() map[string]string {
	return map[string]string{
		"type":        TypeRepository,
		"repo_name":   e.Name,
		"path":        e.Path,
		"branch":      e.Branch,
		"language":    e.Language,
		"file_count":  strconv.Itoa(e.FileCount),
		"total_files": strconv.Itoa(e.TotalFiles),
		"indexed_at":  e.IndexedAt.UTC().Format(time.RFC3339),
	}
}

// RepoEntryFromMetadata decodes a stored repository entry.
func RepoEntryFromMetadata(m map[string]string) *RepoEntry {
	fileCount, _ := strconv.Atoi(m["file_count"])
	totalFiles, _ := strconv.Atoi(m["total_files"])
	indexedAt, _ := time.Parse(time.RFC3339, m["indexed_at"])
	return &RepoEntry{
		Name:       m["repo_name"],
		Path:       m["path"],
		Branch:     m["branch"],
		Language:   m["language"],
		FileCount:  fileCount,
		TotalFiles: totalFiles,
		IndexedAt:  indexedAt,
	}
}

// Document synthesizes the searchable description for a repository.
func (e *RepoEntry) Document() string {
	return fmt.Sprintf("Repository %s: %s codebase with %d indexed files (branch %s)",
		e.Name, e.Language, e.FileCount, e.Branch)
}
