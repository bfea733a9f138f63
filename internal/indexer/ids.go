// Package indexer synchronizes repository content into the vector store.
package indexer

import (
	"fmt"
	"strings"
)

// sanitizeID normalizes an identifier component: path separators and dots
// become underscores so IDs stay flat and portable.
var idSanitizer = strings.NewReplacer("/", "_", "\\", "_", ".", "_")

func sanitizeID(s string) string {
	return idSanitizer.Replace(s)
}

// RepoID returns the document ID for a repository summary entry.
func RepoID(repoName string) string {
	return fmt.Sprintf("repo_%s", sanitizeID(repoName))
}

// FileID returns the document ID for a file entry. The same repository
// name and relative path always produce the same ID.
func FileID(repoName, relPath string) string {
	return fmt.Sprintf("file_%s_%s", sanitizeID(repoName), sanitizeID(relPath))
}

// ChunkID returns the document ID for a chunk entry.
func ChunkID(repoName, relPath string, index int) string {
	return fmt.Sprintf("chunk_%s_%s_%d", sanitizeID(repoName), sanitizeID(relPath), index)
}
