// Package search exposes similarity search over the indexed collections
// and normalizes raw store results for presentation.
package search

import (
	"fmt"

	"github.com/fyrsmithlabs/codescout/internal/vectorstore"
)

// Result is one normalized search hit.
type Result struct {
	ID       string
	Content  string
	Metadata map[string]string

	// Distance is the raw cosine distance from the store.
	Distance float32

	// Similarity is 1 - Distance, the score users see and filter on.
	Similarity float32

	// Category is the entity type: repository, file, or chunk.
	Category string

	DisplayName string
	Summary     string
}

// normalize converts a raw query result into presentation form, dropping
// hits below minScore. Input order (ascending distance) is preserved.
func normalize(qr *vectorstore.QueryResult, minScore float32) []Result {
	var results []Result
	for i := range qr.IDs {
		similarity := 1 - qr.Distances[i]
		if similarity < minScore {
			continue
		}

		m := qr.Metadatas[i]
		r := Result{
			ID:         qr.IDs[i],
			Content:    qr.Documents[i],
			Metadata:   m,
			Distance:   qr.Distances[i],
			Similarity: similarity,
			Category:   m["type"],
		}
		r.DisplayName, r.Summary = describe(r.Category, m)
		results = append(results, r)
	}
	return results
}

// describe renders the category-specific display name and summary line.
func describe(category string, m map[string]string) (string, string) {
	switch category {
	case "repository":
		name := m["repo_name"]
		summary := fmt.Sprintf("%s project with %s files", m["language"], m["file_count"])
		return name, summary

	case "file":
		name := fmt.Sprintf("%s/%s", m["repo_name"], m["file_path"])
		summary := fmt.Sprintf("%s file (%s bytes)", m["language"], m["size"])
		return name, summary

	case "chunk":
		name := fmt.Sprintf("%s/%s (chunk %s)", m["repo_name"], m["file_path"], m["chunk_id"])
		summary := fmt.Sprintf("%s %s chunk", m["language"], m["chunk_type"])
		return name, summary

	default:
		return m["repo_name"], ""
	}
}
