package vectorstore

// Document is a single unit of storable content with its metadata.
type Document struct {
	// ID uniquely identifies the document within its collection.
	ID string

	// Content is the text that gets embedded and stored.
	Content string

	// Metadata holds flat string key/value pairs used for filtering.
	Metadata map[string]string
}

// GetResult holds the outcome of a metadata-filtered fetch. The three
// slices are parallel: IDs[i], Documents[i], and Metadatas[i] describe the
// same document.
type GetResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]string
}

// Len returns the number of documents in the result.
func (r *GetResult) Len() int { return len(r.IDs) }

// QueryResult holds the outcome of a similarity search. The slices are
// parallel and ordered by ascending distance (closest match first).
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]string

	// Distances holds cosine distances in [0, 2]; lower is more similar.
	Distances []float32
}

// Len returns the number of results.
func (r *QueryResult) Len() int { return len(r.IDs) }
