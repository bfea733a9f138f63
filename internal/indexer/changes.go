package indexer

import "github.com/fyrsmithlabs/codescout/internal/scanner"

// Verdict classifies a file relative to its stored entry.
type Verdict string

const (
	VerdictAdded     Verdict = "added"
	VerdictModified  Verdict = "modified"
	VerdictUnchanged Verdict = "unchanged"
	VerdictDeleted   Verdict = "deleted"
)

// DetectChange compares a scanned file against its stored entry and
// returns a verdict.
//
// The comparison is a cheap-to-expensive cascade: a size difference is
// conclusive on its own; equal size and mtime means unchanged without
// reading content; only an mtime difference with equal size forces the
// SHA-256 comparison (a touch without an edit stays unchanged).
func DetectChange(file *scanner.FileRecord, prior *FileEntry) Verdict {
	if prior == nil {
		return VerdictAdded
	}
	if file.Size != prior.Size {
		return VerdictModified
	}
	if file.ModTime.UnixNano() == prior.ModTime {
		return VerdictUnchanged
	}
	// An mtime mismatch alone is not conclusive. Checkouts and build tools
	// touch files without editing them; the hash is authoritative.
	if file.Hash() == prior.Hash {
		return VerdictUnchanged
	}
	return VerdictModified
}
