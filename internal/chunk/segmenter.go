// Package chunk splits file content into overlapping, semantically
// bounded chunks for indexing.
package chunk

import "strings"

// Kind tags how a chunk boundary was chosen.
type Kind string

const (
	// KindStructural marks a chunk closed at a language declaration boundary.
	KindStructural Kind = "structural"

	// KindWindowed marks a chunk closed purely by accumulated size.
	KindWindowed Kind = "windowed"
)

// Chunk is one contiguous slice of a file's content.
type Chunk struct {
	// Index is the zero-based sequence index within the file.
	// Indices are contiguous from 0 and strictly increasing.
	Index int

	// Kind records how the chunk boundary was chosen.
	Kind Kind

	// Content is the chunk text. Adjacent chunks may share overlapping text.
	Content string

	// Start and End are character offsets into the parent content,
	// located at the first occurrence of the chunk text.
	Start int
	End   int
}

// Segmenter splits content into chunks of a target size with overlap.
type Segmenter struct {
	size    int
	overlap int
}

// NewSegmenter creates a segmenter with the given target chunk size and
// overlap, both in characters.
func NewSegmenter(size, overlap int) *Segmenter {
	return &Segmenter{size: size, overlap: overlap}
}

// minStructuralFill is the fraction of the target size a chunk must reach
// before a structural marker is allowed to close it. Cutting earlier would
// produce pathologically tiny chunks where declarations cluster.
const minStructuralFill = 0.6

// Split segments content into an ordered sequence of chunks covering the
// content end-to-end.
//
// Content no longer than the target size yields exactly one chunk. Longer
// content is split by source line: lines matching a structural marker for
// the language are preferred split points once the accumulated chunk
// exceeds 60% of the target; otherwise chunks close when the next line
// would push them over the target. A line longer than the target size is
// placed in its own chunk, never split mid-line. Each new chunk starts
// with an overlap prefix of trailing lines from the previous one.
func (s *Segmenter) Split(content, language string) []Chunk {
	if len(content) <= s.size {
		return []Chunk{{
			Index:   0,
			Kind:    KindWindowed,
			Content: content,
			Start:   0,
			End:     len(content),
		}}
	}

	markers := markersFor(language)
	lines := strings.Split(content, "\n")

	var chunks []Chunk
	var current []string
	currentSize := 0
	index := 0

	emit := func(kind Kind) {
		chunks = append(chunks, newChunk(strings.Join(current, "\n"), content, index, kind))
		index++
	}
	restart := func(line string) {
		prefix := overlapLines(current, s.overlap)
		current = append(prefix, line)
		currentSize = 0
		for _, l := range current {
			currentSize += len(l) + 1
		}
	}

	for _, line := range lines {
		lineSize := len(line) + 1 // +1 for newline

		if markers != nil && isStructuralBoundary(markers, line) &&
			len(current) > 0 && float64(currentSize) > float64(s.size)*minStructuralFill {
			emit(KindStructural)
			restart(line)
			continue
		}

		if currentSize+lineSize > s.size && len(current) > 0 {
			emit(KindWindowed)
			restart(line)
		} else {
			current = append(current, line)
			currentSize += lineSize
		}
	}

	// Trailing partial content always becomes a final chunk.
	if len(current) > 0 {
		emit(KindWindowed)
	}

	return chunks
}

// newChunk builds a Chunk, locating its offsets at the first occurrence of
// the chunk text within the parent content.
func newChunk(text, parent string, index int, kind Kind) Chunk {
	start := strings.Index(parent, text)
	if start < 0 {
		start = 0
	}
	return Chunk{
		Index:   index,
		Kind:    kind,
		Content: text,
		Start:   start,
		End:     start + len(text),
	}
}

// overlapLines collects trailing lines, working backward, until adding one
// more line would exceed the overlap budget in characters.
func overlapLines(lines []string, overlap int) []string {
	if overlap <= 0 || len(lines) == 0 {
		return nil
	}

	var out []string
	textLen := 0
	for i := len(lines) - 1; i >= 0; i-- {
		if textLen+len(lines[i])+1 > overlap {
			break
		}
		out = append([]string{lines[i]}, out...)
		if textLen == 0 {
			textLen = len(lines[i])
		} else {
			textLen += len(lines[i]) + 1
		}
	}
	return out
}
