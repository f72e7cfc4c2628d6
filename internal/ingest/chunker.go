package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chunk is one ordered slice of a document. Content is always exactly
// text[Start:End] of the source.
type Chunk struct {
	Index   int
	Content string
	Start   int
	End     int
}

// Chunker splits text into fixed-size overlapping chunks, preferring to
// cut on whitespace so words stay intact.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the chunking parameters. Overlap must be
// strictly smaller than size or adjacent chunks could never advance.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap cannot be negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfig, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns the ordered chunks of text. Whitespace-only input
// yields no chunks; input no longer than the chunk size yields one.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= c.size {
		return []Chunk{{Index: 0, Content: text, Start: 0, End: len(text)}}
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = cutPoint(text, start, end)
		}

		piece := text[start:end]
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, Chunk{
				Index:   len(chunks),
				Content: piece,
				Start:   start,
				End:     end,
			})
		}
		if end == len(text) {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = end
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return chunks
}

// cutPoint backs the cut up to the last whitespace in the window when
// one falls in its second half, otherwise hard-cuts at the next rune
// boundary at or after end.
func cutPoint(text string, start, end int) int {
	window := text[start:end]
	if ws := strings.LastIndexAny(window, " \t\n"); ws > len(window)/2 {
		return start + ws + 1
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return end
}
