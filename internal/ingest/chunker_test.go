package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "valid", size: 1000, overlap: 200},
		{name: "no overlap", size: 100, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -1, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 100, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds size", size: 100, overlap: 150, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker, err := NewChunker(tt.size, tt.overlap)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, chunker)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, chunker)
		})
	}
}

func TestChunker_EmptyInput(t *testing.T) {
	chunker, err := NewChunker(100, 20)
	require.NoError(t, err)

	assert.Nil(t, chunker.Split(""))
	assert.Nil(t, chunker.Split("   \n\t  "))
}

func TestChunker_ShortInputSingleChunk(t *testing.T) {
	chunker, err := NewChunker(100, 20)
	require.NoError(t, err)

	chunks := chunker.Split("short document")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "short document", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len("short document"), chunks[0].End)
}

func TestChunker_SplitsLongText(t *testing.T) {
	chunker, err := NewChunker(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 10)
	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, text[chunk.Start:chunk.End], chunk.Content,
			"chunk content must be an exact slice of the source")
		assert.LessOrEqual(t, len(chunk.Content), 50+utf8.UTFMax,
			"chunks never exceed the size by more than one rune boundary adjustment")
	}

	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(text), chunks[len(chunks)-1].End)
}

func TestChunker_OverlapCoversEveryPosition(t *testing.T) {
	chunker, err := NewChunker(40, 15)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij ", 30)
	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].Start, chunks[i-1].End,
			"chunk %d must start at or before the previous chunk's end", i)
		assert.Greater(t, chunks[i].Start, chunks[i-1].Start,
			"chunk %d must advance past the previous start", i)
	}
}

func TestChunker_PrefersWordBoundaries(t *testing.T) {
	chunker, err := NewChunker(30, 5)
	require.NoError(t, err)

	text := strings.Repeat("alpha beta gamma delta ", 10)
	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 1)

	// With whitespace every few characters the cut always lands after a
	// space, so no word is split across chunks.
	for _, chunk := range chunks[:len(chunks)-1] {
		last := chunk.Content[len(chunk.Content)-1]
		assert.Equal(t, byte(' '), last, "chunk %d should end on a word boundary: %q", chunk.Index, chunk.Content)
	}
}

func TestChunker_UTF8Safety(t *testing.T) {
	chunker, err := NewChunker(20, 4)
	require.NoError(t, err)

	text := strings.Repeat("héllo wörld ünïcode ", 20)
	chunks := chunker.Split(text)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Content),
			"chunk %d splits a multi-byte rune: %q", chunk.Index, chunk.Content)
	}
}

func TestChunker_NoWhitespaceHardCuts(t *testing.T) {
	chunker, err := NewChunker(25, 5)
	require.NoError(t, err)

	text := strings.Repeat("x", 100)
	chunks := chunker.Split(text)
	require.NotEmpty(t, chunks)

	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), 25)
		total += len(chunk.Content)
	}
	// Overlap re-reads characters, so the sum exceeds the input length.
	assert.GreaterOrEqual(t, total, len(text))
	assert.Equal(t, len(text), chunks[len(chunks)-1].End)
}
