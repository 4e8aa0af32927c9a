package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerRejectsBadWindows(t *testing.T) {
	_, err := NewChunker(0, 0)
	assert.Error(t, err)

	_, err = NewChunker(100, -1)
	assert.Error(t, err)

	// size == overlap would never advance the window start
	_, err = NewChunker(200, 200)
	assert.Error(t, err)

	_, err = NewChunker(100, 200)
	assert.Error(t, err)
}

func TestChunkEmpty(t *testing.T) {
	c, err := NewChunker(1000, 200)
	require.NoError(t, err)
	assert.Nil(t, c.Chunk(""))
}

func TestChunkSingleWindow(t *testing.T) {
	c, err := NewChunker(1000, 200)
	require.NoError(t, err)

	chunks := c.Chunk("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunkDefaults1500(t *testing.T) {
	c, err := NewChunker(1000, 200)
	require.NoError(t, err)

	text := strings.Repeat("A", 1500)
	chunks := c.Chunk(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, text[0:1000], chunks[0])
	assert.Equal(t, text[800:1500], chunks[1])
	assert.Len(t, chunks[1], 700)
}

func TestChunkCoverageAndOverlap(t *testing.T) {
	const (
		size    = 10
		overlap = 3
	)
	c, err := NewChunker(size, overlap)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrstuvwxyz012345678901"
	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)

	// Window i starts at i*(size-overlap); together they cover the text.
	step := size - overlap
	var rebuilt strings.Builder
	for i, ch := range chunks {
		start := i * step
		assert.Equal(t, text[start:min(start+size, len(text))], ch)
		if i == 0 {
			rebuilt.WriteString(ch)
			continue
		}
		rebuilt.WriteString(ch[overlap:])
		prev := chunks[i-1]
		assert.Equal(t, prev[len(prev)-overlap:], ch[:overlap], "chunks %d and %d overlap", i-1, i)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunkMultiByteRunes(t *testing.T) {
	c, err := NewChunker(4, 1)
	require.NoError(t, err)

	chunks := c.Chunk("àéîõü12345")
	for _, ch := range chunks {
		assert.True(t, len([]rune(ch)) <= 4)
	}
	assert.Equal(t, "àéîõ", chunks[0])
}
