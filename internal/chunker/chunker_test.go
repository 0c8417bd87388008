package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Empty(t *testing.T) {
	c := New(0, 0)

	for _, text := range []string{"", "   ", "\n\t\n"} {
		chunks, err := c.Chunk(text)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c := New(DefaultMaxTokens, DefaultOverlapTokens)

	chunks, err := c.Chunk("a short paragraph of text")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "a short paragraph of text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, len([]rune("a short paragraph of text")), chunks[0].EndChar)
}

func TestChunk_OrderedAndBounded(t *testing.T) {
	c := New(100, 10)
	text := strings.Repeat("lorem ipsum dolor sit amet ", 200)

	chunks, err := c.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	runes := []rune(text)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index, "chunks must be ordered by index")
		assert.LessOrEqual(t, ch.TokenCount, 100, "chunk %d exceeds token bound", i)
		assert.Greater(t, ch.EndChar, ch.StartChar)
		assert.Equal(t, string(runes[ch.StartChar:ch.EndChar]), ch.Text,
			"offsets must address the original text")

		if i > 0 {
			assert.Greater(t, ch.StartChar, chunks[i-1].StartChar, "windows must advance")
			assert.Less(t, ch.StartChar, chunks[i-1].EndChar, "consecutive chunks should overlap")
		}
	}

	// Final chunk reaches the end of the text.
	assert.Equal(t, len(runes), chunks[len(chunks)-1].EndChar)
}

func TestChunk_TokenCountMatchesEstimate(t *testing.T) {
	c := New(50, 5)
	text := strings.Repeat("word ", 300)

	chunks, err := c.Chunk(text)
	require.NoError(t, err)

	for _, ch := range chunks {
		assert.Equal(t, EstimateTokens(ch.Text), ch.TokenCount)
	}
}

func TestChunk_CJKOffsets(t *testing.T) {
	c := New(10, 2)
	text := strings.Repeat("知識庫檢索 ", 30)

	chunks, err := c.Chunk(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	runes := []rune(text)
	for _, ch := range chunks {
		assert.Equal(t, string(runes[ch.StartChar:ch.EndChar]), ch.Text,
			"offsets must be rune-based, not byte-based")
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 2, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("知識庫檢"))
}

func TestNew_ClampsOverlap(t *testing.T) {
	c := New(20, 100)
	text := strings.Repeat("alpha beta gamma ", 50)

	chunks, err := c.Chunk(text)
	require.NoError(t, err)
	// Overlap >= max would never advance; New must clamp it.
	assert.Greater(t, len(chunks), 1)
}
