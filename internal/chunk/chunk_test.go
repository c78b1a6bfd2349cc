package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindCode, DetectKind("internal/app/app.go"))
	assert.Equal(t, KindMarkdown, DetectKind("README.md"))
	assert.Equal(t, KindProse, DetectKind(""))
	assert.Equal(t, KindProse, DetectKind("notes.txt"))
}

func TestSplit_BelowThresholdReturnsSingleChunk(t *testing.T) {
	chunks := Split("short content", "notes.txt", "doc-1", KindProse, DefaultOptions())
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[0].TotalChunks)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
}

func TestSplit_ProseSplitsOversizedContentIntoMultipleChunks(t *testing.T) {
	var sentences []string
	for i := 0; i < 200; i++ {
		sentences = append(sentences, "This is a reasonably long sentence to push past the token budget.")
	}
	content := strings.Join(sentences, " ")

	opts := Options{MinTokens: 16, MaxTokens: 64, SentenceOverlap: 1}
	chunks := Split(content, "notes.txt", "doc-2", KindProse, opts)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, len(chunks), c.TotalChunks)
		assert.Equal(t, "doc-2", c.DocumentID)
		assert.NotEmpty(t, c.Content)
	}
}

func TestSplit_UnrecognizedCodeFallsBackToProse(t *testing.T) {
	var sentences []string
	for i := 0; i < 200; i++ {
		sentences = append(sentences, "Some unrecognized source text that keeps going on and on.")
	}
	content := strings.Join(sentences, " ")

	opts := Options{MinTokens: 16, MaxTokens: 64, SentenceOverlap: 1}
	chunks := Split(content, "file.unknownlang", "doc-3", KindCode, opts)

	require.Greater(t, len(chunks), 1)
}

func TestSplit_ZeroMaxTokensUsesDefaults(t *testing.T) {
	chunks := Split("short", "f.txt", "doc-4", KindProse, Options{})
	require.Len(t, chunks, 1)
}
