package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goSourceWithNFunctions(n int) string {
	var b strings.Builder
	b.WriteString("package sample\n\n")
	for i := 0; i < n; i++ {
		b.WriteString("// doc comment explaining the function in enough words to matter\n")
		b.WriteString("func Example")
		b.WriteString(strings.Repeat("X", 1))
		b.WriteString("() int {\n\treturn 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1\n}\n\n")
	}
	return b.String()
}

func TestSplitAST_GoSourceSplitsAtFunctionBoundaries(t *testing.T) {
	content := goSourceWithNFunctions(40)
	opts := Options{MinTokens: 16, MaxTokens: 32, SentenceOverlap: 1}

	chunks := Split(content, "sample.go", "doc-go", KindCode, opts)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Contains(t, c.Content, "func Example")
	}
}

func TestSplitAST_UnrecognizedExtensionReturnsNil(t *testing.T) {
	bodies := splitAST("anything at all", "file.nope", DefaultOptions())
	assert.Nil(t, bodies)
}

func TestSplitAST_SingleOversizedFunctionStillProducesOneSegment(t *testing.T) {
	var body strings.Builder
	body.WriteString("func Big() int {\n")
	for i := 0; i < 200; i++ {
		body.WriteString("\t_ = 1 + 1\n")
	}
	body.WriteString("\treturn 0\n}\n")
	content := "package sample\n\n" + body.String()

	opts := Options{MinTokens: 16, MaxTokens: 32, SentenceOverlap: 1}
	chunks := Split(content, "big.go", "doc-big", KindCode, opts)

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "func Big")
}

func TestPackSegments_GreedilyFillsUpToMaxTokens(t *testing.T) {
	segs := []string{"aaaa aaaa aaaa aaaa", "bbbb bbbb bbbb bbbb", "cccc cccc cccc cccc"}
	opts := Options{MaxTokens: 10}

	packed := packSegments(segs, opts)
	require.Greater(t, len(packed), 0)
}
