package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hidden-History/ai-memory-sub002/internal/hook"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dataRoot := t.TempDir()
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
data_root: ` + dataRoot + `
vector_store:
  provider: embedded
  embedded_path: ` + filepath.Join(dataRoot, "vectors.db") + `
  dimensions: 8
embedding:
  provider: ollama
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestRun_DispatchesEventAndWritesResponse(t *testing.T) {
	configPath := writeTestConfig(t)

	rec := hook.EventRecord{
		EventKind: model.EventUserPromptSubmit,
		Prompt:    "what did we decide about caching?",
		Cwd:       "/work",
		SessionID: "sess-1",
	}
	body, err := json.Marshal(rec)
	require.NoError(t, err)

	var out bytes.Buffer
	code := run(configPath, bytes.NewReader(body), &out)

	assert.Equal(t, 0, code)

	// Response is either empty or a plain-text <retrieved_context> block,
	// never JSON — an empty retrieval result for a fresh store is fine here.
	output := out.String()
	if output != "" {
		assert.Contains(t, output, "<retrieved_context>")
		assert.Contains(t, output, "</retrieved_context>")
	}
}

func TestRun_StartupFailureReturnsNonZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o644))

	var out bytes.Buffer
	code := run(path, bytes.NewReader(nil), &out)

	assert.NotEqual(t, 0, code)
}
