package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, dataRoot string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
data_root: ` + dataRoot + `
vector_store:
  provider: embedded
  embedded_path: ` + filepath.Join(dataRoot, "vectors.db") + `
  dimensions: 8
embedding:
  provider: ollama
  ollama_endpoint: http://localhost:11434
  ollama_model: embeddinggemma
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestNew_WiresEveryCollaboratorWithEmbeddedProvider(t *testing.T) {
	dataRoot := t.TempDir()
	configPath := writeTestConfig(t, dataRoot)

	a, err := New(configPath)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Config)
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Embed)
	assert.NotNil(t, a.Storage)
	assert.NotNil(t, a.Retrieval)
	assert.NotNil(t, a.Hook)
	assert.NotNil(t, a.Queue)
	assert.NotNil(t, a.Purge)
	assert.NotNil(t, a.Classify)
	assert.NotNil(t, a.Freshness)
}

func TestNew_MissingConfigFileFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	a, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, ".ai-memory", a.Config.DataRoot)
}
