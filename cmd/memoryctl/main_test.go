package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Hidden-History/ai-memory-sub002/internal/app"
)

func newTestApp(t *testing.T) *app.App {
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

	a, err := app.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}
