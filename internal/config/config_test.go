package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ".ai-memory", cfg.DataRoot)
	assert.Equal(t, 0.95, cfg.Capture.DedupThreshold)
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_root: /tmp/custom\ncapture:\n  dedup_threshold: 0.8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom", cfg.DataRoot)
	assert.Equal(t, 0.8, cfg.Capture.DedupThreshold)
}

func TestLoad_EnvOverridesFileAndDefaults(t *testing.T) {
	t.Setenv("AI_MEMORY_DATA_ROOT", "/env/root")
	t.Setenv("DEDUP_THRESHOLD", "0.5")
	t.Setenv("AUTO_UPDATE_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/env/root", cfg.DataRoot)
	assert.Equal(t, 0.5, cfg.Capture.DedupThreshold)
	assert.True(t, cfg.Flags.AutoUpdateEnabled)
}

func TestApplyDecayOverrides(t *testing.T) {
	t.Setenv("DECAY_TYPE_OVERRIDES", "decision:90, rule:180")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Retrieval.DecayHalfLifeDays["decision"])
	assert.Equal(t, 180, cfg.Retrieval.DecayHalfLifeDays["rule"])
}

func TestHookBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hook.BudgetMS = 250
	assert.Equal(t, 250*time.Millisecond, cfg.HookBudget())
}

func TestEmbeddingTimeout_DefaultsWhenUnset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.TimeoutSeconds = 0
	assert.Equal(t, 30*time.Second, cfg.EmbeddingTimeout())
}

func TestHalfLifeDays_FallsBackToThirtyForUnknownType(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, float64(30), cfg.HalfLifeDays("nonexistent-type"))
}

func TestSave_RoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataRoot = "/custom/data"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/custom/data", loaded.DataRoot)
}
