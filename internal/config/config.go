// Package config loads the memory layer's immutable runtime configuration.
// Precedence is process environment > YAML config file > built-in
// defaults, layered by Load()/applyEnvOverrides().
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime tunable, composed one struct per concern
// (vector store, embedding, retrieval, capture, hook, freshness, queue,
// logging, feature flags).
type Config struct {
	DataRoot string `yaml:"data_root"`

	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Capture     CaptureConfig     `yaml:"capture"`
	Hook        HookConfig        `yaml:"hook"`
	Freshness   FreshnessConfig   `yaml:"freshness"`
	Queue       QueueConfig       `yaml:"queue"`
	Logging     LoggingConfig     `yaml:"logging"`
	Flags       FeatureFlags      `yaml:"flags"`
}

// VectorStoreConfig configures the vector store client's connection and
// collection dimensionality. Provider selects between the "qdrant"
// (external HNSW service) and "embedded" (local SQLite+sqlite-vec)
// bindings.
type VectorStoreConfig struct {
	Provider   string `yaml:"provider"` // "qdrant" | "embedded"
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	EmbeddedPath string `yaml:"embedded_path"` // sqlite file, relative to DataRoot
	Dimensions int    `yaml:"dimensions"`
}

// EmbeddingConfig configures the embedding client. Provider selects
// between "ollama" and "genai".
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
	TaskType       string `yaml:"task_type"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RetrievalConfig holds the thresholds and budgets governing retrieval.
type RetrievalConfig struct {
	SimilarityThreshold float64          `yaml:"similarity_threshold"`
	MaxRetrievals       int              `yaml:"max_retrievals"`
	TokenBudget         int              `yaml:"token_budget"`
	DecayHalfLifeDays   map[string]int   `yaml:"decay_half_life_days"`
}

// CaptureConfig holds the thresholds governing fingerprinting and the
// capture pipeline.
type CaptureConfig struct {
	DedupThreshold      float64 `yaml:"dedup_threshold"`
	ChunkThresholdChars int     `yaml:"chunk_threshold_chars"`
	MinChunkTokens      int     `yaml:"min_chunk_tokens"`
	MaxChunkTokens      int     `yaml:"max_chunk_tokens"`
	SentenceOverlap     int     `yaml:"sentence_overlap"`
}

// HookConfig bounds the hook dispatcher's latency budget.
type HookConfig struct {
	BudgetMS int `yaml:"budget_ms"`
}

// FreshnessConfig configures the freshness engine's drift-tier
// thresholds.
type FreshnessConfig struct {
	FreshCommits  int    `yaml:"fresh_commits"`
	StaleCommits  int    `yaml:"stale_commits"`
	WorkspaceRoot string `yaml:"workspace_root"` // git working tree the ground-truth checker shells out against
}

// QueueConfig configures the pending queue and replay worker.
type QueueConfig struct {
	MaxAttempts         int `yaml:"max_attempts"`
	DrainIntervalSecond int `yaml:"drain_interval_seconds"`
}

// LoggingConfig configures the structured category logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FeatureFlags holds the operator-facing kill switches.
type FeatureFlags struct {
	AutoUpdateEnabled bool            `yaml:"auto_update_enabled"`
	FreshnessEnabled  bool            `yaml:"freshness_enabled"`
	SyncSources       map[string]bool `yaml:"sync_sources"`
}

// DefaultDecayHalfLives returns the per-type recency decay defaults.
func DefaultDecayHalfLives() map[string]int {
	return map[string]int{
		"session":       21,
		"agent_handoff": 21,
		"implementation": 14,
		"error_fix":      14,
		"refactor":       14,
		"file_pattern":   14,
		"decision":       30,
		"blocker":        30,
		"context":        30,
		"agent_insight":  30,
		"agent_task":     30,
		"rule":           60,
		"guideline":      60,
		"port":           60,
		"naming":         60,
		"structure":      60,
		"preference":     45,
	}
}

// DefaultConfig returns built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DataRoot: ".ai-memory",
		VectorStore: VectorStoreConfig{
			Provider:      "embedded",
			Host:          "localhost",
			Port:          6333,
			EmbeddedPath: "vectors.db",
			Dimensions:    768,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
			TimeoutSeconds: 30,
		},
		Retrieval: RetrievalConfig{
			SimilarityThreshold: 0.7,
			MaxRetrievals:       5,
			TokenBudget:         4000,
			DecayHalfLifeDays:   DefaultDecayHalfLives(),
		},
		Capture: CaptureConfig{
			DedupThreshold:      0.95,
			ChunkThresholdChars: 4000,
			MinChunkTokens:      64,
			MaxChunkTokens:      512,
			SentenceOverlap:     1,
		},
		Hook: HookConfig{BudgetMS: 500},
		Freshness: FreshnessConfig{
			FreshCommits:  5,
			StaleCommits:  20,
			WorkspaceRoot: ".",
		},
		Queue: QueueConfig{
			MaxAttempts:         5,
			DrainIntervalSecond: 30,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Flags: FeatureFlags{
			AutoUpdateEnabled: false,
			FreshnessEnabled:  true,
			SyncSources:       map[string]bool{},
		},
	}
}

// Load reads a YAML config file, falling back to defaults if it does not
// exist, then layers environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Retrieval.DecayHalfLifeDays == nil {
		cfg.Retrieval.DecayHalfLifeDays = DefaultDecayHalfLives()
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides layers process environment on top of file/default
// values, per this package's stated precedence.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AI_MEMORY_DATA_ROOT"); v != "" {
		c.DataRoot = v
	}
	if v := os.Getenv("VECTOR_STORE_PROVIDER"); v != "" {
		c.VectorStore.Provider = v
	}
	if v := os.Getenv("VECTOR_STORE_HOST"); v != "" {
		c.VectorStore.Host = v
	}
	if v := os.Getenv("VECTOR_STORE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.VectorStore.Port = p
		}
	}
	if v := os.Getenv("VECTOR_STORE_API_KEY"); v != "" {
		c.VectorStore.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
		if c.Embedding.Provider == "" {
			c.Embedding.Provider = "genai"
		}
	}
	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Retrieval.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("DEDUP_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Capture.DedupThreshold = f
		}
	}
	if v := os.Getenv("MAX_RETRIEVALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retrieval.MaxRetrievals = n
		}
	}
	if v := os.Getenv("TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retrieval.TokenBudget = n
		}
	}
	if v := os.Getenv("HOOK_BUDGET_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Hook.BudgetMS = n
		}
	}
	if v := os.Getenv("DECAY_TYPE_OVERRIDES"); v != "" {
		applyDecayOverrides(c.Retrieval.DecayHalfLifeDays, v)
	}
	if v := os.Getenv("AUTO_UPDATE_ENABLED"); v != "" {
		c.Flags.AutoUpdateEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("FRESHNESS_ENABLED"); v != "" {
		c.Flags.FreshnessEnabled = v == "true" || v == "1"
	}
}

// applyDecayOverrides parses "type:days,type:days,...".
func applyDecayOverrides(m map[string]int, raw string) {
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(kv) != 2 {
			continue
		}
		days, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			continue
		}
		m[strings.TrimSpace(kv[0])] = days
	}
}

// Save persists the configuration as YAML, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// HookBudget returns the hook latency budget as a duration.
func (c *Config) HookBudget() time.Duration {
	return time.Duration(c.Hook.BudgetMS) * time.Millisecond
}

// EmbeddingTimeout returns the embedding client's per-call timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	if c.Embedding.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

// HalfLifeDays resolves a memory type's decay half-life, in days.
func (c *Config) HalfLifeDays(memType string) float64 {
	if d, ok := c.Retrieval.DecayHalfLifeDays[memType]; ok && d > 0 {
		return float64(d)
	}
	return 30
}

// DeriveGroupID derives the per-project identifier every stored point is
// partitioned by from the host's working directory, so the host process
// never has to mint or persist one itself. filepath.Clean first so cwd
// and cwd/ collide to the same id.
func DeriveGroupID(cwd string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(cwd)))
	return hex.EncodeToString(sum[:])[:16]
}
