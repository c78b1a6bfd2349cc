// Package app wires one fully-constructed set of collaborators
// (vector store, embedding client, capture engine, retrieval engine,
// hook dispatcher) from a config.Config. Both cmd/hookdispatch and
// cmd/memoryctl share this constructor so the wiring lives in one
// place.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Hidden-History/ai-memory-sub002/internal/classify"
	"github.com/Hidden-History/ai-memory-sub002/internal/config"
	"github.com/Hidden-History/ai-memory-sub002/internal/embedclient"
	"github.com/Hidden-History/ai-memory-sub002/internal/embedding"
	"github.com/Hidden-History/ai-memory-sub002/internal/fingerprint"
	"github.com/Hidden-History/ai-memory-sub002/internal/freshness"
	"github.com/Hidden-History/ai-memory-sub002/internal/hook"
	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/purge"
	"github.com/Hidden-History/ai-memory-sub002/internal/queue"
	"github.com/Hidden-History/ai-memory-sub002/internal/retrieval"
	"github.com/Hidden-History/ai-memory-sub002/internal/storage"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

// payloadIndexes lists the fields every collection is queried by:
// group_id (tenant isolation, invariant 1), content_hash (exact-duplicate
// lookup), type (taxonomy/classification filters), file_path (hook
// known-file and freshness lookups), is_current (supersession),
// embedding_status (embedding-outage backfill scan).
var payloadIndexes = []string{"group_id", "content_hash", "type", "file_path", "is_current", "embedding_status"}

// App is the fully wired dependency graph for one process invocation.
type App struct {
	Config    *config.Config
	Store     vstore.Client
	Embed     *embedclient.Client
	Storage   *storage.Engine
	Retrieval *retrieval.Engine
	Hook      *hook.Dispatcher
	Queue     *queue.Queue
	Purge     *purge.Engine
	Classify  *classify.Worker
	Freshness *freshness.Engine
}

// New loads config from path (falling back to defaults if absent) and
// wires every collaborator. It calls logging.Initialize itself with the
// loaded config's data root and log level before building anything
// else.
func New(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}

	if err := logging.Initialize(cfg.DataRoot, cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("app: initialize logging: %w", err)
	}

	embeddedPath := cfg.VectorStore.EmbeddedPath
	if embeddedPath != "" && !filepath.IsAbs(embeddedPath) {
		embeddedPath = filepath.Join(cfg.DataRoot, embeddedPath)
	}

	store, err := vstore.New(vstore.Config{
		Provider:     cfg.VectorStore.Provider,
		Host:         cfg.VectorStore.Host,
		Port:         cfg.VectorStore.Port,
		APIKey:       cfg.VectorStore.APIKey,
		UseTLS:       cfg.VectorStore.UseTLS,
		EmbeddedPath: embeddedPath,
		Dimensions:   cfg.VectorStore.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("app: construct vector store: %w", err)
	}
	for _, collection := range model.AllCollections {
		if err := store.EnsureCollection(context.Background(), collection, cfg.VectorStore.Dimensions, payloadIndexes); err != nil {
			return nil, fmt.Errorf("app: ensure collection %s: %w", collection, err)
		}
	}

	engine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       cfg.Embedding.TaskType,
	})
	if err != nil {
		return nil, fmt.Errorf("app: construct embedding engine: %w", err)
	}
	embed := embedclient.New(engine, cfg.EmbeddingTimeout())

	pending, err := queue.New(cfg.DataRoot, cfg.Queue.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("app: construct pending queue: %w", err)
	}

	checker := fingerprint.NewChecker(store, cfg.Capture.DedupThreshold)
	classifyQueue, err := queue.New(filepath.Join(cfg.DataRoot, "classify"), cfg.Queue.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("app: construct classify queue: %w", err)
	}
	classifyChain := classify.NewChain(nil, 3, 30*time.Second)
	classifyWorker := classify.NewWorker(classifyChain, store, classifyQueue)

	storageEngine := storage.New(cfg, store, embed, checker, classifyWorker, pending)

	halfLife := func(memType string) float64 { return cfg.HalfLifeDays(memType) }
	retrievalEngine := retrieval.New(store, embed, cfg.Retrieval.SimilarityThreshold, cfg.Retrieval.TokenBudget, halfLife)

	knownFiles := hook.NewStoreFilePatternLookup(store)
	dispatcher := hook.New(cfg, storageEngine, retrievalEngine, knownFiles)

	purgeEngine := purge.New(store, cfg.DataRoot)

	groundTruth := freshness.NewGitGroundTruth(cfg.Freshness.WorkspaceRoot)
	requeuer := freshness.NewStorageRequeuer(storageEngine)
	freshnessEngine := freshness.New(cfg, store, groundTruth, requeuer)

	return &App{
		Config:    cfg,
		Store:     store,
		Embed:     embed,
		Storage:   storageEngine,
		Retrieval: retrievalEngine,
		Hook:      dispatcher,
		Queue:     pending,
		Purge:     purgeEngine,
		Classify:  classifyWorker,
		Freshness: freshnessEngine,
	}, nil
}

// Close releases the App's held resources (vector store connections,
// background workers).
func (a *App) Close() error {
	a.Classify.Stop()
	return a.Store.Close()
}
