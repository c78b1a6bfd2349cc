// Package storage implements the capture pipeline orchestrator:
// fingerprinting, near-duplicate suppression, chunking, embedding,
// versioning, persistence, and the queue-to-disk fallback.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Hidden-History/ai-memory-sub002/internal/chunk"
	"github.com/Hidden-History/ai-memory-sub002/internal/classify"
	"github.com/Hidden-History/ai-memory-sub002/internal/config"
	"github.com/Hidden-History/ai-memory-sub002/internal/embedclient"
	"github.com/Hidden-History/ai-memory-sub002/internal/fingerprint"
	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/metrics"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/queue"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

// Status is the closed tagged result of a store() call; callers branch
// on this instead of catching exceptions.
type Status string

const (
	StatusStored    Status = "stored"
	StatusDuplicate Status = "duplicate"
	StatusQueued    Status = "queued"
	StatusFailed    Status = "failed"
)

// Result is the tagged result variant store() returns.
type Result struct {
	Status     Status
	PointIDs   []string
	ExistingID string
	Err        error
}

// Request is one capture intent.
type Request struct {
	Content    string
	Collection model.Collection
	Type       model.MemoryType
	GroupID    string
	FilePath   string
	SourceHook model.EventKind
	Metadata   map[string]interface{}
	// IdentityKey, when non-empty, is the logical-identity key (e.g. a
	// file path or issue key); a second write with the same key but
	// different content supersedes the prior current point instead of
	// coexisting with it.
	IdentityKey string
}

// Engine orchestrates fingerprint -> chunk -> embed -> classify (async)
// -> vector store for every capture.
type Engine struct {
	cfg       *config.Config
	store     vstore.Client
	embed     *embedclient.Client
	checker   *fingerprint.Checker
	classify  *classify.Worker
	pending   *queue.Queue
	mode      modeTracker
}

// New wires an Engine from its already-constructed collaborators.
func New(cfg *config.Config, store vstore.Client, embed *embedclient.Client, checker *fingerprint.Checker, classifyWorker *classify.Worker, pending *queue.Queue) *Engine {
	return &Engine{cfg: cfg, store: store, embed: embed, checker: checker, classify: classifyWorker, pending: pending}
}

// Mode reports the engine's currently observed operational mode.
func (e *Engine) Mode() Mode { return e.mode.current() }

// Defer durably appends req to the pending queue without attempting a
// synchronous fingerprint, dedup, or embed: the hook dispatcher's path
// for capture intents that must survive process exit before a drain
// worker (Queue.Drain) runs them through Store's full pipeline.
func (e *Engine) Defer(req Request) error {
	if req.GroupID == "" {
		return model.NewError(model.KindInvalidInput, "missing group_id", nil)
	}
	entry := queue.Entry{
		ID:          uuid.NewString(),
		Collection:  req.Collection,
		GroupID:     req.GroupID,
		Content:     req.Content,
		Type:        req.Type,
		FilePath:    req.FilePath,
		SourceHook:  req.SourceHook,
		IdentityKey: req.IdentityKey,
		Metadata:    req.Metadata,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := e.pending.Enqueue(entry); err != nil {
		logging.StorageError("storage: failed to durably defer capture: %v", err)
		return model.NewError(model.KindTransportUnavailable, "defer capture", err)
	}
	metrics.QueuedWrites.Inc()
	return nil
}

// Store runs the eight-step capture algorithm for one capture request:
// fingerprint, dedup, chunk, embed, version, persist, classify, queue
// on failure — chunking first when content exceeds the configured
// threshold and running the later steps per chunk.
func (e *Engine) Store(ctx context.Context, req Request) Result {
	if req.GroupID == "" {
		return Result{Status: StatusFailed, Err: model.NewError(model.KindInvalidInput, "missing group_id", nil)}
	}
	if !model.TypeAllowed(req.Collection, req.Type) {
		return Result{Status: StatusFailed, Err: model.NewError(model.KindInvalidInput, "type not permitted for collection", nil)}
	}

	normalized := fingerprint.Normalize(req.Content, false)
	contentHash := fingerprint.Hash(normalized, req.Collection, req.Type, req.IdentityKey)

	existing, err := e.checker.ExactMatch(ctx, req.Collection, req.GroupID, contentHash)
	if err != nil {
		return e.handleTransportFailure(ctx, req, err)
	}
	if existing != nil {
		metrics.SkippedDuplicate.Inc()
		return Result{Status: StatusDuplicate, ExistingID: existing.ID}
	}

	kind := chunk.DetectKind(req.FilePath)
	chunks := chunk.Split(req.Content, req.FilePath, uuid.NewString(), kind, chunk.Options{
		MinTokens:       e.cfg.Capture.MinChunkTokens,
		MaxTokens:       e.cfg.Capture.MaxChunkTokens,
		SentenceOverlap: e.cfg.Capture.SentenceOverlap,
	})
	if len(chunks) == 0 {
		chunks = []chunk.Chunk{{Content: req.Content, ChunkIndex: 0, TotalChunks: 1, DocumentID: uuid.NewString()}}
	}

	var ids []string
	for _, c := range chunks {
		res := e.storeChunk(ctx, req, c, contentHash)
		switch res.Status {
		case StatusDuplicate:
			if len(chunks) == 1 {
				return res
			}
			continue
		case StatusQueued, StatusFailed:
			return res
		}
		ids = append(ids, res.PointIDs...)
	}
	if len(ids) == 0 {
		metrics.SkippedDuplicate.Inc()
		return Result{Status: StatusDuplicate}
	}
	return Result{Status: StatusStored, PointIDs: ids}
}

// storeChunk runs steps 4-8 for a single chunk.
func (e *Engine) storeChunk(ctx context.Context, req Request, c chunk.Chunk, contentHash string) Result {
	vector, embedded := e.embedOrDefer(ctx, c.Content, req.Type)
	e.mode.observe(embedded, true)

	point := model.Point{
		ID:              uuid.NewString(),
		Vector:          vector,
		Content:         c.Content,
		ContentHash:     contentHash,
		Type:            req.Type,
		Collection:      req.Collection,
		GroupID:         req.GroupID,
		StoredAt:        time.Now().UTC(),
		IsCurrent:       true,
		SourceHook:      req.SourceHook,
		FilePath:        req.FilePath,
		EmbeddingStatus: model.EmbeddingReady,
		Metadata:        mergeMetadata(req.Metadata, c),
	}
	if !embedded {
		point.EmbeddingStatus = model.EmbeddingPending
		metrics.PendingEmbeddings.Inc()
	}

	if embedded {
		dup, err := e.checker.NearDuplicate(ctx, req.Collection, req.GroupID, req.Type, vector)
		if err != nil {
			return e.handleTransportFailure(ctx, req, err)
		}
		if dup != nil {
			metrics.SemanticDuplicate.Inc()
			return Result{Status: StatusDuplicate, ExistingID: dup.ID}
		}
	}

	if req.IdentityKey != "" {
		if err := e.supersede(ctx, req.Collection, req.GroupID, req.IdentityKey, point.ID); err != nil {
			logging.StorageWarn("storage: supersession lookup failed for %s: %v", req.IdentityKey, err)
		}
	}

	if err := e.store.Upsert(ctx, req.Collection, []model.Point{point}); err != nil {
		return e.enqueueCapture(req, point, contentHash, "upsert failed: "+err.Error())
	}

	if e.classify != nil {
		e.classify.Enqueue(classify.Task{
			Collection: req.Collection,
			GroupID:    req.GroupID,
			PointID:    point.ID,
			Content:    point.Content,
		})
	}

	return Result{Status: StatusStored, PointIDs: []string{point.ID}}
}

// embedOrDefer embeds content synchronously; on failure it returns a
// zero vector and embedded=false so the caller marks the point
// pending.
func (e *Engine) embedOrDefer(ctx context.Context, content string, memType model.MemoryType) ([]float32, bool) {
	vec, err := e.embed.EmbedOneForType(ctx, content, memType, false)
	if err != nil {
		logging.StorageWarn("storage: embed failed, deferring: %v", err)
		dim := e.embed.Dimensions()
		if dim <= 0 {
			dim = e.cfg.VectorStore.Dimensions
		}
		return make([]float32, dim), false
	}
	return vec, true
}

// supersede marks the prior current point for identityKey as
// is_current=false.
func (e *Engine) supersede(ctx context.Context, collection model.Collection, groupID, identityKey, newID string) error {
	filter := vstore.Filter{Terms: []vstore.FilterTerm{
		vstore.EqGroup(groupID),
		vstore.Eq("file_path", identityKey),
		vstore.Eq("is_current", true),
	}}
	points, err := e.store.Scroll(ctx, collection, filter, 50, 0)
	if err != nil {
		return err
	}
	var toSupersede []model.Point
	for _, p := range points {
		if p.ID == newID {
			continue
		}
		p.IsCurrent = false
		toSupersede = append(toSupersede, p)
	}
	if len(toSupersede) == 0 {
		return nil
	}
	return e.store.Upsert(ctx, collection, toSupersede)
}

// handleTransportFailure classifies a vector-store error as either a
// health-observation update (and returns Queued) or a genuine
// invalid-input failure to propagate unchanged.
func (e *Engine) handleTransportFailure(ctx context.Context, req Request, err error) Result {
	if model.IsKind(err, model.KindInvalidInput) {
		return Result{Status: StatusFailed, Err: err}
	}
	e.mode.observe(true, false)
	point := model.Point{
		ID: "", Content: req.Content, Type: req.Type, Collection: req.Collection,
		GroupID: req.GroupID, FilePath: req.FilePath, SourceHook: req.SourceHook,
	}
	return e.enqueueCapture(req, point, "", err.Error())
}

// enqueueCapture writes a capture intent to the pending queue and
// returns a Queued result.
func (e *Engine) enqueueCapture(req Request, point model.Point, contentHash, reason string) Result {
	entry := queue.Entry{
		ID:          uuid.NewString(),
		Collection:  req.Collection,
		GroupID:     req.GroupID,
		Content:     point.Content,
		Type:        req.Type,
		FilePath:    req.FilePath,
		SourceHook:  req.SourceHook,
		IdentityKey: req.IdentityKey,
		Metadata:    req.Metadata,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := e.pending.Enqueue(entry); err != nil {
		logging.StorageError("storage: failed to enqueue capture (%s): %v", reason, err)
		return Result{Status: StatusFailed, Err: model.NewError(model.KindTransportUnavailable, reason, err)}
	}
	metrics.QueuedWrites.Inc()
	logging.StorageWarn("storage: capture queued (%s)", reason)
	return Result{Status: StatusQueued}
}

// Backfill re-embeds every pending-embedding point in (collection,
// groupID), the recovery half of the embedding-outage scenario: a
// capture stored with a zero vector while the embedding service was
// down gets its real vector once the service is healthy again. Returns
// immediately (attempted=0) without touching the store if the embedding
// service is still unhealthy, so a caller can poll this cheaply.
func (e *Engine) Backfill(ctx context.Context, collection model.Collection, groupID string) (attempted, succeeded int, err error) {
	if !e.embed.IsHealthy(ctx) {
		return 0, 0, nil
	}

	filter := vstore.Filter{Terms: []vstore.FilterTerm{
		vstore.EqGroup(groupID),
		vstore.Eq("embedding_status", string(model.EmbeddingPending)),
	}}
	points, err := e.store.Scroll(ctx, collection, filter, 1000, 0)
	if err != nil {
		return 0, 0, err
	}

	for _, p := range points {
		attempted++
		vec, embedErr := e.embed.EmbedOneForType(ctx, p.Content, p.Type, false)
		if embedErr != nil {
			logging.StorageWarn("storage: backfill embed failed for point %s: %v", p.ID, embedErr)
			continue
		}
		p.Vector = vec
		p.EmbeddingStatus = model.EmbeddingReady
		if upsertErr := e.store.Upsert(ctx, collection, []model.Point{p}); upsertErr != nil {
			logging.StorageWarn("storage: backfill upsert failed for point %s: %v", p.ID, upsertErr)
			continue
		}
		metrics.PendingEmbeddings.Add(-1)
		succeeded++
	}
	return attempted, succeeded, nil
}

func mergeMetadata(base map[string]interface{}, c chunk.Chunk) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+3)
	for k, v := range base {
		out[k] = v
	}
	out["chunk_index"] = c.ChunkIndex
	out["total_chunks"] = c.TotalChunks
	out["document_id"] = c.DocumentID
	if len(c.Breadcrumb) > 0 {
		out["breadcrumb"] = c.Breadcrumb
	}
	return out
}
