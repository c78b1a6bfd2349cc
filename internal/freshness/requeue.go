package freshness

import (
	"context"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/storage"
)

// StorageRequeuer re-submits an expired point's content through the
// capture pipeline, superseding the stale point via its file path as
// the logical identity key — the optional auto-update path that
// re-triggers the existing capture flow instead of just flagging
// staleness.
type StorageRequeuer struct {
	engine *storage.Engine
}

// NewStorageRequeuer builds a Requeuer over a capture engine.
func NewStorageRequeuer(engine *storage.Engine) *StorageRequeuer {
	return &StorageRequeuer{engine: engine}
}

// Requeue re-stores p's content, keyed by file path so the write
// supersedes the stale point instead of coexisting with it.
func (r *StorageRequeuer) Requeue(ctx context.Context, p model.Point) error {
	result := r.engine.Store(ctx, storage.Request{
		Content:     p.Content,
		Collection:  p.Collection,
		Type:        p.Type,
		GroupID:     p.GroupID,
		FilePath:    p.FilePath,
		SourceHook:  model.EventPostToolUse,
		Metadata:    p.Metadata,
		IdentityKey: p.FilePath,
	})
	if result.Status == storage.StatusFailed {
		return result.Err
	}
	return nil
}
