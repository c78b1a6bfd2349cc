package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hidden-History/ai-memory-sub002/internal/classify"
	"github.com/Hidden-History/ai-memory-sub002/internal/config"
	"github.com/Hidden-History/ai-memory-sub002/internal/embedclient"
	"github.com/Hidden-History/ai-memory-sub002/internal/fingerprint"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/queue"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

type fakeEngine struct {
	dims      int
	failN     int // fail the next N Embed calls
	calls     int
	unhealthy bool
}

// HealthCheck reports an error only when unhealthy is set, so most
// tests see a healthy embedding service and the backfill tests can
// still force the unhealthy path.
func (f *fakeEngine) HealthCheck(ctx context.Context) error {
	if f.unhealthy {
		return errors.New("embedding service unreachable")
	}
	return nil
}

func (f *fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failN > 0 {
		f.failN--
		return nil, errors.New("embed unavailable")
	}
	return make([]float32, f.dims), nil
}
func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEngine) Dimensions() int { return f.dims }
func (f *fakeEngine) Name() string    { return "fake" }

type fakeStore struct {
	mu       sync.Mutex
	byID     map[string]model.Point
	upserted []model.Point
	upsertErr error
	scrollResult []model.Point
	searchResult []vstore.ScoredPoint
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]model.Point{}}
}

func (f *fakeStore) EnsureCollection(ctx context.Context, name model.Collection, dim int, idx []string) error {
	return nil
}
func (f *fakeStore) Upsert(ctx context.Context, name model.Collection, points []model.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, points...)
	for _, p := range points {
		f.byID[p.ID] = p
	}
	return nil
}
func (f *fakeStore) Scroll(ctx context.Context, name model.Collection, filter vstore.Filter, limit, offset int) ([]model.Point, error) {
	for _, term := range filter.Terms {
		if term.Field == "content_hash" {
			hash, _ := term.Value.(string)
			var hits []model.Point
			for _, p := range f.scrollResult {
				if p.ContentHash == hash {
					hits = append(hits, p)
				}
			}
			return hits, nil
		}
	}
	return f.scrollResult, nil
}
func (f *fakeStore) GetByID(ctx context.Context, name model.Collection, id string) (*model.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[id]; ok {
		return &p, nil
	}
	return nil, nil
}
func (f *fakeStore) Search(ctx context.Context, name model.Collection, vector []float32, filter vstore.Filter, limit int) ([]vstore.ScoredPoint, error) {
	return f.searchResult, nil
}
func (f *fakeStore) Delete(ctx context.Context, name model.Collection, ids []string) error { return nil }
func (f *fakeStore) Count(ctx context.Context, name model.Collection, filter vstore.Filter) (int64, error) {
	return 0, nil
}
func (f *fakeStore) CollectionInfo(ctx context.Context, name model.Collection) (vstore.CollectionInfo, error) {
	return vstore.CollectionInfo{}, nil
}
func (f *fakeStore) Close() error { return nil }

func newTestEngine(t *testing.T, store *fakeStore, engine *fakeEngine) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	embed := embedclient.New(engine, 0)
	checker := fingerprint.NewChecker(store, cfg.Capture.DedupThreshold)
	chain := classify.NewChain(nil, 3, 0)
	classifyQueue, err := queue.New(t.TempDir(), 3)
	require.NoError(t, err)
	worker := classify.NewWorker(chain, store, classifyQueue)
	t.Cleanup(worker.Stop)
	q, err := queue.New(t.TempDir(), 3)
	require.NoError(t, err)
	return New(cfg, store, embed, checker, worker, q)
}

func TestStore_NewContentStoresSuccessfully(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, &fakeEngine{dims: 8})

	result := engine.Store(context.Background(), Request{
		Content:    "we decided to cache user sessions in redis",
		Collection: model.CollectionDiscussions,
		Type:       model.TypeDecision,
		GroupID:    "proj-1",
	})

	assert.Equal(t, StatusStored, result.Status)
	require.Len(t, result.PointIDs, 1)
}

func TestStore_MissingGroupIDFails(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, &fakeEngine{dims: 8})

	result := engine.Store(context.Background(), Request{
		Content:    "anything",
		Collection: model.CollectionDiscussions,
		Type:       model.TypeDecision,
	})
	assert.Equal(t, StatusFailed, result.Status)
}

func TestStore_DisallowedTypeForCollectionFails(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, &fakeEngine{dims: 8})

	result := engine.Store(context.Background(), Request{
		Content:    "anything",
		Collection: model.CollectionDiscussions,
		Type:       model.TypePort,
		GroupID:    "proj-1",
	})
	assert.Equal(t, StatusFailed, result.Status)
}

func TestStore_ExactDuplicateIsSkipped(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, &fakeEngine{dims: 8})

	content := "we decided to cache user sessions in redis"
	normalized := fingerprint.Normalize(content, false)
	hash := fingerprint.Hash(normalized, model.CollectionDiscussions, model.TypeDecision, "")
	store.scrollResult = []model.Point{{ID: "existing", ContentHash: hash}}

	result := engine.Store(context.Background(), Request{
		Content:    content,
		Collection: model.CollectionDiscussions,
		Type:       model.TypeDecision,
		GroupID:    "proj-1",
	})
	assert.Equal(t, StatusDuplicate, result.Status)
	assert.Equal(t, "existing", result.ExistingID)
}

func TestStore_EmbedFailureDefersAndMarksPending(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, &fakeEngine{dims: 8, failN: 10})

	result := engine.Store(context.Background(), Request{
		Content:    "we decided to cache user sessions in redis",
		Collection: model.CollectionDiscussions,
		Type:       model.TypeDecision,
		GroupID:    "proj-1",
	})

	assert.Equal(t, StatusStored, result.Status)
	require.Len(t, result.PointIDs, 1)
	stored := store.byID[result.PointIDs[0]]
	assert.Equal(t, model.EmbeddingPending, stored.EmbeddingStatus)
	assert.Equal(t, ModePendingEmbedding, engine.Mode())
}

func TestEngine_Defer_AppendsToPendingQueueWithoutEmbedding(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, &fakeEngine{dims: 8})

	err := engine.Defer(Request{
		Content:     "deferred capture",
		Collection:  model.CollectionDiscussions,
		Type:        model.TypeDecision,
		GroupID:     "proj-1",
		FilePath:    "notes/todo.md",
		IdentityKey: "notes/todo.md",
	})
	require.NoError(t, err)
	assert.Empty(t, store.upserted, "Defer must not touch the vector store directly")
}

func TestEngine_Defer_MissingGroupIDFails(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, &fakeEngine{dims: 8})

	err := engine.Defer(Request{Content: "anything", Collection: model.CollectionDiscussions, Type: model.TypeDecision})
	assert.Error(t, err)
}

func TestEngine_Backfill_ReembedsPendingPointsWhenServiceRecovers(t *testing.T) {
	store := newFakeStore()
	fake := &fakeEngine{dims: 8}
	engine := newTestEngine(t, store, fake)

	pending := model.Point{
		ID: "pending-1", Content: "we decided to cache sessions",
		Type: model.TypeDecision, Collection: model.CollectionDiscussions,
		GroupID: "proj-1", EmbeddingStatus: model.EmbeddingPending,
	}
	store.byID[pending.ID] = pending
	store.scrollResult = []model.Point{pending}

	attempted, succeeded, err := engine.Backfill(context.Background(), model.CollectionDiscussions, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, model.EmbeddingReady, store.byID["pending-1"].EmbeddingStatus)
	assert.NotEmpty(t, store.byID["pending-1"].Vector)
}

func TestEngine_Backfill_SkipsWhenEmbeddingServiceUnhealthy(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, &fakeEngine{dims: 8, unhealthy: true})
	store.scrollResult = []model.Point{{ID: "pending-1", EmbeddingStatus: model.EmbeddingPending, GroupID: "proj-1"}}

	attempted, succeeded, err := engine.Backfill(context.Background(), model.CollectionDiscussions, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 0, attempted)
	assert.Equal(t, 0, succeeded)
}

func TestStore_UpsertFailureQueuesCapture(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("store unavailable")
	engine := newTestEngine(t, store, &fakeEngine{dims: 8})

	result := engine.Store(context.Background(), Request{
		Content:    "we decided to cache user sessions in redis",
		Collection: model.CollectionDiscussions,
		Type:       model.TypeDecision,
		GroupID:    "proj-1",
	})
	assert.Equal(t, StatusQueued, result.Status)
}

func TestStore_IdentityKeySupersession(t *testing.T) {
	store := newFakeStore()
	store.byID["old"] = model.Point{ID: "old", FilePath: "internal/app.go", IsCurrent: true}
	store.scrollResult = []model.Point{store.byID["old"]}
	engine := newTestEngine(t, store, &fakeEngine{dims: 8})

	result := engine.Store(context.Background(), Request{
		Content:     "updated implementation notes",
		Collection:  model.CollectionCodePatterns,
		Type:        model.TypeImplementation,
		GroupID:     "proj-1",
		FilePath:    "internal/app.go",
		IdentityKey: "internal/app.go",
	})
	require.Equal(t, StatusStored, result.Status)

	old := store.byID["old"]
	assert.False(t, old.IsCurrent)
}
