package classify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/queue"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

func TestRegex_MatchesPort(t *testing.T) {
	typ := Regex("the service listens on port 8080", model.CollectionConventions)
	assert.Equal(t, model.TypePort, typ)
}

func TestRegex_MatchesErrorFix(t *testing.T) {
	typ := Regex("fixed a panic in the handler", model.CollectionCodePatterns)
	assert.Equal(t, model.TypeErrorFix, typ)
}

func TestRegex_MatchesDecision(t *testing.T) {
	typ := Regex("we decided to use sqlite for local dev", model.CollectionDiscussions)
	assert.Equal(t, model.TypeDecision, typ)
}

func TestRegex_FallsBackToDefaultType(t *testing.T) {
	typ := Regex("nothing interesting here", model.CollectionDiscussions)
	assert.Equal(t, DefaultType, typ)
}

func TestRegex_FallsBackToFirstTaxonomyTypeWhenDefaultNotAllowed(t *testing.T) {
	typ := Regex("nothing interesting here", model.CollectionConventions)
	assert.Equal(t, model.Taxonomy[model.CollectionConventions][0], typ)
}

type stubProvider struct {
	name string
	typ  model.MemoryType
	err  error
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Classify(ctx context.Context, content string, collection model.Collection) (model.MemoryType, error) {
	return s.typ, s.err
}

func TestChain_UsesFirstSuccessfulProvider(t *testing.T) {
	chain := NewChain([]Provider{&stubProvider{name: "p1", typ: model.TypeRefactor}}, 3, time.Second)
	typ := chain.Classify(context.Background(), "anything", model.CollectionCodePatterns)
	assert.Equal(t, model.TypeRefactor, typ)
}

func TestChain_FallsBackWhenProviderErrors(t *testing.T) {
	chain := NewChain([]Provider{&stubProvider{name: "p1", err: errors.New("down")}}, 3, time.Second)
	typ := chain.Classify(context.Background(), "we decided to cache responses", model.CollectionDiscussions)
	assert.Equal(t, model.TypeDecision, typ)
}

func TestChain_FallsBackWhenProviderTypeNotAllowed(t *testing.T) {
	chain := NewChain([]Provider{&stubProvider{name: "p1", typ: model.TypeRule}}, 3, time.Second)
	typ := chain.Classify(context.Background(), "plain text", model.CollectionDiscussions)
	assert.Equal(t, DefaultType, typ)
}

func TestChain_EmptyProviderListFallsStraightToRegex(t *testing.T) {
	chain := NewChain(nil, 3, time.Second)
	typ := chain.Classify(context.Background(), "we decided to retry", model.CollectionDiscussions)
	assert.Equal(t, model.TypeDecision, typ)
}

type fakeStore struct {
	mu        sync.Mutex
	point     *model.Point
	getErr    error
	upserted  []model.Point
	upsertErr error
}

func (f *fakeStore) EnsureCollection(ctx context.Context, name model.Collection, dim int, idx []string) error {
	return nil
}
func (f *fakeStore) Upsert(ctx context.Context, name model.Collection, points []model.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = points
	return f.upsertErr
}
func (f *fakeStore) Scroll(ctx context.Context, name model.Collection, filter vstore.Filter, limit, offset int) ([]model.Point, error) {
	return nil, nil
}
func (f *fakeStore) GetByID(ctx context.Context, name model.Collection, id string) (*model.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.point, f.getErr
}
func (f *fakeStore) Search(ctx context.Context, name model.Collection, vector []float32, filter vstore.Filter, limit int) ([]vstore.ScoredPoint, error) {
	return nil, nil
}
func (f *fakeStore) Delete(ctx context.Context, name model.Collection, ids []string) error { return nil }
func (f *fakeStore) Count(ctx context.Context, name model.Collection, filter vstore.Filter) (int64, error) {
	return 0, nil
}
func (f *fakeStore) CollectionInfo(ctx context.Context, name model.Collection) (vstore.CollectionInfo, error) {
	return vstore.CollectionInfo{}, nil
}
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) upsertedSnapshot() []model.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserted
}

func TestWorker_EnqueueProcessesAndPersistsType(t *testing.T) {
	store := &fakeStore{point: &model.Point{ID: "p1", Type: model.TypeContext, Collection: model.CollectionDiscussions}}
	chain := NewChain(nil, 3, time.Second)
	q, err := queue.New(t.TempDir(), 3)
	require.NoError(t, err)
	worker := NewWorker(chain, store, q)

	worker.Enqueue(Task{Collection: model.CollectionDiscussions, PointID: "p1", Content: "we decided to use postgres"})
	worker.Stop()

	upserted := store.upsertedSnapshot()
	require.Len(t, upserted, 1)
	assert.Equal(t, model.TypeDecision, upserted[0].Type)
}

func TestWorker_EnqueueSkipsWhenTypeUnchanged(t *testing.T) {
	store := &fakeStore{point: &model.Point{ID: "p1", Type: model.TypeDecision, Collection: model.CollectionDiscussions}}
	chain := NewChain(nil, 3, time.Second)
	q, err := queue.New(t.TempDir(), 3)
	require.NoError(t, err)
	worker := NewWorker(chain, store, q)

	worker.Enqueue(Task{Collection: model.CollectionDiscussions, PointID: "p1", Content: "we decided to use postgres"})
	worker.Stop()

	assert.Empty(t, store.upsertedSnapshot())
}
