package purge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

type fakeClient struct {
	points  map[model.Collection][]model.Point
	deleted map[model.Collection][]string
}

func newFakeClient(points map[model.Collection][]model.Point) *fakeClient {
	return &fakeClient{points: points, deleted: map[model.Collection][]string{}}
}

func (f *fakeClient) EnsureCollection(ctx context.Context, name model.Collection, dim int, idx []string) error {
	return nil
}
func (f *fakeClient) Upsert(ctx context.Context, name model.Collection, points []model.Point) error {
	return nil
}
func (f *fakeClient) Scroll(ctx context.Context, name model.Collection, filter vstore.Filter, limit, offset int) ([]model.Point, error) {
	return f.points[name], nil
}
func (f *fakeClient) GetByID(ctx context.Context, name model.Collection, id string) (*model.Point, error) {
	return nil, nil
}
func (f *fakeClient) Search(ctx context.Context, name model.Collection, vector []float32, filter vstore.Filter, limit int) ([]vstore.ScoredPoint, error) {
	return nil, nil
}
func (f *fakeClient) Delete(ctx context.Context, name model.Collection, ids []string) error {
	f.deleted[name] = append(f.deleted[name], ids...)
	return nil
}
func (f *fakeClient) Count(ctx context.Context, name model.Collection, filter vstore.Filter) (int64, error) {
	return int64(len(f.points[name])), nil
}
func (f *fakeClient) CollectionInfo(ctx context.Context, name model.Collection) (vstore.CollectionInfo, error) {
	return vstore.CollectionInfo{}, nil
}
func (f *fakeClient) Close() error { return nil }

func TestEngine_Purge_DryRunDoesNotDelete(t *testing.T) {
	old := time.Now().Add(-100 * 24 * time.Hour)
	recent := time.Now()
	store := newFakeClient(map[model.Collection][]model.Point{
		model.CollectionCodePatterns: {
			{ID: "old", StoredAt: old},
			{ID: "recent", StoredAt: recent},
		},
	})
	dir := t.TempDir()
	engine := New(store, dir)

	result, err := engine.Purge(context.Background(), Request{
		OlderThan:  time.Now().Add(-30 * 24 * time.Hour),
		Collection: model.CollectionCodePatterns,
		GroupID:    "proj-1",
		Confirm:    false,
	})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 1, result.Results[0].Matched)
	assert.Equal(t, 0, result.Results[0].Deleted)
	assert.Empty(t, store.deleted[model.CollectionCodePatterns])

	_, statErr := os.Stat(filepath.Join(dir, "purge-log.jsonl"))
	assert.True(t, os.IsNotExist(statErr), "dry run must not write an audit log")
}

func TestEngine_Purge_ConfirmedDeletesAndAudits(t *testing.T) {
	old := time.Now().Add(-100 * 24 * time.Hour)
	store := newFakeClient(map[model.Collection][]model.Point{
		model.CollectionCodePatterns: {{ID: "old", StoredAt: old}},
	})
	dir := t.TempDir()
	engine := New(store, dir)

	result, err := engine.Purge(context.Background(), Request{
		OlderThan:  time.Now().Add(-30 * 24 * time.Hour),
		Collection: model.CollectionCodePatterns,
		GroupID:    "proj-1",
		Confirm:    true,
	})
	require.NoError(t, err)
	assert.False(t, result.DryRun)
	assert.Equal(t, []string{"old"}, store.deleted[model.CollectionCodePatterns])

	data, err := os.ReadFile(filepath.Join(dir, "purge-log.jsonl"))
	require.NoError(t, err)

	var entry PurgeLogEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	require.True(t, scanner.Scan())
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "proj-1", entry.GroupID)
	require.Len(t, entry.Collections, 1)
	assert.Equal(t, 1, entry.Collections[0].Deleted)
}

func TestEngine_Purge_RequiresGroupID(t *testing.T) {
	store := newFakeClient(nil)
	engine := New(store, t.TempDir())

	_, err := engine.Purge(context.Background(), Request{OlderThan: time.Now()})
	require.Error(t, err)
}

func TestEngine_ToggleKillSwitch(t *testing.T) {
	dir := t.TempDir()
	engine := New(newFakeClient(nil), dir)

	require.NoError(t, engine.ToggleKillSwitch("auto_update_enabled", true, "operator enabled via CLI"))

	data, err := os.ReadFile(filepath.Join(dir, "kill-switch-log.jsonl"))
	require.NoError(t, err)

	var entry KillSwitchLogEntry
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &entry))
	assert.Equal(t, "auto_update_enabled", entry.Flag)
	assert.True(t, entry.Value)
}
