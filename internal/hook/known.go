package hook

import (
	"context"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

// StoreFilePatternLookup backs FilePatternLookup with a direct count
// query against the code_patterns collection, the "first edit to a
// file" trigger's only consumer of file-seen state.
type StoreFilePatternLookup struct {
	store vstore.Client
}

// NewStoreFilePatternLookup builds a FilePatternLookup over a vector
// store client.
func NewStoreFilePatternLookup(store vstore.Client) *StoreFilePatternLookup {
	return &StoreFilePatternLookup{store: store}
}

// Known reports whether a file_pattern memory already exists for
// filePath within groupID, i.e. whether this is NOT the first edit.
func (l *StoreFilePatternLookup) Known(ctx context.Context, groupID, filePath string) bool {
	filter := vstore.Filter{Terms: []vstore.FilterTerm{
		vstore.EqGroup(groupID),
		vstore.Eq("type", string(model.TypeFilePattern)),
		vstore.Eq("file_path", filePath),
	}}
	count, err := l.store.Count(ctx, model.CollectionCodePatterns, filter)
	if err != nil {
		return false
	}
	return count > 0
}
