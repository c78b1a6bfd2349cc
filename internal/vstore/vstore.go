// Package vstore wraps a vector database behind a single typed
// interface. Two concrete providers implement Client: a Qdrant REST
// binding for production use, and an embedded SQLite+sqlite-vec
// binding for local/dev use with no external services.
//
// The collection-CRUD/scroll/search/payload-filter surface follows
// fyrsmithlabs-contextd's internal/vectorstore doc.go; the embedded
// provider follows this module's own sqlite-backed storage idiom.
package vstore

import (
	"context"
	"fmt"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// FilterOp is a closed set of comparison operators a Filter term may use.
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpGte FilterOp = "gte"
	OpLte FilterOp = "lte"
)

// FilterTerm is one equality/range condition on a payload field.
type FilterTerm struct {
	Field string
	Op    FilterOp
	Value interface{}
}

// Filter is an AND-composed set of payload conditions. Every filter passed
// to Scroll or Search must carry a group_id term (invariant 1); the
// wrapper rejects calls that omit it rather than let it pass through to
// the provider.
type Filter struct {
	Terms []FilterTerm
}

// GroupID returns the filter's group_id term value, or "" with ok=false
// if none is present.
func (f Filter) GroupID() (string, bool) {
	for _, t := range f.Terms {
		if t.Field == "group_id" && t.Op == OpEq {
			if s, ok := t.Value.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// EqGroup builds the mandatory tenant-isolation filter term.
func EqGroup(groupID string) FilterTerm {
	return FilterTerm{Field: "group_id", Op: OpEq, Value: groupID}
}

// Eq builds an equality filter term.
func Eq(field string, value interface{}) FilterTerm {
	return FilterTerm{Field: field, Op: OpEq, Value: value}
}

// ScoredPoint is a search hit: the stored point plus its similarity score
// (cosine, provider-native range) against the query vector.
type ScoredPoint struct {
	Point model.Point
	Score float64
}

// CollectionInfo reports basic shape/size facts about a collection.
type CollectionInfo struct {
	Name       string
	Dimensions int
	PointCount int64
}

// Client is the typed vector-store wrapper every provider implements.
// Every method that accepts a Filter enforces invariant 1 (mandatory
// group_id term) before delegating to the provider.
type Client interface {
	EnsureCollection(ctx context.Context, name model.Collection, dim int, payloadIndexes []string) error
	Upsert(ctx context.Context, name model.Collection, points []model.Point) error
	Scroll(ctx context.Context, name model.Collection, filter Filter, limit, offset int) ([]model.Point, error)
	GetByID(ctx context.Context, name model.Collection, id string) (*model.Point, error)
	Search(ctx context.Context, name model.Collection, vector []float32, filter Filter, limit int) ([]ScoredPoint, error)
	Delete(ctx context.Context, name model.Collection, ids []string) error
	Count(ctx context.Context, name model.Collection, filter Filter) (int64, error)
	CollectionInfo(ctx context.Context, name model.Collection) (CollectionInfo, error)
	Close() error
}

// requireGroupID fails loudly when a query filter omits group_id.
// Omission is a programmer error, never a valid "search everything".
func requireGroupID(filter Filter) error {
	if _, ok := filter.GroupID(); !ok {
		return model.NewError(model.KindInvalidInput, "filter missing mandatory group_id term", nil)
	}
	return nil
}

// validate wraps a provider call site, checking the group_id invariant
// before delegating. Providers call this at the top of every
// filter-accepting method instead of duplicating the check.
func validate(filter Filter) error {
	if err := requireGroupID(filter); err != nil {
		return err
	}
	return nil
}

// ErrUnknownProvider is returned by New when config names a provider this
// package does not implement.
var ErrUnknownProvider = fmt.Errorf("vstore: unknown provider")
