// Package fingerprint implements content hashing and duplicate detection
// for the capture pipeline: an exact-hash index lookup and a semantic
// near-duplicate check against the top-K nearest neighbors.
//
// Normalize-then-hash before writing, with deterministic sha256
// fingerprints, mirroring the content-hash idiom used across the rest
// of this module's storage paths.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize collapses runs of whitespace and trims. lowercase is
// applied only when the caller's type configuration calls
// for case-insensitive identity (code content generally should not be
// lowercased, since casing is semantically significant there).
func Normalize(content string, lowercase bool) string {
	n := whitespaceRun.ReplaceAllString(strings.TrimSpace(content), " ")
	if lowercase {
		n = strings.ToLower(n)
	}
	return n
}

// Hash computes a stable content hash from normalized content plus the
// metadata fields that participate in logical identity: collection,
// type, and an optional logical-identity key (e.g. a file path).
func Hash(normalized string, collection model.Collection, typ model.MemoryType, identityKey string) string {
	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(collection))
	h.Write([]byte{0})
	h.Write([]byte(typ))
	h.Write([]byte{0})
	h.Write([]byte(identityKey))
	return hex.EncodeToString(h.Sum(nil))
}

// Checker performs exact and near-duplicate lookups against a vector
// store client.
type Checker struct {
	store          vstore.Client
	dedupThreshold float64
}

// NewChecker builds a Checker bound to a vector store and a near-duplicate
// similarity threshold (default 0.95).
func NewChecker(store vstore.Client, dedupThreshold float64) *Checker {
	if dedupThreshold <= 0 {
		dedupThreshold = 0.95
	}
	return &Checker{store: store, dedupThreshold: dedupThreshold}
}

// ExactMatch looks up an existing current point with the same content
// hash in (collection, group_id).
func (c *Checker) ExactMatch(ctx context.Context, collection model.Collection, groupID, contentHash string) (*model.Point, error) {
	filter := vstore.Filter{Terms: []vstore.FilterTerm{
		vstore.EqGroup(groupID),
		vstore.Eq("content_hash", contentHash),
		vstore.Eq("is_current", true),
	}}
	points, err := c.store.Scroll(ctx, collection, filter, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}
	return &points[0], nil
}

// NearDuplicate runs a top-K semantic similarity check: a search at
// limit=3 scoped to (collection, group_id, type); if any hit's
// similarity is at or above the configured threshold, the write is a
// semantic duplicate and the existing point is returned.
func (c *Checker) NearDuplicate(ctx context.Context, collection model.Collection, groupID string, typ model.MemoryType, vector []float32) (*model.Point, error) {
	filter := vstore.Filter{Terms: []vstore.FilterTerm{
		vstore.EqGroup(groupID),
		vstore.Eq("type", string(typ)),
	}}
	const topK = 3
	hits, err := c.store.Search(ctx, collection, vector, filter, topK)
	if err != nil {
		return nil, err
	}
	for _, hit := range hits {
		if hit.Score >= c.dedupThreshold {
			return &hit.Point, nil
		}
	}
	return nil, nil
}
