package retrieval

import (
	"math"
	"sort"
	"time"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

// Ranked is one retrieval hit with its decomposed scores.
type Ranked struct {
	Point    model.Point
	Semantic float64
	Temporal float64
	Final    float64
}

// HalfLifeFunc resolves a memory type's decay half-life in days; bound
// to config.Config.HalfLifeDays by the caller so this package does not
// import config directly.
type HalfLifeFunc func(memType string) float64

// score computes the decay-weighted final score. The vector
// store's returned score is treated as raw semantic similarity (the
// client owns all ranking math; see the resolved open question in
// SPEC_FULL.md §9), so no decomposition from a "combined" score is needed.
func score(hit vstore.ScoredPoint, halfLife HalfLifeFunc, now time.Time) Ranked {
	ageDays := now.Sub(hit.Point.StoredAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	hl := halfLife(string(hit.Point.Type))
	if hl <= 0 {
		hl = 30
	}
	temporal := math.Pow(0.5, ageDays/hl)
	semantic := hit.Score
	final := 0.7*semantic + 0.3*temporal
	return Ranked{Point: hit.Point, Semantic: semantic, Temporal: temporal, Final: final}
}

// rankAll scores every hit and sorts by final descending, ties broken
// by stored_at descending.
func rankAll(hits []vstore.ScoredPoint, halfLife HalfLifeFunc, now time.Time) []Ranked {
	ranked := make([]Ranked, len(hits))
	for i, h := range hits {
		ranked[i] = score(h, halfLife, now)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Final != ranked[j].Final {
			return ranked[i].Final > ranked[j].Final
		}
		return ranked[i].Point.StoredAt.After(ranked[j].Point.StoredAt)
	})
	return ranked
}
