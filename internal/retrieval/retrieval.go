// Package retrieval implements the retrieval engine: intent detection,
// cascading collection search under tenant isolation, decay-weighted
// re-ranking, and token-budgeted context assembly.
package retrieval

import (
	"context"
	"time"

	"github.com/Hidden-History/ai-memory-sub002/internal/embedclient"
	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/metrics"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

// Request parameterizes one retrieval call.
type Request struct {
	Query      string
	Collection model.Collection // optional structural filter
	Type       model.MemoryType // optional structural filter
	Intent     Intent            // optional; detected from Query if empty
	Limit      int
	GroupID    string
}

// Engine runs the cascading search + ranking + packing pipeline.
type Engine struct {
	store               vstore.Client
	embed               *embedclient.Client
	similarityThreshold float64
	tokenBudget         int
	halfLife            HalfLifeFunc
}

// New builds a retrieval Engine.
func New(store vstore.Client, embed *embedclient.Client, similarityThreshold float64, tokenBudget int, halfLife HalfLifeFunc) *Engine {
	if similarityThreshold <= 0 {
		similarityThreshold = 0.7
	}
	return &Engine{store: store, embed: embed, similarityThreshold: similarityThreshold, tokenBudget: tokenBudget, halfLife: halfLife}
}

// Retrieve runs the retrieval pipeline: detect intent, search the
// primary collection, cascade to the remaining two if the primary
// collection did not yield enough results at the similarity threshold,
// rank, and pack.
func (e *Engine) Retrieve(ctx context.Context, req Request) (string, []Ranked, error) {
	if req.GroupID == "" {
		return "", nil, model.NewError(model.KindInvalidInput, "missing group_id", nil)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	intent := req.Intent
	if intent == "" {
		intent = DetectIntent(req.Query)
	}
	primary := req.Collection
	if primary == "" {
		primary = intent.PrimaryCollection()
	}

	vector, err := e.embed.EmbedOneForType(ctx, req.Query, req.Type, true)
	if err != nil {
		logging.RetrievalWarn("retrieval: query embedding failed: %v", err)
		return e.degradeToMetadataSearch(ctx, req, primary, limit)
	}

	order := cascadeOrder(primary)
	var allHits []vstore.ScoredPoint
	for _, collection := range order {
		filter := vstore.Filter{Terms: []vstore.FilterTerm{vstore.EqGroup(groupFilterValue(collection, req.GroupID))}}
		if req.Type != "" {
			filter.Terms = append(filter.Terms, vstore.Eq("type", string(req.Type)))
		}
		hits, err := e.store.Search(ctx, collection, vector, filter, limit)
		if err != nil {
			logging.RetrievalWarn("retrieval: search of %s failed: %v", collection, err)
			continue
		}
		allHits = append(allHits, hits...)

		metThreshold := 0
		for _, h := range allHits {
			if h.Score >= e.similarityThreshold {
				metThreshold++
			}
		}
		if metThreshold >= limit {
			break
		}
	}

	if len(allHits) == 0 {
		metrics.RetrievalEmpty.Inc()
		return "", nil, nil
	}

	ranked := rankAll(allHits, e.halfLife, time.Now().UTC())
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return Pack(ranked, e.tokenBudget), ranked, nil
}

// groupFilterValue returns "shared" for the cross-project conventions
// collection and the caller's project group_id otherwise.
func groupFilterValue(collection model.Collection, groupID string) string {
	if collection == model.CollectionConventions {
		return model.SharedGroupID
	}
	return groupID
}

// degradeToMetadataSearch handles the query-embedding-failure edge
// case: fall back to a metadata-only filter scroll if a structural
// filter was supplied, else return empty and record a metric.
func (e *Engine) degradeToMetadataSearch(ctx context.Context, req Request, primary model.Collection, limit int) (string, []Ranked, error) {
	if req.Type == "" {
		metrics.RetrievalEmpty.Inc()
		return "", nil, nil
	}
	metrics.RetrievalDegraded.Inc()
	filter := vstore.Filter{Terms: []vstore.FilterTerm{
		vstore.EqGroup(groupFilterValue(primary, req.GroupID)),
		vstore.Eq("type", string(req.Type)),
	}}
	points, err := e.store.Scroll(ctx, primary, filter, limit, 0)
	if err != nil {
		return "", nil, err
	}
	if len(points) == 0 {
		return "", nil, nil
	}
	hits := make([]vstore.ScoredPoint, len(points))
	for i, p := range points {
		hits[i] = vstore.ScoredPoint{Point: p, Score: e.similarityThreshold}
	}
	ranked := rankAll(hits, e.halfLife, time.Now().UTC())
	return Pack(ranked, e.tokenBudget), ranked, nil
}
