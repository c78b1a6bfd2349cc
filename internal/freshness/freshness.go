// Package freshness classifies file-backed memories into drift tiers
// against an external ground-truth provider, and optionally watches
// the working tree live for changes that invalidate a tier.
package freshness

import (
	"context"
	"sort"

	"github.com/Hidden-History/ai-memory-sub002/internal/config"
	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

// GroundTruth resolves, per file path, the current content fingerprint
// and the number of commits since an arbitrary point in history. It is
// an external collaborator, typically backed by a git log /
// content-hash shell-out in the host environment. collection, typ, and
// identityKey are the same salt fingerprint.Hash used when the point
// was stored, so the returned fingerprint is directly comparable to
// model.Point.ContentHash.
type GroundTruth interface {
	Fingerprint(ctx context.Context, filePath string, collection model.Collection, typ model.MemoryType, identityKey string) (fingerprint string, commitsSince func(since int64) int, ok bool)
}

// Assessment is one (file_path, memory) pair's drift classification.
type Assessment struct {
	Point model.Point
	Tier  model.FreshnessTier
}

// Report is the Freshness Engine's output.
type Report struct {
	Counts     map[model.FreshnessTier]int
	Actionable []Assessment // ordered expired > stale > aging
}

// Engine runs freshness scans against one vector store and ground-truth
// provider.
type Engine struct {
	cfg          *config.Config
	store        vstore.Client
	groundTruth  GroundTruth
	requeue      Requeuer
}

// Requeuer re-enqueues an expired memory's underlying content for
// re-capture when the AUTO_UPDATE_ENABLED kill-switch is on.
type Requeuer interface {
	Requeue(ctx context.Context, p model.Point) error
}

// New builds a freshness Engine.
func New(cfg *config.Config, store vstore.Client, groundTruth GroundTruth, requeue Requeuer) *Engine {
	return &Engine{cfg: cfg, store: store, groundTruth: groundTruth, requeue: requeue}
}

// Scan classifies every file_path-bearing current point in collection
// for groupID against the drift tier table, optionally enqueuing
// expired entries for re-capture if the kill-switch is enabled.
func (e *Engine) Scan(ctx context.Context, collection model.Collection, groupID string) (Report, error) {
	filter := vstore.Filter{Terms: []vstore.FilterTerm{
		vstore.EqGroup(groupID),
		vstore.Eq("is_current", true),
	}}
	points, err := e.store.Scroll(ctx, collection, filter, 10_000, 0)
	if err != nil {
		return Report{}, err
	}

	report := Report{Counts: map[model.FreshnessTier]int{}}
	for _, p := range points {
		if p.FilePath == "" {
			continue
		}
		tier := e.classify(ctx, p)
		report.Counts[tier]++
		if tier == model.TierExpired || tier == model.TierStale || tier == model.TierAging {
			report.Actionable = append(report.Actionable, Assessment{Point: p, Tier: tier})
		}
		if tier == model.TierExpired && e.cfg.Flags.AutoUpdateEnabled && e.requeue != nil {
			if err := e.requeue.Requeue(ctx, p); err != nil {
				logging.FreshnessWarn("freshness: requeue failed for %s: %v", p.FilePath, err)
			}
		}
	}

	sortActionable(report.Actionable)
	return report, nil
}

func (e *Engine) classify(ctx context.Context, p model.Point) model.FreshnessTier {
	// file_path is this codebase's logical-identity key for file-backed
	// points (the same convention StorageRequeuer.Requeue uses), so it
	// doubles as the identityKey salt fingerprint.Hash was given at
	// capture time.
	fingerprint, commitsSince, ok := e.groundTruth.Fingerprint(ctx, p.FilePath, p.Collection, p.Type, p.FilePath)
	if !ok {
		return model.TierUnknown
	}
	if fingerprint != p.ContentHash {
		return model.TierExpired
	}
	commits := commitsSince(p.StoredAt.Unix())
	switch {
	case commits <= e.cfg.Freshness.FreshCommits:
		return model.TierFresh
	case commits <= e.cfg.Freshness.StaleCommits:
		return model.TierAging
	default:
		return model.TierStale
	}
}

var tierRank = map[model.FreshnessTier]int{
	model.TierExpired: 0,
	model.TierStale:   1,
	model.TierAging:   2,
}

// sortActionable orders expired > stale > aging.
func sortActionable(items []Assessment) {
	sort.SliceStable(items, func(i, j int) bool {
		return tierRank[items[i].Tier] < tierRank[items[j].Tier]
	})
}
