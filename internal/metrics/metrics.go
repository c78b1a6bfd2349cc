// Package metrics provides a minimal in-process counter/gauge registry
// for operational signals (dedup skips, budget breaches, degraded-mode
// transitions) without naming a sink; implemented on sync/atomic rather
// than pulled from the ecosystem — see DESIGN.md for the
// standard-library justification.
package metrics

import "sync/atomic"

// Counter is a monotonically increasing named count, safe for
// concurrent use from the hot path and background workers alike.
type Counter struct {
	name  string
	value int64
}

func (c *Counter) Inc()          { atomic.AddInt64(&c.value, 1) }
func (c *Counter) Add(n int64)   { atomic.AddInt64(&c.value, n) }
func (c *Counter) Value() int64  { return atomic.LoadInt64(&c.value) }
func (c *Counter) Name() string  { return c.name }

// Gauge is a named value that can move up or down, used for things like
// current pending-queue depth.
type Gauge struct {
	name  string
	value int64
}

func (g *Gauge) Set(n int64)   { atomic.StoreInt64(&g.value, n) }
func (g *Gauge) Value() int64  { return atomic.LoadInt64(&g.value) }
func (g *Gauge) Name() string  { return g.name }

var (
	SkippedDuplicate   = &Counter{name: "skipped_duplicate"}
	SemanticDuplicate  = &Counter{name: "semantic_duplicate"}
	BudgetBreach       = &Counter{name: "hook_budget_breach"}
	DegradedTransition = &Counter{name: "degraded_mode_transition"}
	QueuedWrites       = &Counter{name: "queued_writes"}
	PendingEmbeddings  = &Counter{name: "pending_embeddings"}
	PermanentFailures  = &Counter{name: "permanent_failures"}
	RetrievalEmpty     = &Counter{name: "retrieval_empty"}
	RetrievalDegraded  = &Counter{name: "retrieval_degraded_metadata_only"}

	PendingQueueDepth = &Gauge{name: "pending_queue_depth"}
)

// Snapshot is a point-in-time dump of every named counter and gauge,
// suitable for the hook dispatcher to write to the structured log on
// exit.
type Snapshot struct {
	Counters map[string]int64 `json:"counters"`
	Gauges   map[string]int64 `json:"gauges"`
}

var allCounters = []*Counter{
	SkippedDuplicate, SemanticDuplicate, BudgetBreach, DegradedTransition,
	QueuedWrites, PendingEmbeddings, PermanentFailures, RetrievalEmpty, RetrievalDegraded,
}

var allGauges = []*Gauge{PendingQueueDepth}

// Take dumps every registered counter and gauge into a Snapshot.
func Take() Snapshot {
	s := Snapshot{Counters: make(map[string]int64), Gauges: make(map[string]int64)}
	for _, c := range allCounters {
		s.Counters[c.Name()] = c.Value()
	}
	for _, g := range allGauges {
		s.Gauges[g.Name()] = g.Value()
	}
	return s
}
