// Package classify assigns a collection-scoped type to free-form
// capture content: an ordered provider chain, each guarded by a
// circuit breaker, terminating in a deterministic regex fallback.
//
// The circuit breaker follows github.com/sony/gobreaker's documented
// closed/open/half-open state machine, the same dependency
// jordigilh-kubernaut pulls in for its own LLM-classification-with-
// fallback shape. The terminal regex fallback follows this module's
// small-closed-enum-mapped-by-pattern style used throughout its
// logging package.
package classify

import (
	"context"
	"regexp"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// Provider assigns a type to content; it may be backed by a local model,
// a hosted model, or anything else — the chain does not care.
type Provider interface {
	Name() string
	Classify(ctx context.Context, content string, collection model.Collection) (model.MemoryType, error)
}

// DefaultType is the conservative type used until an asynchronous
// classification completes.
const DefaultType = model.TypeContext

// guardedProvider pairs a Provider with its own circuit breaker so one
// provider's outage cannot cascade into tripping another's breaker.
type guardedProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// Chain tries providers in order, each behind its own breaker, and
// falls back to deterministic regex rules when every provider is
// unavailable or returns no confident type.
type Chain struct {
	guarded []guardedProvider
}

// NewChain builds a provider chain. maxConsecutiveFailures and
// cooldown configure every provider's breaker identically
// (closed -> open after N consecutive failures -> half-open after
// cooldown -> closed again on a successful probe).
func NewChain(providers []Provider, maxConsecutiveFailures uint32, cooldown time.Duration) *Chain {
	c := &Chain{}
	for _, p := range providers {
		name := p.Name()
		settings := gobreaker.Settings{
			Name:    name,
			Timeout: cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.ClassifyWarn("classify: provider %s breaker %s -> %s", name, from, to)
			},
		}
		c.guarded = append(c.guarded, guardedProvider{provider: p, breaker: gobreaker.NewCircuitBreaker(settings)})
	}
	return c
}

// Classify tries each provider in order via its breaker; on exhaustion
// it falls back to Regex.
func (c *Chain) Classify(ctx context.Context, content string, collection model.Collection) model.MemoryType {
	for _, g := range c.guarded {
		result, err := g.breaker.Execute(func() (interface{}, error) {
			return g.provider.Classify(ctx, content, collection)
		})
		if err != nil {
			logging.ClassifyDebug("classify: provider %s unavailable: %v", g.provider.Name(), err)
			continue
		}
		typ, ok := result.(model.MemoryType)
		if !ok || !model.TypeAllowed(collection, typ) {
			continue
		}
		return typ
	}
	return Regex(content, collection)
}

// portPattern matches "port <digits>" style content for the `port` type.
var portPattern = regexp.MustCompile(`(?i)\bport\s+\d+\b`)
var errorPattern = regexp.MustCompile(`(?i)\b(error|exception|panic|traceback|fatal)\b`)
var decisionPattern = regexp.MustCompile(`(?i)\b(we decided|decision:|chose to|rationale)\b`)
var rulePattern = regexp.MustCompile(`(?i)\b(must|never|always|required)\b`)
var namingPattern = regexp.MustCompile(`(?i)\b(naming convention|should be named|call it)\b`)

// Regex is the terminal deterministic fallback: a small set of pattern
// rules mapped to types within the target collection's taxonomy, or
// DefaultType when nothing matches.
func Regex(content string, collection model.Collection) model.MemoryType {
	candidates := []struct {
		pattern *regexp.Regexp
		typ     model.MemoryType
	}{
		{portPattern, model.TypePort},
		{errorPattern, model.TypeErrorFix},
		{decisionPattern, model.TypeDecision},
		{rulePattern, model.TypeRule},
		{namingPattern, model.TypeNaming},
	}
	for _, c := range candidates {
		if c.pattern.MatchString(content) && model.TypeAllowed(collection, c.typ) {
			return c.typ
		}
	}
	if model.TypeAllowed(collection, DefaultType) {
		return DefaultType
	}
	return model.Taxonomy[collection][0]
}
