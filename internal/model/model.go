// Package model defines the closed data model shared by every component:
// the three fixed collections and their permitted types, the memory point
// schema, and the tagged error/result variants used in place of untyped
// dictionaries and exceptions.
package model

import (
	"fmt"
	"time"
)

// Collection names a vector index with a fixed payload schema.
type Collection string

const (
	CollectionCodePatterns Collection = "code-patterns"
	CollectionConventions  Collection = "conventions"
	CollectionDiscussions  Collection = "discussions"
)

// SharedGroupID is the fixed tenant key for the cross-project conventions
// collection.
const SharedGroupID = "shared"

// MemoryType is a value from one collection's closed taxonomy.
type MemoryType string

const (
	TypeImplementation MemoryType = "implementation"
	TypeErrorFix       MemoryType = "error_fix"
	TypeRefactor       MemoryType = "refactor"
	TypeFilePattern    MemoryType = "file_pattern"

	TypeRule      MemoryType = "rule"
	TypeGuideline MemoryType = "guideline"
	TypePort      MemoryType = "port"
	TypeNaming    MemoryType = "naming"
	TypeStructure MemoryType = "structure"

	TypeDecision     MemoryType = "decision"
	TypeSession      MemoryType = "session"
	TypeBlocker      MemoryType = "blocker"
	TypePreference   MemoryType = "preference"
	TypeContext      MemoryType = "context"
	TypeAgentHandoff MemoryType = "agent_handoff"
	TypeAgentInsight MemoryType = "agent_insight"
	TypeAgentTask    MemoryType = "agent_task"
)

// Taxonomy maps each collection to its permitted types.
var Taxonomy = map[Collection][]MemoryType{
	CollectionCodePatterns: {TypeImplementation, TypeErrorFix, TypeRefactor, TypeFilePattern},
	CollectionConventions:  {TypeRule, TypeGuideline, TypePort, TypeNaming, TypeStructure},
	CollectionDiscussions: {
		TypeDecision, TypeSession, TypeBlocker, TypePreference, TypeContext,
		TypeAgentHandoff, TypeAgentInsight, TypeAgentTask,
	},
}

// AllCollections lists the three fixed collections in cascade order
// (primary-first is determined by intent, not by this ordering).
var AllCollections = []Collection{CollectionCodePatterns, CollectionConventions, CollectionDiscussions}

// TypeAllowed reports whether typ is in collection's taxonomy (invariant 2).
func TypeAllowed(collection Collection, typ MemoryType) bool {
	for _, t := range Taxonomy[collection] {
		if t == typ {
			return true
		}
	}
	return false
}

// EmbeddingStatus tracks whether a point's vector is the real embedding or
// a zero placeholder awaiting backfill.
type EmbeddingStatus string

const (
	EmbeddingReady   EmbeddingStatus = "ready"
	EmbeddingPending EmbeddingStatus = "pending"
)

// Point is one memory: the unit of storage and retrieval.
type Point struct {
	ID              string                 `json:"id"`
	Vector          []float32              `json:"vector"`
	Content         string                 `json:"content"`
	ContentHash     string                 `json:"content_hash"`
	Type            MemoryType             `json:"type"`
	Collection      Collection             `json:"collection"`
	GroupID         string                 `json:"group_id"`
	StoredAt        time.Time              `json:"stored_at"`
	IsCurrent       bool                   `json:"is_current"`
	SourceHook      EventKind              `json:"source_hook,omitempty"`
	FilePath        string                 `json:"file_path,omitempty"`
	EmbeddingStatus EmbeddingStatus        `json:"embedding_status"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// EventKind is the closed set of hook event kinds the core recognizes.
type EventKind string

const (
	EventSessionStart    EventKind = "session_start"
	EventSessionEnd      EventKind = "session_end"
	EventPreCompact      EventKind = "pre_compact"
	EventUserPromptSubmit EventKind = "user_prompt_submit"
	EventPreToolUse      EventKind = "pre_tool_use"
	EventPostToolUse     EventKind = "post_tool_use"
	EventPostToolUseError EventKind = "post_tool_use_error"
	EventStop            EventKind = "stop"
	EventManualSave      EventKind = "manual_save"
)

// ValidEventKinds is used by the hook dispatcher to reject unrecognized
// event_kind values at ingress.
var ValidEventKinds = map[EventKind]bool{
	EventSessionStart: true, EventSessionEnd: true, EventPreCompact: true,
	EventUserPromptSubmit: true, EventPreToolUse: true, EventPostToolUse: true,
	EventPostToolUseError: true, EventStop: true, EventManualSave: true,
}

// FreshnessTier is the drift classification produced by C12.
type FreshnessTier string

const (
	TierFresh   FreshnessTier = "fresh"
	TierAging   FreshnessTier = "aging"
	TierStale   FreshnessTier = "stale"
	TierExpired FreshnessTier = "expired"
	TierUnknown FreshnessTier = "unknown"
)

// ErrorKind is the closed tagged-error taxonomy shared across the
// module. Every public pipeline boundary returns one of these instead
// of raising.
type ErrorKind string

const (
	KindDuplicate         ErrorKind = "duplicate"
	KindQueued            ErrorKind = "queued"
	KindPendingEmbedding  ErrorKind = "pending_embedding"
	KindTransportUnavailable ErrorKind = "transport_unavailable"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindBudgetExceeded    ErrorKind = "budget_exceeded"
	KindPermanentFailure  ErrorKind = "permanent_failure"
)

// MemoryError is the tagged error variant every component surfaces at its
// public boundary; never raised, always returned and inspected via Kind.
type MemoryError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *MemoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *MemoryError) Unwrap() error { return e.Cause }

// NewError constructs a MemoryError of the given kind.
func NewError(kind ErrorKind, message string, cause error) *MemoryError {
	return &MemoryError{Kind: kind, Message: message, Cause: cause}
}

// IsKind reports whether err is a *MemoryError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	me, ok := err.(*MemoryError)
	return ok && me.Kind == kind
}
