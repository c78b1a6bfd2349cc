// Package hook implements the Hook Dispatcher: the single entry point
// a host process invokes once per event. It parses the event record,
// routes it through the Trigger Matcher, enforces the hard latency
// budget, and renders any retrieved context to stdout.
package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Hidden-History/ai-memory-sub002/internal/config"
	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/metrics"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/retrieval"
	"github.com/Hidden-History/ai-memory-sub002/internal/storage"
	"github.com/Hidden-History/ai-memory-sub002/internal/trigger"
)

// EventRecord is the wire shape read from stdin. group_id is never a
// wire field: the dispatcher derives it itself from cwd
// (config.DeriveGroupID) so the host never has to mint or persist a
// project identifier.
type EventRecord struct {
	EventKind      model.EventKind `json:"event_kind"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      string          `json:"tool_input,omitempty"`
	ToolOutput     string          `json:"tool_output,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	Cwd            string          `json:"cwd"`
	SessionID      string          `json:"session_id"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
}

// Response is the dispatcher's internal result; only Context ever
// reaches the wire, and only when non-empty (see write).
type Response struct {
	Context      string
	BudgetBreach bool
}

// Dispatcher wires the Trigger Matcher to the capture and retrieval
// engines under one hard latency budget.
type Dispatcher struct {
	cfg       *config.Config
	storage   *storage.Engine
	retrieval *retrieval.Engine
	known     FilePatternLookup
}

// FilePatternLookup resolves whether a file path already has a recorded
// file_pattern memory, for trigger 3. StoreFilePatternLookup (known.go)
// answers it with a vector-store Count query on every call.
type FilePatternLookup interface {
	Known(ctx context.Context, groupID, filePath string) bool
}

// New wires a Dispatcher from its collaborators.
func New(cfg *config.Config, storageEngine *storage.Engine, retrievalEngine *retrieval.Engine, known FilePatternLookup) *Dispatcher {
	return &Dispatcher{cfg: cfg, storage: storageEngine, retrieval: retrievalEngine, known: known}
}

// Run reads one event record from r, processes it under the configured
// hard latency budget, and writes the response to w. It always returns
// nil for any graceful-degradation path; a non-nil error is reserved
// for uncatchable faults, on which the caller exits non-zero — every
// success and every graceful-degradation path exits zero.
func (d *Dispatcher) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		logging.HookError("hook: read stdin: %v", err)
		return d.writeEmpty(w)
	}

	var rec EventRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		logging.HookError("hook: parse event record: %v", err)
		return d.writeEmpty(w)
	}
	if !model.ValidEventKinds[rec.EventKind] {
		logging.HookWarn("hook: unrecognized event_kind %q", rec.EventKind)
		return d.writeEmpty(w)
	}

	budget := d.cfg.HookBudget()
	deadline := time.Now().Add(budget)
	budgetCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	timer := logging.StartTimer(logging.CategoryHook, "dispatch")
	resp := d.dispatch(budgetCtx, rec, deadline, budget)
	timer.StopWithThreshold(budget)

	return d.write(w, resp)
}

// dispatch derives the caller's group_id from cwd, matches triggers,
// runs retrieval synchronously (it gates the response), and durably
// enqueues capture actions rather than running them in-process so they
// never delay the event response and never depend on the process
// staying alive to finish them.
func (d *Dispatcher) dispatch(ctx context.Context, rec EventRecord, deadline time.Time, budget time.Duration) Response {
	groupID := config.DeriveGroupID(rec.Cwd)

	ev := trigger.Event{
		EventKind:  rec.EventKind,
		ToolName:   rec.ToolName,
		ToolInput:  rec.ToolInput,
		ToolOutput: rec.ToolOutput,
		Prompt:     rec.Prompt,
		Cwd:        rec.Cwd,
	}
	if d.known != nil && rec.ToolInput != "" {
		if d.known.Known(ctx, groupID, rec.ToolInput) {
			ev.KnownFilePatterns = map[string]bool{rec.ToolInput: true}
		}
	}
	actions := trigger.Match(ev)

	breachAt := deadline.Add(-budget / 5) // 80% of budget consumed
	breached := false

	var contexts []string
	var background []trigger.Action
	for _, a := range actions {
		if a.Mode == trigger.ModeRetrieval {
			if time.Now().After(breachAt) {
				if !breached {
					metrics.BudgetBreach.Inc()
					breached = true
				}
				continue
			}
			contexts = append(contexts, d.runRetrieval(ctx, rec, groupID, a))
		} else {
			background = append(background, a)
		}
	}

	if len(background) > 0 {
		d.enqueueCaptures(groupID, rec, background)
	}

	merged := mergeContexts(contexts)
	return Response{Context: merged, BudgetBreach: breached}
}

func (d *Dispatcher) runRetrieval(ctx context.Context, rec EventRecord, groupID string, a trigger.Action) string {
	req := retrieval.Request{
		Query:      a.Query,
		Collection: a.Collection,
		Type:       a.TypeHint,
		Limit:      d.cfg.Retrieval.MaxRetrievals,
		GroupID:    groupID,
	}
	text, _, err := d.retrieval.Retrieve(ctx, req)
	if err != nil {
		logging.HookWarn("hook: retrieval action failed: %v", err)
		return ""
	}
	return text
}

// enqueueCaptures durably appends each capture-only action to the
// pending queue instead of mutating persisted state in-process: the
// write is a fast O_APPEND line write that still completes well
// within the hook's latency budget, so it never needs its own
// goroutine. A drain worker (Queue.Drain, run via "memoryctl queue
// drain" or a scheduled replay loop) performs the actual
// fingerprint/embed/persist pipeline afterward, so a capture is never
// lost to the process exiting before background work finishes.
func (d *Dispatcher) enqueueCaptures(groupID string, rec EventRecord, actions []trigger.Action) {
	for _, a := range actions {
		content := a.Query
		if content == "" {
			content = rec.ToolOutput
		}
		if content == "" {
			continue
		}
		if err := d.storage.Defer(storage.Request{
			Content:     content,
			Collection:  a.Collection,
			Type:        a.TypeHint,
			GroupID:     groupID,
			FilePath:    rec.ToolInput,
			SourceHook:  rec.EventKind,
			Metadata:    a.Metadata,
			IdentityKey: rec.ToolInput,
		}); err != nil {
			logging.HookWarn("hook: failed to durably enqueue capture: %v", err)
		}
	}
}

func mergeContexts(contexts []string) string {
	var nonEmpty []string
	for _, c := range contexts {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return ""
	case 1:
		return nonEmpty[0]
	default:
		out := nonEmpty[0]
		for _, c := range nonEmpty[1:] {
			out += "\n\n" + c
		}
		return out
	}
}

func (d *Dispatcher) writeEmpty(w io.Writer) error {
	return d.write(w, Response{})
}

// write renders the response to stdout per the hook wire contract:
// either nothing at all, or the already-fenced
// <retrieved_context>...</retrieved_context> block Pack produced — never
// a JSON envelope.
func (d *Dispatcher) write(w io.Writer, resp Response) error {
	if resp.Context == "" {
		return nil
	}
	if _, err := io.WriteString(w, resp.Context); err != nil {
		return fmt.Errorf("hook: write response: %w", err)
	}
	return nil
}
