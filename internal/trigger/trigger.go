// Package trigger implements the Trigger Matcher: mapping one
// structured hook event to zero or more capture/retrieval actions via
// keyword patterns and structured event kinds.
package trigger

import (
	"regexp"
	"strings"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// Mode is the closed set of action modes an event can produce.
type Mode string

const (
	ModeCapture   Mode = "capture"
	ModeRetrieval Mode = "retrieval"
)

// Event is the structured record the host hands the dispatcher.
type Event struct {
	EventKind model.EventKind
	ToolName  string
	ToolInput string
	ToolOutput string
	Prompt    string
	Cwd       string

	// KnownFilePatterns lets trigger 3 (first edit to file) tell whether
	// the edited path already has a file_pattern memory; populated by
	// the caller from a prior Scroll/Search. Empty means "no prior memory".
	KnownFilePatterns map[string]bool
}

// Action is one capture or retrieval intent the matcher emits.
type Action struct {
	Mode       Mode
	Collection model.Collection
	TypeHint   model.MemoryType
	Query      string
	Metadata   map[string]interface{}
}

var (
	errorPattern          = regexp.MustCompile(`(?i)(panic|exception|traceback|error:|fatal:|failed with status|stack trace)`)
	errorSignaturePattern = regexp.MustCompile(`(?m)^.*(panic|exception|error):\s*(.+)$`)

	decisionPattern = regexp.MustCompile(`(?i)\bwhy\s+did\s+we\b|\bwhat\s+was\s+the\s+rationale\b|\bwhy\s+(is|are|was|were)\b`)
	practicePattern = regexp.MustCompile(`(?i)\bhow\s+should\s+i\b|\bbest\s+way\s+to\b|\bwhat'?s\s+the\s+best\b`)
	historyPattern  = regexp.MustCompile(`(?i)\bwhat\s+have\s+we\s+done\b|\bwhere\s+were\s+we\b|\bwhat'?s\s+the\s+status\b`)

	createOps = map[string]bool{"write": true, "create": true, "new_file": true}
)

// Match runs the six canonical triggers plus the session lifecycle
// triggers against one event, returning every action that
// applies (an event may fire more than one trigger).
func Match(ev Event) []Action {
	var actions []Action

	actions = append(actions, matchErrorDetection(ev)...)
	actions = append(actions, matchNewFile(ev)...)
	actions = append(actions, matchFirstEdit(ev)...)
	actions = append(actions, matchDecisionKeywords(ev)...)
	actions = append(actions, matchBestPractice(ev)...)
	actions = append(actions, matchSessionHistory(ev)...)
	actions = append(actions, matchLifecycle(ev)...)

	return actions
}

// matchErrorDetection implements trigger 1: a matching tool_output both
// retrieves prior fixes for the normalized signature and captures the
// full error context as an error_fix candidate.
func matchErrorDetection(ev Event) []Action {
	if !errorPattern.MatchString(ev.ToolOutput) {
		return nil
	}
	signature := normalizeErrorSignature(ev.ToolOutput)
	return []Action{
		{
			Mode:       ModeRetrieval,
			Collection: model.CollectionCodePatterns,
			TypeHint:   model.TypeErrorFix,
			Query:      signature,
			Metadata:   map[string]interface{}{"trigger": "error_detection"},
		},
		{
			Mode:       ModeCapture,
			Collection: model.CollectionCodePatterns,
			TypeHint:   model.TypeErrorFix,
			Query:      ev.ToolOutput,
			Metadata:   map[string]interface{}{"trigger": "error_detection", "signature": signature},
		},
	}
}

// normalizeErrorSignature extracts the first matching error line, or
// falls back to the first non-blank line of the output.
func normalizeErrorSignature(output string) string {
	if m := errorSignaturePattern.FindStringSubmatch(output); len(m) > 0 {
		return strings.TrimSpace(m[0])
	}
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	return output
}

// matchNewFile implements trigger 2: file-creation tool calls retrieve
// naming and structure conventions.
func matchNewFile(ev Event) []Action {
	if !createOps[strings.ToLower(ev.ToolName)] && !createOps[strings.ToLower(ev.ToolInput)] {
		return nil
	}
	if ev.EventKind != model.EventPreToolUse && ev.EventKind != model.EventPostToolUse {
		return nil
	}
	return []Action{
		{Mode: ModeRetrieval, Collection: model.CollectionConventions, TypeHint: model.TypeNaming, Metadata: map[string]interface{}{"trigger": "new_file"}},
		{Mode: ModeRetrieval, Collection: model.CollectionConventions, TypeHint: model.TypeStructure, Metadata: map[string]interface{}{"trigger": "new_file"}},
	}
}

// matchFirstEdit implements trigger 3: an edit to a path with no prior
// file_pattern memory retrieves neighboring file_pattern memories.
func matchFirstEdit(ev Event) []Action {
	if ev.EventKind != model.EventPreToolUse || ev.ToolInput == "" {
		return nil
	}
	if ev.KnownFilePatterns[ev.ToolInput] {
		return nil
	}
	return []Action{
		{
			Mode:       ModeRetrieval,
			Collection: model.CollectionCodePatterns,
			TypeHint:   model.TypeFilePattern,
			Query:      ev.ToolInput,
			Metadata:   map[string]interface{}{"trigger": "first_edit", "file_path": ev.ToolInput},
		},
	}
}

// matchDecisionKeywords implements trigger 4.
func matchDecisionKeywords(ev Event) []Action {
	if ev.Prompt == "" || !decisionPattern.MatchString(ev.Prompt) {
		return nil
	}
	return []Action{
		{Mode: ModeRetrieval, Collection: model.CollectionDiscussions, TypeHint: model.TypeDecision, Query: ev.Prompt, Metadata: map[string]interface{}{"trigger": "decision_keywords"}},
	}
}

// matchBestPractice implements trigger 5.
func matchBestPractice(ev Event) []Action {
	if ev.Prompt == "" || !practicePattern.MatchString(ev.Prompt) {
		return nil
	}
	return []Action{
		{Mode: ModeRetrieval, Collection: model.CollectionConventions, TypeHint: model.TypeRule, Query: ev.Prompt, Metadata: map[string]interface{}{"trigger": "best_practice"}},
		{Mode: ModeRetrieval, Collection: model.CollectionConventions, TypeHint: model.TypeGuideline, Query: ev.Prompt, Metadata: map[string]interface{}{"trigger": "best_practice"}},
	}
}

// matchSessionHistory implements trigger 6.
func matchSessionHistory(ev Event) []Action {
	if ev.Prompt == "" || !historyPattern.MatchString(ev.Prompt) {
		return nil
	}
	return []Action{
		{Mode: ModeRetrieval, Collection: model.CollectionDiscussions, TypeHint: model.TypeSession, Query: ev.Prompt, Metadata: map[string]interface{}{"trigger": "session_history"}},
		{Mode: ModeRetrieval, Collection: model.CollectionDiscussions, TypeHint: model.TypeAgentHandoff, Query: ev.Prompt, Metadata: map[string]interface{}{"trigger": "session_history"}},
	}
}

// matchLifecycle implements the session lifecycle triggers: session-start
// retrieves prior session context; session-end/compact,
// user-prompt-submitted, agent-response-stop, and explicit manual-save
// each emit a capture.
func matchLifecycle(ev Event) []Action {
	switch ev.EventKind {
	case model.EventSessionStart:
		return []Action{{Mode: ModeRetrieval, Collection: model.CollectionDiscussions, TypeHint: model.TypeSession, Metadata: map[string]interface{}{"trigger": "session_start"}}}
	case model.EventSessionEnd, model.EventPreCompact:
		return []Action{{Mode: ModeCapture, Collection: model.CollectionDiscussions, TypeHint: model.TypeSession, Query: ev.Prompt, Metadata: map[string]interface{}{"trigger": "session_end"}}}
	case model.EventUserPromptSubmit:
		return []Action{{Mode: ModeCapture, Collection: model.CollectionDiscussions, TypeHint: model.TypeContext, Query: ev.Prompt, Metadata: map[string]interface{}{"trigger": "user_prompt_submit"}}}
	case model.EventStop:
		return []Action{{Mode: ModeCapture, Collection: model.CollectionDiscussions, TypeHint: model.TypeAgentInsight, Query: ev.ToolOutput, Metadata: map[string]interface{}{"trigger": "agent_response_stop"}}}
	case model.EventManualSave:
		return []Action{{Mode: ModeCapture, Collection: model.CollectionDiscussions, TypeHint: model.TypeContext, Query: ev.Prompt, Metadata: map[string]interface{}{"trigger": "manual_save"}}}
	default:
		return nil
	}
}
