package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

func TestMatch_ErrorDetection(t *testing.T) {
	ev := Event{
		EventKind:  model.EventPostToolUse,
		ToolOutput: "panic: runtime error: index out of range [3] with length 2\ngoroutine 1 [running]:",
	}
	actions := Match(ev)

	var retrieval, capture *Action
	for i := range actions {
		switch actions[i].Mode {
		case ModeRetrieval:
			if actions[i].Collection == model.CollectionCodePatterns && actions[i].TypeHint == model.TypeErrorFix {
				retrieval = &actions[i]
			}
		case ModeCapture:
			if actions[i].TypeHint == model.TypeErrorFix {
				capture = &actions[i]
			}
		}
	}
	require.NotNil(t, retrieval, "expected an error_fix retrieval action")
	require.NotNil(t, capture, "expected an error_fix capture action")
	assert.Contains(t, retrieval.Query, "panic")
}

func TestMatch_NoErrorOnCleanOutput(t *testing.T) {
	ev := Event{EventKind: model.EventPostToolUse, ToolOutput: "build succeeded"}
	actions := Match(ev)
	for _, a := range actions {
		assert.NotEqual(t, model.TypeErrorFix, a.TypeHint)
	}
}

func TestMatch_NewFileCreation(t *testing.T) {
	ev := Event{EventKind: model.EventPreToolUse, ToolName: "write"}
	actions := Match(ev)

	found := map[model.MemoryType]bool{}
	for _, a := range actions {
		if a.Collection == model.CollectionConventions {
			found[a.TypeHint] = true
		}
	}
	assert.True(t, found[model.TypeNaming])
	assert.True(t, found[model.TypeStructure])
}

func TestMatch_FirstEditToFile(t *testing.T) {
	ev := Event{
		EventKind:         model.EventPreToolUse,
		ToolInput:         "internal/foo/bar.go",
		KnownFilePatterns: map[string]bool{},
	}
	actions := Match(ev)

	var found bool
	for _, a := range actions {
		if a.TypeHint == model.TypeFilePattern {
			found = true
			assert.Equal(t, "internal/foo/bar.go", a.Query)
		}
	}
	assert.True(t, found)
}

func TestMatch_FirstEditSkippedWhenKnown(t *testing.T) {
	ev := Event{
		EventKind:         model.EventPreToolUse,
		ToolInput:         "internal/foo/bar.go",
		KnownFilePatterns: map[string]bool{"internal/foo/bar.go": true},
	}
	actions := Match(ev)
	for _, a := range actions {
		assert.NotEqual(t, model.TypeFilePattern, a.TypeHint)
	}
}

func TestMatch_DecisionKeywords(t *testing.T) {
	ev := Event{Prompt: "why did we choose Postgres over Mongo here?"}
	actions := Match(ev)

	var found bool
	for _, a := range actions {
		if a.TypeHint == model.TypeDecision {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMatch_BestPracticeKeywords(t *testing.T) {
	ev := Event{Prompt: "what's the best way to structure this package?"}
	actions := Match(ev)

	found := map[model.MemoryType]bool{}
	for _, a := range actions {
		found[a.TypeHint] = true
	}
	assert.True(t, found[model.TypeRule])
	assert.True(t, found[model.TypeGuideline])
}

func TestMatch_SessionHistoryKeywords(t *testing.T) {
	ev := Event{Prompt: "where were we on the migration?"}
	actions := Match(ev)

	found := map[model.MemoryType]bool{}
	for _, a := range actions {
		found[a.TypeHint] = true
	}
	assert.True(t, found[model.TypeSession])
	assert.True(t, found[model.TypeAgentHandoff])
}

func TestMatch_SessionLifecycle(t *testing.T) {
	t.Run("session start retrieves session context", func(t *testing.T) {
		actions := Match(Event{EventKind: model.EventSessionStart})
		require.Len(t, actions, 1)
		assert.Equal(t, ModeRetrieval, actions[0].Mode)
		assert.Equal(t, model.TypeSession, actions[0].TypeHint)
	})

	t.Run("session end captures a summary", func(t *testing.T) {
		actions := Match(Event{EventKind: model.EventSessionEnd, Prompt: "wrapping up"})
		require.Len(t, actions, 1)
		assert.Equal(t, ModeCapture, actions[0].Mode)
		assert.Equal(t, model.TypeSession, actions[0].TypeHint)
	})

	t.Run("manual save captures context", func(t *testing.T) {
		actions := Match(Event{EventKind: model.EventManualSave, Prompt: "remember this"})
		require.Len(t, actions, 1)
		assert.Equal(t, ModeCapture, actions[0].Mode)
	})
}

func TestMatch_UnrelatedEventProducesNoActions(t *testing.T) {
	actions := Match(Event{EventKind: model.EventPostToolUse, ToolOutput: "ok"})
	assert.Empty(t, actions)
}
