package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

func TestTaskTypeFor_Code(t *testing.T) {
	assert.Equal(t, "CODE_RETRIEVAL_QUERY", TaskTypeFor(model.TypeImplementation, true))
	assert.Equal(t, "RETRIEVAL_DOCUMENT", TaskTypeFor(model.TypeImplementation, false))
	assert.Equal(t, "RETRIEVAL_DOCUMENT", TaskTypeFor(model.TypeErrorFix, false))
}

func TestTaskTypeFor_Conventions(t *testing.T) {
	assert.Equal(t, "FACT_VERIFICATION", TaskTypeFor(model.TypeRule, false))
	assert.Equal(t, "FACT_VERIFICATION", TaskTypeFor(model.TypeNaming, true))
}

func TestTaskTypeFor_Discussions(t *testing.T) {
	assert.Equal(t, "QUESTION_ANSWERING", TaskTypeFor(model.TypeDecision, true))
	assert.Equal(t, "RETRIEVAL_DOCUMENT", TaskTypeFor(model.TypeDecision, false))
	assert.Equal(t, "SEMANTIC_SIMILARITY", TaskTypeFor(model.TypeSession, true))
	assert.Equal(t, "SEMANTIC_SIMILARITY", TaskTypeFor(model.TypeAgentHandoff, false))
}

func TestTaskTypeFor_UnknownFallsBackByQueryFlag(t *testing.T) {
	assert.Equal(t, "RETRIEVAL_QUERY", TaskTypeFor(model.MemoryType("unknown"), true))
	assert.Equal(t, "SEMANTIC_SIMILARITY", TaskTypeFor(model.MemoryType("unknown"), false))
}
