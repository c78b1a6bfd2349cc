package embedding

import (
	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// TaskTypeFor selects the optimal GenAI embedding task type for a memory
// type, so captures and queries against the same kind of memory land in
// task-tuned embedding space instead of one generic similarity space.
func TaskTypeFor(memType model.MemoryType, isQuery bool) string {
	logging.EmbeddingDebug("TaskTypeFor: mem_type=%s, is_query=%v", memType, isQuery)

	var taskType string
	switch memType {
	case model.TypeImplementation, model.TypeErrorFix, model.TypeRefactor, model.TypeFilePattern:
		if isQuery {
			taskType = "CODE_RETRIEVAL_QUERY"
		} else {
			taskType = "RETRIEVAL_DOCUMENT"
		}
	case model.TypeRule, model.TypeGuideline, model.TypePort, model.TypeNaming, model.TypeStructure:
		taskType = "FACT_VERIFICATION"
	case model.TypeDecision, model.TypeBlocker, model.TypeContext:
		if isQuery {
			taskType = "QUESTION_ANSWERING"
		} else {
			taskType = "RETRIEVAL_DOCUMENT"
		}
	case model.TypeSession, model.TypePreference, model.TypeAgentHandoff, model.TypeAgentInsight, model.TypeAgentTask:
		taskType = "SEMANTIC_SIMILARITY"
	default:
		if isQuery {
			taskType = "RETRIEVAL_QUERY"
		} else {
			taskType = "SEMANTIC_SIMILARITY"
		}
		logging.EmbeddingDebug("TaskTypeFor: unrecognized mem_type=%s, using default %s", memType, taskType)
	}

	logging.EmbeddingDebug("TaskTypeFor: selected task_type=%s", taskType)
	return taskType
}
