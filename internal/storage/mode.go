package storage

import (
	"sync/atomic"

	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/metrics"
)

// Mode is the capture pipeline's operational state: NORMAL,
// PENDING_EMBEDDING (embedding down, store healthy), QUEUE_TO_FILE
// (store down), and PASSTHROUGH (both down — writes dropped, logged).
type Mode int32

const (
	ModeNormal Mode = iota
	ModePendingEmbedding
	ModeQueueToFile
	ModePassthrough
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModePendingEmbedding:
		return "PENDING_EMBEDDING"
	case ModeQueueToFile:
		return "QUEUE_TO_FILE"
	case ModePassthrough:
		return "PASSTHROUGH"
	default:
		return "UNKNOWN"
	}
}

// modeTracker derives the current operational mode from the last
// observed health of the embedding and vector-store dependencies.
type modeTracker struct {
	state int32 // Mode, accessed atomically
}

func (t *modeTracker) current() Mode {
	return Mode(atomic.LoadInt32(&t.state))
}

// observe updates the tracked mode given the latest health probe
// results and logs+counts any transition.
func (t *modeTracker) observe(embeddingHealthy, storeHealthy bool) Mode {
	var next Mode
	switch {
	case embeddingHealthy && storeHealthy:
		next = ModeNormal
	case !embeddingHealthy && storeHealthy:
		next = ModePendingEmbedding
	case embeddingHealthy && !storeHealthy:
		next = ModeQueueToFile
	default:
		next = ModePassthrough
	}

	prev := Mode(atomic.SwapInt32(&t.state, int32(next)))
	if prev != next {
		metrics.DegradedTransition.Inc()
		logging.StorageWarn("storage: operational mode %s -> %s", prev, next)
	}
	return next
}
