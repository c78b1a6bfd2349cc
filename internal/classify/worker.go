package classify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/queue"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

// defaultTaskTimeout bounds a single background classification task.
const defaultTaskTimeout = 10 * time.Second

// pollInterval is how often the worker drains its durable queue when no
// wake-up signal has arrived in the meantime.
const pollInterval = 2 * time.Second

// Task is one fire-and-forget classification job enqueued by the
// storage engine after an upsert.
type Task struct {
	Collection model.Collection
	GroupID    string
	PointID    string
	Content    string
}

// Worker durably queues classification jobs (backed by the same
// pending-queue machinery capture intents use — see
// internal/queue/queue.go) and drains them on a timer plus an
// opportunistic wake-up signal, calling the chain and patching the
// stored point's type. Durability matters here because classification
// mutates a persisted point's Type field: an in-memory-only queue would
// silently lose that mutation if the process exited before draining it.
type Worker struct {
	chain *Chain
	store vstore.Client
	queue *queue.Queue
	wake  chan struct{}
	stop  chan struct{}
	done  chan struct{}
}

// NewWorker starts a background worker backed by q, a queue dedicated to
// classification tasks (constructed separately from the capture pending
// queue so the two entry streams never collide).
func NewWorker(chain *Chain, store vstore.Client, q *queue.Queue) *Worker {
	w := &Worker{
		chain: chain,
		store: store,
		queue: q,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue durably appends a task without blocking the capture hot path
// (the queue append is a fast O_APPEND write); a failure to enqueue is
// logged rather than propagated, since classification is best-effort —
// an unclassified point simply keeps DefaultType, an acceptable interim
// value.
func (w *Worker) Enqueue(t Task) {
	entry := queue.Entry{
		ID:         uuid.NewString(),
		Collection: t.Collection,
		GroupID:    t.GroupID,
		Content:    t.Content,
		PointID:    t.PointID,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := w.queue.Enqueue(entry); err != nil {
		logging.ClassifyWarn("classify: failed to durably enqueue task for point %s: %v", t.PointID, err)
		return
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Stop signals the worker to drain whatever remains once more and
// return.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			w.drainOnce(context.Background())
			return
		case <-w.wake:
			w.drainOnce(context.Background())
		case <-ticker.C:
			w.drainOnce(context.Background())
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) {
	if _, _, _, err := w.queue.Drain(ctx, w.attempt); err != nil {
		logging.ClassifyWarn("classify: drain cycle failed: %v", err)
	}
}

func (w *Worker) attempt(ctx context.Context, e queue.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTaskTimeout)
	defer cancel()

	typ := w.chain.Classify(ctx, e.Content, e.Collection)

	point, err := w.store.GetByID(ctx, e.Collection, e.PointID)
	if err != nil {
		return err
	}
	if point == nil {
		// Point was purged or superseded out from under us: nothing left
		// to classify, not a failure worth retrying.
		return nil
	}
	if point.Type == typ {
		return nil
	}
	point.Type = typ
	return w.store.Upsert(ctx, e.Collection, []model.Point{*point})
}

