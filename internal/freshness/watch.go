package freshness

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// Watcher optionally runs a live fsnotify watch over a project's working
// tree, debouncing rapid edits and re-running a freshness scan for the
// files that settled.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	engine      *Engine
	collection  model.Collection
	groupID     string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	onExpired func(p Assessment)
}

// NewWatcher builds a Watcher around engine; the root directory to
// watch is passed to Watch.
func NewWatcher(engine *Engine, onExpired func(p Assessment)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     w,
		engine:      engine,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		onExpired:   onExpired,
	}, nil
}

// Watch adds root to the watch set and starts the non-blocking event
// loop for (collection, groupID).
func (w *Watcher) Watch(ctx context.Context, root string, collection model.Collection, groupID string) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.collection = collection
	w.groupID = groupID
	w.mu.Unlock()

	if err := w.watcher.Add(root); err != nil {
		logging.FreshnessWarn("freshness: initial watch of %s failed: %v", root, err)
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watch loop and closes the underlying fsnotify handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.FreshnessWarn("freshness: watcher error: %v", err)
		case <-debounceTicker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if isVCSPath(event.Name) {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func isVCSPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}

func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	collection, groupID := w.collection, w.groupID
	w.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	logging.FreshnessDebug("freshness: rescanning after %d settled file event(s)", len(settled))
	report, err := w.engine.Scan(ctx, collection, groupID)
	if err != nil {
		logging.FreshnessWarn("freshness: live rescan failed: %v", err)
		return
	}
	if w.onExpired == nil {
		return
	}
	for _, a := range report.Actionable {
		if a.Tier == model.TierExpired {
			w.onExpired(a)
		}
	}
}
