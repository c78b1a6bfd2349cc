// Package purge implements age-based deletion with a dry-run default,
// plus append-only audit trails for both confirmed purges and
// kill-switch toggles.
//
// The audit trail is a JSONL append-only event log, the same shape
// used by this module's own logging package, repurposed here from
// log events to purge/kill-switch records.
package purge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/vstore"
)

// Request parameterizes one purge call.
type Request struct {
	OlderThan  time.Time
	Collection model.Collection // zero value means all three collections
	GroupID    string
	Confirm    bool // false => dry run, no deletions
}

// CollectionResult reports one collection's matched/deleted counts.
type CollectionResult struct {
	Collection model.Collection
	Matched    int
	Deleted    int
}

// Result is the tagged result of a purge call.
type Result struct {
	DryRun  bool
	Results []CollectionResult
}

// PurgeLogEntry is one append-only purge-log.jsonl line.
type PurgeLogEntry struct {
	Timestamp  int64               `json:"ts"`
	OlderThan  int64               `json:"older_than"`
	GroupID    string              `json:"group_id"`
	Collections []CollectionResult `json:"collections"`
}

// KillSwitchLogEntry is one append-only kill-switch-log.jsonl line.
type KillSwitchLogEntry struct {
	Timestamp int64  `json:"ts"`
	Flag      string `json:"flag"`
	Value     bool   `json:"value"`
	Reason    string `json:"reason,omitempty"`
}

// Engine runs purges against a vector store and appends an audit trail.
type Engine struct {
	store    vstore.Client
	auditDir string
	mu       sync.Mutex
}

// New builds a purge Engine; auditDir is the directory purge-log.jsonl
// and kill-switch-log.jsonl are appended to.
func New(store vstore.Client, auditDir string) *Engine {
	return &Engine{store: store, auditDir: auditDir}
}

func targetCollections(c model.Collection) []model.Collection {
	if c != "" {
		return []model.Collection{c}
	}
	return model.AllCollections
}

// Purge scans every targeted collection for points older than
// req.OlderThan and, when req.Confirm is true, deletes them and appends
// one purge-log.jsonl line with the cutoff, scope, and per-collection
// deletion counts. Dry runs (the default) never call Delete and never
// write the audit log.
func (e *Engine) Purge(ctx context.Context, req Request) (Result, error) {
	if req.GroupID == "" {
		return Result{}, model.NewError(model.KindInvalidInput, "purge requires a group_id", nil)
	}

	result := Result{DryRun: !req.Confirm}
	for _, collection := range targetCollections(req.Collection) {
		cr, err := e.purgeCollection(ctx, collection, req)
		if err != nil {
			return Result{}, err
		}
		result.Results = append(result.Results, cr)
	}

	if req.Confirm {
		if err := e.appendPurgeLog(req, result.Results); err != nil {
			logging.PurgeError("purge: failed to write audit log: %v", err)
			return Result{}, err
		}
	}
	return result, nil
}

func (e *Engine) purgeCollection(ctx context.Context, collection model.Collection, req Request) (CollectionResult, error) {
	filter := vstore.Filter{Terms: []vstore.FilterTerm{vstore.EqGroup(req.GroupID)}}
	points, err := e.store.Scroll(ctx, collection, filter, 100_000, 0)
	if err != nil {
		return CollectionResult{}, err
	}

	var matched []string
	for _, p := range points {
		if p.StoredAt.Before(req.OlderThan) {
			matched = append(matched, p.ID)
		}
	}
	cr := CollectionResult{Collection: collection, Matched: len(matched)}
	if !req.Confirm || len(matched) == 0 {
		return cr, nil
	}
	if err := e.store.Delete(ctx, collection, matched); err != nil {
		return cr, err
	}
	cr.Deleted = len(matched)
	return cr, nil
}

// ToggleKillSwitch appends an audit trail line recording a kill-switch
// flag transition. It is audit-only: callers still need to update the
// live config to make the flag take effect.
func (e *Engine) ToggleKillSwitch(flag string, value bool, reason string) error {
	entry := KillSwitchLogEntry{Timestamp: time.Now().UnixMilli(), Flag: flag, Value: value, Reason: reason}
	return e.appendJSONLine(filepath.Join(e.auditDir, "kill-switch-log.jsonl"), entry)
}

func (e *Engine) appendPurgeLog(req Request, results []CollectionResult) error {
	entry := PurgeLogEntry{
		Timestamp:   time.Now().UnixMilli(),
		OlderThan:   req.OlderThan.Unix(),
		GroupID:     req.GroupID,
		Collections: results,
	}
	return e.appendJSONLine(filepath.Join(e.auditDir, "purge-log.jsonl"), entry)
}

func (e *Engine) appendJSONLine(path string, v interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("purge: mkdir audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("purge: open audit log %s: %w", path, err)
	}
	defer f.Close()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("purge: marshal audit entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("purge: write audit entry: %w", err)
	}
	return nil
}
