package freshness

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Hidden-History/ai-memory-sub002/internal/fingerprint"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// GitGroundTruth backs GroundTruth with the same normalize-then-hash
// content fingerprint the capture pipeline salts with at write time,
// plus `git log` shell-outs against one working tree root — shelling
// out to the git binary rather than linking a git library.
type GitGroundTruth struct {
	root string
}

// NewGitGroundTruth builds a GitGroundTruth rooted at a working tree.
func NewGitGroundTruth(root string) *GitGroundTruth {
	return &GitGroundTruth{root: root}
}

// Fingerprint hashes the file's current contents with fingerprint.Hash,
// salted the same way storage.Engine.Store salts a capture (normalized
// content, lowercase=false, plus collection/type/identityKey), so the
// result is directly comparable to model.Point.ContentHash. It also
// returns a closure counting commits touching filePath since a given
// unix timestamp. ok is false when the file no longer exists in the
// working tree.
func (g *GitGroundTruth) Fingerprint(ctx context.Context, filePath string, collection model.Collection, typ model.MemoryType, identityKey string) (string, func(since int64) int, bool) {
	full := filePath
	if !filepath.IsAbs(full) {
		full = filepath.Join(g.root, filePath)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", nil, false
	}
	normalized := fingerprint.Normalize(string(data), false)
	hash := fingerprint.Hash(normalized, collection, typ, identityKey)

	commitsSince := func(since int64) int {
		return g.commitsSince(ctx, filePath, since)
	}
	return hash, commitsSince, true
}

func (g *GitGroundTruth) commitsSince(ctx context.Context, filePath string, since int64) int {
	sinceArg := "--since=" + strconv.FormatInt(since, 10)
	cmd := exec.CommandContext(ctx, "git", "log", sinceArg, "--oneline", "--", filePath)
	cmd.Dir = g.root
	out, err := cmd.Output()
	if err != nil {
		return 0
	}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return 0
	}
	return len(strings.Split(trimmed, "\n"))
}
