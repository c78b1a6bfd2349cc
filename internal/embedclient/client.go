// Package embedclient wraps an embedding.EmbeddingEngine with retry,
// batching, and degraded-mode semantics: exponential backoff with three
// attempts on 5xx/transport errors, zero retries on 4xx, a
// caller-bounded deadline, and an is-healthy probe the storage engine
// consults before deciding between PendingEmbedding and Queued.
//
// Built on this module's own embedding.Engine factory plus its
// ollama.go/genai.go HTTP-client idiom; the retry policy itself follows
// github.com/cenkalti/backoff/v4, the same library pulled in elsewhere
// in the pack for provider-fallback.
package embedclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Hidden-History/ai-memory-sub002/internal/embedding"
	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// ErrUnavailable is returned when the embedding service could not be
// reached within the retry budget; callers translate this into the
// PendingEmbedding/Queued error kinds.
var ErrUnavailable = errors.New("embedclient: embedding service unavailable")

// maxInputTokensPerText bounds a single text before it must be chunked by
// the caller (the chunker owns splitting long documents; the client only
// guards against a single oversized string reaching the provider).
const maxInputTokensPerText = 8000

// retryableError wraps an error to mark it as retryable. Nothing in this
// module constructs it: isRetryable classifies errors by an optional
// StatusCode() int method, and an error without one (this type
// included) is retried.
type retryableError struct{ err error }

func (r *retryableError) Error() string { return r.err.Error() }
func (r *retryableError) Unwrap() error { return r.err }

// Client is the embedding client context object: an explicit, immutable
// handle threaded through the capture/retrieval pipelines rather than
// a package-level global.
type Client struct {
	engine  embedding.EmbeddingEngine
	timeout time.Duration
}

// New builds a Client around a concrete embedding engine.
func New(engine embedding.EmbeddingEngine, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{engine: engine, timeout: timeout}
}

// Dimensions returns the underlying engine's output vector width.
func (c *Client) Dimensions() int { return c.engine.Dimensions() }

// Name returns the underlying engine's identifier (e.g. "ollama:embeddinggemma").
func (c *Client) Name() string { return c.engine.Name() }

// IsHealthy probes the underlying engine if it supports health checks;
// engines without HealthChecker are assumed healthy (best-effort).
func (c *Client) IsHealthy(ctx context.Context) bool {
	hc, ok := c.engine.(embedding.HealthChecker)
	if !ok {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := hc.HealthCheck(ctx); err != nil {
		logging.EmbeddingWarn("embedclient: health check failed: %v", err)
		return false
	}
	return true
}

// EmbedOne embeds a single text with retry/backoff.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var vec []float32
	op := func() error {
		v, err := c.engine.Embed(ctx, text)
		if err != nil {
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		vec = v
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		logging.EmbeddingError("embedclient: EmbedOne failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return vec, nil
}

// EmbedOneForType embeds a single text in the task-tuned embedding space
// for memType (TaskTypeFor), falling back to EmbedOne when the underlying
// engine has no task concept (e.g. local Ollama models).
func (c *Client) EmbedOneForType(ctx context.Context, text string, memType model.MemoryType, isQuery bool) ([]float32, error) {
	aware, ok := c.engine.(embedding.TaskAwareEngine)
	if !ok {
		return c.EmbedOne(ctx, text)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	taskType := embedding.TaskTypeFor(memType, isQuery)
	var vec []float32
	op := func() error {
		v, err := aware.EmbedWithTask(ctx, text, taskType)
		if err != nil {
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		vec = v
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		logging.EmbeddingError("embedclient: EmbedOneForType failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return vec, nil
}

// Embed embeds a batch of texts, preserving input order. Oversized inputs
// are rejected rather than silently truncated — the chunker is
// responsible for keeping individual texts within budget.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if estimateTokens(t) > maxInputTokensPerText {
			return nil, fmt.Errorf("embedclient: text %d exceeds %d token limit, must be chunked first", i, maxInputTokensPerText)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var vecs [][]float32
	op := func() error {
		v, err := c.engine.EmbedBatch(ctx, texts)
		if err != nil {
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		vecs = v
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		logging.EmbeddingError("embedclient: Embed failed for %d texts: %v", len(texts), err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return vecs, nil
}

// retry applies exponential backoff capped at three attempts on
// 5xx/transport errors, with zero retries on 4xx.
func (c *Client) retry(ctx context.Context, op backoff.Operation) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2) // 3 total attempts
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

// isRetryable classifies an error as transport/5xx (retry) vs 4xx
// (do not retry).
func isRetryable(err error) bool {
	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode()
		return code >= 500
	}
	// No structured status available (raw transport error, DNS failure,
	// connection refused): treat as retryable.
	return true
}

// estimateTokens uses the same ~4-chars-per-token heuristic the context
// packer uses, good enough for a pre-flight guard rather than billing.
func estimateTokens(s string) int {
	return len(s) / 4
}
