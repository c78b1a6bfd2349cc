// Package chunk splits oversized capture content into token-bounded
// pieces, choosing one of three strategies by content kind: AST-aware
// for recognized source languages, heading-aware for .md and .rst files
// (only "#"-prefixed headings are recognized), and a prose
// sentence-packing fallback.
//
// The AST strategy creates a tree-sitter parser per call and splits at
// the top-level declaration nodes of the parsed tree (functions,
// methods, classes, types) rather than extracting symbols; the packing itself follows a token-budget-aware
// greedy strategy used throughout this module's capture path.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// Chunk is one piece of a larger document, carrying enough metadata to
// reconstruct its place in the original.
type Chunk struct {
	Content      string
	ChunkIndex   int
	TotalChunks  int
	DocumentID   string
	Breadcrumb   []string // ancestor heading trail, heading-aware strategy only
}

// Options bounds a chunking pass.
type Options struct {
	MinTokens       int
	MaxTokens       int
	SentenceOverlap int
}

// DefaultOptions mirrors config.CaptureConfig's defaults.
func DefaultOptions() Options {
	return Options{MinTokens: 64, MaxTokens: 512, SentenceOverlap: 1}
}

// estimateTokens uses the same ~4-chars-per-token heuristic as the embed
// client and context packer, good enough for chunk sizing without
// calling out to a tokenizer.
func estimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}

// finalize stamps chunk_index/total_chunks onto a slice of chunk bodies
// sharing one document_id, so the original order can always be
// reconstructed.
func finalize(bodies []string, documentID string, breadcrumbs [][]string) []Chunk {
	out := make([]Chunk, len(bodies))
	for i, b := range bodies {
		c := Chunk{
			Content:     strings.TrimSpace(b),
			ChunkIndex:  i,
			TotalChunks: len(bodies),
			DocumentID:  documentID,
		}
		if breadcrumbs != nil && i < len(breadcrumbs) {
			c.Breadcrumb = breadcrumbs[i]
		}
		out[i] = c
	}
	return out
}

// Kind names the content classification chunk.Split uses to pick a
// strategy.
type Kind string

const (
	KindCode     Kind = "code"
	KindMarkdown Kind = "markdown"
	KindProse    Kind = "prose"
)

// DetectKind chooses a strategy from a file path's extension, falling
// back to prose when nothing matches (e.g. pasted snippets with no
// path context).
func DetectKind(filePath string) Kind {
	lower := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(lower, ".go"), strings.HasSuffix(lower, ".py"),
		strings.HasSuffix(lower, ".js"), strings.HasSuffix(lower, ".ts"),
		strings.HasSuffix(lower, ".tsx"), strings.HasSuffix(lower, ".rs"):
		return KindCode
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".rst"):
		return KindMarkdown
	default:
		return KindProse
	}
}

// Split chunks content below the configured threshold returns it as a
// single chunk; otherwise it dispatches to the strategy matching kind,
// falling back to prose packing if the AST/heading strategy produces no
// usable boundaries (e.g. an unrecognized source language).
func Split(content, filePath, documentID string, kind Kind, opts Options) []Chunk {
	if opts.MaxTokens <= 0 {
		opts = DefaultOptions()
	}
	if estimateTokens(content) <= opts.MaxTokens {
		return finalize([]string{content}, documentID, nil)
	}

	switch kind {
	case KindCode:
		if bodies := splitAST(content, filePath, opts); bodies != nil {
			return finalize(bodies, documentID, nil)
		}
		return finalize(splitProse(content, opts), documentID, nil)
	case KindMarkdown:
		bodies, breadcrumbs := splitHeadings(content, opts)
		if bodies != nil {
			return finalize(bodies, documentID, breadcrumbs)
		}
		return finalize(splitProse(content, opts), documentID, nil)
	default:
		return finalize(splitProse(content, opts), documentID, nil)
	}
}
