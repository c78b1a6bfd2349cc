package chunk

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`(?s)([.!?])\s+`)

// splitSentences is a light heuristic tokenizer, not a full sentence
// boundary detector; good enough for packing, not for NLP.
func splitSentences(content string) []string {
	marked := sentenceBoundary.ReplaceAllString(content, "$1\x00")
	parts := strings.Split(marked, "\x00")
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitProse greedily packs sentences up to MaxTokens per chunk, with a
// configurable sentence overlap between consecutive chunks so nearby
// context survives the boundary. This is the fallback strategy when no
// structural boundaries are available.
func splitProse(content string, opts Options) []string {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() []string {
		if len(current) == 0 {
			return nil
		}
		return append([]string{}, current...)
	}

	for i := 0; i < len(sentences); i++ {
		s := sentences[i]
		t := estimateTokens(s)
		if currentTokens+t > opts.MaxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(flush(), " "))
			overlap := opts.SentenceOverlap
			if overlap > len(current) {
				overlap = len(current)
			}
			current = append([]string{}, current[len(current)-overlap:]...)
			currentTokens = 0
			for _, c := range current {
				currentTokens += estimateTokens(c)
			}
		}
		current = append(current, s)
		currentTokens += t
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(flush(), " "))
	}
	return chunks
}
