package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func estimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}

// Pack greedily selects ranked results by final score until the
// cumulative content-token estimate would exceed tokenBudget (the
// top-ranked result is always kept, even when it alone exceeds the
// budget), then renders them into a fenced retrieved_context block with per-result
// attribution. An empty input renders nothing, not an error.
func Pack(ranked []Ranked, tokenBudget int) string {
	if len(ranked) == 0 {
		return ""
	}
	if tokenBudget <= 0 {
		tokenBudget = 4000
	}

	var selected []Ranked
	used := 0
	for _, r := range ranked {
		t := estimateTokens(r.Point.Content)
		if used+t > tokenBudget && len(selected) > 0 {
			break
		}
		selected = append(selected, r)
		used += t
	}
	if len(selected) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<retrieved_context>\n")
	for _, r := range selected {
		fmt.Fprintf(&b, "[%s/%s stored_at=%s semantic=%.3f temporal=%.3f final=%.3f]\n%s\n\n",
			r.Point.Collection, r.Point.Type, r.Point.StoredAt.Format("2006-01-02T15:04:05Z"),
			r.Semantic, r.Temporal, r.Final, r.Point.Content)
	}
	b.WriteString("</retrieved_context>")
	return b.String()
}
