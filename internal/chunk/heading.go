package chunk

import (
	"regexp"
	"strings"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// splitHeadings splits content at ATX-style ("#"-prefixed) heading
// boundaries, carrying a breadcrumb of ancestor headings into each
// chunk's metadata. Setext and ReST underline-style headings are not
// recognized, so ReST content without "#" lines has no headings here.
// Returns nil if the content has no headings at all,
// signaling the caller to fall back to prose packing.
func splitHeadings(content string, opts Options) ([]string, [][]string) {
	lines := strings.Split(content, "\n")

	type section struct {
		breadcrumb []string
		body       strings.Builder
	}

	var sections []section
	var stack []string // heading text at each depth, index 0 = level 1

	hasHeading := false
	current := section{breadcrumb: append([]string{}, stack...)}

	flush := func() {
		if strings.TrimSpace(current.body.String()) != "" {
			sections = append(sections, current)
		}
	}

	for _, line := range lines {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			hasHeading = true
			flush()
			level := len(m[1])
			title := strings.TrimSpace(m[2])
			if level-1 < len(stack) {
				stack = stack[:level-1]
			}
			for len(stack) < level-1 {
				stack = append(stack, "")
			}
			stack = append(stack, title)
			current = section{breadcrumb: append([]string{}, stack...)}
			current.body.WriteString(line)
			current.body.WriteString("\n")
			continue
		}
		current.body.WriteString(line)
		current.body.WriteString("\n")
	}
	flush()

	if !hasHeading {
		return nil, nil
	}

	var bodies []string
	var breadcrumbs [][]string
	var pending strings.Builder
	var pendingCrumb []string

	flushPending := func() {
		if strings.TrimSpace(pending.String()) != "" {
			bodies = append(bodies, pending.String())
			breadcrumbs = append(breadcrumbs, pendingCrumb)
			pending.Reset()
		}
	}

	for _, s := range sections {
		body := s.body.String()
		if estimateTokens(pending.String()+body) > opts.MaxTokens && pending.Len() > 0 {
			flushPending()
		}
		if pending.Len() == 0 {
			pendingCrumb = s.breadcrumb
		}
		pending.WriteString(body)
	}
	flushPending()

	return bodies, breadcrumbs
}
