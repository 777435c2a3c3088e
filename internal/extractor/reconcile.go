package extractor

import (
	"regexp"
	"strings"
)

var blankRunRE = regexp.MustCompile(`\n[ \t]*\n([ \t]*\n)+`)

// Reconcile removes each accepted span's exact substring from text and
// tidies the whitespace the removal leaves behind: a doubled space at a
// seam is collapsed, runs of two or more blank lines become one, and
// the ends are trimmed.
//
// The output is a strict subsequence of the input; nothing is reordered
// or rewritten. Removal is keyed on the span text still being present,
// so reconciling already-clean text is a no-op and the operation is
// idempotent.
func Reconcile(text string, spans []Span) string {
	// Right to left keeps earlier span indices valid as text shrinks.
	for i := len(spans) - 1; i >= 0; i-- {
		text = removeSpan(text, spans[i])
	}
	text = blankRunRE.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func removeSpan(text string, span Span) string {
	if span.Text == "" {
		return text
	}
	start, end := span.Start, span.End
	if start < 0 || end > len(text) || text[start:end] != span.Text {
		// Indices are stale (already-clean text or shifted input);
		// fall back to an exact substring search.
		idx := strings.Index(text, span.Text)
		if idx < 0 {
			return text
		}
		start, end = idx, idx+len(span.Text)
	}
	// A span flanked by single spaces would leave a doubled space.
	if start > 0 && end < len(text) && text[start-1] == ' ' && text[end] == ' ' {
		end++
	}
	return text[:start] + text[end:]
}
