package extractor

import "strings"

// MergeDelta computes the newly arrived portion of next relative to
// prev, for streams that resend cumulative content. If prev is a prefix
// of next the suffix beyond it is returned; otherwise next is returned
// whole and the consumer replaces rather than appends.
func MergeDelta(prev, next string) string {
	if prev == "" {
		return next
	}
	if strings.HasPrefix(next, prev) {
		return next[len(prev):]
	}
	return next
}
