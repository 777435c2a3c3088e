package extractor

import "strings"

// NormalizeCandidate strips the non-JSON artifacts agents commonly leak
// into structured payloads: escape sequences emitted literally (the
// payload was serialized inside another JSON string) and // line
// comments.
//
// The two passes are ordered: unescaping runs first because it can
// reveal comment markers that were present only as escaped text, and
// comment stripping on the unescaped result must still respect string
// boundaries.
func NormalizeCandidate(s string) string {
	return stripLineComments(unescapeLiterals(s))
}

// unescapeLiterals rewrites \n \r \t \" \\ \/ left to right. A
// backslash before any other character is kept verbatim.
func unescapeLiterals(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '/':
			b.WriteByte('/')
		default:
			b.WriteByte(s[i])
			continue
		}
		i++
	}
	return b.String()
}

// stripLineComments removes // comments up to (not including) the next
// newline, using the same string/escape walk discipline as the scanner
// so slashes inside string values survive.
func stripLineComments(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			b.WriteByte(c)
			continue
		}
		if c == '\\' {
			escaped = true
			b.WriteByte(c)
			continue
		}
		if inString {
			if c == '"' {
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '/' {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
