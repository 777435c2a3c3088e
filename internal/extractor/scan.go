package extractor

// Span is one candidate JSON object located in raw text. End is
// exclusive. Complete is false when the closing brace had not arrived
// by end of text; such a span always extends to the end of the input.
type Span struct {
	Start    int
	End      int
	Text     string
	Complete bool
}

// Scan locates candidate {...} spans in text with a single
// string/escape-aware pass.
//
// Depth counting starts at a top-level '{'. Inside the span, an
// unescaped '"' toggles string mode and braces inside strings are
// inert; a backslash consumes the following character regardless of
// mode. When depth returns to zero the span closes and scanning resumes
// immediately after it, so accepted spans never overlap. If the text
// ends with depth still positive, the tail is emitted as an incomplete
// span so callers can act before the full payload arrives.
//
// Empty objects ({}) are not filtered here; the caller drops zero-key
// payloads after decoding.
func Scan(text string) []Span {
	var spans []Span
	depth := 0
	inString := false
	escaped := false
	start := -1

	for i := 0; i < len(text); i++ {
		c := text[i]
		if depth == 0 {
			if c == '{' {
				start = i
				depth = 1
				inString = false
				escaped = false
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if inString {
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				spans = append(spans, Span{
					Start:    start,
					End:      i + 1,
					Text:     text[start : i+1],
					Complete: true,
				})
				start = -1
			}
		}
	}

	if depth > 0 && start >= 0 {
		spans = append(spans, Span{
			Start:    start,
			End:      len(text),
			Text:     text[start:],
			Complete: false,
		})
	}
	return spans
}
