package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"
)

// Payload is a decode result. IsPartial marks a value recovered from
// truncated input: structurally complete after repair, but possibly
// missing trailing members.
type Payload struct {
	Value     map[string]any
	Raw       []byte
	IsPartial bool
	Span      Span
}

// Decode turns candidate text into a JSON object using three attempts,
// stopping at the first success:
//
//  1. strict decode of the text as-is;
//  2. strict decode of a cleaned variant: escape/comment normalization,
//     then JWCC standardization (comments, trailing commas) via hujson,
//     plus smart-quote repair;
//  3. permissive partial decode: an unterminated string or container is
//     closed and the last fully-formed value returned, IsPartial set.
//
// ErrDecodeFailed is returned only when all three fail. The failure is
// non-fatal by contract: the same text is never retried, a later chunk
// is scanned fresh from its own spans.
func Decode(text string) (*Payload, error) {
	if v, ok := strictObject(text); ok {
		return &Payload{Value: v, Raw: []byte(text)}, nil
	}

	normalized := NormalizeCandidate(text)
	for _, cleaned := range cleanedVariants(normalized) {
		if v, ok := strictObject(cleaned); ok {
			return &Payload{Value: v, Raw: []byte(cleaned)}, nil
		}
	}

	base := repairLoose(normalized)
	for _, completed := range completeTruncated(base) {
		if v, ok := strictObject(completed); ok {
			return &Payload{Value: v, Raw: []byte(completed), IsPartial: true}, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrDecodeFailed, clip(text, 64))
}

// strictObject accepts only a top-level JSON object.
func strictObject(s string) (map[string]any, bool) {
	if !gjson.Valid(s) {
		return nil, false
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

func cleanedVariants(normalized string) []string {
	var out []string
	if std, err := hujson.Standardize([]byte(normalized)); err == nil {
		out = append(out, string(std))
	}
	out = append(out, repairLoose(normalized))
	return out
}

// repairLoose fixes the syntax slips strict JSON rejects but agents
// emit anyway: typographic quotes and trailing commas before a closer.
func repairLoose(s string) string {
	if strings.ContainsAny(s, "“”‘’") {
		r := strings.NewReplacer(
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		)
		s = r.Replace(s)
	}
	return dropTrailingCommas(s)
}

// dropTrailingCommas removes a comma when the next structural character
// is a closing brace or bracket, string-boundary aware.
func dropTrailingCommas(s string) string {
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
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// completeTruncated produces repair candidates for input cut off at an
// arbitrary byte. It walks the text tracking open containers and, for
// objects, whether the current string is a key or a value, recording a
// checkpoint after every fully-formed value. Candidates, in preference
// order:
//
//   - the whole input with an unterminated value string closed, a
//     dangling ':' given a null, a trailing comma dropped, and all open
//     containers closed (keeps a partially streamed string value);
//   - the prefix up to the last checkpoint with that state's containers
//     closed (the last fully-formed value).
func completeTruncated(s string) []string {
	type frame struct {
		typ        byte // '{' or '['
		afterColon bool
	}
	var stack []frame
	inString := false
	escaped := false
	stringIsValue := false

	checkpoint := -1
	checkpointClosers := ""

	closers := func() string {
		var b strings.Builder
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].typ == '{' {
				b.WriteByte('}')
			} else {
				b.WriteByte(']')
			}
		}
		return b.String()
	}
	mark := func(end int) {
		checkpoint = end
		checkpointClosers = closers()
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
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
				if stringIsValue {
					mark(i + 1)
				}
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			stringIsValue = true
			if len(stack) > 0 && stack[len(stack)-1].typ == '{' && !stack[len(stack)-1].afterColon {
				stringIsValue = false
			}
		case '{', '[':
			stack = append(stack, frame{typ: c})
			mark(i + 1)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			mark(i + 1)
		case ':':
			if len(stack) > 0 && stack[len(stack)-1].typ == '{' {
				stack[len(stack)-1].afterColon = true
			}
		case ',':
			mark(i)
			if len(stack) > 0 && stack[len(stack)-1].typ == '{' {
				stack[len(stack)-1].afterColon = false
			}
		}
	}

	var candidates []string

	// Whole-input repair. Skipped when the text ends inside a key,
	// since a closed key with no value cannot be made valid.
	if !inString || stringIsValue {
		out := s
		if escaped {
			out = out[:len(out)-1]
		}
		if inString {
			out += `"`
		}
		out = strings.TrimRight(out, " \t\r\n")
		if strings.HasSuffix(out, ":") {
			out += "null"
		}
		out = strings.TrimSuffix(out, ",")
		candidates = append(candidates, out+closers())
	}

	if checkpoint > 0 {
		prefix := strings.TrimRight(s[:checkpoint], " \t\r\n")
		prefix = strings.TrimSuffix(prefix, ",")
		candidates = append(candidates, prefix+checkpointClosers)
	}

	return candidates
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
