package extractor

import "testing"

func TestScanCompleteSpan(t *testing.T) {
	text := `before {"a":1} after`
	spans := Scan(text)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if !s.Complete {
		t.Error("span should be complete")
	}
	if s.Text != `{"a":1}` {
		t.Errorf("span text = %q", s.Text)
	}
	if s.Start != 7 || s.End != 14 {
		t.Errorf("span bounds = [%d,%d)", s.Start, s.End)
	}
}

func TestScanNestedBraces(t *testing.T) {
	text := `{"outer":{"inner":{"deep":1}}}`
	spans := Scan(text)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Text != text {
		t.Errorf("span text = %q", spans[0].Text)
	}
}

func TestScanBracesInsideStrings(t *testing.T) {
	text := `{"msg":"curly } brace { soup"}`
	spans := Scan(text)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if !spans[0].Complete {
		t.Error("string-mode braces must not affect depth")
	}
	if spans[0].Text != text {
		t.Errorf("span text = %q", spans[0].Text)
	}
}

func TestScanEscapedQuoteInString(t *testing.T) {
	text := `{"msg":"he said \"}\" loudly"}`
	spans := Scan(text)
	if len(spans) != 1 || !spans[0].Complete {
		t.Fatalf("escaped quotes mishandled: %+v", spans)
	}
	if spans[0].Text != text {
		t.Errorf("span text = %q", spans[0].Text)
	}
}

func TestScanIncompleteTail(t *testing.T) {
	text := `intro {"a":{"b":1}`
	spans := Scan(text)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Complete {
		t.Error("unclosed span should be incomplete")
	}
	if s.End != len(text) {
		t.Errorf("incomplete span must extend to end of text, End=%d", s.End)
	}
}

func TestScanMultipleSpansNoOverlap(t *testing.T) {
	text := `{"a":1} middle {"b":2} tail {"c":`
	spans := Scan(text)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].End {
			t.Errorf("spans %d and %d overlap", i-1, i)
		}
	}
	if spans[2].Complete {
		t.Error("trailing span should be incomplete")
	}
}

func TestScanNoSpans(t *testing.T) {
	if spans := Scan("plain prose, no structure here"); len(spans) != 0 {
		t.Errorf("expected no spans, got %d", len(spans))
	}
}

func TestScanEmptyObject(t *testing.T) {
	// {} is a legitimate span; zero-key filtering is the caller's job.
	spans := Scan("x {} y")
	if len(spans) != 1 || spans[0].Text != "{}" {
		t.Fatalf("expected the empty object span, got %+v", spans)
	}
}
