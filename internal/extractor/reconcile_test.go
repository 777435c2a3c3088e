package extractor

import "testing"

func TestReconcileSingleSpan(t *testing.T) {
	text := `Here is your analysis: {"visualizationType":"metrics","title":"Q4","metrics":[{"label":"ROAS","value":"3.5"}]} Thanks!`
	spans := Scan(text)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := Reconcile(text, spans)
	want := "Here is your analysis: Thanks!"
	if got != want {
		t.Errorf("cleaned = %q, want %q", got, want)
	}
}

func TestReconcileCollapsesBlankLines(t *testing.T) {
	text := "Intro.\n\n{\"a\":1}\n\nOutro."
	spans := Scan(text)
	got := Reconcile(text, spans)
	want := "Intro.\n\nOutro."
	if got != want {
		t.Errorf("cleaned = %q, want %q", got, want)
	}
}

func TestReconcileMultipleSpans(t *testing.T) {
	text := `First {"a":1} middle {"b":2} last`
	spans := Scan(text)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	got := Reconcile(text, spans)
	want := "First middle last"
	if got != want {
		t.Errorf("cleaned = %q, want %q", got, want)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	text := `Before {"x":true} after`
	spans := Scan(text)
	once := Reconcile(text, spans)
	twice := Reconcile(once, spans)
	if once != twice {
		t.Errorf("reconcile not idempotent: %q vs %q", once, twice)
	}
}

func TestReconcileNoSpansTrimsOnly(t *testing.T) {
	got := Reconcile("  plain prose  ", nil)
	if got != "plain prose" {
		t.Errorf("cleaned = %q", got)
	}
}

func TestMergeDeltaFromEmpty(t *testing.T) {
	if got := MergeDelta("", "Hello"); got != "Hello" {
		t.Errorf("delta = %q", got)
	}
}

func TestMergeDeltaPrefixGrowth(t *testing.T) {
	if got := MergeDelta("Hello", "Hello world"); got != " world" {
		t.Errorf("delta = %q", got)
	}
}

func TestMergeDeltaReplacement(t *testing.T) {
	if got := MergeDelta("Hello", "Goodbye"); got != "Goodbye" {
		t.Errorf("delta = %q", got)
	}
}

func TestMergeDeltaUnchanged(t *testing.T) {
	if got := MergeDelta("Same", "Same"); got != "" {
		t.Errorf("delta = %q", got)
	}
}
