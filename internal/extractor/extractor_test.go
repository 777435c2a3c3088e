package extractor

import (
	"testing"

	"github.com/vantagics/vizstream/internal/registry"
)

func TestProcessChunkExtractsMetrics(t *testing.T) {
	p := NewProcessor(Options{})
	raw := `Here is your analysis: {"visualizationType":"metrics","title":"Q4","metrics":[{"label":"ROAS","value":"3.5"}]} Thanks!`

	res := p.ProcessChunk("m1", "analyst", raw)
	if res.CleanedDelta != "Here is your analysis: Thanks!" {
		t.Errorf("delta = %q", res.CleanedDelta)
	}
	if len(res.Visualizations) != 1 {
		t.Fatalf("visualizations = %d, want 1", len(res.Visualizations))
	}
	rec := res.Visualizations[0]
	if rec.Kind != registry.KindMetrics {
		t.Errorf("kind = %s", rec.Kind)
	}
	if rec.IsPartial {
		t.Error("complete payload marked partial")
	}
	if rec.Payload["title"] != "Q4" {
		t.Errorf("title = %v", rec.Payload["title"])
	}
	if _, ok := rec.Typed.(*registry.MetricsPayload); !ok {
		t.Errorf("typed = %T", rec.Typed)
	}
}

func TestProcessChunkPartialThenComplete(t *testing.T) {
	p := NewProcessor(Options{})
	partial := `Budget: {"visualizationType":"allocations","title":"Mix","allocations":[{"name":"Search","percentage":45`
	full := `Budget: {"visualizationType":"allocations","title":"Mix","allocations":[{"name":"Search","percentage":45,"budget":5000}]} Done`

	res1 := p.ProcessChunk("m1", "", partial)
	if res1.CleanedDelta != "Budget:" {
		t.Errorf("first delta = %q", res1.CleanedDelta)
	}
	if len(res1.Visualizations) != 1 || !res1.Visualizations[0].IsPartial {
		t.Fatalf("expected one partial record, got %+v", res1.Visualizations)
	}

	res2 := p.ProcessChunk("m1", "", full)
	if res2.CleanedDelta != " Done" {
		t.Errorf("second delta = %q", res2.CleanedDelta)
	}
	if len(res2.Visualizations) != 1 {
		t.Fatalf("expected the upgraded record, got %d", len(res2.Visualizations))
	}
	rec := res2.Visualizations[0]
	if rec.IsPartial {
		t.Error("record not upgraded to complete")
	}
	st := p.Message("m1")
	if st == nil {
		t.Fatal("message state missing")
	}
	if got := st.Visualizations[registry.KindAllocations]; got == nil || got.IsPartial {
		t.Errorf("stored record = %+v", got)
	}
}

func TestProcessChunkCompleteNeverDowngraded(t *testing.T) {
	p := NewProcessor(Options{})
	full := `X {"visualizationType":"metrics","metrics":[{"label":"A","value":"1"}]} Y`
	partial := `X {"visualizationType":"metrics","metrics":[{"label":"A"`

	p.ProcessChunk("m1", "", full)
	res := p.ProcessChunk("m1", "", partial)
	if len(res.Visualizations) != 0 {
		t.Errorf("partial record replaced a complete one: %+v", res.Visualizations)
	}
	st := p.Message("m1")
	if rec := st.Visualizations[registry.KindMetrics]; rec == nil || rec.IsPartial {
		t.Errorf("stored record = %+v", rec)
	}
}

func TestProcessChunkDuplicateSnapshotDropped(t *testing.T) {
	p := NewProcessor(Options{})
	p.ProcessChunk("m1", "", "Hello")
	p.ProcessChunk("m1", "", "Hello world")

	// A stale snapshot replayed out of order hashes to content already
	// seen and is dropped whole.
	res := p.ProcessChunk("m1", "", "Hello")
	if !res.Duplicate {
		t.Error("stale snapshot not marked duplicate")
	}
	st := p.Message("m1")
	if st.CleanedText != "Hello world" {
		t.Errorf("cleaned text regressed to %q", st.CleanedText)
	}
}

func TestProcessChunkIdenticalResendIsQuiet(t *testing.T) {
	p := NewProcessor(Options{})
	p.ProcessChunk("m1", "", "Hello world")
	res := p.ProcessChunk("m1", "", "Hello world")
	if res.Duplicate {
		t.Error("identical resend should not be a duplicate drop")
	}
	if res.CleanedDelta != "" {
		t.Errorf("delta = %q, want empty", res.CleanedDelta)
	}
}

func TestProcessChunkWithholdsTrailingSpan(t *testing.T) {
	p := NewProcessor(Options{})
	res := p.ProcessChunk("m1", "", `Thinking {"visualizationType":"metrics","metrics":[{"la`)
	if res.CleanedDelta != "Thinking" {
		t.Errorf("delta = %q, trailing span should be withheld", res.CleanedDelta)
	}
}

func TestProcessChunkTransformFailureStripsSpan(t *testing.T) {
	p := NewProcessor(Options{})
	raw := `Data: {"visualizationType":"bar_chart","categories":["A","B"],"values":[1]} end`
	res := p.ProcessChunk("m1", "", raw)
	if res.CleanedDelta != "Data: end" {
		t.Errorf("delta = %q", res.CleanedDelta)
	}
	if len(res.Visualizations) != 0 {
		t.Errorf("broken payload produced a record: %+v", res.Visualizations)
	}
}

func TestProcessChunkLeavesUnrecognizedObject(t *testing.T) {
	p := NewProcessor(Options{})
	raw := `Note {"reviewer":"sam","approved":true} end`
	res := p.ProcessChunk("m1", "", raw)
	if res.CleanedDelta != raw {
		t.Errorf("delta = %q, unrecognized object must stay in text", res.CleanedDelta)
	}
	if len(res.Visualizations) != 0 {
		t.Errorf("visualizations = %+v", res.Visualizations)
	}
}

func TestProcessChunkFirstMatchWinsPerPass(t *testing.T) {
	p := NewProcessor(Options{})
	raw := `A {"visualizationType":"metrics","title":"one","metrics":[{"label":"a","value":"1"}]} B {"visualizationType":"metrics","title":"two","metrics":[{"label":"b","value":"2"}]} C`
	res := p.ProcessChunk("m1", "", raw)
	if res.CleanedDelta != "A B C" {
		t.Errorf("delta = %q", res.CleanedDelta)
	}
	if len(res.Visualizations) != 1 {
		t.Fatalf("visualizations = %d, want 1", len(res.Visualizations))
	}
	if res.Visualizations[0].Payload["title"] != "one" {
		t.Errorf("kept title = %v, want the first span", res.Visualizations[0].Payload["title"])
	}
}

func TestFinalizeFlushesUnresolvedTail(t *testing.T) {
	p := NewProcessor(Options{})
	raw := `Wrapping up {"reviewer":"sa`
	res := p.ProcessChunk("m1", "", raw)
	if res.CleanedDelta != "Wrapping up" {
		t.Errorf("streaming delta = %q", res.CleanedDelta)
	}

	fin := p.Finalize("m1")
	if !fin.Finalized {
		t.Error("finalize result not marked finalized")
	}
	if fin.CleanedDelta != ` {"reviewer":"sa` {
		t.Errorf("finalize delta = %q, unresolved tail should flush", fin.CleanedDelta)
	}

	after := p.ProcessChunk("m1", "", raw+"m")
	if !after.Finalized || after.CleanedDelta != "" {
		t.Errorf("chunk after finalize = %+v", after)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	p := NewProcessor(Options{})
	p.ProcessChunk("m1", "", "Hello")
	p.Finalize("m1")
	again := p.Finalize("m1")
	if !again.Finalized || again.CleanedDelta != "" {
		t.Errorf("second finalize = %+v", again)
	}
}

func TestDropAndReset(t *testing.T) {
	p := NewProcessor(Options{})
	p.ProcessChunk("m1", "", "one")
	p.ProcessChunk("m2", "", "two")

	p.Drop("m1")
	if p.Message("m1") != nil {
		t.Error("dropped message still present")
	}
	if p.Message("m2") == nil {
		t.Error("unrelated message lost")
	}

	p.Reset()
	if p.Message("m2") != nil {
		t.Error("reset left state behind")
	}
}

func TestSpanCapIgnoresExtras(t *testing.T) {
	p := NewProcessor(Options{MaxSpansPerChunk: 1})
	raw := `A {"visualizationType":"metrics","metrics":[{"label":"a","value":"1"}]} B {"bins":[{"label":"0","count":1}]} C`
	res := p.ProcessChunk("m1", "", raw)
	if len(res.Visualizations) != 1 {
		t.Fatalf("visualizations = %d, want 1", len(res.Visualizations))
	}
	if res.Visualizations[0].Kind != registry.KindMetrics {
		t.Errorf("kind = %s", res.Visualizations[0].Kind)
	}
}
