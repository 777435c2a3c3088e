// Package vizstream is the public face of the visualization-extraction
// engine. Feed it the raw text chunks of a streaming agent response and
// it hands back clean transcript deltas plus typed visualization
// records, one call per chunk, no blocking work inside.
package vizstream

import (
	"github.com/vantagics/vizstream/internal/extractor"
	"github.com/vantagics/vizstream/internal/registry"
)

// Re-exported engine types so consumers never import internal packages.
type (
	Result = extractor.Result
	Record = extractor.Record
	Kind   = registry.Kind
)

// The registered visualization kinds, in structural-cascade priority
// order.
const (
	KindAllocations     = registry.KindAllocations
	KindChannels        = registry.KindChannels
	KindSegments        = registry.KindSegments
	KindMetrics         = registry.KindMetrics
	KindCreative        = registry.KindCreative
	KindTimeline        = registry.KindTimeline
	KindDecisionTree    = registry.KindDecisionTree
	KindHistogram       = registry.KindHistogram
	KindDoubleHistogram = registry.KindDoubleHistogram
	KindBarChart        = registry.KindBarChart
	KindDonutChart      = registry.KindDonutChart
)

// Options tunes an Engine. The zero value selects the defaults.
type Options struct {
	// DedupCap bounds each message's recent-content-hash set.
	// Defaults to 10.
	DedupCap int
	// MaxSpansPerChunk caps candidate spans handled per scan pass.
	// Defaults to 32.
	MaxSpansPerChunk int
	// Aliases adds extra discriminator values for existing kinds,
	// e.g. "budget_breakdown" → KindAllocations.
	Aliases map[string]Kind
}

// Engine extracts visualizations from one conversation's message
// streams. It must be driven from a single goroutine; messages are
// independent of each other, so one engine per session is the intended
// granularity.
type Engine struct {
	proc *extractor.Processor
}

// New creates an engine.
func New(opts Options) *Engine {
	reg := registry.New()
	for alias, kind := range opts.Aliases {
		reg.AddAlias(alias, kind)
	}
	return &Engine{
		proc: extractor.NewProcessor(extractor.Options{
			Registry:         reg,
			DedupCap:         opts.DedupCap,
			MaxSpansPerChunk: opts.MaxSpansPerChunk,
		}),
	}
}

// ProcessChunk folds one arriving chunk into the message's stream and
// returns the cleaned delta text plus any visualization records this
// chunk produced or completed. A chunk carries the message's current
// full content (streams resend cumulatively); exact repeats arriving
// out of order are dropped via a bounded recent-hash set.
func (e *Engine) ProcessChunk(messageID, agentKey, rawText string) Result {
	return e.proc.ProcessChunk(messageID, agentKey, rawText)
}

// Finalize signals end-of-stream for a message. The message becomes
// terminal: any unresolved trailing span is flushed back into the text
// and returned as a last delta, and later chunks are ignored.
func (e *Engine) Finalize(messageID string) Result {
	return e.proc.Finalize(messageID)
}

// DropMessage discards all state for one message without emitting
// anything, for mid-stream teardown.
func (e *Engine) DropMessage(messageID string) {
	e.proc.Drop(messageID)
}

// Reset discards all message state.
func (e *Engine) Reset() {
	e.proc.Reset()
}

// Visualizations returns the surviving records for a message, at most
// one per kind, or nil for an unknown message.
func (e *Engine) Visualizations(messageID string) []*Record {
	st := e.proc.Message(messageID)
	if st == nil {
		return nil
	}
	out := make([]*Record, 0, len(st.Visualizations))
	for _, k := range KindOrder() {
		if rec, ok := st.Visualizations[k]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// KindOrder returns the kinds in cascade priority order.
func KindOrder() []Kind {
	return []Kind{
		KindAllocations, KindChannels, KindSegments, KindMetrics,
		KindCreative, KindTimeline, KindDecisionTree, KindHistogram,
		KindDoubleHistogram, KindBarChart, KindDonutChart,
	}
}
