// Package extractor implements the incremental visualization-extraction
// pipeline: raw streamed chunks in, cleaned transcript deltas and typed
// visualization records out.
//
// Per chunk the flow is scan → per-span decode → classify → reconcile →
// dedup → delta. Every stage is a single pass over its input and all
// failures are recovered locally; the worst caller-visible outcome is an
// agent's literal payload showing up in the transcript.
package extractor

import (
	"encoding/json"
	"errors"

	"github.com/pierrec/xxHash/xxHash64"
	log "github.com/sirupsen/logrus"

	"github.com/vantagics/vizstream/internal/registry"
)

const (
	defaultDedupCap = 10
	defaultMaxSpans = 32
)

// Options configures a Processor. Zero values select the defaults.
type Options struct {
	// Registry supplies the kind table; nil means the built-in one.
	Registry *registry.Registry
	// DedupCap bounds the per-message recent-hash set.
	DedupCap int
	// MaxSpansPerChunk caps how many candidate spans one scan pass will
	// process, as a guard against pathological input.
	MaxSpansPerChunk int
}

// Processor owns the per-message extraction state. It is synchronous
// and single-threaded by design: one invocation per arriving chunk, no
// blocking work inside. Messages are independent, so concurrent agents
// only require that each processor instance is driven from one
// goroutine.
type Processor struct {
	reg      *registry.Registry
	dedupCap int
	maxSpans int
	messages map[string]*MessageState
}

// Result is the outcome of one chunk (or of finalization).
type Result struct {
	MessageID      string    `json:"messageId"`
	AgentKey       string    `json:"agentKey,omitempty"`
	CleanedDelta   string    `json:"cleanedDelta"`
	Visualizations []*Record `json:"visualizations,omitempty"`
	// Duplicate marks a chunk dropped by the recent-hash set.
	Duplicate bool `json:"duplicate,omitempty"`
	// Finalized is set once the message reached its terminal state.
	Finalized bool `json:"finalized,omitempty"`
}

// NewProcessor creates a processor with the given options.
func NewProcessor(opts Options) *Processor {
	reg := opts.Registry
	if reg == nil {
		reg = registry.New()
	}
	dedupCap := opts.DedupCap
	if dedupCap == 0 {
		dedupCap = defaultDedupCap
	}
	maxSpans := opts.MaxSpansPerChunk
	if maxSpans <= 0 {
		maxSpans = defaultMaxSpans
	}
	return &Processor{
		reg:      reg,
		dedupCap: dedupCap,
		maxSpans: maxSpans,
		messages: make(map[string]*MessageState),
	}
}

// ProcessChunk folds one raw chunk into the message's state and returns
// the new cleaned delta plus any visualization records created or
// upgraded by this chunk.
//
// A chunk is the message's current full content: transports stream
// cumulative snapshots, so each arrival normally extends the previous
// one and the delta is the new suffix. A chunk whose cleaned content
// was already seen (a stale snapshot replayed out of order) is dropped
// by the recent-hash set; genuinely new non-extending content replaces
// the transcript wholesale.
func (p *Processor) ProcessChunk(messageID, agentKey, rawText string) Result {
	st := p.state(messageID, agentKey)
	if st.Status == StatusFinalized {
		log.WithField("message_id", messageID).Debug("chunk after finalize ignored")
		return Result{MessageID: messageID, AgentKey: st.AgentKey, Finalized: true}
	}
	st.Status = StatusStreaming

	cleaned, candidates := p.extract(messageID, rawText, false)

	if cleaned != st.CleanedText {
		if st.recent.Observe(xxHash64.Checksum([]byte(cleaned), 0)) {
			log.WithField("message_id", messageID).Debug("duplicate chunk content dropped")
			return Result{MessageID: messageID, AgentKey: st.AgentKey, Duplicate: true}
		}
	}

	changed := p.commit(st, candidates)
	delta := MergeDelta(st.CleanedText, cleaned)
	st.RawText = rawText
	st.CleanedText = cleaned

	return Result{
		MessageID:      messageID,
		AgentKey:       st.AgentKey,
		CleanedDelta:   delta,
		Visualizations: changed,
	}
}

// Finalize marks the message terminal. Any pending trailing span that
// never resolved into a visualization is flushed back into the text,
// and the remaining delta is returned. Further chunks are ignored.
func (p *Processor) Finalize(messageID string) Result {
	st, ok := p.messages[messageID]
	if !ok || st.Status == StatusFinalized {
		return Result{MessageID: messageID, Finalized: true}
	}

	cleaned, candidates := p.extract(messageID, st.RawText, true)
	changed := p.commit(st, candidates)
	delta := MergeDelta(st.CleanedText, cleaned)
	st.CleanedText = cleaned
	st.Status = StatusFinalized

	return Result{
		MessageID:      messageID,
		AgentKey:       st.AgentKey,
		CleanedDelta:   delta,
		Visualizations: changed,
		Finalized:      true,
	}
}

// Drop discards all state for a message, typically on session teardown.
func (p *Processor) Drop(messageID string) {
	delete(p.messages, messageID)
}

// Reset discards every message.
func (p *Processor) Reset() {
	p.messages = make(map[string]*MessageState)
}

// Message exposes a message's state for inspection. May return nil.
func (p *Processor) Message(messageID string) *MessageState {
	return p.messages[messageID]
}

func (p *Processor) state(messageID, agentKey string) *MessageState {
	st, ok := p.messages[messageID]
	if !ok {
		st = newMessageState(messageID, agentKey, p.dedupCap)
		p.messages[messageID] = st
	}
	if st.AgentKey == "" {
		st.AgentKey = agentKey
	}
	return st
}

// extract runs scan/decode/classify over the full accumulated text and
// reconciles the accepted spans out of it. It does not mutate message
// state; commit applies the record candidates afterwards so a chunk
// dropped by dedup leaves no trace.
//
// A trailing incomplete span is withheld from the cleaned text while
// streaming (it either becomes a visualization or is re-scanned once
// complete); at finalization an unresolved tail is left in the text so
// the user at least sees what the agent sent.
func (p *Processor) extract(messageID, full string, final bool) (string, []*Record) {
	spans := Scan(full)
	if len(spans) > p.maxSpans {
		log.WithFields(log.Fields{
			"message_id": messageID,
			"spans":      len(spans),
			"max":        p.maxSpans,
		}).Warn("span cap exceeded, ignoring extra candidates")
		spans = spans[:p.maxSpans]
	}

	var accepted []Span
	var records []*Record

	for _, span := range spans {
		rec, consume := p.extractSpan(messageID, span, final)
		if consume {
			accepted = append(accepted, span)
		}
		if rec != nil {
			records = append(records, rec)
		}
	}

	return Reconcile(full, accepted), records
}

// extractSpan resolves one candidate span. It returns the record to
// keep (nil when there is none) and whether the span's text should be
// removed from the transcript.
func (p *Processor) extractSpan(messageID string, span Span, final bool) (*Record, bool) {
	logCtx := log.WithFields(log.Fields{
		"message_id": messageID,
		"start":      span.Start,
		"complete":   span.Complete,
	})

	payload, err := Decode(span.Text)
	if err != nil {
		if !span.Complete && !final {
			// Still streaming: hold the tail back until it resolves.
			logCtx.WithError(ErrScanIncomplete).Debug("trailing span pending")
			return nil, true
		}
		logCtx.WithError(err).Debug("span left in text")
		return nil, false
	}
	if len(payload.Value) == 0 {
		// Zero-key object; not a visualization.
		if !span.Complete && !final {
			return nil, true
		}
		return nil, false
	}
	if !span.Complete {
		payload.IsPartial = true
	}

	match, err := p.reg.Classify(payload.Raw)
	if err != nil {
		switch {
		case isTransformErr(err):
			// Recognized kind, broken payload: drop the record but
			// still strip the span so raw data never renders.
			logCtx.WithError(ErrTransformFailed).WithField("cause", err.Error()).Warn("visualization dropped")
			return nil, true
		case !span.Complete && !final:
			logCtx.WithError(ErrScanIncomplete).Debug("trailing span pending")
			return nil, true
		default:
			logCtx.WithError(ErrClassificationUnknown).Debug("span left in text")
			return nil, false
		}
	}

	var value map[string]any
	if err := json.Unmarshal(match.Canonical, &value); err != nil {
		// Canonical bytes come from our own transforms; treat a decode
		// failure here like a transform failure.
		logCtx.WithError(ErrTransformFailed).WithField("cause", err.Error()).Warn("visualization dropped")
		return nil, true
	}

	rec := &Record{
		Kind:       match.Kind,
		TemplateID: match.TemplateID,
		IsPartial:  payload.IsPartial,
		Payload:    value,
	}
	if typed, err := registry.DecodeTyped(match.Kind, match.Canonical); err == nil {
		rec.Typed = typed
	} else {
		logCtx.WithField("kind", match.Kind).WithError(err).Debug("typed decode unavailable")
	}

	logCtx.WithFields(log.Fields{
		"kind":    match.Kind,
		"partial": rec.IsPartial,
	}).Debug("visualization extracted")
	return rec, true
}

// commit applies record candidates to the message state under the
// replacement rule and returns those that were actually set or
// upgraded, preserving extraction order.
func (p *Processor) commit(st *MessageState, candidates []*Record) []*Record {
	var changed []*Record
	seen := make(map[registry.Kind]bool)
	for _, rec := range candidates {
		// First match wins within one pass.
		if seen[rec.Kind] {
			continue
		}
		seen[rec.Kind] = true
		if st.upsertRecord(rec) {
			changed = append(changed, rec)
		}
	}
	return changed
}

func isTransformErr(err error) bool {
	return errors.Is(err, registry.ErrTransform)
}
