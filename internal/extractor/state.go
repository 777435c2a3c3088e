package extractor

import (
	"github.com/vantagics/vizstream/internal/cache"
	"github.com/vantagics/vizstream/internal/registry"
)

// Status tracks the per-message lifecycle. Transitions are Empty →
// Streaming on the first chunk, Streaming → Streaming on every further
// chunk, and Streaming → Finalized on the explicit end-of-stream
// signal. Finalized is terminal.
type Status int

const (
	StatusEmpty Status = iota
	StatusStreaming
	StatusFinalized
)

// Record is one extracted visualization. Exactly one record per kind
// survives per message.
type Record struct {
	Kind       registry.Kind  `json:"kind"`
	TemplateID string         `json:"templateId,omitempty"`
	IsPartial  bool           `json:"isPartial,omitempty"`
	Payload    map[string]any `json:"payload"`
	// Typed holds the canonical per-kind struct (registry.MetricsPayload
	// and friends) when the payload unmarshals into it; nil otherwise.
	Typed any `json:"-"`
}

// MessageState is the engine's working state for one logical message.
// It is exclusively owned by the processor that created it and mutated
// only in response to chunks for its message ID.
type MessageState struct {
	ID       string
	AgentKey string
	Status   Status

	// RawText is the latest full raw snapshot; CleanedText is the last
	// reconciled text handed to the consumer.
	RawText     string
	CleanedText string

	Visualizations map[registry.Kind]*Record

	recent *cache.RecentHashes
}

func newMessageState(id, agentKey string, dedupCap int) *MessageState {
	return &MessageState{
		ID:             id,
		AgentKey:       agentKey,
		Status:         StatusEmpty,
		Visualizations: make(map[registry.Kind]*Record),
		recent:         cache.NewRecentHashes(dedupCap),
	}
}

// upsertRecord applies the replacement rule: a kind's record is set
// on first sight and thereafter replaced only when a partial record
// resolves to a complete one. Reports whether the stored record
// changed.
func (m *MessageState) upsertRecord(rec *Record) bool {
	existing, ok := m.Visualizations[rec.Kind]
	if !ok {
		m.Visualizations[rec.Kind] = rec
		return true
	}
	if existing.IsPartial && !rec.IsPartial {
		m.Visualizations[rec.Kind] = rec
		return true
	}
	return false
}
