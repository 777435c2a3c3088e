package registry

import (
	"encoding/json"
	"fmt"
)

// DecodeTyped unmarshals a canonical payload into the strongly-typed
// struct for its kind. Payloads that never matched a kind stay raw
// maps; this is only called after successful classification.
func DecodeTyped(k Kind, canonical []byte) (any, error) {
	var (
		out any
		err error
	)
	switch k {
	case KindMetrics:
		out, err = decodeInto[MetricsPayload](canonical)
	case KindAllocations:
		out, err = decodeInto[AllocationsPayload](canonical)
	case KindChannels:
		out, err = decodeInto[ChannelsPayload](canonical)
	case KindSegments:
		out, err = decodeInto[SegmentsPayload](canonical)
	case KindCreative:
		out, err = decodeInto[CreativePayload](canonical)
	case KindTimeline:
		out, err = decodeInto[TimelinePayload](canonical)
	case KindDecisionTree:
		out, err = decodeInto[DecisionTreePayload](canonical)
	case KindHistogram:
		out, err = decodeInto[HistogramPayload](canonical)
	case KindDoubleHistogram:
		out, err = decodeInto[DoubleHistogramPayload](canonical)
	case KindBarChart:
		out, err = decodeInto[BarChartPayload](canonical)
	case KindDonutChart:
		out, err = decodeInto[DonutChartPayload](canonical)
	default:
		return nil, fmt.Errorf("registry: no typed form for kind %q", k)
	}
	return out, err
}

func decodeInto[T any](raw []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
