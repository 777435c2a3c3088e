// Package registry maps decoded agent payloads onto the fixed set of
// visualization kinds the client knows how to render. Classification is
// driven by an explicit discriminator when one is present, falling back
// to structural shape probing in a fixed priority order.
package registry

// Kind identifies one renderable visualization schema.
type Kind string

const (
	KindMetrics         Kind = "metrics"
	KindAllocations     Kind = "allocations"
	KindChannels        Kind = "channels"
	KindSegments        Kind = "segments"
	KindCreative        Kind = "creative"
	KindTimeline        Kind = "timeline"
	KindDecisionTree    Kind = "decisionTree"
	KindHistogram       Kind = "histogram"
	KindDoubleHistogram Kind = "doubleHistogram"
	KindBarChart        Kind = "barChart"
	KindDonutChart      Kind = "donutChart"
)

// Metric is one labeled value in a metrics card.
type Metric struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Change string `json:"change,omitempty"`
	Trend  string `json:"trend,omitempty"`
}

// MetricsPayload is the canonical shape for the metrics kind.
type MetricsPayload struct {
	Title   string   `json:"title,omitempty"`
	Metrics []Metric `json:"metrics"`
}

// Allocation is one budget slice in an allocation table.
type Allocation struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Budget     float64 `json:"budget,omitempty"`
	Color      string  `json:"color,omitempty"`
	Rationale  string  `json:"rationale,omitempty"`
}

// AllocationsPayload is the canonical shape for the allocations kind.
type AllocationsPayload struct {
	Title       string       `json:"title,omitempty"`
	TotalBudget float64      `json:"totalBudget,omitempty"`
	Allocations []Allocation `json:"allocations"`
}

// Channel is one marketing channel row.
type Channel struct {
	Name       string  `json:"name"`
	Spend      float64 `json:"spend,omitempty"`
	Revenue    float64 `json:"revenue,omitempty"`
	ROAS       float64 `json:"roas,omitempty"`
	Conversion float64 `json:"conversion,omitempty"`
}

// ChannelsPayload is the canonical shape for the channels kind.
type ChannelsPayload struct {
	Title    string    `json:"title,omitempty"`
	Channels []Channel `json:"channels"`
}

// Segment is one audience segment row.
type Segment struct {
	Name        string  `json:"name"`
	Share       float64 `json:"share"`
	Description string  `json:"description,omitempty"`
	Value       float64 `json:"value,omitempty"`
}

// SegmentsPayload is the canonical shape for the segments kind.
type SegmentsPayload struct {
	Title    string    `json:"title,omitempty"`
	Segments []Segment `json:"segments"`
}

// CreativePayload is the canonical shape for the creative kind.
type CreativePayload struct {
	Title    string   `json:"title,omitempty"`
	Headline string   `json:"headline,omitempty"`
	Body     string   `json:"body,omitempty"`
	CTA      string   `json:"cta,omitempty"`
	Variants []string `json:"variants,omitempty"`
}

// TimelinePhase is one phase or event on a timeline.
type TimelinePhase struct {
	Name     string `json:"name"`
	Period   string `json:"period,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Complete bool   `json:"complete,omitempty"`
}

// TimelinePayload is the canonical shape for the timeline kind.
type TimelinePayload struct {
	Title  string          `json:"title,omitempty"`
	Phases []TimelinePhase `json:"phases"`
}

// TreeNode is one node of a decision tree, children nested.
type TreeNode struct {
	Label    string     `json:"label"`
	Detail   string     `json:"detail,omitempty"`
	Children []TreeNode `json:"children,omitempty"`
}

// DecisionTreePayload is the canonical shape for the decisionTree kind.
type DecisionTreePayload struct {
	Title string   `json:"title,omitempty"`
	Root  TreeNode `json:"root"`
}

// HistogramBin is one bucket of a histogram.
type HistogramBin struct {
	Label string  `json:"label"`
	Count float64 `json:"count"`
}

// HistogramPayload is the canonical shape for the histogram kind.
type HistogramPayload struct {
	Title string         `json:"title,omitempty"`
	Bins  []HistogramBin `json:"bins"`
}

// DoubleHistogramPayload holds two comparable bin series.
type DoubleHistogramPayload struct {
	Title       string         `json:"title,omitempty"`
	LeftLabel   string         `json:"leftLabel,omitempty"`
	RightLabel  string         `json:"rightLabel,omitempty"`
	Left        []HistogramBin `json:"left"`
	Right       []HistogramBin `json:"right"`
}

// Bar is one bar of a bar chart.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// BarChartPayload is the canonical shape for the barChart kind.
type BarChartPayload struct {
	Title string `json:"title,omitempty"`
	Bars  []Bar  `json:"bars"`
}

// DonutSlice is one slice of a donut chart.
type DonutSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// DonutChartPayload is the canonical shape for the donutChart kind.
type DonutChartPayload struct {
	Title  string       `json:"title,omitempty"`
	Slices []DonutSlice `json:"slices"`
}
