package registry

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrUnrecognized reports that a payload matched no registered kind.
// The caller leaves such payloads untouched in the transcript.
var ErrUnrecognized = errors.New("registry: payload matches no visualization kind")

// ErrTransform reports that a payload matched a kind but its shape could
// not be normalized to the canonical form.
var ErrTransform = errors.New("registry: payload normalization failed")

// Definition binds a kind to its discriminator aliases, its structural
// shape predicate, and an optional canonicalizing transform.
//
// Registration order is the structural-cascade priority: when a payload
// carries no discriminator and satisfies several shape predicates, the
// earliest registered kind wins. This tie-break is deliberate and must
// stay deterministic.
type Definition struct {
	Kind    Kind
	Aliases []string
	Shape   func(gjson.Result) bool
	// Transform rewrites an accepted alternate shape into the canonical
	// one. nil means the payload is already canonical.
	Transform func(raw []byte) ([]byte, error)
}

// Match is a successful classification.
type Match struct {
	Kind       Kind
	TemplateID string
	// Canonical is the payload after any kind-specific normalization.
	Canonical []byte
}

type suffixEntry struct {
	alias string
	kind  Kind
}

// Registry holds the kind table. Instances are cheap and mutable only
// through AddAlias, so each engine owns its own rather than sharing a
// package global.
type Registry struct {
	defs     []Definition
	byAlias  map[string]Kind
	suffixes []suffixEntry
}

// New returns a registry populated with the built-in kinds in cascade
// priority order.
func New() *Registry {
	r := &Registry{byAlias: make(map[string]Kind)}
	for _, def := range builtinDefinitions() {
		r.register(def)
	}
	return r
}

func (r *Registry) register(def Definition) {
	r.defs = append(r.defs, def)
	for _, a := range def.Aliases {
		r.addAlias(a, def.Kind)
	}
	r.addAlias(string(def.Kind), def.Kind)
}

func (r *Registry) addAlias(alias string, k Kind) {
	key := normalizeAlias(alias)
	if key == "" {
		return
	}
	if _, exists := r.byAlias[key]; !exists {
		r.byAlias[key] = k
	}
	r.suffixes = append(r.suffixes, suffixEntry{alias: key, kind: k})
	// Longest alias first so "double_histogram" is never claimed by the
	// plain "histogram" suffix.
	sort.SliceStable(r.suffixes, func(i, j int) bool {
		return len(r.suffixes[i].alias) > len(r.suffixes[j].alias)
	})
}

// AddAlias registers an extra discriminator value for an existing kind.
// Unknown kinds are rejected.
func (r *Registry) AddAlias(alias string, k Kind) bool {
	for _, def := range r.defs {
		if def.Kind == k {
			r.addAlias(alias, k)
			return true
		}
	}
	return false
}

// Kinds returns the registered kinds in cascade priority order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def.Kind)
	}
	return out
}

// Classify resolves raw JSON to a visualization kind.
//
// Resolution order, first match wins:
//  1. explicit "visualizationType" discriminator (unknown value: the
//     payload is not a visualization, no cascade fallback);
//  2. "templateId" carrying a conventional kind suffix;
//  3. structural shape cascade in registration order.
//
// Returns ErrUnrecognized when nothing matches, and ErrTransform when a
// matched payload cannot be normalized.
func (r *Registry) Classify(raw []byte) (*Match, error) {
	v := gjson.ParseBytes(raw)
	if !v.IsObject() {
		return nil, ErrUnrecognized
	}

	templateID := v.Get("templateId").String()
	if templateID == "" {
		templateID = v.Get("template_id").String()
	}

	if disc := v.Get("visualizationType").String(); disc != "" {
		k, ok := r.byAlias[normalizeAlias(disc)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown discriminator %q", ErrUnrecognized, disc)
		}
		return r.finish(k, templateID, raw)
	}

	if templateID != "" {
		if k, ok := r.lookupSuffix(templateID); ok {
			return r.finish(k, templateID, raw)
		}
	}

	for _, def := range r.defs {
		if def.Shape != nil && def.Shape(v) {
			return r.finish(def.Kind, templateID, raw)
		}
	}
	return nil, ErrUnrecognized
}

func (r *Registry) finish(k Kind, templateID string, raw []byte) (*Match, error) {
	canonical := raw
	for _, def := range r.defs {
		if def.Kind != k {
			continue
		}
		if def.Transform != nil {
			out, err := def.Transform(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrTransform, k, err)
			}
			canonical = out
		}
		break
	}
	return &Match{Kind: k, TemplateID: templateID, Canonical: canonical}, nil
}

func (r *Registry) lookupSuffix(templateID string) (Kind, bool) {
	t := normalizeAlias(templateID)
	for _, e := range r.suffixes {
		if strings.HasSuffix(t, e.alias) {
			return e.kind, true
		}
	}
	return "", false
}

// normalizeAlias lowercases and strips separators so "double_histogram",
// "double-histogram" and "DoubleHistogram" resolve identically.
func normalizeAlias(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// --- Built-in definitions ---

func builtinDefinitions() []Definition {
	return []Definition{
		{
			Kind:      KindAllocations,
			Aliases:   []string{"allocation", "budget_allocations", "budget_split"},
			Shape:     allocationsShape,
			Transform: transformAllocations,
		},
		{
			Kind:    KindChannels,
			Aliases: []string{"channel", "channel_performance", "channel_mix"},
			Shape:   channelsShape,
		},
		{
			Kind:      KindSegments,
			Aliases:   []string{"segment", "audience_segments"},
			Shape:     segmentsShape,
			Transform: transformSegments,
		},
		{
			Kind:      KindMetrics,
			Aliases:   []string{"metric", "kpi", "metrics_card"},
			Shape:     metricsShape,
			Transform: transformMetrics,
		},
		{
			Kind:    KindCreative,
			Aliases: []string{"ad_creative", "copy"},
			Shape:   creativeShape,
		},
		{
			Kind:      KindTimeline,
			Aliases:   []string{"roadmap", "schedule"},
			Shape:     timelineShape,
			Transform: transformTimeline,
		},
		{
			Kind:    KindDecisionTree,
			Aliases: []string{"decision_tree", "tree"},
			Shape:   decisionTreeShape,
		},
		{
			Kind:    KindHistogram,
			Aliases: []string{"distribution"},
			Shape:   histogramShape,
		},
		{
			Kind:      KindDoubleHistogram,
			Aliases:   []string{"double_histogram", "dual_histogram", "comparison_histogram"},
			Shape:     doubleHistogramShape,
			Transform: transformDoubleHistogram,
		},
		{
			Kind:      KindBarChart,
			Aliases:   []string{"bar_chart", "bar"},
			Shape:     barChartShape,
			Transform: transformBarChart,
		},
		{
			Kind:      KindDonutChart,
			Aliases:   []string{"donut_chart", "donut", "pie", "pie_chart"},
			Shape:     donutChartShape,
			Transform: transformDonutChart,
		},
	}
}

// --- Shape predicates ---

func nonEmptyArray(v gjson.Result, path string) ([]gjson.Result, bool) {
	a := v.Get(path)
	if !a.IsArray() {
		return nil, false
	}
	arr := a.Array()
	return arr, len(arr) > 0
}

func everyElem(arr []gjson.Result, pred func(gjson.Result) bool) bool {
	for _, el := range arr {
		if !el.IsObject() || !pred(el) {
			return false
		}
	}
	return true
}

func hasAnyKey(el gjson.Result, keys ...string) bool {
	for _, k := range keys {
		if el.Get(k).Exists() {
			return true
		}
	}
	return false
}

func hasNumericKey(el gjson.Result, keys ...string) bool {
	for _, k := range keys {
		f := el.Get(k)
		if !f.Exists() {
			continue
		}
		if f.Type == gjson.Number {
			return true
		}
		if f.Type == gjson.String {
			if _, err := parseLooseNumber(f.String()); err == nil {
				return true
			}
		}
	}
	return false
}

func allocationsShape(v gjson.Result) bool {
	arr, ok := nonEmptyArray(v, "allocations")
	if !ok {
		return false
	}
	return everyElem(arr, func(el gjson.Result) bool {
		return hasAnyKey(el, "name", "channel", "category", "label") &&
			hasNumericKey(el, "percentage", "percent", "share", "value") &&
			hasAnyKey(el, "budget", "amount", "spend", "color", "rationale", "roi")
	})
}

func channelsShape(v gjson.Result) bool {
	arr, ok := nonEmptyArray(v, "channels")
	if !ok {
		return false
	}
	return everyElem(arr, func(el gjson.Result) bool {
		return hasAnyKey(el, "name", "channel", "label") &&
			hasNumericKey(el, "spend", "revenue", "roas", "conversion", "cpa", "ctr")
	})
}

func segmentsShape(v gjson.Result) bool {
	arr, ok := nonEmptyArray(v, "segments")
	if !ok {
		return false
	}
	return everyElem(arr, func(el gjson.Result) bool {
		return hasAnyKey(el, "name", "audience", "label") &&
			hasNumericKey(el, "share", "percent", "percentage", "size", "value")
	})
}

func metricsShape(v gjson.Result) bool {
	arr, ok := nonEmptyArray(v, "metrics")
	if !ok {
		arr, ok = nonEmptyArray(v, "data")
		if !ok {
			return false
		}
	}
	return everyElem(arr, func(el gjson.Result) bool {
		return hasAnyKey(el, "label", "name") && el.Get("value").Exists()
	})
}

func creativeShape(v gjson.Result) bool {
	if v.Get("headline").Exists() && hasAnyKey(v, "body", "cta") {
		return true
	}
	arr, ok := nonEmptyArray(v, "variants")
	if !ok {
		return false
	}
	for _, el := range arr {
		if el.Type != gjson.String {
			return false
		}
	}
	return v.Get("headline").Exists() || v.Get("cta").Exists()
}

func timelineShape(v gjson.Result) bool {
	for _, path := range []string{"phases", "events", "milestones"} {
		arr, ok := nonEmptyArray(v, path)
		if !ok {
			continue
		}
		if everyElem(arr, func(el gjson.Result) bool {
			return hasAnyKey(el, "name", "label", "title") &&
				hasAnyKey(el, "period", "start", "date", "when")
		}) {
			return true
		}
	}
	return false
}

func decisionTreeShape(v gjson.Result) bool {
	root := v.Get("root")
	if root.IsObject() && root.Get("label").Exists() && root.Get("children").IsArray() {
		return true
	}
	nodes, ok := nonEmptyArray(v, "nodes")
	if !ok || !v.Get("edges").IsArray() {
		return false
	}
	return everyElem(nodes, func(el gjson.Result) bool {
		return hasAnyKey(el, "id", "label")
	})
}

func binsShape(arr []gjson.Result) bool {
	return everyElem(arr, func(el gjson.Result) bool {
		return hasAnyKey(el, "label", "bucket", "range") &&
			hasNumericKey(el, "count", "value", "frequency")
	})
}

func histogramShape(v gjson.Result) bool {
	for _, path := range []string{"bins", "buckets"} {
		if arr, ok := nonEmptyArray(v, path); ok && binsShape(arr) {
			return true
		}
	}
	return false
}

func doubleHistogramShape(v gjson.Result) bool {
	left, lok := nonEmptyArray(v, "left")
	right, rok := nonEmptyArray(v, "right")
	if lok && rok && binsShape(left) && binsShape(right) {
		return true
	}
	series, ok := nonEmptyArray(v, "series")
	if !ok || len(series) != 2 {
		return false
	}
	for _, s := range series {
		arr, ok := nonEmptyArray(s, "bins")
		if !ok || !binsShape(arr) {
			return false
		}
	}
	return true
}

func barChartShape(v gjson.Result) bool {
	if arr, ok := nonEmptyArray(v, "bars"); ok {
		return everyElem(arr, func(el gjson.Result) bool {
			return hasAnyKey(el, "label", "name") && hasNumericKey(el, "value")
		})
	}
	cats, cok := nonEmptyArray(v, "categories")
	vals, vok := nonEmptyArray(v, "values")
	return cok && vok && len(cats) == len(vals)
}

func donutChartShape(v gjson.Result) bool {
	if arr, ok := nonEmptyArray(v, "slices"); ok {
		return everyElem(arr, func(el gjson.Result) bool {
			return hasAnyKey(el, "label", "name") && hasNumericKey(el, "value")
		})
	}
	labels, lok := nonEmptyArray(v, "labels")
	vals, vok := nonEmptyArray(v, "values")
	return lok && vok && len(labels) == len(vals)
}

// --- Canonicalizing transforms ---

// parseLooseNumber accepts plain numbers plus the formatted variants
// agents tend to emit: "45%", "$1,200", "3.5x".
func parseLooseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "x")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

func transformAllocations(raw []byte) ([]byte, error) {
	arr := gjson.GetBytes(raw, "allocations").Array()
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		item := make(map[string]any)
		name := firstString(el, "name", "channel", "category", "label")
		if name == "" {
			return nil, fmt.Errorf("allocation element missing name")
		}
		item["name"] = name
		pct, err := firstNumber(el, "percentage", "percent", "share", "value")
		if err != nil {
			return nil, fmt.Errorf("allocation %q: %v", name, err)
		}
		item["percentage"] = pct
		if b := el.Get("budget"); b.Exists() {
			v, err := looseFloat(b)
			if err != nil {
				return nil, fmt.Errorf("allocation %q budget: %v", name, err)
			}
			item["budget"] = v
		} else if b := el.Get("amount"); b.Exists() {
			v, err := looseFloat(b)
			if err != nil {
				return nil, fmt.Errorf("allocation %q amount: %v", name, err)
			}
			item["budget"] = v
		}
		if c := el.Get("color").String(); c != "" {
			item["color"] = c
		}
		if rat := firstString(el, "rationale", "reason"); rat != "" {
			item["rationale"] = rat
		}
		out = append(out, item)
	}
	return sjson.SetBytes(raw, "allocations", out)
}

func transformSegments(raw []byte) ([]byte, error) {
	arr := gjson.GetBytes(raw, "segments").Array()
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		item := make(map[string]any)
		name := firstString(el, "name", "audience", "label")
		if name == "" {
			return nil, fmt.Errorf("segment element missing name")
		}
		item["name"] = name
		share, err := firstNumber(el, "share", "percent", "percentage", "size", "value")
		if err != nil {
			return nil, fmt.Errorf("segment %q: %v", name, err)
		}
		item["share"] = share
		if d := el.Get("description").String(); d != "" {
			item["description"] = d
		}
		out = append(out, item)
	}
	return sjson.SetBytes(raw, "segments", out)
}

func transformMetrics(raw []byte) ([]byte, error) {
	if gjson.GetBytes(raw, "metrics").IsArray() {
		return raw, nil
	}
	// Alternate external shape: "data" array with name/value elements.
	arr := gjson.GetBytes(raw, "data").Array()
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		label := firstString(el, "label", "name")
		if label == "" {
			return nil, fmt.Errorf("metric element missing label")
		}
		item := map[string]any{"label": label, "value": el.Get("value").String()}
		if c := firstString(el, "change", "delta"); c != "" {
			item["change"] = c
		}
		out = append(out, item)
	}
	raw, err := sjson.SetBytes(raw, "metrics", out)
	if err != nil {
		return nil, err
	}
	return sjson.DeleteBytes(raw, "data")
}

func transformTimeline(raw []byte) ([]byte, error) {
	if gjson.GetBytes(raw, "phases").IsArray() {
		return raw, nil
	}
	for _, path := range []string{"events", "milestones"} {
		src := gjson.GetBytes(raw, path)
		if !src.IsArray() {
			continue
		}
		out := make([]map[string]any, 0)
		for _, el := range src.Array() {
			name := firstString(el, "name", "label", "title")
			if name == "" {
				return nil, fmt.Errorf("timeline element missing name")
			}
			item := map[string]any{"name": name}
			if p := firstString(el, "period", "when"); p != "" {
				item["period"] = p
			}
			if s := firstString(el, "start", "date"); s != "" {
				item["start"] = s
			}
			if e := el.Get("end").String(); e != "" {
				item["end"] = e
			}
			if d := firstString(el, "detail", "description"); d != "" {
				item["detail"] = d
			}
			out = append(out, item)
		}
		raw, err := sjson.SetBytes(raw, "phases", out)
		if err != nil {
			return nil, err
		}
		return sjson.DeleteBytes(raw, path)
	}
	return nil, fmt.Errorf("timeline payload has no phase array")
}

func transformDoubleHistogram(raw []byte) ([]byte, error) {
	if gjson.GetBytes(raw, "left").IsArray() && gjson.GetBytes(raw, "right").IsArray() {
		return raw, nil
	}
	series := gjson.GetBytes(raw, "series").Array()
	if len(series) != 2 {
		return nil, fmt.Errorf("expected 2 series, got %d", len(series))
	}
	var err error
	raw, err = sjson.SetRawBytes(raw, "left", []byte(series[0].Get("bins").Raw))
	if err != nil {
		return nil, err
	}
	raw, err = sjson.SetRawBytes(raw, "right", []byte(series[1].Get("bins").Raw))
	if err != nil {
		return nil, err
	}
	if l := series[0].Get("label").String(); l != "" {
		raw, _ = sjson.SetBytes(raw, "leftLabel", l)
	}
	if l := series[1].Get("label").String(); l != "" {
		raw, _ = sjson.SetBytes(raw, "rightLabel", l)
	}
	return sjson.DeleteBytes(raw, "series")
}

func transformBarChart(raw []byte) ([]byte, error) {
	if gjson.GetBytes(raw, "bars").IsArray() {
		return raw, nil
	}
	cats := gjson.GetBytes(raw, "categories").Array()
	vals := gjson.GetBytes(raw, "values").Array()
	if len(cats) != len(vals) {
		return nil, fmt.Errorf("categories/values length mismatch: %d vs %d", len(cats), len(vals))
	}
	out := make([]map[string]any, 0, len(cats))
	for i := range cats {
		v, err := looseFloat(vals[i])
		if err != nil {
			return nil, fmt.Errorf("bar %q: %v", cats[i].String(), err)
		}
		out = append(out, map[string]any{"label": cats[i].String(), "value": v})
	}
	raw, err := sjson.SetBytes(raw, "bars", out)
	if err != nil {
		return nil, err
	}
	raw, _ = sjson.DeleteBytes(raw, "categories")
	return sjson.DeleteBytes(raw, "values")
}

func transformDonutChart(raw []byte) ([]byte, error) {
	if gjson.GetBytes(raw, "slices").IsArray() {
		return raw, nil
	}
	labels := gjson.GetBytes(raw, "labels").Array()
	vals := gjson.GetBytes(raw, "values").Array()
	if len(labels) != len(vals) {
		return nil, fmt.Errorf("labels/values length mismatch: %d vs %d", len(labels), len(vals))
	}
	out := make([]map[string]any, 0, len(labels))
	for i := range labels {
		v, err := looseFloat(vals[i])
		if err != nil {
			return nil, fmt.Errorf("slice %q: %v", labels[i].String(), err)
		}
		out = append(out, map[string]any{"label": labels[i].String(), "value": v})
	}
	raw, err := sjson.SetBytes(raw, "slices", out)
	if err != nil {
		return nil, err
	}
	raw, _ = sjson.DeleteBytes(raw, "labels")
	return sjson.DeleteBytes(raw, "values")
}

// --- gjson helpers ---

func firstString(el gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := el.Get(k).String(); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(el gjson.Result, keys ...string) (float64, error) {
	for _, k := range keys {
		f := el.Get(k)
		if !f.Exists() {
			continue
		}
		return looseFloat(f)
	}
	return 0, fmt.Errorf("no numeric field among %v", keys)
}

func looseFloat(f gjson.Result) (float64, error) {
	if f.Type == gjson.Number {
		return f.Float(), nil
	}
	return parseLooseNumber(f.String())
}
