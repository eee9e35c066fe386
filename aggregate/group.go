package aggregate

import (
	"cmp"
	"slices"

	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/value"
)

// UnknownKey is the group for rows where the grouping field is missing or null.
const UnknownKey = "Unknown"

type GroupOptions struct {
	// HideZeroValues drops groups whose aggregate is exactly 0, keeping empty categories out of
	// charts. This also hides groups that genuinely total 0.
	HideZeroValues bool
}

type Group struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

type LegendGroup struct {
	Key    string  `json:"key"`
	Legend string  `json:"legend"`
	Value  float64 `json:"value"`
}

// GroupKey renders a row's value for a grouping field as a string key.
func GroupKey(row value.Row, field string) string {
	resolved, ok := fields.Resolve(row, field)
	if !ok || resolved.IsNull() {
		return UnknownKey
	}
	return resolved.String()
}

// GroupAndAggregate aggregates valueField per distinct value of groupField, sorted by key.
// Keys compare as strings, so numbers and dates only sort correctly when they share a
// fixed-width form (as hierarchy fields do).
func GroupAndAggregate(
	rows []value.Row,
	groupField string,
	valueField string,
	kind Kind,
	options GroupOptions,
) []Group {
	buckets := newBuckets[string]()
	for _, row := range rows {
		buckets.add(GroupKey(row, groupField), row)
	}

	groups := make([]Group, 0, len(buckets.order))
	for _, key := range buckets.order {
		aggregated := Aggregate(buckets.rows[key], valueField, kind)
		if options.HideZeroValues && aggregated == 0 {
			continue
		}
		groups = append(groups, Group{Key: key, Value: aggregated})
	}

	slices.SortStableFunc(groups, func(a Group, b Group) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return groups
}

// GroupAndAggregateMulti groups by groupField and then by legendField within each group, as for
// stacked or multi-series charts.
func GroupAndAggregateMulti(
	rows []value.Row,
	groupField string,
	legendField string,
	valueField string,
	kind Kind,
	options GroupOptions,
) []LegendGroup {
	type groupAndLegend struct{ key, legend string }

	buckets := newBuckets[groupAndLegend]()
	for _, row := range rows {
		buckets.add(groupAndLegend{GroupKey(row, groupField), GroupKey(row, legendField)}, row)
	}

	groups := make([]LegendGroup, 0, len(buckets.order))
	for _, key := range buckets.order {
		aggregated := Aggregate(buckets.rows[key], valueField, kind)
		if options.HideZeroValues && aggregated == 0 {
			continue
		}
		groups = append(groups, LegendGroup{Key: key.key, Legend: key.legend, Value: aggregated})
	}

	slices.SortStableFunc(groups, func(a LegendGroup, b LegendGroup) int {
		if byKey := cmp.Compare(a.Key, b.Key); byKey != 0 {
			return byKey
		}
		return cmp.Compare(a.Legend, b.Legend)
	})
	return groups
}

// buckets collects rows per key, remembering first-seen key order.
type buckets[K comparable] struct {
	order []K
	rows  map[K][]value.Row
}

func newBuckets[K comparable]() buckets[K] {
	return buckets[K]{rows: make(map[K][]value.Row)}
}

func (buckets *buckets[K]) add(key K, row value.Row) {
	existing, ok := buckets.rows[key]
	if !ok {
		buckets.order = append(buckets.order, key)
	}
	buckets.rows[key] = append(existing, row)
}
