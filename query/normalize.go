package query

import (
	"cmp"
	"slices"
	"strings"

	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/format"
	"hermannm.dev/widgetengine/pivot"
	"hermannm.dev/widgetengine/quickcalc"
	"hermannm.dev/widgetengine/value"
)

// Result is what a widget renders.
type Result struct {
	PlanID string `json:"planId"`
	Mode   Mode   `json:"mode"`
	// Rows hold dimension labels as strings and series values as numbers.
	Rows []value.Row `json:"rows"`
	// Series are the numeric columns of Rows, in display order.
	Series     []string `json:"series"`
	LineSeries []string `json:"lineSeries,omitempty"`
	// Formatted holds display strings for the series of measures with a format code, parallel to
	// Rows.
	Formatted []map[string]string `json:"formatted,omitempty"`

	Pivot *aggregate.PivotResult `json:"pivot,omitempty"`
	Tree  *pivot.Tree            `json:"tree,omitempty"`
}

// record is a result row in positional form: dimensions and measures in plan order.
type record struct {
	dimensions []string
	measures   []float64
}

// Normalize turns aggregated rows, from ExecuteLocal or a remote engine, into the rows a widget
// renders. Rows from both sources normalize identically: column names are matched loosely,
// measures are coerced to numbers (null or empty becomes 0), then rows are sorted, labeled,
// collapsed, split by legend, cut to the limit and extended with quick measures.
func Normalize(rows []value.Row, plan Plan) Result {
	records := make([]record, len(rows))
	for i, row := range rows {
		records[i] = alignRecord(row, plan)
	}

	sortRecords(records, plan)
	records = labelAxes(records, plan)
	// Collapsed labels sum their measures, so measure order must be restored. Ties keep the
	// chronological order from the first sort.
	if byMeasure := measureOrder(plan); byMeasure != nil {
		slices.SortStableFunc(records, byMeasure)
	}
	if plan.HideZeroValues && len(plan.Measures) > 0 {
		records = slices.DeleteFunc(records, func(candidate record) bool {
			return !slices.ContainsFunc(candidate.measures, func(measure float64) bool { return measure != 0 })
		})
	}

	var result Result
	if plan.Legend != "" {
		result.Rows, result.Series = pivotLegend(records, plan)
	} else {
		result.Rows, result.Series = toRows(records, plan)
	}

	if plan.Limit > 0 && len(result.Rows) > plan.Limit {
		result.Rows = result.Rows[:plan.Limit]
	}

	measureSeries := result.Series
	result.Rows, result.Series = applyQuickMeasures(result.Rows, result.Series, plan)
	result.LineSeries = matchSeries(plan.LineSeries, result.Series)
	result.Formatted = formatSeries(result.Rows, measureSeries, plan)
	result.PlanID = plan.ID
	return result
}

func alignRecord(row value.Row, plan Plan) record {
	aligned := record{
		dimensions: make([]string, len(plan.Dimensions)),
		measures:   make([]float64, len(plan.Measures)),
	}

	for i, dimension := range plan.Dimensions {
		column, ok := lookupColumn(row, dimension.Field)
		if !ok || column.IsNull() {
			aligned.dimensions[i] = aggregate.UnknownKey
		} else {
			aligned.dimensions[i] = column.String()
		}
	}

	for i, measure := range plan.Measures {
		column, ok := lookupColumn(row, measureAliases(measure)...)
		if !ok {
			continue
		}
		if number, ok := column.Float(); ok {
			aligned.measures[i] = aggregate.Round10(number)
		}
	}

	return aligned
}

// measureAliases lists the column names remote engines are known to return for a measure.
func measureAliases(measure Measure) []string {
	aggregation := measure.Aggregation.String()
	aliases := []string{
		measure.Key,
		measure.Field + "_" + aggregation,
		aggregation + "(" + measure.Field + ")",
		aggregation + "_" + measure.Field,
	}
	if measure.Key == measure.Field {
		return aliases
	}
	return aliases[:1]
}

// lookupColumn finds the first candidate column in the row, exactly or else case-insensitively.
func lookupColumn(row value.Row, candidates ...string) (value.Value, bool) {
	for _, candidate := range candidates {
		if column, ok := row.Get(candidate); ok {
			return column, true
		}
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)

		var found value.Value
		var ok bool
		row.Each(func(key string, column value.Value) bool {
			if strings.EqualFold(strings.TrimSpace(key), candidate) {
				found, ok = column, true
				return false
			}
			return true
		})
		if ok {
			return found, true
		}
	}

	return value.Value{}, false
}

// compareDimension orders dimension values numerically when both are numbers, else as strings.
func compareDimension(left string, right string) int {
	leftNumber, leftIsNumber := value.ParseNumber(left)
	rightNumber, rightIsNumber := value.ParseNumber(right)
	if leftIsNumber && rightIsNumber {
		return cmp.Compare(leftNumber, rightNumber)
	}
	return strings.Compare(left, right)
}

func compareDimensions(left record, right record) int {
	for i := range left.dimensions {
		if comparison := compareDimension(left.dimensions[i], right.dimensions[i]); comparison != 0 {
			return comparison
		}
	}
	return 0
}

// sortRecords orders records by the plan's sort, breaking ties (or ordering everything, when the
// plan has no sort) by dimensions ascending. Sorting happens on raw values, before axis labels
// replace e.g. "2024-01" with "Jan", so dates stay chronological.
func sortRecords(records []record, plan Plan) {
	primary := measureOrder(plan)

	if plan.Sort != nil && !plan.Sort.ByMeasure {
		direction := 1
		if plan.Sort.Descending {
			direction = -1
		}
		if index := slices.IndexFunc(plan.Dimensions, func(dimension Dimension) bool {
			return dimension.Field == plan.Sort.Key
		}); index != -1 {
			primary = func(left record, right record) int {
				return direction * compareDimension(left.dimensions[index], right.dimensions[index])
			}
		}
	}

	slices.SortStableFunc(records, func(left record, right record) int {
		if primary != nil {
			if comparison := primary(left, right); comparison != 0 {
				return comparison
			}
		}
		return compareDimensions(left, right)
	})
}

// measureOrder compares records by the plan's sort measure, or is nil when the plan does not
// sort by a measure.
func measureOrder(plan Plan) func(left record, right record) int {
	if plan.Sort == nil || !plan.Sort.ByMeasure {
		return nil
	}

	index := slices.IndexFunc(plan.Measures, func(measure Measure) bool {
		return measure.Key == plan.Sort.Key
	})
	if index == -1 {
		return nil
	}

	direction := 1
	if plan.Sort.Descending {
		direction = -1
	}
	return func(left record, right record) int {
		return direction * cmp.Compare(left.measures[index], right.measures[index])
	}
}

// labelAxes replaces date-hierarchy dimension values with axis labels, then merges records that
// end up with the same labels by summing their measures.
func labelAxes(records []record, plan Plan) []record {
	levels := make([]fields.Level, len(plan.Dimensions))
	hasHierarchy := false
	for i, dimension := range plan.Dimensions {
		if _, level, ok := fields.SplitHierarchy(dimension.Field); ok {
			levels[i] = level
			hasHierarchy = true
		}
	}
	if !hasHierarchy {
		return records
	}

	collapsed := make([]record, 0, len(records))
	positions := make(map[string]int, len(records))

	for _, current := range records {
		labelled := record{
			dimensions: make([]string, len(current.dimensions)),
			measures:   slices.Clone(current.measures),
		}
		for i, raw := range current.dimensions {
			if levels[i] != 0 {
				labelled.dimensions[i] = format.FormatAxisLabel(levels[i], raw)
			} else {
				labelled.dimensions[i] = raw
			}
		}

		key := strings.Join(labelled.dimensions, "\x00")
		if position, seen := positions[key]; seen {
			for i, measure := range labelled.measures {
				collapsed[position].measures[i] = aggregate.Round10(collapsed[position].measures[i] + measure)
			}
			continue
		}
		positions[key] = len(collapsed)
		collapsed = append(collapsed, labelled)
	}

	return collapsed
}

func toRows(records []record, plan Plan) (rows []value.Row, series []string) {
	rows = make([]value.Row, len(records))
	for i, record := range records {
		row := value.NewRow(len(record.dimensions) + len(record.measures))
		for j, dimension := range plan.Dimensions {
			row.Set(dimension.Field, value.String(record.dimensions[j]))
		}
		for j, measure := range plan.Measures {
			row.Set(measure.Key, value.Number(record.measures[j]))
		}
		rows[i] = row
	}
	return rows, plan.MeasureKeys()
}

// legendColumn names the column for a legend value and measure. A single measure is named by the
// legend value alone.
func legendColumn(legendValue string, measureKey string, measureCount int) string {
	if measureCount == 1 {
		return legendValue
	}
	return legendValue + " - " + measureKey
}

// pivotLegend turns one record per (category, legend value) into one row per category, with a
// column per legend value. Categories keep their sorted order. Missing cells are 0.
func pivotLegend(records []record, plan Plan) (rows []value.Row, series []string) {
	legendIndex := slices.IndexFunc(plan.Dimensions, func(dimension Dimension) bool {
		return dimension.Field == plan.Legend
	})
	categories := plan.CategoryDimensions()

	var legendValues []string
	for _, record := range records {
		if !slices.Contains(legendValues, record.dimensions[legendIndex]) {
			legendValues = append(legendValues, record.dimensions[legendIndex])
		}
	}
	slices.SortFunc(legendValues, compareDimension)

	for _, legendValue := range legendValues {
		for _, measure := range plan.Measures {
			series = append(series, legendColumn(legendValue, measure.Key, len(plan.Measures)))
		}
	}

	positions := make(map[string]int)
	for _, record := range records {
		categoryValues := make([]string, 0, len(categories))
		for i, dimension := range record.dimensions {
			if i != legendIndex {
				categoryValues = append(categoryValues, dimension)
			}
		}

		key := strings.Join(categoryValues, "\x00")
		position, seen := positions[key]
		if !seen {
			row := value.NewRow(len(categories) + len(series))
			for i, category := range categories {
				row.Set(category.Field, value.String(categoryValues[i]))
			}
			for _, column := range series {
				row.Set(column, value.Number(0))
			}
			position = len(rows)
			positions[key] = position
			rows = append(rows, row)
		}

		legendValue := record.dimensions[legendIndex]
		for i, measure := range plan.Measures {
			rows[position].Set(
				legendColumn(legendValue, measure.Key, len(plan.Measures)),
				value.Number(record.measures[i]),
			)
		}
	}

	return rows, series
}

func applyQuickMeasures(rows []value.Row, series []string, plan Plan) ([]value.Row, []string) {
	measureSeries := slices.Clone(series)
	for _, quickMeasure := range plan.QuickMeasures {
		if quickMeasure.SourceKey == "" {
			continue
		}

		if plan.Legend == "" {
			rows = quickcalc.Apply(rows, quickMeasure.SourceKey, quickMeasure.Label, quickMeasure.Calculation)
			series = append(series, quickMeasure.Label)
			continue
		}

		for _, column := range measureSeries {
			legendValue, isSource := legendSeriesValue(column, quickMeasure.SourceKey, plan)
			if !isSource {
				continue
			}
			output := legendValue + " - " + quickMeasure.Label
			rows = quickcalc.Apply(rows, column, output, quickMeasure.Calculation)
			series = append(series, output)
		}
	}
	return rows, series
}

// formatSeries renders the measure series whose measure has a format code. Quick measure series
// are left out. Returns nil when no measure has a format code.
func formatSeries(rows []value.Row, measureSeries []string, plan Plan) []map[string]string {
	codes := make(map[string]string)
	for _, column := range measureSeries {
		for _, measure := range plan.Measures {
			if measure.Format == "" {
				continue
			}
			matches := column == measure.Key
			if plan.Legend != "" {
				_, matches = legendSeriesValue(column, measure.Key, plan)
			}
			if matches {
				codes[column] = measure.Format
			}
		}
	}
	if len(codes) == 0 {
		return nil
	}

	formatted := make([]map[string]string, len(rows))
	for i, row := range rows {
		formatted[i] = make(map[string]string, len(codes))
		for column, code := range codes {
			if cell, ok := row.Get(column); ok {
				formatted[i][column] = format.Format(cell, code)
			}
		}
	}
	return formatted
}

// legendSeriesValue reports whether a legend series column holds the given measure, and for
// which legend value.
func legendSeriesValue(column string, measureKey string, plan Plan) (legendValue string, ok bool) {
	if len(plan.Measures) == 1 {
		return column, plan.Measures[0].Key == measureKey
	}
	return strings.CutSuffix(column, " - "+measureKey)
}

func matchSeries(requested []string, series []string) []string {
	var matched []string
	for _, name := range requested {
		index := slices.IndexFunc(series, func(candidate string) bool {
			return strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(name))
		})
		if index != -1 && !slices.Contains(matched, series[index]) {
			matched = append(matched, series[index])
		}
	}
	return matched
}
