package aggregate

import (
	"slices"
	"strings"

	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/value"
)

const (
	// KeySeparator joins the tokens of a composite row or column key: "Europe > Norway". Field
	// values containing it are written with EscapedSeparator instead.
	KeySeparator     = " > "
	EscapedSeparator = " › "
	// DefaultToken stands in for missing or null field values in composite keys, and is the
	// single row key when no row fields are configured.
	DefaultToken = "All"
	// DefaultColumnKey is the single column key when no column fields are configured.
	DefaultColumnKey = "Value"
)

// ValueConfig is a pivot value. Format is carried to the query plan, which renders the value's
// series with it. ConditionalFormatting colors pivot cells via PivotResult.ApplyConditionalFormatting.
type ValueConfig struct {
	Field                 string            `json:"field" yaml:"field"`
	Aggregation           Kind              `json:"aggregation" yaml:"aggregation"`
	Format                string            `json:"format,omitempty" yaml:"format,omitempty"`
	ConditionalFormatting []ConditionalRule `json:"conditionalFormatting,omitempty" yaml:"conditionalFormatting,omitempty"`
}

// Key identifies the measure in pivot results: "{field}_{aggregation}".
func (config ValueConfig) Key() string {
	return config.Field + "_" + config.Aggregation.String()
}

// PivotResult is a cross-tab of rows against columns. Cells without rows are absent from Data.
type PivotResult struct {
	RowFields    []string      `json:"rowFields"`
	ColumnFields []string      `json:"columnFields"`
	Values       []ValueConfig `json:"values"`

	RowKeys    []string `json:"rowKeys"`
	ColumnKeys []string `json:"columnKeys"`

	// Data maps row key -> column key -> measure key -> value.
	Data map[string]map[string]map[string]float64 `json:"data"`
	// RowTotals maps row key -> measure key -> value.
	RowTotals map[string]map[string]float64 `json:"rowTotals"`
	// ColumnTotals maps column key -> measure key -> value.
	ColumnTotals map[string]map[string]float64 `json:"columnTotals"`
	GrandTotal   map[string]float64            `json:"grandTotal"`

	// Highlights maps row key -> column key -> measure key -> color. Only cells matching a
	// conditional formatting rule are present.
	Highlights map[string]map[string]map[string]string `json:"highlights,omitempty"`
}

type PivotOptions struct {
	// TokenEncoder renders a field value as a key token. It lets callers attach a sort prefix
	// to a display label ("01|||Jan"). Defaults to the value's string form.
	TokenEncoder func(field string, fieldValue value.Value) string
}

func PivotData(
	rows []value.Row,
	rowFields []string,
	columnFields []string,
	values []ValueConfig,
) PivotResult {
	return PivotDataWithOptions(rows, rowFields, columnFields, values, PivotOptions{})
}

// PivotDataWithOptions buckets rows by composite row and column key, then aggregates every cell.
// Row, column and grand totals aggregate the union of the underlying rows rather than combining
// cell results, so totals of averages and distinct counts are correct, and the grand total always
// equals Aggregate over all rows.
func PivotDataWithOptions(
	rows []value.Row,
	rowFields []string,
	columnFields []string,
	values []ValueConfig,
	options PivotOptions,
) PivotResult {
	encode := options.TokenEncoder
	if encode == nil {
		encode = func(_ string, fieldValue value.Value) string { return fieldValue.String() }
	}

	cells := make(map[string]map[string][]value.Row)
	rowBuckets := newBuckets[string]()
	columnBuckets := newBuckets[string]()

	for _, row := range rows {
		rowKey := compositeKey(row, rowFields, DefaultToken, encode)
		columnKey := compositeKey(row, columnFields, DefaultColumnKey, encode)

		cellsInRow, ok := cells[rowKey]
		if !ok {
			cellsInRow = make(map[string][]value.Row)
			cells[rowKey] = cellsInRow
		}
		cellsInRow[columnKey] = append(cellsInRow[columnKey], row)

		rowBuckets.add(rowKey, row)
		columnBuckets.add(columnKey, row)
	}

	aggregateAll := func(bucket []value.Row) map[string]float64 {
		aggregated := make(map[string]float64, len(values))
		for _, config := range values {
			aggregated[config.Key()] = Aggregate(bucket, config.Field, config.Aggregation)
		}
		return aggregated
	}

	result := PivotResult{
		RowFields:    rowFields,
		ColumnFields: columnFields,
		Values:       values,
		RowKeys:      slices.Sorted(slices.Values(rowBuckets.order)),
		ColumnKeys:   slices.Sorted(slices.Values(columnBuckets.order)),
		Data:         make(map[string]map[string]map[string]float64, len(cells)),
		RowTotals:    make(map[string]map[string]float64, len(rowBuckets.order)),
		ColumnTotals: make(map[string]map[string]float64, len(columnBuckets.order)),
		GrandTotal:   aggregateAll(rows),
	}

	for rowKey, cellsInRow := range cells {
		aggregatedRow := make(map[string]map[string]float64, len(cellsInRow))
		for columnKey, bucket := range cellsInRow {
			aggregatedRow[columnKey] = aggregateAll(bucket)
		}
		result.Data[rowKey] = aggregatedRow
		result.RowTotals[rowKey] = aggregateAll(rowBuckets.rows[rowKey])
	}
	for _, columnKey := range columnBuckets.order {
		result.ColumnTotals[columnKey] = aggregateAll(columnBuckets.rows[columnKey])
	}

	return result
}

func compositeKey(
	row value.Row,
	keyFields []string,
	fallback string,
	encode func(string, value.Value) string,
) string {
	if len(keyFields) == 0 {
		return fallback
	}

	tokens := make([]string, len(keyFields))
	for i, field := range keyFields {
		resolved, ok := fields.Resolve(row, field)
		if !ok || resolved.IsNull() {
			tokens[i] = DefaultToken
		} else {
			tokens[i] = escapeToken(encode(field, resolved))
		}
	}
	return strings.Join(tokens, KeySeparator)
}

// escapeToken keeps a token from splitting a composite key. It repeats since a replacement can
// expose a new separator, as in "a > > b".
func escapeToken(token string) string {
	for strings.Contains(token, KeySeparator) {
		token = strings.ReplaceAll(token, KeySeparator, EscapedSeparator)
	}
	return token
}

// Cell returns a measure's value at a row and column, and whether the cell has any rows.
func (result PivotResult) Cell(rowKey string, columnKey string, measureKey string) (float64, bool) {
	measures, ok := result.Data[rowKey][columnKey]
	if !ok {
		return 0, false
	}
	number, ok := measures[measureKey]
	return number, ok
}
