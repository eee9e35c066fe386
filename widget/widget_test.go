package widget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/quickcalc"
	"hermannm.dev/widgetengine/value"
)

func TestDecodeYAML(t *testing.T) {
	spec, err := Decode([]byte(`
type: chart
chartType: bar
xAxis: OrderDate___month
legend: Region
yAxisConfigs:
  - field: Revenue
    aggregation: avg
yAxis: [Units]
filters:
  - field: Region
    operator: in
    values: [EU, US]
  - field: Revenue
    operator: gt
    value: 100
sort: value_desc
limit: 10
calculatedFields:
  - name: Margin
    formula: "[Revenue] - [Cost]"
quickMeasures:
  - label: Running revenue
    field: Revenue
    calculation: runningTotal
hideZeroValues: false
`))
	require.NoError(t, err)

	assert.Equal(t, TypeChart, spec.Type)
	assert.Equal(t, "OrderDate___month", spec.XAxis)
	assert.Equal(t, aggregate.KindAverage, spec.YAxisConfigs[0].Aggregation)
	assert.Equal(t, []string{"Units"}, spec.YAxis)
	assert.Equal(t, OperatorIn, spec.Filters[0].Operator)
	assert.Equal(t, []value.Value{value.String("EU"), value.String("US")}, spec.Filters[0].Operands())
	assert.Equal(t, value.Number(100), spec.Filters[1].Operand())
	assert.Equal(t, SortValueDescending, spec.Sort)
	assert.Equal(t, 10, spec.Limit)
	assert.Equal(t, quickcalc.KindRunningTotal, spec.QuickMeasures[0].Calculation)
	assert.False(t, spec.HidesZeroValues())

	quickMeasure, ok := spec.QuickMeasure("running REVENUE")
	require.True(t, ok)
	assert.Equal(t, "Revenue", quickMeasure.Field)

	calculated, ok := spec.CalculatedField("margin")
	require.True(t, ok)
	assert.Equal(t, "[Revenue] - [Cost]", calculated.Formula)
}

func TestDecodeJSON(t *testing.T) {
	spec, err := Decode([]byte(`{
  "type": "pivot",
  "pivot": {
    "rows": ["Region", "Country"],
    "columns": ["Year"],
    "values": [{"field": "Revenue", "aggregation": "sum", "format": "currency_usd"}]
  }
}`))
	require.NoError(t, err)

	assert.Equal(t, TypePivot, spec.Type)
	assert.Equal(t, []string{"Region", "Country"}, spec.Pivot.Rows)
	assert.Equal(t, aggregate.KindSum, spec.Pivot.Values[0].Aggregation)
	assert.True(t, spec.HidesZeroValues())
}

func TestDecodeRejectsInvalidSpecs(t *testing.T) {
	for name, input := range map[string]string{
		"unknown type":       `type: map`,
		"unknown operator":   "type: table\nfilters: [{field: a, operator: like, value: x}]",
		"between arity":      "type: table\nfilters: [{field: a, operator: between, values: [1]}]",
		"bad formula":        "type: card\ncalculatedFields: [{name: X, formula: '[A] +'}]",
		"unknown quick calc": "type: chart\nquickMeasures: [{label: Q, field: A, calculation: median}]",
	} {
		_, err := Decode([]byte(input))
		assert.Error(t, err, name)
	}
}

func TestApplyFilters(t *testing.T) {
	rows := []value.Row{
		value.RowOf("name", "Oslo", "population", 700_000, "founded", time.Date(1040, 1, 1, 0, 0, 0, 0, time.UTC)),
		value.RowOf("name", "Bergen", "population", "285000", "founded", time.Date(1070, 1, 1, 0, 0, 0, 0, time.UTC)),
		value.RowOf("name", "Tromsø", "population", nil),
		value.RowOf("name", nil, "population", 1),
	}

	names := func(filters ...Filter) []string {
		var result []string
		for _, row := range ApplyFilters(rows, filters) {
			name, _ := row.Get("name")
			result = append(result, name.String())
		}
		return result
	}

	assert.Equal(t, []string{"Oslo"}, names(Filter{Field: "name", Operator: OperatorEquals, Value: "Oslo"}))
	assert.Equal(t, []string{"Bergen", "Tromsø"}, names(Filter{Field: "name", Operator: OperatorNotEquals, Value: "Oslo"}))
	assert.Equal(t, []string{"Oslo", "Bergen"}, names(Filter{Field: "population", Operator: OperatorGreaterThan, Value: 1000}))
	assert.Equal(t, []string{"Bergen"}, names(Filter{Field: "population", Operator: OperatorBetween, Values: []any{200_000, 300_000}}))
	assert.Equal(t, []string{"Oslo", "Tromsø"}, names(Filter{Field: "name", Operator: OperatorIn, Values: []any{"Oslo", "Tromsø", "Paris"}}))
	assert.Equal(t, []string{"Bergen"}, names(Filter{Field: "name", Operator: OperatorNotIn, Values: []any{"Oslo", "Tromsø"}}))
	assert.Equal(t, []string{"Tromsø"}, names(Filter{Field: "population", Operator: OperatorIsNull}))
	assert.Equal(t, []string{"Bergen"}, names(Filter{Field: "NAME", Operator: OperatorContains, Value: "erg"}))
	assert.Equal(t, []string{"Bergen"}, names(Filter{Field: "founded", Operator: OperatorGreaterThanOrEqual, Value: "1050-01-01"}))
	assert.Equal(t, []string{"Oslo", "Bergen"}, names(
		Filter{Field: "population", Operator: OperatorIsNotNull},
		Filter{Field: "name", Operator: OperatorLessThan, Value: "P"},
		Filter{Field: "name", Operator: OperatorIsNotNull},
	))
}
