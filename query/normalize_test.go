package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermannm.dev/widgetengine/quickcalc"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/widgetengine/widget"
)

func mustPlan(t *testing.T, spec widget.Spec) Plan {
	t.Helper()
	plan, err := BuildPlan(spec)
	require.NoError(t, err)
	return plan
}

func TestNormalizeAlignsColumnsAndCoercesNumbers(t *testing.T) {
	plan := mustPlan(t, widget.Spec{Type: widget.TypeChart, XAxis: "Region", YAxis: []string{"Revenue"}})
	plan.HideZeroValues = false

	result := Normalize([]value.Row{
		value.RowOf("region", nil, "sum(Revenue)", nil),
		value.RowOf(" REGION ", "EU", "REVENUE", "150.5"),
	}, plan)

	assert.Equal(t, []value.Row{
		value.RowOf("Region", "EU", "Revenue", 150.5),
		value.RowOf("Region", "Unknown", "Revenue", 0.0),
	}, result.Rows)
	assert.Equal(t, []string{"Revenue"}, result.Series)
	assert.Equal(t, plan.ID, result.PlanID)
}

func TestNormalizeHidesZeroValues(t *testing.T) {
	plan := mustPlan(t, widget.Spec{Type: widget.TypeChart, XAxis: "Region", YAxis: []string{"Revenue"}})

	result := Normalize([]value.Row{
		value.RowOf("Region", "EU", "Revenue", 0),
		value.RowOf("Region", "US", "Revenue", 3),
	}, plan)

	assert.Equal(t, []value.Row{value.RowOf("Region", "US", "Revenue", 3)}, result.Rows)
}

func TestNormalizeLabelsAndCollapsesHierarchyAxis(t *testing.T) {
	plan := mustPlan(t, widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "OrderDate___quarter",
		YAxis: []string{"Revenue"},
	})
	rows := []value.Row{
		value.RowOf("OrderDate___quarter", "2024 Q1", "Revenue", 200),
		value.RowOf("OrderDate___quarter", "2023 Q2", "Revenue", 130),
		value.RowOf("OrderDate___quarter", "2023 Q1", "Revenue", 100),
		value.RowOf("OrderDate___quarter", "2024 Q4", "Revenue", 70),
	}

	result := Normalize(rows, plan)
	assert.Equal(t, []value.Row{
		value.RowOf("OrderDate___quarter", "Q1", "Revenue", 300),
		value.RowOf("OrderDate___quarter", "Q2", "Revenue", 130),
		value.RowOf("OrderDate___quarter", "Q4", "Revenue", 70),
	}, result.Rows)

	plan.Limit = 2
	assert.Len(t, Normalize(rows, plan).Rows, 2)
}

func TestNormalizeSortsByMeasure(t *testing.T) {
	plan := mustPlan(t, widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "Region",
		YAxis: []string{"Revenue"},
		Sort:  widget.SortValueDescending,
		Limit: 2,
	})

	result := Normalize([]value.Row{
		value.RowOf("Region", "A", "Revenue", 1),
		value.RowOf("Region", "B", "Revenue", 30),
		value.RowOf("Region", "C", "Revenue", 20),
	}, plan)

	assert.Equal(t, []value.Row{
		value.RowOf("Region", "B", "Revenue", 30),
		value.RowOf("Region", "C", "Revenue", 20),
	}, result.Rows)
}

func TestNormalizeSortsByMeasureAfterCollapsingLabels(t *testing.T) {
	plan := mustPlan(t, widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "OrderDate___month",
		YAxis: []string{"Revenue"},
		Sort:  widget.SortValueDescending,
	})
	rows := []value.Row{
		value.RowOf("OrderDate___month", "2023-01", "Revenue", 5),
		value.RowOf("OrderDate___month", "2023-02", "Revenue", 8),
		value.RowOf("OrderDate___month", "2024-01", "Revenue", 6),
	}

	assert.Equal(t, []value.Row{
		value.RowOf("OrderDate___month", "Jan", "Revenue", 11),
		value.RowOf("OrderDate___month", "Feb", "Revenue", 8),
	}, Normalize(rows, plan).Rows)

	plan.Sort.Descending = false
	assert.Equal(t, []value.Row{
		value.RowOf("OrderDate___month", "Feb", "Revenue", 8),
		value.RowOf("OrderDate___month", "Jan", "Revenue", 11),
	}, Normalize(rows, plan).Rows)

	plan.Sort.Descending = true
	plan.Limit = 1
	assert.Equal(t, []value.Row{
		value.RowOf("OrderDate___month", "Jan", "Revenue", 11),
	}, Normalize(rows, plan).Rows)
}

func TestNormalizeSortsNumericDimensionsNumerically(t *testing.T) {
	plan := mustPlan(t, widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "Size",
		YAxis: []string{"Units"},
		Sort:  widget.SortCategoryAscending,
	})

	result := Normalize([]value.Row{
		value.RowOf("Size", 10, "Units", 1),
		value.RowOf("Size", 9, "Units", 1),
	}, plan)

	assert.Equal(t, value.String("9"), must(result.Rows[0].Get("Size")))
	assert.Equal(t, value.String("10"), must(result.Rows[1].Get("Size")))
}

func TestNormalizePivotsLegend(t *testing.T) {
	plan := mustPlan(t, widget.Spec{
		Type:       widget.TypeChart,
		XAxis:      "Region",
		Legend:     "Product",
		YAxis:      []string{"Revenue"},
		LineSeries: []string{"b"},
	})

	result := Normalize([]value.Row{
		value.RowOf("Region", "US", "Product", "B", "Revenue", 200),
		value.RowOf("Region", "EU", "Product", "A", "Revenue", 170),
		value.RowOf("Region", "EU", "Product", "B", "Revenue", 50),
		value.RowOf("Region", "US", "Product", "A", "Revenue", 0),
	}, plan)

	assert.Equal(t, []string{"A", "B"}, result.Series)
	assert.Equal(t, []string{"B"}, result.LineSeries)
	assert.Equal(t, []value.Row{
		value.RowOf("Region", "EU", "A", 170, "B", 50),
		value.RowOf("Region", "US", "A", 0, "B", 200),
	}, result.Rows)
}

func TestNormalizeAppliesQuickMeasures(t *testing.T) {
	plan := mustPlan(t, widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "Region",
		YAxis: []string{"Revenue"},
		QuickMeasures: []widget.QuickMeasure{
			{Label: "Running", Field: "Revenue", Calculation: quickcalc.KindRunningTotal},
			{Label: "Share", Field: "Revenue", Calculation: quickcalc.KindPercentOfTotal},
		},
	})

	result := Normalize([]value.Row{
		value.RowOf("Region", "EU", "Revenue", 150),
		value.RowOf("Region", "US", "Revenue", 50),
	}, plan)

	assert.Equal(t, []string{"Revenue", "Running", "Share"}, result.Series)
	assert.Equal(t, []value.Row{
		value.RowOf("Region", "EU", "Revenue", 150, "Running", 150, "Share", 75),
		value.RowOf("Region", "US", "Revenue", 50, "Running", 200, "Share", 25),
	}, result.Rows)
}

func TestNormalizeQuickMeasuresPerLegendSeries(t *testing.T) {
	plan := mustPlan(t, widget.Spec{
		Type:   widget.TypeChart,
		XAxis:  "Region",
		Legend: "Product",
		YAxis:  []string{"Revenue"},
		QuickMeasures: []widget.QuickMeasure{
			{Label: "Running", Field: "Revenue", Calculation: quickcalc.KindRunningTotal},
		},
	})

	result := Normalize([]value.Row{
		value.RowOf("Region", "EU", "Product", "A", "Revenue", 1),
		value.RowOf("Region", "US", "Product", "A", "Revenue", 2),
	}, plan)

	assert.Equal(t, []string{"A", "A - Running"}, result.Series)
	assert.Equal(t, value.Number(3), must(result.Rows[1].Get("A - Running")))
}

func TestNormalizeFormatsMeasureSeries(t *testing.T) {
	for _, testCase := range []struct {
		name      string
		spec      widget.Spec
		rows      []value.Row
		formatted []map[string]string
	}{
		{
			name: "plain series",
			spec: widget.Spec{
				Type:         widget.TypeChart,
				XAxis:        "Region",
				YAxisConfigs: []widget.Measure{{Field: "Revenue", Format: "integer"}},
				YAxis:        []string{"Cost"},
			},
			rows: []value.Row{
				value.RowOf("Region", "EU", "Revenue", 1234.5, "Cost", 3),
				value.RowOf("Region", "US", "Revenue", 50, "Cost", 4),
			},
			formatted: []map[string]string{{"Revenue": "1,235"}, {"Revenue": "50"}},
		},
		{
			name: "legend series without quick measures",
			spec: widget.Spec{
				Type:         widget.TypeChart,
				XAxis:        "Region",
				Legend:       "Product",
				YAxisConfigs: []widget.Measure{{Field: "Revenue", Format: "integer"}},
				QuickMeasures: []widget.QuickMeasure{
					{Label: "Running", Field: "Revenue", Calculation: quickcalc.KindRunningTotal},
				},
			},
			rows: []value.Row{
				value.RowOf("Region", "EU", "Product", "A", "Revenue", 1000),
				value.RowOf("Region", "EU", "Product", "B", "Revenue", 2),
			},
			formatted: []map[string]string{{"A": "1,000", "B": "2"}},
		},
		{
			name: "no format codes",
			spec: widget.Spec{Type: widget.TypeChart, XAxis: "Region", YAxis: []string{"Revenue"}},
			rows: []value.Row{value.RowOf("Region", "EU", "Revenue", 1)},
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			result := Normalize(testCase.rows, mustPlan(t, testCase.spec))
			assert.Equal(t, testCase.formatted, result.Formatted)
		})
	}
}

func must(fieldValue value.Value, ok bool) value.Value {
	if !ok {
		return value.Null()
	}
	return fieldValue
}
