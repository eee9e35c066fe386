package query

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/quickcalc"
	"hermannm.dev/widgetengine/widget"
)

func TestBuildPlanChart(t *testing.T) {
	plan, err := BuildPlan(widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "Region",
		YAxis: []string{"Revenue"},
		Limit: 5,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(plan.ID)
	assert.NoError(t, err, "plan ID should be a UUID")

	assert.Equal(t, []Dimension{{Field: "Region"}}, plan.Dimensions)
	assert.Equal(
		t,
		[]Measure{{Key: "Revenue", Field: "Revenue", Aggregation: aggregate.KindSum}},
		plan.Measures,
	)
	assert.Nil(t, plan.Sort)
	assert.Equal(t, 5, plan.Limit)
	assert.True(t, plan.HideZeroValues)
}

func TestBuildPlanInjectsCount(t *testing.T) {
	plan, err := BuildPlan(widget.Spec{Type: widget.TypeChart, XAxis: "Region"})
	require.NoError(t, err)

	require.Len(t, plan.Measures, 1)
	assert.Equal(t, "Region_count", plan.Measures[0].Key)
	assert.Equal(t, aggregate.KindCount, plan.Measures[0].Aggregation)
}

func TestBuildPlanAutoSort(t *testing.T) {
	hierarchy, err := BuildPlan(widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "OrderDate___quarter",
		YAxis: []string{"Revenue"},
	})
	require.NoError(t, err)
	assert.Equal(t, &Sort{Key: "OrderDate___quarter"}, hierarchy.Sort)

	pie, err := BuildPlan(widget.Spec{
		Type:      widget.TypeChart,
		ChartType: "pie",
		XAxis:     "Region",
		YAxis:     []string{"Revenue"},
	})
	require.NoError(t, err)
	assert.Equal(t, &Sort{Key: "Revenue", ByMeasure: true, Descending: true}, pie.Sort)

	explicit, err := BuildPlan(widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "OrderDate___month",
		YAxis: []string{"Revenue"},
		Sort:  widget.SortNone,
	})
	require.NoError(t, err)
	assert.Nil(t, explicit.Sort)
}

func TestBuildPlanExpandsCalculatedFields(t *testing.T) {
	plan, err := BuildPlan(widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "Region",
		YAxis: []string{"Margin"},
		CalculatedFields: []widget.CalculatedField{
			{Name: "Profit", Formula: "[Revenue] - [Cost]"},
			{Name: "Margin", Formula: "[Profit] / [Revenue]"},
		},
	})
	require.NoError(t, err)

	require.Len(t, plan.Measures, 1)
	assert.Equal(
		t,
		"((((`Revenue` - `Cost`))) * 1.0 / NULLIF(`Revenue`, 0))",
		plan.Measures[0].Expression,
	)

	require.Len(t, plan.Calculated, 2)
	assert.Equal(t, "Profit", plan.Calculated[0].Name)
	assert.Equal(t, "Margin", plan.Calculated[1].Name)
	assert.Equal(t, "[Profit] / [Revenue]", plan.Calculated[1].Formula)
}

func TestBuildPlanConfigErrors(t *testing.T) {
	for name, spec := range map[string]widget.Spec{
		"invalid formula": {
			Type:             widget.TypeChart,
			XAxis:            "Region",
			YAxis:            []string{"Bad"},
			CalculatedFields: []widget.CalculatedField{{Name: "Bad", Formula: "[Revenue] +"}},
		},
		"cyclic calculated fields": {
			Type:  widget.TypeChart,
			XAxis: "Region",
			YAxis: []string{"A"},
			CalculatedFields: []widget.CalculatedField{
				{Name: "A", Formula: "[B] + 1"},
				{Name: "B", Formula: "[A] * 2"},
			},
		},
		"quick measure without source": {
			Type:  widget.TypeChart,
			XAxis: "Region",
			YAxis: []string{"Running"},
			QuickMeasures: []widget.QuickMeasure{
				{Label: "Running", Calculation: quickcalc.KindRunningTotal},
			},
		},
		"card without measure": {Type: widget.TypeCard},
		"unknown type":         {XAxis: "Region"},
	} {
		_, err := BuildPlan(spec)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrConfiguration, name)
	}
}

func TestBuildPlanRewritesQuickMeasures(t *testing.T) {
	plan, err := BuildPlan(widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "Region",
		YAxis: []string{"Running"},
		QuickMeasures: []widget.QuickMeasure{
			{Label: "Running", Field: "Revenue", Calculation: quickcalc.KindRunningTotal},
		},
	})
	require.NoError(t, err)

	assert.Equal(
		t,
		[]Measure{{Key: "Revenue", Field: "Revenue", Aggregation: aggregate.KindSum}},
		plan.Measures,
	)
	assert.Equal(
		t,
		[]PostProcess{{
			Label:       "Running",
			SourceKey:   "Revenue",
			Calculation: quickcalc.Calculation{Kind: quickcalc.KindRunningTotal},
		}},
		plan.QuickMeasures,
	)
}

func TestBuildPlanTable(t *testing.T) {
	plan, err := BuildPlan(widget.Spec{
		Type: widget.TypeTable,
		Columns: []widget.Column{
			{Field: "Region"},
			{Field: "Revenue", Aggregation: aggregate.KindSum},
			{Field: "Revenue", Aggregation: aggregate.KindAverage},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []Dimension{{Field: "Region"}}, plan.Dimensions)
	assert.Equal(t, []string{"Revenue_sum", "Revenue_avg"}, plan.MeasureKeys())
}

func TestBuildPlanPivot(t *testing.T) {
	plan, err := BuildPlan(widget.Spec{
		Type: widget.TypePivot,
		Pivot: widget.PivotConfig{
			Rows:    []string{"Region", "Country"},
			Columns: []string{"Product"},
			Values:  []aggregate.ValueConfig{{Field: "Revenue"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(
		t,
		[]Dimension{{Field: "Region"}, {Field: "Country"}, {Field: "Product"}},
		plan.Dimensions,
	)
	require.NotNil(t, plan.Pivot)
	assert.Equal(t, aggregate.KindSum, plan.Pivot.Values[0].Aggregation)
	assert.Equal(t, []string{"Revenue"}, plan.MeasureKeys())
}

func TestBuildPlanCardAndSlicer(t *testing.T) {
	card, err := BuildPlan(widget.Spec{
		Type:     widget.TypeCard,
		Measures: []widget.Measure{{Field: "Revenue", Aggregation: aggregate.KindAverage}},
	})
	require.NoError(t, err)
	assert.Empty(t, card.Dimensions)
	assert.Equal(t, []string{"Revenue"}, card.MeasureKeys())

	slicer, err := BuildPlan(widget.Spec{Type: widget.TypeSlicer, Dimensions: []string{"Region"}})
	require.NoError(t, err)
	assert.Equal(t, []Dimension{{Field: "Region"}}, slicer.Dimensions)
	assert.Equal(t, []string{"Region_count"}, slicer.MeasureKeys())
}

func TestBuildPlanLegend(t *testing.T) {
	plan, err := BuildPlan(widget.Spec{
		Type:   widget.TypeChart,
		XAxis:  "Region",
		Legend: "Product",
		YAxis:  []string{"Revenue"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Product", plan.Legend)
	assert.Equal(t, []Dimension{{Field: "Region"}}, plan.CategoryDimensions())
	assert.Len(t, plan.Dimensions, 2)
}
