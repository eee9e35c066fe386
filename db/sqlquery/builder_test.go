package sqlquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/widget"
)

func buildPlan(t *testing.T, spec widget.Spec) query.Plan {
	t.Helper()
	plan, err := query.BuildPlan(spec)
	require.NoError(t, err)
	return plan
}

func TestBuildClickHouseChart(t *testing.T) {
	plan := buildPlan(t, widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "OrderDate___year",
		YAxis: []string{"Revenue"},
		Filters: []widget.Filter{
			{Field: "Region", Operator: widget.OperatorIn, Values: []any{"EU", "US"}},
			{Field: "Product", Operator: widget.OperatorContains, Value: "a"},
		},
		Limit: 3,
	})

	built, err := Build(ClickHouse, plan, "orders")
	require.NoError(t, err)

	year := "ifNull(toString(toYear(parseDateTimeBestEffortOrNull(toString(`OrderDate`), 'UTC'))), 'Unknown')"
	assert.Equal(
		t,
		"SELECT "+year+" AS `OrderDate___year`, sum(`Revenue`) AS `Revenue` FROM `orders`"+
			" WHERE `Region` IN (?, ?) AND positionCaseInsensitiveUTF8(toString(`Product`), ?) > 0"+
			" GROUP BY "+year,
		built.SQL,
	)
	assert.Equal(t, []any{"EU", "US", "a"}, built.Args)
}

func TestBuildPostgresTableWithLimitPushdown(t *testing.T) {
	hideZeroValues := false
	plan := buildPlan(t, widget.Spec{
		Type: widget.TypeTable,
		Columns: []widget.Column{
			{Field: "Region"},
			{Field: "Profit", Aggregation: aggregate.KindSum},
		},
		CalculatedFields: []widget.CalculatedField{{Name: "Profit", Formula: "[Revenue] - [Cost]"}},
		Filters:          []widget.Filter{{Field: "Revenue", Operator: widget.OperatorGreaterThan, Value: 0}},
		Sort:             widget.SortValueDescending,
		Limit:            10,
		HideZeroValues:   &hideZeroValues,
	})

	built, err := Build(PostgreSQL, plan, "orders")
	require.NoError(t, err)

	assert.Equal(
		t,
		`SELECT "Region" AS "Region", sum(("Revenue" - "Cost")) AS "Profit" FROM "orders"`+
			` WHERE "Revenue" > $1 GROUP BY "Region" ORDER BY "Profit" DESC, "Region" ASC LIMIT 10`,
		built.SQL,
	)
	assert.Equal(t, []any{0.0}, built.Args)
}

func TestBuildInlinesNestedCalculatedFields(t *testing.T) {
	plan := buildPlan(t, widget.Spec{
		Type:     widget.TypeCard,
		Measures: []widget.Measure{{Field: "Margin", Aggregation: aggregate.KindAverage}},
		CalculatedFields: []widget.CalculatedField{
			{Name: "Profit", Formula: "[Revenue] - [Cost]"},
			{Name: "Margin", Formula: "[Profit] / [Revenue]"},
		},
	})

	built, err := Build(ClickHouse, plan, "orders")
	require.NoError(t, err)

	margin := "((((`Revenue` - `Cost`))) * 1.0 / NULLIF(`Revenue`, 0))"
	assert.Equal(t, "SELECT avg("+margin+") AS `Margin` FROM `orders`", built.SQL)
	assert.Empty(t, built.Args)
}

func TestBuildCountAndDistinct(t *testing.T) {
	plan := buildPlan(t, widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "Region",
		Measures: []widget.Measure{
			{Field: "Customer", Aggregation: aggregate.KindCountDistinct},
			{Field: "Region", Aggregation: aggregate.KindCount},
		},
		Filters: []widget.Filter{
			{Field: "Revenue", Operator: widget.OperatorBetween, Values: []any{10, 20}},
			{Field: "Product", Operator: widget.OperatorIsNotNull},
		},
	})

	built, err := Build(PostgreSQL, plan, "orders")
	require.NoError(t, err)
	assert.Equal(
		t,
		`SELECT "Region" AS "Region", count(DISTINCT "Customer") AS "Customer",`+
			` count(*) AS "Region_count" FROM "orders"`+
			` WHERE "Revenue" BETWEEN $1 AND $2 AND "Product" IS NOT NULL GROUP BY "Region"`,
		built.SQL,
	)
	assert.Equal(t, []any{10.0, 20.0}, built.Args)
}

func TestPostgresQuarter(t *testing.T) {
	plan := buildPlan(t, widget.Spec{
		Type:  widget.TypeChart,
		XAxis: "OrderDate___quarter",
		YAxis: []string{"Revenue"},
	})

	built, err := Build(PostgreSQL, plan, "orders")
	require.NoError(t, err)
	assert.Contains(t, built.SQL, `COALESCE(to_char(CAST("OrderDate" AS timestamp), 'YYYY "Q"Q'), 'Unknown')`)
}

func TestSupportsRejectsUnsupportedPlans(t *testing.T) {
	hierarchyInFormula := buildPlan(t, widget.Spec{
		Type:             widget.TypeCard,
		Measures:         []widget.Measure{{Field: "NextYear"}},
		CalculatedFields: []widget.CalculatedField{{Name: "NextYear", Formula: "[OrderDate___year] + 1"}},
	})
	err := Supports(ClickHouse, hierarchyInFormula)
	assert.ErrorIs(t, err, query.ErrConfiguration)

	backtick := buildPlan(t, widget.Spec{Type: widget.TypeChart, XAxis: "bad`name", YAxis: []string{"Revenue"}})
	assert.ErrorIs(t, Supports(ClickHouse, backtick), query.ErrConfiguration)
	assert.NoError(t, Supports(PostgreSQL, backtick))

	_, err = Build(ClickHouse, buildPlan(t, widget.Spec{
		Type:     widget.TypeCard,
		Measures: []widget.Measure{{Field: "Revenue"}},
	}), "bad`table")
	assert.Error(t, err)
}
