package query

import (
	"strings"

	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/formula"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/widgetengine/widget"
)

// ExecuteLocal runs a plan over raw rows: it evaluates calculated fields, filters, groups by every
// dimension and aggregates each measure. Result rows hold the dimensions as strings (null
// dimensions become "Unknown") and measures under their keys.
func ExecuteLocal(plan Plan, rows []value.Row) []value.Row {
	return groupPrepared(plan, PrepareRows(plan, rows))
}

func groupPrepared(plan Plan, rows []value.Row) []value.Row {
	groups := make(map[string][]value.Row)
	var order []string
	groupKeys := make(map[string][]string)

	for _, row := range rows {
		keys := make([]string, len(plan.Dimensions))
		for i, dimension := range plan.Dimensions {
			keys[i] = aggregate.GroupKey(row, dimension.Field)
		}

		groupID := strings.Join(keys, "\x00")
		if _, seen := groups[groupID]; !seen {
			order = append(order, groupID)
			groupKeys[groupID] = keys
		}
		groups[groupID] = append(groups[groupID], row)
	}

	// Without dimensions, the whole input is one group, even when empty, like SQL aggregates
	// without GROUP BY.
	if len(plan.Dimensions) == 0 && len(order) == 0 {
		order = append(order, "")
	}

	output := make([]value.Row, 0, len(order))
	for _, groupID := range order {
		grouped := groups[groupID]

		row := value.NewRow(len(plan.Dimensions) + len(plan.Measures))
		for i, dimension := range plan.Dimensions {
			row.Set(dimension.Field, value.String(groupKeys[groupID][i]))
		}
		for _, measure := range plan.Measures {
			row.Set(measure.Key, value.Number(aggregate.Aggregate(grouped, measure.Field, measure.Aggregation)))
		}
		output = append(output, row)
	}
	return output
}

// PrepareRows evaluates the plan's calculated fields into copies of the rows, then applies the
// plan's filters.
func PrepareRows(plan Plan, rows []value.Row) []value.Row {
	if len(plan.Calculated) > 0 {
		compiled := make([]*formula.Compiled, len(plan.Calculated))
		for i, calculated := range plan.Calculated {
			compiled[i] = formula.Compile(calculated.Formula)
		}

		withCalculated := make([]value.Row, len(rows))
		for i, row := range rows {
			row = row.Clone()
			for j, calculated := range plan.Calculated {
				row.Set(calculated.Name, compiled[j].Eval(row))
			}
			withCalculated[i] = row
		}
		rows = withCalculated
	}

	return widget.ApplyFilters(rows, plan.Filters)
}
