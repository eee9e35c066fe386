package query

import (
	"fmt"
	"slices"
	"strings"

	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/formula"
	"hermannm.dev/widgetengine/widget"
)

// BuildPlan turns a widget spec into a query plan. It returns a *ConfigError when the spec cannot
// be planned.
func BuildPlan(spec widget.Spec) (Plan, error) {
	if !spec.Type.IsValid() {
		return Plan{}, configError("missing or unknown widget type", nil)
	}

	planner := planner{
		spec: spec,
		plan: Plan{
			ID:             newPlanID(),
			WidgetType:     spec.Type,
			ChartType:      spec.ChartType,
			Filters:        spec.Filters,
			Limit:          spec.Limit,
			LineSeries:     spec.LineSeries,
			HideZeroValues: spec.HidesZeroValues(),
		},
	}

	if err := planner.extractFields(); err != nil {
		return Plan{}, err
	}
	if err := planner.rewriteQuickMeasures(); err != nil {
		return Plan{}, err
	}
	planner.assignMeasureKeys()
	if err := planner.expandCalculatedFields(); err != nil {
		return Plan{}, err
	}
	planner.resolveSort()

	return planner.plan, nil
}

type planner struct {
	spec widget.Spec
	plan Plan
}

func (planner *planner) addDimension(field string) {
	field = strings.TrimSpace(field)
	if field == "" {
		return
	}
	if _, exists := planner.plan.Dimension(field); exists {
		return
	}
	planner.plan.Dimensions = append(planner.plan.Dimensions, Dimension{Field: field})
}

func (planner *planner) addMeasure(field string, aggregation aggregate.Kind, label string, formatCode string) {
	field = strings.TrimSpace(field)
	if field == "" {
		return
	}
	if aggregation == 0 {
		aggregation = aggregate.KindSum
	}

	for i, measure := range planner.plan.Measures {
		if measure.Field == field && measure.Aggregation == aggregation {
			if measure.Format == "" {
				planner.plan.Measures[i].Format = formatCode
			}
			return
		}
	}
	planner.plan.Measures = append(
		planner.plan.Measures,
		Measure{Field: field, Aggregation: aggregation, Label: label, Format: formatCode},
	)
}

func (planner *planner) addMeasures(measures []widget.Measure) {
	for _, measure := range measures {
		planner.addMeasure(measure.Field, measure.Aggregation, measure.Label, measure.Format)
	}
}

func (planner *planner) extractFields() error {
	spec := planner.spec

	switch spec.Type {
	case widget.TypeChart:
		planner.addDimension(spec.XAxis)
		for _, dimension := range spec.Dimensions {
			planner.addDimension(dimension)
		}
		planner.addChartMeasures()
		planner.injectCount()

		if legend := strings.TrimSpace(spec.Legend); legend != "" {
			if len(planner.plan.Dimensions) == 0 {
				return configError(fmt.Sprintf("legend '%s' needs an x-axis to split", legend), nil)
			}
			planner.addDimension(legend)
			planner.plan.Legend = legend
		}
	case widget.TypePivot:
		for _, field := range spec.Pivot.Rows {
			planner.addDimension(field)
		}
		for _, field := range spec.Pivot.Columns {
			planner.addDimension(field)
		}

		values := slices.Clone(spec.Pivot.Values)
		if len(values) == 0 {
			if len(spec.Pivot.Rows) == 0 {
				return configError("pivot needs at least one row field or value", nil)
			}
			values = []aggregate.ValueConfig{
				{Field: strings.TrimSpace(spec.Pivot.Rows[0]), Aggregation: aggregate.KindCount},
			}
		}
		for i := range values {
			if values[i].Aggregation == 0 {
				values[i].Aggregation = aggregate.KindSum
			}
			planner.addMeasure(values[i].Field, values[i].Aggregation, "", values[i].Format)
		}

		planner.plan.Pivot = &PivotPlan{
			Rows:    spec.Pivot.Rows,
			Columns: spec.Pivot.Columns,
			Values:  values,
		}
	case widget.TypeTable:
		for _, column := range spec.Columns {
			if column.Aggregation == 0 {
				planner.addDimension(column.Field)
			} else {
				planner.addMeasure(column.Field, column.Aggregation, column.Label, "")
			}
		}
		for _, dimension := range spec.Dimensions {
			planner.addDimension(dimension)
		}
		planner.addMeasures(spec.Measures)
		planner.addMeasures(spec.Values)
	case widget.TypeCard, widget.TypeGauge:
		planner.addChartMeasures()
		if len(planner.plan.Measures) == 0 {
			return configError(fmt.Sprintf("%s widget needs a measure", spec.Type), nil)
		}
	case widget.TypeSlicer:
		if spec.XAxis != "" {
			planner.addDimension(spec.XAxis)
		} else if len(spec.Dimensions) > 0 {
			planner.addDimension(spec.Dimensions[0])
		}
		if len(planner.plan.Dimensions) == 0 {
			return configError("slicer widget needs a field", nil)
		}
		planner.injectCount()
	}

	if len(planner.plan.Dimensions) == 0 && len(planner.plan.Measures) == 0 {
		return configError("widget selects no fields", nil)
	}
	return nil
}

func (planner *planner) addChartMeasures() {
	spec := planner.spec
	planner.addMeasures(spec.YAxisConfigs)
	for _, field := range spec.YAxis {
		planner.addMeasure(field, aggregate.KindSum, "", "")
	}
	planner.addMeasures(spec.Values)
	planner.addMeasures(spec.Measures)
}

// injectCount gives a widget without measures a row count on its first dimension.
func (planner *planner) injectCount() {
	if len(planner.plan.Measures) == 0 && len(planner.plan.Dimensions) > 0 {
		planner.addMeasure(planner.plan.Dimensions[0].Field, aggregate.KindCount, "", "")
	}
}

// rewriteQuickMeasures replaces measures naming a quick measure with the quick measure's source
// field, and schedules the calculation for after the fetch. Quick measures the widget does not
// reference directly are scheduled too.
func (planner *planner) rewriteQuickMeasures() error {
	var measures []Measure
	for _, measure := range planner.plan.Measures {
		quickMeasure, isQuick := planner.spec.QuickMeasure(measure.Field)
		if !isQuick {
			measures = append(measures, measure)
			continue
		}
		if err := planner.checkQuickMeasure(quickMeasure); err != nil {
			return err
		}
		planner.plan.QuickMeasures = append(
			planner.plan.QuickMeasures,
			PostProcess{Label: quickMeasure.Label, Calculation: quickMeasure.ToCalculation()},
		)
		measure.Field = strings.TrimSpace(quickMeasure.Field)
		measure.Label = ""
		measures = append(measures, measure)
	}
	planner.plan.Measures = nil
	for _, measure := range measures {
		planner.addMeasure(measure.Field, measure.Aggregation, measure.Label, measure.Format)
	}

	for _, quickMeasure := range planner.spec.QuickMeasures {
		if slices.ContainsFunc(planner.plan.QuickMeasures, func(scheduled PostProcess) bool {
			return strings.EqualFold(scheduled.Label, quickMeasure.Label)
		}) {
			continue
		}
		if err := planner.checkQuickMeasure(quickMeasure); err != nil {
			return err
		}
		planner.addMeasure(quickMeasure.Field, aggregate.KindSum, "", "")
		planner.plan.QuickMeasures = append(
			planner.plan.QuickMeasures,
			PostProcess{Label: quickMeasure.Label, Calculation: quickMeasure.ToCalculation()},
		)
	}

	return nil
}

func (planner *planner) checkQuickMeasure(quickMeasure widget.QuickMeasure) error {
	source := strings.TrimSpace(quickMeasure.Field)
	if source == "" {
		return configError(fmt.Sprintf("quick measure '%s' has no source field", quickMeasure.Label), nil)
	}
	if _, nested := planner.spec.QuickMeasure(source); nested {
		return configError(
			fmt.Sprintf("quick measure '%s' uses another quick measure '%s' as source", quickMeasure.Label, source),
			nil,
		)
	}
	if !quickMeasure.Calculation.IsValid() {
		return configError(fmt.Sprintf("quick measure '%s' has unknown calculation", quickMeasure.Label), nil)
	}
	return nil
}

// assignMeasureKeys names each measure's result column. Measures use their field name unless it
// is ambiguous, in which case the aggregation is appended.
func (planner *planner) assignMeasureKeys() {
	fieldCounts := make(map[string]int, len(planner.plan.Measures))
	for _, measure := range planner.plan.Measures {
		fieldCounts[strings.ToLower(measure.Field)]++
	}

	for i, measure := range planner.plan.Measures {
		_, isDimension := planner.plan.Dimension(measure.Field)
		if isDimension || fieldCounts[strings.ToLower(measure.Field)] > 1 {
			planner.plan.Measures[i].Key = measure.Field + "_" + measure.Aggregation.String()
		} else {
			planner.plan.Measures[i].Key = measure.Field
		}
	}

	for i, quickMeasure := range planner.plan.QuickMeasures {
		planner.plan.QuickMeasures[i].SourceKey = planner.sourceKey(quickMeasure.Label)
	}
}

func (planner *planner) sourceKey(quickMeasureLabel string) string {
	quickMeasure, _ := planner.spec.QuickMeasure(quickMeasureLabel)
	source := strings.TrimSpace(quickMeasure.Field)

	var fallback string
	for _, measure := range planner.plan.Measures {
		if measure.Field != source {
			continue
		}
		if measure.Aggregation == aggregate.KindSum {
			return measure.Key
		}
		if fallback == "" {
			fallback = measure.Key
		}
	}
	return fallback
}

// expandCalculatedFields attaches SQL expressions to dimensions and measures that name
// calculated fields, and lists every calculated field the plan needs for local evaluation.
func (planner *planner) expandCalculatedFields() error {
	expander := calculatedExpander{
		spec:     planner.spec,
		expanded: make(map[string]string),
	}

	for i, dimension := range planner.plan.Dimensions {
		base := dimension.Field
		if hierarchyBase, _, isHierarchy := fields.SplitHierarchy(base); isHierarchy {
			base = hierarchyBase
		}
		expression, isCalculated, err := expander.expand(base, nil)
		if err != nil {
			return err
		}
		if isCalculated && base == dimension.Field {
			planner.plan.Dimensions[i].Expression = expression
		}
	}

	for i, measure := range planner.plan.Measures {
		expression, isCalculated, err := expander.expand(measure.Field, nil)
		if err != nil {
			return err
		}
		if isCalculated {
			planner.plan.Measures[i].Expression = expression
		}
	}

	for _, filter := range planner.plan.Filters {
		if _, _, err := expander.expand(filter.Field, nil); err != nil {
			return err
		}
	}

	planner.plan.Calculated = expander.columns
	return nil
}

type calculatedExpander struct {
	spec     widget.Spec
	expanded map[string]string
	// columns in dependency order.
	columns []CalculatedColumn
}

// expand returns the SQL expression for a calculated field, inlining calculated fields it
// references. visiting holds the fields being expanded, to detect cycles.
func (expander *calculatedExpander) expand(
	name string,
	visiting []string,
) (expression string, isCalculated bool, err error) {
	calculated, isCalculated := expander.spec.CalculatedField(name)
	if !isCalculated {
		return "", false, nil
	}

	key := strings.ToLower(strings.TrimSpace(calculated.Name))
	if expression, done := expander.expanded[key]; done {
		return expression, true, nil
	}
	if slices.Contains(visiting, key) {
		return "", true, configError(
			fmt.Sprintf("calculated field '%s' references itself", calculated.Name),
			nil,
		)
	}
	visiting = append(visiting, key)

	var nestedErr error
	expression, err = formula.Transpile(calculated.Formula, func(identifier string) string {
		nested, isNested, err := expander.expand(identifier, visiting)
		if err != nil {
			nestedErr = err
			return ""
		}
		if isNested {
			return "(" + nested + ")"
		}
		return formula.BacktickQuote(identifier)
	})
	if nestedErr != nil {
		return "", true, nestedErr
	}
	if err != nil {
		return "", true, configError(
			fmt.Sprintf("invalid formula for calculated field '%s'", calculated.Name),
			err,
		)
	}

	expander.expanded[key] = expression
	expander.columns = append(expander.columns, CalculatedColumn{
		Name:       strings.TrimSpace(calculated.Name),
		Formula:    calculated.Formula,
		Expression: expression,
	})
	return expression, true, nil
}

func (planner *planner) resolveSort() {
	plan := &planner.plan
	categories := plan.CategoryDimensions()

	byDimension := func(descending bool) {
		if len(categories) > 0 {
			plan.Sort = &Sort{Key: categories[0].Field, Descending: descending}
		}
	}
	byMeasure := func(descending bool) {
		if len(plan.Measures) > 0 {
			plan.Sort = &Sort{Key: plan.Measures[0].Key, ByMeasure: true, Descending: descending}
		}
	}

	switch planner.spec.Sort {
	case widget.SortCategoryAscending:
		byDimension(false)
	case widget.SortCategoryDescending:
		byDimension(true)
	case widget.SortValueAscending:
		byMeasure(false)
	case widget.SortValueDescending:
		byMeasure(true)
	case widget.SortNone:
	default:
		if len(categories) > 0 &&
			(fields.IsHierarchyField(categories[0].Field) || fields.LooksLikeDateField(categories[0].Field)) {
			byDimension(false)
		} else if planner.spec.IsPieLike() {
			byMeasure(true)
		}
	}
}
