package query

import (
	"strings"

	"github.com/google/uuid"
	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/quickcalc"
	"hermannm.dev/widgetengine/widget"
)

// Plan is the engine's description of a widget query: what to group by, what to aggregate, how
// to filter, order and cut the result. Remote executors translate it to SQL; ExecuteLocal runs it
// over raw rows. Both must yield the same rows.
type Plan struct {
	ID         string      `json:"id"`
	WidgetType widget.Type `json:"widgetType"`
	ChartType  string      `json:"chartType,omitempty"`

	// Dimensions to group by, in order. Includes the legend, if any, as the last dimension.
	Dimensions []Dimension `json:"dimensions"`
	Measures   []Measure   `json:"measures"`
	// Legend is the key of the dimension whose values become separate series.
	Legend string `json:"legend,omitempty"`
	// Calculated lists the calculated fields the plan references, in dependency order.
	Calculated []CalculatedColumn `json:"calculated,omitempty"`

	Filters []widget.Filter `json:"filters,omitempty"`
	Sort    *Sort           `json:"sort,omitempty"`
	Limit   int             `json:"limit,omitempty"`

	// QuickMeasures are computed after the fetch, never by a remote engine.
	QuickMeasures  []PostProcess `json:"quickMeasures,omitempty"`
	Pivot          *PivotPlan    `json:"pivot,omitempty"`
	LineSeries     []string      `json:"lineSeries,omitempty"`
	HideZeroValues bool          `json:"hideZeroValues"`
}

type Dimension struct {
	// Field is the field token grouped by, and the key of the dimension in result rows.
	Field string `json:"field"`
	// Expression is set for calculated fields: the formula as SQL with backtick identifiers.
	Expression string `json:"expression,omitempty"`
}

type Measure struct {
	// Key is the measure's column in result rows: the field name, or "{field}_{aggregation}" when
	// the field is aggregated more than once or is also a dimension.
	Key         string         `json:"key"`
	Field       string         `json:"field"`
	Aggregation aggregate.Kind `json:"aggregation"`
	Expression  string         `json:"expression,omitempty"`
	Label       string         `json:"label,omitempty"`
	// Format is a display code for format.Format, e.g. "currency_usd".
	Format string `json:"format,omitempty"`
}

// CalculatedColumn is a calculated field expanded for execution.
type CalculatedColumn struct {
	Name    string `json:"name"`
	Formula string `json:"formula"`
	// Expression is the formula as SQL, with backtick identifiers and nested calculated fields
	// inlined.
	Expression string `json:"expression"`
}

type Sort struct {
	// Key of the dimension or measure to sort by.
	Key        string `json:"key"`
	ByMeasure  bool   `json:"byMeasure"`
	Descending bool   `json:"descending"`
}

type PostProcess struct {
	Label       string                `json:"label"`
	SourceKey   string                `json:"sourceKey"`
	Calculation quickcalc.Calculation `json:"calculation"`
}

type PivotPlan struct {
	Rows    []string                `json:"rows"`
	Columns []string                `json:"columns"`
	Values  []aggregate.ValueConfig `json:"values"`
}

func newPlanID() string {
	return uuid.NewString()
}

func (plan Plan) Dimension(key string) (Dimension, bool) {
	for _, dimension := range plan.Dimensions {
		if dimension.Field == key {
			return dimension, true
		}
	}
	return Dimension{}, false
}

// CategoryDimensions are the dimensions other than the legend.
func (plan Plan) CategoryDimensions() []Dimension {
	if plan.Legend == "" {
		return plan.Dimensions
	}

	categories := make([]Dimension, 0, len(plan.Dimensions))
	for _, dimension := range plan.Dimensions {
		if dimension.Field != plan.Legend {
			categories = append(categories, dimension)
		}
	}
	return categories
}

func (plan Plan) MeasureKeys() []string {
	keys := make([]string, len(plan.Measures))
	for i, measure := range plan.Measures {
		keys[i] = measure.Key
	}
	return keys
}

func (plan Plan) CalculatedColumn(name string) (CalculatedColumn, bool) {
	for _, calculated := range plan.Calculated {
		if strings.EqualFold(calculated.Name, name) {
			return calculated, true
		}
	}
	return CalculatedColumn{}, false
}

func (plan Plan) measure(field string, aggregation aggregate.Kind) (Measure, bool) {
	field = strings.TrimSpace(field)
	for _, measure := range plan.Measures {
		if measure.Field == field && measure.Aggregation == aggregation {
			return measure, true
		}
	}
	return Measure{}, false
}
