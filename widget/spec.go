// Package widget defines the declarative widget configuration the engine plans queries from.
package widget

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/formula"
	"hermannm.dev/widgetengine/quickcalc"
	"hermannm.dev/wrap"
)

type Spec struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Type      Type   `json:"type" yaml:"type"`
	ChartType string `json:"chartType,omitempty" yaml:"chartType,omitempty"`

	XAxis      string   `json:"xAxis,omitempty" yaml:"xAxis,omitempty"`
	Dimensions []string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	// Legend splits each category into one series per legend value.
	Legend string `json:"legend,omitempty" yaml:"legend,omitempty"`

	YAxisConfigs []Measure `json:"yAxisConfigs,omitempty" yaml:"yAxisConfigs,omitempty"`
	// YAxis lists measure fields aggregated with sum.
	YAxis    []string  `json:"yAxis,omitempty" yaml:"yAxis,omitempty"`
	Values   []Measure `json:"values,omitempty" yaml:"values,omitempty"`
	Measures []Measure `json:"measures,omitempty" yaml:"measures,omitempty"`

	Pivot   PivotConfig `json:"pivot,omitempty" yaml:"pivot,omitempty"`
	Columns []Column    `json:"columns,omitempty" yaml:"columns,omitempty"`

	Filters []Filter `json:"filters,omitempty" yaml:"filters,omitempty"`
	Sort    SortMode `json:"sort,omitempty" yaml:"sort,omitempty"`
	Limit   int      `json:"limit,omitempty" yaml:"limit,omitempty"`

	CalculatedFields []CalculatedField `json:"calculatedFields,omitempty" yaml:"calculatedFields,omitempty"`
	QuickMeasures    []QuickMeasure    `json:"quickMeasures,omitempty" yaml:"quickMeasures,omitempty"`
	// LineSeries names measures drawn as lines on combo charts.
	LineSeries []string `json:"lineSeries,omitempty" yaml:"lineSeries,omitempty"`

	// HideZeroValues drops categories whose measures are all 0. Defaults to true.
	HideZeroValues *bool `json:"hideZeroValues,omitempty" yaml:"hideZeroValues,omitempty"`
}

type Measure struct {
	Field string `json:"field" yaml:"field"`
	// Defaults to sum.
	Aggregation aggregate.Kind `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Label       string         `json:"label,omitempty" yaml:"label,omitempty"`
	Format      string         `json:"format,omitempty" yaml:"format,omitempty"`
}

type PivotConfig struct {
	Rows    []string                `json:"rows,omitempty" yaml:"rows,omitempty"`
	Columns []string                `json:"columns,omitempty" yaml:"columns,omitempty"`
	Values  []aggregate.ValueConfig `json:"values,omitempty" yaml:"values,omitempty"`
}

// Column is a table column. Columns with an aggregation are measures, the rest group the rows.
type Column struct {
	Field       string         `json:"field" yaml:"field"`
	Aggregation aggregate.Kind `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Label       string         `json:"label,omitempty" yaml:"label,omitempty"`
}

type CalculatedField struct {
	Name    string `json:"name" yaml:"name"`
	Formula string `json:"formula" yaml:"formula"`
}

// QuickMeasure is a derived series computed after aggregation, e.g. a running total of the
// measure on Field. It is never sent to a remote engine.
type QuickMeasure struct {
	Label       string         `json:"label" yaml:"label"`
	Field       string         `json:"field" yaml:"field"`
	Calculation quickcalc.Kind `json:"calculation" yaml:"calculation"`
	Window      int            `json:"window,omitempty" yaml:"window,omitempty"`
}

func (quickMeasure QuickMeasure) ToCalculation() quickcalc.Calculation {
	return quickcalc.Calculation{Kind: quickMeasure.Calculation, Window: quickMeasure.Window}
}

func (spec Spec) HidesZeroValues() bool {
	return spec.HideZeroValues == nil || *spec.HideZeroValues
}

// IsPieLike reports whether the chart shows shares of a whole, which defaults to largest first.
func (spec Spec) IsPieLike() bool {
	switch strings.ToLower(spec.ChartType) {
	case "pie", "donut", "doughnut":
		return true
	default:
		return false
	}
}

// CalculatedField looks up a calculated field by name, case-insensitively.
func (spec Spec) CalculatedField(name string) (CalculatedField, bool) {
	for _, field := range spec.CalculatedFields {
		if strings.EqualFold(strings.TrimSpace(field.Name), strings.TrimSpace(name)) {
			return field, true
		}
	}
	return CalculatedField{}, false
}

// QuickMeasure looks up a quick measure by label, case-insensitively.
func (spec Spec) QuickMeasure(label string) (QuickMeasure, bool) {
	for _, quickMeasure := range spec.QuickMeasures {
		if strings.EqualFold(strings.TrimSpace(quickMeasure.Label), strings.TrimSpace(label)) {
			return quickMeasure, true
		}
	}
	return QuickMeasure{}, false
}

// Decode reads a widget spec from YAML or JSON.
func Decode(data []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Spec{}, wrap.Error(err, "failed to decode widget spec")
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, wrap.Error(err, "invalid widget spec")
	}
	return spec, nil
}

func (spec Spec) Validate() error {
	var errs []error

	if !spec.Type.IsValid() {
		errs = append(errs, errors.New("missing or unknown widget type"))
	}
	if spec.Limit < 0 {
		errs = append(errs, fmt.Errorf("limit must not be negative, got %d", spec.Limit))
	}

	for i, filter := range spec.Filters {
		if err := filter.Validate(); err != nil {
			errs = append(errs, wrap.Errorf(err, "filter %d ('%s')", i, filter.Field))
		}
	}

	for _, calculatedField := range spec.CalculatedFields {
		if strings.TrimSpace(calculatedField.Name) == "" {
			errs = append(errs, errors.New("calculated field name is blank"))
		}
		if err := formula.Parse(calculatedField.Formula); err != nil {
			errs = append(
				errs,
				wrap.Errorf(err, "invalid formula for calculated field '%s'", calculatedField.Name),
			)
		}
	}

	for _, quickMeasure := range spec.QuickMeasures {
		if !quickMeasure.Calculation.IsValid() {
			errs = append(errs, fmt.Errorf("quick measure '%s' has unknown calculation", quickMeasure.Label))
		}
	}

	if len(errs) > 0 {
		return wrap.Errors("widget spec has errors", errs...)
	}
	return nil
}
