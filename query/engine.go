package query

import (
	"context"
	"fmt"
	"log/slog"

	"hermannm.dev/devlog/log"
	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/format"
	"hermannm.dev/widgetengine/pivot"
	"hermannm.dev/widgetengine/value"
	"hermannm.dev/widgetengine/widget"
	"hermannm.dev/wrap"
)

// Engine runs widget queries against a backend. Either collaborator may be nil: without a remote
// executor every plan runs locally, and without a row source only plans the remote executor
// supports can run.
type Engine struct {
	remote RemoteExecutor
	source RowSource
}

func NewEngine(remote RemoteExecutor, source RowSource) *Engine {
	return &Engine{remote: remote, source: source}
}

func (engine *Engine) Run(ctx context.Context, spec widget.Spec, table string) (Result, error) {
	plan, err := BuildPlan(spec)
	if err != nil {
		return Result{}, err
	}
	return engine.RunPlan(ctx, plan, table)
}

func (engine *Engine) RunPlan(ctx context.Context, plan Plan, table string) (Result, error) {
	remote := engine.remote
	if plan.Pivot != nil && remote != nil {
		if err := checkPivotReaggregable(plan); err != nil {
			if engine.source == nil {
				return Result{}, err
			}
			remote = nil
		}
	}

	mode := DecideMode(plan, false, remote)
	log.Debug(
		"decided query mode",
		slog.String("plan", plan.ID),
		slog.String("table", table),
		slog.String("mode", mode.String()),
	)

	if mode == ModeRemote {
		rows, err := remote.Execute(ctx, plan, table)
		if err != nil {
			return Result{}, wrap.Errorf(err, "failed to execute query for table '%s'", table)
		}
		return remoteResult(plan, rows), nil
	}

	if engine.source == nil {
		if remote != nil {
			if err := remote.Supports(plan); err != nil {
				return Result{}, err
			}
		}
		return Result{}, configError("widget query cannot run: no raw row source is configured", nil)
	}

	rows, err := engine.source.FetchRows(ctx, table)
	if err != nil {
		return Result{}, wrap.Errorf(err, "failed to fetch rows from table '%s'", table)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return RunLocal(plan, rows), nil
}

// RunLocal runs a plan over raw rows at hand.
func RunLocal(plan Plan, rows []value.Row) Result {
	prepared := PrepareRows(plan, rows)

	result := Normalize(groupPrepared(plan, prepared), plan)
	result.Mode = ModeLocal

	if plan.Pivot != nil {
		pivotResult := aggregate.PivotDataWithOptions(
			prepared,
			plan.Pivot.Rows,
			plan.Pivot.Columns,
			plan.Pivot.Values,
			aggregate.PivotOptions{TokenEncoder: pivotToken},
		)
		pivotResult.ApplyConditionalFormatting()
		result.Pivot = &pivotResult
		result.Tree = pivot.Build(pivotResult)
	}
	return result
}

func remoteResult(plan Plan, rows []value.Row) Result {
	result := Normalize(rows, plan)
	result.Mode = ModeRemote

	if plan.Pivot != nil {
		pivotResult := reaggregatePivot(plan, rows)
		pivotResult.ApplyConditionalFormatting()
		result.Pivot = &pivotResult
		result.Tree = pivot.Build(pivotResult)
	}
	return result
}

// pivotToken gives hierarchy periods below a year a sortable raw value and a short label, so
// "2024-08" sorts chronologically and displays as "Aug".
func pivotToken(field string, fieldValue value.Value) string {
	raw := fieldValue.String()
	if _, level, ok := fields.SplitHierarchy(field); ok {
		switch level {
		case fields.LevelHalf, fields.LevelQuarter, fields.LevelMonth:
			return pivot.EncodeToken(raw, format.FormatAxisLabel(level, raw))
		}
	}
	return raw
}

// checkPivotReaggregable returns a *ConfigError if a pivot's totals cannot be derived from
// pre-aggregated cells, as is the case for averages and distinct counts.
func checkPivotReaggregable(plan Plan) error {
	for _, config := range plan.Pivot.Values {
		if _, ok := aggregate.Reaggregation(config.Aggregation); !ok {
			return configError(
				fmt.Sprintf(
					"pivot value '%s' needs raw rows to compute totals, but only remote aggregation is available",
					config.Key(),
				),
				nil,
			)
		}
	}
	return nil
}

// reaggregatePivot builds a pivot from remotely aggregated cells, one row per combination of row
// and column fields. Totals combine the cells with each measure's re-aggregation.
func reaggregatePivot(plan Plan, rows []value.Row) aggregate.PivotResult {
	values := make([]aggregate.ValueConfig, 0, len(plan.Pivot.Values))
	renames := make(map[string]string, len(plan.Pivot.Values))

	for _, config := range plan.Pivot.Values {
		measure, ok := plan.measure(config.Field, config.Aggregation)
		if !ok {
			continue
		}
		kind, _ := aggregate.Reaggregation(config.Aggregation)

		reaggregated := aggregate.ValueConfig{Field: measure.Key, Aggregation: kind}
		values = append(values, reaggregated)
		renames[reaggregated.Key()] = config.Key()
	}

	result := aggregate.PivotDataWithOptions(
		rows,
		plan.Pivot.Rows,
		plan.Pivot.Columns,
		values,
		aggregate.PivotOptions{TokenEncoder: pivotToken},
	)

	result.Values = plan.Pivot.Values
	result.GrandTotal = renameMeasures(result.GrandTotal, renames)
	for rowKey, cells := range result.Data {
		for columnKey, measures := range cells {
			cells[columnKey] = renameMeasures(measures, renames)
		}
		result.RowTotals[rowKey] = renameMeasures(result.RowTotals[rowKey], renames)
	}
	for columnKey, measures := range result.ColumnTotals {
		result.ColumnTotals[columnKey] = renameMeasures(measures, renames)
	}
	return result
}

func renameMeasures(measures map[string]float64, renames map[string]string) map[string]float64 {
	renamed := make(map[string]float64, len(measures))
	for key, measure := range measures {
		if newKey, ok := renames[key]; ok {
			key = newKey
		}
		renamed[key] = measure
	}
	return renamed
}
