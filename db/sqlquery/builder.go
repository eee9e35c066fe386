// Package sqlquery renders query plans as SQL for the remote executors, so that a database computes
// the same groups and aggregates that query.ExecuteLocal computes over raw rows.
package sqlquery

import (
	"fmt"
	"strconv"
	"strings"

	"hermannm.dev/widgetengine/aggregate"
	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/formula"
	"hermannm.dev/widgetengine/query"
	"hermannm.dev/widgetengine/widget"
	"hermannm.dev/wrap"
)

// Dialect covers the SQL differences between the supported databases.
type Dialect interface {
	Name() string
	ValidateIdentifier(identifier string) error
	// Must only be called after ValidateIdentifier on the given identifier.
	QuoteIdentifier(identifier string) string
	// Placeholder renders the bind parameter at the given 1-based position.
	Placeholder(position int) string
	// DatePart derives a date-hierarchy level from an expression, in the same textual form as
	// fields.DeriveLevel, and fields.UnknownDate where the expression is not a date.
	DatePart(expression string, level fields.Level) string
	Aggregate(kind aggregate.Kind, expression string) (string, error)
	// Contains tests case-insensitively whether the expression's text contains the parameter.
	Contains(expression string, placeholder string) string
}

// Query is generated SQL with its bind arguments.
type Query struct {
	SQL  string
	Args []any
}

type QueryBuilder struct {
	strings.Builder
	dialect Dialect
	plan    query.Plan
	args    []any
}

func (builder *QueryBuilder) WriteInt(i int) {
	builder.WriteString(strconv.Itoa(i))
}

// Must only be called after validating the identifier.
func (builder *QueryBuilder) WriteIdentifier(identifier string) {
	builder.WriteString(builder.dialect.QuoteIdentifier(identifier))
}

func (builder *QueryBuilder) WriteArg(arg any) {
	builder.args = append(builder.args, arg)
	builder.WriteString(builder.dialect.Placeholder(len(builder.args)))
}

// Supports returns a *query.ConfigError if the plan cannot be expressed in the dialect.
func Supports(dialect Dialect, plan query.Plan) error {
	unsupported := func(format string, args ...any) error {
		return &query.ConfigError{
			Message: fmt.Sprintf(format, args...) + " on " + dialect.Name(),
		}
	}

	for _, calculated := range plan.Calculated {
		for _, field := range formula.Fields(calculated.Formula) {
			if fields.IsHierarchyField(field) {
				return unsupported(
					"calculated field '%s' uses date-hierarchy field '%s', which cannot run",
					calculated.Name,
					field,
				)
			}
			if _, isCalculated := plan.CalculatedColumn(field); isCalculated {
				continue
			}
			if err := dialect.ValidateIdentifier(field); err != nil {
				return unsupported("field '%s' in calculated field '%s' cannot be queried", field, calculated.Name)
			}
		}
	}

	var fieldNames []string
	for _, dimension := range plan.Dimensions {
		fieldNames = append(fieldNames, dimension.Field)
	}
	for _, measure := range plan.Measures {
		fieldNames = append(fieldNames, measure.Field, measure.Key)
		if _, err := dialect.Aggregate(measure.Aggregation, "x"); err != nil {
			return unsupported("aggregation '%s' cannot run", measure.Aggregation)
		}
	}
	for _, filter := range plan.Filters {
		fieldNames = append(fieldNames, filter.Field)
	}

	for _, field := range fieldNames {
		if base, _, isHierarchy := fields.SplitHierarchy(field); isHierarchy {
			field = base
		}
		if _, isCalculated := plan.CalculatedColumn(field); isCalculated {
			continue
		}
		if err := dialect.ValidateIdentifier(field); err != nil {
			return unsupported("field '%s' cannot be queried", field)
		}
	}

	return nil
}

// Build renders a plan as a grouped aggregate query over a table. Every output column is aliased
// with its dimension field or measure key.
func Build(dialect Dialect, plan query.Plan, table string) (Query, error) {
	if err := Supports(dialect, plan); err != nil {
		return Query{}, err
	}
	if err := dialect.ValidateIdentifier(table); err != nil {
		return Query{}, wrap.Error(err, "invalid table name")
	}

	builder := QueryBuilder{dialect: dialect, plan: plan}
	builder.WriteString("SELECT ")

	groupExpressions := make([]string, len(plan.Dimensions))
	for i, dimension := range plan.Dimensions {
		expression, err := builder.fieldExpression(dimension.Field)
		if err != nil {
			return Query{}, wrap.Errorf(err, "failed to render dimension '%s'", dimension.Field)
		}
		groupExpressions[i] = expression

		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(expression)
		builder.WriteString(" AS ")
		builder.WriteIdentifier(dimension.Field)
	}

	for i, measure := range plan.Measures {
		argument := "*"
		if measure.Aggregation != aggregate.KindCount {
			expression, err := builder.fieldExpression(measure.Field)
			if err != nil {
				return Query{}, wrap.Errorf(err, "failed to render measure '%s'", measure.Key)
			}
			argument = expression
		}

		aggregated, err := dialect.Aggregate(measure.Aggregation, argument)
		if err != nil {
			return Query{}, wrap.Errorf(err, "failed to render measure '%s'", measure.Key)
		}

		if i > 0 || len(plan.Dimensions) > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(aggregated)
		builder.WriteString(" AS ")
		builder.WriteIdentifier(measure.Key)
	}

	builder.WriteString(" FROM ")
	builder.WriteIdentifier(table)

	for i, filter := range plan.Filters {
		if i == 0 {
			builder.WriteString(" WHERE ")
		} else {
			builder.WriteString(" AND ")
		}
		if err := builder.writeFilter(filter); err != nil {
			return Query{}, wrap.Errorf(err, "failed to render filter on '%s'", filter.Field)
		}
	}

	if len(groupExpressions) > 0 {
		builder.WriteString(" GROUP BY ")
		builder.WriteString(strings.Join(groupExpressions, ", "))
	}

	if canPushDownLimit(plan) {
		builder.writeOrderBy()
		builder.WriteString(" LIMIT ")
		builder.WriteInt(plan.Limit)
	}

	return Query{SQL: builder.String(), Args: builder.args}, nil
}

// canPushDownLimit reports whether cutting the rows in the database gives the rows normalization
// would keep. That only holds when the database orders rows the way normalization does, and
// normalization neither drops, merges nor regroups rows.
func canPushDownLimit(plan query.Plan) bool {
	if plan.Limit <= 0 || plan.Sort == nil || plan.Legend != "" || plan.HideZeroValues {
		return false
	}
	for _, dimension := range plan.Dimensions {
		if fields.IsHierarchyField(dimension.Field) {
			return false
		}
	}
	return true
}

func (builder *QueryBuilder) writeOrderBy() {
	sort := builder.plan.Sort
	builder.WriteString(" ORDER BY ")
	builder.WriteIdentifier(sort.Key)
	if sort.Descending {
		builder.WriteString(" DESC")
	} else {
		builder.WriteString(" ASC")
	}

	for _, dimension := range builder.plan.Dimensions {
		if dimension.Field == sort.Key {
			continue
		}
		builder.WriteString(", ")
		builder.WriteIdentifier(dimension.Field)
		builder.WriteString(" ASC")
	}
}

// fieldExpression renders a field token: a column, a calculated field's formula, or a date level
// derived from either.
func (builder *QueryBuilder) fieldExpression(field string) (string, error) {
	if base, level, isHierarchy := fields.SplitHierarchy(field); isHierarchy {
		baseExpression, err := builder.fieldExpression(base)
		if err != nil {
			return "", err
		}
		return builder.dialect.DatePart(baseExpression, level), nil
	}

	if calculated, isCalculated := builder.plan.CalculatedColumn(field); isCalculated {
		return builder.formulaExpression(calculated)
	}

	return builder.dialect.QuoteIdentifier(field), nil
}

func (builder *QueryBuilder) formulaExpression(calculated query.CalculatedColumn) (string, error) {
	var referenceErr error
	expression, err := formula.Transpile(calculated.Formula, func(identifier string) string {
		if _, isCalculated := builder.plan.CalculatedColumn(identifier); !isCalculated {
			return builder.dialect.QuoteIdentifier(identifier)
		}

		nested, err := builder.fieldExpression(identifier)
		if err != nil {
			referenceErr = err
		}
		return "(" + nested + ")"
	})
	if err != nil {
		return "", wrap.Errorf(err, "invalid formula for calculated field '%s'", calculated.Name)
	}
	if referenceErr != nil {
		return "", referenceErr
	}
	return expression, nil
}

func (builder *QueryBuilder) writeFilter(filter widget.Filter) error {
	expression, err := builder.fieldExpression(filter.Field)
	if err != nil {
		return err
	}

	comparison := func(operator string) {
		builder.WriteString(expression + " " + operator + " ")
		builder.WriteArg(filter.Operand().Any())
	}

	switch filter.Operator {
	case widget.OperatorEquals:
		comparison("=")
	case widget.OperatorNotEquals:
		comparison("<>")
	case widget.OperatorGreaterThan:
		comparison(">")
	case widget.OperatorGreaterThanOrEqual:
		comparison(">=")
	case widget.OperatorLessThan:
		comparison("<")
	case widget.OperatorLessThanOrEqual:
		comparison("<=")
	case widget.OperatorIn, widget.OperatorNotIn:
		builder.WriteString(expression)
		if filter.Operator == widget.OperatorNotIn {
			builder.WriteString(" NOT")
		}
		builder.WriteString(" IN (")
		for i, operand := range filter.Operands() {
			if i > 0 {
				builder.WriteString(", ")
			}
			builder.WriteArg(operand.Any())
		}
		builder.WriteString(")")
	case widget.OperatorBetween:
		bounds := filter.Operands()
		if len(bounds) != 2 {
			return fmt.Errorf("between needs 2 bounds, got %d", len(bounds))
		}
		builder.WriteString(expression + " BETWEEN ")
		builder.WriteArg(bounds[0].Any())
		builder.WriteString(" AND ")
		builder.WriteArg(bounds[1].Any())
	case widget.OperatorContains:
		builder.args = append(builder.args, filter.Operand().String())
		builder.WriteString(
			builder.dialect.Contains(expression, builder.dialect.Placeholder(len(builder.args))),
		)
	case widget.OperatorIsNull:
		builder.WriteString(expression + " IS NULL")
	case widget.OperatorIsNotNull:
		builder.WriteString(expression + " IS NOT NULL")
	default:
		return fmt.Errorf("unsupported filter operator '%s'", filter.Operator)
	}

	return nil
}
