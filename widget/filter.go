package widget

import (
	"errors"
	"fmt"
	"strings"

	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/value"
)

type Filter struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	// Value is the operand of comparison operators.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`
	// Values holds the set for in/notIn, and the inclusive bounds for between.
	Values []any `json:"values,omitempty" yaml:"values,omitempty"`
}

func (filter Filter) Validate() error {
	if strings.TrimSpace(filter.Field) == "" {
		return errors.New("filter field is blank")
	}

	switch filter.Operator {
	case OperatorIn, OperatorNotIn:
		if len(filter.Values) == 0 {
			return fmt.Errorf("operator '%s' needs at least one value", filter.Operator)
		}
	case OperatorBetween:
		if len(filter.Values) != 2 {
			return fmt.Errorf("operator '%s' needs exactly 2 values, got %d", filter.Operator, len(filter.Values))
		}
	case OperatorIsNull, OperatorIsNotNull:
	case OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorGreaterThanOrEqual,
		OperatorLessThan, OperatorLessThanOrEqual, OperatorContains:
		if filter.Value == nil {
			return fmt.Errorf("operator '%s' needs a value", filter.Operator)
		}
	default:
		return errors.New("missing or unknown filter operator")
	}
	return nil
}

// Operand returns the filter's single comparison value.
func (filter Filter) Operand() value.Value {
	return value.FromAny(filter.Value)
}

// Operands returns the filter's value list.
func (filter Filter) Operands() []value.Value {
	operands := make([]value.Value, len(filter.Values))
	for i, raw := range filter.Values {
		operands[i] = value.FromAny(raw)
	}
	return operands
}

// ApplyFilters keeps the rows matching every filter. Missing and null values only match isNull,
// the way SQL treats NULL, so local filtering agrees with filters pushed down to a database.
func ApplyFilters(rows []value.Row, filters []Filter) []value.Row {
	if len(filters) == 0 {
		return rows
	}

	filtered := make([]value.Row, 0, len(rows))
	for _, row := range rows {
		if matchesAll(row, filters) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func matchesAll(row value.Row, filters []Filter) bool {
	for _, filter := range filters {
		if !filter.Matches(row) {
			return false
		}
	}
	return true
}

func (filter Filter) Matches(row value.Row) bool {
	resolved, ok := fields.Resolve(row, filter.Field)
	isNull := !ok || resolved.IsNull()

	switch filter.Operator {
	case OperatorIsNull:
		return isNull
	case OperatorIsNotNull:
		return !isNull
	}
	if isNull {
		return false
	}

	switch filter.Operator {
	case OperatorEquals:
		return Equal(resolved, filter.Operand())
	case OperatorNotEquals:
		return !Equal(resolved, filter.Operand())
	case OperatorIn:
		return equalsAny(resolved, filter.Operands())
	case OperatorNotIn:
		return !equalsAny(resolved, filter.Operands())
	case OperatorGreaterThan:
		comparison, ok := Compare(resolved, filter.Operand())
		return ok && comparison > 0
	case OperatorGreaterThanOrEqual:
		comparison, ok := Compare(resolved, filter.Operand())
		return ok && comparison >= 0
	case OperatorLessThan:
		comparison, ok := Compare(resolved, filter.Operand())
		return ok && comparison < 0
	case OperatorLessThanOrEqual:
		comparison, ok := Compare(resolved, filter.Operand())
		return ok && comparison <= 0
	case OperatorBetween:
		bounds := filter.Operands()
		if len(bounds) != 2 {
			return false
		}
		lower, lowerOK := Compare(resolved, bounds[0])
		upper, upperOK := Compare(resolved, bounds[1])
		return lowerOK && upperOK && lower >= 0 && upper <= 0
	case OperatorContains:
		return strings.Contains(
			strings.ToLower(resolved.String()),
			strings.ToLower(filter.Operand().String()),
		)
	default:
		return false
	}
}

func equalsAny(fieldValue value.Value, candidates []value.Value) bool {
	for _, candidate := range candidates {
		if Equal(fieldValue, candidate) {
			return true
		}
	}
	return false
}

// Equal compares numerically when both sides are numbers or numeric strings, and as strings
// otherwise.
func Equal(left value.Value, right value.Value) bool {
	if comparison, ok := Compare(left, right); ok {
		return comparison == 0
	}
	return left.String() == right.String()
}

// Compare orders two values: as dates when either is a date, as numbers when both are numeric,
// and as strings otherwise. ok is false when a date side cannot be read as a date.
func Compare(left value.Value, right value.Value) (comparison int, ok bool) {
	if left.Kind() == value.KindDate || right.Kind() == value.KindDate {
		leftDate, leftOK := fields.ParseDate(left)
		rightDate, rightOK := fields.ParseDate(right)
		if !leftOK || !rightOK {
			return 0, false
		}
		return leftDate.Compare(rightDate), true
	}

	leftNumber, leftOK := left.Float()
	rightNumber, rightOK := right.Float()
	if leftOK && rightOK {
		switch {
		case leftNumber < rightNumber:
			return -1, true
		case leftNumber > rightNumber:
			return 1, true
		default:
			return 0, true
		}
	}

	return strings.Compare(left.String(), right.String()), true
}
