package formula

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/value"
)

type node interface {
	eval(row value.Row) (value.Value, error)
}

type numberNode float64

type stringNode string

type boolNode bool

type fieldNode struct {
	name string
}

type unaryNode struct {
	operator string
	operand  node
}

type binaryNode struct {
	operator string
	left     node
	right    node
}

// logicalNode is && (and=true) or ||. Like in most scripting languages, it short-circuits and
// yields one of its operands rather than a boolean.
type logicalNode struct {
	and   bool
	left  node
	right node
}

// conditionalNode is IF. Only the chosen branch is evaluated.
type conditionalNode struct {
	condition node
	then      node
	otherwise node // nil when IF was given 2 arguments
}

type callNode struct {
	helper helper
	args   []node
}

var errNotNumeric = errors.New("operand is not a number")

func (number numberNode) eval(value.Row) (value.Value, error) {
	return value.Number(float64(number)), nil
}

func (text stringNode) eval(value.Row) (value.Value, error) {
	return value.String(string(text)), nil
}

func (truth boolNode) eval(value.Row) (value.Value, error) {
	return value.Bool(bool(truth)), nil
}

// Missing, null and empty fields are substituted with 0, and numeric strings with their number,
// so arithmetic works on loosely typed sources.
func (field fieldNode) eval(row value.Row) (value.Value, error) {
	resolved, ok := fields.Resolve(row, field.name)
	if !ok || resolved.IsBlank() {
		return value.Number(0), nil
	}

	if text, isString := resolved.AsString(); isString {
		if number, ok := value.ParseNumber(text); ok {
			return value.Number(number), nil
		}
	}
	return resolved, nil
}

func (unary unaryNode) eval(row value.Row) (value.Value, error) {
	operand, err := unary.operand.eval(row)
	if err != nil {
		return value.Null(), err
	}

	if unary.operator == "!" {
		return value.Bool(!operand.Truthy()), nil
	}

	number, ok := operand.Float()
	if !ok {
		return value.Null(), errNotNumeric
	}
	if unary.operator == "-" {
		return value.Number(-number), nil
	}
	return value.Number(number), nil
}

func (binary binaryNode) eval(row value.Row) (value.Value, error) {
	left, err := binary.left.eval(row)
	if err != nil {
		return value.Null(), err
	}
	right, err := binary.right.eval(row)
	if err != nil {
		return value.Null(), err
	}

	switch binary.operator {
	case "=", "==":
		return value.Bool(looseEquals(left, right)), nil
	case "!=", "<>":
		return value.Bool(!looseEquals(left, right)), nil
	case "<", "<=", ">", ">=":
		return value.Bool(compare(left, right, binary.operator)), nil
	}

	leftNumber, leftOK := arithmeticOperand(left)
	rightNumber, rightOK := arithmeticOperand(right)
	if !leftOK || !rightOK {
		return value.Null(), fmt.Errorf("'%s' needs numbers, got '%s' and '%s'", binary.operator, left, right)
	}

	switch binary.operator {
	case "+":
		return value.Number(leftNumber + rightNumber), nil
	case "-":
		return value.Number(leftNumber - rightNumber), nil
	case "*":
		return value.Number(leftNumber * rightNumber), nil
	case "/":
		return value.Number(leftNumber / rightNumber), nil
	case "%":
		return value.Number(math.Mod(leftNumber, rightNumber)), nil
	default:
		return value.Null(), fmt.Errorf("unknown operator '%s'", binary.operator)
	}
}

// arithmeticOperand differs from Value.Float in letting non-finite intermediate results through,
// so that e.g. 1/0 surfaces as a null result rather than an error.
func arithmeticOperand(operand value.Value) (float64, bool) {
	if number, ok := operand.AsNumber(); ok {
		return number, true
	}
	return operand.Float()
}

func looseEquals(left value.Value, right value.Value) bool {
	if left.IsNull() || right.IsNull() {
		return left.IsNull() && right.IsNull()
	}

	leftText, leftIsString := left.AsString()
	rightText, rightIsString := right.AsString()
	if leftIsString && rightIsString {
		return leftText == rightText
	}

	leftNumber, leftOK := left.Float()
	rightNumber, rightOK := right.Float()
	if leftOK && rightOK {
		return leftNumber == rightNumber
	}
	return left.String() == right.String()
}

func compare(left value.Value, right value.Value, operator string) bool {
	var comparison int

	leftText, leftIsString := left.AsString()
	rightText, rightIsString := right.AsString()
	if leftIsString && rightIsString {
		comparison = strings.Compare(leftText, rightText)
	} else {
		leftNumber, leftOK := left.Float()
		rightNumber, rightOK := right.Float()
		if !leftOK || !rightOK {
			return false
		}
		switch {
		case leftNumber < rightNumber:
			comparison = -1
		case leftNumber > rightNumber:
			comparison = 1
		}
	}

	switch operator {
	case "<":
		return comparison < 0
	case "<=":
		return comparison <= 0
	case ">":
		return comparison > 0
	default:
		return comparison >= 0
	}
}

func (logical logicalNode) eval(row value.Row) (value.Value, error) {
	left, err := logical.left.eval(row)
	if err != nil {
		return value.Null(), err
	}

	if logical.and != left.Truthy() {
		return left, nil
	}
	return logical.right.eval(row)
}

func (conditional conditionalNode) eval(row value.Row) (value.Value, error) {
	condition, err := conditional.condition.eval(row)
	if err != nil {
		return value.Null(), err
	}

	if condition.Truthy() {
		return conditional.then.eval(row)
	}
	if conditional.otherwise == nil {
		return value.Bool(false), nil
	}
	return conditional.otherwise.eval(row)
}

func (call callNode) eval(row value.Row) (value.Value, error) {
	args := make([]value.Value, len(call.args))
	for i, arg := range call.args {
		evaluated, err := arg.eval(row)
		if err != nil {
			return value.Null(), err
		}
		args[i] = evaluated
	}
	return call.helper.evaluate(args)
}
