package formula

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"hermannm.dev/widgetengine/value"
)

const variadic = -1

// helper is a function callable from formulas. Names are matched case-insensitively.
type helper struct {
	name     string
	minArity int
	maxArity int
	evaluate func(args []value.Value) (value.Value, error)
}

func (helper helper) arityDescription() string {
	switch {
	case helper.maxArity == variadic:
		return fmt.Sprintf("at least %d argument(s)", helper.minArity)
	case helper.minArity == helper.maxArity:
		return fmt.Sprintf("%d argument(s)", helper.minArity)
	default:
		return fmt.Sprintf("%d to %d arguments", helper.minArity, helper.maxArity)
	}
}

var helpers = newHelperRegistry(
	// IF is evaluated lazily by conditionalNode; it is registered here for name and arity checks.
	helper{name: "IF", minArity: 2, maxArity: 3},
	helper{name: "AND", minArity: 1, maxArity: variadic, evaluate: logicalAnd},
	helper{name: "OR", minArity: 1, maxArity: variadic, evaluate: logicalOr},
	helper{name: "NOT", minArity: 1, maxArity: 1, evaluate: logicalNot},
	helper{name: "ABS", minArity: 1, maxArity: 1, evaluate: numeric(math.Abs)},
	helper{name: "CEILING", minArity: 1, maxArity: 1, evaluate: numeric(math.Ceil)},
	helper{name: "FLOOR", minArity: 1, maxArity: 1, evaluate: numeric(math.Floor)},
	helper{name: "ROUND", minArity: 1, maxArity: 2, evaluate: round},
	helper{name: "MAX", minArity: 1, maxArity: variadic, evaluate: extreme(math.Max)},
	helper{name: "MIN", minArity: 1, maxArity: variadic, evaluate: extreme(math.Min)},
	helper{name: "UPPER", minArity: 1, maxArity: 1, evaluate: textual(strings.ToUpper)},
	helper{name: "LOWER", minArity: 1, maxArity: 1, evaluate: textual(strings.ToLower)},
	helper{name: "CONCAT", minArity: 0, maxArity: variadic, evaluate: concat},
	helper{name: "LEN", minArity: 1, maxArity: 1, evaluate: length},
)

func newHelperRegistry(registered ...helper) map[string]helper {
	registry := make(map[string]helper, len(registered))
	for _, helper := range registered {
		registry[strings.ToUpper(helper.name)] = helper
	}
	return registry
}

// HelperNames lists the functions formulas may call, for editor autocompletion.
func HelperNames() []string {
	names := make([]string, 0, len(helpers))
	for name := range helpers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func logicalAnd(args []value.Value) (value.Value, error) {
	for _, arg := range args {
		if !arg.Truthy() {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

func logicalOr(args []value.Value) (value.Value, error) {
	for _, arg := range args {
		if arg.Truthy() {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func logicalNot(args []value.Value) (value.Value, error) {
	return value.Bool(!args[0].Truthy()), nil
}

func numberArg(arg value.Value) (float64, error) {
	number, ok := arithmeticOperand(arg)
	if !ok {
		return 0, fmt.Errorf("expected a number, got '%s'", arg)
	}
	return number, nil
}

func numeric(apply func(float64) float64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		number, err := numberArg(args[0])
		if err != nil {
			return value.Null(), err
		}
		return value.Number(apply(number)), nil
	}
}

// round rounds half away from zero at the given number of decimals (default 0).
func round(args []value.Value) (value.Value, error) {
	number, err := numberArg(args[0])
	if err != nil {
		return value.Null(), err
	}

	digits := 0.0
	if len(args) == 2 {
		if digits, err = numberArg(args[1]); err != nil {
			return value.Null(), err
		}
	}

	factor := math.Pow(10, math.Trunc(digits))
	return value.Number(math.Round(number*factor) / factor), nil
}

func extreme(pick func(float64, float64) float64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		result, err := numberArg(args[0])
		if err != nil {
			return value.Null(), err
		}
		for _, arg := range args[1:] {
			number, err := numberArg(arg)
			if err != nil {
				return value.Null(), err
			}
			result = pick(result, number)
		}
		return value.Number(result), nil
	}
}

func textual(apply func(string) string) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		return value.String(apply(args[0].String())), nil
	}
}

func concat(args []value.Value) (value.Value, error) {
	var builder strings.Builder
	for _, arg := range args {
		builder.WriteString(arg.String())
	}
	return value.String(builder.String()), nil
}

func length(args []value.Value) (value.Value, error) {
	return value.Number(float64(utf8.RuneCountInString(args[0].String()))), nil
}
