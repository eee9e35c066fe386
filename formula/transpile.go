package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Transpile rewrites a formula as a SQL expression for remote execution, quoting field references
// with the given function (e.g. backticks for ClickHouse). Operators and helpers are mapped to
// their portable SQL forms: IF becomes CASE, && becomes AND, MAX becomes greatest, and so on.
// Division guards against zero divisors with NULLIF, matching the null local evaluation gives.
func Transpile(formula string, quote func(identifier string) string) (string, error) {
	root, err := parse(formula)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	if err := writeSQL(&builder, root, quote); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// BacktickQuote quotes an identifier with backticks, the form query plans carry expressions in.
func BacktickQuote(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "\\`") + "`"
}

var sqlOperators = map[string]string{
	"=": "=", "==": "=", "!=": "<>", "<>": "<>",
	"<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"+": "+", "-": "-", "*": "*", "%": "%",
}

var sqlFunctions = map[string]string{
	"ABS": "abs", "CEILING": "ceil", "FLOOR": "floor", "ROUND": "round",
	"MAX": "greatest", "MIN": "least", "UPPER": "upper", "LOWER": "lower",
	"CONCAT": "concat", "LEN": "length",
}

func writeSQL(builder *strings.Builder, expression node, quote func(string) string) error {
	switch expression := expression.(type) {
	case numberNode:
		builder.WriteString(strconv.FormatFloat(float64(expression), 'f', -1, 64))
	case stringNode:
		builder.WriteString("'" + strings.ReplaceAll(string(expression), "'", "''") + "'")
	case boolNode:
		if expression {
			builder.WriteString("TRUE")
		} else {
			builder.WriteString("FALSE")
		}
	case fieldNode:
		builder.WriteString(quote(expression.name))
	case unaryNode:
		operator := expression.operator
		if operator == "!" {
			operator = "NOT "
		}
		builder.WriteString("(" + operator)
		if err := writeSQL(builder, expression.operand, quote); err != nil {
			return err
		}
		builder.WriteString(")")
	case binaryNode:
		if expression.operator == "/" {
			return writeDivision(builder, expression, quote)
		}
		operator, ok := sqlOperators[expression.operator]
		if !ok {
			return fmt.Errorf("operator '%s' has no SQL equivalent", expression.operator)
		}
		return writeInfix(builder, operator, quote, expression.left, expression.right)
	case logicalNode:
		operator := "OR"
		if expression.and {
			operator = "AND"
		}
		return writeInfix(builder, operator, quote, expression.left, expression.right)
	case conditionalNode:
		builder.WriteString("CASE WHEN ")
		if err := writeSQL(builder, expression.condition, quote); err != nil {
			return err
		}
		builder.WriteString(" THEN ")
		if err := writeSQL(builder, expression.then, quote); err != nil {
			return err
		}
		if expression.otherwise != nil {
			builder.WriteString(" ELSE ")
			if err := writeSQL(builder, expression.otherwise, quote); err != nil {
				return err
			}
		}
		builder.WriteString(" END")
	case callNode:
		return writeCall(builder, expression, quote)
	default:
		return fmt.Errorf("unsupported expression %T", expression)
	}
	return nil
}

func writeInfix(builder *strings.Builder, operator string, quote func(string) string, operands ...node) error {
	builder.WriteString("(")
	for i, operand := range operands {
		if i > 0 {
			builder.WriteString(" " + operator + " ")
		}
		if err := writeSQL(builder, operand, quote); err != nil {
			return err
		}
	}
	builder.WriteString(")")
	return nil
}

func writeDivision(builder *strings.Builder, division binaryNode, quote func(string) string) error {
	builder.WriteString("((")
	if err := writeSQL(builder, division.left, quote); err != nil {
		return err
	}
	builder.WriteString(") * 1.0 / NULLIF(")
	if err := writeSQL(builder, division.right, quote); err != nil {
		return err
	}
	builder.WriteString(", 0))")
	return nil
}

func writeCall(builder *strings.Builder, call callNode, quote func(string) string) error {
	switch call.helper.name {
	case "AND", "OR":
		return writeInfix(builder, call.helper.name, quote, call.args...)
	case "NOT":
		builder.WriteString("(NOT ")
		if err := writeSQL(builder, call.args[0], quote); err != nil {
			return err
		}
		builder.WriteString(")")
		return nil
	}

	function, ok := sqlFunctions[call.helper.name]
	if !ok {
		return fmt.Errorf("function %s has no SQL equivalent", call.helper.name)
	}

	builder.WriteString(function + "(")
	for i, arg := range call.args {
		if i > 0 {
			builder.WriteString(", ")
		}
		if err := writeSQL(builder, arg, quote); err != nil {
			return err
		}
	}
	builder.WriteString(")")
	return nil
}
