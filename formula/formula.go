// Package formula evaluates user-authored calculated fields such as
// "IF([Revenue] > 0, [Profit] / [Revenue] * 100, 0)".
//
// Formulas are parsed into a small AST of arithmetic, comparisons, boolean logic and a fixed set
// of helper functions, and interpreted directly. Field references in brackets are resolved
// against each row with fields.Resolve, so hierarchy fields like [OrderDate___year] work too.
package formula

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"hermannm.dev/widgetengine/fields"
	"hermannm.dev/widgetengine/value"
)

// Compiled is a parsed formula that can be evaluated against many rows.
type Compiled struct {
	source string
	root   node
	err    error
}

// Compile parses a formula once for repeated evaluation. A formula that fails to parse still
// yields a Compiled, which evaluates to null for every row; Err reports the parse error.
func Compile(formula string) *Compiled {
	root, err := parse(formula)
	return &Compiled{source: formula, root: root, err: err}
}

func (compiled *Compiled) Err() error {
	return compiled.err
}

func (compiled *Compiled) Source() string {
	return compiled.source
}

// Eval evaluates the formula against a row. Evaluation errors, such as arithmetic on text, and
// non-finite results (division by zero) give null rather than failing the surrounding pass.
func (compiled *Compiled) Eval(row value.Row) value.Value {
	if compiled.root == nil {
		return value.Null()
	}

	result, err := compiled.root.eval(row)
	if err != nil {
		return value.Null()
	}

	if number, ok := result.AsNumber(); ok && (math.IsNaN(number) || math.IsInf(number, 0)) {
		return value.Null()
	}
	return result
}

// Evaluate parses and evaluates a formula in one go. It follows the same substitution rules as
// Compile: missing, null and empty fields count as 0.
func Evaluate(formula string, row value.Row) value.Value {
	return Compile(formula).Eval(row)
}

// Fields lists the distinct field names a formula references, in order of first appearance.
// Unparsable formulas yield the references found before the syntax error.
func Fields(formula string) []string {
	tokens, _ := tokenize(formula)

	var names []string
	seen := make(map[string]struct{})
	for _, token := range tokens {
		if token.kind != tokenField {
			continue
		}
		if _, duplicate := seen[token.text]; duplicate {
			continue
		}
		seen[token.text] = struct{}{}
		names = append(names, token.text)
	}
	return names
}

type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateFormula checks bracket balance, then that every referenced field is available, then
// that the formula parses. The first failing check's message is returned.
func ValidateFormula(formula string, availableFields []string) Validation {
	if err := checkBracketBalance(formula); err != nil {
		return Validation{Valid: false, Error: err.Error()}
	}

	for _, field := range Fields(formula) {
		if !fieldAvailable(field, availableFields) {
			return Validation{Valid: false, Error: fmt.Sprintf("unknown field '%s'", field)}
		}
	}

	if err := Parse(formula); err != nil {
		return Validation{Valid: false, Error: err.Error()}
	}
	return Validation{Valid: true}
}

func checkBracketBalance(formula string) error {
	depth := 0
	var quote rune

	for _, char := range formula {
		if quote != 0 {
			if char == quote {
				quote = 0
			}
			continue
		}

		switch char {
		case '\'', '"':
			if depth == 0 {
				quote = char
			}
		case '[':
			depth++
			if depth > 1 {
				return errors.New("unbalanced brackets: nested '['")
			}
		case ']':
			depth--
			if depth < 0 {
				return errors.New("unbalanced brackets: ']' without matching '['")
			}
		}
	}

	if depth != 0 {
		return errors.New("unbalanced brackets: '[' without matching ']'")
	}
	return nil
}

// fieldAvailable matches like fields.Resolve does: case-insensitively, and hierarchy fields are
// available when their base field is.
func fieldAvailable(field string, availableFields []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(field))
	for _, available := range availableFields {
		if strings.ToLower(strings.TrimSpace(available)) == normalized {
			return true
		}
	}

	if base, _, ok := fields.SplitHierarchy(field); ok {
		return fieldAvailable(base, availableFields)
	}
	return false
}
