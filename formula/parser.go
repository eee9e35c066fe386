package formula

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Guards the recursive descent against stack exhaustion on hostile input.
const maxNestingDepth = 64

type parser struct {
	tokens   []token
	position int
	depth    int
}

// Parse checks that a formula is syntactically valid: known helpers with the right number of
// arguments, balanced parentheses, no trailing input.
func Parse(formula string) error {
	_, err := parse(formula)
	return err
}

func parse(formula string) (node, error) {
	if strings.TrimSpace(formula) == "" {
		return nil, errors.New("formula is empty")
	}

	tokens, err := tokenize(formula)
	if err != nil {
		return nil, err
	}

	parser := parser{tokens: tokens}
	root, err := parser.parseOr()
	if err != nil {
		return nil, err
	}

	if current := parser.current(); current.kind != tokenEOF {
		return nil, fmt.Errorf("unexpected '%s' at position %d", current.text, current.position)
	}
	return root, nil
}

func (parser *parser) current() token {
	if parser.position >= len(parser.tokens) {
		return token{kind: tokenEOF}
	}
	return parser.tokens[parser.position]
}

func (parser *parser) advance() token {
	current := parser.current()
	parser.position++
	return current
}

func (parser *parser) isOperator(candidates ...string) (string, bool) {
	current := parser.current()
	if current.kind != tokenOperator {
		return "", false
	}
	for _, candidate := range candidates {
		if current.text == candidate {
			return candidate, true
		}
	}
	return "", false
}

func (parser *parser) enter() error {
	parser.depth++
	if parser.depth > maxNestingDepth {
		return fmt.Errorf("formula is nested deeper than %d levels", maxNestingDepth)
	}
	return nil
}

func (parser *parser) exit() {
	parser.depth--
}

func (parser *parser) parseOr() (node, error) {
	if err := parser.enter(); err != nil {
		return nil, err
	}
	defer parser.exit()

	left, err := parser.parseAnd()
	if err != nil {
		return nil, err
	}

	for {
		if _, ok := parser.isOperator("||"); !ok {
			return left, nil
		}
		parser.advance()

		right, err := parser.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicalNode{and: false, left: left, right: right}
	}
}

func (parser *parser) parseAnd() (node, error) {
	left, err := parser.parseBinary(0)
	if err != nil {
		return nil, err
	}

	for {
		if _, ok := parser.isOperator("&&"); !ok {
			return left, nil
		}
		parser.advance()

		right, err := parser.parseBinary(0)
		if err != nil {
			return nil, err
		}
		left = logicalNode{and: true, left: left, right: right}
	}
}

// Binary operator levels from loosest to tightest binding. All are left-associative.
var binaryLevels = [][]string{
	{"=", "==", "!=", "<>"},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (parser *parser) parseBinary(level int) (node, error) {
	if level == len(binaryLevels) {
		return parser.parseUnary()
	}

	left, err := parser.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		operator, ok := parser.isOperator(binaryLevels[level]...)
		if !ok {
			return left, nil
		}
		parser.advance()

		right, err := parser.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = binaryNode{operator: operator, left: left, right: right}
	}
}

func (parser *parser) parseUnary() (node, error) {
	operator, ok := parser.isOperator("!", "-", "+")
	if !ok {
		return parser.parsePrimary()
	}
	parser.advance()

	if err := parser.enter(); err != nil {
		return nil, err
	}
	defer parser.exit()

	operand, err := parser.parseUnary()
	if err != nil {
		return nil, err
	}
	return unaryNode{operator: operator, operand: operand}, nil
}

func (parser *parser) parsePrimary() (node, error) {
	current := parser.advance()

	switch current.kind {
	case tokenNumber:
		number, err := strconv.ParseFloat(current.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number '%s' at position %d", current.text, current.position)
		}
		return numberNode(number), nil
	case tokenString:
		return stringNode(current.text), nil
	case tokenField:
		return fieldNode{name: current.text}, nil
	case tokenIdentifier:
		return parser.parseIdentifier(current)
	case tokenLeftParen:
		inner, err := parser.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := parser.advance(); closing.kind != tokenRightParen {
			return nil, fmt.Errorf("expected ')' at position %d", closing.position)
		}
		return inner, nil
	case tokenEOF:
		return nil, errors.New("formula ended unexpectedly")
	default:
		return nil, fmt.Errorf("unexpected '%s' at position %d", current.text, current.position)
	}
}

func (parser *parser) parseIdentifier(identifier token) (node, error) {
	name := strings.ToUpper(identifier.text)

	if parser.current().kind != tokenLeftParen {
		switch name {
		case "TRUE":
			return boolNode(true), nil
		case "FALSE":
			return boolNode(false), nil
		}
		return nil, fmt.Errorf(
			"unknown name '%s' at position %d (field names must be written as [%s])",
			identifier.text, identifier.position, identifier.text,
		)
	}

	helper, ok := helpers[name]
	if !ok {
		return nil, fmt.Errorf("unknown function '%s'", identifier.text)
	}

	parser.advance() // (
	args, err := parser.parseArguments()
	if err != nil {
		return nil, err
	}

	if len(args) < helper.minArity || (helper.maxArity != variadic && len(args) > helper.maxArity) {
		return nil, fmt.Errorf("%s expects %s, got %d", name, helper.arityDescription(), len(args))
	}

	if name == "IF" {
		conditional := conditionalNode{condition: args[0], then: args[1]}
		if len(args) == 3 {
			conditional.otherwise = args[2]
		}
		return conditional, nil
	}
	return callNode{helper: helper, args: args}, nil
}

func (parser *parser) parseArguments() ([]node, error) {
	var args []node
	if parser.current().kind == tokenRightParen {
		parser.advance()
		return args, nil
	}

	for {
		arg, err := parser.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		separator := parser.advance()
		switch separator.kind {
		case tokenComma:
			continue
		case tokenRightParen:
			return args, nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' at position %d", separator.position)
		}
	}
}
