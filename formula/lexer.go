package formula

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int8

const (
	tokenEOF tokenKind = iota + 1
	tokenNumber
	tokenString
	tokenField
	tokenIdentifier
	tokenOperator
	tokenLeftParen
	tokenRightParen
	tokenComma
)

type token struct {
	kind tokenKind
	text string
	// Byte offset in the formula, for error messages.
	position int
}

// Two-character operators must come before their one-character prefixes.
var operators = []string{"==", "!=", "<>", "<=", ">=", "&&", "||", "+", "-", "*", "/", "%", "=", "<", ">", "!"}

type lexer struct {
	input    string
	position int
}

func tokenize(formula string) ([]token, error) {
	lexer := lexer{input: formula}

	var tokens []token
	for {
		next, err := lexer.next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, next)
		if next.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (lexer *lexer) peek() rune {
	if lexer.position >= len(lexer.input) {
		return 0
	}
	char, _ := utf8.DecodeRuneInString(lexer.input[lexer.position:])
	return char
}

func (lexer *lexer) skipWhitespace() {
	for lexer.position < len(lexer.input) {
		char, size := utf8.DecodeRuneInString(lexer.input[lexer.position:])
		if !unicode.IsSpace(char) {
			return
		}
		lexer.position += size
	}
}

func (lexer *lexer) next() (token, error) {
	lexer.skipWhitespace()

	start := lexer.position
	if start >= len(lexer.input) {
		return token{kind: tokenEOF, position: start}, nil
	}

	char := lexer.peek()
	switch {
	case char == '[':
		return lexer.readField()
	case char == '\'' || char == '"':
		return lexer.readString(char)
	case char == '(':
		lexer.position++
		return token{kind: tokenLeftParen, text: "(", position: start}, nil
	case char == ')':
		lexer.position++
		return token{kind: tokenRightParen, text: ")", position: start}, nil
	case char == ',':
		lexer.position++
		return token{kind: tokenComma, text: ",", position: start}, nil
	case unicode.IsDigit(char) || char == '.':
		return lexer.readNumber()
	case unicode.IsLetter(char) || char == '_':
		return lexer.readIdentifier(), nil
	}

	for _, operator := range operators {
		if strings.HasPrefix(lexer.input[start:], operator) {
			lexer.position += len(operator)
			return token{kind: tokenOperator, text: operator, position: start}, nil
		}
	}

	return token{}, fmt.Errorf("unexpected character '%c' at position %d", char, start)
}

func (lexer *lexer) readField() (token, error) {
	start := lexer.position
	end := strings.IndexByte(lexer.input[start+1:], ']')
	if end == -1 {
		return token{}, fmt.Errorf("field reference at position %d is missing closing ']'", start)
	}

	name := strings.TrimSpace(lexer.input[start+1 : start+1+end])
	if name == "" {
		return token{}, fmt.Errorf("empty field reference at position %d", start)
	}
	if strings.ContainsRune(name, '[') {
		return token{}, fmt.Errorf("nested '[' in field reference at position %d", start)
	}

	lexer.position = start + end + 2
	return token{kind: tokenField, text: name, position: start}, nil
}

func (lexer *lexer) readString(quote rune) (token, error) {
	start := lexer.position
	lexer.position++ // opening quote

	var builder strings.Builder
	for lexer.position < len(lexer.input) {
		char, size := utf8.DecodeRuneInString(lexer.input[lexer.position:])
		lexer.position += size

		switch char {
		case quote:
			return token{kind: tokenString, text: builder.String(), position: start}, nil
		case '\\':
			escaped, size := utf8.DecodeRuneInString(lexer.input[lexer.position:])
			lexer.position += size
			switch escaped {
			case 'n':
				builder.WriteRune('\n')
			case 't':
				builder.WriteRune('\t')
			default:
				builder.WriteRune(escaped)
			}
		default:
			builder.WriteRune(char)
		}
	}

	return token{}, fmt.Errorf("unterminated string starting at position %d", start)
}

func (lexer *lexer) readNumber() (token, error) {
	start := lexer.position
	seenDot := false
	for lexer.position < len(lexer.input) {
		char := lexer.input[lexer.position]
		if char == '.' {
			if seenDot {
				return token{}, fmt.Errorf("malformed number at position %d", start)
			}
			seenDot = true
		} else if char < '0' || char > '9' {
			break
		}
		lexer.position++
	}

	text := lexer.input[start:lexer.position]
	if text == "." {
		return token{}, errors.New("unexpected '.'")
	}
	return token{kind: tokenNumber, text: text, position: start}, nil
}

func (lexer *lexer) readIdentifier() token {
	start := lexer.position
	for lexer.position < len(lexer.input) {
		char, size := utf8.DecodeRuneInString(lexer.input[lexer.position:])
		if !unicode.IsLetter(char) && !unicode.IsDigit(char) && char != '_' {
			break
		}
		lexer.position += size
	}
	return token{kind: tokenIdentifier, text: lexer.input[start:lexer.position], position: start}
}
