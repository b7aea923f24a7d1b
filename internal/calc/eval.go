package calc

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/wonny/finsight/internal/contracts"
)

// Arithmetic evaluator for fully-substituted formulas. The grammar is
// numbers, + - * /, unary minus, and parentheses, nothing else. Any
// other token fails closed as unsafe; there is no escape hatch into a
// general interpreter.

var errDivisionByZero = errors.New("division by zero")

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind  tokenKind
	value float64
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	runes := []rune(expr)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+':
			tokens = append(tokens, token{kind: tokPlus})
			i++
		case r == '-':
			tokens = append(tokens, token{kind: tokMinus})
			i++
		case r == '*':
			tokens = append(tokens, token{kind: tokStar})
			i++
		case r == '/':
			tokens = append(tokens, token{kind: tokSlash})
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' ||
				runes[i] == 'e' || runes[i] == 'E' ||
				((runes[i] == '+' || runes[i] == '-') && i > start && (runes[i-1] == 'e' || runes[i-1] == 'E'))) {
				i++
			}
			v, err := strconv.ParseFloat(string(runes[start:i]), 64)
			if err != nil {
				return nil, contracts.NewValidationError("unsafe expression: bad number %q", string(runes[start:i]))
			}
			tokens = append(tokens, token{kind: tokNumber, value: v})
		default:
			return nil, contracts.NewValidationError("unsafe expression: unexpected character %q", string(r))
		}
	}

	return append(tokens, token{kind: tokEOF}), nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// expression := term (('+' | '-') term)*
func (p *parser) expression() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			right, err := p.term()
			if err != nil {
				return 0, err
			}
			left += right
		case tokMinus:
			p.next()
			right, err := p.term()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

// term := factor (('*' | '/') factor)*
func (p *parser) term() (float64, error) {
	left, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().kind {
		case tokStar:
			p.next()
			right, err := p.factor()
			if err != nil {
				return 0, err
			}
			left *= right
		case tokSlash:
			p.next()
			right, err := p.factor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, errDivisionByZero
			}
			left /= right
		default:
			return left, nil
		}
	}
}

// factor := number | '(' expression ')' | ('-' | '+') factor
func (p *parser) factor() (float64, error) {
	switch t := p.next(); t.kind {
	case tokNumber:
		return t.value, nil
	case tokMinus:
		v, err := p.factor()
		return -v, err
	case tokPlus:
		return p.factor()
	case tokLParen:
		v, err := p.expression()
		if err != nil {
			return 0, err
		}
		if p.next().kind != tokRParen {
			return 0, contracts.NewValidationError("unsafe expression: unbalanced parentheses")
		}
		return v, nil
	default:
		return 0, contracts.NewValidationError("unsafe expression: unexpected token")
	}
}

// evaluate computes a fully-substituted arithmetic expression
func evaluate(expr string) (float64, error) {
	if strings.TrimSpace(expr) == "" {
		return 0, contracts.NewValidationError("empty expression")
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}

	p := &parser{tokens: tokens}
	v, err := p.expression()
	if err != nil {
		return 0, err
	}
	if p.peek().kind != tokEOF {
		return 0, contracts.NewValidationError("unsafe expression: trailing tokens")
	}
	return v, nil
}

// formatValue renders a number for substitution into a formula. Negative
// values are parenthesized so "a - b" stays well-formed after b = -5.
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if v < 0 {
		return "(" + s + ")"
	}
	return s
}
