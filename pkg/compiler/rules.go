package compiler

import (
	"fmt"

	"ember/pkg/opcode"
	"ember/pkg/token"
)

// Precedence is the binding power of an infix operator, lowest first.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecExponent
	PrecUnary
	PrecCall
	PrecPrimary
)

var precedenceNames = [...]string{
	"None", "Assignment", "Or", "And", "Equality", "Comparison",
	"Term", "Factor", "Exponent", "Unary", "Call", "Primary",
}

func (p Precedence) String() string {
	if p < 0 || int(p) >= len(precedenceNames) {
		return fmt.Sprintf("Precedence(%d)", int(p))
	}
	return precedenceNames[p]
}

// next is the precedence one step tighter than p. Binary operands parse
// at next, which makes every binary operator left-associative.
func (p Precedence) next() Precedence {
	if p >= PrecPrimary {
		return PrecPrimary
	}
	return p + 1
}

type prefixAction int

const (
	prefixNone prefixAction = iota
	prefixGrouping
	prefixNumber
)

type infixAction int

const (
	infixNone infixAction = iota
	infixBinary
)

// ParseRule says what a token does at the start of an expression, what it
// does after a left operand, and how tightly it binds in that position.
type ParseRule struct {
	prefix     prefixAction
	infix      infixAction
	Precedence Precedence
}

// HasPrefix reports whether the token can start an expression.
func (r ParseRule) HasPrefix() bool { return r.prefix != prefixNone }

// HasInfix reports whether the token can follow a left operand.
func (r ParseRule) HasInfix() bool { return r.infix != infixNone }

// RuleFor returns the parse rule of a token type. Every type of the closed
// token set has a case; anything else gets the empty rule.
func RuleFor(t token.TokenType) ParseRule {
	switch t {
	case token.LPAREN:
		return ParseRule{prefixGrouping, infixNone, PrecNone}
	case token.INT, token.FLOAT, token.COMPLEX:
		return ParseRule{prefixNumber, infixNone, PrecNone}

	case token.PLUS, token.MINUS:
		return ParseRule{prefixNone, infixBinary, PrecTerm}
	case token.ASTERISK, token.SLASH, token.SLASH_SLASH:
		return ParseRule{prefixNone, infixBinary, PrecFactor}
	case token.POWER:
		return ParseRule{prefixNone, infixBinary, PrecExponent}
	case token.LT, token.LTE, token.GT, token.GTE:
		return ParseRule{prefixNone, infixBinary, PrecComparison}
	case token.EQ, token.NOT_EQ:
		return ParseRule{prefixNone, infixBinary, PrecEquality}

	case token.RPAREN, token.POUND, token.ASSIGN:
		return ParseRule{}
	case token.ASSERT, token.CLASS, token.ELIF, token.ELSE, token.FOR,
		token.IF, token.IN, token.NOT, token.WHILE:
		return ParseRule{}
	case token.IDENT, token.EOF:
		return ParseRule{}
	}

	return ParseRule{}
}

// binaryOp maps a binary operator token to the instruction it compiles to.
func binaryOp(t token.TokenType) (opcode.Opcode, bool) {
	switch t {
	case token.PLUS:
		return opcode.OpAdd, true
	case token.MINUS:
		return opcode.OpSubtract, true
	case token.ASTERISK:
		return opcode.OpMultiply, true
	case token.SLASH:
		return opcode.OpDivide, true
	case token.SLASH_SLASH:
		return opcode.OpIntDivide, true
	case token.POWER:
		return opcode.OpExponent, true
	case token.GT:
		return opcode.OpGreater, true
	case token.GTE:
		return opcode.OpGreaterEqual, true
	case token.LT:
		return opcode.OpLess, true
	case token.LTE:
		return opcode.OpLessEqual, true
	case token.EQ:
		return opcode.OpValueEqual, true
	case token.NOT_EQ:
		return opcode.OpNotValueEqual, true
	}
	return 0, false
}
