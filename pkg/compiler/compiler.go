package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"ember/pkg/chunk"
	"ember/pkg/lexer"
	"ember/pkg/opcode"
	"ember/pkg/token"
	"ember/pkg/value"
)

var log = commonlog.GetLogger("ember.compiler")

// Error is a compile failure at a token.
type Error struct {
	Line   int
	Lexeme string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Lexeme == "" {
		return fmt.Sprintf("[line %d] Error at end: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("[line %d] Error at '%s': %s", e.Line, e.Lexeme, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Compiler turns a token stream straight into bytecode, one token of
// lookahead, no syntax tree.
type Compiler struct {
	source  []rune
	tokens  []token.Token
	current int

	function     *chunk.Function
	functionType FunctionType
	locals       []Local
	scopeDepth   int

	// position of the Pop ending the latest expression statement, or -1
	lastPop int
}

func New() *Compiler {
	c := &Compiler{
		locals:  make([]Local, 0, 8),
		lastPop: -1,
	}
	c.resetLocals()
	return c
}

// Compile scans and compiles a whole program into the top-level function.
func (c *Compiler) Compile(input string) (*chunk.Function, error) {
	l := lexer.New(input)
	tokens, err := l.Tokenize()
	if err != nil {
		return nil, err
	}
	return c.CompileTokens(l.Source(), tokens)
}

// CompileTokens compiles tokens scanned from src. A missing trailing EOF is
// supplied.
func (c *Compiler) CompileTokens(src []rune, tokens []token.Token) (*chunk.Function, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens[:len(tokens):len(tokens)], token.Token{Type: token.EOF, Start: len(src), Line: line})
	}

	c.source = src
	c.tokens = tokens
	c.current = 0
	c.function = chunk.NewFunction(chunk.ScriptName, 0)
	c.functionType = TypeScript
	c.lastPop = -1
	c.resetLocals()

	for !c.check(token.EOF) {
		if err := c.statement(); err != nil {
			return nil, err
		}
	}

	fn := c.finish()
	if log.AllowLevel(commonlog.Debug) {
		log.Debugf("compiled %s: %d units, %d constants",
			fn.Inspect(), len(fn.Chunk.Code), len(fn.Chunk.Constants))
	}
	return fn, nil
}

// finish makes the value of a trailing expression statement the result of
// the script, or True when the program does not end in one.
func (c *Compiler) finish() *chunk.Function {
	line := c.peek().Line
	if c.lastPop >= 0 && c.lastPop == len(c.currentChunk().Code)-1 {
		c.currentChunk().Truncate(c.lastPop)
	} else {
		c.emitAt(line, opcode.OpTrue)
	}
	c.emitAt(line, opcode.OpReturn)

	fn := c.function
	c.function = nil
	return fn
}

func (c *Compiler) currentChunk() *chunk.Chunk {
	return c.function.Chunk
}

// Token cursor

func (c *Compiler) peek() token.Token {
	if c.current >= len(c.tokens) {
		return c.tokens[len(c.tokens)-1]
	}
	return c.tokens[c.current]
}

func (c *Compiler) previous() token.Token {
	if c.current == 0 {
		return c.tokens[0]
	}
	if c.current > len(c.tokens) {
		return c.tokens[len(c.tokens)-1]
	}
	return c.tokens[c.current-1]
}

func (c *Compiler) advance() {
	if c.current < len(c.tokens) {
		c.current++
	}
}

func (c *Compiler) check(t token.TokenType) bool {
	return c.peek().Type == t
}

func (c *Compiler) match(t token.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.TokenType, msg string) error {
	if c.match(t) {
		return nil
	}
	return c.errorAt(c.peek(), msg)
}

func (c *Compiler) errorAt(tok token.Token, msg string) *Error {
	e := &Error{Line: tok.Line, Msg: msg}
	if tok.Type != token.EOF {
		e.Lexeme = tok.Text(c.source)
	}
	return e
}

// Statements

func (c *Compiler) statement() error {
	if c.match(token.ASSERT) {
		return c.assertStatement()
	}
	return c.expressionStatement()
}

func (c *Compiler) assertStatement() error {
	if err := c.expression(); err != nil {
		return err
	}
	c.emit(opcode.OpAssert)
	c.lastPop = -1
	return nil
}

func (c *Compiler) expressionStatement() error {
	if err := c.expression(); err != nil {
		return err
	}
	c.lastPop = c.emit(opcode.OpPop)
	return nil
}

// Expressions

func (c *Compiler) expression() error {
	return c.parsePrecedence(PrecAssignment)
}

// parsePrecedence compiles an expression whose operators bind at least as
// tightly as prec.
func (c *Compiler) parsePrecedence(prec Precedence) error {
	c.advance()
	rule := RuleFor(c.previous().Type)
	if !rule.HasPrefix() {
		return c.errorAt(c.previous(), "unexpected token in expression position")
	}
	if err := c.runPrefix(rule.prefix); err != nil {
		return err
	}

	for prec <= RuleFor(c.peek().Type).Precedence {
		c.advance()
		infix := RuleFor(c.previous().Type)
		if !infix.HasInfix() {
			return c.errorAt(c.previous(), "unexpected token after expression")
		}
		if err := c.runInfix(infix.infix); err != nil {
			return err
		}
	}

	if prec <= PrecAssignment && c.check(token.ASSIGN) {
		return c.errorAt(c.peek(), "invalid assignment target")
	}

	return nil
}

func (c *Compiler) runPrefix(action prefixAction) error {
	switch action {
	case prefixGrouping:
		return c.grouping()
	case prefixNumber:
		return c.number()
	}
	return c.errorAt(c.previous(), "unexpected token in expression position")
}

func (c *Compiler) runInfix(action infixAction) error {
	switch action {
	case infixBinary:
		return c.binary()
	}
	return c.errorAt(c.previous(), "unexpected token after expression")
}

func (c *Compiler) grouping() error {
	if err := c.expression(); err != nil {
		return err
	}
	return c.consume(token.RPAREN, "expect ')' after expression")
}

func (c *Compiler) number() error {
	tok := c.previous()
	v, err := lexer.ParseNumber(tok, tok.Text(c.source))
	if err != nil {
		return err
	}
	return c.emitConstant(v)
}

// binary compiles the right operand one level tighter than the operator,
// so `2 ** 3 ** 2` groups as `(2 ** 3) ** 2`.
func (c *Compiler) binary() error {
	operator := c.previous()
	rule := RuleFor(operator.Type)

	if err := c.parsePrecedence(rule.Precedence.next()); err != nil {
		return err
	}

	op, ok := binaryOp(operator.Type)
	if !ok {
		return c.errorAt(operator, "unknown binary operator")
	}
	c.emitAt(operator.Line, op)
	return nil
}

// Emission

func (c *Compiler) emit(op opcode.Opcode, operands ...int) int {
	return c.emitAt(c.previous().Line, op, operands...)
}

func (c *Compiler) emitAt(line int, op opcode.Opcode, operands ...int) int {
	return c.currentChunk().Write(opcode.Make(op, operands...), line)
}

func (c *Compiler) emitConstant(v value.Value) error {
	idx, err := c.currentChunk().AddConstant(v)
	if err != nil {
		e := c.errorAt(c.previous(), "too many constants in one chunk")
		e.Err = err
		return e
	}
	c.emit(opcode.OpConstant, idx)
	return nil
}
