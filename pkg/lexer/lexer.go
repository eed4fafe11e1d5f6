package lexer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ember/pkg/token"
	"ember/pkg/trie"
	"ember/pkg/value"
)

// Error is a fatal scanning or literal decoding failure.
type Error struct {
	Line   int
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[line %d] lexical error at offset %d: %s", e.Line, e.Offset, e.Msg)
}

type Lexer struct {
	input    []rune
	position int // current position in input (points to current char)
	line     int
}

func New(input string) *Lexer {
	return &Lexer{
		input: []rune(input),
		line:  1,
	}
}

// Source returns the scanned text. Token offsets index into it.
func (l *Lexer) Source() []rune {
	return l.input
}

func (l *Lexer) peekChar(distance int) rune {
	if l.position+distance >= len(l.input) {
		return 0
	}
	return l.input[l.position+distance]
}

// NextToken scans one token. Once the input is exhausted it keeps returning
// EOF.
func (l *Lexer) NextToken() (token.Token, error) {
	l.skipWhitespace()

	if l.position >= len(l.input) {
		return token.Token{Type: token.EOF, Start: len(l.input), Line: l.line}, nil
	}

	ch := l.input[l.position]
	switch {
	case isDigit(ch):
		return l.readNumber(), nil
	case isLetter(ch):
		return l.readWord(), nil
	default:
		return l.readOperator()
	}
}

func (l *Lexer) skipWhitespace() {
	for l.position < len(l.input) {
		switch l.input[l.position] {
		case '\n':
			l.line++
		case ' ', '\t', '\r':
		default:
			return
		}
		l.position++
	}
}

// Tokenize scans the whole input. The result always ends with an EOF token.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	tokens := make([]token.Token, 0, len(l.input)/2+1)
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

// Tokenize scans input in one call.
func Tokenize(input string) ([]token.Token, error) {
	return New(input).Tokenize()
}

// readNumber scans digits, an optional fraction, an optional exponent and an
// optional complex suffix. The reported length counts one lookahead
// character past the lexeme.
func (l *Lexer) readNumber() token.Token {
	start := l.position
	n := 0
	isFloat, isComplex := false, false

	for isDigit(l.peekChar(n)) || l.peekChar(n) == '_' {
		n++
	}

	if l.peekChar(n) == '.' {
		isFloat = true
		n++
		for isDigit(l.peekChar(n)) || l.peekChar(n) == '_' {
			n++
		}
	}

	if c := l.peekChar(n); c == 'e' || c == 'E' {
		n++
		if c := l.peekChar(n); c == '+' || c == '-' {
			n++
		}
		for isDigit(l.peekChar(n)) || l.peekChar(n) == '_' {
			n++
		}
	}

	if c := l.peekChar(n); c == 'j' || c == 'J' {
		isComplex = true
		n++
	}

	typ := token.TokenType(token.INT)
	if isComplex {
		typ = token.COMPLEX
	} else if isFloat {
		typ = token.FLOAT
	}

	l.position += n
	return token.Token{Type: typ, Start: start, Length: n + 1, Line: l.line}
}

// readWord takes a keyword only when it spans the whole identifier run, so
// "format" stays one identifier.
func (l *Lexer) readWord() token.Token {
	start := l.position
	n := 1
	for isLetter(l.peekChar(n)) || isDigit(l.peekChar(n)) {
		n++
	}

	typ := token.TokenType(token.IDENT)
	if kw, length, ok := trie.Keywords().LongestMatch(l.input, start); ok && length >= n {
		typ = kw
		n = length
	}

	l.position += n
	return token.Token{Type: typ, Start: start, Length: n, Line: l.line}
}

func (l *Lexer) readOperator() (token.Token, error) {
	start := l.position
	op, length, ok := trie.Operators().LongestMatch(l.input, start)
	if !ok {
		return token.Token{}, &Error{
			Line:   l.line,
			Offset: start,
			Msg:    fmt.Sprintf("unexpected character %q", l.input[start]),
		}
	}

	l.position += length
	return token.Token{Type: op, Start: start, Length: length, Line: l.line}, nil
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// ParseNumber decodes the lexeme of a number token into a Value.
// Underscore separators are dropped before decoding.
func ParseNumber(tok token.Token, text string) (value.Value, error) {
	fail := func(format string, args ...interface{}) (value.Value, error) {
		return value.Value{}, &Error{
			Line:   tok.Line,
			Offset: tok.Start,
			Msg:    fmt.Sprintf("malformed numeric literal %q: ", text) + fmt.Sprintf(format, args...),
		}
	}

	clean := strings.ReplaceAll(text, "_", "")
	if clean == "" {
		return fail("empty")
	}

	switch tok.Type {
	case token.INT:
		if !strings.ContainsAny(clean, "eE") {
			n, err := strconv.ParseInt(clean, 10, 32)
			if err != nil {
				return fail("%v", unwrapNumError(err))
			}
			return value.Integer(int32(n)), nil
		}
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return fail("%v", unwrapNumError(err))
		}
		if f != math.Trunc(f) {
			return fail("exponent does not yield an integer")
		}
		if f < math.MinInt32 || f > math.MaxInt32 {
			return fail("value out of range")
		}
		return value.Integer(int32(f)), nil

	case token.FLOAT:
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return fail("%v", unwrapNumError(err))
		}
		return value.Float(f), nil

	case token.COMPLEX:
		im := strings.TrimRight(clean, "jJ")
		if im == "" {
			return fail("missing imaginary part")
		}
		f, err := strconv.ParseFloat(im, 64)
		if err != nil {
			return fail("%v", unwrapNumError(err))
		}
		return value.Complex(complex(0, f)), nil

	default:
		return fail("%s is not a number token", tok.Type)
	}
}

func unwrapNumError(err error) error {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err
	}
	return err
}
