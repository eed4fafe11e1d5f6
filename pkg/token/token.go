package token

import "fmt"

type TokenType string

const (
	// Special
	EOF = "EOF"

	// Identifiers & Literals
	IDENT   = "IDENT"
	INT     = "INT"
	FLOAT   = "FLOAT"
	COMPLEX = "COMPLEX"

	// Operators
	LPAREN      = "("
	RPAREN      = ")"
	POUND       = "#"
	PLUS        = "+"
	MINUS       = "-"
	ASTERISK    = "*"
	POWER       = "**"
	SLASH       = "/"
	SLASH_SLASH = "//"
	ASSIGN      = "="
	EQ          = "=="
	NOT_EQ      = "!="
	LT          = "<"
	LTE         = "<="
	GT          = ">"
	GTE         = ">="

	// Keywords
	ASSERT = "ASSERT"
	CLASS  = "CLASS"
	ELIF   = "ELIF"
	ELSE   = "ELSE"
	FOR    = "FOR"
	IF     = "IF"
	IN     = "IN"
	NOT    = "NOT"
	WHILE  = "WHILE"
)

// Token is a scanned lexeme. Start and Length count runes of the source.
// For number tokens Length also counts the lookahead character that ended
// the literal, so the lexeme itself is Length-1 runes long.
type Token struct {
	Type   TokenType
	Start  int
	Length int
	Line   int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %d+%d, line %d)", t.Type, t.Start, t.Length, t.Line)
}

// Text returns the lexeme of t within src.
func (t Token) Text(src []rune) string {
	end := t.Start + t.Length
	if t.Type.IsNumber() {
		end--
	}
	if end > len(src) {
		end = len(src)
	}
	if t.Start >= end {
		return ""
	}
	return string(src[t.Start:end])
}

var keywords = map[string]TokenType{
	"assert": ASSERT,
	"class":  CLASS,
	"elif":   ELIF,
	"else":   ELSE,
	"for":    FOR,
	"if":     IF,
	"in":     IN,
	"not":    NOT,
	"while":  WHILE,
}

var operators = map[string]TokenType{
	"(":  LPAREN,
	")":  RPAREN,
	"#":  POUND,
	"+":  PLUS,
	"-":  MINUS,
	"*":  ASTERISK,
	"**": POWER,
	"/":  SLASH,
	"//": SLASH_SLASH,
	"=":  ASSIGN,
	"==": EQ,
	"!=": NOT_EQ,
	"<":  LT,
	"<=": LTE,
	">":  GT,
	">=": GTE,
}

// Keywords returns a copy of the reserved word table.
func Keywords() map[string]TokenType {
	return copyTable(keywords)
}

// Operators returns a copy of the operator lexeme table.
func Operators() map[string]TokenType {
	return copyTable(operators)
}

func copyTable(src map[string]TokenType) map[string]TokenType {
	out := make(map[string]TokenType, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func (t TokenType) IsNumber() bool {
	return t == INT || t == FLOAT || t == COMPLEX
}

func (t TokenType) IsKeyword() bool {
	for _, kw := range keywords {
		if kw == t {
			return true
		}
	}
	return false
}

func (t TokenType) IsOperator() bool {
	_, ok := operators[string(t)]
	return ok
}
