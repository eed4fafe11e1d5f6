package trie

import (
	"testing"

	"ember/pkg/token"
)

func TestLongestMatch(t *testing.T) {
	tests := []struct {
		input          string
		root           *Node
		expectedType   token.TokenType
		expectedLength int
		expectedFound  bool
	}{
		{"**2", Operators(), token.POWER, 2, true},
		{"*2", Operators(), token.ASTERISK, 1, true},
		{"//3", Operators(), token.SLASH_SLASH, 2, true},
		{"<=", Operators(), token.LTE, 2, true},
		{"==", Operators(), token.EQ, 2, true},
		{"=<", Operators(), token.ASSIGN, 1, true},
		{"!x", Operators(), "", 0, false},
		{"!=", Operators(), token.NOT_EQ, 2, true},
		{"assert x", Keywords(), token.ASSERT, 6, true},
		{"elif", Keywords(), token.ELIF, 4, true},
		{"els", Keywords(), "", 0, false},
		{"format", Keywords(), token.FOR, 3, true},
		{"x", Keywords(), "", 0, false},
	}

	for i, tt := range tests {
		kind, length, found := tt.root.LongestMatch([]rune(tt.input), 0)
		if found != tt.expectedFound {
			t.Fatalf("tests[%d] - found wrong. expected=%t, got=%t", i, tt.expectedFound, found)
		}
		if kind != tt.expectedType {
			t.Fatalf("tests[%d] - type wrong. expected=%q, got=%q", i, tt.expectedType, kind)
		}
		if length != tt.expectedLength {
			t.Fatalf("tests[%d] - length wrong. expected=%d, got=%d", i, tt.expectedLength, length)
		}
	}
}

func TestLongestMatchOffset(t *testing.T) {
	src := []rune("1 >= 2")
	kind, length, found := Operators().LongestMatch(src, 2)
	if !found || kind != token.GTE || length != 2 {
		t.Fatalf("expected >= of length 2, got %q %d %t", kind, length, found)
	}
}

func TestSharedTries(t *testing.T) {
	if Keywords() != Keywords() {
		t.Fatalf("keyword trie rebuilt")
	}
	if Operators() != Operators() {
		t.Fatalf("operator trie rebuilt")
	}

	node, ok := Keywords().Child('w')
	if !ok {
		t.Fatalf("missing child 'w'")
	}
	if _, terminal := node.Terminal(); terminal {
		t.Fatalf("'w' should not be terminal")
	}
}
