// Package trie holds the character tries used for longest-match
// recognition of reserved words and operators.
package trie

import (
	"sync"

	"ember/pkg/token"
)

// Node is one trie position. A node is terminal when a lexeme ends at it.
type Node struct {
	kind     token.TokenType
	terminal bool
	children map[rune]*Node
}

func newNode() *Node {
	return &Node{children: make(map[rune]*Node)}
}

// Build constructs an immutable trie from a lexeme table.
func Build(lexemes map[string]token.TokenType) *Node {
	root := newNode()
	for lexeme, kind := range lexemes {
		root.insert(lexeme, kind)
	}
	return root
}

func (n *Node) insert(lexeme string, kind token.TokenType) {
	current := n
	for _, ch := range lexeme {
		child, ok := current.children[ch]
		if !ok {
			child = newNode()
			current.children[ch] = child
		}
		current = child
	}
	current.kind = kind
	current.terminal = true
}

// Child returns the node reached from n by ch.
func (n *Node) Child(ch rune) (*Node, bool) {
	child, ok := n.children[ch]
	return child, ok
}

// Terminal reports the token type ending at n, if any.
func (n *Node) Terminal() (token.TokenType, bool) {
	return n.kind, n.terminal
}

// LongestMatch walks src from pos while children exist and returns the
// deepest terminal seen along the way and its length in runes.
func (n *Node) LongestMatch(src []rune, pos int) (token.TokenType, int, bool) {
	var (
		kind   token.TokenType
		length int
		found  bool
	)

	current := n
	for i := pos; i < len(src); i++ {
		child, ok := current.children[src[i]]
		if !ok {
			break
		}
		current = child
		if current.terminal {
			kind = current.kind
			length = i - pos + 1
			found = true
		}
	}

	return kind, length, found
}

var (
	keywordsOnce  sync.Once
	keywordsTrie  *Node
	operatorsOnce sync.Once
	operatorsTrie *Node
)

// Keywords returns the shared reserved-word trie.
func Keywords() *Node {
	keywordsOnce.Do(func() {
		keywordsTrie = Build(token.Keywords())
	})
	return keywordsTrie
}

// Operators returns the shared operator trie.
func Operators() *Node {
	operatorsOnce.Do(func() {
		operatorsTrie = Build(token.Operators())
	})
	return operatorsTrie
}
