package compiler

import (
	"fmt"

	"ember/pkg/opcode"
	"ember/pkg/token"
)

type FunctionType int

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

func (t FunctionType) String() string {
	switch t {
	case TypeScript:
		return "script"
	case TypeFunction:
		return "function"
	case TypeMethod:
		return "method"
	case TypeInitializer:
		return "initializer"
	}
	return fmt.Sprintf("FunctionType(%d)", int(t))
}

// maxLocals bounds the slots addressable by a one-byte operand.
const maxLocals = 256

// Local is a block-scoped variable living in a stack slot of the current
// frame. Depth -1 marks a declared but uninitialized local.
type Local struct {
	Name     token.Token
	Depth    int
	Captured bool
}

// resetLocals leaves only slot zero, which holds the callee.
func (c *Compiler) resetLocals() {
	c.locals = append(c.locals[:0], Local{Depth: 0})
	c.scopeDepth = 0
}

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope discards the locals declared in the closing block, emitting one
// Pop per slot.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 1 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		c.emit(opcode.OpPop)
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (c *Compiler) addLocal(name token.Token) error {
	if len(c.locals) >= maxLocals {
		return c.errorAt(name, "too many local variables in function")
	}

	text := name.Text(c.source)
	for i := len(c.locals) - 1; i > 0; i-- {
		local := c.locals[i]
		if local.Depth != -1 && local.Depth < c.scopeDepth {
			break
		}
		if local.Name.Text(c.source) == text {
			return c.errorAt(name, "already a variable with this name in this scope")
		}
	}

	c.locals = append(c.locals, Local{Name: name, Depth: -1})
	return nil
}

// markInitialized makes the newest local visible to name resolution.
func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 || len(c.locals) < 2 {
		return
	}
	c.locals[len(c.locals)-1].Depth = c.scopeDepth
}

// resolveLocal returns the slot of name, or -1 when it is not a local.
func (c *Compiler) resolveLocal(name token.Token) (int, error) {
	text := name.Text(c.source)
	for i := len(c.locals) - 1; i > 0; i-- {
		local := c.locals[i]
		if local.Name.Text(c.source) != text {
			continue
		}
		if local.Depth == -1 {
			return -1, c.errorAt(name, "can't read local variable in its own initializer")
		}
		return i, nil
	}
	return -1, nil
}
