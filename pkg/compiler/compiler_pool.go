package compiler

import (
	"sync"
)

// Compiler pool for reusing compiler instances across compilations
var compilerPool = sync.Pool{
	New: func() interface{} {
		return New()
	},
}

// Get retrieves a compiler from the pool
func Get() *Compiler {
	return compilerPool.Get().(*Compiler)
}

// Put returns a compiler to the pool after use. The function it produced
// stays valid; only the scratch state is recycled.
func Put(c *Compiler) {
	c.source = nil
	c.tokens = nil
	c.current = 0
	c.function = nil
	c.functionType = TypeScript
	c.lastPop = -1
	c.resetLocals()

	compilerPool.Put(c)
}
