package chunk

import (
	"fmt"

	"ember/pkg/heap"
)

// ScriptName names the function compiled from a whole program.
const ScriptName = "<script>"

// Function is a compiled callable. It owns its chunk.
type Function struct {
	Arity int
	Chunk *Chunk
	Name  string
}

func NewFunction(name string, arity int) *Function {
	return &Function{Arity: arity, Chunk: New(), Name: name}
}

func (f *Function) Kind() heap.ObjectKind { return heap.KindFunction }

func (f *Function) Inspect() string {
	if f.Name == "" || f.Name == ScriptName {
		return ScriptName
	}
	return fmt.Sprintf("<fn %s/%d>", f.Name, f.Arity)
}
