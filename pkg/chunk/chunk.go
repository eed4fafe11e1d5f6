package chunk

import (
	"errors"
	"fmt"

	"ember/pkg/opcode"
	"ember/pkg/value"
)

// MaxConstants is the pool capacity addressable by a one-byte index.
const MaxConstants = 256

var ErrTooManyConstants = errors.New("too many constants in one chunk")

// Chunk is a compiled instruction stream with one line entry per unit and
// its constant pool.
type Chunk struct {
	Code      opcode.Instructions
	Lines     []int
	Constants []value.Value
}

func New() *Chunk {
	return &Chunk{
		Code:      make(opcode.Instructions, 0, 64),
		Lines:     make([]int, 0, 64),
		Constants: make([]value.Value, 0, 16),
	}
}

// Write appends units, recording line for each of them. It returns the
// position of the first unit.
func (c *Chunk) Write(ins opcode.Instructions, line int) int {
	pos := len(c.Code)
	c.Code = append(c.Code, ins...)
	for range ins {
		c.Lines = append(c.Lines, line)
	}
	return pos
}

// AddConstant appends v to the pool and returns its index.
func (c *Chunk) AddConstant(v value.Value) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, fmt.Errorf("%w (limit %d)", ErrTooManyConstants, MaxConstants)
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, nil
}

// Truncate drops every unit from pos on.
func (c *Chunk) Truncate(pos int) {
	c.Code = c.Code[:pos]
	c.Lines = c.Lines[:pos]
}

// Line returns the source line of the unit at pos, or 0 when unknown.
func (c *Chunk) Line(pos int) int {
	if pos < 0 || pos >= len(c.Lines) {
		return 0
	}
	return c.Lines[pos]
}

// Reset empties the chunk but keeps its capacity.
func (c *Chunk) Reset() {
	c.Code = c.Code[:0]
	c.Lines = c.Lines[:0]
	c.Constants = c.Constants[:0]
}

// Validate checks the structural invariants the VM relies on: parallel
// line table, operand kinds in operand positions, constant indexes inside
// the pool.
func (c *Chunk) Validate() error {
	if len(c.Lines) != len(c.Code) {
		return fmt.Errorf("line table has %d entries for %d units", len(c.Lines), len(c.Code))
	}
	if len(c.Constants) > MaxConstants {
		return fmt.Errorf("%w (%d)", ErrTooManyConstants, len(c.Constants))
	}

	for i := 0; i < len(c.Code); {
		u := c.Code[i]
		if u.Kind != opcode.UnitOp {
			return fmt.Errorf("unit %d: expected opcode, got %s", i, u)
		}
		def, err := opcode.Lookup(u.Byte)
		if err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		for k, kind := range def.OperandKinds {
			pos := i + 1 + k
			if pos >= len(c.Code) {
				return fmt.Errorf("unit %d: %s is missing its operand", i, def.Name)
			}
			if c.Code[pos].Kind != kind {
				return fmt.Errorf("unit %d: expected %s, got %s", pos, kind, c.Code[pos])
			}
			if kind == opcode.UnitConstantIndex && int(c.Code[pos].Byte) >= len(c.Constants) {
				return fmt.Errorf("unit %d: constant index %d out of range (%d constants)",
					pos, c.Code[pos].Byte, len(c.Constants))
			}
		}
		i += 1 + def.Width()
	}

	return nil
}
