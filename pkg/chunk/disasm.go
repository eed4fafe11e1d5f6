package chunk

import (
	"fmt"
	"io"
	"strings"

	"ember/pkg/opcode"
)

// Disassemble writes a readable listing of fn to w.
func Disassemble(w io.Writer, fn *Function) error {
	if fn == nil || fn.Chunk == nil {
		return fmt.Errorf("nil function")
	}
	c := fn.Chunk

	fmt.Fprintf(w, "== %s (arity=%d) ==\n", fn.Inspect(), fn.Arity)
	fmt.Fprintf(w, "Constants (%d):\n", len(c.Constants))
	for i, v := range c.Constants {
		fmt.Fprintf(w, "  [%d] %s %s\n", i, v.Kind(), v.Inspect())
	}

	fmt.Fprintf(w, "Instructions (%d units):\n", len(c.Code))
	for i := 0; i < len(c.Code); {
		line, err := c.DisassembleInstruction(i)
		if err != nil {
			fmt.Fprintf(w, "%04d ERROR: %s\n", i, err)
			i++
			continue
		}
		fmt.Fprintln(w, line)

		def, _ := opcode.Lookup(c.Code[i].Byte)
		i += 1 + def.Width()
	}

	return nil
}

// DisassembleInstruction formats the instruction starting at offset.
func (c *Chunk) DisassembleInstruction(offset int) (string, error) {
	u := c.Code[offset]
	if u.Kind != opcode.UnitOp {
		return "", fmt.Errorf("%s where an opcode was expected", u)
	}
	def, err := opcode.Lookup(u.Byte)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	if offset > 0 && c.Line(offset) == c.Line(offset-1) {
		fmt.Fprintf(&out, "%04d    | %s", offset, def.Name)
	} else {
		fmt.Fprintf(&out, "%04d %4d %s", offset, c.Line(offset), def.Name)
	}

	if offset+1+def.Width() > len(c.Code) {
		return "", fmt.Errorf("%s is missing its operand", def.Name)
	}
	operands, _ := opcode.ReadOperands(def, c.Code[offset+1:])
	for k, operand := range operands {
		fmt.Fprintf(&out, " %d", operand)
		if def.OperandKinds[k] == opcode.UnitConstantIndex && operand < len(c.Constants) {
			fmt.Fprintf(&out, " (%s)", c.Constants[operand].Inspect())
		}
	}

	return out.String(), nil
}
