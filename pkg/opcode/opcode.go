package opcode

import (
	"fmt"
)

type Opcode byte

// UnitKind tags what a bytecode unit holds.
type UnitKind uint8

const (
	UnitOp UnitKind = iota
	UnitConstantIndex
	UnitJumpDistance
)

func (k UnitKind) String() string {
	switch k {
	case UnitOp:
		return "op"
	case UnitConstantIndex:
		return "constant-index"
	case UnitJumpDistance:
		return "jump-distance"
	default:
		return fmt.Sprintf("UnitKind(%d)", k)
	}
}

// Unit is one cell of the instruction stream: an opcode or a one-byte
// operand.
type Unit struct {
	Kind UnitKind
	Byte byte
}

func (u Unit) String() string {
	if u.Kind == UnitOp {
		return Opcode(u.Byte).String()
	}
	return fmt.Sprintf("%s(%d)", u.Kind, u.Byte)
}

type Instructions []Unit

const (
	// OpConstant pushes a constant from the constant pool
	OpConstant Opcode = iota
	// OpTrue pushes true onto the stack
	OpTrue
	// OpFalse pushes false onto the stack
	OpFalse
	// OpAdd adds the top two elements of the stack
	OpAdd
	// OpSubtract subtracts the top two elements of the stack
	OpSubtract
	// OpMultiply multiplies the top two elements of the stack
	OpMultiply
	// OpDivide divides the top two elements of the stack
	OpDivide
	// OpIntDivide divides and truncates toward zero
	OpIntDivide
	// OpExponent raises the left operand to the right
	OpExponent
	// OpValueEqual compares the top two elements for equality
	OpValueEqual
	// OpNotValueEqual compares the top two elements for inequality
	OpNotValueEqual
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual
	// OpNot negates the boolean on top of the stack
	OpNot
	// OpNegative negates the number on top of the stack
	OpNegative
	OpNoop
	// OpPop pops the top element of the stack
	OpPop
	// OpReturn returns from the current frame
	OpReturn
	// OpAssert pops a boolean and fails when it is false
	OpAssert
)

type Definition struct {
	Name          string
	OperandWidths []int
	OperandKinds  []UnitKind
}

var definitions = map[Opcode]*Definition{
	OpConstant:      {"OpConstant", []int{1}, []UnitKind{UnitConstantIndex}},
	OpTrue:          {"OpTrue", []int{}, nil},
	OpFalse:         {"OpFalse", []int{}, nil},
	OpAdd:           {"OpAdd", []int{}, nil},
	OpSubtract:      {"OpSubtract", []int{}, nil},
	OpMultiply:      {"OpMultiply", []int{}, nil},
	OpDivide:        {"OpDivide", []int{}, nil},
	OpIntDivide:     {"OpIntDivide", []int{}, nil},
	OpExponent:      {"OpExponent", []int{}, nil},
	OpValueEqual:    {"OpValueEqual", []int{}, nil},
	OpNotValueEqual: {"OpNotValueEqual", []int{}, nil},
	OpGreater:       {"OpGreater", []int{}, nil},
	OpGreaterEqual:  {"OpGreaterEqual", []int{}, nil},
	OpLess:          {"OpLess", []int{}, nil},
	OpLessEqual:     {"OpLessEqual", []int{}, nil},
	OpNot:           {"OpNot", []int{}, nil},
	OpNegative:      {"OpNegative", []int{}, nil},
	OpNoop:          {"OpNoop", []int{}, nil},
	OpPop:           {"OpPop", []int{}, nil},
	OpReturn:        {"OpReturn", []int{}, nil},
	OpAssert:        {"OpAssert", []int{}, nil},
}

func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Width returns the number of operand units following op.
func (def *Definition) Width() int {
	width := 0
	for _, w := range def.OperandWidths {
		width += w
	}
	return width
}

func Make(op Opcode, operands ...int) Instructions {
	def, ok := definitions[op]
	if !ok {
		return Instructions{}
	}

	instruction := make(Instructions, 1+def.Width())
	instruction[0] = Unit{Kind: UnitOp, Byte: byte(op)}

	offset := 1
	for i, o := range operands {
		if i >= len(def.OperandWidths) {
			break
		}
		instruction[offset] = Unit{Kind: def.OperandKinds[i], Byte: byte(o)}
		offset += def.OperandWidths[i]
	}

	return instruction
}

func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		if offset < len(ins) {
			operands[i] = int(ReadUint8(ins[offset:]))
		}
		offset += width
	}

	return operands, offset
}

func ReadUint8(ins Instructions) uint8 {
	return ins[0].Byte
}

func (ins Opcode) String() string {
	def, ok := definitions[ins]
	if !ok {
		return fmt.Sprintf("Opcode(%d)", ins)
	}
	return def.Name
}
