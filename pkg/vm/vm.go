package vm

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"ember/pkg/chunk"
	"ember/pkg/heap"
	"ember/pkg/opcode"
	"ember/pkg/value"
)

var log = commonlog.GetLogger("ember.vm")

const DefaultStackSize = 1024 // operand slots
const DefaultMaxFrames = 64   // nested calls

var (
	ErrTypeMismatch       = value.ErrTypeMismatch
	ErrDivisionByZero     = value.ErrDivisionByZero
	ErrUnsupportedOperand = value.ErrUnsupportedOperand

	ErrAssertion         = errors.New("assertion failed")
	ErrArity             = errors.New("wrong number of arguments")
	ErrStackOverflow     = errors.New("stack overflow")
	ErrMalformedBytecode = errors.New("malformed bytecode")
	ErrNotCallable       = errors.New("can only call functions")
)

// RuntimeError is a failure while executing bytecode. Line is the source
// line of the failing instruction, 0 when the failure happened outside any
// instruction.
type RuntimeError struct {
	Line     int
	Function string
	Err      error
}

func (e *RuntimeError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("runtime error: %v", e.Err)
	}
	return fmt.Sprintf("[line %d] in %s: %v", e.Line, e.Function, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

type Options struct {
	StackSize int
	MaxFrames int
	// Trace logs every dispatched instruction at debug level.
	Trace bool
}

func DefaultOptions() Options {
	return Options{StackSize: DefaultStackSize, MaxFrames: DefaultMaxFrames}
}

// Frame represents a call frame
type Frame struct {
	fn       *chunk.Function
	ip       int // next unit to fetch
	slotBase int // stack index of the callee; arguments follow it
}

type VM struct {
	opts Options

	stack  []value.Value // top of stack is stack[len(stack)-1]
	frames []Frame

	globals map[string]value.Value
	strings map[string]string
	heap    *heap.Heap
}

func New(opts Options) *VM {
	if opts.StackSize <= 0 {
		opts.StackSize = DefaultStackSize
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = DefaultMaxFrames
	}

	return &VM{
		opts:    opts,
		stack:   make([]value.Value, 0, opts.StackSize),
		frames:  make([]Frame, 0, opts.MaxFrames),
		globals: make(map[string]value.Value),
		strings: make(map[string]string),
		heap:    heap.New(),
	}
}

// Interpret runs a compiled script to completion and returns its result.
func (vm *VM) Interpret(fn *chunk.Function) (value.Value, error) {
	return vm.Invoke(fn)
}

// Invoke calls fn with args and runs until it returns. The callee is
// registered on the heap for the duration of the run only.
func (vm *VM) Invoke(fn *chunk.Function, args ...value.Value) (value.Value, error) {
	if fn == nil || fn.Chunk == nil {
		return value.Value{}, &RuntimeError{Err: fmt.Errorf("%w: nil function", ErrNotCallable)}
	}

	handle := vm.heap.Alloc(fn)
	defer vm.heap.Free(handle)

	callee := value.Object(handle)
	if err := vm.push(callee); err != nil {
		vm.resetStack()
		return value.Value{}, &RuntimeError{Err: err}
	}
	for _, arg := range args {
		if err := vm.push(arg); err != nil {
			vm.resetStack()
			return value.Value{}, &RuntimeError{Err: err}
		}
	}

	if err := vm.callValue(callee, len(args)); err != nil {
		vm.resetStack()
		return value.Value{}, &RuntimeError{Err: err}
	}

	result, err := vm.run()
	if err != nil {
		vm.resetStack()
		return value.Value{}, err
	}
	return result, nil
}

// callValue resolves the callee object sitting below numArgs arguments.
func (vm *VM) callValue(callee value.Value, numArgs int) error {
	if callee.Kind() != value.KindObject {
		return fmt.Errorf("%w: got %s", ErrNotCallable, callee.Kind())
	}
	obj, ok := vm.heap.Get(callee.AsHandle())
	if !ok {
		return fmt.Errorf("%w: stale object handle", ErrNotCallable)
	}
	fn, ok := obj.(*chunk.Function)
	if !ok {
		return fmt.Errorf("%w: got %s", ErrNotCallable, obj.Kind())
	}
	return vm.call(fn, numArgs)
}

// call pushes a frame for fn. The callee and its numArgs arguments are
// already on the stack.
func (vm *VM) call(fn *chunk.Function, numArgs int) error {
	if numArgs != fn.Arity {
		return fmt.Errorf("%w: %s expected %d but got %d", ErrArity, fn.Inspect(), fn.Arity, numArgs)
	}
	if len(vm.frames) >= vm.opts.MaxFrames {
		return fmt.Errorf("%w: more than %d nested calls", ErrStackOverflow, vm.opts.MaxFrames)
	}

	vm.frames = append(vm.frames, Frame{
		fn:       fn,
		ip:       0,
		slotBase: len(vm.stack) - numArgs - 1,
	})
	return nil
}

func (vm *VM) run() (value.Value, error) {
	frame := &vm.frames[len(vm.frames)-1]
	code := frame.fn.Chunk.Code
	constants := frame.fn.Chunk.Constants

	for {
		start := frame.ip
		if start >= len(code) {
			return vm.fail(frame, start, fmt.Errorf("%w: ran past the end of %s", ErrMalformedBytecode, frame.fn.Inspect()))
		}

		unit := code[start]
		if unit.Kind != opcode.UnitOp {
			return vm.fail(frame, start, fmt.Errorf("%w: %s where an opcode was expected", ErrMalformedBytecode, unit))
		}
		op := opcode.Opcode(unit.Byte)

		if vm.opts.Trace && log.AllowLevel(commonlog.Debug) {
			vm.trace(frame, start)
		}

		frame.ip++

		switch op {
		case opcode.OpConstant:
			if frame.ip >= len(code) || code[frame.ip].Kind != opcode.UnitConstantIndex {
				return vm.fail(frame, start, fmt.Errorf("%w: OpConstant without a constant index", ErrMalformedBytecode))
			}
			idx := int(code[frame.ip].Byte)
			frame.ip++
			if idx >= len(constants) {
				return vm.fail(frame, start, fmt.Errorf("%w: constant index %d out of range", ErrMalformedBytecode, idx))
			}
			if err := vm.push(constants[idx]); err != nil {
				return vm.fail(frame, start, err)
			}

		case opcode.OpTrue:
			if err := vm.push(value.TRUE); err != nil {
				return vm.fail(frame, start, err)
			}

		case opcode.OpFalse:
			if err := vm.push(value.FALSE); err != nil {
				return vm.fail(frame, start, err)
			}

		case opcode.OpAdd, opcode.OpSubtract, opcode.OpMultiply, opcode.OpDivide,
			opcode.OpIntDivide, opcode.OpExponent,
			opcode.OpValueEqual, opcode.OpNotValueEqual,
			opcode.OpGreater, opcode.OpGreaterEqual, opcode.OpLess, opcode.OpLessEqual:
			if err := vm.executeBinaryOperation(op); err != nil {
				return vm.fail(frame, start, err)
			}

		case opcode.OpNot, opcode.OpNegative:
			if err := vm.executeUnaryOperation(op); err != nil {
				return vm.fail(frame, start, err)
			}

		case opcode.OpNoop:

		case opcode.OpPop:
			if err := vm.require(1); err != nil {
				return vm.fail(frame, start, err)
			}
			vm.pop()

		case opcode.OpAssert:
			if err := vm.require(1); err != nil {
				return vm.fail(frame, start, err)
			}
			cond := vm.pop()
			if cond.Kind() != value.KindBool {
				return vm.fail(frame, start, fmt.Errorf("%w: assert needs a boolean, got %s", ErrTypeMismatch, cond.Kind()))
			}
			if !cond.AsBool() {
				return vm.fail(frame, start, ErrAssertion)
			}

		case opcode.OpReturn:
			if err := vm.require(1); err != nil {
				return vm.fail(frame, start, err)
			}
			result := vm.pop()
			finished := vm.frames[len(vm.frames)-1]
			vm.frames = vm.frames[:len(vm.frames)-1]

			// drop the callee and its arguments
			vm.stack = vm.stack[:finished.slotBase]

			if len(vm.frames) == 0 {
				return result, nil
			}

			if err := vm.push(result); err != nil {
				return vm.fail(frame, start, err)
			}
			frame = &vm.frames[len(vm.frames)-1]
			code = frame.fn.Chunk.Code
			constants = frame.fn.Chunk.Constants

		default:
			return vm.fail(frame, start, fmt.Errorf("%w: unknown opcode %d", ErrMalformedBytecode, unit.Byte))
		}
	}
}

func (vm *VM) fail(frame *Frame, pos int, err error) (value.Value, error) {
	rerr := &RuntimeError{
		Line:     frame.fn.Chunk.Line(pos),
		Function: frame.fn.Inspect(),
		Err:      err,
	}
	log.Debugf("%s", rerr)
	return value.Value{}, rerr
}

func (vm *VM) trace(frame *Frame, pos int) {
	line, err := frame.fn.Chunk.DisassembleInstruction(pos)
	if err != nil {
		line = err.Error()
	}
	log.Debugf("%-32s %v", line, vm.stack)
}

var binaryOperators = map[opcode.Opcode]value.Operator{
	opcode.OpAdd:           value.OpPlus,
	opcode.OpSubtract:      value.OpMinus,
	opcode.OpMultiply:      value.OpStar,
	opcode.OpDivide:        value.OpSlash,
	opcode.OpIntDivide:     value.OpSlashSlash,
	opcode.OpExponent:      value.OpStarStar,
	opcode.OpValueEqual:    value.OpEqual,
	opcode.OpNotValueEqual: value.OpNotEqual,
	opcode.OpGreater:       value.OpGreater,
	opcode.OpGreaterEqual:  value.OpGreaterEqual,
	opcode.OpLess:          value.OpLess,
	opcode.OpLessEqual:     value.OpLessEqual,
}

// executeBinaryOperation pops the right operand, then the left one, and
// pushes the result.
func (vm *VM) executeBinaryOperation(op opcode.Opcode) error {
	if err := vm.require(2); err != nil {
		return err
	}
	operator, ok := binaryOperators[op]
	if !ok {
		return fmt.Errorf("%w: %s is not a binary operator", ErrMalformedBytecode, op)
	}

	right := vm.pop()
	left := vm.pop()

	result, err := operator.Apply(left, right)
	if err != nil {
		return err
	}
	return vm.push(result)
}

func (vm *VM) executeUnaryOperation(op opcode.Opcode) error {
	if err := vm.require(1); err != nil {
		return err
	}
	operand := vm.pop()

	var (
		result value.Value
		err    error
	)
	if op == opcode.OpNot {
		result, err = value.Not(operand)
	} else {
		result, err = value.Negate(operand)
	}
	if err != nil {
		return err
	}
	return vm.push(result)
}

func (vm *VM) push(v value.Value) error {
	if len(vm.stack) >= vm.opts.StackSize {
		return fmt.Errorf("%w: operand stack exceeds %d slots", ErrStackOverflow, vm.opts.StackSize)
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// require checks that the current frame owns at least n operands above its
// callee slot.
func (vm *VM) require(n int) error {
	base := 0
	if len(vm.frames) > 0 {
		base = vm.frames[len(vm.frames)-1].slotBase + 1
	}
	if len(vm.stack)-base < n {
		return fmt.Errorf("%w: stack underflow", ErrMalformedBytecode)
	}
	return nil
}

func (vm *VM) resetStack() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
}

// StackTop returns the top operand, if any.
func (vm *VM) StackTop() (value.Value, bool) {
	if len(vm.stack) == 0 {
		return value.Value{}, false
	}
	return vm.stack[len(vm.stack)-1], true
}

// StackDepth is the number of operands currently on the stack.
func (vm *VM) StackDepth() int { return len(vm.stack) }

// FrameDepth is the number of active call frames.
func (vm *VM) FrameDepth() int { return len(vm.frames) }

// Heap exposes the object registry owned by the VM.
func (vm *VM) Heap() *heap.Heap { return vm.heap }
