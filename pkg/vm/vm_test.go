package vm

import (
	"errors"
	"fmt"
	"testing"

	"ember/pkg/chunk"
	"ember/pkg/compiler"
	"ember/pkg/opcode"
	"ember/pkg/value"
)

type vmTestCase struct {
	input    string
	expected interface{}
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []vmTestCase{
		{"1", 1},
		{"1 + 2", 3},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"7 // 2", 3},
		{"2147483647 + 1", -2147483648},
		{"1_000 * 3", 3000},
	}

	runVmTests(t, tests)
}

func TestFloatArithmetic(t *testing.T) {
	tests := []vmTestCase{
		{"7 / 2", 3.5},
		{"2 ** 3 ** 2", 64.0},
		{"2 ** 10", 1024.0},
		{"4 ** 0.5", 2.0},
		{"2.0 ** 3", 8.0},
		{"(2 ** 2) ** 0.5 + 1.0", 3.0},
		{"1.5 + 2.25", 3.75},
		{"7.5 // 2.0", 3.0},
		{"1.0 / 0.5", 2.0},
		{"1e3 / 10", 100.0},
	}

	runVmTests(t, tests)
}

func TestComplexArithmetic(t *testing.T) {
	tests := []vmTestCase{
		{"1j + 2j", complex(0, 3)},
		{"1j * 1j", complex(-1, 0)},
		{"4j / 2j", complex(2, 0)},
		{"3j - 1j", complex(0, 2)},
		{"2 ** (1j - 1j)", complex(1, 0)},
		{"(2j - 2j) ** 2.0", complex(0, 0)},
	}

	runVmTests(t, tests)
}

func TestComparisons(t *testing.T) {
	tests := []vmTestCase{
		{"1 < 2", true},
		{"1 > 2", false},
		{"2 <= 2", true},
		{"2.5 >= 2.5", true},
		{"1 == 2", false},
		{"1 != 1", false},
		{"1j == 1j", true},
		{"1 + 1 == 2", true},
	}

	runVmTests(t, tests)
}

func TestStatements(t *testing.T) {
	tests := []vmTestCase{
		{"", true},
		{"1 2 3", 3},
		{"assert 1 == 1", true},
		{"assert 1 < 2\nassert 2.0 > 1.5\n10", 10},
		{"1\nassert 3 == 3", true},
	}

	runVmTests(t, tests)
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		input        string
		expectedErr  error
		expectedLine int
	}{
		{"assert 1 == 2", ErrAssertion, 1},
		{"assert 1", ErrTypeMismatch, 1},
		{"1 + 1.0", ErrTypeMismatch, 1},
		{"(1 < 2) + 1", ErrTypeMismatch, 1},
		{"1 < 2 == 2 < 3", ErrTypeMismatch, 1},
		{"(1 == 1) ** 2", ErrTypeMismatch, 1},
		{"1 // 0", ErrDivisionByZero, 1},
		{"1 / 0", ErrDivisionByZero, 1},
		{"1j < 2j", ErrUnsupportedOperand, 1},
		{"1j // 2j", ErrUnsupportedOperand, 1},
		{"1\n+\n2.0", ErrTypeMismatch, 2},
		{"assert 1 == 1\n\nassert 2 == 3", ErrAssertion, 3},
	}

	for _, tt := range tests {
		fn, err := compiler.New().Compile(tt.input)
		if err != nil {
			t.Fatalf("%q: compiler error: %s", tt.input, err)
		}

		vm := New(DefaultOptions())
		_, err = vm.Interpret(fn)

		var rerr *RuntimeError
		if !errors.As(err, &rerr) {
			t.Fatalf("%q: expected *RuntimeError, got %v", tt.input, err)
		}
		if !errors.Is(err, tt.expectedErr) {
			t.Errorf("%q: wrong error. want=%v, got=%v", tt.input, tt.expectedErr, err)
		}
		if rerr.Line != tt.expectedLine {
			t.Errorf("%q: wrong line. want=%d, got=%d", tt.input, tt.expectedLine, rerr.Line)
		}
		if vm.StackDepth() != 0 || vm.FrameDepth() != 0 {
			t.Errorf("%q: vm not reset after error: %d operands, %d frames",
				tt.input, vm.StackDepth(), vm.FrameDepth())
		}
	}
}

func TestAssertionIsNotTypeError(t *testing.T) {
	fn, err := compiler.New().Compile("assert 1 == 2")
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	_, err = New(DefaultOptions()).Interpret(fn)
	if errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("failed assertion reported as a type error: %s", err)
	}
}

func TestArity(t *testing.T) {
	fn := chunk.NewFunction("f", 2)
	fn.Chunk.Write(opcode.Make(opcode.OpFalse), 1)
	fn.Chunk.Write(opcode.Make(opcode.OpAssert), 1)
	fn.Chunk.Write(opcode.Make(opcode.OpTrue), 2)
	fn.Chunk.Write(opcode.Make(opcode.OpReturn), 2)

	for _, args := range [][]value.Value{
		nil,
		{value.Integer(1)},
		{value.Integer(1), value.Integer(2), value.Integer(3)},
	} {
		vm := New(DefaultOptions())
		_, err := vm.Invoke(fn, args...)
		if !errors.Is(err, ErrArity) {
			t.Fatalf("%d args: expected ErrArity, got %v", len(args), err)
		}
		if errors.Is(err, ErrAssertion) {
			t.Fatalf("%d args: callee code ran before the arity check", len(args))
		}
	}

	_, err := New(DefaultOptions()).Invoke(fn, value.Integer(1), value.Integer(2))
	if !errors.Is(err, ErrAssertion) {
		t.Fatalf("matching arity should run the body, got %v", err)
	}
}

func TestFrameOverflow(t *testing.T) {
	vm := New(Options{MaxFrames: 4})
	fn := chunk.NewFunction("f", 0)
	fn.Chunk.Write(opcode.Make(opcode.OpTrue), 1)
	fn.Chunk.Write(opcode.Make(opcode.OpReturn), 1)

	var err error
	for i := 0; i < 5; i++ {
		callee := value.Object(vm.Heap().Alloc(fn))
		if perr := vm.push(callee); perr != nil {
			t.Fatalf("push: %s", perr)
		}
		if err = vm.callValue(callee, 0); err != nil {
			if i != 4 {
				t.Fatalf("call %d failed early: %s", i, err)
			}
			break
		}
	}

	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected ErrStackOverflow, got %v", err)
	}
	if vm.FrameDepth() != 4 {
		t.Fatalf("wrong frame depth. want=4, got=%d", vm.FrameDepth())
	}
}

func TestOperandStackOverflow(t *testing.T) {
	fn, err := compiler.New().Compile("1 + (2 + (3 + (4 + 5)))")
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}

	_, err = New(Options{StackSize: 4}).Interpret(fn)
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected ErrStackOverflow, got %v", err)
	}

	result, err := New(Options{StackSize: 6}).Interpret(fn)
	if err != nil {
		t.Fatalf("6 slots should be enough, got %s", err)
	}
	if err := testExpectedObject(15, result); err != nil {
		t.Fatal(err)
	}
}

func TestMalformedBytecode(t *testing.T) {
	tests := []struct {
		name string
		code opcode.Instructions
	}{
		{"constant index as opcode", opcode.Instructions{{Kind: opcode.UnitConstantIndex, Byte: 0}}},
		{"jump distance as opcode", opcode.Instructions{{Kind: opcode.UnitJumpDistance, Byte: 3}}},
		{"constant out of range", opcode.Make(opcode.OpConstant, 9)},
		{"constant without operand", opcode.Instructions{{Kind: opcode.UnitOp, Byte: byte(opcode.OpConstant)}}},
		{"unknown opcode", opcode.Instructions{{Kind: opcode.UnitOp, Byte: 200}}},
		{"stack underflow", opcode.Make(opcode.OpAdd)},
		{"missing return", opcode.Make(opcode.OpNoop)},
	}

	for _, tt := range tests {
		fn := chunk.NewFunction(chunk.ScriptName, 0)
		fn.Chunk.Write(tt.code, 1)

		_, err := New(DefaultOptions()).Interpret(fn)
		if !errors.Is(err, ErrMalformedBytecode) {
			t.Errorf("%s: expected ErrMalformedBytecode, got %v", tt.name, err)
		}
	}
}

func TestUnaryOperations(t *testing.T) {
	tests := []struct {
		constant value.Value
		op       opcode.Opcode
		expected interface{}
	}{
		{value.Integer(5), opcode.OpNegative, -5},
		{value.Float(2.5), opcode.OpNegative, -2.5},
		{value.Complex(1 + 2i), opcode.OpNegative, complex(-1, -2)},
		{value.TRUE, opcode.OpNot, false},
		{value.FALSE, opcode.OpNot, true},
		{value.Integer(5), opcode.OpNoop, 5},
	}

	for _, tt := range tests {
		fn := chunk.NewFunction(chunk.ScriptName, 0)
		idx, _ := fn.Chunk.AddConstant(tt.constant)
		fn.Chunk.Write(opcode.Make(opcode.OpConstant, idx), 1)
		fn.Chunk.Write(opcode.Make(tt.op), 1)
		fn.Chunk.Write(opcode.Make(opcode.OpReturn), 1)

		result, err := New(DefaultOptions()).Interpret(fn)
		if err != nil {
			t.Fatalf("%s %s: vm error: %s", tt.op, tt.constant, err)
		}
		if err := testExpectedObject(tt.expected, result); err != nil {
			t.Errorf("%s %s: %s", tt.op, tt.constant, err)
		}
	}

	fn := chunk.NewFunction(chunk.ScriptName, 0)
	fn.Chunk.Write(opcode.Make(opcode.OpTrue), 1)
	fn.Chunk.Write(opcode.Make(opcode.OpNegative), 1)
	fn.Chunk.Write(opcode.Make(opcode.OpReturn), 1)
	if _, err := New(DefaultOptions()).Interpret(fn); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("negating a boolean: expected ErrTypeMismatch, got %v", err)
	}
}

func TestNestedReturnResumesCaller(t *testing.T) {
	outer := chunk.NewFunction(chunk.ScriptName, 0)
	one, _ := outer.Chunk.AddConstant(value.Integer(1))
	outer.Chunk.Write(opcode.Make(opcode.OpConstant, one), 1)
	outer.Chunk.Write(opcode.Make(opcode.OpAdd), 1)
	outer.Chunk.Write(opcode.Make(opcode.OpReturn), 1)

	inner := chunk.NewFunction("inner", 1)
	five, _ := inner.Chunk.AddConstant(value.Integer(5))
	inner.Chunk.Write(opcode.Make(opcode.OpConstant, five), 1)
	inner.Chunk.Write(opcode.Make(opcode.OpReturn), 1)

	vm := New(DefaultOptions())
	outerCallee := value.Object(vm.Heap().Alloc(outer))
	vm.push(outerCallee)
	if err := vm.callValue(outerCallee, 0); err != nil {
		t.Fatalf("call outer: %s", err)
	}

	innerCallee := value.Object(vm.Heap().Alloc(inner))
	vm.push(innerCallee)
	vm.push(value.Integer(99))
	if err := vm.callValue(innerCallee, 1); err != nil {
		t.Fatalf("call inner: %s", err)
	}
	if base := vm.frames[1].slotBase; base != 1 {
		t.Fatalf("wrong slot base. want=1, got=%d", base)
	}

	result, err := vm.run()
	if err != nil {
		t.Fatalf("vm error: %s", err)
	}
	if err := testExpectedObject(6, result); err != nil {
		t.Fatal(err)
	}
	if vm.StackDepth() != 0 || vm.FrameDepth() != 0 {
		t.Fatalf("stack not unwound: %d operands, %d frames", vm.StackDepth(), vm.FrameDepth())
	}
}

func TestNotCallable(t *testing.T) {
	vm := New(DefaultOptions())
	vm.push(value.Integer(1))
	if err := vm.callValue(value.Integer(1), 0); !errors.Is(err, ErrNotCallable) {
		t.Fatalf("expected ErrNotCallable, got %v", err)
	}

	stale := vm.Heap().Alloc(chunk.NewFunction("gone", 0))
	if err := vm.Heap().Free(stale); err != nil {
		t.Fatalf("Free: %s", err)
	}
	if err := vm.callValue(value.Object(stale), 0); !errors.Is(err, ErrNotCallable) {
		t.Fatalf("stale handle: expected ErrNotCallable, got %v", err)
	}

	if _, err := vm.Interpret(nil); !errors.Is(err, ErrNotCallable) {
		t.Fatalf("nil function: expected ErrNotCallable, got %v", err)
	}
}

func TestGlobalsAndReset(t *testing.T) {
	vm := New(DefaultOptions())

	if !vm.SetGlobal("answer", value.Integer(42)) {
		t.Fatalf("first SetGlobal should report a new name")
	}
	if vm.SetGlobal("answer", value.Integer(43)) {
		t.Fatalf("second SetGlobal should report an existing name")
	}
	if v, ok := vm.Global("answer"); !ok || v.AsInteger() != 43 {
		t.Fatalf("Global(answer) = %s, %t", v, ok)
	}
	if vm.Intern("answer") != "answer" {
		t.Fatalf("Intern returned a different string")
	}

	fn, err := compiler.New().Compile("1 + 1")
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	if _, err := vm.Interpret(fn); err != nil {
		t.Fatalf("vm error: %s", err)
	}
	if vm.Heap().Len() != 0 {
		t.Fatalf("script object outlived its run: %d objects", vm.Heap().Len())
	}
	vm.Heap().Alloc(chunk.NewFunction("kept", 0))

	if !vm.DeleteGlobal("answer") || vm.DeleteGlobal("answer") {
		t.Fatalf("DeleteGlobal reported wrong results")
	}
	vm.SetGlobal("other", value.TRUE)

	vm.Reset()
	if _, ok := vm.Global("other"); ok {
		t.Fatalf("Reset kept globals")
	}
	if vm.Heap().Len() != 0 {
		t.Fatalf("Reset kept %d heap objects", vm.Heap().Len())
	}

	result, err := vm.Interpret(fn)
	if err != nil {
		t.Fatalf("vm error after Reset: %s", err)
	}
	if err := testExpectedObject(2, result); err != nil {
		t.Fatal(err)
	}
}

func TestHeapStaysBounded(t *testing.T) {
	ok, err := compiler.New().Compile("assert 2 * 3 == 6\n7 // 2")
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	failing, err := compiler.New().Compile("assert 1 == 2")
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}

	vm := New(DefaultOptions())
	for i := 0; i < 10; i++ {
		if _, err := vm.Interpret(ok); err != nil {
			t.Fatalf("vm error: %s", err)
		}
		if _, err := vm.Interpret(failing); !errors.Is(err, ErrAssertion) {
			t.Fatalf("expected ErrAssertion, got %v", err)
		}
		if _, err := vm.Invoke(ok, value.Integer(1)); !errors.Is(err, ErrArity) {
			t.Fatalf("expected ErrArity, got %v", err)
		}
		if vm.Heap().Len() != 0 {
			t.Fatalf("run %d left %d heap objects", i, vm.Heap().Len())
		}
	}
}

func TestTrace(t *testing.T) {
	fn, err := compiler.New().Compile("assert 2 * 3 == 6\n2 + 0.5")
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	_, err = New(Options{Trace: true}).Interpret(fn)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected a type error from Integer + Float, got %v", err)
	}

	fn, err = compiler.New().Compile("assert 2 * 3 == 6")
	if err != nil {
		t.Fatalf("compiler error: %s", err)
	}
	result, err := New(Options{Trace: true}).Interpret(fn)
	if err != nil {
		t.Fatalf("vm error: %s", err)
	}
	if err := testExpectedObject(true, result); err != nil {
		t.Fatal(err)
	}
}

func runVmTests(t *testing.T, tests []vmTestCase) {
	t.Helper()

	for _, tt := range tests {
		fn, err := compiler.New().Compile(tt.input)
		if err != nil {
			t.Fatalf("%q: compiler error: %s", tt.input, err)
		}

		vm := New(DefaultOptions())
		result, err := vm.Interpret(fn)
		if err != nil {
			t.Fatalf("%q: vm error: %s", tt.input, err)
		}

		if err := testExpectedObject(tt.expected, result); err != nil {
			t.Errorf("%q: %s", tt.input, err)
		}

		if vm.StackDepth() != 0 {
			t.Errorf("%q: %d operands left on the stack", tt.input, vm.StackDepth())
		}
	}
}

func testExpectedObject(expected interface{}, actual value.Value) error {
	var want value.Value
	switch expected := expected.(type) {
	case int:
		want = value.Integer(int32(expected))
	case float64:
		want = value.Float(expected)
	case complex128:
		want = value.Complex(expected)
	case bool:
		want = value.Bool(expected)
	default:
		return fmt.Errorf("unsupported expectation %T", expected)
	}

	if actual.Kind() != want.Kind() {
		return fmt.Errorf("object has wrong kind. want=%s, got=%s (%s)", want.Kind(), actual.Kind(), actual)
	}
	if !actual.Equal(want) {
		return fmt.Errorf("object has wrong value. want=%s, got=%s", want, actual)
	}
	return nil
}
