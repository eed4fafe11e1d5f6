package value

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

var (
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrUnsupportedOperand = errors.New("unsupported operand")
)

// Operator names a binary operation of the numeric tower.
type Operator uint8

const (
	OpPlus Operator = iota
	OpMinus
	OpStar
	OpSlash
	OpSlashSlash
	OpStarStar
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

func (op Operator) String() string {
	switch op {
	case OpPlus:
		return "+"
	case OpMinus:
		return "-"
	case OpStar:
		return "*"
	case OpSlash:
		return "/"
	case OpSlashSlash:
		return "//"
	case OpStarStar:
		return "**"
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	default:
		return fmt.Sprintf("Operator(%d)", op)
	}
}

// Apply evaluates a op b. Both operands must be numbers of the same kind;
// there is no implicit widening between Integer, Float and Complex, except
// for ** which always yields a Float, or a Complex when either side is one.
func (op Operator) Apply(a, b Value) (Value, error) {
	if !a.IsNumber() || !b.IsNumber() {
		return Value{}, fmt.Errorf("%w: both operands must be numbers, got %s %s %s",
			ErrTypeMismatch, a.kind, op, b.kind)
	}
	if op == OpStarStar {
		return power(a, b), nil
	}
	if a.kind != b.kind {
		return Value{}, fmt.Errorf("%w: unsupported operand kinds for %s: %s and %s",
			ErrTypeMismatch, op, a.kind, b.kind)
	}

	switch a.kind {
	case KindInteger:
		return op.applyInteger(a.i, b.i)
	case KindFloat:
		return op.applyFloat(a.f, b.f)
	default:
		return op.applyComplex(a.c, b.c)
	}
}

func (op Operator) applyInteger(l, r int32) (Value, error) {
	switch op {
	case OpPlus:
		return Integer(l + r), nil
	case OpMinus:
		return Integer(l - r), nil
	case OpStar:
		return Integer(l * r), nil
	case OpSlash:
		if r == 0 {
			return Value{}, fmt.Errorf("%w: %d / 0", ErrDivisionByZero, l)
		}
		return Float(float64(l) / float64(r)), nil
	case OpSlashSlash:
		if r == 0 {
			return Value{}, fmt.Errorf("%w: %d // 0", ErrDivisionByZero, l)
		}
		if l == math.MinInt32 && r == -1 {
			return Integer(l), nil
		}
		return Integer(l / r), nil
	case OpEqual:
		return Bool(l == r), nil
	case OpNotEqual:
		return Bool(l != r), nil
	case OpLess:
		return Bool(l < r), nil
	case OpLessEqual:
		return Bool(l <= r), nil
	case OpGreater:
		return Bool(l > r), nil
	case OpGreaterEqual:
		return Bool(l >= r), nil
	}
	return Value{}, fmt.Errorf("%w: %s on INTEGER", ErrUnsupportedOperand, op)
}

func (op Operator) applyFloat(l, r float64) (Value, error) {
	switch op {
	case OpPlus:
		return Float(l + r), nil
	case OpMinus:
		return Float(l - r), nil
	case OpStar:
		return Float(l * r), nil
	case OpSlash:
		return Float(l / r), nil
	case OpSlashSlash:
		// stays a Float, truncated toward zero
		return Float(math.Trunc(l / r)), nil
	case OpEqual:
		return Bool(l == r), nil
	case OpNotEqual:
		return Bool(l != r), nil
	case OpLess:
		return Bool(l < r), nil
	case OpLessEqual:
		return Bool(l <= r), nil
	case OpGreater:
		return Bool(l > r), nil
	case OpGreaterEqual:
		return Bool(l >= r), nil
	}
	return Value{}, fmt.Errorf("%w: %s on FLOAT", ErrUnsupportedOperand, op)
}

func (op Operator) applyComplex(l, r complex128) (Value, error) {
	switch op {
	case OpPlus:
		return Complex(l + r), nil
	case OpMinus:
		return Complex(l - r), nil
	case OpStar:
		return Complex(l * r), nil
	case OpSlash:
		return Complex(l / r), nil
	case OpEqual:
		return Bool(l == r), nil
	case OpNotEqual:
		return Bool(l != r), nil
	}
	return Value{}, fmt.Errorf("%w: %s on COMPLEX", ErrUnsupportedOperand, op)
}

func power(a, b Value) Value {
	if a.kind == KindComplex || b.kind == KindComplex {
		return Complex(cmplx.Pow(a.asComplex128(), b.asComplex128()))
	}
	return Float(math.Pow(a.asFloat64(), b.asFloat64()))
}

// asFloat64 widens an Integer or Float.
func (v Value) asFloat64() float64 {
	if v.kind == KindInteger {
		return float64(v.i)
	}
	return v.f
}

func (v Value) asComplex128() complex128 {
	if v.kind == KindComplex {
		return v.c
	}
	return complex(v.asFloat64(), 0)
}

// Negate returns -v for any number.
func Negate(v Value) (Value, error) {
	switch v.kind {
	case KindInteger:
		return Integer(-v.i), nil
	case KindFloat:
		return Float(-v.f), nil
	case KindComplex:
		return Complex(-v.c), nil
	}
	return Value{}, fmt.Errorf("%w: operand must be a number, got %s", ErrTypeMismatch, v.kind)
}

// Not inverts a Bool.
func Not(v Value) (Value, error) {
	if v.kind != KindBool {
		return Value{}, fmt.Errorf("%w: operand must be a boolean, got %s", ErrTypeMismatch, v.kind)
	}
	return Bool(!v.b), nil
}
