package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindComplex
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "BOOL"
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindComplex:
		return "COMPLEX"
	case KindObject:
		return "OBJECT"
	default:
		return "INVALID"
	}
}

// Handle identifies a heap object by arena slot. Generation changes when
// a slot is reused, so a stale handle never resolves to a newer object.
type Handle struct {
	Index      uint32
	Generation uint32
}

// Value is the VM's tagged runtime value.
type Value struct {
	kind Kind
	b    bool
	i    int32
	f    float64
	c    complex128
	h    Handle
}

var (
	TRUE  = Value{kind: KindBool, b: true}
	FALSE = Value{kind: KindBool, b: false}
)

func Bool(b bool) Value {
	if b {
		return TRUE
	}
	return FALSE
}

func Integer(i int32) Value      { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func Complex(c complex128) Value { return Value{kind: KindComplex, c: c} }
func Object(h Handle) Value      { return Value{kind: KindObject, h: h} }

func (v Value) Kind() Kind            { return v.kind }
func (v Value) AsBool() bool          { return v.b }
func (v Value) AsInteger() int32      { return v.i }
func (v Value) AsFloat() float64      { return v.f }
func (v Value) AsComplex() complex128 { return v.c }
func (v Value) AsHandle() Handle      { return v.h }

// IsNumber reports whether v can be an arithmetic operand.
func (v Value) IsNumber() bool {
	return v.kind == KindInteger || v.kind == KindFloat || v.kind == KindComplex
}

// Equal compares kind and payload exactly.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindComplex:
		return v.c == o.c
	case KindObject:
		return v.h == o.h
	}
	return true
}

func (v Value) Inspect() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindInteger:
		return strconv.FormatInt(int64(v.i), 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindComplex:
		re, im := real(v.c), imag(v.c)
		if re == 0 && !math.Signbit(re) {
			return formatComponent(im) + "j"
		}
		sign := "+"
		if im < 0 || (im == 0 && math.Signbit(im)) {
			sign = "-"
			im = -im
		}
		return "(" + formatComponent(re) + sign + formatComponent(im) + "j)"
	case KindObject:
		return fmt.Sprintf("<object %d.%d>", v.h.Index, v.h.Generation)
	default:
		return "<invalid>"
	}
}

func (v Value) String() string { return v.Inspect() }

func formatFloat(f float64) string {
	s := formatComponent(f)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.ContainsAny(s, ".e") {
		return s
	}
	return s + ".0"
}

func formatComponent(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
