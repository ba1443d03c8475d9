package history

import "golang.org/x/exp/constraints"

// Number is the set of concrete numeric representations a History may store,
// matching the §6.1 value-type enumeration.
type Number interface {
	constraints.Float | constraints.Integer
}

// Value is an erased, tagged numeric value: the common currency operators and
// predicates exchange with a History without knowing its concrete Kind ahead
// of time (Design Notes §9).
type Value struct {
	kind Kind
	f    float64
	i    int64
}

// FromFloat64 builds a double-tagged Value.
func FromFloat64(x float64) Value {
	return Value{kind: KindFloat64, f: x}
}

// FromFloat32 builds a float-tagged Value.
func FromFloat32(x float32) Value {
	return Value{kind: KindFloat32, f: float64(x)}
}

// FromInt builds a Value of the given integer Kind. Panics if kind is a float
// kind; callers pick the kind from the target History.
func FromInt(kind Kind, x int64) Value {
	if kind.isFloat() {
		panic("history: FromInt called with a float Kind")
	}
	return Value{kind: kind, i: x}
}

// ValueOf builds a Value from a generic numeric x, inferring its Kind.
func ValueOf[T Number](x T) Value {
	k := kindFor[T]()
	if k.isFloat() {
		return Value{kind: k, f: float64(x)}
	}
	return Value{kind: k, i: int64(x)}
}

// Kind reports the value's concrete numeric representation.
func (v Value) Kind() Kind {
	return v.kind
}

// AsFloat64 widens v to a float64 regardless of its underlying Kind.
func (v Value) AsFloat64() float64 {
	if v.kind.isFloat() {
		return v.f
	}
	return float64(v.i)
}

// AsInt64 narrows/widens v to an int64. Float kinds are truncated toward zero.
func (v Value) AsInt64() int64 {
	if v.kind.isFloat() {
		return int64(v.f)
	}
	return v.i
}

// Equal reports whether v and other carry the same Kind and numeric value.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	if v.kind.isFloat() {
		return v.f == other.f
	}
	return v.i == other.i
}

func valueAsT[T Number](v Value) T {
	if v.kind.isFloat() {
		return T(v.f)
	}
	return T(v.i)
}

func kindFor[T Number]() Kind {
	var zero T
	switch any(zero).(type) {
	case float64:
		return KindFloat64
	case float32:
		return KindFloat32
	case int8:
		return KindInt8
	case int16:
		return KindInt16
	case int32:
		return KindInt32
	case uint8:
		return KindUint8
	case uint16:
		return KindUint16
	case uint32:
		return KindUint32
	default:
		panic("history: unsupported Number type")
	}
}
