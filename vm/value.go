package vm

import (
	"math"
)

// Value is the uniform handle every runtime operation works through.
//
// A Value is a closed sum of two variants:
//   - Immediate: a 64-bit signed integer stored inline, no heap allocation
//   - Reference: a pointer to a HeapObject
//
// Callers never need to know which variant they hold. Every query defined
// on heap objects (IsInteger, IsFloat, Int64, dispatch through VM.Send)
// answers identically for an immediate integer and for a heap IntegerObject
// carrying the same number.
//
// The zero Value is Undefined. It never reaches language code; it marks
// "argument not supplied" and "no value" inside the runtime.
type Value struct {
	obj HeapObject
	n   int64
	imm bool
}

// Undefined is the zero Value.
var Undefined = Value{}

// Pre-defined special values. Their objects are process-wide singletons.
var (
	Nil   = Value{obj: theNil}
	True  = Value{obj: theTrue}
	False = Value{obj: theFalse}
)

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// FromInt creates an immediate integer Value.
func FromInt(n int64) Value {
	return Value{n: n, imm: true}
}

// FromObject wraps a heap object in a Value. A nil object yields Undefined.
func FromObject(obj HeapObject) Value {
	if obj == nil {
		return Undefined
	}
	return Value{obj: obj}
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// ---------------------------------------------------------------------------
// Variant queries
// ---------------------------------------------------------------------------

// IsImmediate returns true if v holds an unboxed integer.
func (v Value) IsImmediate() bool {
	return v.imm
}

// IsUndefined returns true for the zero Value.
func (v Value) IsUndefined() bool {
	return !v.imm && v.obj == nil
}

// Type returns the object type tag of v. Immediates report TypeInteger.
func (v Value) Type() ObjectType {
	if v.imm {
		return TypeInteger
	}
	if v.obj == nil {
		return TypeUndefined
	}
	return v.obj.Type()
}

// IsInteger returns true if v is an integer, boxed or not.
func (v Value) IsInteger() bool {
	if v.imm {
		return true
	}
	_, ok := v.obj.(*IntegerObject)
	return ok
}

// IsFloat returns true if v is a float object.
func (v Value) IsFloat() bool {
	if v.imm {
		return false
	}
	_, ok := v.obj.(*FloatObject)
	return ok
}

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool {
	return v == Nil
}

// IsTruthy returns true if v is considered "truthy" in conditionals.
// Only false and nil are falsy.
func (v Value) IsTruthy() bool {
	return v != False && v != Nil && !v.IsUndefined()
}

// ---------------------------------------------------------------------------
// Integer access
// ---------------------------------------------------------------------------

// Int64 returns the native integer held by v.
// Panics if v is not an integer.
func (v Value) Int64() int64 {
	if v.imm {
		return v.n
	}
	if i, ok := v.obj.(*IntegerObject); ok {
		return i.value
	}
	panic("Value.Int64: not an integer")
}

// TryInt64 returns the native integer held by v, or false.
func (v Value) TryInt64() (int64, bool) {
	if v.imm {
		return v.n, true
	}
	if i, ok := v.obj.(*IntegerObject); ok {
		return i.value, true
	}
	return 0, false
}

// Float64 returns v as a float64. Integers are widened.
// Panics if v is neither a float nor an integer.
func (v Value) Float64() float64 {
	if n, ok := v.TryInt64(); ok {
		return float64(n)
	}
	if f, ok := v.obj.(*FloatObject); ok {
		return f.value
	}
	panic("Value.Float64: not a number")
}

// ---------------------------------------------------------------------------
// Heap access
// ---------------------------------------------------------------------------

// Object returns the heap object behind v.
//
// For an immediate integer a short-lived IntegerObject is synthesized; it
// is not registered with any heap and v itself is left untouched. Use
// Hydrate when a stable, traceable identity is required.
func (v Value) Object() HeapObject {
	if v.imm {
		return &IntegerObject{value: v.n}
	}
	return v.obj
}

// Hydrate permanently converts an immediate integer into a reference to a
// heap-allocated IntegerObject. It is a no-op for references.
//
// The collector is disabled for the duration of the allocation. If the
// collector was already disabled by the caller the object is allocated
// directly and is not registered with the heap.
func (v *Value) Hydrate(h *Heap) {
	if !v.imm {
		return
	}
	obj := &IntegerObject{value: v.n}
	if h != nil {
		if h.GCEnabled() {
			restore := h.DisableGC()
			h.Allocate(obj)
			restore()
		} else {
			h.log.Debugf("hydrating %d while collector is disabled", v.n)
		}
	}
	v.obj = obj
	v.n = 0
	v.imm = false
}

// Hydrated returns a hydrated copy of v.
func (v Value) Hydrated(h *Heap) Value {
	v.Hydrate(h)
	return v
}

// As returns the heap object behind v as T, or false.
// Immediates never match.
func As[T HeapObject](v Value) (T, bool) {
	var zero T
	if v.imm || v.obj == nil {
		return zero, false
	}
	t, ok := v.obj.(T)
	return t, ok
}

// identityKey is the bit pattern used for identity hashing.
func (v Value) identityKey() uint64 {
	if n, ok := v.TryInt64(); ok {
		return uint64(n)
	}
	if f, ok := v.obj.(*FloatObject); ok {
		return math.Float64bits(f.value)
	}
	if v.obj == nil {
		return 0
	}
	return v.obj.header().ObjectID()
}

// Identical reports reference identity. Integers are identical when their
// numbers are equal, whichever variant holds them.
func Identical(a, b Value) bool {
	an, aok := a.TryInt64()
	bn, bok := b.TryInt64()
	if aok || bok {
		return aok && bok && an == bn
	}
	return a.obj == b.obj
}
