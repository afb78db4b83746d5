package vm

import (
	"sync/atomic"
)

// ObjectType tags the concrete kind of a heap object.
type ObjectType uint8

const (
	TypeUndefined ObjectType = iota
	TypeNil
	TypeTrue
	TypeFalse
	TypeInteger
	TypeFloat
	TypeString
	TypeSymbol
	TypeArray
	TypeHash
	TypeProc
	TypeClass
	TypeObject
)

var objectTypeNames = [...]string{
	TypeUndefined: "Undefined",
	TypeNil:       "NilClass",
	TypeTrue:      "TrueClass",
	TypeFalse:     "FalseClass",
	TypeInteger:   "Integer",
	TypeFloat:     "Float",
	TypeString:    "String",
	TypeSymbol:    "Symbol",
	TypeArray:     "Array",
	TypeHash:      "Hash",
	TypeProc:      "Proc",
	TypeClass:     "Class",
	TypeObject:    "Object",
}

func (t ObjectType) String() string {
	if int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return "Unknown"
}

// HeapObject is the base of every boxed runtime value.
//
// VisitChildren must offer every Value and HeapObject the object owns to
// the visitor. A reference hidden from the visitor is collected too early.
type HeapObject interface {
	Type() ObjectType
	VisitChildren(Visitor)
	header() *ObjectHeader
}

// Visitor receives the references owned by a heap object during tracing.
type Visitor interface {
	VisitValue(Value)
	VisitObject(HeapObject)
}

// nextObjectID hands out identity numbers. IDs start at 1.
var nextObjectID atomic.Uint64

// ObjectHeader is embedded in every heap object.
type ObjectHeader struct {
	klass  *Class // explicit class; nil means "builtin class for Type()"
	id     atomic.Uint64
	frozen bool
}

func (h *ObjectHeader) header() *ObjectHeader { return h }

// ObjectID returns the object's identity number, assigning one on first use.
func (h *ObjectHeader) ObjectID() uint64 {
	if id := h.id.Load(); id != 0 {
		return id
	}
	h.id.CompareAndSwap(0, nextObjectID.Add(1))
	return h.id.Load()
}

// IsFrozen reports whether the object rejects mutation.
func (h *ObjectHeader) IsFrozen() bool { return h.frozen }

// Freeze marks the object immutable.
func (h *ObjectHeader) Freeze() { h.frozen = true }

// ---------------------------------------------------------------------------
// Special objects
// ---------------------------------------------------------------------------

// NilObject is the type of the nil singleton.
type NilObject struct{ ObjectHeader }

func (*NilObject) Type() ObjectType       { return TypeNil }
func (*NilObject) VisitChildren(Visitor) {}

// BoolObject is the type of the true and false singletons.
type BoolObject struct {
	ObjectHeader
	value bool
}

func (b *BoolObject) Type() ObjectType {
	if b.value {
		return TypeTrue
	}
	return TypeFalse
}
func (*BoolObject) VisitChildren(Visitor) {}

var (
	theNil   = newFrozenNil()
	theTrue  = newFrozenBool(true)
	theFalse = newFrozenBool(false)
)

func newFrozenNil() *NilObject {
	n := &NilObject{}
	n.frozen = true
	return n
}

func newFrozenBool(b bool) *BoolObject {
	o := &BoolObject{value: b}
	o.frozen = true
	return o
}

// ---------------------------------------------------------------------------
// Numbers
// ---------------------------------------------------------------------------

// IntegerObject is a heap-boxed integer.
type IntegerObject struct {
	ObjectHeader
	value int64
}

func (*IntegerObject) Type() ObjectType       { return TypeInteger }
func (*IntegerObject) VisitChildren(Visitor) {}

// Value returns the native integer.
func (i *IntegerObject) Value() int64 { return i.value }

// FloatObject is a heap-boxed float.
type FloatObject struct {
	ObjectHeader
	value float64
}

func (*FloatObject) Type() ObjectType       { return TypeFloat }
func (*FloatObject) VisitChildren(Visitor) {}

// Value returns the native float.
func (f *FloatObject) Value() float64 { return f.value }

// ---------------------------------------------------------------------------
// Strings and symbols
// ---------------------------------------------------------------------------

// StringObject is a mutable byte string.
type StringObject struct {
	ObjectHeader
	content string
}

func (*StringObject) Type() ObjectType       { return TypeString }
func (*StringObject) VisitChildren(Visitor) {}

// String returns the string content.
func (s *StringObject) String() string { return s.content }

// SymbolObject is an interned name. Two symbols with the same name are the
// same object.
type SymbolObject struct {
	ObjectHeader
	name string
}

func (*SymbolObject) Type() ObjectType       { return TypeSymbol }
func (*SymbolObject) VisitChildren(Visitor) {}

// Name returns the symbol's name.
func (s *SymbolObject) Name() string { return s.name }

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

// ArrayObject is an ordered sequence of values.
type ArrayObject struct {
	ObjectHeader
	elements []Value
}

func (*ArrayObject) Type() ObjectType { return TypeArray }

func (a *ArrayObject) VisitChildren(v Visitor) {
	for _, e := range a.elements {
		v.VisitValue(e)
	}
}

// Len returns the number of elements.
func (a *ArrayObject) Len() int { return len(a.elements) }

// At returns the element at index i, or Nil when out of range.
// Negative indices count from the end.
func (a *ArrayObject) At(i int) Value {
	if i < 0 {
		i += len(a.elements)
	}
	if i < 0 || i >= len(a.elements) {
		return Nil
	}
	return a.elements[i]
}

// Elements returns the backing slice. Callers must not retain it across
// mutations.
func (a *ArrayObject) Elements() []Value { return a.elements }

// Push appends a value.
func (a *ArrayObject) Push(v Value) { a.elements = append(a.elements, v) }

// ---------------------------------------------------------------------------
// Procs
// ---------------------------------------------------------------------------

// ProcFunc is the native body of a proc.
type ProcFunc func(vm *VM, args []Value) (Value, error)

// ProcObject is a callable: blocks, default procedures and conflict
// resolvers are all procs.
type ProcObject struct {
	ObjectHeader
	fn       ProcFunc
	arity    int
	captured []Value
}

func (*ProcObject) Type() ObjectType { return TypeProc }

func (p *ProcObject) VisitChildren(v Visitor) {
	for _, c := range p.captured {
		v.VisitValue(c)
	}
}

// Arity returns the declared number of parameters, or -1 for any.
func (p *ProcObject) Arity() int { return p.arity }

// Call invokes the proc. Missing arguments are padded with nil and extra
// arguments are dropped, as block calls do.
func (p *ProcObject) Call(vm *VM, args ...Value) (Value, error) {
	if p.arity >= 0 && len(args) != p.arity {
		adjusted := make([]Value, p.arity)
		for i := range adjusted {
			if i < len(args) {
				adjusted[i] = args[i]
			} else {
				adjusted[i] = Nil
			}
		}
		args = adjusted
	}
	return p.fn(vm, args)
}

// ---------------------------------------------------------------------------
// Plain objects
// ---------------------------------------------------------------------------

// Object is an instance of a user-defined class with named instance
// variables.
type Object struct {
	ObjectHeader
	ivars map[string]Value
}

func (*Object) Type() ObjectType { return TypeObject }

func (o *Object) VisitChildren(v Visitor) {
	for _, val := range o.ivars {
		v.VisitValue(val)
	}
}

// GetIvar returns an instance variable, or Nil.
func (o *Object) GetIvar(name string) Value {
	if val, ok := o.ivars[name]; ok {
		return val
	}
	return Nil
}

// SetIvar sets an instance variable.
func (o *Object) SetIvar(name string, val Value) {
	if o.ivars == nil {
		o.ivars = make(map[string]Value)
	}
	o.ivars[name] = val
}
