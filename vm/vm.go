package vm

import (
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: the object runtime
// ---------------------------------------------------------------------------

// VM owns the class hierarchy, the symbol table and the heap, and provides
// the dispatch, hashing and equality services every other part of the
// runtime goes through.
type VM struct {
	Heap    *Heap
	Symbols *SymbolTable
	Classes *ClassTable

	// Well-known classes
	BasicObjectClass *Class
	ObjectClass      *Class
	ClassClass       *Class
	NilClass         *Class
	TrueClass        *Class
	FalseClass       *Class
	IntegerClass     *Class
	FloatClass       *Class
	StringClass      *Class
	SymbolClass      *Class
	ArrayClass       *Class
	HashClass        *Class
	ProcClass        *Class

	hashSeed     uint64
	hashCapacity int
	compactRatio int

	inProgress map[recursionKey]struct{}

	log commonlog.Logger
}

// DefaultHashCapacity is the number of entry slots a new hash reserves.
const DefaultHashCapacity = 10

// DefaultCompactRatio controls lazy reclamation: a hash is compacted once
// its tombstones outnumber live entries by this factor.
const DefaultCompactRatio = 1

// Option configures a VM.
type Option func(*VM)

// WithHeap makes the VM allocate on an existing heap.
func WithHeap(h *Heap) Option {
	return func(vm *VM) { vm.Heap = h }
}

// WithLogger replaces the VM's logger. Hashes created by the VM report
// rehash and compaction events to it.
func WithLogger(log commonlog.Logger) Option {
	return func(vm *VM) {
		if log != nil {
			vm.log = log
		}
	}
}

// WithHashSeed sets the seed used to hash string and symbol content.
func WithHashSeed(seed uint64) Option {
	return func(vm *VM) { vm.hashSeed = seed }
}

// WithHashCapacity sets the initial capacity of new hashes.
func WithHashCapacity(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.hashCapacity = n
		}
	}
}

// WithCompactRatio sets the tombstone-to-live ratio that triggers compaction.
func WithCompactRatio(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.compactRatio = n
		}
	}
}

// NewVM creates and bootstraps a new VM.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		Symbols:      NewSymbolTable(),
		Classes:      NewClassTable(),
		hashCapacity: DefaultHashCapacity,
		compactRatio: DefaultCompactRatio,
		log:          commonlog.GetLogger("garnet.vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.Heap == nil {
		vm.Heap = NewHeap()
	}

	vm.bootstrap()
	return vm
}

func (vm *VM) bootstrap() {
	vm.BasicObjectClass = vm.defineClass("BasicObject", nil)
	vm.ObjectClass = vm.defineClass("Object", vm.BasicObjectClass)
	vm.ClassClass = vm.defineClass("Class", vm.ObjectClass)
	vm.NilClass = vm.defineClass("NilClass", vm.ObjectClass)
	vm.TrueClass = vm.defineClass("TrueClass", vm.ObjectClass)
	vm.FalseClass = vm.defineClass("FalseClass", vm.ObjectClass)
	vm.IntegerClass = vm.defineClass("Integer", vm.ObjectClass)
	vm.FloatClass = vm.defineClass("Float", vm.ObjectClass)
	vm.StringClass = vm.defineClass("String", vm.ObjectClass)
	vm.SymbolClass = vm.defineClass("Symbol", vm.ObjectClass)
	vm.ArrayClass = vm.defineClass("Array", vm.ObjectClass)
	vm.HashClass = vm.defineClass("Hash", vm.ObjectClass)
	vm.ProcClass = vm.defineClass("Proc", vm.ObjectClass)

	vm.registerObjectPrimitives()
	vm.registerIntegerPrimitives()
	vm.registerFloatPrimitives()
	vm.registerStringPrimitives()
	vm.registerArrayPrimitives()
	vm.registerProcPrimitives()
	vm.registerHashPrimitives()

	for _, c := range []*Class{
		vm.BasicObjectClass, vm.ObjectClass, vm.ClassClass, vm.NilClass,
		vm.TrueClass, vm.FalseClass, vm.IntegerClass, vm.FloatClass,
		vm.StringClass, vm.SymbolClass, vm.ArrayClass, vm.HashClass, vm.ProcClass,
	} {
		c.sealBuiltins()
	}
}

func (vm *VM) defineClass(name string, superclass *Class) *Class {
	c := NewClass(name, superclass)
	vm.Classes.Register(c)
	return c
}

// DefineClass creates and registers a class. A nil superclass means Object.
func (vm *VM) DefineClass(name string, superclass *Class) *Class {
	if superclass == nil {
		superclass = vm.ObjectClass
	}
	return vm.defineClass(name, superclass)
}

// ClassOf returns the class of any value.
func (vm *VM) ClassOf(v Value) *Class {
	if v.imm {
		return vm.IntegerClass
	}
	if v.obj == nil {
		return vm.BasicObjectClass
	}
	if k := v.obj.header().klass; k != nil {
		return k
	}
	switch v.obj.Type() {
	case TypeNil:
		return vm.NilClass
	case TypeTrue:
		return vm.TrueClass
	case TypeFalse:
		return vm.FalseClass
	case TypeInteger:
		return vm.IntegerClass
	case TypeFloat:
		return vm.FloatClass
	case TypeString:
		return vm.StringClass
	case TypeSymbol:
		return vm.SymbolClass
	case TypeArray:
		return vm.ArrayClass
	case TypeHash:
		return vm.HashClass
	case TypeProc:
		return vm.ProcClass
	case TypeClass:
		return vm.ClassClass
	}
	return vm.ObjectClass
}

// ---------------------------------------------------------------------------
// Allocation helpers
// ---------------------------------------------------------------------------

// NewString allocates a string.
func (vm *VM) NewString(s string) Value {
	return FromObject(vm.Heap.Allocate(&StringObject{content: s}))
}

// NewFloat allocates a float.
func (vm *VM) NewFloat(f float64) Value {
	return FromObject(vm.Heap.Allocate(&FloatObject{value: f}))
}

// Symbol returns the interned symbol for name.
func (vm *VM) Symbol(name string) Value {
	return FromObject(vm.Symbols.Intern(name))
}

// NewArray allocates an array holding elements.
func (vm *VM) NewArray(elements ...Value) *ArrayObject {
	a := &ArrayObject{elements: append([]Value(nil), elements...)}
	vm.Heap.Allocate(a)
	return a
}

// NewProc allocates a proc with the given arity (-1 for any).
func (vm *VM) NewProc(arity int, fn ProcFunc, captured ...Value) *ProcObject {
	p := &ProcObject{fn: fn, arity: arity, captured: captured}
	vm.Heap.Allocate(p)
	return p
}

// NewObject allocates an instance of class c.
func (vm *VM) NewObject(c *Class) *Object {
	o := c.NewInstance()
	vm.Heap.Allocate(o)
	return o
}
