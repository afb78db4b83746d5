package vm

import (
	"sort"
	"sync"
)

// Class represents a runtime class. Classes are heap objects so that they
// can be passed around as Values and receive class-side messages.
type Class struct {
	ObjectHeader
	Name       string
	Superclass *Class

	methods      map[string]*Method // instance methods
	classMethods map[string]*Method // class-side methods
}

func (*Class) Type() ObjectType       { return TypeClass }
func (*Class) VisitChildren(Visitor) {}

// NewClass creates a new class with the given name and superclass.
func NewClass(name string, superclass *Class) *Class {
	return &Class{
		Name:         name,
		Superclass:   superclass,
		methods:      make(map[string]*Method),
		classMethods: make(map[string]*Method),
	}
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.Name
}

// ---------------------------------------------------------------------------
// Method registration
// ---------------------------------------------------------------------------

// AddMethod registers an instance method.
func (c *Class) AddMethod(m *Method) {
	c.methods[m.Name] = m
}

// AddMethod0 registers a zero-argument instance method.
func (c *Class) AddMethod0(name string, fn PrimitiveFunc) {
	c.AddMethod(&Method{Name: name, MinArgs: 0, MaxArgs: 0, Fn: fn})
}

// AddMethod1 registers a one-argument instance method.
func (c *Class) AddMethod1(name string, fn PrimitiveFunc) {
	c.AddMethod(&Method{Name: name, MinArgs: 1, MaxArgs: 1, Fn: fn})
}

// AddMethodN registers an instance method accepting min..max arguments.
// A negative max means "no upper bound".
func (c *Class) AddMethodN(name string, min, max int, fn PrimitiveFunc) {
	c.AddMethod(&Method{Name: name, MinArgs: min, MaxArgs: max, Fn: fn})
}

// AddClassMethod registers a class-side method.
func (c *Class) AddClassMethod(m *Method) {
	c.classMethods[m.Name] = m
}

// LookupMethod finds an instance method, walking the superclass chain.
func (c *Class) LookupMethod(name string) *Method {
	for k := c; k != nil; k = k.Superclass {
		if m, ok := k.methods[name]; ok {
			return m
		}
	}
	return nil
}

// LookupClassMethod finds a class-side method, walking the superclass chain.
func (c *Class) LookupClassMethod(name string) *Method {
	for k := c; k != nil; k = k.Superclass {
		if m, ok := k.classMethods[name]; ok {
			return m
		}
	}
	return nil
}

// HasMethod returns true if this class (not superclasses) defines name.
func (c *Class) HasMethod(name string) bool {
	_, ok := c.methods[name]
	return ok
}

// sealBuiltins marks every method registered so far as a runtime primitive.
func (c *Class) sealBuiltins() {
	for _, m := range c.methods {
		m.builtin = true
	}
	for _, m := range c.classMethods {
		m.builtin = true
	}
}

// MethodNames returns the sorted names of locally defined instance methods.
func (c *Class) MethodNames() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSubclassOf returns true if c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.Superclass {
		if k == other {
			return true
		}
	}
	return false
}

// NewInstance creates a plain object of this class.
func (c *Class) NewInstance() *Object {
	o := &Object{}
	o.klass = c
	return o
}

// ---------------------------------------------------------------------------
// ClassTable: class registry
// ---------------------------------------------------------------------------

// ClassTable manages registered classes by name.
// It's thread-safe for concurrent access.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Class),
	}
}

// Register adds a class to the table.
// Returns the previous class with this name, or nil.
func (ct *ClassTable) Register(c *Class) *Class {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	old := ct.classes[c.Name]
	ct.classes[c.Name] = c
	return old
}

// Lookup finds a class by name.
func (ct *ClassTable) Lookup(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}
