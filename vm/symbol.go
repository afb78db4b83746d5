package vm

import (
	"sort"

	"github.com/alphadose/haxmap"
)

// ---------------------------------------------------------------------------
// SymbolTable: Interned symbols
// ---------------------------------------------------------------------------

// SymbolTable interns symbol names to unique SymbolObjects.
// Symbols are immortal; they are never registered with the heap.
type SymbolTable struct {
	byName *haxmap.Map[string, *SymbolObject]
}

// NewSymbolTable creates a new empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: haxmap.New[string, *SymbolObject](),
	}
}

// Intern returns the symbol for name, creating it if needed.
func (st *SymbolTable) Intern(name string) *SymbolObject {
	if sym, ok := st.byName.Get(name); ok {
		return sym
	}
	sym, _ := st.byName.GetOrCompute(name, func() *SymbolObject {
		s := &SymbolObject{name: name}
		s.frozen = true
		return s
	})
	return sym
}

// Lookup returns the symbol for name without creating it.
func (st *SymbolTable) Lookup(name string) (*SymbolObject, bool) {
	return st.byName.Get(name)
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	return int(st.byName.Len())
}

// All returns all symbol names, sorted.
func (st *SymbolTable) All() []string {
	names := make([]string, 0, st.Len())
	st.byName.ForEach(func(name string, _ *SymbolObject) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
