package vm

import (
	"sync"
	"testing"
)

func TestSymbolTableIntern(t *testing.T) {
	st := NewSymbolTable()

	a := st.Intern("foo")
	b := st.Intern("foo")
	if a != b {
		t.Error("interning the same name twice should return the same symbol")
	}
	if !a.IsFrozen() {
		t.Error("symbols should be frozen")
	}
	if _, ok := st.Lookup("bar"); ok {
		t.Error("Lookup should not create symbols")
	}
	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}
}

func TestSymbolTableConcurrentIntern(t *testing.T) {
	st := NewSymbolTable()
	results := make([]*SymbolObject, 32)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = st.Intern("shared")
		}(i)
	}
	wg.Wait()

	for i, s := range results {
		if s != results[0] {
			t.Fatalf("goroutine %d got a different symbol", i)
		}
	}
}

func TestSymbolTableAllSorted(t *testing.T) {
	st := NewSymbolTable()
	for _, name := range []string{"b", "c", "a"} {
		st.Intern(name)
	}
	got := st.All()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("All() = %v, want [a b c]", got)
	}
}

func TestClassHierarchy(t *testing.T) {
	vm := NewVM()
	sub := vm.DefineClass("OrderedRegistry", vm.HashClass)

	if !sub.IsSubclassOf(vm.HashClass) || !sub.IsSubclassOf(vm.ObjectClass) {
		t.Error("subclass should inherit from Hash and Object")
	}
	if sub.LookupMethod("fetch") == nil {
		t.Error("subclass should inherit fetch")
	}
	if sub.HasMethod("fetch") {
		t.Error("HasMethod should only report local methods")
	}
	if vm.Classes.Lookup("OrderedRegistry") != sub {
		t.Error("DefineClass should register the class")
	}

	got, err := vm.Call(FromObject(sub), "superclass")
	if err != nil {
		t.Fatalf("superclass: %v", err)
	}
	if !Identical(got, FromObject(vm.HashClass)) {
		t.Errorf("superclass = %s, want Hash", vm.Inspect(got))
	}
}
