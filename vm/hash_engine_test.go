package vm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tliron/commonlog"
)

func engineKeys(t *testing.T, e *HashEngine) []int64 {
	t.Helper()
	var out []int64
	for k := range e.All() {
		out = append(out, k.Int64())
	}
	return out
}

func equalInts(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHashEngineInsertionOrder(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)

	for _, k := range []int64{5, 3, 9, 1} {
		if err := e.Insert(FromInt(k), FromInt(k*10)); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	if got := engineKeys(t, e); !equalInts(got, []int64{5, 3, 9, 1}) {
		t.Errorf("order = %v, want [5 3 9 1]", got)
	}
}

func TestHashEngineReinsertKeepsPosition(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)

	e.Insert(FromInt(1), FromInt(1))
	e.Insert(FromInt(2), FromInt(2))
	e.Insert(FromInt(1), FromInt(3))

	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}
	if got := engineKeys(t, e); !equalInts(got, []int64{1, 2}) {
		t.Errorf("order = %v, want [1 2]", got)
	}
	v, found, _ := e.Lookup(FromInt(1))
	if !found || v.Int64() != 3 {
		t.Errorf("Lookup(1) = %v, %v; want 3", v, found)
	}
}

func TestHashEngineDeleteTombstones(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	e.SetCompactRatio(100)

	for k := int64(1); k <= 4; k++ {
		e.Insert(FromInt(k), FromInt(k))
	}
	v, found, err := e.Delete(FromInt(2))
	if err != nil || !found || v.Int64() != 2 {
		t.Fatalf("Delete(2) = %v, %v, %v", v, found, err)
	}

	if e.Len() != 3 {
		t.Errorf("Len() = %d, want 3", e.Len())
	}
	if e.Tombstones() != 1 {
		t.Errorf("Tombstones() = %d, want 1", e.Tombstones())
	}
	if got := engineKeys(t, e); !equalInts(got, []int64{1, 3, 4}) {
		t.Errorf("order = %v, want [1 3 4]", got)
	}

	// Re-inserting a deleted key appends it at the tail.
	e.Insert(FromInt(2), FromInt(20))
	if got := engineKeys(t, e); !equalInts(got, []int64{1, 3, 4, 2}) {
		t.Errorf("order = %v, want [1 3 4 2]", got)
	}
}

func TestHashEngineDeleteAbsentIsNoop(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	e.Insert(FromInt(1), FromInt(1))

	_, found, err := e.Delete(FromInt(99))
	if err != nil || found {
		t.Errorf("Delete(absent) = %v, %v; want not found", found, err)
	}
	if e.Len() != 1 || e.Tombstones() != 0 {
		t.Errorf("Len/Tombstones = %d/%d, want 1/0", e.Len(), e.Tombstones())
	}
}

func TestHashEngineDeleteHead(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	e.SetCompactRatio(100)

	for k := int64(1); k <= 3; k++ {
		e.Insert(FromInt(k), FromInt(k))
	}
	e.Delete(FromInt(1))

	if got := engineKeys(t, e); !equalInts(got, []int64{2, 3}) {
		t.Errorf("order after deleting head = %v, want [2 3]", got)
	}
}

func TestHashEngineLazyCompaction(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)

	for k := int64(1); k <= 4; k++ {
		e.Insert(FromInt(k), FromInt(k))
	}
	e.Delete(FromInt(1))
	if e.Tombstones() != 1 {
		t.Fatalf("Tombstones() = %d, want 1 before threshold", e.Tombstones())
	}
	e.Delete(FromInt(2))
	if e.Tombstones() != 0 {
		t.Errorf("Tombstones() = %d, want 0 after compaction", e.Tombstones())
	}
	if got := engineKeys(t, e); !equalInts(got, []int64{3, 4}) {
		t.Errorf("order after compaction = %v, want [3 4]", got)
	}
}

func TestHashEngineDeleteEverything(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)

	e.Insert(FromInt(1), FromInt(1))
	e.Delete(FromInt(1))

	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
	if got := engineKeys(t, e); len(got) != 0 {
		t.Errorf("iteration yielded %v, want nothing", got)
	}
	e.Insert(FromInt(7), FromInt(7))
	if got := engineKeys(t, e); !equalInts(got, []int64{7}) {
		t.Errorf("order = %v, want [7]", got)
	}
}

func TestHashEngineRehashDropsTombstonesKeepsOrder(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	e.SetCompactRatio(100)

	for k := int64(1); k <= 5; k++ {
		e.Insert(FromInt(k), FromInt(k))
	}
	e.Delete(FromInt(3))

	if err := e.Rehash(); err != nil {
		t.Fatalf("Rehash: %v", err)
	}
	if e.Tombstones() != 0 {
		t.Errorf("Tombstones() = %d, want 0", e.Tombstones())
	}
	if got := engineKeys(t, e); !equalInts(got, []int64{1, 2, 4, 5}) {
		t.Errorf("order = %v, want [1 2 4 5]", got)
	}
}

func TestHashEngineRehashAfterKeyMutation(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)

	key := vm.NewArray(FromInt(1))
	e.Insert(FromObject(key), FromInt(100))
	key.Push(FromInt(2))

	if _, found, _ := e.Lookup(FromObject(key)); found {
		t.Fatal("mutated key should be unreachable before rehash")
	}
	if err := e.Rehash(); err != nil {
		t.Fatalf("Rehash: %v", err)
	}
	v, found, _ := e.Lookup(FromObject(key))
	if !found || v.Int64() != 100 {
		t.Errorf("Lookup after rehash = %v, %v; want 100", v, found)
	}
}

func TestHashEngineIdentityMode(t *testing.T) {
	vm := NewVM()

	a := vm.NewString("k")
	b := vm.NewString("k")

	e := NewHashEngine(vm, 0)
	e.Insert(a, FromInt(1))
	e.Insert(b, FromInt(2))
	if e.Len() != 1 {
		t.Errorf("equality mode: Len() = %d, want 1", e.Len())
	}

	if err := e.SetIdentity(true); err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	e.Insert(b, FromInt(3))
	if e.Len() != 2 {
		t.Errorf("identity mode: Len() = %d, want 2", e.Len())
	}
	v, found, _ := e.Lookup(a)
	if !found || v.Int64() != 2 {
		t.Errorf("Lookup(a) = %v, %v; want 2", v, found)
	}
	if _, found, _ := e.Lookup(vm.NewString("k")); found {
		t.Error("a fresh equal string should miss in identity mode")
	}
}

func TestHashEngineIterationGuard(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	e.Insert(FromInt(1), FromInt(1))
	e.Insert(FromInt(2), FromInt(2))

	err := e.Each(func(k, v Value) error {
		return e.Insert(FromInt(99), Nil)
	})
	if !errors.Is(err, ErrRuntimeError) {
		t.Fatalf("insert during iteration: err = %v, want RuntimeError", err)
	}
	if err.Error() != "can't add a new key into hash during iteration" {
		t.Errorf("message = %q", err.Error())
	}

	err = e.Each(func(k, v Value) error {
		_, _, err := e.Delete(k)
		return err
	})
	if err == nil || err.Error() != "can't delete a key from hash during iteration" {
		t.Errorf("delete during iteration: err = %v", err)
	}

	err = e.Each(func(k, v Value) error {
		return e.Insert(k, FromInt(v.Int64()*10))
	})
	if err != nil {
		t.Fatalf("overwriting an existing key during iteration: %v", err)
	}
	if v, _, _ := e.Lookup(FromInt(2)); v.Int64() != 20 {
		t.Errorf("value after in-place update = %d, want 20", v.Int64())
	}

	if err := e.Each(func(Value, Value) error { return e.Rehash() }); err == nil ||
		err.Error() != "rehash during iteration" {
		t.Errorf("rehash during iteration: err = %v", err)
	}
	if err := e.Each(func(Value, Value) error { return e.SetIdentity(true) }); err == nil ||
		err.Error() != "compare_by_identity during iteration" {
		t.Errorf("compare_by_identity during iteration: err = %v", err)
	}

	if e.IsIterating() {
		t.Error("guard should reset after a failed iteration")
	}
}

func TestHashEngineEarlyBreakResetsGuard(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	e.Insert(FromInt(1), FromInt(1))
	e.Insert(FromInt(2), FromInt(2))

	for range e.All() {
		break
	}
	if e.IsIterating() {
		t.Fatal("guard should reset after breaking out of a range loop")
	}
	if err := e.Insert(FromInt(3), FromInt(3)); err != nil {
		t.Errorf("Insert after break: %v", err)
	}
}

func TestHashEngineAllIsRestartable(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	e.Insert(FromInt(1), FromInt(1))
	e.Insert(FromInt(2), FromInt(2))

	seq := e.All()
	var first, second int
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != 2 || second != 2 {
		t.Errorf("passes yielded %d and %d entries, want 2 and 2", first, second)
	}
}

func TestHashEngineRemoveIf(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	for k := int64(1); k <= 6; k++ {
		e.Insert(FromInt(k), FromInt(k))
	}

	n, err := e.RemoveIf(func(k, _ Value) (bool, error) {
		return k.Int64()%2 == 0, nil
	})
	if err != nil {
		t.Fatalf("RemoveIf: %v", err)
	}
	if n != 3 {
		t.Errorf("removed %d, want 3", n)
	}
	if got := engineKeys(t, e); !equalInts(got, []int64{1, 3, 5}) {
		t.Errorf("order = %v, want [1 3 5]", got)
	}
}

func TestHashEngineSliceUsesArgumentOrder(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	for k := int64(1); k <= 4; k++ {
		e.Insert(FromInt(k), FromInt(k))
	}

	s, err := e.Slice([]Value{FromInt(4), FromInt(99), FromInt(2)})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if got := engineKeys(t, s); !equalInts(got, []int64{4, 2}) {
		t.Errorf("slice order = %v, want [4 2]", got)
	}
}

func TestHashEngineMergeWithResolver(t *testing.T) {
	vm := NewVM()
	a := NewHashEngine(vm, 0)
	b := NewHashEngine(vm, 0)
	a.Insert(FromInt(1), FromInt(10))
	a.Insert(FromInt(2), FromInt(20))
	b.Insert(FromInt(2), FromInt(5))
	b.Insert(FromInt(3), FromInt(30))

	err := a.Merge(b, func(_, old, incoming Value) (Value, error) {
		return FromInt(old.Int64() + incoming.Int64()), nil
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := engineKeys(t, a); !equalInts(got, []int64{1, 2, 3}) {
		t.Errorf("order = %v, want [1 2 3]", got)
	}
	if v, _, _ := a.Lookup(FromInt(2)); v.Int64() != 25 {
		t.Errorf("resolved value = %d, want 25", v.Int64())
	}
}

func TestHashEngineVisitChildrenIncludesTombstones(t *testing.T) {
	vm := NewVM()
	e := NewHashEngine(vm, 0)
	e.SetCompactRatio(100)

	k1, v1 := vm.NewString("k1"), vm.NewString("v1")
	k2, v2 := vm.NewString("k2"), vm.NewString("v2")
	e.Insert(k1, v1)
	e.Insert(k2, v2)
	e.Delete(k1)

	var seen []Value
	e.VisitChildren(visitorFunc(func(v Value) { seen = append(seen, v) }))

	for _, want := range []Value{k1, v1, k2, v2} {
		found := false
		for _, s := range seen {
			if Identical(s, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("VisitChildren did not offer %s", vm.Inspect(want))
		}
	}
}

type visitorFunc func(Value)

func (f visitorFunc) VisitValue(v Value)        { f(v) }
func (f visitorFunc) VisitObject(o HeapObject) { f(FromObject(o)) }

type recordingLogger struct {
	commonlog.Logger
	lines []string
}

func (r *recordingLogger) Debugf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestRebuildEventsAreLogged(t *testing.T) {
	rec := &recordingLogger{Logger: commonlog.GetLogger("test")}
	vm := NewVM(WithLogger(rec))
	h := vm.NewHash()
	mustPut(t, vm, h,
		vm.Symbol("a"), FromInt(1),
		vm.Symbol("b"), FromInt(2),
		vm.Symbol("c"), FromInt(3))

	for _, k := range []string{"a", "b"} {
		if _, err := h.Delete(vm, vm.Symbol(k), nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Rehash(vm); err != nil {
		t.Fatal(err)
	}

	var compactions, rehashes int
	for _, line := range rec.lines {
		switch {
		case strings.HasPrefix(line, "compaction: "):
			compactions++
		case strings.HasPrefix(line, "rehash: 1 entries"):
			rehashes++
		}
	}
	if compactions == 0 || rehashes != 1 {
		t.Errorf("logged %q, want a compaction and one rehash", rec.lines)
	}
}
