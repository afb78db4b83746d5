package vm

import (
	"errors"
	"math"
	"testing"
)

func mustPut(t *testing.T, vm *VM, h *HashObject, pairs ...Value) {
	t.Helper()
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := h.Put(vm, pairs[i], pairs[i+1]); err != nil {
			t.Fatalf("Put(%s): %v", vm.Inspect(pairs[i]), err)
		}
	}
}

func stringOf(t *testing.T, v Value) string {
	t.Helper()
	s, ok := As[*StringObject](v)
	if !ok {
		t.Fatalf("expected a String, got %v", v.Type())
	}
	return s.String()
}

func TestHashInsertionOrderScenario(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h,
		vm.NewString("a"), FromInt(1),
		vm.NewString("b"), FromInt(2),
		vm.NewString("a"), FromInt(3))

	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
	if got := vm.Inspect(h.Value()); got != `{"a" => 3, "b" => 2}` {
		t.Errorf("inspect = %s", got)
	}
}

func TestHashDigScenario(t *testing.T) {
	vm := NewVM()
	inner := vm.NewHash()
	mustPut(t, vm, inner, vm.NewString("y"), FromInt(5))
	outer := vm.NewHash()
	mustPut(t, vm, outer, vm.NewString("x"), inner.Value())

	got, err := outer.Dig(vm, vm.NewString("x"), vm.NewString("y"))
	if err != nil {
		t.Fatalf("Dig: %v", err)
	}
	if got.Int64() != 5 {
		t.Errorf("dig(x, y) = %s, want 5", vm.Inspect(got))
	}

	got, err = outer.Dig(vm, vm.NewString("missing"), vm.NewString("y"))
	if err != nil {
		t.Fatalf("Dig: %v", err)
	}
	if !got.IsNil() {
		t.Errorf("dig(missing, y) = %s, want nil", vm.Inspect(got))
	}

	// A non-indexable intermediate yields nil.
	mustPut(t, vm, outer, vm.NewString("n"), FromInt(1))
	got, err = outer.Dig(vm, vm.NewString("n"), vm.NewString("y"))
	if err != nil || !got.IsNil() {
		t.Errorf("dig through an integer = %s, %v; want nil", vm.Inspect(got), err)
	}
}

func TestHashDigThroughArray(t *testing.T) {
	vm := NewVM()
	arr := vm.NewArray(FromInt(10), FromInt(20))
	h := vm.NewHash()
	mustPut(t, vm, h, vm.Symbol("list"), FromObject(arr))

	got, err := h.Dig(vm, vm.Symbol("list"), FromInt(-1))
	if err != nil {
		t.Fatalf("Dig: %v", err)
	}
	if got.Int64() != 20 {
		t.Errorf("dig(:list, -1) = %s, want 20", vm.Inspect(got))
	}
}

func TestHashFetchScenario(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	missing := vm.NewString("missing")

	_, err := h.Fetch(vm, missing, Undefined, nil)
	if !errors.Is(err, ErrKeyError) {
		t.Fatalf("fetch(missing) err = %v, want KeyError", err)
	}
	if err.Error() != `key not found: "missing"` {
		t.Errorf("message = %q", err.Error())
	}
	var rerr *RubyError
	if !errors.As(err, &rerr) || !Identical(rerr.Key, missing) {
		t.Error("KeyError should carry the missing key")
	}

	got, err := h.Fetch(vm, missing, FromInt(42), nil)
	if err != nil || got.Int64() != 42 {
		t.Errorf("fetch(missing, 42) = %v, %v", got, err)
	}

	blk := vm.NewProc(1, func(vm *VM, args []Value) (Value, error) {
		return vm.Call(args[0], "to_s")
	})
	got, err = h.Fetch(vm, missing, FromInt(42), blk)
	if err != nil {
		t.Fatalf("fetch with block: %v", err)
	}
	if stringOf(t, got) != "missing" {
		t.Errorf("fetch(missing) { |k| k.to_s } = %s", vm.Inspect(got))
	}
}

func TestHashFetchIgnoresDefaults(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	if err := h.SetDefault(vm, FromInt(0)); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Fetch(vm, vm.Symbol("nope"), Undefined, nil); !errors.Is(err, ErrKeyError) {
		t.Errorf("fetch should ignore the default value, got err = %v", err)
	}
}

func TestHashIdentityScenario(t *testing.T) {
	vm := NewVM()
	a := vm.NewString("k")
	b := vm.NewString("k")

	byValue := vm.NewHash()
	mustPut(t, vm, byValue, a, FromInt(1), b, FromInt(2))
	if byValue.Len() != 1 {
		t.Errorf("equality mode: Len() = %d, want 1", byValue.Len())
	}

	byID := vm.NewHash()
	if err := byID.CompareByIdentity(vm); err != nil {
		t.Fatalf("CompareByIdentity: %v", err)
	}
	mustPut(t, vm, byID, a, FromInt(1), b, FromInt(2))
	if byID.Len() != 2 {
		t.Errorf("identity mode: Len() = %d, want 2", byID.Len())
	}
	if !byID.IsComparingByIdentity() {
		t.Error("IsComparingByIdentity() = false")
	}
}

func TestHashCompareByIdentityRehashesExistingKeys(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	sym := vm.Symbol("s")
	mustPut(t, vm, h, sym, FromInt(1), FromInt(7), FromInt(2))

	if err := h.CompareByIdentity(vm); err != nil {
		t.Fatalf("CompareByIdentity: %v", err)
	}
	for _, k := range []Value{sym, FromInt(7), FromInt(7).Hydrated(vm.Heap)} {
		if ok, _ := h.HasKey(k); !ok {
			t.Errorf("key %s lost after switching to identity", vm.Inspect(k))
		}
	}
}

func TestHashStringKeysAreCopiedAndFrozen(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	key := vm.NewString("name")
	mustPut(t, vm, h, key, FromInt(1))

	stored := h.Keys(vm).At(0)
	if Identical(stored, key) {
		t.Error("an unfrozen String key should be copied")
	}
	if !stored.Object().header().IsFrozen() {
		t.Error("the stored key copy should be frozen")
	}

	if _, err := vm.Call(key, "<<", vm.NewString("!")); err != nil {
		t.Fatalf("<<: %v", err)
	}
	if ok, _ := h.HasKey(vm.NewString("name")); !ok {
		t.Error("mutating the caller's string corrupted the table")
	}
}

func TestHashDefaultProtocol(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	k := vm.Symbol("k")

	got, _ := h.Get(vm, k)
	if !got.IsNil() {
		t.Errorf("no default: got %s, want nil", vm.Inspect(got))
	}

	h.SetDefault(vm, FromInt(7))
	got, _ = h.Get(vm, k)
	if got.Int64() != 7 {
		t.Errorf("default value: got %s, want 7", vm.Inspect(got))
	}

	calls := 0
	p := vm.NewProc(2, func(vm *VM, args []Value) (Value, error) {
		calls++
		if _, ok := As[*HashObject](args[0]); !ok {
			t.Error("default proc should receive the hash")
		}
		return FromInt(99), nil
	})
	if err := h.SetDefaultProc(vm, FromObject(p)); err != nil {
		t.Fatalf("SetDefaultProc: %v", err)
	}
	if !h.Default().IsNil() {
		t.Error("setting a default proc should reset the default value")
	}

	for i := 0; i < 2; i++ {
		got, _ = h.Get(vm, k)
		if got.Int64() != 99 {
			t.Errorf("default proc: got %s, want 99", vm.Inspect(got))
		}
	}
	if calls != 2 {
		t.Errorf("default proc called %d times, want 2", calls)
	}
	if h.Len() != 0 {
		t.Errorf("a plain lookup should not insert; Len() = %d", h.Len())
	}

	h.SetDefault(vm, FromInt(1))
	if h.DefaultProc() != nil {
		t.Error("setting a default value should clear the default proc")
	}
}

func TestHashDefaultProcCanStore(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	p := vm.NewProc(2, func(vm *VM, args []Value) (Value, error) {
		hash, _ := As[*HashObject](args[0])
		v := vm.NewString("computed")
		return v, hash.Put(vm, args[1], v)
	})
	h.SetDefaultProc(vm, FromObject(p))

	if _, err := h.Get(vm, vm.Symbol("a")); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after the proc stored its result", h.Len())
	}
}

func TestHashSetDefaultProcRejectsNonProc(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()

	err := h.SetDefaultProc(vm, vm.NewString("nope"))
	if !errors.Is(err, ErrTypeError) {
		t.Fatalf("err = %v, want TypeError", err)
	}
	if err.Error() != "wrong default_proc type String (expected Proc)" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestHashDefaultForUndefinedKey(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	h.SetDefaultProc(vm, FromObject(vm.NewProc(2, func(vm *VM, args []Value) (Value, error) {
		return FromInt(1), nil
	})))

	got, err := h.DefaultFor(vm, Undefined)
	if err != nil || !got.IsNil() {
		t.Errorf("default with no key = %s, %v; want nil", vm.Inspect(got), err)
	}
}

func TestHashDeleteIdempotent(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, FromInt(1), FromInt(1), FromInt(2), FromInt(2))

	got, err := h.Delete(vm, FromInt(3), nil)
	if err != nil || !got.IsNil() {
		t.Errorf("delete(absent) = %s, %v; want nil", vm.Inspect(got), err)
	}
	if vm.Inspect(h.Value()) != "{1 => 1, 2 => 2}" {
		t.Errorf("hash changed: %s", vm.Inspect(h.Value()))
	}

	blk := vm.NewProc(1, func(vm *VM, args []Value) (Value, error) {
		return vm.NewString("none"), nil
	})
	got, _ = h.Delete(vm, FromInt(3), blk)
	if stringOf(t, got) != "none" {
		t.Errorf("delete with block = %s", vm.Inspect(got))
	}
}

func TestHashCompactIdempotent(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, FromInt(1), Nil, FromInt(2), FromInt(2), FromInt(3), Nil)

	once, err := h.Compact(vm)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	twice, err := once.Compact(vm)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if same, _ := once.Eq(vm, twice); !same {
		t.Errorf("compact twice = %s, once = %s", vm.Inspect(twice.Value()), vm.Inspect(once.Value()))
	}
	if h.Len() != 3 {
		t.Error("compact should not modify the receiver")
	}

	changed, err := h.CompactInPlace(vm)
	if err != nil || !changed {
		t.Errorf("compact! = %v, %v; want changed", changed, err)
	}
	changed, _ = h.CompactInPlace(vm)
	if changed {
		t.Error("second compact! should report no change")
	}
}

func TestHashToHRoundTrip(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, vm.Symbol("a"), FromInt(1), vm.NewString("b"), FromObject(vm.NewArray(FromInt(2))))
	h.SetDefault(vm, FromInt(5))

	copied, err := h.ToH(vm, nil)
	if err != nil {
		t.Fatalf("ToH: %v", err)
	}
	if copied == h {
		t.Error("to_h should return a new hash")
	}
	if same, _ := copied.Eq(vm, h); !same {
		t.Errorf("to_h = %s, want == %s", vm.Inspect(copied.Value()), vm.Inspect(h.Value()))
	}
	if copied.IsComparingByIdentity() {
		t.Error("to_h should preserve equality comparison")
	}
	if !copied.Default().IsNil() {
		t.Error("to_h should drop the default")
	}
}

func TestHashToHWithBlock(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, FromInt(1), FromInt(10), FromInt(2), FromInt(20))

	swap := vm.NewProc(2, func(vm *VM, args []Value) (Value, error) {
		return FromObject(vm.NewArray(args[1], args[0])), nil
	})
	out, err := h.ToH(vm, swap)
	if err != nil {
		t.Fatalf("ToH: %v", err)
	}
	if got := vm.Inspect(out.Value()); got != "{10 => 1, 20 => 2}" {
		t.Errorf("to_h with block = %s", got)
	}

	bad := vm.NewProc(2, func(vm *VM, args []Value) (Value, error) {
		return FromInt(1), nil
	})
	if _, err := h.ToH(vm, bad); !errors.Is(err, ErrTypeError) {
		t.Errorf("to_h with non-pair block result: err = %v, want TypeError", err)
	}
}

func TestHashMerge(t *testing.T) {
	vm := NewVM()
	a := vm.NewHash()
	mustPut(t, vm, a, vm.Symbol("x"), FromInt(1), vm.Symbol("y"), FromInt(2))
	b := vm.NewHash()
	mustPut(t, vm, b, vm.Symbol("y"), FromInt(3), vm.Symbol("z"), FromInt(4))

	merged, err := a.Merge(vm, nil, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := vm.Inspect(merged.Value()); got != "{x: 1, y: 3, z: 4}" {
		t.Errorf("merge = %s", got)
	}
	if a.Len() != 2 {
		t.Error("merge should not modify the receiver")
	}

	sum := vm.NewProc(3, func(vm *VM, args []Value) (Value, error) {
		return vm.Call(args[1], "+", args[2])
	})
	if err := a.MergeInPlace(vm, sum, b); err != nil {
		t.Fatalf("MergeInPlace: %v", err)
	}
	if got := vm.Inspect(a.Value()); got != "{x: 1, y: 5, z: 4}" {
		t.Errorf("merge! with block = %s", got)
	}
}

func TestHashExceptAndSlice(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, FromInt(1), FromInt(1), FromInt(2), FromInt(2), FromInt(3), FromInt(3))

	ex, err := h.Except(vm, FromInt(2), FromInt(9))
	if err != nil {
		t.Fatalf("Except: %v", err)
	}
	if got := vm.Inspect(ex.Value()); got != "{1 => 1, 3 => 3}" {
		t.Errorf("except = %s", got)
	}

	sl, err := h.Slice(vm, FromInt(3), FromInt(1))
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if got := vm.Inspect(sl.Value()); got != "{3 => 3, 1 => 1}" {
		t.Errorf("slice = %s", got)
	}
}

func TestHashEqualityAndOrdering(t *testing.T) {
	vm := NewVM()
	small := vm.NewHash()
	mustPut(t, vm, small, FromInt(1), FromInt(1))
	big := vm.NewHash()
	mustPut(t, vm, big, FromInt(1), FromInt(1), FromInt(2), FromInt(2))
	other := vm.NewHash()
	mustPut(t, vm, other, FromInt(2), FromInt(2), FromInt(1), FromInt(1))

	eq := func(a, b *HashObject) (bool, error) { return a.Eq(vm, b) }
	lt := func(a, b *HashObject) (bool, error) { return a.Lt(vm, b) }
	lte := func(a, b *HashObject) (bool, error) { return a.Lte(vm, b) }
	gt := func(a, b *HashObject) (bool, error) { return a.Gt(vm, b) }
	gte := func(a, b *HashObject) (bool, error) { return a.Gte(vm, b) }

	tests := []struct {
		name string
		op   func(a, b *HashObject) (bool, error)
		a, b *HashObject
		want bool
	}{
		{"big == other", eq, big, other, true},
		{"small == big", eq, small, big, false},
		{"small < big", lt, small, big, true},
		{"big < other", lt, big, other, false},
		{"big <= other", lte, big, other, true},
		{"big > small", gt, big, small, true},
		{"small >= big", gte, small, big, false},
	}
	for _, tt := range tests {
		got, err := tt.op(tt.a, tt.b)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}

	h1, _ := big.HashCode(vm)
	h2, _ := other.HashCode(vm)
	if h1 != h2 {
		t.Error("== hashes with different order should hash alike")
	}
}

func TestHashEqlVersusEqual(t *testing.T) {
	vm := NewVM()
	a := vm.NewHash()
	mustPut(t, vm, a, vm.Symbol("n"), FromInt(1))
	b := vm.NewHash()
	mustPut(t, vm, b, vm.Symbol("n"), vm.NewFloat(1.0))

	if same, _ := a.Eq(vm, b); !same {
		t.Error("{n: 1} == {n: 1.0} should be true")
	}
	if same, _ := a.Eql(vm, b); same {
		t.Error("{n: 1}.eql?({n: 1.0}) should be false")
	}
}

func TestHashFrozen(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, vm.NewString("a"), FromInt(1))
	h.Freeze()

	err := h.Put(vm, vm.NewString("b"), FromInt(2))
	if !errors.Is(err, ErrFrozenError) {
		t.Fatalf("Put on frozen hash: err = %v, want FrozenError", err)
	}
	if err.Error() != `can't modify frozen Hash: {"a" => 1}` {
		t.Errorf("message = %q", err.Error())
	}

	mutations := map[string]func() error{
		"delete":  func() error { _, err := h.Delete(vm, FromInt(1), nil); return err },
		"clear":   func() error { return h.Clear(vm) },
		"default": func() error { return h.SetDefault(vm, Nil) },
		"rehash":  func() error { return h.Rehash(vm) },
		"compare_by_identity": func() error {
			return h.CompareByIdentity(vm)
		},
	}
	for name, fn := range mutations {
		if err := fn(); !errors.Is(err, ErrFrozenError) {
			t.Errorf("%s on frozen hash: err = %v, want FrozenError", name, err)
		}
	}

	if _, err := h.Get(vm, vm.NewString("a")); err != nil {
		t.Errorf("reading a frozen hash: %v", err)
	}
}

func TestHashFromPairs(t *testing.T) {
	vm := NewVM()

	h, err := vm.NewHashFromPairs(FromInt(1), FromInt(2), FromInt(3), FromInt(4))
	if err != nil {
		t.Fatalf("NewHashFromPairs: %v", err)
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}

	_, err = vm.NewHashFromPairs(FromInt(1))
	if !errors.Is(err, ErrArgumentError) {
		t.Fatalf("odd pairs: err = %v, want ArgumentError", err)
	}
	if err.Error() != "odd number of arguments for Hash" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestHashIterationGuardFromFacade(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, FromInt(1), FromInt(1))

	err := h.Each(func(k, v Value) error {
		return h.Put(vm, FromInt(2), FromInt(2))
	})
	if err == nil || err.Error() != "can't add a new key into hash during iteration" {
		t.Errorf("insert during each: err = %v", err)
	}

	err = h.Each(func(k, v Value) error {
		return h.Put(vm, k, FromInt(100))
	})
	if err != nil {
		t.Errorf("assigning an existing key during each: %v", err)
	}
	if h.IsIterating() {
		t.Error("guard should be idle after each returns")
	}

	// A default proc that inserts is refused while iterating.
	h.SetDefaultProc(vm, FromObject(vm.NewProc(2, func(vm *VM, args []Value) (Value, error) {
		return Nil, h.Put(vm, args[1], Nil)
	})))
	err = h.Each(func(k, v Value) error {
		_, err := h.Get(vm, FromInt(42))
		return err
	})
	if err == nil {
		t.Error("re-entrant insert from a default proc should respect the guard")
	}
}

func TestHashReplace(t *testing.T) {
	vm := NewVM()
	src := vm.NewHash()
	mustPut(t, vm, src, FromInt(1), FromInt(2))
	src.SetDefault(vm, FromInt(9))

	dst := vm.NewHash()
	mustPut(t, vm, dst, FromInt(5), FromInt(5))
	if err := dst.Replace(vm, src); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got := vm.Inspect(dst.Value()); got != "{1 => 2}" {
		t.Errorf("replace = %s", got)
	}
	if dst.Default().Int64() != 9 {
		t.Error("replace should copy the default")
	}

	mustPut(t, vm, dst, FromInt(3), FromInt(3))
	if src.Len() != 1 {
		t.Error("replace should not share storage with the source")
	}
}

func TestHashDeleteIfKeepIf(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	for i := int64(1); i <= 4; i++ {
		mustPut(t, vm, h, FromInt(i), FromInt(i*i))
	}

	even := vm.NewProc(2, func(vm *VM, args []Value) (Value, error) {
		return FromBool(args[0].Int64()%2 == 0), nil
	})
	if err := h.DeleteIf(vm, even); err != nil {
		t.Fatalf("DeleteIf: %v", err)
	}
	if got := vm.Inspect(h.Value()); got != "{1 => 1, 3 => 9}" {
		t.Errorf("delete_if = %s", got)
	}

	big := vm.NewProc(2, func(vm *VM, args []Value) (Value, error) {
		return FromBool(args[1].Int64() > 5), nil
	})
	if err := h.KeepIf(vm, big); err != nil {
		t.Fatalf("KeepIf: %v", err)
	}
	if got := vm.Inspect(h.Value()); got != "{3 => 9}" {
		t.Errorf("keep_if = %s", got)
	}
}

func TestHashValuesAtAndFetchValues(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	h.SetDefault(vm, FromInt(0))
	mustPut(t, vm, h, FromInt(1), FromInt(10))

	va, err := h.ValuesAt(vm, []Value{FromInt(1), FromInt(2)})
	if err != nil {
		t.Fatalf("ValuesAt: %v", err)
	}
	if got := vm.Inspect(FromObject(va)); got != "[10, 0]" {
		t.Errorf("values_at = %s", got)
	}

	if _, err := h.FetchValues(vm, []Value{FromInt(1), FromInt(2)}, nil); !errors.Is(err, ErrKeyError) {
		t.Errorf("fetch_values with a missing key: err = %v", err)
	}
}

func TestHashSelfReferenceInspect(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, vm.Symbol("self"), h.Value())

	if got := vm.Inspect(h.Value()); got != "{self: {...}}" {
		t.Errorf("inspect = %s", got)
	}
}

func TestRecursiveHashCode(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, vm.Symbol("a"), h.Value())

	first, err := h.HashCode(vm)
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	second, err := vm.HashOf(h.Value())
	if err != nil {
		t.Fatalf("HashOf: %v", err)
	}
	if first != second {
		t.Errorf("hash of a recursive hash is unstable: %d != %d", first, second)
	}

	a := vm.NewArray(FromInt(1))
	a.Push(FromObject(a))
	if _, err := vm.HashOf(FromObject(a)); err != nil {
		t.Errorf("HashOf(recursive array): %v", err)
	}
}

func TestRecursiveHashEquality(t *testing.T) {
	vm := NewVM()
	h1 := vm.NewHash()
	mustPut(t, vm, h1, vm.Symbol("a"), h1.Value())
	h2 := vm.NewHash()
	mustPut(t, vm, h2, vm.Symbol("a"), h2.Value())

	for _, op := range []string{"==", "eql?"} {
		got, err := vm.Call(h1.Value(), op, h2.Value())
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		if !got.IsTruthy() {
			t.Errorf("h1 %s h2 = false, want true", op)
		}
	}

	h3 := vm.NewHash()
	mustPut(t, vm, h3, vm.Symbol("a"), FromInt(1))
	same, err := h1.Eq(vm, h3)
	if err != nil {
		t.Fatalf("Eq: %v", err)
	}
	if same {
		t.Error("a recursive hash should not equal {a: 1}")
	}

	a := vm.NewArray()
	a.Push(FromObject(a))
	b := vm.NewArray()
	b.Push(FromObject(b))
	eq, err := vm.Equal(FromObject(a), FromObject(b))
	if err != nil || !eq {
		t.Errorf("recursive arrays ==: got %v, %v, want true", eq, err)
	}
}

func TestHashAsItsOwnKey(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	mustPut(t, vm, h, h.Value(), FromInt(2))

	// The key's hash changed when it was inserted into itself.
	if _, _, err := h.Lookup(h.Value()); err != nil {
		t.Fatalf("Lookup before rehash: %v", err)
	}
	if err := h.Rehash(vm); err != nil {
		t.Fatalf("Rehash: %v", err)
	}
	v, found, err := h.Lookup(h.Value())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found || v.Int64() != 2 {
		t.Errorf("h[h] = %s (found=%v), want 2", vm.Inspect(v), found)
	}
}

func TestNaNKeyMatchesItself(t *testing.T) {
	vm := NewVM()
	nan := vm.NewFloat(math.NaN())
	h := vm.NewHash()
	mustPut(t, vm, h, nan, FromInt(1), nan, FromInt(2))

	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	v, found, err := h.Lookup(nan)
	if err != nil {
		t.Fatal(err)
	}
	if !found || v.Int64() != 2 {
		t.Errorf("h[nan] = %s (found=%v), want 2", vm.Inspect(v), found)
	}

	mustPut(t, vm, h, vm.NewFloat(math.NaN()), FromInt(3))
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2: a different NaN is a different key", h.Len())
	}
}

func TestKeyEqualityCannotRestructureHash(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	c := vm.DefineClass("Meddler", nil)
	c.AddMethod0("hash", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromInt(1), nil
	})
	c.AddMethod1("eql?", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		if err := h.Put(vm, vm.Symbol("sneaky"), Nil); err != nil {
			return Undefined, err
		}
		return False, nil
	})

	mustPut(t, vm, h, FromObject(vm.NewObject(c)), FromInt(1))
	err := h.Put(vm, FromObject(vm.NewObject(c)), FromInt(2))
	if !errors.Is(err, ErrRuntimeError) || err.Error() != "can't add a new key into hash during iteration" {
		t.Fatalf("err = %v, want the iteration guard", err)
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

func TestKeyEqualityMayUpdateExistingValue(t *testing.T) {
	vm := NewVM()
	h := vm.NewHash()
	marker := vm.Symbol("seen")
	mustPut(t, vm, h, marker, False)

	c := vm.DefineClass("Tattler", nil)
	c.AddMethod0("hash", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromInt(7), nil
	})
	c.AddMethod1("eql?", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		return False, h.Put(vm, marker, True)
	})

	mustPut(t, vm, h, FromObject(vm.NewObject(c)), FromInt(1))
	mustPut(t, vm, h, FromObject(vm.NewObject(c)), FromInt(2))
	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
	v, _, _ := h.Lookup(marker)
	if v != True {
		t.Errorf("h[:seen] = %s, want true", vm.Inspect(v))
	}
}
