package vm

import (
	"iter"
)

// ---------------------------------------------------------------------------
// HashObject: the language-level Hash
// ---------------------------------------------------------------------------

// HashObject wraps a HashEngine with default-value and default-proc
// semantics, a comparison mode, freezing, and the iteration guard.
type HashObject struct {
	ObjectHeader
	engine *HashEngine

	defaultValue Value
	defaultProc  *ProcObject
}

func (*HashObject) Type() ObjectType { return TypeHash }

// VisitChildren offers the default value, the default proc and every entry.
func (h *HashObject) VisitChildren(v Visitor) {
	v.VisitValue(h.defaultValue)
	if h.defaultProc != nil {
		v.VisitObject(h.defaultProc)
	}
	h.engine.VisitChildren(v)
}

// NewHash allocates an empty hash.
func (vm *VM) NewHash() *HashObject {
	return vm.NewHashWithCapacity(vm.hashCapacity)
}

// NewHashWithCapacity allocates an empty hash sized for n entries.
func (vm *VM) NewHashWithCapacity(n int) *HashObject {
	h := vm.wrapEngine(NewHashEngine(vm, n))
	vm.Heap.Allocate(h)
	return h
}

func (vm *VM) wrapEngine(e *HashEngine) *HashObject {
	e.SetCompactRatio(vm.compactRatio)
	e.SetLogger(vm.log)
	return &HashObject{engine: e, defaultValue: Nil}
}

func (vm *VM) allocWithEngine(e *HashEngine) *HashObject {
	h := vm.wrapEngine(e)
	vm.Heap.Allocate(h)
	return h
}

// NewHashFromPairs builds a hash from a flat key, value, key, value list.
func (vm *VM) NewHashFromPairs(items ...Value) (*HashObject, error) {
	if len(items)%2 != 0 {
		return nil, ArgumentError("odd number of arguments for Hash")
	}
	h := vm.NewHashWithCapacity(max(len(items)/2, vm.hashCapacity))
	for i := 0; i < len(items); i += 2 {
		if err := h.Put(vm, items[i], items[i+1]); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// CopyHash returns a new hash with other's entries, defaults and mode.
func (vm *VM) CopyHash(other *HashObject) *HashObject {
	h := vm.allocWithEngine(other.engine.Copy())
	h.defaultValue = other.defaultValue
	h.defaultProc = other.defaultProc
	return h
}

// Value returns h as a Value.
func (h *HashObject) Value() Value { return FromObject(h) }

// Engine exposes the underlying engine.
func (h *HashObject) Engine() *HashEngine { return h.engine }

// Len returns the number of entries.
func (h *HashObject) Len() int { return h.engine.Len() }

// IsEmpty reports whether the hash has no entries.
func (h *HashObject) IsEmpty() bool { return h.engine.Len() == 0 }

// IsIterating reports whether an iteration is in progress.
func (h *HashObject) IsIterating() bool { return h.engine.IsIterating() }

func (h *HashObject) checkFrozen(vm *VM) error {
	if h.frozen {
		return vm.FrozenError(h.Value())
	}
	return nil
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

// Lookup returns the stored value for key without consulting defaults.
func (h *HashObject) Lookup(key Value) (Value, bool, error) {
	return h.engine.Lookup(key)
}

// HasKey reports whether key is present.
func (h *HashObject) HasKey(key Value) (bool, error) {
	return h.engine.Has(key)
}

// Get implements []: the stored value, or the default for key.
func (h *HashObject) Get(vm *VM, key Value) (Value, error) {
	v, found, err := h.engine.Lookup(key)
	if err != nil {
		return Undefined, err
	}
	if found {
		return v, nil
	}
	return h.DefaultFor(vm, key)
}

// DefaultFor resolves a lookup miss. A default proc is called with the hash
// and key and its result returned; the hash is not modified by the call
// itself. Without a proc the default value is returned. Passing Undefined
// as key returns the default value without calling the proc.
func (h *HashObject) DefaultFor(vm *VM, key Value) (Value, error) {
	if h.defaultProc != nil && !key.IsUndefined() {
		return h.defaultProc.Call(vm, h.Value(), key)
	}
	if h.defaultProc != nil {
		return Nil, nil
	}
	return h.defaultValue, nil
}

// Fetch ignores defaults. A missing key yields blk(key) if a block is
// given, else fallback if supplied, else a KeyError.
func (h *HashObject) Fetch(vm *VM, key, fallback Value, blk *ProcObject) (Value, error) {
	v, found, err := h.engine.Lookup(key)
	if err != nil {
		return Undefined, err
	}
	if found {
		return v, nil
	}
	if blk != nil {
		return blk.Call(vm, key)
	}
	if !fallback.IsUndefined() {
		return fallback, nil
	}
	return Undefined, vm.KeyError(h.Value(), key)
}

// FetchValues fetches every key, failing on the first missing one unless
// a block supplies a value.
func (h *HashObject) FetchValues(vm *VM, keys []Value, blk *ProcObject) (*ArrayObject, error) {
	out := make([]Value, 0, len(keys))
	for _, k := range keys {
		v, err := h.Fetch(vm, k, Undefined, blk)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return vm.NewArray(out...), nil
}

// ValuesAt looks up each key with default semantics.
func (h *HashObject) ValuesAt(vm *VM, keys []Value) (*ArrayObject, error) {
	out := make([]Value, 0, len(keys))
	for _, k := range keys {
		v, err := h.Get(vm, k)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return vm.NewArray(out...), nil
}

// Dig performs a chained lookup. It returns nil as soon as an intermediate
// value is missing or cannot be indexed.
func (h *HashObject) Dig(vm *VM, keys ...Value) (Value, error) {
	if len(keys) == 0 {
		return Undefined, ArgumentError("wrong number of arguments (given 0, expected 1+)")
	}
	cur, err := h.Get(vm, keys[0])
	if err != nil {
		return Undefined, err
	}
	for i := 1; i < len(keys); i++ {
		if cur.IsNil() {
			return Nil, nil
		}
		switch cur.Type() {
		case TypeHash:
			inner, _ := As[*HashObject](cur)
			if cur, err = inner.Get(vm, keys[i]); err != nil {
				return Undefined, err
			}
		case TypeArray:
			arr, _ := As[*ArrayObject](cur)
			idx, ok := keys[i].TryInt64()
			if !ok {
				return Nil, nil
			}
			cur = arr.At(int(idx))
		default:
			if !vm.RespondTo(cur, "dig") {
				return Nil, nil
			}
			return vm.Send(cur, "dig", keys[i:], nil)
		}
	}
	return cur, nil
}

// HasValue reports whether any entry's value == v.
func (h *HashObject) HasValue(vm *VM, v Value) (bool, error) {
	found := false
	err := h.engine.Each(func(_, val Value) error {
		same, err := vm.Equal(val, v)
		if err != nil {
			return err
		}
		if same {
			found = true
			return errStopIteration
		}
		return nil
	})
	if err == errStopIteration {
		err = nil
	}
	return found, err
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

// Put implements []= and store. An unfrozen String key is copied and frozen
// unless the hash compares by identity, so later mutation of the caller's
// string cannot corrupt the table.
func (h *HashObject) Put(vm *VM, key, val Value) error {
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	if s, ok := As[*StringObject](key); ok && !s.frozen && !h.engine.IsIdentity() {
		if _, found, err := h.engine.Lookup(key); err != nil {
			return err
		} else if !found {
			dup := &StringObject{content: s.content}
			dup.frozen = true
			vm.Heap.Allocate(dup)
			key = FromObject(dup)
		}
	}
	return h.engine.Insert(key, val)
}

// Delete removes key and returns its value. When the key is absent the
// block's result for key is returned if a block is given, else nil.
func (h *HashObject) Delete(vm *VM, key Value, blk *ProcObject) (Value, error) {
	if err := h.checkFrozen(vm); err != nil {
		return Undefined, err
	}
	v, found, err := h.engine.Delete(key)
	if err != nil {
		return Undefined, err
	}
	if found {
		return v, nil
	}
	if blk != nil {
		return blk.Call(vm, key)
	}
	return Nil, nil
}

// Clear removes every entry.
func (h *HashObject) Clear(vm *VM) error {
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	return h.engine.Clear()
}

// Replace makes h's contents, defaults and comparison mode a copy of other's.
func (h *HashObject) Replace(vm *VM, other *HashObject) error {
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	if h.engine.IsIterating() {
		return ConcurrentModificationError("can't replace hash during iteration")
	}
	if h == other {
		return nil
	}
	fresh := other.engine.Copy()
	fresh.SetCompactRatio(h.engine.compactRatio)
	h.engine = fresh
	h.defaultValue = other.defaultValue
	h.defaultProc = other.defaultProc
	return nil
}

// DeleteIf removes entries for which blk returns truthy.
func (h *HashObject) DeleteIf(vm *VM, blk *ProcObject) error {
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	_, err := h.engine.RemoveIf(func(k, v Value) (bool, error) {
		res, err := blk.Call(vm, k, v)
		return res.IsTruthy(), err
	})
	return err
}

// KeepIf removes entries for which blk returns falsy.
func (h *HashObject) KeepIf(vm *VM, blk *ProcObject) error {
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	_, err := h.engine.RemoveIf(func(k, v Value) (bool, error) {
		res, err := blk.Call(vm, k, v)
		return !res.IsTruthy(), err
	})
	return err
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the static default value.
func (h *HashObject) Default() Value { return h.defaultValue }

// SetDefault sets the static default value and clears any default proc.
func (h *HashObject) SetDefault(vm *VM, v Value) error {
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	h.defaultValue = v
	h.defaultProc = nil
	return nil
}

// DefaultProc returns the default proc, or nil.
func (h *HashObject) DefaultProc() *ProcObject { return h.defaultProc }

// SetDefaultProc installs a default proc and resets the default value to
// nil. Passing Nil removes the proc.
func (h *HashObject) SetDefaultProc(vm *VM, v Value) error {
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	if v.IsNil() {
		h.defaultProc = nil
		return nil
	}
	p, ok := As[*ProcObject](v)
	if !ok {
		return TypeError("wrong default_proc type %s (expected Proc)", vm.ClassOf(v).Name)
	}
	h.defaultProc = p
	h.defaultValue = Nil
	return nil
}

// ---------------------------------------------------------------------------
// Comparison mode
// ---------------------------------------------------------------------------

// CompareByIdentity switches h to identity comparison and rehashes. The
// switch is one-way.
func (h *HashObject) CompareByIdentity(vm *VM) error {
	if h.engine.IsIdentity() {
		return nil
	}
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	return h.engine.SetIdentity(true)
}

// IsComparingByIdentity reports the comparison mode.
func (h *HashObject) IsComparingByIdentity() bool {
	return h.engine.IsIdentity()
}

// Rehash recomputes every key's hash code.
func (h *HashObject) Rehash(vm *VM) error {
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	return h.engine.Rehash()
}

// ---------------------------------------------------------------------------
// Iteration
// ---------------------------------------------------------------------------

// All returns a guarded one-pass sequence over the entries in order.
func (h *HashObject) All() iter.Seq2[Value, Value] {
	return h.engine.All()
}

// Each calls fn for every entry in order. Adding or deleting keys from fn
// fails; assigning to an existing key succeeds.
func (h *HashObject) Each(fn func(key, val Value) error) error {
	return h.engine.Each(fn)
}

// Keys returns the keys in order.
func (h *HashObject) Keys(vm *VM) *ArrayObject {
	return vm.NewArray(h.engine.Keys()...)
}

// Values returns the values in order.
func (h *HashObject) Values(vm *VM) *ArrayObject {
	return vm.NewArray(h.engine.Values()...)
}

// ToA returns the entries as an array of [key, value] pairs.
func (h *HashObject) ToA(vm *VM) *ArrayObject {
	out := vm.NewArray()
	for k, v := range h.All() {
		out.Push(FromObject(vm.NewArray(k, v)))
	}
	return out
}
