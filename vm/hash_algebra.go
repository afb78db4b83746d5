package vm

// ---------------------------------------------------------------------------
// Hash set algebra and comparison
// ---------------------------------------------------------------------------

func blockResolver(vm *VM, blk *ProcObject) MergeFunc {
	if blk == nil {
		return nil
	}
	return func(key, oldVal, newVal Value) (Value, error) {
		return blk.Call(vm, key, oldVal, newVal)
	}
}

// Merge returns a copy of h with every other hash merged in, left to right.
// On a key conflict the incoming value wins unless blk is given, in which
// case blk(key, old, new) decides.
func (h *HashObject) Merge(vm *VM, blk *ProcObject, others ...*HashObject) (*HashObject, error) {
	out := vm.CopyHash(h)
	for _, o := range others {
		if err := out.engine.Merge(o.engine, blockResolver(vm, blk)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MergeInPlace merges others into h (merge! / update).
func (h *HashObject) MergeInPlace(vm *VM, blk *ProcObject, others ...*HashObject) error {
	if err := h.checkFrozen(vm); err != nil {
		return err
	}
	for _, o := range others {
		if err := h.engine.Merge(o.engine, blockResolver(vm, blk)); err != nil {
			return err
		}
	}
	return nil
}

// Except returns a new hash without the given keys.
func (h *HashObject) Except(vm *VM, keys ...Value) (*HashObject, error) {
	e, err := h.engine.Except(keys)
	if err != nil {
		return nil, err
	}
	return vm.allocWithEngine(e), nil
}

// Slice returns a new hash holding only the given keys, in argument order.
func (h *HashObject) Slice(vm *VM, keys ...Value) (*HashObject, error) {
	e, err := h.engine.Slice(keys)
	if err != nil {
		return nil, err
	}
	return vm.allocWithEngine(e), nil
}

// Compact returns a copy of h without nil values.
func (h *HashObject) Compact(vm *VM) (*HashObject, error) {
	out := vm.allocWithEngine(h.engine.Copy())
	if _, err := out.engine.Compacted(); err != nil {
		return nil, err
	}
	return out, nil
}

// CompactInPlace removes nil values and reports whether anything changed.
func (h *HashObject) CompactInPlace(vm *VM) (bool, error) {
	if err := h.checkFrozen(vm); err != nil {
		return false, err
	}
	n, err := h.engine.Compacted()
	return n > 0, err
}

// ToH returns a new hash with h's entries and comparison mode and no
// defaults. With a block, each entry is replaced by the [key, value] pair
// the block returns.
func (h *HashObject) ToH(vm *VM, blk *ProcObject) (*HashObject, error) {
	if blk == nil {
		return vm.allocWithEngine(h.engine.Copy()), nil
	}
	out := vm.NewHashWithCapacity(h.Len())
	if h.engine.IsIdentity() {
		if err := out.engine.SetIdentity(true); err != nil {
			return nil, err
		}
	}
	err := h.Each(func(k, v Value) error {
		pair, err := blk.Call(vm, k, v)
		if err != nil {
			return err
		}
		arr, ok := As[*ArrayObject](pair)
		if !ok {
			return TypeError("wrong element type %s (expected array)", vm.ClassOf(pair).Name)
		}
		if arr.Len() != 2 {
			return ArgumentError("element has wrong array length (expected 2, was %d)", arr.Len())
		}
		return out.Put(vm, arr.At(0), arr.At(1))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// Eq implements ==: same size and every key maps to an == value.
func (h *HashObject) Eq(vm *VM, other *HashObject) (bool, error) {
	return h.equal(vm, "==", other, vm.Equal)
}

// Eql implements eql?: like == but values compare with eql?.
func (h *HashObject) Eql(vm *VM, other *HashObject) (bool, error) {
	return h.equal(vm, "eql?", other, vm.Eql)
}

// equal reports a comparison that comes back to the same pair of hashes
// as equal.
func (h *HashObject) equal(vm *VM, op string, other *HashObject, eq func(a, b Value) (bool, error)) (bool, error) {
	if h == other {
		return true, nil
	}
	if h.Len() != other.Len() {
		return false, nil
	}
	if !vm.enterRecursion(op, h, other) {
		return true, nil
	}
	defer vm.leaveRecursion(op, h, other)
	return h.engine.IsSubsetOf(other.engine, eq)
}

// HashCode is independent of entry order, so == hashes hash alike. A hash
// reached again while it is being hashed contributes a fixed code.
func (h *HashObject) HashCode(vm *VM) (int64, error) {
	if !vm.enterRecursion("hash", h, nil) {
		return int64(mix64(cycleHash)), nil
	}
	defer vm.leaveRecursion("hash", h, nil)
	sum := uint64(h.Len())
	err := h.Each(func(k, v Value) error {
		kh, err := vm.HashOf(k)
		if err != nil {
			return err
		}
		vh, err := vm.HashOf(v)
		if err != nil {
			return err
		}
		sum += mix64(combineHash(uint64(kh), uint64(vh)))
		return nil
	})
	return int64(mix64(sum)), err
}

// ---------------------------------------------------------------------------
// Ordering: subset and superset over key/value pairs
// ---------------------------------------------------------------------------

// Lte reports whether h is a subset of other.
func (h *HashObject) Lte(vm *VM, other *HashObject) (bool, error) {
	return h.engine.IsSubsetOf(other.engine, vm.Equal)
}

// Lt reports whether h is a proper subset of other.
func (h *HashObject) Lt(vm *VM, other *HashObject) (bool, error) {
	if h.Len() >= other.Len() {
		return false, nil
	}
	return h.Lte(vm, other)
}

// Gte reports whether h is a superset of other.
func (h *HashObject) Gte(vm *VM, other *HashObject) (bool, error) {
	return other.Lte(vm, h)
}

// Gt reports whether h is a proper superset of other.
func (h *HashObject) Gt(vm *VM, other *HashObject) (bool, error) {
	return other.Lt(vm, h)
}
