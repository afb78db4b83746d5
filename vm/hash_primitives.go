package vm

import (
	"fortio.org/safecast"
)

// ---------------------------------------------------------------------------
// Hash Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerHashPrimitives() {
	c := vm.HashClass

	vm.registerHashClassMethods()

	// Element access
	c.AddMethod1("[]", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		return hashSelf(self).Get(vm, args[0])
	})
	store := func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		if err := hashSelf(self).Put(vm, args[0], args[1]); err != nil {
			return Undefined, err
		}
		return args[1], nil
	}
	c.AddMethodN("[]=", 2, 2, store)
	c.AddMethodN("store", 2, 2, store)

	c.AddMethodN("fetch", 1, 2, func(vm *VM, self Value, args []Value, blk *ProcObject) (Value, error) {
		return hashSelf(self).Fetch(vm, args[0], Args(args).At(1, Undefined), blk)
	})
	c.AddMethodN("fetch_values", 0, -1, func(vm *VM, self Value, args []Value, blk *ProcObject) (Value, error) {
		arr, err := hashSelf(self).FetchValues(vm, args, blk)
		if err != nil {
			return Undefined, err
		}
		return FromObject(arr), nil
	})
	c.AddMethodN("values_at", 0, -1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		arr, err := hashSelf(self).ValuesAt(vm, args)
		if err != nil {
			return Undefined, err
		}
		return FromObject(arr), nil
	})
	c.AddMethodN("dig", 1, -1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		return hashSelf(self).Dig(vm, args...)
	})

	hasKey := func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		ok, err := hashSelf(self).HasKey(args[0])
		return FromBool(ok), err
	}
	for _, name := range []string{"key?", "has_key?", "include?", "member?"} {
		c.AddMethod1(name, hasKey)
	}
	hasValue := func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		ok, err := hashSelf(self).HasValue(vm, args[0])
		return FromBool(ok), err
	}
	c.AddMethod1("value?", hasValue)
	c.AddMethod1("has_value?", hasValue)

	// Size
	size := func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		n, err := safecast.Conv[int64](hashSelf(self).Len())
		return FromInt(n), err
	}
	c.AddMethod0("size", size)
	c.AddMethod0("length", size)
	c.AddMethod0("empty?", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromBool(hashSelf(self).IsEmpty()), nil
	})
	c.AddMethod0("count", func(vm *VM, self Value, args []Value, blk *ProcObject) (Value, error) {
		h := hashSelf(self)
		if blk == nil {
			return size(vm, self, args, nil)
		}
		var n int64
		err := h.Each(func(k, v Value) error {
			res, err := yieldPair(vm, blk, k, v)
			if err == nil && res.IsTruthy() {
				n++
			}
			return err
		})
		return FromInt(n), err
	})
	c.AddMethod0("any?", func(vm *VM, self Value, _ []Value, blk *ProcObject) (Value, error) {
		h := hashSelf(self)
		if blk == nil {
			return FromBool(!h.IsEmpty()), nil
		}
		found := false
		err := h.Each(func(k, v Value) error {
			res, err := yieldPair(vm, blk, k, v)
			if err == nil && res.IsTruthy() {
				found = true
				return errStopIteration
			}
			return err
		})
		if err == errStopIteration {
			err = nil
		}
		return FromBool(found), err
	})

	// Mutation
	c.AddMethod1("delete", func(vm *VM, self Value, args []Value, blk *ProcObject) (Value, error) {
		return hashSelf(self).Delete(vm, args[0], blk)
	})
	c.AddMethod0("clear", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return self, hashSelf(self).Clear(vm)
	})
	c.AddMethod0("delete_if", func(vm *VM, self Value, _ []Value, blk *ProcObject) (Value, error) {
		if err := requireBlock(blk); err != nil {
			return Undefined, err
		}
		return self, hashSelf(self).DeleteIf(vm, pairBlock(vm, blk))
	})
	c.AddMethod0("keep_if", func(vm *VM, self Value, _ []Value, blk *ProcObject) (Value, error) {
		if err := requireBlock(blk); err != nil {
			return Undefined, err
		}
		return self, hashSelf(self).KeepIf(vm, pairBlock(vm, blk))
	})
	c.AddMethod1("replace", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		other, err := vm.toHash(args[0])
		if err != nil {
			return Undefined, err
		}
		return self, hashSelf(self).Replace(vm, other)
	})

	// Iteration
	each := func(vm *VM, self Value, _ []Value, blk *ProcObject) (Value, error) {
		h := hashSelf(self)
		if blk == nil {
			return FromObject(h.ToA(vm)), nil
		}
		return self, h.Each(func(k, v Value) error {
			_, err := yieldPair(vm, blk, k, v)
			return err
		})
	}
	c.AddMethod0("each", each)
	c.AddMethod0("each_pair", each)
	c.AddMethod0("each_key", func(vm *VM, self Value, _ []Value, blk *ProcObject) (Value, error) {
		if err := requireBlock(blk); err != nil {
			return Undefined, err
		}
		return self, hashSelf(self).Each(func(k, _ Value) error {
			_, err := blk.Call(vm, k)
			return err
		})
	})
	c.AddMethod0("each_value", func(vm *VM, self Value, _ []Value, blk *ProcObject) (Value, error) {
		if err := requireBlock(blk); err != nil {
			return Undefined, err
		}
		return self, hashSelf(self).Each(func(_, v Value) error {
			_, err := blk.Call(vm, v)
			return err
		})
	})
	c.AddMethod0("keys", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromObject(hashSelf(self).Keys(vm)), nil
	})
	c.AddMethod0("values", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromObject(hashSelf(self).Values(vm)), nil
	})
	c.AddMethod0("to_a", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromObject(hashSelf(self).ToA(vm)), nil
	})
	c.AddMethodN("first", 0, 1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		pairs := hashSelf(self).ToA(vm)
		if len(args) == 0 {
			return pairs.At(0), nil
		}
		n, err := vm.arrayIndex(args[0])
		if err != nil {
			return Undefined, err
		}
		if n < 0 {
			return Undefined, ArgumentError("negative array size")
		}
		return FromObject(vm.NewArray(pairs.elements[:min(n, pairs.Len())]...)), nil
	})

	// Derived hashes
	c.AddMethodN("merge", 0, -1, func(vm *VM, self Value, args []Value, blk *ProcObject) (Value, error) {
		others, err := vm.toHashes(args)
		if err != nil {
			return Undefined, err
		}
		out, err := hashSelf(self).Merge(vm, blk, others...)
		if err != nil {
			return Undefined, err
		}
		return out.Value(), nil
	})
	update := func(vm *VM, self Value, args []Value, blk *ProcObject) (Value, error) {
		others, err := vm.toHashes(args)
		if err != nil {
			return Undefined, err
		}
		return self, hashSelf(self).MergeInPlace(vm, blk, others...)
	}
	c.AddMethodN("merge!", 0, -1, update)
	c.AddMethodN("update", 0, -1, update)
	c.AddMethodN("except", 0, -1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		out, err := hashSelf(self).Except(vm, args...)
		if err != nil {
			return Undefined, err
		}
		return out.Value(), nil
	})
	c.AddMethodN("slice", 0, -1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		out, err := hashSelf(self).Slice(vm, args...)
		if err != nil {
			return Undefined, err
		}
		return out.Value(), nil
	})
	c.AddMethod0("compact", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		out, err := hashSelf(self).Compact(vm)
		if err != nil {
			return Undefined, err
		}
		return out.Value(), nil
	})
	c.AddMethod0("compact!", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		changed, err := hashSelf(self).CompactInPlace(vm)
		if err != nil || !changed {
			return Nil, err
		}
		return self, nil
	})
	c.AddMethod0("to_h", func(vm *VM, self Value, _ []Value, blk *ProcObject) (Value, error) {
		out, err := hashSelf(self).ToH(vm, blk)
		if err != nil {
			return Undefined, err
		}
		return out.Value(), nil
	})
	c.AddMethod0("dup", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.CopyHash(hashSelf(self)).Value(), nil
	})

	// Defaults
	c.AddMethodN("default", 0, 1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		return hashSelf(self).DefaultFor(vm, Args(args).At(0, Undefined))
	})
	c.AddMethod1("default=", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		return args[0], hashSelf(self).SetDefault(vm, args[0])
	})
	c.AddMethod0("default_proc", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		if p := hashSelf(self).DefaultProc(); p != nil {
			return FromObject(p), nil
		}
		return Nil, nil
	})
	c.AddMethod1("default_proc=", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		return args[0], hashSelf(self).SetDefaultProc(vm, args[0])
	})

	// Comparison mode
	c.AddMethod0("compare_by_identity", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return self, hashSelf(self).CompareByIdentity(vm)
	})
	c.AddMethod0("compare_by_identity?", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromBool(hashSelf(self).IsComparingByIdentity()), nil
	})
	c.AddMethod0("rehash", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return self, hashSelf(self).Rehash(vm)
	})

	// Equality and ordering
	c.AddMethod1("==", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		other, ok := As[*HashObject](args[0])
		if !ok {
			return False, nil
		}
		same, err := hashSelf(self).Eq(vm, other)
		return FromBool(same), err
	})
	c.AddMethod1("eql?", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		other, ok := As[*HashObject](args[0])
		if !ok {
			return False, nil
		}
		same, err := hashSelf(self).Eql(vm, other)
		return FromBool(same), err
	})
	c.AddMethod0("hash", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		code, err := hashSelf(self).HashCode(vm)
		return FromInt(code), err
	})
	compare := func(op func(h, other *HashObject, vm *VM) (bool, error)) PrimitiveFunc {
		return func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
			other, err := vm.toHash(args[0])
			if err != nil {
				return Undefined, err
			}
			ok, err := op(hashSelf(self), other, vm)
			return FromBool(ok), err
		}
	}
	c.AddMethod1("<", compare(func(h, o *HashObject, vm *VM) (bool, error) { return h.Lt(vm, o) }))
	c.AddMethod1("<=", compare(func(h, o *HashObject, vm *VM) (bool, error) { return h.Lte(vm, o) }))
	c.AddMethod1(">", compare(func(h, o *HashObject, vm *VM) (bool, error) { return h.Gt(vm, o) }))
	c.AddMethod1(">=", compare(func(h, o *HashObject, vm *VM) (bool, error) { return h.Gte(vm, o) }))

	// Printing
	inspect := func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.NewString(vm.Inspect(self)), nil
	}
	c.AddMethod0("inspect", inspect)
	c.AddMethod0("to_s", inspect)
}

func (vm *VM) registerHashClassMethods() {
	c := vm.HashClass

	// Hash.new(default) or Hash.new { |hash, key| ... }
	c.AddClassMethod(&Method{
		Name: "new", MinArgs: 0, MaxArgs: 1,
		Fn: func(vm *VM, self Value, args []Value, blk *ProcObject) (Value, error) {
			if blk != nil && len(args) > 0 {
				return Undefined, Args(args).EnsureArgcIs(0)
			}
			h := vm.NewHash()
			if k, ok := As[*Class](self); ok && k != vm.HashClass {
				h.klass = k
			}
			if blk != nil {
				h.defaultProc = blk
			} else if len(args) == 1 {
				h.defaultValue = args[0]
			}
			return h.Value(), nil
		},
	})

	// Hash[k, v, ...], Hash[[[k, v], ...]] or Hash[other_hash]
	c.AddClassMethod(&Method{
		Name: "[]", MinArgs: 0, MaxArgs: -1,
		Fn: func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
			if len(args) == 1 {
				if other, ok := As[*HashObject](args[0]); ok {
					return vm.CopyHash(other).Value(), nil
				}
				if pairs, ok := As[*ArrayObject](args[0]); ok {
					return vm.Send(FromObject(pairs), "to_h", nil, nil)
				}
			}
			h, err := vm.NewHashFromPairs(args...)
			if err != nil {
				return Undefined, err
			}
			return h.Value(), nil
		},
	})
}

// hashSelf unwraps the receiver of a Hash method. Dispatch guarantees the
// receiver is a hash.
func hashSelf(self Value) *HashObject {
	h, _ := As[*HashObject](self)
	return h
}

// toHash converts an argument that must be a hash.
func (vm *VM) toHash(v Value) (*HashObject, error) {
	if h, ok := As[*HashObject](v); ok {
		return h, nil
	}
	if vm.RespondTo(v, "to_hash") {
		res, err := vm.Call(v, "to_hash")
		if err != nil {
			return nil, err
		}
		if h, ok := As[*HashObject](res); ok {
			return h, nil
		}
	}
	return nil, TypeError("no implicit conversion of %s into Hash", vm.ClassOf(v).Name)
}

func (vm *VM) toHashes(vs []Value) ([]*HashObject, error) {
	out := make([]*HashObject, 0, len(vs))
	for _, v := range vs {
		h, err := vm.toHash(v)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// yieldPair passes an entry to a block. A one-parameter block receives
// the [key, value] pair; any other block receives key and value.
func yieldPair(vm *VM, blk *ProcObject, k, v Value) (Value, error) {
	if blk.Arity() == 1 {
		return blk.Call(vm, FromObject(vm.NewArray(k, v)))
	}
	return blk.Call(vm, k, v)
}

// pairBlock adapts blk so it is called through yieldPair.
func pairBlock(vm *VM, blk *ProcObject) *ProcObject {
	if blk.Arity() != 1 {
		return blk
	}
	return vm.NewProc(2, func(vm *VM, args []Value) (Value, error) {
		return yieldPair(vm, blk, args[0], args[1])
	}, FromObject(blk))
}

func requireBlock(blk *ProcObject) error {
	if blk == nil {
		return ArgumentError("no block given")
	}
	return nil
}
