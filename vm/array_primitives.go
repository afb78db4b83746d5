package vm

import (
	"fortio.org/safecast"
)

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerArrayPrimitives() {
	c := vm.ArrayClass

	c.AddMethod1("[]", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		a, _ := As[*ArrayObject](self)
		idx, err := vm.arrayIndex(args[0])
		if err != nil {
			return Undefined, err
		}
		return a.At(idx), nil
	})
	c.AddMethod0("size", arraySize)
	c.AddMethod0("length", arraySize)
	c.AddMethod0("empty?", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		a, _ := As[*ArrayObject](self)
		return FromBool(a.Len() == 0), nil
	})
	c.AddMethod0("first", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		a, _ := As[*ArrayObject](self)
		return a.At(0), nil
	})
	c.AddMethod0("last", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		a, _ := As[*ArrayObject](self)
		return a.At(-1), nil
	})
	c.AddMethod0("to_a", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return self, nil
	})
	c.AddMethod1("<<", arrayPush)
	c.AddMethodN("push", 0, -1, arrayPush)

	c.AddMethodN("dig", 1, -1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		a, _ := As[*ArrayObject](self)
		idx, err := vm.arrayIndex(args[0])
		if err != nil {
			return Undefined, err
		}
		cur := a.At(idx)
		if len(args) == 1 || cur.IsNil() {
			return cur, nil
		}
		if !vm.RespondTo(cur, "dig") {
			return Nil, nil
		}
		return vm.Send(cur, "dig", args[1:], nil)
	})

	c.AddMethod0("each", func(vm *VM, self Value, _ []Value, blk *ProcObject) (Value, error) {
		a, _ := As[*ArrayObject](self)
		if blk == nil {
			return Undefined, ArgumentError("no block given")
		}
		for i := 0; i < a.Len(); i++ {
			if _, err := blk.Call(vm, a.At(i)); err != nil {
				return Undefined, err
			}
		}
		return self, nil
	})
	c.AddMethod0("to_h", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		a, _ := As[*ArrayObject](self)
		h := vm.NewHashWithCapacity(a.Len())
		for _, e := range a.elements {
			pair, ok := As[*ArrayObject](e)
			if !ok {
				return Undefined, TypeError("wrong element type %s (expected array)", vm.ClassOf(e).Name)
			}
			if pair.Len() != 2 {
				return Undefined, ArgumentError("wrong array length (expected 2, was %d)", pair.Len())
			}
			if err := h.Put(vm, pair.At(0), pair.At(1)); err != nil {
				return Undefined, err
			}
		}
		return h.Value(), nil
	})
}

func arraySize(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
	a, _ := As[*ArrayObject](self)
	n, err := safecast.Conv[int64](a.Len())
	return FromInt(n), err
}

func arrayPush(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
	a, _ := As[*ArrayObject](self)
	if a.frozen {
		return Undefined, vm.FrozenError(self)
	}
	for _, v := range args {
		a.Push(v)
	}
	return self, nil
}

// arrayIndex converts an index argument to int.
func (vm *VM) arrayIndex(v Value) (int, error) {
	iv, err := vm.TryConvertToInt(v)
	if err != nil {
		return 0, err
	}
	idx, err := safecast.Conv[int](iv.Int64())
	if err != nil {
		return 0, ArgumentError("index %d too big", iv.Int64())
	}
	return idx, nil
}

// ---------------------------------------------------------------------------
// Proc Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerProcPrimitives() {
	c := vm.ProcClass

	call := func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		p, _ := As[*ProcObject](self)
		return p.Call(vm, args...)
	}
	c.AddMethodN("call", 0, -1, call)
	c.AddMethodN("[]", 0, -1, call)
	c.AddMethodN("yield", 0, -1, call)
	c.AddMethod0("arity", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		p, _ := As[*ProcObject](self)
		return FromInt(int64(p.Arity())), nil
	})
	c.AddMethod0("to_proc", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return self, nil
	})
}
