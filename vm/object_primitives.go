package vm

// ---------------------------------------------------------------------------
// Object Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerObjectPrimitives() {
	c := vm.ObjectClass

	c.AddMethod0("inspect", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.NewString(vm.Inspect(self)), nil
	})
	c.AddMethod0("to_s", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.NewString("#<" + vm.ClassOf(self).Name + ">"), nil
	})

	// Identity and equality. These are the fallbacks the hashing service
	// uses when a class does not define its own.
	c.AddMethod0("hash", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		h, err := vm.HashOf(self)
		return FromInt(h), err
	})
	c.AddMethod1("eql?", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		same, err := vm.Eql(self, args[0])
		return FromBool(same), err
	})
	c.AddMethod1("==", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		same, err := vm.Equal(self, args[0])
		return FromBool(same), err
	})
	c.AddMethod1("!=", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		res, err := vm.Call(self, "==", args[0])
		if err != nil {
			return Undefined, err
		}
		return FromBool(!res.IsTruthy()), nil
	})
	c.AddMethod1("equal?", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		return FromBool(Identical(self, args[0])), nil
	})
	c.AddMethod0("object_id", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		if n, ok := self.TryInt64(); ok {
			return FromInt(2*n + 1), nil
		}
		return FromInt(int64(self.identityKey())), nil
	})

	// Reflection
	c.AddMethod0("class", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromObject(vm.ClassOf(self)), nil
	})
	c.AddMethod1("respond_to?", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		name, err := vm.methodName(args[0])
		if err != nil {
			return Undefined, err
		}
		return FromBool(vm.RespondTo(self, name)), nil
	})
	c.AddMethod1("is_a?", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		k, ok := As[*Class](args[0])
		if !ok {
			return Undefined, TypeError("class or module required")
		}
		return FromBool(vm.ClassOf(self).IsSubclassOf(k)), nil
	})
	c.AddMethod0("nil?", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromBool(self.IsNil()), nil
	})

	// Freezing
	c.AddMethod0("frozen?", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		if self.IsInteger() || self.obj == nil {
			return True, nil
		}
		return FromBool(self.obj.header().IsFrozen()), nil
	})
	c.AddMethod0("freeze", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		if self.obj != nil {
			self.obj.header().Freeze()
		}
		return self, nil
	})

	vm.registerNilAndBooleanPrimitives()
	vm.registerClassPrimitives()
}

func (vm *VM) registerNilAndBooleanPrimitives() {
	vm.NilClass.AddMethod0("to_s", func(vm *VM, _ Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.NewString(""), nil
	})
	vm.NilClass.AddMethod0("to_a", func(vm *VM, _ Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromObject(vm.NewArray()), nil
	})
	vm.NilClass.AddMethod0("to_h", func(vm *VM, _ Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.NewHash().Value(), nil
	})

	for _, c := range []*Class{vm.TrueClass, vm.FalseClass} {
		c.AddMethod0("to_s", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
			return vm.NewString(vm.Inspect(self)), nil
		})
		c.AddMethod1("&", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
			return FromBool(self.IsTruthy() && args[0].IsTruthy()), nil
		})
		c.AddMethod1("|", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
			return FromBool(self.IsTruthy() || args[0].IsTruthy()), nil
		})
	}
}

func (vm *VM) registerClassPrimitives() {
	c := vm.ClassClass

	c.AddMethod0("name", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		k, _ := As[*Class](self)
		return vm.NewString(k.Name), nil
	})
	c.AddMethod0("superclass", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		k, _ := As[*Class](self)
		if k.Superclass == nil {
			return Nil, nil
		}
		return FromObject(k.Superclass), nil
	})
	c.AddMethod0("to_s", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.NewString(vm.Inspect(self)), nil
	})

	// Object.new is inherited by every class that does not define its own.
	vm.ObjectClass.AddClassMethod(&Method{
		Name: "new", MinArgs: 0, MaxArgs: 0,
		Fn: func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
			k, _ := As[*Class](self)
			return FromObject(vm.NewObject(k)), nil
		},
	})
}

// methodName accepts a symbol or string naming a method.
func (vm *VM) methodName(v Value) (string, error) {
	switch o := v.obj.(type) {
	case *SymbolObject:
		return o.name, nil
	case *StringObject:
		return o.content, nil
	}
	return "", TypeError("%s is not a symbol nor a string", vm.Inspect(v))
}
