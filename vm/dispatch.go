package vm

// ---------------------------------------------------------------------------
// Message dispatch
// ---------------------------------------------------------------------------

// Send dispatches the message name to recv.
//
// Immediate integer receivers run Optimized methods directly. Any other
// method needs a real receiver object, so the local copy of recv is
// hydrated first; the caller's Value is never changed.
func (vm *VM) Send(recv Value, name string, args []Value, blk *ProcObject) (Value, error) {
	if c, ok := As[*Class](recv); ok {
		if m := c.LookupClassMethod(name); m != nil {
			return m.Invoke(vm, recv, args, blk)
		}
	}

	m := vm.ClassOf(recv).LookupMethod(name)
	if m == nil {
		return Undefined, vm.NoMethodError(recv, name)
	}
	if recv.imm && !m.Optimized {
		recv.Hydrate(vm.Heap)
	}
	return m.Invoke(vm, recv, args, blk)
}

// Call is Send without a block.
func (vm *VM) Call(recv Value, name string, args ...Value) (Value, error) {
	return vm.Send(recv, name, args, nil)
}

// RespondTo reports whether recv understands name.
func (vm *VM) RespondTo(recv Value, name string) bool {
	if c, ok := As[*Class](recv); ok {
		if c.LookupClassMethod(name) != nil {
			return true
		}
	}
	return vm.ClassOf(recv).LookupMethod(name) != nil
}

// overrides reports whether name resolves to a method defined outside the
// runtime's own primitives, meaning a builtin fast path must defer to
// dispatch.
func (vm *VM) overrides(recv Value, name string) bool {
	if recv.imm || recv.obj == nil || recv.obj.header().klass == nil {
		return false
	}
	m := recv.obj.header().klass.LookupMethod(name)
	return m != nil && !m.builtin
}

// ---------------------------------------------------------------------------
// Coercion
// ---------------------------------------------------------------------------

// TryConvertToInt returns v if it is already an integer, otherwise the
// result of sending to_i or to_int. Fails with TypeError naming v's class
// when neither is defined.
func (vm *VM) TryConvertToInt(v Value) (Value, error) {
	if v.IsInteger() {
		return v, nil
	}
	for _, name := range []string{"to_i", "to_int"} {
		if vm.RespondTo(v, name) {
			return vm.Call(v, name)
		}
	}
	return Undefined, TypeError("no implicit conversion of %s into Integer", vm.ClassOf(v).Name)
}

// AssertType fails with TypeError unless v has type t. An immediate
// integer satisfies TypeInteger without being materialized.
func (vm *VM) AssertType(v Value, t ObjectType, typeName string) error {
	if v.Type() == t {
		return nil
	}
	return TypeError("wrong argument type %s (expected %s)", vm.ClassOf(v).Name, typeName)
}

// ToProc coerces a default-proc or block argument to a proc.
func (vm *VM) ToProc(v Value) (*ProcObject, error) {
	if p, ok := As[*ProcObject](v); ok {
		return p, nil
	}
	return nil, TypeError("wrong argument type %s (expected Proc)", vm.ClassOf(v).Name)
}
