package vm

// PrimitiveFunc is a Go function that implements a method.
// blk is the block passed to the call, or nil.
type PrimitiveFunc func(vm *VM, self Value, args []Value, blk *ProcObject) (Value, error)

// Method is a native method bound to a class.
type Method struct {
	Name    string
	MinArgs int
	MaxArgs int // negative: unbounded
	Fn      PrimitiveFunc

	// Optimized marks Integer methods that run directly against an
	// immediate receiver without hydrating it.
	Optimized bool

	builtin bool // registered by the runtime itself
}

// Invoke validates the argument count and calls the method.
func (m *Method) Invoke(vm *VM, self Value, args []Value, blk *ProcObject) (Value, error) {
	a := Args(args)
	var err error
	switch {
	case m.MaxArgs < 0:
		err = a.EnsureArgcAtLeast(m.MinArgs)
	case m.MinArgs == m.MaxArgs:
		err = a.EnsureArgcIs(m.MinArgs)
	default:
		err = a.EnsureArgcBetween(m.MinArgs, m.MaxArgs)
	}
	if err != nil {
		return Undefined, err
	}
	return m.Fn(vm, self, args, blk)
}
