package vm

import (
	"math"
	"strconv"

	"fortio.org/safecast"
)

// ---------------------------------------------------------------------------
// Integer Primitives
// ---------------------------------------------------------------------------

// Every Integer method is Optimized: it reads the number straight out of
// the receiver, so immediate receivers are never hydrated to run it.
func (vm *VM) registerIntegerPrimitives() {
	c := vm.IntegerClass

	def := func(name string, min, max int, fn PrimitiveFunc) {
		c.AddMethod(&Method{Name: name, MinArgs: min, MaxArgs: max, Fn: fn, Optimized: true})
	}

	self := func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return self, nil
	}
	def("to_i", 0, 0, self)
	def("to_int", 0, 0, self)

	def("to_s", 0, 1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		base := int64(10)
		if len(args) == 1 {
			b, err := vm.TryConvertToInt(args[0])
			if err != nil {
				return Undefined, err
			}
			base = b.Int64()
		}
		if base < 2 || base > 36 {
			return Undefined, ArgumentError("invalid radix %d", base)
		}
		radix, err := safecast.Conv[int](base)
		if err != nil {
			return Undefined, ArgumentError("invalid radix %d", base)
		}
		return vm.NewString(strconv.FormatInt(self.Int64(), radix)), nil
	})
	def("inspect", 0, 0, func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.NewString(strconv.FormatInt(self.Int64(), 10)), nil
	})
	def("hash", 0, 0, func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		h, err := vm.HashOf(self)
		return FromInt(h), err
	})

	def("==", 1, 1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		same, err := vm.Equal(self, args[0])
		return FromBool(same), err
	})
	def("eql?", 1, 1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		n, ok := args[0].TryInt64()
		return FromBool(ok && n == self.Int64()), nil
	})

	def("+", 1, 1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		a := self.Int64()
		if b, ok := args[0].TryInt64(); ok {
			sum := a + b
			if (sum > a) != (b > 0) {
				return Undefined, RuntimeError("integer overflow")
			}
			return FromInt(sum), nil
		}
		if args[0].IsFloat() {
			return vm.NewFloat(float64(a) + args[0].Float64()), nil
		}
		return Undefined, TypeError("%s can't be coerced into Integer", vm.ClassOf(args[0]).Name)
	})
	def("-", 1, 1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		a := self.Int64()
		if b, ok := args[0].TryInt64(); ok {
			diff := a - b
			if (diff < a) != (b > 0) {
				return Undefined, RuntimeError("integer overflow")
			}
			return FromInt(diff), nil
		}
		if args[0].IsFloat() {
			return vm.NewFloat(float64(a) - args[0].Float64()), nil
		}
		return Undefined, TypeError("%s can't be coerced into Integer", vm.ClassOf(args[0]).Name)
	})
	compare := func(name string, ints func(a, b int64) bool, floats func(a, b float64) bool) {
		def(name, 1, 1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
			if b, ok := args[0].TryInt64(); ok {
				return FromBool(ints(self.Int64(), b)), nil
			}
			if args[0].IsFloat() {
				return FromBool(floats(float64(self.Int64()), args[0].Float64())), nil
			}
			return Undefined, ArgumentError("comparison of Integer with %s failed", vm.Inspect(args[0]))
		})
	}
	compare("<", func(a, b int64) bool { return a < b }, func(a, b float64) bool { return a < b })
	compare("<=", func(a, b int64) bool { return a <= b }, func(a, b float64) bool { return a <= b })
	compare(">", func(a, b int64) bool { return a > b }, func(a, b float64) bool { return a > b })
	compare(">=", func(a, b int64) bool { return a >= b }, func(a, b float64) bool { return a >= b })

	def("zero?", 0, 0, func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromBool(self.Int64() == 0), nil
	})
	def("even?", 0, 0, func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromBool(self.Int64()%2 == 0), nil
	})
	def("odd?", 0, 0, func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return FromBool(self.Int64()%2 != 0), nil
	})
	def("succ", 0, 0, func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		n := self.Int64()
		if n == math.MaxInt64 {
			return Undefined, RuntimeError("integer overflow")
		}
		return FromInt(n + 1), nil
	})
	def("abs", 0, 0, func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		n := self.Int64()
		if n == math.MinInt64 {
			return Undefined, RuntimeError("integer overflow")
		}
		if n < 0 {
			n = -n
		}
		return FromInt(n), nil
	})
}

// ---------------------------------------------------------------------------
// Float Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerFloatPrimitives() {
	c := vm.FloatClass

	c.AddMethod0("to_f", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return self, nil
	})
	c.AddMethod0("to_i", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		f := self.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Undefined, RuntimeError("%s", formatFloat(f))
		}
		n, err := safecast.Truncate[int64](f)
		if err != nil {
			return Undefined, RuntimeError("float %s out of range of integer", formatFloat(f))
		}
		return FromInt(n), nil
	})
	c.AddMethod0("to_s", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.NewString(formatFloat(self.Float64())), nil
	})
}
