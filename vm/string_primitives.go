package vm

import (
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// ---------------------------------------------------------------------------
// String and Symbol Primitives
// ---------------------------------------------------------------------------

// Strings define neither to_i nor to_int: a String passed
// where an Integer is expected is a TypeError, not a parse.
func (vm *VM) registerStringPrimitives() {
	c := vm.StringClass

	c.AddMethod0("to_s", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return self, nil
	})
	c.AddMethod0("to_sym", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		s, _ := As[*StringObject](self)
		return vm.Symbol(s.content), nil
	})
	c.AddMethod0("size", stringSize)
	c.AddMethod0("length", stringSize)
	c.AddMethod0("dup", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		s, _ := As[*StringObject](self)
		return vm.NewString(s.content), nil
	})
	c.AddMethod1("<<", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		s, _ := As[*StringObject](self)
		if s.frozen {
			return Undefined, vm.FrozenError(self)
		}
		other, ok := As[*StringObject](args[0])
		if !ok {
			return Undefined, TypeError("no implicit conversion of %s into String", vm.ClassOf(args[0]).Name)
		}
		s.content += other.content
		return self, nil
	})
	c.AddMethod1("+", func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		s, _ := As[*StringObject](self)
		other, ok := As[*StringObject](args[0])
		if !ok {
			return Undefined, TypeError("no implicit conversion of %s into String", vm.ClassOf(args[0]).Name)
		}
		return vm.NewString(s.content + other.content), nil
	})
	c.AddMethod0("upcase", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		s, _ := As[*StringObject](self)
		return vm.NewString(strings.ToUpper(s.content)), nil
	})
	c.AddMethodN("unicode_normalize", 0, 1, func(vm *VM, self Value, args []Value, _ *ProcObject) (Value, error) {
		s, _ := As[*StringObject](self)
		form := "nfc"
		if len(args) == 1 {
			sym, ok := As[*SymbolObject](args[0])
			if !ok {
				return Undefined, TypeError("%s is not a symbol", vm.Inspect(args[0]))
			}
			form = sym.name
		}
		var f norm.Form
		switch form {
		case "nfc":
			f = norm.NFC
		case "nfd":
			f = norm.NFD
		case "nfkc":
			f = norm.NFKC
		case "nfkd":
			f = norm.NFKD
		default:
			return Undefined, ArgumentError("Invalid normalization form %s.", form)
		}
		return vm.NewString(f.String(s.content)), nil
	})

	sc := vm.SymbolClass
	sc.AddMethod0("to_s", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		s, _ := As[*SymbolObject](self)
		return vm.NewString(s.name), nil
	})
	sc.AddMethod0("to_sym", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return self, nil
	})
	sc.AddMethod0("to_proc", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		s, _ := As[*SymbolObject](self)
		name := s.name
		return FromObject(vm.NewProc(-1, func(vm *VM, args []Value) (Value, error) {
			if len(args) == 0 {
				return Undefined, ArgumentError("no receiver given")
			}
			return vm.Send(args[0], name, args[1:], nil)
		}, self)), nil
	})
}

func stringSize(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
	s, _ := As[*StringObject](self)
	n, err := safecast.Conv[int64](len([]rune(s.content)))
	return FromInt(n), err
}
