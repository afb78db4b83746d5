package vm

import (
	"testing"
)

func TestInspect(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("Gadget", nil)

	h, _ := vm.NewHashFromPairs(
		vm.Symbol("plain"), FromInt(1),
		vm.Symbol("needs quotes"), FromInt(2),
		vm.NewString("str"), Nil)

	tests := []struct {
		v    Value
		want string
	}{
		{FromInt(-12), "-12"},
		{FromInt(5).Hydrated(vm.Heap), "5"},
		{vm.NewFloat(1), "1.0"},
		{vm.NewFloat(2.5), "2.5"},
		{Nil, "nil"},
		{True, "true"},
		{False, "false"},
		{vm.NewString("a\"b"), `"a\"b"`},
		{vm.Symbol("sym"), ":sym"},
		{vm.Symbol("ok?"), ":ok?"},
		{vm.Symbol("a b"), `:"a b"`},
		{FromObject(vm.NewArray()), "[]"},
		{FromObject(vm.NewArray(FromInt(1), vm.NewString("x"))), `[1, "x"]`},
		{vm.NewHash().Value(), "{}"},
		{h.Value(), `{plain: 1, :"needs quotes" => 2, "str" => nil}`},
		{FromObject(vm.NewObject(c)), "#<Gadget>"},
		{FromObject(c), "Gadget"},
		{FromObject(vm.NewProc(0, nil)), "#<Proc>"},
	}
	for _, tt := range tests {
		if got := vm.Inspect(tt.v); got != tt.want {
			t.Errorf("Inspect = %s, want %s", got, tt.want)
		}
	}
}

func TestInspectUsesUserMethod(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("Money", nil)
	c.AddMethod0("inspect", func(vm *VM, self Value, _ []Value, _ *ProcObject) (Value, error) {
		return vm.NewString("$5"), nil
	})

	h, _ := vm.NewHashFromPairs(vm.Symbol("price"), FromObject(vm.NewObject(c)))
	if got := vm.Inspect(h.Value()); got != "{price: $5}" {
		t.Errorf("Inspect = %s", got)
	}
}

func TestInspectSelfReferentialArray(t *testing.T) {
	vm := NewVM()
	a := vm.NewArray(FromInt(1))
	a.Push(FromObject(a))

	if got := vm.Inspect(FromObject(a)); got != "[1, [...]]" {
		t.Errorf("Inspect = %s", got)
	}
}
