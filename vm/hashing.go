package vm

import (
	"math"

	"github.com/zeebo/xxh3"
)

// KeyHasher is the hashing and equality service a HashEngine consumes.
// In identity mode keys compare by reference; otherwise by eql?.
type KeyHasher interface {
	HashKey(key Value, identity bool) (int64, error)
	KeysEqual(a, b Value, identity bool) (bool, error)
}

// Salts keep values of different types that share a bit pattern apart.
const (
	intSalt    uint64 = 0x2545f4914f6cdd1d
	floatSalt  uint64 = 0x9e3779b97f4a7c15
	symbolSalt uint64 = 0xbf58476d1ce4e5b9
	cycleHash  uint64 = 0x5f3759df
	nilHash    uint64 = 0x8
	trueHash   uint64 = 0x14
	falseHash  uint64 = 0x0
)

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

func combineHash(h, x uint64) uint64 {
	return h ^ (x + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2))
}

// HashKey implements KeyHasher.
func (vm *VM) HashKey(key Value, identity bool) (int64, error) {
	if identity {
		return int64(mix64(key.identityKey())), nil
	}
	return vm.HashOf(key)
}

// KeysEqual implements KeyHasher. The same object is always its own key,
// even when it is not eql? to itself (a NaN Float).
func (vm *VM) KeysEqual(a, b Value, identity bool) (bool, error) {
	if Identical(a, b) {
		return true, nil
	}
	if identity {
		return false, nil
	}
	return vm.Eql(a, b)
}

// recursionKey names an operation in progress on a container, or on a pair
// of containers for comparisons. b is nil for hashing.
type recursionKey struct {
	op   string
	a, b HeapObject
}

// enterRecursion marks op on (a, b) as running. It reports false, and marks
// nothing, when op is already running on the same operands further up the
// stack. Callers release the mark with leaveRecursion.
func (vm *VM) enterRecursion(op string, a, b HeapObject) bool {
	k := recursionKey{op: op, a: a, b: b}
	if _, busy := vm.inProgress[k]; busy {
		return false
	}
	if vm.inProgress == nil {
		vm.inProgress = make(map[recursionKey]struct{})
	}
	vm.inProgress[k] = struct{}{}
	return true
}

func (vm *VM) leaveRecursion(op string, a, b HeapObject) {
	delete(vm.inProgress, recursionKey{op: op, a: a, b: b})
}

// HashOf computes the eql?-consistent hash code of v. Objects whose class
// defines its own hash method are asked through dispatch.
func (vm *VM) HashOf(v Value) (int64, error) {
	if n, ok := v.TryInt64(); ok {
		return int64(mix64(uint64(n) ^ intSalt)), nil
	}
	if vm.overrides(v, "hash") {
		res, err := vm.Call(v, "hash")
		if err != nil {
			return 0, err
		}
		res, err = vm.TryConvertToInt(res)
		if err != nil {
			return 0, err
		}
		return res.Int64(), nil
	}

	switch o := v.obj.(type) {
	case *NilObject:
		return int64(mix64(nilHash)), nil
	case *BoolObject:
		if o.value {
			return int64(mix64(trueHash)), nil
		}
		return int64(mix64(falseHash)), nil
	case *FloatObject:
		f := o.value
		if f == 0 {
			f = 0 // -0.0 eql? 0.0
		}
		return int64(mix64(math.Float64bits(f) ^ floatSalt)), nil
	case *StringObject:
		return int64(xxh3.HashStringSeed(o.content, vm.hashSeed)), nil
	case *SymbolObject:
		return int64(xxh3.HashStringSeed(o.name, vm.hashSeed^symbolSalt)), nil
	case *ArrayObject:
		if !vm.enterRecursion("hash", o, nil) {
			return int64(mix64(cycleHash)), nil
		}
		defer vm.leaveRecursion("hash", o, nil)
		h := uint64(len(o.elements))
		for _, e := range o.elements {
			eh, err := vm.HashOf(e)
			if err != nil {
				return 0, err
			}
			h = combineHash(h, uint64(eh))
		}
		return int64(mix64(h)), nil
	case *HashObject:
		return o.HashCode(vm)
	}
	return int64(mix64(v.identityKey())), nil
}

// Eql is key equality (eql?): no numeric type coercion, content equality
// for strings and containers, identity for everything else unless the
// class redefines eql?.
func (vm *VM) Eql(a, b Value) (bool, error) {
	if an, ok := a.TryInt64(); ok {
		bn, ok := b.TryInt64()
		return ok && an == bn, nil
	}
	if vm.overrides(a, "eql?") {
		res, err := vm.Call(a, "eql?", b)
		if err != nil {
			return false, err
		}
		return res.IsTruthy(), nil
	}

	switch x := a.obj.(type) {
	case *FloatObject:
		y, ok := As[*FloatObject](b)
		return ok && x.value == y.value, nil
	case *StringObject:
		y, ok := As[*StringObject](b)
		return ok && x.content == y.content, nil
	case *ArrayObject:
		y, ok := As[*ArrayObject](b)
		if !ok {
			return false, nil
		}
		return vm.elementsEqual("eql?", x, y, vm.Eql)
	case *HashObject:
		y, ok := As[*HashObject](b)
		if !ok {
			return false, nil
		}
		return x.Eql(vm, y)
	}
	return Identical(a, b), nil
}

// Equal is value equality (==): integers and floats compare numerically.
func (vm *VM) Equal(a, b Value) (bool, error) {
	if a.IsInteger() || a.IsFloat() {
		if b.IsInteger() && a.IsInteger() {
			return a.Int64() == b.Int64(), nil
		}
		if b.IsInteger() || b.IsFloat() {
			return a.Float64() == b.Float64(), nil
		}
		return false, nil
	}
	if vm.overrides(a, "==") {
		res, err := vm.Call(a, "==", b)
		if err != nil {
			return false, err
		}
		return res.IsTruthy(), nil
	}

	switch x := a.obj.(type) {
	case *StringObject:
		y, ok := As[*StringObject](b)
		return ok && x.content == y.content, nil
	case *ArrayObject:
		y, ok := As[*ArrayObject](b)
		if !ok {
			return false, nil
		}
		return vm.elementsEqual("==", x, y, vm.Equal)
	case *HashObject:
		y, ok := As[*HashObject](b)
		if !ok {
			return false, nil
		}
		return x.Eq(vm, y)
	}
	return Identical(a, b), nil
}

// elementsEqual compares arrays pairwise. A comparison that reaches the
// same pair of arrays again counts as equal.
func (vm *VM) elementsEqual(op string, x, y *ArrayObject, eq func(a, b Value) (bool, error)) (bool, error) {
	if x == y {
		return true, nil
	}
	if len(x.elements) != len(y.elements) {
		return false, nil
	}
	if !vm.enterRecursion(op, x, y) {
		return true, nil
	}
	defer vm.leaveRecursion(op, x, y)
	for i := range x.elements {
		same, err := eq(x.elements[i], y.elements[i])
		if err != nil || !same {
			return false, err
		}
	}
	return true, nil
}
