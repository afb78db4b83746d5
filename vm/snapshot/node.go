// Package snapshot converts runtime values to and from a portable tree that
// can be written as CBOR or MessagePack.
//
// Only data survives a snapshot: integers, floats, strings, symbols, nil,
// booleans, arrays and hashes (with their default value, comparison mode
// and frozen flag). Procs, classes and plain objects cannot be encoded.
package snapshot

import (
	"fmt"

	"github.com/chazu/garnet/vm"
)

// SchemaVersion is bumped whenever the Node layout changes.
const SchemaVersion uint16 = 1

// Kind tags a Node.
type Kind uint8

const (
	KindNil Kind = iota
	KindTrue
	KindFalse
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindArray
	KindHash
)

// Node is one value in a snapshot tree.
type Node struct {
	Kind   Kind    `cbor:"1,keyasint" msgpack:"k"`
	Int    int64   `cbor:"2,keyasint,omitempty" msgpack:"i,omitempty"`
	Float  float64 `cbor:"3,keyasint,omitempty" msgpack:"f,omitempty"`
	Str    string  `cbor:"4,keyasint,omitempty" msgpack:"s,omitempty"`
	Items  []Node  `cbor:"5,keyasint,omitempty" msgpack:"a,omitempty"`
	Keys   []Node  `cbor:"6,keyasint,omitempty" msgpack:"hk,omitempty"`
	Frozen bool    `cbor:"7,keyasint,omitempty" msgpack:"z,omitempty"`

	// Hash only.
	Identity bool  `cbor:"8,keyasint,omitempty" msgpack:"id,omitempty"`
	Default  *Node `cbor:"9,keyasint,omitempty" msgpack:"d,omitempty"`
}

// Snapshot is the top-level document.
type Snapshot struct {
	Schema uint16 `cbor:"1,keyasint" msgpack:"schema"`
	Root   Node   `cbor:"2,keyasint" msgpack:"root"`
}

// ErrUnsupported is returned for values that have no snapshot form.
type ErrUnsupported struct {
	Class string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("snapshot: cannot encode %s", e.Class)
}

// FromValue builds the snapshot tree for v. Hashes keep their entry order;
// a hash's Keys and Items are parallel slices. Default procs are dropped,
// and a value that contains itself is rejected.
func FromValue(rt *vm.VM, v vm.Value) (*Snapshot, error) {
	b := builder{rt: rt, active: make(map[vm.HeapObject]bool)}
	root, err := b.node(v)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Schema: SchemaVersion, Root: root}, nil
}

type builder struct {
	rt     *vm.VM
	active map[vm.HeapObject]bool
}

func (b *builder) node(v vm.Value) (Node, error) {
	if n, ok := v.TryInt64(); ok {
		return Node{Kind: KindInt, Int: n}, nil
	}
	switch v.Type() {
	case vm.TypeNil:
		return Node{Kind: KindNil}, nil
	case vm.TypeTrue:
		return Node{Kind: KindTrue}, nil
	case vm.TypeFalse:
		return Node{Kind: KindFalse}, nil
	case vm.TypeFloat:
		return Node{Kind: KindFloat, Float: v.Float64()}, nil
	case vm.TypeString:
		s, _ := vm.As[*vm.StringObject](v)
		return Node{Kind: KindString, Str: s.String(), Frozen: s.IsFrozen()}, nil
	case vm.TypeSymbol:
		s, _ := vm.As[*vm.SymbolObject](v)
		return Node{Kind: KindSymbol, Str: s.Name()}, nil
	case vm.TypeArray:
		a, _ := vm.As[*vm.ArrayObject](v)
		if err := b.enter(a); err != nil {
			return Node{}, err
		}
		defer delete(b.active, a)
		n := Node{Kind: KindArray, Frozen: a.IsFrozen(), Items: make([]Node, 0, a.Len())}
		for _, e := range a.Elements() {
			child, err := b.node(e)
			if err != nil {
				return Node{}, err
			}
			n.Items = append(n.Items, child)
		}
		return n, nil
	case vm.TypeHash:
		h, _ := vm.As[*vm.HashObject](v)
		return b.hash(h)
	}
	return Node{}, &ErrUnsupported{Class: b.rt.ClassOf(v).Name}
}

func (b *builder) hash(h *vm.HashObject) (Node, error) {
	if err := b.enter(h); err != nil {
		return Node{}, err
	}
	defer delete(b.active, h)

	n := Node{
		Kind:     KindHash,
		Frozen:   h.IsFrozen(),
		Identity: h.IsComparingByIdentity(),
		Keys:     make([]Node, 0, h.Len()),
		Items:    make([]Node, 0, h.Len()),
	}
	for k, v := range h.All() {
		kn, err := b.node(k)
		if err != nil {
			return Node{}, err
		}
		vn, err := b.node(v)
		if err != nil {
			return Node{}, err
		}
		n.Keys = append(n.Keys, kn)
		n.Items = append(n.Items, vn)
	}
	if d := h.Default(); !d.IsNil() && h.DefaultProc() == nil {
		dn, err := b.node(d)
		if err != nil {
			return Node{}, err
		}
		n.Default = &dn
	}
	return n, nil
}

func (b *builder) enter(obj vm.HeapObject) error {
	if b.active[obj] {
		return fmt.Errorf("snapshot: recursive %s", obj.Type())
	}
	b.active[obj] = true
	return nil
}

// ToValue rebuilds the value described by s inside rt.
func (s *Snapshot) ToValue(rt *vm.VM) (vm.Value, error) {
	if s.Schema != SchemaVersion {
		return vm.Undefined, fmt.Errorf("snapshot: unsupported schema %d (want %d)", s.Schema, SchemaVersion)
	}
	return s.Root.value(rt)
}

func (n *Node) value(rt *vm.VM) (vm.Value, error) {
	switch n.Kind {
	case KindNil:
		return vm.Nil, nil
	case KindTrue:
		return vm.True, nil
	case KindFalse:
		return vm.False, nil
	case KindInt:
		return vm.FromInt(n.Int), nil
	case KindFloat:
		return rt.NewFloat(n.Float), nil
	case KindString:
		v := rt.NewString(n.Str)
		if n.Frozen {
			v.Object().(*vm.StringObject).Freeze()
		}
		return v, nil
	case KindSymbol:
		return rt.Symbol(n.Str), nil
	case KindArray:
		elems := make([]vm.Value, 0, len(n.Items))
		for i := range n.Items {
			e, err := n.Items[i].value(rt)
			if err != nil {
				return vm.Undefined, err
			}
			elems = append(elems, e)
		}
		a := rt.NewArray(elems...)
		if n.Frozen {
			a.Freeze()
		}
		return vm.FromObject(a), nil
	case KindHash:
		return n.hashValue(rt)
	}
	return vm.Undefined, fmt.Errorf("snapshot: unknown node kind %d", n.Kind)
}

func (n *Node) hashValue(rt *vm.VM) (vm.Value, error) {
	if len(n.Keys) != len(n.Items) {
		return vm.Undefined, fmt.Errorf("snapshot: hash has %d keys and %d values", len(n.Keys), len(n.Items))
	}
	h := rt.NewHashWithCapacity(len(n.Keys))
	if n.Identity {
		if err := h.CompareByIdentity(rt); err != nil {
			return vm.Undefined, err
		}
	}
	for i := range n.Keys {
		k, err := n.Keys[i].value(rt)
		if err != nil {
			return vm.Undefined, err
		}
		v, err := n.Items[i].value(rt)
		if err != nil {
			return vm.Undefined, err
		}
		if err := h.Put(rt, k, v); err != nil {
			return vm.Undefined, err
		}
	}
	if n.Default != nil {
		d, err := n.Default.value(rt)
		if err != nil {
			return vm.Undefined, err
		}
		if err := h.SetDefault(rt, d); err != nil {
			return vm.Undefined, err
		}
	}
	if n.Frozen {
		h.Freeze()
	}
	return h.Value(), nil
}
