package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Inspect renders v the way the language's inspect method does. Hashes and
// arrays that contain themselves print the nested occurrence as {...} or
// [...]. Errors raised by user-defined inspect methods are swallowed and
// the default object form is printed instead.
func (vm *VM) Inspect(v Value) string {
	var b strings.Builder
	p := inspector{vm: vm, seen: make(map[HeapObject]bool)}
	p.write(&b, v)
	return b.String()
}

type inspector struct {
	vm   *VM
	seen map[HeapObject]bool
}

func (p *inspector) write(b *strings.Builder, v Value) {
	if n, ok := v.TryInt64(); ok {
		b.WriteString(strconv.FormatInt(n, 10))
		return
	}
	if v.IsUndefined() {
		b.WriteString("undefined")
		return
	}
	if p.vm.overrides(v, "inspect") {
		if res, err := p.vm.Call(v, "inspect"); err == nil {
			if s, ok := As[*StringObject](res); ok {
				b.WriteString(s.content)
				return
			}
		}
	}

	switch o := v.obj.(type) {
	case *NilObject:
		b.WriteString("nil")
	case *BoolObject:
		b.WriteString(strconv.FormatBool(o.value))
	case *FloatObject:
		b.WriteString(formatFloat(o.value))
	case *StringObject:
		b.WriteString(strconv.Quote(o.content))
	case *SymbolObject:
		b.WriteString(inspectSymbol(o.name))
	case *ArrayObject:
		if p.seen[o] {
			b.WriteString("[...]")
			return
		}
		p.seen[o] = true
		defer delete(p.seen, o)
		b.WriteByte('[')
		for i, e := range o.elements {
			if i > 0 {
				b.WriteString(", ")
			}
			p.write(b, e)
		}
		b.WriteByte(']')
	case *HashObject:
		if p.seen[o] {
			b.WriteString("{...}")
			return
		}
		p.seen[o] = true
		defer delete(p.seen, o)
		p.writeHash(b, o)
	case *ProcObject:
		b.WriteString("#<Proc>")
	case *Class:
		b.WriteString(o.Name)
	default:
		fmt.Fprintf(b, "#<%s>", p.vm.ClassOf(v).Name)
	}
}

func (p *inspector) writeHash(b *strings.Builder, h *HashObject) {
	if h.Len() == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteByte('{')
	first := true
	for _, ent := range h.engine.liveEntries() {
		k, v := ent.Key, ent.Val
		if !first {
			b.WriteString(", ")
		}
		first = false
		if sym, ok := As[*SymbolObject](k); ok && isPlainSymbol(sym.name) {
			b.WriteString(sym.name)
			b.WriteString(": ")
		} else {
			p.write(b, k)
			b.WriteString(" => ")
		}
		p.write(b, v)
	}
	b.WriteByte('}')
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func inspectSymbol(name string) string {
	if isPlainSymbol(name) {
		return ":" + name
	}
	return ":" + strconv.Quote(name)
}

// isPlainSymbol reports whether name can be written as :name without quotes.
func isPlainSymbol(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case (r == '?' || r == '!' || r == '=') && i == len(name)-1 && i > 0:
		default:
			return false
		}
	}
	return true
}
