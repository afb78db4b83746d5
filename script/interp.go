// Package script runs small Ruby-flavored scripts against the garnet
// runtime. It exists to drive hashes from the command line and from tests:
// literals, local variables, message sends, blocks and a handful of
// top-level functions (p, puts, proc, gc, raise).
package script

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/garnet/vm"
)

// Error is a runtime error annotated with the script line it came from.
type Error struct {
	Pos Position
	Err error
}

func (e *Error) Error() string {
	var rerr *vm.RubyError
	if errors.As(e.Err, &rerr) {
		return fmt.Sprintf("line %d: %s (%s)", e.Pos.Line, rerr.Message, rerr.ClassName())
	}
	return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets where p and puts write. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithCollectThreshold makes the interpreter collect garbage between
// top-level statements once n objects have been allocated since the last
// collection. Zero disables automatic collection.
func WithCollectThreshold(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.threshold = uint64(n)
		}
	}
}

// Interpreter evaluates scripts. Variables persist across Eval calls.
type Interpreter struct {
	vm        *vm.VM
	out       io.Writer
	globals   *scope
	threshold uint64
	mark      uint64
	log       commonlog.Logger
}

// New creates an interpreter bound to rt.
func New(rt *vm.VM, opts ...Option) *Interpreter {
	in := &Interpreter{
		vm:      rt,
		out:     io.Discard,
		globals: newScope(nil),
		log:     commonlog.GetLogger("garnet.script"),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.mark = rt.Heap.Allocations()
	return in
}

// VM returns the runtime the interpreter evaluates against.
func (in *Interpreter) VM() *vm.VM { return in.vm }

// Eval parses and runs src, returning the value of the last statement.
func (in *Interpreter) Eval(src string) (vm.Value, error) {
	return in.EvalEach(src, nil)
}

// EvalEach is Eval that also passes the value of every top-level statement
// to each, when non-nil.
func (in *Interpreter) EvalEach(src string, each func(vm.Value)) (vm.Value, error) {
	stmts, err := Parse(src)
	if err != nil {
		return vm.Undefined, err
	}
	result := vm.Nil
	for _, stmt := range stmts {
		if result, err = in.eval(stmt, in.globals); err != nil {
			return vm.Undefined, err
		}
		if each != nil {
			each(result)
		}
		in.maybeCollect(result)
	}
	return result, nil
}

// Run evaluates everything read from r.
func (in *Interpreter) Run(r io.Reader) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	_, err = in.Eval(string(src))
	return err
}

// Lookup returns a top-level variable.
func (in *Interpreter) Lookup(name string) (vm.Value, bool) {
	return in.globals.lookup(name)
}

// Set binds a top-level variable.
func (in *Interpreter) Set(name string, v vm.Value) {
	in.globals.vars[name] = v
}

// Variables returns the names of the top-level variables.
func (in *Interpreter) Variables() []string {
	names := make([]string, 0, len(in.globals.vars))
	for name := range in.globals.vars {
		names = append(names, name)
	}
	return names
}

// Roots returns every value bound to a top-level variable.
func (in *Interpreter) Roots() []vm.Value {
	roots := make([]vm.Value, 0, len(in.globals.vars))
	for _, v := range in.globals.vars {
		roots = append(roots, v)
	}
	return roots
}

// Collect runs a collection rooted at the top-level variables and extra.
func (in *Interpreter) Collect(extra ...vm.Value) *vm.HeapStats {
	stats := in.vm.Heap.Collect(append(in.Roots(), extra...)...)
	in.mark = in.vm.Heap.Allocations()
	return stats
}

func (in *Interpreter) maybeCollect(last vm.Value) {
	if in.threshold == 0 || in.vm.Heap.Allocations()-in.mark < in.threshold {
		return
	}
	stats := in.Collect(last)
	in.log.Debugf("automatic collection swept %d objects", stats.Swept)
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

type scope struct {
	parent *scope
	vars   map[string]vm.Value
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: make(map[string]vm.Value)}
}

func (s *scope) lookup(name string) (vm.Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return vm.Undefined, false
}

// assign updates the innermost scope that already binds name, or binds it
// in s.
func (s *scope) assign(name string, v vm.Value) {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = v
			return
		}
	}
	s.vars[name] = v
}

func (s *scope) values() []vm.Value {
	var out []vm.Value
	for sc := s; sc != nil; sc = sc.parent {
		for _, v := range sc.vars {
			out = append(out, v)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

func (in *Interpreter) eval(e Expr, sc *scope) (vm.Value, error) {
	rt := in.vm
	switch e := e.(type) {
	case *IntLit:
		return vm.FromInt(e.Value), nil
	case *FloatLit:
		return rt.NewFloat(e.Value), nil
	case *StringLit:
		return rt.NewString(e.Value), nil
	case *SymbolLit:
		return rt.Symbol(e.Name), nil
	case *NilLit:
		return vm.Nil, nil
	case *TrueLit:
		return vm.True, nil
	case *FalseLit:
		return vm.False, nil

	case *Variable:
		if v, ok := sc.lookup(e.Name); ok {
			return v, nil
		}
		return in.callFunction(&Send{Pos: e.Pos, Name: e.Name}, sc)

	case *Constant:
		c := rt.Classes.Lookup(e.Name)
		if c == nil {
			return vm.Undefined, &Error{Pos: e.Pos, Err: vm.NameError("uninitialized constant %s", e.Name)}
		}
		return vm.FromObject(c), nil

	case *Assign:
		v, err := in.eval(e.Value, sc)
		if err != nil {
			return vm.Undefined, err
		}
		sc.assign(e.Name, v)
		return v, nil

	case *ArrayLit:
		elems, err := in.evalAll(e.Elements, sc)
		if err != nil {
			return vm.Undefined, err
		}
		return vm.FromObject(rt.NewArray(elems...)), nil

	case *HashLit:
		return in.evalHash(e, sc)

	case *Send:
		if e.Receiver == nil {
			return in.callFunction(e, sc)
		}
		return in.evalSend(e, sc)
	}
	return vm.Undefined, fmt.Errorf("line %d: cannot evaluate %T", e.Position().Line, e)
}

func (in *Interpreter) evalAll(exprs []Expr, sc *scope) ([]vm.Value, error) {
	out := make([]vm.Value, 0, len(exprs))
	for _, x := range exprs {
		v, err := in.eval(x, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (in *Interpreter) evalHash(e *HashLit, sc *scope) (vm.Value, error) {
	h := in.vm.NewHashWithCapacity(len(e.Keys))
	for i := range e.Keys {
		k, err := in.eval(e.Keys[i], sc)
		if err != nil {
			return vm.Undefined, err
		}
		v, err := in.eval(e.Values[i], sc)
		if err != nil {
			return vm.Undefined, err
		}
		if err := h.Put(in.vm, k, v); err != nil {
			return vm.Undefined, &Error{Pos: e.Keys[i].Position(), Err: err}
		}
	}
	return h.Value(), nil
}

func (in *Interpreter) evalSend(e *Send, sc *scope) (vm.Value, error) {
	recv, err := in.eval(e.Receiver, sc)
	if err != nil {
		return vm.Undefined, err
	}
	args, err := in.evalAll(e.Args, sc)
	if err != nil {
		return vm.Undefined, err
	}

	var blk *vm.ProcObject
	if e.Block != nil {
		blk = in.makeProc(e.Block, sc)
	}

	v, err := in.vm.Send(recv, e.Name, args, blk)
	if err != nil {
		var serr *Error
		if errors.As(err, &serr) {
			return vm.Undefined, err
		}
		return vm.Undefined, &Error{Pos: e.Pos, Err: err}
	}
	return v, nil
}

// makeProc turns a block literal into a proc closing over sc.
func (in *Interpreter) makeProc(b *Block, sc *scope) *vm.ProcObject {
	params := b.Params
	body := b.Body
	return in.vm.NewProc(len(params), func(rt *vm.VM, args []vm.Value) (vm.Value, error) {
		local := newScope(sc)
		for i, name := range params {
			if i < len(args) {
				local.vars[name] = args[i]
			} else {
				local.vars[name] = vm.Nil
			}
		}
		result := vm.Nil
		for _, stmt := range body {
			var err error
			if result, err = in.eval(stmt, local); err != nil {
				return vm.Undefined, err
			}
		}
		return result, nil
	}, sc.values()...)
}

// callFunction evaluates a receiverless call.
func (in *Interpreter) callFunction(e *Send, sc *scope) (vm.Value, error) {
	rt := in.vm
	args, err := in.evalAll(e.Args, sc)
	if err != nil {
		return vm.Undefined, err
	}
	fail := func(err error) (vm.Value, error) {
		return vm.Undefined, &Error{Pos: e.Pos, Err: err}
	}

	switch e.Name {
	case "p":
		for _, a := range args {
			fmt.Fprintln(in.out, rt.Inspect(a))
		}
		switch len(args) {
		case 0:
			return vm.Nil, nil
		case 1:
			return args[0], nil
		}
		return vm.FromObject(rt.NewArray(args...)), nil

	case "puts":
		if len(args) == 0 {
			fmt.Fprintln(in.out)
		}
		for _, a := range args {
			s, err := in.toS(a)
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(in.out, s)
		}
		return vm.Nil, nil

	case "proc", "lambda":
		if e.Block == nil {
			return fail(vm.ArgumentError("tried to create Proc object without a block"))
		}
		return vm.FromObject(in.makeProc(e.Block, sc)), nil

	case "gc":
		stats := in.Collect(sc.values()...)
		return vm.FromInt(int64(stats.Swept)), nil

	case "raise":
		msg := "unhandled exception"
		if len(args) > 0 {
			s, err := in.toS(args[0])
			if err != nil {
				return fail(err)
			}
			msg = s
		}
		return fail(vm.RuntimeError("%s", msg))
	}

	if len(e.Args) == 0 && e.Block == nil {
		return fail(vm.NameError("undefined local variable or method '%s' for main", e.Name))
	}
	return fail(&vm.RubyError{
		Kind:    vm.KindNoMethodError,
		Message: fmt.Sprintf("undefined method '%s' for main", e.Name),
	})
}

func (in *Interpreter) toS(v vm.Value) (string, error) {
	s, err := in.vm.Call(v, "to_s")
	if err != nil {
		return "", err
	}
	if str, ok := vm.As[*vm.StringObject](s); ok {
		return str.String(), nil
	}
	return in.vm.Inspect(s), nil
}

// FormatResult renders a value the way an interactive session echoes it.
func (in *Interpreter) FormatResult(v vm.Value) string {
	return "=> " + strings.TrimSpace(in.vm.Inspect(v))
}
