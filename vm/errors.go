package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Language errors
// ---------------------------------------------------------------------------

// ErrorKind identifies the language-level class of a RubyError.
type ErrorKind int

const (
	KindStandardError ErrorKind = iota
	KindArgumentError
	KindKeyError
	KindTypeError
	KindRuntimeError
	KindFrozenError
	KindNoMethodError
	KindNameError
)

var errorKindNames = [...]string{
	KindStandardError: "StandardError",
	KindArgumentError: "ArgumentError",
	KindKeyError:      "KeyError",
	KindTypeError:     "TypeError",
	KindRuntimeError:  "RuntimeError",
	KindFrozenError:   "FrozenError",
	KindNoMethodError: "NoMethodError",
	KindNameError:     "NameError",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "StandardError"
}

// RubyError is an error raised by runtime operations. Its Message matches
// the wording scripts observe in the reference implementation.
type RubyError struct {
	Kind    ErrorKind
	Message string

	// Receiver and Key are set for KeyError.
	Receiver Value
	Key      Value
}

func (e *RubyError) Error() string {
	return e.Message
}

// ClassName returns the name of the language exception class.
func (e *RubyError) ClassName() string {
	return e.Kind.String()
}

// Is matches any RubyError of the same kind, so callers can write
// errors.Is(err, vm.ErrKeyError).
func (e *RubyError) Is(target error) bool {
	t, ok := target.(*RubyError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrArgumentError = &RubyError{Kind: KindArgumentError}
	ErrKeyError      = &RubyError{Kind: KindKeyError}
	ErrTypeError     = &RubyError{Kind: KindTypeError}
	ErrRuntimeError  = &RubyError{Kind: KindRuntimeError}
	ErrFrozenError   = &RubyError{Kind: KindFrozenError}
	ErrNoMethodError = &RubyError{Kind: KindNoMethodError}
	ErrNameError     = &RubyError{Kind: KindNameError}
)

func newError(kind ErrorKind, format string, args ...any) *RubyError {
	return &RubyError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ArgumentError creates an ArgumentError.
func ArgumentError(format string, args ...any) *RubyError {
	return newError(KindArgumentError, format, args...)
}

// TypeError creates a TypeError.
func TypeError(format string, args ...any) *RubyError {
	return newError(KindTypeError, format, args...)
}

// RuntimeError creates a RuntimeError.
func RuntimeError(format string, args ...any) *RubyError {
	return newError(KindRuntimeError, format, args...)
}

// ConcurrentModificationError is raised when a structural mutation is
// attempted while the hash is being iterated.
func ConcurrentModificationError(format string, args ...any) *RubyError {
	return newError(KindRuntimeError, format, args...)
}

// KeyError creates a KeyError for a missing key.
func (vm *VM) KeyError(receiver, key Value) *RubyError {
	e := newError(KindKeyError, "key not found: %s", vm.Inspect(key))
	e.Receiver = receiver
	e.Key = key
	return e
}

// FrozenError creates a FrozenError for a mutation on a frozen receiver.
func (vm *VM) FrozenError(receiver Value) *RubyError {
	return newError(KindFrozenError, "can't modify frozen %s: %s",
		vm.ClassOf(receiver).Name, vm.Inspect(receiver))
}

// NoMethodError creates a NoMethodError.
func (vm *VM) NoMethodError(receiver Value, name string) *RubyError {
	return newError(KindNoMethodError, "undefined method '%s' for %s",
		name, vm.describeReceiver(receiver))
}

// NameError creates a NameError for an unresolvable bare name.
func NameError(format string, args ...any) *RubyError {
	return newError(KindNameError, format, args...)
}

func (vm *VM) describeReceiver(v Value) string {
	switch v.Type() {
	case TypeNil:
		return "nil"
	case TypeTrue:
		return "true"
	case TypeFalse:
		return "false"
	case TypeClass:
		return "class " + vm.Inspect(v)
	}
	return "an instance of " + vm.ClassOf(v).Name
}
