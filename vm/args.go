package vm

// Args is a positional argument list passed to a method.
type Args []Value

// At returns the argument at index, or def when it was not supplied.
func (a Args) At(index int, def Value) Value {
	if index < 0 || index >= len(a) {
		return def
	}
	return a[index]
}

// EnsureArgcIs fails unless exactly expected arguments were given.
func (a Args) EnsureArgcIs(expected int) error {
	if len(a) != expected {
		return ArgumentError("wrong number of arguments (given %d, expected %d)", len(a), expected)
	}
	return nil
}

// EnsureArgcBetween fails unless low..high arguments were given.
func (a Args) EnsureArgcBetween(low, high int) error {
	if len(a) < low || len(a) > high {
		return ArgumentError("wrong number of arguments (given %d, expected %d..%d)", len(a), low, high)
	}
	return nil
}

// EnsureArgcAtLeast fails unless at least expected arguments were given.
func (a Args) EnsureArgcAtLeast(expected int) error {
	if len(a) < expected {
		return ArgumentError("wrong number of arguments (given %d, expected %d+)", len(a), expected)
	}
	return nil
}
