package jsval

// Function is a callable host value.
type Function struct {
	Name string

	// Original is the value the function was created for, e.g. the state of
	// a closure wrapper. The bridge uses it to release closures.
	Original any

	fn func(this any, args []any) (any, error)
}

// NewFunction creates a function value.
func NewFunction(name string, fn func(this any, args []any) (any, error)) *Function {
	return &Function{Name: name, fn: fn}
}

// Invoke calls the function with the given receiver.
func (f *Function) Invoke(this any, args ...any) (any, error) {
	if f == nil || f.fn == nil {
		return nil, NewTypeError("value is not a function")
	}
	return f.fn(this, args)
}

// Call invokes v as a function.
func Call(v, this any, args ...any) (any, error) {
	f, ok := v.(*Function)
	if !ok {
		return nil, NewTypeError(TypeOf(v) + " is not a function")
	}
	return f.Invoke(this, args...)
}
