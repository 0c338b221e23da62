package jsval

import "errors"

// Error is a host Error object. It doubles as a Go error so host operations
// can throw it directly.
type Error struct {
	Name    string
	Message string
	Stack   string
	Cause   any
}

func newError(name, msg string) *Error {
	e := &Error{Name: name, Message: msg}
	e.Stack = e.Error() + "\n    at wbg host"
	return e
}

// NewError creates an Error.
func NewError(msg string) *Error { return newError("Error", msg) }

// NewTypeError creates a TypeError.
func NewTypeError(msg string) *Error { return newError("TypeError", msg) }

// NewRangeError creates a RangeError.
func NewRangeError(msg string) *Error { return newError("RangeError", msg) }

// NewSyntaxError creates a SyntaxError.
func NewSyntaxError(msg string) *Error { return newError("SyntaxError", msg) }

// NewURIError creates a URIError.
func NewURIError(msg string) *Error { return newError("URIError", msg) }

// NewReferenceError creates a ReferenceError.
func NewReferenceError(msg string) *Error { return newError("ReferenceError", msg) }

// NewEvalError creates an EvalError.
func NewEvalError(msg string) *Error { return newError("EvalError", msg) }

// NewDOMException creates a DOMException with the given name, e.g.
// "InvalidCharacterError".
func NewDOMException(name, msg string) *Error {
	e := newError(name, msg)
	e.Stack = e.Error()
	return e
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

func (e *Error) ClassName() string {
	switch e.Name {
	case "Error", "TypeError", "RangeError", "SyntaxError", "URIError", "EvalError", "ReferenceError":
		return e.Name
	}
	return "DOMException"
}

// Thrown carries an arbitrary thrown value through Go error returns.
type Thrown struct {
	Value any
}

func (t *Thrown) Error() string {
	return "uncaught " + ToString(t.Value)
}

// Throw wraps v as an error.
func Throw(v any) error {
	if e, ok := v.(*Error); ok {
		return e
	}
	return &Thrown{Value: v}
}

// ThrownValue recovers the host value carried by err. Plain Go errors become
// Error objects.
func ThrownValue(err error) any {
	var thrown *Thrown
	if errors.As(err, &thrown) {
		return thrown.Value
	}
	var hostErr *Error
	if errors.As(err, &hostErr) {
		return hostErr
	}
	return NewError(err.Error())
}
