package bridge

import (
	"errors"
	"fmt"
)

// ErrDetached is returned when the bridge has no guest exports attached.
var ErrDetached = errors.New("bridge is not attached to a module instance")

// InvalidEncodingError occurs when guest bytes are not valid UTF-8.
type InvalidEncodingError struct {
	Ptr    uint32
	Len    uint32
	Offset int
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("invalid UTF-8 in guest string (ptr=%d, len=%d) at byte %d",
		e.Ptr, e.Len, e.Offset)
}

// OutOfBoundsError occurs when a guest range lies outside linear memory.
type OutOfBoundsError struct {
	Op   string
	Ptr  uint32
	Len  uint32
	Size int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("memory access out of bounds (op=%s, ptr=%d, len=%d, size=%d)",
		e.Op, e.Ptr, e.Len, e.Size)
}

// ClosureError occurs when a closure destructor fails.
type ClosureError struct {
	Destructor uint32
	Err        error
}

func (e *ClosureError) Error() string {
	return fmt.Sprintf("closure destructor %d failed: %v", e.Destructor, e.Err)
}

func (e *ClosureError) Unwrap() error {
	return e.Err
}
