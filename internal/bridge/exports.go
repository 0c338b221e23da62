package bridge

import "context"

// Exports is the set of guest exports the bridge calls back into.
type Exports interface {
	// Malloc allocates size bytes with the given alignment.
	Malloc(ctx context.Context, size, align uint32) (uint32, error)

	// Realloc resizes an allocation. Only called when HasRealloc is true.
	Realloc(ctx context.Context, ptr, oldSize, newSize, align uint32) (uint32, error)

	// HasRealloc reports whether the guest exports a reallocator.
	HasRealloc() bool

	// Free releases an allocation.
	Free(ctx context.Context, ptr, size, align uint32) error

	// StoreException hands a boxed exception to the guest's exception slot.
	StoreException(ctx context.Context, handle uint32) error

	// Destroy calls the closure destructor at table index dtor with (a, b).
	Destroy(ctx context.Context, dtor, a, b uint32) error
}
