package bridge

import (
	"context"
	"fmt"
)

// fakeMemory is a growable linear memory.
type fakeMemory struct {
	buf    []byte
	onGrow func()
}

func (m *fakeMemory) Bytes() []byte { return m.buf }

func (m *fakeMemory) grow(size int) {
	next := make([]byte, size)
	copy(next, m.buf)
	m.buf = next
	if m.onGrow != nil {
		m.onGrow()
	}
}

type destroyCall struct {
	dtor, a, b uint32
}

// fakeExports implements Exports with a bump allocator.
type fakeExports struct {
	mem        *fakeMemory
	top        uint32
	noRealloc  bool
	reallocs   int
	frees      int
	exceptions []uint32
	destroyed  []destroyCall
}

func newFakeExports(size int) *fakeExports {
	return &fakeExports{mem: &fakeMemory{buf: make([]byte, size)}, top: 8}
}

func (e *fakeExports) Malloc(_ context.Context, size, align uint32) (uint32, error) {
	if align == 0 {
		return 0, fmt.Errorf("bad alignment")
	}
	ptr := (e.top + align - 1) / align * align
	end := ptr + size
	if int(end) > len(e.mem.buf) {
		e.mem.grow(int(end) * 2)
	}
	e.top = end
	return ptr, nil
}

func (e *fakeExports) Realloc(ctx context.Context, ptr, oldSize, newSize, align uint32) (uint32, error) {
	e.reallocs++
	next, err := e.Malloc(ctx, newSize, align)
	if err != nil {
		return 0, err
	}
	copy(e.mem.buf[next:next+oldSize], e.mem.buf[ptr:ptr+oldSize])
	return next, nil
}

func (e *fakeExports) HasRealloc() bool { return !e.noRealloc }

func (e *fakeExports) Free(context.Context, uint32, uint32, uint32) error {
	e.frees++
	return nil
}

func (e *fakeExports) StoreException(_ context.Context, handle uint32) error {
	e.exceptions = append(e.exceptions, handle)
	return nil
}

func (e *fakeExports) Destroy(_ context.Context, dtor, a, b uint32) error {
	e.destroyed = append(e.destroyed, destroyCall{dtor: dtor, a: a, b: b})
	return nil
}
