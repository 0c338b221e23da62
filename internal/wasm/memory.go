package wasm

import (
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
)

// Memory adapts a module's linear memory for the bridge. Bytes returns a
// view over the current buffer; it is invalidated by growth.
type Memory struct {
	mem api.Memory
}

// NewMemory creates a memory helper.
func NewMemory(module api.Module) *Memory {
	return &Memory{mem: module.Memory()}
}

// Bytes returns the whole linear memory without copying.
func (m *Memory) Bytes() []byte {
	if m.mem == nil {
		return nil
	}
	buf, _ := m.mem.Read(0, m.mem.Size())
	return buf
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// growthAllocator backs linear memories with plain slices and reports
// every reallocation, which is the only point the buffer can move.
type growthAllocator struct {
	onGrow func(size uint64)
}

func (a *growthAllocator) Allocate(capacity, maxSize uint64) experimental.LinearMemory {
	return &linearMemory{buf: make([]byte, 0, capacity), max: maxSize, onGrow: a.onGrow}
}

type linearMemory struct {
	buf    []byte
	max    uint64
	onGrow func(size uint64)
}

func (m *linearMemory) Reallocate(size uint64) []byte {
	if size > m.max {
		return nil
	}
	if size > uint64(cap(m.buf)) {
		next := make([]byte, size, max(size, min(2*uint64(cap(m.buf)), m.max)))
		copy(next, m.buf)
		m.buf = next
	} else {
		m.buf = m.buf[:size]
	}
	if m.onGrow != nil {
		m.onGrow(size)
	}
	return m.buf
}

func (m *linearMemory) Free() {
	m.buf = nil
}
