package bridge

import (
	abi "github.com/woxQAQ/wbg-host/api/wasm"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

// Handle identifies a heap slot across the boundary.
type Handle = uint32

// freeSlot is a freelist link stored in a released slot.
type freeSlot uint32

// Heap is the host-side slot table. Released slots are threaded into a
// freelist through the slot storage itself.
type Heap struct {
	slots []any
	next  uint32
	live  int
}

// NewHeap creates a heap with the reserved layout: a run of undefined
// sentinels followed by undefined, null, true and false.
func NewHeap() *Heap {
	slots := make([]any, 0, abi.ReservedHandles+32)
	for i := 0; i < abi.SentinelSlots; i++ {
		slots = append(slots, jsval.Undefined)
	}
	slots = append(slots, jsval.Undefined, nil, true, false)

	return &Heap{
		slots: slots,
		next:  uint32(len(slots)),
	}
}

// Alloc stores v and returns its handle.
func (h *Heap) Alloc(v any) Handle {
	if h.next == uint32(len(h.slots)) {
		h.slots = append(h.slots, freeSlot(len(h.slots)+1))
	}
	idx := h.next
	h.next = uint32(h.slots[idx].(freeSlot))
	h.slots[idx] = v
	h.live++
	return idx
}

// Get returns the value at handle. Free or out-of-range handles yield
// undefined.
func (h *Heap) Get(handle Handle) any {
	v, _ := h.Lookup(handle)
	return v
}

// Lookup returns the value at handle and whether the slot is live.
func (h *Heap) Lookup(handle Handle) (any, bool) {
	if int(handle) >= len(h.slots) {
		return jsval.Undefined, false
	}
	v := h.slots[handle]
	if _, free := v.(freeSlot); free {
		return jsval.Undefined, false
	}
	return v, true
}

// Drop releases handle. Reserved handles are never reclaimed.
func (h *Heap) Drop(handle Handle) {
	if handle < abi.ReservedHandles || int(handle) >= len(h.slots) {
		return
	}
	if _, free := h.slots[handle].(freeSlot); free {
		return
	}
	h.slots[handle] = freeSlot(h.next)
	h.next = handle
	h.live--
}

// Take returns the value at handle and releases it.
func (h *Heap) Take(handle Handle) any {
	v := h.Get(handle)
	h.Drop(handle)
	return v
}

// Clone allocates a second handle for the value at handle.
func (h *Heap) Clone(handle Handle) Handle {
	return h.Alloc(h.Get(handle))
}

// Live returns the number of live non-reserved handles.
func (h *Heap) Live() int {
	return h.live
}

// Len returns the number of slots, reserved ones included.
func (h *Heap) Len() int {
	return len(h.slots)
}

// FreeHead returns the head of the freelist; it equals Len when the freelist
// is empty.
func (h *Heap) FreeHead() Handle {
	return h.next
}
