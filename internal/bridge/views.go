package bridge

import (
	"encoding/binary"
	"math"
)

// Memory is the guest's linear memory.
type Memory interface {
	// Bytes returns the current backing buffer.
	Bytes() []byte
}

// Views caches typed views over guest memory. A cached view of length zero
// is rebuilt on the next request; Invalidate resets every view to that
// state after the buffer is replaced.
type Views struct {
	mem Memory

	u8  []byte
	i32 Int32Array
	i64 BigInt64Array
	f64 Float64Array
}

// NewViews creates a view cache over mem.
func NewViews(mem Memory) *Views {
	return &Views{mem: mem}
}

// Uint8 returns the byte view.
func (v *Views) Uint8() []byte {
	if len(v.u8) == 0 {
		v.u8 = v.bytes()
	}
	return v.u8
}

// Int32 returns the int32 view.
func (v *Views) Int32() Int32Array {
	if v.i32.Len() == 0 {
		v.i32 = Int32Array{buf: v.bytes()}
	}
	return v.i32
}

// BigInt64 returns the int64 view.
func (v *Views) BigInt64() BigInt64Array {
	if v.i64.Len() == 0 {
		v.i64 = BigInt64Array{buf: v.bytes()}
	}
	return v.i64
}

// Float64 returns the float64 view.
func (v *Views) Float64() Float64Array {
	if v.f64.Len() == 0 {
		v.f64 = Float64Array{buf: v.bytes()}
	}
	return v.f64
}

// Invalidate drops every cached view.
func (v *Views) Invalidate() {
	v.u8 = nil
	v.i32 = Int32Array{}
	v.i64 = BigInt64Array{}
	v.f64 = Float64Array{}
}

func (v *Views) bytes() []byte {
	if v.mem == nil {
		return nil
	}
	return v.mem.Bytes()
}

// Read returns the guest range [ptr, ptr+n) without copying.
func (v *Views) Read(ptr, n uint32) ([]byte, error) {
	mem := v.Uint8()
	end := uint64(ptr) + uint64(n)
	if end > uint64(len(mem)) {
		return nil, &OutOfBoundsError{Op: "read", Ptr: ptr, Len: n, Size: len(mem)}
	}
	return mem[ptr:end], nil
}

// Write copies data to ptr.
func (v *Views) Write(ptr uint32, data []byte) error {
	mem := v.Uint8()
	end := uint64(ptr) + uint64(len(data))
	if end > uint64(len(mem)) {
		return &OutOfBoundsError{Op: "write", Ptr: ptr, Len: uint32(len(data)), Size: len(mem)}
	}
	copy(mem[ptr:end], data)
	return nil
}

// Int32Array views memory as little-endian int32 elements.
type Int32Array struct{ buf []byte }

// Len returns the element count.
func (a Int32Array) Len() int { return len(a.buf) / 4 }

// At returns element i.
func (a Int32Array) At(i int) int32 {
	return int32(binary.LittleEndian.Uint32(a.buf[i*4:]))
}

// Set stores element i.
func (a Int32Array) Set(i int, v int32) {
	binary.LittleEndian.PutUint32(a.buf[i*4:], uint32(v))
}

// BigInt64Array views memory as little-endian int64 elements.
type BigInt64Array struct{ buf []byte }

// Len returns the element count.
func (a BigInt64Array) Len() int { return len(a.buf) / 8 }

// At returns element i.
func (a BigInt64Array) At(i int) int64 {
	return int64(binary.LittleEndian.Uint64(a.buf[i*8:]))
}

// Set stores element i.
func (a BigInt64Array) Set(i int, v int64) {
	binary.LittleEndian.PutUint64(a.buf[i*8:], uint64(v))
}

// Float64Array views memory as little-endian float64 elements.
type Float64Array struct{ buf []byte }

// Len returns the element count.
func (a Float64Array) Len() int { return len(a.buf) / 8 }

// At returns element i.
func (a Float64Array) At(i int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(a.buf[i*8:]))
}

// Set stores element i.
func (a Float64Array) Set(i int, v float64) {
	binary.LittleEndian.PutUint64(a.buf[i*8:], math.Float64bits(v))
}
