package jsval

import "math"

// ArrayBuffer is a fixed-length byte buffer.
type ArrayBuffer struct {
	Data []byte
}

func (b *ArrayBuffer) ClassName() string { return "ArrayBuffer" }

// GetProperty exposes byteLength.
func (b *ArrayBuffer) GetProperty(key string) (any, bool) {
	if key == "byteLength" {
		return float64(len(b.Data)), true
	}
	return nil, false
}

// Uint8Array is a byte view over an ArrayBuffer.
type Uint8Array struct {
	Buffer *ArrayBuffer
	Offset int
	Length int
}

// NewUint8Array allocates a zeroed array of n bytes.
func NewUint8Array(n int) *Uint8Array {
	return &Uint8Array{Buffer: &ArrayBuffer{Data: make([]byte, n)}, Length: n}
}

// Uint8ArrayOf copies data into a new array.
func Uint8ArrayOf(data []byte) *Uint8Array {
	a := NewUint8Array(len(data))
	copy(a.Bytes(), data)
	return a
}

// Uint8ArrayFrom implements new Uint8Array(source) for buffers, typed
// arrays, arrays and lengths.
func Uint8ArrayFrom(source any) (*Uint8Array, error) {
	switch t := source.(type) {
	case *ArrayBuffer:
		return &Uint8Array{Buffer: t, Length: len(t.Data)}, nil
	case *Uint8Array:
		return Uint8ArrayOf(t.Bytes()), nil
	case *Array:
		a := NewUint8Array(len(t.Elems))
		for i, e := range t.Elems {
			n, err := ToNumber(e)
			if err != nil {
				return nil, err
			}
			a.Buffer.Data[i] = toUint8(n)
		}
		return a, nil
	case undefinedType, nil:
		return NewUint8Array(0), nil
	}
	if n, ok := Number(source); ok {
		if n < 0 || math.IsNaN(n) || n != math.Trunc(n) || n > 1<<31 {
			return nil, NewRangeError("Invalid typed array length: " + FormatNumber(n))
		}
		return NewUint8Array(int(n)), nil
	}
	return NewUint8Array(0), nil
}

func toUint8(n float64) byte {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return byte(int64(n))
}

func (a *Uint8Array) ClassName() string { return "Uint8Array" }

// Bytes returns the viewed bytes without copying.
func (a *Uint8Array) Bytes() []byte {
	return a.Buffer.Data[a.Offset : a.Offset+a.Length]
}

// Len returns the element count.
func (a *Uint8Array) Len() int { return a.Length }

// Set copies src into the array at offset.
func (a *Uint8Array) Set(src []byte, offset int) error {
	if offset < 0 || offset+len(src) > a.Length {
		return NewRangeError("offset is out of bounds")
	}
	copy(a.Bytes()[offset:], src)
	return nil
}

// GetProperty exposes length, buffer and indexed reads.
func (a *Uint8Array) GetProperty(key string) (any, bool) {
	switch key {
	case "length", "byteLength":
		return float64(a.Length), true
	case "byteOffset":
		return float64(a.Offset), true
	case "buffer":
		return a.Buffer, true
	}
	if i, ok := arrayIndex(key); ok {
		if i < a.Length {
			return float64(a.Bytes()[i]), true
		}
		return Undefined, true
	}
	return nil, false
}

// SetProperty implements indexed writes.
func (a *Uint8Array) SetProperty(key string, v any) error {
	i, ok := arrayIndex(key)
	if !ok || i >= a.Length {
		return nil
	}
	n, err := ToNumber(v)
	if err != nil {
		return err
	}
	a.Bytes()[i] = toUint8(n)
	return nil
}

// Iterator yields the byte values.
func (a *Uint8Array) Iterator() *Iterator {
	i := 0
	return NewIterator(func() (any, bool) {
		if i >= a.Length {
			return Undefined, true
		}
		v := a.Bytes()[i]
		i++
		return float64(v), false
	})
}
