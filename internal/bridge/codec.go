package bridge

import (
	"context"
	"strings"
	"unicode/utf8"
)

// MallocFunc allocates size bytes in guest memory.
type MallocFunc func(ctx context.Context, size, align uint32) (uint32, error)

// ReallocFunc grows or shrinks a guest allocation.
type ReallocFunc func(ctx context.Context, ptr, oldSize, newSize, align uint32) (uint32, error)

// EncodeString writes s into guest memory as UTF-8 and returns the pointer
// and byte length.
//
// With a reallocator the region is first sized to the UTF-16 length of s and
// ASCII is copied byte by byte. At the first non-ASCII byte the region grows
// to offset + 3*units(rest) and the rest is copied in bulk. Without a
// reallocator the exact UTF-8 size is allocated once.
//
// Invalid UTF-8 in s is replaced with U+FFFD.
func (v *Views) EncodeString(ctx context.Context, s string, malloc MallocFunc, realloc ReallocFunc) (uint32, uint32, error) {
	s = strings.ToValidUTF8(s, "\uFFFD")

	if realloc == nil {
		ptr, err := malloc(ctx, uint32(len(s)), 1)
		if err != nil {
			return 0, 0, err
		}
		if err := v.Write(ptr, []byte(s)); err != nil {
			return 0, 0, err
		}
		return ptr, uint32(len(s)), nil
	}

	size := utf16Len(s)
	ptr, err := malloc(ctx, size, 1)
	if err != nil {
		return 0, 0, err
	}

	// malloc may have grown memory.
	region, err := v.Read(ptr, size)
	if err != nil {
		return 0, 0, err
	}

	offset := 0
	for ; offset < len(s); offset++ {
		c := s[offset]
		if c > 0x7F {
			break
		}
		region[offset] = c
	}

	if offset != len(s) {
		rest := s[offset:]
		grown := uint32(offset) + utf16Len(rest)*3
		ptr, err = realloc(ctx, ptr, size, grown, 1)
		if err != nil {
			return 0, 0, err
		}
		region, err = v.Read(ptr, grown)
		if err != nil {
			return 0, 0, err
		}
		offset += copy(region[offset:], rest)
	}

	return ptr, uint32(offset), nil
}

// DecodeString strictly decodes the guest range [ptr, ptr+n) as UTF-8.
// A leading byte order mark is preserved.
func (v *Views) DecodeString(ptr, n uint32) (string, error) {
	buf, err := v.Read(ptr, n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", &InvalidEncodingError{Ptr: ptr, Len: n, Offset: firstInvalid(buf)}
	}
	return string(buf), nil
}

func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}

// utf16Len counts UTF-16 code units of a valid UTF-8 string.
func utf16Len(s string) uint32 {
	var n uint32
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
