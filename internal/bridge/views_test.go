package bridge

import (
	"context"
	"testing"
)

func TestViewsRebuildAfterInvalidate(t *testing.T) {
	mem := &fakeMemory{buf: make([]byte, 64)}
	views := NewViews(mem)

	if got := len(views.Uint8()); got != 64 {
		t.Fatalf("Uint8() length = %d, want 64", got)
	}
	if got := views.Int32().Len(); got != 16 {
		t.Fatalf("Int32() length = %d, want 16", got)
	}

	// Replace the buffer without notifying: the cached view is stale.
	mem.buf = make([]byte, 128)
	if got := len(views.Uint8()); got != 64 {
		t.Fatalf("cached Uint8() length = %d, want stale 64", got)
	}

	views.Invalidate()

	if got := len(views.Uint8()); got != 128 {
		t.Errorf("Uint8() length = %d after invalidate, want 128", got)
	}
	if got := views.Int32().Len(); got != 32 {
		t.Errorf("Int32() length = %d after invalidate, want 32", got)
	}
	if got := views.Float64().Len(); got != 16 {
		t.Errorf("Float64() length = %d after invalidate, want 16", got)
	}
	if got := views.BigInt64().Len(); got != 16 {
		t.Errorf("BigInt64() length = %d after invalidate, want 16", got)
	}
}

func TestViewsGrowthHook(t *testing.T) {
	exports := newFakeExports(16)
	views := NewViews(exports.mem)
	exports.mem.onGrow = views.Invalidate

	before := views.Uint8()
	ptr, err := exports.Malloc(context.Background(), 100, 1)
	if err != nil {
		t.Fatal(err)
	}

	after := views.Uint8()
	if len(after) == len(before) {
		t.Fatalf("view was not rebuilt after growth (len %d)", len(after))
	}
	if int(ptr)+100 > len(after) {
		t.Errorf("allocation %d+100 outside rebuilt view of %d bytes", ptr, len(after))
	}
}

func TestTypedViewsShareBuffer(t *testing.T) {
	mem := &fakeMemory{buf: make([]byte, 32)}
	views := NewViews(mem)

	views.Int32().Set(1, -2)
	views.Float64().Set(2, 1.25)
	views.BigInt64().Set(3, -1<<40)

	if got := views.Int32().At(1); got != -2 {
		t.Errorf("Int32().At(1) = %d, want -2", got)
	}
	if got := views.Float64().At(2); got != 1.25 {
		t.Errorf("Float64().At(2) = %v, want 1.25", got)
	}
	if got := views.BigInt64().At(3); got != -1<<40 {
		t.Errorf("BigInt64().At(3) = %d", got)
	}
	if b := views.Uint8()[4]; b != 0xfe {
		t.Errorf("byte 4 = %#x, want 0xfe (little endian)", b)
	}
}

func TestViewsBoundsChecks(t *testing.T) {
	views := NewViews(&fakeMemory{buf: make([]byte, 8)})

	if _, err := views.Read(4, 8); err == nil {
		t.Error("Read() past the end should fail")
	}
	err := views.Write(7, []byte{1, 2})
	if _, ok := err.(*OutOfBoundsError); !ok {
		t.Errorf("Write() error = %T, want *OutOfBoundsError", err)
	}
	if _, err := views.Read(0xFFFFFFFF, 2); err == nil {
		t.Error("Read() with overflowing range should fail")
	}
}
