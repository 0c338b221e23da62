package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/woxQAQ/wbg-host/internal/jsval"
	"go.uber.org/zap/zaptest"
)

func TestHelloEndToEnd(t *testing.T) {
	br, _ := newTestBridge(t)
	ctx := context.Background()

	h := br.Heap().Alloc("hello")

	taken, ok := br.Heap().Take(h).(string)
	if !ok {
		t.Fatalf("Take(%d) did not return a string", h)
	}

	ptr, n, err := br.PassString(ctx, taken)
	if err != nil {
		t.Fatalf("PassString() failed: %v", err)
	}
	decoded, err := br.String(ptr, n)
	if err != nil {
		t.Fatalf("String() failed: %v", err)
	}
	if decoded != "hello" {
		t.Errorf("decoded %q, want hello", decoded)
	}

	if br.Heap().FreeHead() != h {
		t.Errorf("FreeHead() = %d, want released handle %d", br.Heap().FreeHead(), h)
	}
	if again := br.Heap().Alloc("again"); again != h {
		t.Errorf("Alloc() = %d, want reused handle %d", again, h)
	}
}

func TestDetachedBridge(t *testing.T) {
	br := New(zaptest.NewLogger(t))

	if _, _, err := br.PassString(context.Background(), "x"); !errors.Is(err, ErrDetached) {
		t.Errorf("PassString() error = %v, want ErrDetached", err)
	}
	if err := br.StoreException(context.Background(), errors.New("x")); !errors.Is(err, ErrDetached) {
		t.Errorf("StoreException() error = %v, want ErrDetached", err)
	}
}

func TestStoreException(t *testing.T) {
	br, exports := newTestBridge(t)

	thrown := jsval.NewTypeError("bad argument")
	if err := br.StoreException(context.Background(), thrown); err != nil {
		t.Fatalf("StoreException() failed: %v", err)
	}

	if len(exports.exceptions) != 1 {
		t.Fatalf("exception slot received %d values, want 1", len(exports.exceptions))
	}
	h := exports.exceptions[0]
	if got := br.Heap().Get(h); got != any(thrown) {
		t.Errorf("boxed exception = %v, want the thrown error", got)
	}

	stats := br.Stats()
	if stats.Exceptions != 1 || stats.LastException != h {
		t.Errorf("Stats() = %+v", stats)
	}

	// Plain Go errors are boxed as Error objects.
	if err := br.StoreException(context.Background(), errors.New("disk full")); err != nil {
		t.Fatal(err)
	}
	boxed, ok := br.Heap().Get(exports.exceptions[1]).(*jsval.Error)
	if !ok || boxed.Message != "disk full" {
		t.Errorf("boxed Go error = %#v", br.Heap().Get(exports.exceptions[1]))
	}
}

func TestCachedString(t *testing.T) {
	br, _ := newTestBridge(t)

	interned := br.Heap().Alloc("interned")
	s, err := br.CachedString(0, interned)
	if err != nil || s != "interned" {
		t.Errorf("CachedString(0, %d) = %q, %v", interned, s, err)
	}

	ptr, n, err := br.PassString(context.Background(), "in memory")
	if err != nil {
		t.Fatal(err)
	}
	s, err = br.CachedString(ptr, n)
	if err != nil || s != "in memory" {
		t.Errorf("CachedString(%d, %d) = %q, %v", ptr, n, s, err)
	}
}

func TestCloseCancelsClosures(t *testing.T) {
	br, exports := newTestBridge(t)

	fn := br.WrapClosure("cb", 1, 2, 3, true, func(context.Context, uint32, uint32, []Handle) (any, error) {
		return nil, nil
	})
	br.Heap().Alloc(fn)

	br.Close()

	if br.LiveClosures() != 0 {
		t.Errorf("LiveClosures() = %d after Close", br.LiveClosures())
	}
	if br.Stats().LiveHandles != 0 {
		t.Errorf("LiveHandles = %d after Close", br.Stats().LiveHandles)
	}
	if len(exports.destroyed) != 0 {
		t.Error("Close() must not call guest destructors")
	}
}
