package bridge

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/woxQAQ/wbg-host/internal/jsval"
	"go.uber.org/zap/zaptest"
)

func newTestBridge(t *testing.T) (*Bridge, *fakeExports) {
	t.Helper()
	exports := newFakeExports(64)
	br := New(zaptest.NewLogger(t))
	br.Attach(context.Background(), exports.mem, exports)
	exports.mem.onGrow = br.Views().Invalidate
	return br, exports
}

func TestClosureCallKeepsClosureAlive(t *testing.T) {
	br, exports := newTestBridge(t)

	var seen []uint32
	fn := br.WrapClosure("cb", 100, 200, 7, true, func(_ context.Context, a, b uint32, args []Handle) (any, error) {
		seen = append(seen, a, b)
		return jsval.Undefined, nil
	})
	h := br.Heap().Alloc(fn)

	if _, err := fn.Invoke(jsval.Undefined); err != nil {
		t.Fatalf("Invoke() failed: %v", err)
	}
	if _, err := fn.Invoke(jsval.Undefined); err != nil {
		t.Fatalf("Invoke() failed: %v", err)
	}

	if diff := cmp.Diff([]uint32{100, 200, 100, 200}, seen); diff != "" {
		t.Errorf("trampoline arguments mismatch (-want +got):\n%s", diff)
	}
	if len(exports.destroyed) != 0 {
		t.Fatalf("destructor ran while the closure was still referenced")
	}

	if !br.DropClosure(h) {
		t.Error("DropClosure() = false, want true for the last reference")
	}
	if len(exports.destroyed) != 0 {
		t.Error("DropClosure() must not call the destructor itself")
	}
	if br.LiveClosures() != 0 {
		t.Errorf("LiveClosures() = %d, want 0", br.LiveClosures())
	}
}

func TestClosureDropDuringCallDefersDestructor(t *testing.T) {
	br, exports := newTestBridge(t)

	var h Handle
	var dropResult bool
	var envs []uint32
	fn := br.WrapClosure("cb", 100, 200, 7, true, func(_ context.Context, a, b uint32, args []Handle) (any, error) {
		envs = append(envs, a)
		if len(envs) > 1 {
			return nil, nil
		}
		dropResult = br.DropClosure(h)
		if len(exports.destroyed) != 0 {
			t.Error("destructor ran before the call returned")
		}
		return nil, nil
	})
	h = br.Heap().Alloc(fn)

	if _, err := fn.Invoke(jsval.Undefined); err != nil {
		t.Fatal(err)
	}

	if dropResult {
		t.Error("DropClosure() during a call = true, want false")
	}
	want := []destroyCall{{dtor: 7, a: 100, b: 200}}
	if diff := cmp.Diff(want, exports.destroyed, cmp.AllowUnexported(destroyCall{})); diff != "" {
		t.Errorf("destructor calls mismatch (-want +got):\n%s", diff)
	}

	// Calling a destroyed closure passes a null environment and never
	// re-runs the destructor.
	if _, err := fn.Invoke(jsval.Undefined); err != nil {
		t.Fatalf("Invoke() after destruction failed: %v", err)
	}
	if diff := cmp.Diff([]uint32{100, 0}, envs); diff != "" {
		t.Errorf("environment pointers mismatch (-want +got):\n%s", diff)
	}
	if br.DropClosure(br.Heap().Alloc(fn)) {
		t.Error("DropClosure() of a destroyed closure = true, want false")
	}
	if len(exports.destroyed) != 1 {
		t.Errorf("destructor ran %d times, want 1", len(exports.destroyed))
	}
}

func TestMutableClosureHidesEnvironmentDuringReentrantCall(t *testing.T) {
	br, exports := newTestBridge(t)

	var envs []uint32
	var fn *jsval.Function
	depth := 0
	fn = br.WrapClosure("cb", 100, 200, 7, true, func(_ context.Context, a, b uint32, args []Handle) (any, error) {
		envs = append(envs, a)
		depth++
		if depth < 3 {
			if _, err := fn.Invoke(jsval.Undefined); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	h := br.Heap().Alloc(fn)

	if _, err := fn.Invoke(jsval.Undefined); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]uint32{100, 0, 0}, envs); diff != "" {
		t.Errorf("environment pointers mismatch (-want +got):\n%s", diff)
	}
	if len(exports.destroyed) != 0 {
		t.Fatal("destructor fired during nested calls")
	}

	// The environment is restored once the outermost call returns.
	envs = nil
	depth = 3
	fn.Invoke(jsval.Undefined)
	if len(envs) != 1 || envs[0] != 100 {
		t.Errorf("environment after nested calls = %v, want [100]", envs)
	}

	if !br.DropClosure(h) {
		t.Error("DropClosure() = false after nested calls")
	}
}

func TestSharedClosureKeepsEnvironmentDuringReentrantCall(t *testing.T) {
	br, _ := newTestBridge(t)

	var envs []uint32
	var fn *jsval.Function
	fn = br.WrapClosure("cb", 100, 200, 7, false, func(_ context.Context, a, b uint32, args []Handle) (any, error) {
		envs = append(envs, a)
		if len(envs) == 1 {
			fn.Invoke(jsval.Undefined)
		}
		return nil, nil
	})

	if _, err := fn.Invoke(jsval.Undefined); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint32{100, 100}, envs); diff != "" {
		t.Errorf("environment pointers mismatch (-want +got):\n%s", diff)
	}
}

func TestClosureDecrementsOnErrorAndPanic(t *testing.T) {
	br, exports := newTestBridge(t)
	boom := errors.New("boom")

	fn := br.WrapClosure("cb", 1, 2, 3, true, func(_ context.Context, a, b uint32, args []Handle) (any, error) {
		return nil, boom
	})
	h := br.Heap().Alloc(fn)
	if _, err := fn.Invoke(jsval.Undefined); !errors.Is(err, boom) {
		t.Fatalf("Invoke() error = %v, want boom", err)
	}

	panicking := br.WrapClosure("cb", 4, 5, 6, true, func(_ context.Context, a, b uint32, args []Handle) (any, error) {
		panic("trap")
	})
	ph := br.Heap().Alloc(panicking)
	func() {
		defer func() { recover() }()
		panicking.Invoke(jsval.Undefined)
	}()

	if !br.DropClosure(h) || !br.DropClosure(ph) {
		t.Error("count was not restored after a failed call")
	}
	if len(exports.destroyed) != 0 {
		t.Errorf("destructor calls = %v, want none", exports.destroyed)
	}
}

func TestClosureBoxesArguments(t *testing.T) {
	br, _ := newTestBridge(t)
	event := jsval.NewObject()

	var got []any
	fn := br.WrapClosure("cb", 1, 2, 3, true, func(_ context.Context, a, b uint32, args []Handle) (any, error) {
		for _, h := range args {
			got = append(got, br.Heap().Take(h))
		}
		return nil, nil
	})

	if _, err := fn.Invoke(jsval.Undefined, event, "x"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != any(event) || got[1] != "x" {
		t.Errorf("trampoline received %v", got)
	}
}

func TestClosureFinalizerBackstop(t *testing.T) {
	br, exports := newTestBridge(t)

	func() {
		br.WrapClosure("leaked", 11, 22, 9, true, func(context.Context, uint32, uint32, []Handle) (any, error) {
			return nil, nil
		})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for br.ReleaseFinalized() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("finalizer backstop never released the closure")
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	want := []destroyCall{{dtor: 9, a: 11, b: 22}}
	if diff := cmp.Diff(want, exports.destroyed, cmp.AllowUnexported(destroyCall{})); diff != "" {
		t.Errorf("destructor calls mismatch (-want +got):\n%s", diff)
	}
	if br.LiveClosures() != 0 {
		t.Errorf("LiveClosures() = %d, want 0", br.LiveClosures())
	}
}

func TestClosureFinalizerSkipsReleasedClosures(t *testing.T) {
	br, exports := newTestBridge(t)

	func() {
		fn := br.WrapClosure("dropped", 11, 22, 9, true, func(context.Context, uint32, uint32, []Handle) (any, error) {
			return nil, nil
		})
		br.DropClosure(br.Heap().Alloc(fn))
	}()

	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
		br.ReleaseFinalized()
	}

	if len(exports.destroyed) != 0 {
		t.Errorf("backstop ran the destructor of a released closure: %v", exports.destroyed)
	}
}
