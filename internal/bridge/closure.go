package bridge

import (
	"context"
	"runtime"

	"github.com/woxQAQ/wbg-host/internal/jsval"
	"go.uber.org/zap"
)

// Trampoline runs a guest closure body for environment (a, b). Arguments
// have already been boxed into the heap; the guest takes ownership of them.
type Trampoline func(ctx context.Context, a, b uint32, args []Handle) (any, error)

// closureState is the host half of a guest closure.
type closureState struct {
	// a is the environment pointer passed to the trampoline. Mutable
	// closures zero it for the duration of a call.
	a uint32
	// env is the environment pointer handed to the destructor.
	env  uint32
	b    uint32
	cnt  int
	dtor uint32

	mutable bool
	done    bool
	cleanup runtime.Cleanup
}

// WrapClosure creates a host function for the guest closure (a, b). The
// destructor at table index dtor runs exactly once: when the reference count
// reaches zero after a call, or from the finalization backstop if the wrapper
// becomes unreachable while still alive.
func (br *Bridge) WrapClosure(name string, a, b, dtor uint32, mutable bool, tramp Trampoline) *jsval.Function {
	st := &closureState{a: a, env: a, b: b, cnt: 1, dtor: dtor, mutable: mutable}

	fn := jsval.NewFunction(name, func(_ any, args []any) (any, error) {
		return br.invokeClosure(st, tramp, args)
	})
	fn.Original = st

	st.cleanup = runtime.AddCleanup(fn, br.enqueueFinalized, st)
	br.closures[st] = struct{}{}

	return fn
}

func (br *Bridge) invokeClosure(st *closureState, tramp Trampoline, args []any) (ret any, err error) {
	st.cnt++
	a := st.a
	if st.mutable {
		st.a = 0
	}
	defer func() {
		st.cnt--
		if st.cnt == 0 {
			if derr := br.destroyClosure(st); derr != nil && err == nil {
				err = derr
			}
			return
		}
		if st.mutable {
			st.a = a
		}
	}()

	handles := make([]Handle, len(args))
	for i, arg := range args {
		handles[i] = br.heap.Alloc(arg)
	}
	return tramp(br.ctx, a, st.b, handles)
}

// DropClosure releases the host reference held by handle h. It reports
// whether the count reached zero; the destructor is not called here because
// the guest frees the closure itself in that case.
func (br *Bridge) DropClosure(h Handle) bool {
	fn, ok := br.heap.Take(h).(*jsval.Function)
	if !ok {
		return false
	}
	st, ok := fn.Original.(*closureState)
	if !ok || st.done {
		return false
	}

	st.cnt--
	if st.cnt != 0 {
		return false
	}
	st.a = 0
	br.retire(st)
	return true
}

func (br *Bridge) destroyClosure(st *closureState) error {
	if st.done {
		return nil
	}
	st.a = 0
	br.retire(st)

	if br.exports == nil {
		return ErrDetached
	}
	if err := br.exports.Destroy(br.ctx, st.dtor, st.env, st.b); err != nil {
		return &ClosureError{Destructor: st.dtor, Err: err}
	}
	return nil
}

func (br *Bridge) retire(st *closureState) {
	st.done = true
	st.cleanup.Stop()
	delete(br.closures, st)
}

// enqueueFinalized runs on the runtime's cleanup goroutine.
func (br *Bridge) enqueueFinalized(st *closureState) {
	br.finalMu.Lock()
	br.finalized = append(br.finalized, st)
	br.finalMu.Unlock()
}

// ReleaseFinalized runs destructors for closures whose wrappers were
// collected without an explicit drop. It must be called from the goroutine
// that owns the bridge, between guest calls.
func (br *Bridge) ReleaseFinalized() int {
	br.finalMu.Lock()
	pending := br.finalized
	br.finalized = nil
	br.finalMu.Unlock()

	released := 0
	for _, st := range pending {
		if st.done {
			continue
		}
		if err := br.destroyClosure(st); err != nil {
			br.logger.Warn("Closure finalizer failed",
				zap.Uint32("destructor", st.dtor),
				zap.Error(err),
			)
			continue
		}
		released++
	}

	if released > 0 {
		br.logger.Debug("Released collected closures", zap.Int("count", released))
	}
	return released
}

// LiveClosures returns the number of closures whose destructor has not run.
func (br *Bridge) LiveClosures() int {
	return len(br.closures)
}
