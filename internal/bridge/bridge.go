// Package bridge moves values between a guest module's linear memory and the
// host: typed memory views, the UTF-8 string codec, the object heap, closure
// adapters and the exception slot.
//
// A Bridge belongs to a single module instance and is not safe for
// concurrent use. Only the closure finalizer queue is synchronized.
package bridge

import (
	"context"
	"sync"

	"github.com/woxQAQ/wbg-host/internal/jsval"
	"go.uber.org/zap"
)

// Bridge is the per-instance bridge state.
type Bridge struct {
	heap    *Heap
	views   *Views
	exports Exports
	ctx     context.Context
	logger  *zap.Logger

	closures map[*closureState]struct{}

	finalMu   sync.Mutex
	finalized []*closureState

	lastException Handle
	exceptions    int
}

// Stats is a snapshot of bridge bookkeeping.
type Stats struct {
	HeapSlots     int
	LiveHandles   int
	FreeHead      uint32
	LiveClosures  int
	Exceptions    int
	LastException uint32
}

// New creates a detached bridge.
func New(logger *zap.Logger) *Bridge {
	return &Bridge{
		heap:     NewHeap(),
		views:    NewViews(nil),
		ctx:      context.Background(),
		logger:   logger.With(zap.String("component", "bridge")),
		closures: make(map[*closureState]struct{}),
	}
}

// Attach binds the bridge to an instantiated module. ctx is used for every
// call the bridge makes into the guest on its own initiative (closure
// destructors, trampolines invoked by host callbacks).
func (br *Bridge) Attach(ctx context.Context, mem Memory, exports Exports) {
	br.ctx = ctx
	br.views = NewViews(mem)
	br.exports = exports
}

// Finalize resets cached views after instantiation.
func (br *Bridge) Finalize() {
	br.views.Invalidate()
}

// Heap returns the object heap.
func (br *Bridge) Heap() *Heap {
	return br.heap
}

// Views returns the memory view cache.
func (br *Bridge) Views() *Views {
	return br.views
}

// Context returns the context guest calls run under.
func (br *Bridge) Context() context.Context {
	return br.ctx
}

// Exports returns the attached guest exports.
func (br *Bridge) Exports() Exports {
	return br.exports
}

// PassString encodes s into guest memory.
func (br *Bridge) PassString(ctx context.Context, s string) (uint32, uint32, error) {
	if br.exports == nil {
		return 0, 0, ErrDetached
	}
	var realloc ReallocFunc
	if br.exports.HasRealloc() {
		realloc = br.exports.Realloc
	}
	return br.views.EncodeString(ctx, s, br.exports.Malloc, realloc)
}

// String decodes the guest string [ptr, ptr+n).
func (br *Bridge) String(ptr, n uint32) (string, error) {
	return br.views.DecodeString(ptr, n)
}

// CachedString decodes a string argument. A zero pointer means the string
// is already on the heap at handle n.
func (br *Bridge) CachedString(ptr, n uint32) (string, error) {
	if ptr == 0 {
		s, ok := br.heap.Get(n).(string)
		if !ok {
			return "", jsval.NewTypeError("expected an interned string")
		}
		return s, nil
	}
	return br.views.DecodeString(ptr, n)
}

// StoreException boxes the value thrown by err and hands it to the guest's
// exception slot.
func (br *Bridge) StoreException(ctx context.Context, err error) error {
	if br.exports == nil {
		return ErrDetached
	}
	thrown := jsval.ThrownValue(err)
	h := br.heap.Alloc(thrown)
	br.lastException = h
	br.exceptions++

	br.logger.Debug("Host exception stored",
		zap.Uint32("handle", h),
		zap.String("value", jsval.ToString(thrown)),
	)
	return br.exports.StoreException(ctx, h)
}

// Stats returns a bookkeeping snapshot.
func (br *Bridge) Stats() Stats {
	return Stats{
		HeapSlots:     br.heap.Len(),
		LiveHandles:   br.heap.Live(),
		FreeHead:      br.heap.FreeHead(),
		LiveClosures:  len(br.closures),
		Exceptions:    br.exceptions,
		LastException: br.lastException,
	}
}

// Close detaches the bridge. Pending closure finalizers are cancelled
// without calling destructors since the guest is going away.
func (br *Bridge) Close() {
	for st := range br.closures {
		st.done = true
		st.cleanup.Stop()
	}
	br.closures = make(map[*closureState]struct{})

	br.finalMu.Lock()
	br.finalized = nil
	br.finalMu.Unlock()

	br.exports = nil
	br.views = NewViews(nil)
	br.heap = NewHeap()
}
