package host

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap/zaptest"

	abi "github.com/woxQAQ/wbg-host/api/wasm"
	"github.com/woxQAQ/wbg-host/internal/bridge"
	"github.com/woxQAQ/wbg-host/internal/charts"
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/fetch"
	"github.com/woxQAQ/wbg-host/internal/loop"
	"github.com/woxQAQ/wbg-host/internal/wasm"
)

type fakeMemory struct {
	buf []byte
}

func (m *fakeMemory) Bytes() []byte { return m.buf }

// fakeExports is a bump allocator over fakeMemory.
type fakeExports struct {
	mem        *fakeMemory
	top        uint32
	frees      int
	exceptions []uint32
	destroyed  [][3]uint32
}

func (e *fakeExports) Malloc(_ context.Context, size, align uint32) (uint32, error) {
	ptr := (e.top + align - 1) / align * align
	end := ptr + size
	if int(end) > len(e.mem.buf) {
		next := make([]byte, int(end)*2)
		copy(next, e.mem.buf)
		e.mem.buf = next
	}
	e.top = end
	return ptr, nil
}

func (e *fakeExports) Realloc(ctx context.Context, ptr, oldSize, newSize, align uint32) (uint32, error) {
	next, err := e.Malloc(ctx, newSize, align)
	if err != nil {
		return 0, err
	}
	copy(e.mem.buf[next:next+oldSize], e.mem.buf[ptr:ptr+oldSize])
	return next, nil
}

func (e *fakeExports) HasRealloc() bool { return true }

func (e *fakeExports) Free(context.Context, uint32, uint32, uint32) error {
	e.frees++
	return nil
}

func (e *fakeExports) StoreException(_ context.Context, handle uint32) error {
	e.exceptions = append(e.exceptions, handle)
	return nil
}

func (e *fakeExports) Destroy(_ context.Context, dtor, a, b uint32) error {
	e.destroyed = append(e.destroyed, [3]uint32{dtor, a, b})
	return nil
}

type guestCall struct {
	export string
	params []uint64
}

// fakeGuest records invoke calls.
type fakeGuest struct {
	calls []guestCall
	err   error
}

func (g *fakeGuest) Call(_ context.Context, export string, params ...uint64) ([]uint64, error) {
	g.calls = append(g.calls, guestCall{export: export, params: append([]uint64(nil), params...)})
	return nil, g.err
}

type testEnv struct {
	*Env
	exports *fakeExports
	guest   *fakeGuest
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	l := loop.New(logger)
	w, err := dom.NewWindow(l, logger, "http://localhost/app/")
	if err != nil {
		t.Fatalf("NewWindow() failed: %v", err)
	}
	if err := w.LoadHTML(`<html><head></head><body><div id="root"></div></body></html>`); err != nil {
		t.Fatalf("LoadHTML() failed: %v", err)
	}

	mem := &fakeMemory{buf: make([]byte, 1<<16)}
	exports := &fakeExports{mem: mem, top: 64}
	br := bridge.New(logger)
	br.Attach(context.Background(), mem, exports)
	t.Cleanup(br.Close)

	guest := &fakeGuest{}
	env := &Env{
		Bridge:  br,
		Window:  w,
		Loop:    l,
		Fetch:   fetch.NewClient(l, logger, fetch.DefaultConfig(), w.Location.Href),
		Charts:  charts.NewRegistry(logger),
		Console: NewConsole(logger, 8),
		Guest:   guest,
		Logger:  logger,
	}
	return &testEnv{Env: env, exports: exports, guest: guest}
}

// testImport builds an import from the entry signature notation.
func testImport(name, sig string) wasm.Import {
	params, results, _ := strings.Cut(sig, ">")
	return wasm.Import{Module: abi.ImportModule, Name: name, Params: valueTypes(params), Results: valueTypes(results)}
}

// call runs the named entry with params and returns the result stack.
func (te *testEnv) call(t *testing.T, name string, params ...uint64) []uint64 {
	t.Helper()
	e, ok := DefaultTable().Lookup(name)
	if !ok {
		t.Fatalf("no entry %q", name)
	}
	if len(params) != len(e.Params) {
		t.Fatalf("%s takes %d params, got %d", name, len(e.Params), len(params))
	}
	stack := make([]uint64, max(len(e.Params), len(e.Results)))
	copy(stack, params)
	hf := te.adapt(wasm.Import{Module: abi.ImportModule, Name: name, Params: e.Params, Results: e.Results}, e)
	hf.Fn.Call(context.Background(), nil, stack)
	return stack[:len(e.Results)]
}

// handle boxes v and returns its handle as a parameter.
func (te *testEnv) handle(v any) uint64 {
	return api.EncodeU32(te.Bridge.Heap().Alloc(v))
}

// str writes s into guest memory and returns (ptr, len) parameters.
func (te *testEnv) str(t *testing.T, s string) (uint64, uint64) {
	t.Helper()
	ptr, n, err := te.Bridge.PassString(context.Background(), s)
	if err != nil {
		t.Fatalf("PassString(%q) failed: %v", s, err)
	}
	return api.EncodeU32(ptr), api.EncodeU32(n)
}

// out reserves a 16 byte output slot.
func (te *testEnv) out(t *testing.T) uint32 {
	t.Helper()
	ptr, err := te.exports.Malloc(context.Background(), 16, 8)
	if err != nil {
		t.Fatal(err)
	}
	return ptr
}

// readString decodes the [ptr, len] pair at out. ok is false for [0, 0].
func (te *testEnv) readString(t *testing.T, out uint32) (string, bool) {
	t.Helper()
	buf := te.exports.mem.buf
	ptr := binary.LittleEndian.Uint32(buf[out:])
	n := binary.LittleEndian.Uint32(buf[out+4:])
	if ptr == 0 {
		return "", false
	}
	s, err := te.Bridge.String(ptr, n)
	if err != nil {
		t.Fatalf("String() failed: %v", err)
	}
	return s, true
}

func (te *testEnv) value(r uint64) any {
	return te.Bridge.Heap().Get(api.DecodeU32(r))
}
