package host

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/wbg-host/internal/bridge"
	"github.com/woxQAQ/wbg-host/internal/charts"
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/fetch"
	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/internal/loop"
)

// Guest is the part of a module instance entries call back into.
type Guest interface {
	Call(ctx context.Context, export string, params ...uint64) ([]uint64, error)
}

// Env is the session state host operations act on. Every field is owned by
// the session's event loop goroutine.
type Env struct {
	Bridge  *bridge.Bridge
	Window  *dom.Window
	Loop    *loop.Loop
	Fetch   *fetch.Client
	Charts  *charts.Registry
	Console *Console

	// Guest is set once the module is instantiated.
	Guest Guest

	Logger *zap.Logger
}

// Call is the argument and result frame of one host call.
type Call struct {
	ctx   context.Context
	env   *Env
	stack []uint64
}

// Env returns the session environment.
func (c *Call) Env() *Env { return c.env }

// Context returns the context of the guest call in progress.
func (c *Call) Context() context.Context { return c.ctx }

// U32 returns argument i as an unsigned 32-bit integer.
func (c *Call) U32(i int) uint32 { return api.DecodeU32(c.stack[i]) }

// I32 returns argument i as a signed 32-bit integer.
func (c *Call) I32(i int) int32 { return api.DecodeI32(c.stack[i]) }

// I64 returns argument i as a signed 64-bit integer.
func (c *Call) I64(i int) int64 { return int64(c.stack[i]) }

// F64 returns argument i as a float64.
func (c *Call) F64(i int) float64 { return api.DecodeF64(c.stack[i]) }

// Bool returns argument i as a boolean.
func (c *Call) Bool(i int) bool { return c.U32(i) != 0 }

// Get returns the heap value named by argument i.
func (c *Call) Get(i int) any { return c.env.Bridge.Heap().Get(c.U32(i)) }

// Take returns the heap value named by argument i and releases the handle.
func (c *Call) Take(i int) any { return c.env.Bridge.Heap().Take(c.U32(i)) }

// Str decodes the string passed as arguments i (pointer) and i+1 (length).
func (c *Call) Str(i int) (string, error) {
	return c.env.Bridge.CachedString(c.U32(i), c.U32(i+1))
}

// OptionalStr decodes an optional string argument. The pair (0, h) naming
// a nullish heap value means absent.
func (c *Call) OptionalStr(i int) (*string, error) {
	if c.U32(i) == 0 && jsval.IsNullish(c.env.Bridge.Heap().Get(c.U32(i+1))) {
		return nil, nil
	}
	s, err := c.Str(i)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ReturnObject boxes v and returns its handle.
func (c *Call) ReturnObject(v any) {
	c.stack[0] = api.EncodeU32(c.env.Bridge.Heap().Alloc(v))
}

// ReturnOptional returns 0 for null and undefined, otherwise a new handle.
func (c *Call) ReturnOptional(v any) {
	if jsval.IsNullish(v) {
		c.stack[0] = 0
		return
	}
	c.ReturnObject(v)
}

// ReturnBool returns b as 0 or 1.
func (c *Call) ReturnBool(b bool) {
	if b {
		c.stack[0] = 1
	} else {
		c.stack[0] = 0
	}
}

// ReturnU32 returns an unsigned 32-bit integer.
func (c *Call) ReturnU32(v uint32) { c.stack[0] = api.EncodeU32(v) }

// ReturnI32 returns a signed 32-bit integer.
func (c *Call) ReturnI32(v int32) { c.stack[0] = api.EncodeI32(v) }

// ReturnF64 returns a float64.
func (c *Call) ReturnF64(v float64) { c.stack[0] = api.EncodeF64(v) }

// PutString encodes s into guest memory and writes the [ptr, len] pair at
// out.
func (c *Call) PutString(out uint32, s string) error {
	ptr, n, err := c.env.Bridge.PassString(c.ctx, s)
	if err != nil {
		return err
	}
	return c.putPair(out, ptr, n)
}

// PutOptionalString writes [0, 0] at out when ok is false.
func (c *Call) PutOptionalString(out uint32, s string, ok bool) error {
	if !ok {
		return c.putPair(out, 0, 0)
	}
	return c.PutString(out, s)
}

func (c *Call) putPair(out, ptr, n uint32) error {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:], ptr)
	binary.LittleEndian.PutUint32(buf[4:], n)
	return c.env.Bridge.Views().Write(out, buf[:])
}

// PutOptionalF64 writes the presence flag at out and v at out+8.
func (c *Call) PutOptionalF64(out uint32, v float64, ok bool) error {
	if !ok {
		v = 0
	}
	return c.putTagged(out, math.Float64bits(v), ok)
}

// PutOptionalI64 writes the presence flag at out and v at out+8.
func (c *Call) PutOptionalI64(out uint32, v int64, ok bool) error {
	if !ok {
		v = 0
	}
	return c.putTagged(out, uint64(v), ok)
}

func (c *Call) putTagged(out uint32, bits uint64, ok bool) error {
	var buf [16]byte
	if ok {
		binary.LittleEndian.PutUint32(buf[0:], 1)
	}
	binary.LittleEndian.PutUint64(buf[8:], bits)
	return c.env.Bridge.Views().Write(out, buf[:])
}

// receiver returns argument i as a T or throws a TypeError naming what.
func receiver[T any](c *Call, i int, what string) (T, error) {
	v, ok := c.Get(i).(T)
	if !ok {
		var zero T
		return zero, jsval.NewTypeError("Illegal invocation: receiver is not a " + what)
	}
	return v, nil
}

// property reads key from the value named by argument i.
func property(c *Call, i int, key string) (any, error) {
	return jsval.Get(c.Get(i), key)
}

// method calls obj[key](args...).
func method(obj any, key string, args ...any) (any, error) {
	fn, err := jsval.Get(obj, key)
	if err != nil {
		return nil, err
	}
	if _, ok := fn.(*jsval.Function); !ok {
		return nil, jsval.NewTypeError(jsval.ClassName(obj) + "." + key + " is not a function")
	}
	return jsval.Call(fn, obj, args...)
}
