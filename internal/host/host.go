package host

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/wbg-host/api/wasm"
	"github.com/woxQAQ/wbg-host/internal/bridge"
	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/internal/wasm"
)

// Closure describes one closure wrapper import
// "__wbindgen_closure_wrapper<N>(a, b, unused) -> handle".
type Closure struct {
	// Destructor is the function table index of the closure destructor.
	Destructor uint32

	// Mutable closures hide their environment while running.
	Mutable bool

	// Invoke is the guest export called as Invoke(a, b, args...).
	Invoke string

	// Args is the number of handle arguments Invoke takes.
	Args int
}

// Bindings carries the per-module resolution hints of an app manifest.
type Bindings struct {
	// Aliases maps import names to entry names.
	Aliases map[string]string

	// Closures maps closure wrapper import names to their description.
	Closures map[string]Closure
}

var closureWrapperSignature = wasm.Signature(
	[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
	[]api.ValueType{api.ValueTypeI32},
)

// HostFunctions binds every import of the guest to a host function. It
// fails on the first import that cannot be resolved.
func (env *Env) HostFunctions(table *Table, imports []wasm.Import, b Bindings) ([]wasm.HostFunc, error) {
	logger := env.logger()
	funcs := make([]wasm.HostFunc, 0, len(imports))
	for _, imp := range imports {
		if imp.Module != abi.ImportModule {
			return nil, &wasm.ImportResolutionError{Module: imp.Module, Name: imp.Name, Reason: "unknown import module"}
		}

		if strings.HasPrefix(imp.Name, abi.ClosureWrapperPrefix) {
			cl, ok := b.Closures[imp.Name]
			if !ok {
				return nil, &wasm.ImportResolutionError{Module: imp.Module, Name: imp.Name, Reason: "closure wrapper is not declared in the manifest"}
			}
			if imp.Signature() != closureWrapperSignature {
				return nil, &wasm.ImportResolutionError{Module: imp.Module, Name: imp.Name,
					Reason: fmt.Sprintf("closure wrapper has type %s, expected %s", imp.Signature(), closureWrapperSignature)}
			}
			funcs = append(funcs, env.closureFunc(imp, cl))
			continue
		}

		e, err := table.Resolve(imp, b.Aliases)
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, env.adapt(imp, e))
	}

	logger.Debug("Imports bound", zap.Int("count", len(funcs)))
	return funcs, nil
}

func (env *Env) logger() *zap.Logger {
	if env.Logger == nil {
		return zap.NewNop()
	}
	return env.Logger.With(zap.String("component", "host"))
}

// adapt turns an entry into a wazero host function for imp.
func (env *Env) adapt(imp wasm.Import, e *Entry) wasm.HostFunc {
	name := imp.Name
	return wasm.HostFunc{
		Name:    name,
		Params:  e.Params,
		Results: e.Results,
		Fn: api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
			c := &Call{ctx: ctx, env: env, stack: stack}
			err := run(c, e)
			if err == nil {
				return
			}
			if !e.Throws {
				panic(&wasm.HostFunctionError{FunctionName: name, Err: err})
			}
			if serr := env.Bridge.StoreException(ctx, err); serr != nil {
				panic(&wasm.HostFunctionError{FunctionName: name, Err: serr})
			}
			for i := range e.Results {
				stack[i] = 0
			}
		}),
	}
}

// run calls the entry. Throwing entries turn Go panics into thrown errors.
func run(c *Call, e *Entry) (err error) {
	if e.Throws {
		defer func() {
			if r := recover(); r != nil {
				if rerr, ok := r.(error); ok {
					err = jsval.NewError(rerr.Error())
					return
				}
				err = jsval.NewError(fmt.Sprint(r))
			}
		}()
	}
	return e.Fn(c)
}

func (env *Env) closureFunc(imp wasm.Import, cl Closure) wasm.HostFunc {
	name := imp.Name
	tramp := env.trampoline(cl)
	return wasm.HostFunc{
		Name:    name,
		Params:  imp.Params,
		Results: imp.Results,
		Fn: api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			a, b := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
			fn := env.Bridge.WrapClosure(name, a, b, cl.Destructor, cl.Mutable, tramp)
			stack[0] = api.EncodeU32(env.Bridge.Heap().Alloc(fn))
		}),
	}
}

// trampoline calls the guest invoke export. Missing arguments are passed as
// undefined and surplus ones are released.
func (env *Env) trampoline(cl Closure) bridge.Trampoline {
	return func(ctx context.Context, a, b uint32, args []bridge.Handle) (any, error) {
		heap := env.Bridge.Heap()
		if len(args) > cl.Args {
			for _, h := range args[cl.Args:] {
				heap.Drop(h)
			}
			args = args[:cl.Args]
		}
		if a == 0 {
			for _, h := range args {
				heap.Drop(h)
			}
			return nil, jsval.NewError("closure invoked recursively or after being dropped")
		}
		if env.Guest == nil {
			return nil, bridge.ErrDetached
		}

		params := make([]uint64, 0, 2+cl.Args)
		params = append(params, api.EncodeU32(a), api.EncodeU32(b))
		for i := 0; i < cl.Args; i++ {
			h := abi.HandleUndefined
			if i < len(args) {
				h = args[i]
			}
			params = append(params, api.EncodeU32(h))
		}
		if _, err := env.Guest.Call(ctx, cl.Invoke, params...); err != nil {
			return nil, err
		}
		return jsval.Undefined, nil
	}
}
