package wasm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental/table"

	abi "github.com/woxQAQ/wbg-host/api/wasm"
)

var destructorType = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}

// Exports adapts the guest's glue exports to the calls the bridge makes.
type Exports struct {
	module     api.Module
	name       string
	tableIndex uint32
	timeout    time.Duration

	malloc   api.Function
	realloc  api.Function
	free     api.Function
	exnStore api.Function
	start    api.Function
}

func newExports(module api.Module, name string, tableIndex uint32) (*Exports, error) {
	e := &Exports{
		module:     module,
		name:       name,
		tableIndex: tableIndex,
		malloc:     module.ExportedFunction(abi.ExportMalloc),
		realloc:    module.ExportedFunction(abi.ExportRealloc),
		free:       module.ExportedFunction(abi.ExportFree),
		exnStore:   module.ExportedFunction(abi.ExportExnStore),
		start:      module.ExportedFunction(abi.ExportStart),
	}

	if module.Memory() == nil {
		return nil, &MissingExportError{ModuleName: name, ExportName: abi.ExportMemory}
	}
	if e.malloc == nil {
		return nil, &MissingExportError{ModuleName: name, ExportName: abi.ExportMalloc}
	}
	if e.free == nil {
		return nil, &MissingExportError{ModuleName: name, ExportName: abi.ExportFree}
	}
	return e, nil
}

func (e *Exports) call(ctx context.Context, fn api.Function, export string, params ...uint64) ([]uint64, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Export: export, Duration: e.timeout}
		}
		return nil, fmt.Errorf("%s: %w", export, err)
	}
	return res, nil
}

// Malloc implements bridge.Exports.
func (e *Exports) Malloc(ctx context.Context, size, align uint32) (uint32, error) {
	res, err := e.call(ctx, e.malloc, abi.ExportMalloc, api.EncodeU32(size), api.EncodeU32(align))
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(res[0]), nil
}

// HasRealloc implements bridge.Exports.
func (e *Exports) HasRealloc() bool {
	return e.realloc != nil
}

// Realloc implements bridge.Exports.
func (e *Exports) Realloc(ctx context.Context, ptr, oldSize, newSize, align uint32) (uint32, error) {
	if e.realloc == nil {
		return 0, &MissingExportError{ModuleName: e.name, ExportName: abi.ExportRealloc}
	}
	res, err := e.call(ctx, e.realloc, abi.ExportRealloc,
		api.EncodeU32(ptr), api.EncodeU32(oldSize), api.EncodeU32(newSize), api.EncodeU32(align))
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(res[0]), nil
}

// Free implements bridge.Exports.
func (e *Exports) Free(ctx context.Context, ptr, size, align uint32) error {
	_, err := e.call(ctx, e.free, abi.ExportFree, api.EncodeU32(ptr), api.EncodeU32(size), api.EncodeU32(align))
	return err
}

// StoreException implements bridge.Exports.
func (e *Exports) StoreException(ctx context.Context, handle uint32) error {
	if e.exnStore == nil {
		return &MissingExportError{ModuleName: e.name, ExportName: abi.ExportExnStore}
	}
	_, err := e.call(ctx, e.exnStore, abi.ExportExnStore, api.EncodeU32(handle))
	return err
}

// Destroy implements bridge.Exports: it calls the destructor stored at
// index dtor of the function table.
func (e *Exports) Destroy(ctx context.Context, dtor, a, b uint32) (err error) {
	fn, err := e.tableFunction(dtor, destructorType, nil)
	if err != nil {
		return err
	}
	_, err = e.call(ctx, fn, fmt.Sprintf("table[%d]", dtor), api.EncodeU32(a), api.EncodeU32(b))
	return err
}

// tableFunction looks up a typed table entry. The table package panics on
// a missing entry or a type mismatch.
func (e *Exports) tableFunction(index uint32, params, results []api.ValueType) (fn api.Function, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("table %d entry %d: %v", e.tableIndex, index, r)
		}
	}()
	return table.LookupFunction(e.module, e.tableIndex, index, params, results), nil
}

// HasStart reports whether the guest exports a start routine.
func (e *Exports) HasStart() bool {
	return e.start != nil
}

// Start runs the guest start routine.
func (e *Exports) Start(ctx context.Context) error {
	if e.start == nil {
		return nil
	}
	_, err := e.call(ctx, e.start, abi.ExportStart)
	return err
}

// Call invokes a named export, e.g. a closure trampoline.
func (e *Exports) Call(ctx context.Context, export string, params ...uint64) ([]uint64, error) {
	fn := e.module.ExportedFunction(export)
	if fn == nil {
		return nil, &MissingExportError{ModuleName: e.name, ExportName: export}
	}
	return e.call(ctx, fn, export, params...)
}
