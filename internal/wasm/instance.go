package wasm

import (
	"context"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/wbg-host/api/wasm"
)

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, a ULID is generated).
	InstanceID string

	// HostFunctions are bound to the module's "wbg" imports.
	HostFunctions []HostFunc

	// TableIndex selects the function table holding closure destructors.
	TableIndex uint32

	// OnGrow is called whenever the linear memory buffer is reallocated.
	OnGrow func(size uint64)
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	module       api.Module
	host         api.Module
	hostCompiled wazero.CompiledModule

	ID        string
	Name      string
	CreatedAt int64

	memory  *Memory
	exports *Exports
	runtime *Runtime
}

// Instantiate creates a new instance from a compiled module without running
// its start routine. The host functions are instantiated as a private
// module and bound to the guest's "wbg" namespace, so every instance gets
// its own set.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}
	if err := checkImports(compiled, config.HostFunctions); err != nil {
		return nil, err
	}
	if err := m.runtime.reserveInstance(); err != nil {
		return nil, err
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = NewID()
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
		zap.Int("host_functions", len(config.HostFunctions)),
	)

	inst, err := m.instantiate(ctx, compiled, instanceID, config)
	if err != nil {
		m.runtime.releaseInstance()
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	m.runtime.storeInstance(inst)

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Uint32("memory_bytes", inst.memory.Size()),
		zap.Bool("has_realloc", inst.exports.HasRealloc()),
		zap.Bool("has_start", inst.exports.HasStart()),
	)

	return inst, nil
}

func (m *InstanceManager) instantiate(ctx context.Context, compiled *CompiledModule, id string, config *InstanceConfig) (*Instance, error) {
	rt := m.runtime.runtime

	// Instantiate the private host module.
	hostName := abi.ImportModule + ":" + id
	hostCompiled, err := buildHostModule(rt, hostName, config.HostFunctions).Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile host module: %w", err)
	}
	// The import resolver needs the runtime's own module instance, which
	// HostModuleBuilder.Instantiate hides behind a wrapper.
	host, err := rt.InstantiateModule(ctx, hostCompiled, wazero.NewModuleConfig().WithName(hostName))
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to instantiate host module: %w", err), hostCompiled.Close(ctx))
	}

	ictx := experimental.WithImportResolver(ctx, func(name string) api.Module {
		if name == abi.ImportModule {
			return host
		}
		return nil
	})
	ictx = experimental.WithMemoryAllocator(ictx, &growthAllocator{onGrow: config.OnGrow})

	// The start routine is run by the caller once the bridge is attached.
	moduleConfig := wazero.NewModuleConfig().
		WithName(id).
		WithStartFunctions()

	module, err := rt.InstantiateModule(ictx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, multierr.Combine(err, host.Close(ctx), hostCompiled.Close(ctx))
	}

	exports, err := newExports(module, compiled.Name, config.TableIndex)
	if err != nil {
		return nil, multierr.Combine(err, module.Close(ctx), host.Close(ctx), hostCompiled.Close(ctx))
	}
	exports.timeout = m.runtime.config.ExecutionTimeout

	return &Instance{
		module:       module,
		host:         host,
		hostCompiled: hostCompiled,
		ID:           id,
		Name:         compiled.Name,
		CreatedAt:    time.Now().Unix(),
		memory:       NewMemory(module),
		exports:      exports,
		runtime:      m.runtime,
	}, nil
}

// checkImports verifies that every "wbg" import has a host function with a
// matching signature and that nothing else is imported.
func checkImports(compiled *CompiledModule, funcs []HostFunc) error {
	byName := make(map[string]HostFunc, len(funcs))
	for _, f := range funcs {
		byName[f.Name] = f
	}
	for _, imp := range compiled.Imports {
		if imp.Module != abi.ImportModule {
			return &ImportResolutionError{Module: imp.Module, Name: imp.Name, Reason: "unknown import module"}
		}
		f, ok := byName[imp.Name]
		if !ok {
			return &ImportResolutionError{Module: imp.Module, Name: imp.Name, Reason: "no host function"}
		}
		if got, want := Signature(f.Params, f.Results), imp.Signature(); got != want {
			return &ImportResolutionError{
				Module: imp.Module,
				Name:   imp.Name,
				Reason: "host function has type " + got + ", import expects " + want,
			}
		}
	}
	return nil
}

// Module returns the guest module.
func (i *Instance) Module() api.Module {
	return i.module
}

// Memory returns the linear memory adapter.
func (i *Instance) Memory() *Memory {
	return i.memory
}

// Exports returns the glue exports.
func (i *Instance) Exports() *Exports {
	return i.exports
}

// Close closes the guest and its host module and releases the instance
// slot.
func (i *Instance) Close(ctx context.Context) error {
	err := multierr.Combine(i.module.Close(ctx), i.host.Close(ctx), i.hostCompiled.Close(ctx))
	i.runtime.deleteInstance(i.ID)
	return err
}
