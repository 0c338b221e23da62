package wasm

import (
	"fmt"
	"time"
)

// CompilationError occurs when Wasm module compilation fails
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile Wasm module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when module instantiation fails
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s' (instance: %s): %v",
		e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ImportResolutionError occurs when an import of the guest has no host
// function bound to it
type ImportResolutionError struct {
	Module string
	Name   string
	Reason string
}

func (e *ImportResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve import %s.%s: %s", e.Module, e.Name, e.Reason)
}

// ModuleNotFoundError occurs when a module is not in cache
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found in cache", e.ModuleName)
}

// MissingExportError occurs when a required export is missing or has the
// wrong type
type MissingExportError struct {
	ModuleName string
	ExportName string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("export '%s' not found in module '%s'",
		e.ExportName, e.ModuleName)
}

// InstanceLimitError occurs when the runtime already hosts the maximum
// number of instances
type InstanceLimitError struct {
	Limit int
}

func (e *InstanceLimitError) Error() string {
	return fmt.Sprintf("instance limit reached (%d)", e.Limit)
}

// HostFunctionError occurs when a non-throwing host function fails. It is
// raised as a panic so the guest call traps.
type HostFunctionError struct {
	FunctionName string
	Err          error
}

func (e *HostFunctionError) Error() string {
	return fmt.Sprintf("host function '%s' failed: %v", e.FunctionName, e.Err)
}

func (e *HostFunctionError) Unwrap() error {
	return e.Err
}

// TimeoutError occurs when Wasm execution times out
type TimeoutError struct {
	Export   string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Wasm execution of '%s' timed out after %v", e.Export, e.Duration)
}
