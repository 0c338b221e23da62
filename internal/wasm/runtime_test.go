package wasm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap/zaptest"
)

func TestNewRuntime(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if runtime == nil {
		t.Fatal("Runtime is nil")
	}

	// Cleanup
	if err := runtime.Close(context.Background()); err != nil {
		t.Errorf("Failed to close runtime: %v", err)
	}
}

func TestRuntimeCloseIdempotent(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Close multiple times should not error.
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestDefaultRuntimeConfig(t *testing.T) {
	config := DefaultRuntimeConfig()

	if config.MemoryPages != 256 {
		t.Errorf("Default memory pages = %d, want 256", config.MemoryPages)
	}

	if config.DebugEnabled {
		t.Error("Debug should be disabled by default")
	}

	if config.MaxInstances != 100 {
		t.Errorf("Default max instances = %d, want 100", config.MaxInstances)
	}

	if config.ExecutionTimeout != 30*time.Second {
		t.Errorf("Default execution timeout = %v, want 30s", config.ExecutionTimeout)
	}
}

func TestRuntimeConfiguration(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	config := &RuntimeConfig{
		MemoryPages:  128,
		DebugEnabled: true,
		MaxInstances: 50,
		CacheDir:     t.TempDir(),
	}

	runtime, err := NewRuntime(ctx, logger, config)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if runtime.Config().MemoryPages != 128 {
		t.Errorf("Memory pages not set correctly")
	}
	if runtime.cache == nil {
		t.Error("CacheDir should enable the compilation cache")
	}

	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestRuntimeContextCancellation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Cancel context.
	cancel()

	// Close with cancelled context.
	err = runtime.Close(ctx)
	// wazero should handle cancelled context gracefully
	if err != nil && err != context.Canceled {
		t.Errorf("Unexpected error when closing with cancelled context: %v", err)
	}
}

func TestRuntimeModuleCache(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	// Test storing and retrieving compiled modules.
	module := &CompiledModule{
		Name:       "test-module",
		Source:     "test",
		SizeBytes:  1024,
		CompiledAt: time.Now().Unix(),
	}

	runtime.StoreCompiledModule(module)

	retrieved, ok := runtime.GetCompiledModule("test-module")
	if !ok {
		t.Fatal("Failed to retrieve module from cache")
	}

	if retrieved.Name != "test-module" {
		t.Errorf("Retrieved wrong module: %s", retrieved.Name)
	}

	if _, ok := runtime.GetCompiledModule("other"); ok {
		t.Error("Unknown module should miss the cache")
	}
}

func TestRuntimeInstanceLimit(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, &RuntimeConfig{MaxInstances: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	for i := 0; i < 2; i++ {
		if err := runtime.reserveInstance(); err != nil {
			t.Fatalf("reserve %d failed: %v", i, err)
		}
	}

	err = runtime.reserveInstance()
	var limitErr *InstanceLimitError
	if !errors.As(err, &limitErr) || limitErr.Limit != 2 {
		t.Fatalf("third reserve = %v, want InstanceLimitError", err)
	}
	if runtime.InstanceCount() != 2 {
		t.Errorf("InstanceCount() = %d, want 2", runtime.InstanceCount())
	}

	runtime.releaseInstance()
	if err := runtime.reserveInstance(); err != nil {
		t.Errorf("reserve after release failed: %v", err)
	}
}

func TestRuntimeIsClosed(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	if runtime.IsClosed() {
		t.Error("Runtime should not be closed initially")
	}

	runtime.Close(ctx)

	if !runtime.IsClosed() {
		t.Error("Runtime should be closed after Close()")
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()

	if len(a) != 26 {
		t.Errorf("NewID() = %q, want a 26 character ULID", a)
	}
	if a == b {
		t.Error("NewID() should not repeat")
	}
}

func TestSignature(t *testing.T) {
	i32, f64 := api.ValueTypeI32, api.ValueTypeF64

	tests := []struct {
		params, results []api.ValueType
		want            string
	}{
		{nil, nil, "()->()"},
		{[]api.ValueType{i32, i32}, []api.ValueType{i32}, "(i32,i32)->(i32)"},
		{[]api.ValueType{i32}, []api.ValueType{f64}, "(i32)->(f64)"},
	}

	for _, tt := range tests {
		if got := Signature(tt.params, tt.results); got != tt.want {
			t.Errorf("Signature() = %s, want %s", got, tt.want)
		}
	}
}

func TestCompilationError(t *testing.T) {
	err := &CompilationError{
		ModuleName: "test",
		Err:        &testError{},
	}

	expected := "failed to compile Wasm module 'test': test error"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestInstantiationError(t *testing.T) {
	err := &InstantiationError{
		ModuleName: "test",
		InstanceID: "inst-1",
		Err:        &testError{},
	}

	expected := "failed to instantiate module 'test' (instance: inst-1): test error"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
	if !errors.Is(err, err.Err) {
		t.Error("InstantiationError should unwrap to its cause")
	}
}

func TestModuleNotFoundError(t *testing.T) {
	err := &ModuleNotFoundError{ModuleName: "test"}

	expected := "module 'test' not found in cache"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestMissingExportError(t *testing.T) {
	err := &MissingExportError{
		ModuleName: "test",
		ExportName: "__wbindgen_malloc",
	}

	expected := "export '__wbindgen_malloc' not found in module 'test'"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestImportResolutionError(t *testing.T) {
	err := &ImportResolutionError{Module: "wbg", Name: "__wbg_log_1", Reason: "no host function"}

	if !strings.Contains(err.Error(), "wbg.__wbg_log_1") {
		t.Errorf("Error message = %s, want the qualified import name", err.Error())
	}
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Export: "__wbindgen_start", Duration: time.Second}

	expected := "Wasm execution of '__wbindgen_start' timed out after 1s"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

// testError is a simple error for testing.
type testError struct{}

func (e *testError) Error() string {
	return "test error"
}
