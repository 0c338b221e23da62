// Package app loads guest application bundles (a manifest.yaml next to a
// compiled module) and runs them as sessions: one module instance bound to a
// bridge, a headless window and an event loop.
package app

import (
	"time"

	"github.com/woxQAQ/wbg-host/internal/host"
	"github.com/woxQAQ/wbg-host/internal/wasm"
)

// App represents a loaded app with its manifest and compiled Wasm module.
type App struct {
	// Manifest is the parsed app metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the app was loaded
	LoadedAt time.Time
}

// Name returns the app name.
func (a *App) Name() string {
	return a.Manifest.Name
}

// Version returns the app version.
func (a *App) Version() string {
	return a.Manifest.Version
}

// Capabilities returns the list of capabilities the app uses.
func (a *App) Capabilities() []string {
	return a.Manifest.Capabilities
}

// Bindings converts the manifest binding tables for import resolution.
func (a *App) Bindings() host.Bindings {
	b := host.Bindings{
		Aliases:  a.Manifest.Bindings.Aliases,
		Closures: make(map[string]host.Closure, len(a.Manifest.Bindings.Closures)),
	}
	for name, cl := range a.Manifest.Bindings.Closures {
		b.Closures[name] = host.Closure{
			Destructor: cl.Destructor,
			Mutable:    cl.Mutable,
			Invoke:     cl.Invoke,
			Args:       cl.Args,
		}
	}
	return b
}
