package wasm

import (
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Import describes a function imported by a guest module.
type Import struct {
	Module  string
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// Signature renders the import type, e.g. "(i32,i32)->(f64)".
func (i Import) Signature() string {
	return Signature(i.Params, i.Results)
}

// Signature renders a function type.
func Signature(params, results []api.ValueType) string {
	s := "("
	for n, p := range params {
		if n > 0 {
			s += ","
		}
		s += api.ValueTypeName(p)
	}
	s += ")->("
	for n, r := range results {
		if n > 0 {
			s += ","
		}
		s += api.ValueTypeName(r)
	}
	return s + ")"
}

// HostFunc is a Go function bound to one guest import.
type HostFunc struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Fn      api.GoModuleFunction
}

func importsOf(compiled wazero.CompiledModule) []Import {
	defs := compiled.ImportedFunctions()
	out := make([]Import, 0, len(defs))
	for _, def := range defs {
		module, name, ok := def.Import()
		if !ok {
			continue
		}
		out = append(out, Import{
			Module:  module,
			Name:    name,
			Params:  def.ParamTypes(),
			Results: def.ResultTypes(),
		})
	}
	return out
}

// ImportsFrom returns the imports of module in the given namespace.
func (c *CompiledModule) ImportsFrom(module string) []Import {
	var out []Import
	for _, imp := range c.Imports {
		if imp.Module == module {
			out = append(out, imp)
		}
	}
	return out
}

// buildHostModule defines one function per HostFunc under name.
func buildHostModule(r wazero.Runtime, name string, funcs []HostFunc) wazero.HostModuleBuilder {
	builder := r.NewHostModuleBuilder(name)
	for _, f := range funcs {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.Fn, f.Params, f.Results).
			WithName(f.Name).
			Export(f.Name)
	}
	return builder
}
