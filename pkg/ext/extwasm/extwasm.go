// Package extwasm exposes the functions exported by a WebAssembly module as
// formula functions.
//
// Every exported function taking numeric parameters and returning exactly one
// numeric result becomes a function of the same name and arity. Arguments are
// converted from doubles to the parameter types (integers truncate toward
// zero) and the result is converted back to a double.
//
// Usage:
//
//	mod, err := extwasm.Load(ctx, "stats", wasmBytes)
//	if err != nil {
//	    return err
//	}
//	defer mod.Close(ctx)
//	reg.RegisterFunction("", mod.Functions()...)
package extwasm

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/functions"
)

// Module is an instantiated WebAssembly module.
//
// Calls into a module instance are serialized: wasm functions may share
// memory and globals.
type Module struct {
	name    string
	runtime wazero.Runtime
	module  api.Module
	mu      sync.Mutex
	fns     []ast.Function
	skipped []string
}

// Load compiles and instantiates binary under name.
func Load(ctx context.Context, name string, binary []byte) (*Module, error) {
	rt := wazero.NewRuntime(ctx)
	compiled, err := rt.CompileModule(ctx, binary)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("compile wasm module %q: %w", name, err)
	}
	instance, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate wasm module %q: %w", name, err)
	}

	m := &Module{name: name, runtime: rt, module: instance}
	defs := compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for export := range defs {
		names = append(names, export)
	}
	slices.Sort(names)
	for _, export := range names {
		def := defs[export]
		if !numeric(def.ParamTypes()) || len(def.ResultTypes()) != 1 || !numeric(def.ResultTypes()) {
			m.skipped = append(m.skipped, export)
			continue
		}
		m.fns = append(m.fns, m.function(ctx, export, def))
	}
	return m, nil
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Functions returns the formula functions, sorted by name.
func (m *Module) Functions() []ast.Function { return m.fns }

// Skipped returns the exports that have no formula equivalent.
func (m *Module) Skipped() []string { return m.skipped }

// Close releases the runtime and the module instance.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

func (m *Module) function(ctx context.Context, export string, def api.FunctionDefinition) ast.Function {
	fn := m.module.ExportedFunction(export)
	params := def.ParamTypes()
	result := def.ResultTypes()[0]
	return functions.Vector(export, ast.Fixed(len(params)), func(args []float64) float64 {
		raw := make([]uint64, len(args))
		for i, a := range args {
			raw[i] = encode(params[i], a)
		}
		m.mu.Lock()
		out, err := fn.Call(ctx, raw...)
		m.mu.Unlock()
		if err != nil || len(out) != 1 {
			return math.NaN()
		}
		return decode(result, out[0])
	})
}

func numeric(ts []api.ValueType) bool {
	for _, t := range ts {
		switch t {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return false
		}
	}
	return true
}

func encode(t api.ValueType, v float64) uint64 {
	switch t {
	case api.ValueTypeI32:
		return api.EncodeI32(int32(v))
	case api.ValueTypeI64:
		return api.EncodeI64(int64(v))
	case api.ValueTypeF32:
		return api.EncodeF32(float32(v))
	default:
		return api.EncodeF64(v)
	}
}

func decode(t api.ValueType, v uint64) float64 {
	switch t {
	case api.ValueTypeI32:
		return float64(api.DecodeI32(v))
	case api.ValueTypeI64:
		return float64(int64(v))
	case api.ValueTypeF32:
		return float64(api.DecodeF32(v))
	default:
		return api.DecodeF64(v)
	}
}
