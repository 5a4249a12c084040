// Package functions provides the host side of formula name resolution:
// adapters turning plain Go functions into descriptors, and a Registry the
// parser resolves names against.
//
// # Example
//
//	reg := functions.NewRegistry()
//	reg.RegisterFunction("", functions.Func2("hypot", math.Hypot))
//	reg.RegisterVariable("", functions.Const("answer", 42.0))
//
//	expr, err := parser.Parse("hypot(answer, 3)",
//	    parser.WithFunctions(reg.Function),
//	    parser.WithVariables(reg.Variable),
//	)
//
// # Contexts
//
// Names are registered under a context, a namespace string. A lookup in a
// context falls back to the empty context, so global names are visible
// everywhere and a context can shadow them.
package functions

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/sandrolain/goformula/pkg/ast"
)

type key struct {
	context string
	name    string
}

// Registry maps (context, name) pairs to function and variable descriptors.
// It is safe for concurrent registration and lookup.
type Registry struct {
	functions *xsync.MapOf[key, ast.Function]
	variables *xsync.MapOf[key, ast.Variable]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: xsync.NewMapOf[key, ast.Function](),
		variables: xsync.NewMapOf[key, ast.Variable](),
	}
}

// RegisterFunction registers fns under context, replacing functions with the
// same name.
func (r *Registry) RegisterFunction(context string, fns ...ast.Function) {
	for _, fn := range fns {
		r.functions.Store(key{context, fn.Name()}, fn)
	}
}

// RegisterVariable registers vars under context, replacing variables with the
// same name.
func (r *Registry) RegisterVariable(context string, vars ...ast.Variable) {
	for _, v := range vars {
		r.variables.Store(key{context, v.Name()}, v)
	}
}

// UnregisterFunction removes a function from context.
func (r *Registry) UnregisterFunction(context, name string) {
	r.functions.Delete(key{context, name})
}

// UnregisterVariable removes a variable from context.
func (r *Registry) UnregisterVariable(context, name string) {
	r.variables.Delete(key{context, name})
}

// Function resolves a function name. It has the signature of
// parser.FunctionResolver.
func (r *Registry) Function(context, name string) (ast.Function, bool) {
	if fn, ok := r.functions.Load(key{context, name}); ok {
		return fn, true
	}
	if context == "" {
		return nil, false
	}
	return r.functions.Load(key{"", name})
}

// Variable resolves a variable name. It has the signature of
// parser.VariableResolver.
func (r *Registry) Variable(context, name string) (ast.Variable, bool) {
	if v, ok := r.variables.Load(key{context, name}); ok {
		return v, true
	}
	if context == "" {
		return nil, false
	}
	return r.variables.Load(key{"", name})
}

// Names returns the sorted names of the functions and variables registered
// directly under context.
func (r *Registry) Names(context string) (functions, variables []string) {
	r.functions.Range(func(k key, _ ast.Function) bool {
		if k.context == context {
			functions = append(functions, k.name)
		}
		return true
	})
	r.variables.Range(func(k key, _ ast.Variable) bool {
		if k.context == context {
			variables = append(variables, k.name)
		}
		return true
	})
	sort.Strings(functions)
	sort.Strings(variables)
	return functions, variables
}

// Len returns the number of registered functions and variables.
func (r *Registry) Len() int {
	return r.functions.Size() + r.variables.Size()
}
