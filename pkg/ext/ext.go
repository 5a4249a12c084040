// Package ext bundles the formula function libraries.
//
// The parser knows no operator or function: everything, '+' included, is
// resolved by name. The libraries live in sub-packages:
//   - extops      – arithmetic, comparison and logical operators
//   - extmath     – abs, sqrt, min, max, if, exp, ln, pow, … and constants
//   - extnumeric  – trigonometry, log with a base, mean, median, stddev, …
//   - extdatetime – year(), weekday(), index(), … reading the evaluation key
//   - extwasm     – functions exported by WebAssembly modules
//   - extstarlark – functions defined in Starlark scripts
//
// # Integration – all built-in libraries at once
//
//	ev := evaluator.New(ext.WithAll())
//
// # Integration – by category
//
//	ev := evaluator.New(
//	    ext.WithOperators(),
//	    ext.WithMath(),
//	)
//
// # Integration – single function from a sub-package
//
//	ev := evaluator.New(
//	    ext.WithOperators(),
//	    evaluator.WithFunctions(extnumeric.Median()),
//	)
package ext

import (
	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/ext/extdatetime"
	"github.com/sandrolain/goformula/pkg/ext/extmath"
	"github.com/sandrolain/goformula/pkg/ext/extnumeric"
	"github.com/sandrolain/goformula/pkg/ext/extops"
	"github.com/sandrolain/goformula/pkg/ext/extstarlark"
	"github.com/sandrolain/goformula/pkg/ext/extwasm"
	"github.com/sandrolain/goformula/pkg/functions"
)

// All returns the functions of every built-in library. Modules and scripts
// loaded at run time are not included.
func All() []ast.Function {
	var all []ast.Function
	all = append(all, extops.All()...)
	all = append(all, extmath.All()...)
	all = append(all, extnumeric.All()...)
	all = append(all, extdatetime.All()...)
	return all
}

// Register adds every built-in library, constants included, to reg in
// context.
func Register(reg *functions.Registry, context string) {
	reg.RegisterFunction(context, All()...)
	reg.RegisterVariable(context, extmath.Constants()...)
}

// WithAll returns an EvalOption that registers every built-in library and
// the math constants.
func WithAll() evaluator.EvalOption {
	return func(opts *evaluator.EvalOptions) {
		evaluator.WithFunctions(All()...)(opts)
		evaluator.WithVariables(extmath.Constants()...)(opts)
	}
}

// WithOperators returns an EvalOption for the operators.
func WithOperators() evaluator.EvalOption {
	return evaluator.WithFunctions(extops.All()...)
}

// WithMath returns an EvalOption for the math functions and constants.
func WithMath() evaluator.EvalOption {
	return func(opts *evaluator.EvalOptions) {
		evaluator.WithFunctions(extmath.All()...)(opts)
		evaluator.WithVariables(extmath.Constants()...)(opts)
	}
}

// WithNumeric returns an EvalOption for the trigonometric and statistical
// functions.
func WithNumeric() evaluator.EvalOption {
	return evaluator.WithFunctions(extnumeric.All()...)
}

// WithDateTime returns an EvalOption for the key functions.
func WithDateTime() evaluator.EvalOption {
	return evaluator.WithFunctions(extdatetime.All()...)
}

// WithWasm returns an EvalOption for the functions of a WebAssembly module.
func WithWasm(mod *extwasm.Module) evaluator.EvalOption {
	return evaluator.WithFunctions(mod.Functions()...)
}

// WithStarlark returns an EvalOption for the functions of a Starlark script.
func WithStarlark(script *extstarlark.Script) evaluator.EvalOption {
	return evaluator.WithFunctions(script.Functions()...)
}
