// Package goformula evaluates numeric formulas over indexed and dated series.
//
// A formula is an expression such as "(high + low) / 2" or, in script mode,
// a list of declarations followed by a final expression:
//
//	var mid = (high + low) / 2;
//	var prev = mid[1];
//	mid - prev
//
// The parser knows no operator or function. Names are resolved through a
// registry, so the libraries of pkg/ext decide what a formula can use.
//
// # Quick Start
//
//	// Constant formulas are folded while compiling
//	result, err := goformula.Eval("sqrt(2) ** 2")
//
//	// Compile once, evaluate at many keys
//	expr, err := goformula.Compile("close - close[1]",
//	    parser.WithFunctions(reg.Function),
//	    parser.WithVariables(reg.Variable),
//	)
//	diff := expr.IndexDouble(42)
//
//	// Whole ranges, evaluated concurrently in chunks
//	ev := evaluator.New(ext.WithAll(), evaluator.WithVariables(closes.Variable()))
//	values, err := ev.EvalRange(ctx, expr, 0, int64(closes.Len()))
//
// # More Information
//
//   - Parser: github.com/sandrolain/goformula/pkg/parser
//   - Syntax tree: github.com/sandrolain/goformula/pkg/ast
//   - Evaluator: github.com/sandrolain/goformula/pkg/evaluator
//   - Functions: github.com/sandrolain/goformula/pkg/functions
//   - Libraries: github.com/sandrolain/goformula/pkg/ext
package goformula

import (
	"context"
	"fmt"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/ext"
	"github.com/sandrolain/goformula/pkg/parser"
)

// Version returns the current version of goformula.
func Version() string {
	return "v0.1.0-dev"
}

// Compile compiles a formula for repeated evaluation. The result is
// immutable and safe for concurrent use.
func Compile(formula string, opts ...parser.CompileOption) (*ast.Expression, error) {
	return parser.Compile(formula, opts...)
}

// MustCompile is like Compile but panics if the formula cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(formula string, opts ...parser.CompileOption) *ast.Expression {
	expr, err := Compile(formula, opts...)
	if err != nil {
		panic(fmt.Sprintf("goformula: Compile(%q): %v", formula, err))
	}
	return expr
}

// Eval compiles formula with every built-in library and evaluates it
// without a key. opts are applied after the libraries.
func Eval(formula string, opts ...evaluator.EvalOption) (float64, error) {
	return EvalWithContext(context.Background(), formula, opts...)
}

// EvalWithContext is like Eval with a custom context.
func EvalWithContext(ctx context.Context, formula string, opts ...evaluator.EvalOption) (float64, error) {
	all := append([]evaluator.EvalOption{ext.WithAll()}, opts...)
	return evaluator.New(all...).Eval(ctx, formula)
}
