// Package parser implements the formula parser.
//
// The parser is a hand-written recursive descent parser using binding powers
// for operator precedence. It knows no function, variable or operator: every
// name, operators included, is resolved through the resolvers supplied as
// compile options.
//
// # Architecture
//
// The parser consists of four layers:
//   - CharReader: positioned characters over the input, with lookahead
//   - Lexer: tokens whose sources reproduce the input exactly
//   - Parser: builds an immutable ast.Node tree from the tokens
//   - Scripts: var declarations parsed by pooled nested parsers
//
// # Example
//
//	expr, err := parser.Parse("2 * close[1] + 1",
//	    parser.WithFunctions(reg.Function),
//	    parser.WithVariables(reg.Variable),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v := expr.IndexDouble(10)
//
// # Grammar
//
// From loosest to tightest: ||, &&, equality (== != <>), relational
// (< <= > >=), additive (+ -), multiplicative (* / %), power (** ^, right
// associative) and the prefix operators - + !.
package parser

import (
	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/types"
)

// FunctionResolver looks up a function or operator by context and name.
type FunctionResolver func(context, name string) (ast.Function, bool)

// VariableResolver looks up a variable by context and name.
type VariableResolver func(context, name string) (ast.Variable, bool)

// Parse parses a formula and returns the Expression.
//
// The parse either returns a complete tree or a *types.Error; never both.
//
// Example:
//
//	expr, err := parser.Parse("1 + 2", parser.WithFunctions(ops))
//	if err != nil {
//	    var perr *types.Error
//	    if errors.As(err, &perr) {
//	        fmt.Printf("parse error at %s\n", perr.Position)
//	    }
//	    return
//	}
func Parse(input string, opts ...CompileOption) (*ast.Expression, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	var root ast.Node
	err := options.Pool.With(func(p *Parser) error {
		var err error
		root, err = p.Parse(input, options)
		return err
	})
	if err != nil {
		if perr, ok := err.(*types.Error); ok {
			perr.WithSource(input)
		}
		return nil, err
	}
	return ast.NewExpression(root, input, options.Context), nil
}

// Compile is an alias for Parse, provided for API consistency.
func Compile(input string, opts ...CompileOption) (*ast.Expression, error) {
	return Parse(input, opts...)
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// Context namespaces name lookups. A "ctx:" qualifier on a name
	// overrides it for that name.
	Context string
	// MultiStatement enables scripts: var declarations separated by ';'.
	MultiStatement bool
	// Functions resolves function names and operator symbols.
	Functions FunctionResolver
	// Variables resolves variable names.
	Variables VariableResolver
	// PreviousKey locates earlier date keys for offset names such as x[1].
	PreviousKey ast.PreviousKeyFunc
	// Simplify folds constant sub-trees after parsing.
	Simplify bool
	// MaxDepth limits recursion depth to prevent stack overflow.
	MaxDepth int
	// Pool provides the parser instances.
	Pool *Pool
}

func defaultOptions() CompileOptions {
	return CompileOptions{
		Simplify: true,
		MaxDepth: 256,
		Pool:     defaultPool,
	}
}

// WithContext sets the parse context.
func WithContext(context string) CompileOption {
	return func(opts *CompileOptions) {
		opts.Context = context
	}
}

// WithMultiStatement enables or disables script mode.
func WithMultiStatement(enable bool) CompileOption {
	return func(opts *CompileOptions) {
		opts.MultiStatement = enable
	}
}

// WithFunctions sets the function and operator resolver.
func WithFunctions(resolver FunctionResolver) CompileOption {
	return func(opts *CompileOptions) {
		opts.Functions = resolver
	}
}

// WithVariables sets the variable resolver.
func WithVariables(resolver VariableResolver) CompileOption {
	return func(opts *CompileOptions) {
		opts.Variables = resolver
	}
}

// WithPreviousKey sets the previous-key provider used by date offsets.
func WithPreviousKey(prev ast.PreviousKeyFunc) CompileOption {
	return func(opts *CompileOptions) {
		opts.PreviousKey = prev
	}
}

// WithSimplify enables or disables constant folding. It is enabled by
// default.
func WithSimplify(enable bool) CompileOption {
	return func(opts *CompileOptions) {
		opts.Simplify = enable
	}
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}

// WithPool sets the pool parser instances are taken from.
func WithPool(pool *Pool) CompileOption {
	return func(opts *CompileOptions) {
		if pool != nil {
			opts.Pool = pool
		}
	}
}
