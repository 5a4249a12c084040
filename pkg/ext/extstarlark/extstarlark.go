// Package extstarlark defines formula functions in Starlark.
//
// A script is executed once; every global Starlark function whose name does
// not start with '_' becomes a formula function. Positional parameters map to
// arguments, *args makes the function variadic. The math module of the
// Starlark library is predeclared.
//
//	def hypot3(x, y, z):
//	    return math.sqrt(x*x + y*y + z*z)
//
// Results must be numbers or booleans; anything else, and any Starlark
// error, evaluates to NaN.
package extstarlark

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/functions"
)

// Option configures Load.
type Option func(*options)

type options struct {
	logger *slog.Logger
	impure bool
}

// WithLogger receives the output of Starlark print calls.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithImpure prevents calls from being folded into constants, e.g. for
// scripts reading the time module.
func WithImpure() Option {
	return func(o *options) {
		o.impure = true
	}
}

// Script is an executed Starlark file.
type Script struct {
	filename string
	globals  starlark.StringDict
	fns      []ast.Function
}

// Load executes src (a string, []byte or io.Reader; nil reads filename) and
// collects its functions.
func Load(filename string, src any, opts ...Option) (*Script, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	thread := newThread(filename, o.logger)
	predeclared := starlark.StringDict{"math": starlarkmath.Module}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
	}, thread, filename, src, predeclared)
	if err != nil {
		return nil, fmt.Errorf("load starlark %s: %w", filename, err)
	}
	globals.Freeze()

	s := &Script{filename: filename, globals: globals}
	for _, name := range globals.Keys() {
		fn, ok := globals[name].(*starlark.Function)
		if !ok || strings.HasPrefix(name, "_") {
			continue
		}
		s.fns = append(s.fns, s.function(name, fn, o))
	}
	return s, nil
}

// Filename returns the name the script was loaded under.
func (s *Script) Filename() string { return s.filename }

// Functions returns the formula functions, sorted by name.
func (s *Script) Functions() []ast.Function { return s.fns }

func (s *Script) function(name string, fn *starlark.Function, o options) ast.Function {
	positional := fn.NumParams() - fn.NumKwonlyParams()
	if fn.HasVarargs() {
		positional--
	}
	if fn.HasKwargs() {
		positional--
	}
	arity := ast.Fixed(positional)
	if fn.HasVarargs() {
		arity = ast.AtLeast(positional)
	}

	var opts []functions.Option
	if o.impure {
		opts = append(opts, functions.Impure())
	}
	logger := o.logger
	return functions.Vector(name, arity, func(args []float64) float64 {
		tuple := make(starlark.Tuple, len(args))
		for i, a := range args {
			tuple[i] = starlark.Float(a)
		}
		v, err := starlark.Call(newThread(name, logger), fn, tuple, nil)
		if err != nil {
			logger.Debug("starlark call failed", "function", name, "error", err)
			return math.NaN()
		}
		return toDouble(v)
	}, opts...)
}

func newThread(name string, logger *slog.Logger) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info(msg, "starlark", name)
		},
	}
}

func toDouble(v starlark.Value) float64 {
	switch v := v.(type) {
	case starlark.Bool:
		if v {
			return 1
		}
		return 0
	case starlark.NoneType:
		return math.NaN()
	}
	if f, ok := starlark.AsFloat(v); ok {
		return f
	}
	return math.NaN()
}
