package functions

import (
	"time"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/types"
)

// Value is the set of Go types a formula value can take.
type Value interface {
	float64 | int64 | bool | types.NullBool
}

// ValueTypeOf returns the formula value type of V.
func ValueTypeOf[V Value]() types.ValueType {
	var zero V
	switch any(zero).(type) {
	case int64:
		return types.Integer
	case bool:
		return types.Boolean
	case types.NullBool:
		return types.NullBoolean
	default:
		return types.Double
	}
}

// closure returns the closure of c evaluating to V.
func closure[K any, V Value](c *ast.Closures[K]) func(K) V {
	var zero V
	switch any(zero).(type) {
	case int64:
		return any(c.Integer).(func(K) V)
	case bool:
		return any(c.Boolean).(func(K) V)
	case types.NullBool:
		return any(c.NullBool).(func(K) V)
	default:
		return any(c.Double).(func(K) V)
	}
}

// closures wraps a native closure; ast completes the other value types.
func closures[K any, V Value](f func(K) V) ast.Closures[K] {
	var c ast.Closures[K]
	switch g := any(f).(type) {
	case func(K) float64:
		c.Double = g
	case func(K) int64:
		c.Integer = g
	case func(K) bool:
		c.Boolean = g
	case func(K) types.NullBool:
		c.NullBool = g
	}
	return c
}

// Option configures a function built by the adapters.
type Option func(*descriptor)

// Impure marks the function as depending on hidden state: calls are never
// folded into constants.
func Impure() Option {
	return func(d *descriptor) {
		d.natural = func([]ast.Node) bool { return false }
	}
}

// NaturalWhen decides purity per call site from the argument nodes.
func NaturalWhen(natural func(args []ast.Node) bool) Option {
	return func(d *descriptor) {
		d.natural = natural
	}
}

// descriptor is the ast.Function built by the adapters.
type descriptor struct {
	name    string
	arity   ast.Arity
	vt      types.ValueType
	natural func(args []ast.Node) bool
	static  func(args []ast.Node) ast.Closures[types.NoKey]
	index   func(args []ast.Node) ast.Closures[int64]
	date    func(args []ast.Node) ast.Closures[time.Time]
}

func (d *descriptor) Name() string                                     { return d.name }
func (d *descriptor) Arity() ast.Arity                                 { return d.arity }
func (d *descriptor) ValueType() types.ValueType                       { return d.vt }
func (d *descriptor) Natural(args []ast.Node) bool                     { return d.natural(args) }
func (d *descriptor) Static(args []ast.Node) ast.Closures[types.NoKey] { return d.static(args) }
func (d *descriptor) Index(args []ast.Node) ast.Closures[int64]        { return d.index(args) }
func (d *descriptor) Date(args []ast.Node) ast.Closures[time.Time]     { return d.date(args) }

func build(d *descriptor, opts []Option) ast.Function {
	if d.natural == nil {
		d.natural = func([]ast.Node) bool { return true }
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Func0 adapts a function without arguments. Unless marked Impure it is
// folded into a constant.
func Func0[R Value](name string, f func() R, opts ...Option) ast.Function {
	return build(&descriptor{
		name:   name,
		arity:  ast.Fixed(0),
		vt:     ValueTypeOf[R](),
		static: func([]ast.Node) ast.Closures[types.NoKey] { return call0[types.NoKey](f) },
		index:  func([]ast.Node) ast.Closures[int64] { return call0[int64](f) },
		date:   func([]ast.Node) ast.Closures[time.Time] { return call0[time.Time](f) },
	}, opts)
}

func call0[K any, R Value](f func() R) ast.Closures[K] {
	return closures(func(K) R { return f() })
}

// Func1 adapts a function of one argument.
func Func1[A, R Value](name string, f func(A) R, opts ...Option) ast.Function {
	return build(&descriptor{
		name:   name,
		arity:  ast.Fixed(1),
		vt:     ValueTypeOf[R](),
		static: func(args []ast.Node) ast.Closures[types.NoKey] { return call1(ast.StaticSpace, args, f) },
		index:  func(args []ast.Node) ast.Closures[int64] { return call1(ast.IndexSpace, args, f) },
		date:   func(args []ast.Node) ast.Closures[time.Time] { return call1(ast.DateSpace, args, f) },
	}, opts)
}

func call1[K any, A, R Value](space func(ast.Node) *ast.Closures[K], args []ast.Node, f func(A) R) ast.Closures[K] {
	a := closure[K, A](space(args[0]))
	return closures(func(k K) R { return f(a(k)) })
}

// Func2 adapts a function of two arguments.
func Func2[A, B, R Value](name string, f func(A, B) R, opts ...Option) ast.Function {
	return build(&descriptor{
		name:   name,
		arity:  ast.Fixed(2),
		vt:     ValueTypeOf[R](),
		static: func(args []ast.Node) ast.Closures[types.NoKey] { return call2(ast.StaticSpace, args, f) },
		index:  func(args []ast.Node) ast.Closures[int64] { return call2(ast.IndexSpace, args, f) },
		date:   func(args []ast.Node) ast.Closures[time.Time] { return call2(ast.DateSpace, args, f) },
	}, opts)
}

func call2[K any, A, B, R Value](space func(ast.Node) *ast.Closures[K], args []ast.Node, f func(A, B) R) ast.Closures[K] {
	a := closure[K, A](space(args[0]))
	b := closure[K, B](space(args[1]))
	return closures(func(k K) R { return f(a(k), b(k)) })
}

// Func3 adapts a function of three arguments.
func Func3[A, B, C, R Value](name string, f func(A, B, C) R, opts ...Option) ast.Function {
	return build(&descriptor{
		name:   name,
		arity:  ast.Fixed(3),
		vt:     ValueTypeOf[R](),
		static: func(args []ast.Node) ast.Closures[types.NoKey] { return call3(ast.StaticSpace, args, f) },
		index:  func(args []ast.Node) ast.Closures[int64] { return call3(ast.IndexSpace, args, f) },
		date:   func(args []ast.Node) ast.Closures[time.Time] { return call3(ast.DateSpace, args, f) },
	}, opts)
}

func call3[K any, A, B, C, R Value](space func(ast.Node) *ast.Closures[K], args []ast.Node, f func(A, B, C) R) ast.Closures[K] {
	a := closure[K, A](space(args[0]))
	b := closure[K, B](space(args[1]))
	c := closure[K, C](space(args[2]))
	return closures(func(k K) R { return f(a(k), b(k), c(k)) })
}

// FuncN adapts a variadic function of at least min arguments as a fold:
// first maps the first argument and step combines the running result with
// each following one. Evaluation does not allocate.
func FuncN[A, R Value](name string, min int, first func(A) R, step func(R, A) R, opts ...Option) ast.Function {
	if min < 1 {
		min = 1
	}
	return build(&descriptor{
		name:   name,
		arity:  ast.AtLeast(min),
		vt:     ValueTypeOf[R](),
		static: func(args []ast.Node) ast.Closures[types.NoKey] { return callN(ast.StaticSpace, args, first, step) },
		index:  func(args []ast.Node) ast.Closures[int64] { return callN(ast.IndexSpace, args, first, step) },
		date:   func(args []ast.Node) ast.Closures[time.Time] { return callN(ast.DateSpace, args, first, step) },
	}, opts)
}

func callN[K any, A, R Value](space func(ast.Node) *ast.Closures[K], args []ast.Node, first func(A) R, step func(R, A) R) ast.Closures[K] {
	fs := make([]func(K) A, len(args))
	for i, a := range args {
		fs[i] = closure[K, A](space(a))
	}
	head, rest := fs[0], fs[1:]
	return closures(func(k K) R {
		r := first(head(k))
		for _, f := range rest {
			r = step(r, f(k))
		}
		return r
	})
}

// Vector adapts a function receiving its arguments as doubles in one slice.
// It suits functions defined outside Go, whose arity is only known at run
// time. Unlike the typed adapters, every evaluation allocates the slice.
func Vector(name string, arity ast.Arity, f func(args []float64) float64, opts ...Option) ast.Function {
	return build(&descriptor{
		name:   name,
		arity:  arity,
		vt:     types.Double,
		static: func(args []ast.Node) ast.Closures[types.NoKey] { return callVector(ast.StaticSpace, args, f) },
		index:  func(args []ast.Node) ast.Closures[int64] { return callVector(ast.IndexSpace, args, f) },
		date:   func(args []ast.Node) ast.Closures[time.Time] { return callVector(ast.DateSpace, args, f) },
	}, opts)
}

func callVector[K any](space func(ast.Node) *ast.Closures[K], args []ast.Node, f func([]float64) float64) ast.Closures[K] {
	fs := make([]func(K) float64, len(args))
	for i, a := range args {
		fs[i] = space(a).Double
	}
	return ast.Closures[K]{Double: func(k K) float64 {
		vs := make([]float64, len(fs))
		for i, g := range fs {
			vs[i] = g(k)
		}
		return f(vs)
	}}
}
