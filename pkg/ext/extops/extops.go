// Package extops provides the operator descriptors of the formula grammar.
//
// Operators are ordinary functions named after their symbol. Arithmetic
// works on doubles; comparisons and logical operators return nullable
// booleans: a comparison involving NaN is null, and && || ! follow
// three-valued logic.
//
//	reg.RegisterFunction("", extops.All()...)
package extops

import (
	"math"
	"time"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns every operator.
func All() []ast.Function {
	return []ast.Function{
		Plus(),
		Minus(),
		Mult(),
		Div(),
		Mod(),
		Pow("**"),
		Pow("^"),
		Equal("=="),
		NotEqual("!="),
		NotEqual("<>"),
		Less(),
		LessEqual(),
		Greater(),
		GreaterEqual(),
		And(),
		Or(),
		Not(),
	}
}

// Plus returns '+': unary identity or addition.
func Plus() ast.Function {
	return functions.FuncN("+", 1,
		func(a float64) float64 { return a },
		func(sum, a float64) float64 { return sum + a },
	)
}

// Minus returns '-': negation of one operand or subtraction of two.
func Minus() ast.Function {
	return &prefixOrInfix{
		prefix: functions.Func1("-", func(a float64) float64 { return -a }),
		infix:  functions.Func2("-", func(a, b float64) float64 { return a - b }),
	}
}

func Mult() ast.Function {
	return functions.Func2("*", func(a, b float64) float64 { return a * b })
}

// Div returns '/'. Division by zero follows IEEE 754.
func Div() ast.Function {
	return functions.Func2("/", func(a, b float64) float64 { return a / b })
}

func Mod() ast.Function {
	return functions.Func2("%", math.Mod)
}

// Pow returns a power operator under symbol.
func Pow(symbol string) ast.Function {
	return functions.Func2(symbol, math.Pow)
}

func compare(symbol string, cmp func(a, b float64) bool) ast.Function {
	return functions.Func2(symbol, func(a, b float64) types.NullBool {
		if math.IsNaN(a) || math.IsNaN(b) {
			return types.Null
		}
		return types.NullBoolOf(cmp(a, b))
	})
}

func Equal(symbol string) ast.Function {
	return compare(symbol, func(a, b float64) bool { return a == b })
}

func NotEqual(symbol string) ast.Function {
	return compare(symbol, func(a, b float64) bool { return a != b })
}

func Less() ast.Function {
	return compare("<", func(a, b float64) bool { return a < b })
}

func LessEqual() ast.Function {
	return compare("<=", func(a, b float64) bool { return a <= b })
}

func Greater() ast.Function {
	return compare(">", func(a, b float64) bool { return a > b })
}

func GreaterEqual() ast.Function {
	return compare(">=", func(a, b float64) bool { return a >= b })
}

// And returns '&&': false wins over null.
func And() ast.Function {
	return functions.Func2("&&", func(a, b types.NullBool) types.NullBool {
		switch {
		case a == types.False || b == types.False:
			return types.False
		case a == types.Null || b == types.Null:
			return types.Null
		default:
			return types.True
		}
	})
}

// Or returns '||': true wins over null.
func Or() ast.Function {
	return functions.Func2("||", func(a, b types.NullBool) types.NullBool {
		switch {
		case a == types.True || b == types.True:
			return types.True
		case a == types.Null || b == types.Null:
			return types.Null
		default:
			return types.False
		}
	})
}

// Not returns '!'. The negation of null is null.
func Not() ast.Function {
	return functions.Func1("!", func(a types.NullBool) types.NullBool {
		switch a {
		case types.True:
			return types.False
		case types.False:
			return types.True
		default:
			return types.Null
		}
	})
}

// prefixOrInfix dispatches on the operand count.
type prefixOrInfix struct {
	prefix, infix ast.Function
}

func (o *prefixOrInfix) pick(args []ast.Node) ast.Function {
	if len(args) == 1 {
		return o.prefix
	}
	return o.infix
}

func (o *prefixOrInfix) Name() string               { return o.infix.Name() }
func (o *prefixOrInfix) ValueType() types.ValueType { return o.infix.ValueType() }

// Arity accepts one or two operands; operators are never called with more.
func (o *prefixOrInfix) Arity() ast.Arity { return ast.AtLeast(1) }

func (o *prefixOrInfix) Natural(args []ast.Node) bool { return o.pick(args).Natural(args) }

func (o *prefixOrInfix) Static(args []ast.Node) ast.Closures[types.NoKey] {
	return o.pick(args).Static(args)
}

func (o *prefixOrInfix) Index(args []ast.Node) ast.Closures[int64] {
	return o.pick(args).Index(args)
}

func (o *prefixOrInfix) Date(args []ast.Node) ast.Closures[time.Time] {
	return o.pick(args).Date(args)
}
