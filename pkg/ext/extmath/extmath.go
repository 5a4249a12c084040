// Package extmath provides a math library for formulas: functions such as
// abs, min, max, pow, exp and ln, and the constants pi, e, nan, inf, true,
// false and null.
//
// exp, ln, log10 and pow are computed with extended precision and rounded
// once to a double.
package extmath

import (
	"math"
	"math/big"
	"math/rand/v2"

	"github.com/zephyrtronium/bigfloat"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns all math function definitions.
func All() []ast.Function {
	return []ast.Function{
		Abs(),
		Sign(),
		Sqrt(),
		Floor(),
		Ceil(),
		Round(),
		Trunc(),
		Min(),
		Max(),
		Sum(),
		Clamp(),
		If(),
		Nz(),
		IsNaN(),
		Exp(),
		Ln(),
		Log10(),
		PowFunc(),
		Rand(),
		Random(),
	}
}

// Constants returns the constant variables.
func Constants() []ast.Variable {
	return []ast.Variable{
		functions.Const("pi", bigConstant(bigfloat.Pi)),
		functions.Const("e", bigConstant(func(z *big.Float) *big.Float {
			var one big.Float
			one.SetPrec(z.Prec()).SetInt64(1)
			return bigfloat.Exp(z, &one)
		})),
		functions.Const("nan", math.NaN()),
		functions.Const("inf", math.Inf(1)),
		functions.Const("true", true),
		functions.Const("false", false),
		functions.Const("null", types.Null),
	}
}

func Abs() ast.Function   { return functions.Func1("abs", math.Abs) }
func Sqrt() ast.Function  { return functions.Func1("sqrt", math.Sqrt) }
func Floor() ast.Function { return functions.Func1("floor", math.Floor) }
func Ceil() ast.Function  { return functions.Func1("ceil", math.Ceil) }
func Round() ast.Function { return functions.Func1("round", math.Round) }
func Trunc() ast.Function { return functions.Func1("trunc", math.Trunc) }

// Sign returns -1, 0 or 1. NaN stays NaN.
func Sign() ast.Function {
	return functions.Func1("sign", func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return x
	})
}

func Min() ast.Function {
	return functions.FuncN("min", 1, identity, math.Min)
}

func Max() ast.Function {
	return functions.FuncN("max", 1, identity, math.Max)
}

func Sum() ast.Function {
	return functions.FuncN("sum", 1, identity, func(s, x float64) float64 { return s + x })
}

func identity(x float64) float64 { return x }

// Clamp returns clamp(x, lo, hi).
func Clamp() ast.Function {
	return functions.Func3("clamp", func(x, lo, hi float64) float64 {
		return math.Max(lo, math.Min(hi, x))
	})
}

// If returns if(cond, then, else). Both branches are evaluated.
func If() ast.Function {
	return functions.Func3("if", func(cond bool, a, b float64) float64 {
		if cond {
			return a
		}
		return b
	})
}

// Nz returns nz(x, fallback): x, or fallback when x is NaN.
func Nz() ast.Function {
	return functions.Func2("nz", func(x, fallback float64) float64 {
		if math.IsNaN(x) {
			return fallback
		}
		return x
	})
}

func IsNaN() ast.Function {
	return functions.Func1("isnan", func(x float64) bool { return math.IsNaN(x) })
}

// Exp returns exp(x).
func Exp() ast.Function {
	return functions.Func1("exp", func(x float64) float64 {
		if math.IsNaN(x) || math.Abs(x) > maxExp {
			return math.Exp(x)
		}
		return bigUnary(bigfloat.Exp, x)
	})
}

// Ln returns the natural logarithm.
func Ln() ast.Function {
	return functions.Func1("ln", ln)
}

// Log10 returns the base 10 logarithm.
func Log10() ast.Function {
	ln10 := ln(10)
	return functions.Func1("log10", func(x float64) float64 {
		return ln(x) / ln10
	})
}

func ln(x float64) float64 {
	if !(x > 0) || math.IsInf(x, 1) {
		return math.Log(x)
	}
	return bigUnary(bigfloat.Log, x)
}

// PowFunc returns pow(x, y). Positive finite bases are computed with extended
// precision; everything else follows math.Pow.
func PowFunc() ast.Function {
	return functions.Func2("pow", func(x, y float64) float64 {
		if !(x > 0) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) ||
			math.Abs(y*math.Log(x)) > maxExp {
			return math.Pow(x, y)
		}
		var z, bx, by big.Float
		z.SetPrec(precision)
		bx.SetPrec(precision).SetFloat64(x)
		by.SetPrec(precision).SetFloat64(y)
		bigfloat.Pow(&z, &bx, &by)
		r, _ := z.Float64()
		return r
	})
}

// Rand returns rand(): a uniform number in [0, 1). It is never folded.
func Rand() ast.Function {
	return functions.Func0("rand", rand.Float64, functions.Impure())
}

// Random returns random(seed): a number in [0, 1) determined by seed. A call
// is folded only when its seed is a constant.
func Random() ast.Function {
	return functions.Func1("random", func(s float64) float64 {
		return float64(splitmix64(math.Float64bits(s))>>11) / (1 << 53)
	}, functions.NaturalWhen(func(args []ast.Node) bool {
		return args[0].IsConstant()
	}))
}

// precision is the mantissa size of intermediate results.
const precision = 113

// maxExp bounds arguments of exp beyond which the result is 0 or +Inf.
const maxExp = 710

func bigUnary(f func(z, x *big.Float) *big.Float, x float64) float64 {
	var z, in big.Float
	z.SetPrec(precision)
	in.SetPrec(precision).SetFloat64(x)
	f(&z, &in)
	r, _ := z.Float64()
	return r
}

func bigConstant(f func(z *big.Float) *big.Float) float64 {
	var z big.Float
	z.SetPrec(precision)
	f(&z)
	r, _ := z.Float64()
	return r
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ x>>30) * 0xbf58476d1ce4e5b9
	x = (x ^ x>>27) * 0x94d049bb133111eb
	return x ^ x>>31
}
