// Package extnumeric provides trigonometric, logarithmic and statistical
// formula functions.
//
// The statistical functions take their sample as arguments, e.g.
// median(close, close[1], close[2]). An empty result (such as the variance
// of a NaN-only sample) is NaN.
package extnumeric

import (
	"math"
	"slices"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/functions"
)

// All returns all extended numeric functions.
func All() []ast.Function {
	return []ast.Function{
		Log(),
		Sin(),
		Cos(),
		Tan(),
		Asin(),
		Acos(),
		Atan(),
		Atan2(),
		Hypot(),
		Mean(),
		Median(),
		Variance(),
		Stddev(),
		Percentile(),
		Mode(),
	}
}

// Log returns log(n, base). Non-positive n, or a base that is non-positive
// or 1, give NaN.
func Log() ast.Function {
	return functions.Func2("log", func(n, base float64) float64 {
		if n <= 0 || base <= 0 || base == 1 {
			return math.NaN()
		}
		return math.Log(n) / math.Log(base)
	})
}

func Sin() ast.Function   { return functions.Func1("sin", math.Sin) }
func Cos() ast.Function   { return functions.Func1("cos", math.Cos) }
func Tan() ast.Function   { return functions.Func1("tan", math.Tan) }
func Asin() ast.Function  { return functions.Func1("asin", math.Asin) }
func Acos() ast.Function  { return functions.Func1("acos", math.Acos) }
func Atan() ast.Function  { return functions.Func1("atan", math.Atan) }
func Atan2() ast.Function { return functions.Func2("atan2", math.Atan2) }
func Hypot() ast.Function { return functions.Func2("hypot", math.Hypot) }

// Mean returns the arithmetic mean of its arguments, ignoring NaN.
func Mean() ast.Function {
	return sample("mean", 1, func(xs []float64) float64 {
		sum := 0.0
		for _, x := range xs {
			sum += x
		}
		return sum / float64(len(xs))
	})
}

// Median returns the median of its arguments, ignoring NaN.
func Median() ast.Function {
	return sample("median", 1, func(xs []float64) float64 {
		slices.Sort(xs)
		mid := len(xs) / 2
		if len(xs)%2 == 0 {
			return (xs[mid-1] + xs[mid]) / 2
		}
		return xs[mid]
	})
}

// Variance returns the population variance of its arguments.
func Variance() ast.Function {
	return sample("variance", 1, variance)
}

// Stddev returns the population standard deviation of its arguments.
func Stddev() ast.Function {
	return sample("stddev", 1, func(xs []float64) float64 {
		return math.Sqrt(variance(xs))
	})
}

// Percentile returns percentile(p, x1, x2, ...) with p in [0, 100], using
// linear interpolation between the closest ranks.
func Percentile() ast.Function {
	return functions.Vector("percentile", ast.AtLeast(2), func(args []float64) float64 {
		p := args[0]
		if !(p >= 0 && p <= 100) {
			return math.NaN()
		}
		xs := finite(args[1:])
		if len(xs) == 0 {
			return math.NaN()
		}
		slices.Sort(xs)
		idx := p / 100 * float64(len(xs)-1)
		lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
		if lo == hi {
			return xs[lo]
		}
		frac := idx - float64(lo)
		return xs[lo]*(1-frac) + xs[hi]*frac
	})
}

// Mode returns the most frequent argument. Ties go to the value seen first.
func Mode() ast.Function {
	return sample("mode", 1, func(xs []float64) float64 {
		counts := make(map[float64]int, len(xs))
		top := 0
		for _, x := range xs {
			counts[x]++
			top = max(top, counts[x])
		}
		for _, x := range xs {
			if counts[x] == top {
				return x
			}
		}
		return math.NaN()
	})
}

// sample builds a variadic function over the non-NaN arguments.
func sample(name string, min int, f func(xs []float64) float64) ast.Function {
	return functions.Vector(name, ast.AtLeast(min), func(args []float64) float64 {
		xs := finite(args)
		if len(xs) == 0 {
			return math.NaN()
		}
		return f(xs)
	})
}

// finite drops NaN in place; args are owned by the caller of the closure.
func finite(args []float64) []float64 {
	return slices.DeleteFunc(args, math.IsNaN)
}

func variance(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs))
}
