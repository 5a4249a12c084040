package extmath_test

import (
	"math"
	"testing"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/ext/extmath"
	"github.com/sandrolain/goformula/pkg/types"
)

func call(fn ast.Function, args ...float64) *ast.Expression {
	nodes := make([]ast.Node, len(args))
	for i, a := range args {
		nodes[i] = ast.NewDouble(a)
	}
	return ast.NewExpression(ast.NewCall(fn, fn.Name(), nodes), "", "")
}

func same(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func TestFunctions(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	tests := []struct {
		fn   ast.Function
		args []float64
		want float64
	}{
		{extmath.Abs(), []float64{-2.5}, 2.5},
		{extmath.Sign(), []float64{-0.1}, -1},
		{extmath.Sign(), []float64{nan}, nan},
		{extmath.Round(), []float64{2.5}, 3},
		{extmath.Trunc(), []float64{-2.7}, -2},
		{extmath.Min(), []float64{3, 1, 2}, 1},
		{extmath.Max(), []float64{3}, 3},
		{extmath.Max(), []float64{1, nan}, nan},
		{extmath.Sum(), []float64{1, 2, 3.5}, 6.5},
		{extmath.Clamp(), []float64{-4, 0, 10}, 0},
		{extmath.If(), []float64{nan, 1, 2}, 2},
		{extmath.If(), []float64{0.5, 1, 2}, 1},
		{extmath.Nz(), []float64{nan, 7}, 7},
		{extmath.Nz(), []float64{3, 7}, 3},
		{extmath.IsNaN(), []float64{nan}, 1},

		{extmath.Exp(), []float64{0}, 1},
		{extmath.Exp(), []float64{1}, math.E},
		{extmath.Exp(), []float64{1000}, inf},
		{extmath.Exp(), []float64{-1000}, 0},
		{extmath.Ln(), []float64{0}, -inf},
		{extmath.Ln(), []float64{-1}, nan},
		{extmath.Ln(), []float64{inf}, inf},
		{extmath.PowFunc(), []float64{2, 10}, 1024},
		{extmath.PowFunc(), []float64{10, -2}, 0.01},
		{extmath.PowFunc(), []float64{0, 0}, 1},
		{extmath.PowFunc(), []float64{-8, 1.0 / 3}, nan},
		{extmath.PowFunc(), []float64{2, inf}, inf},
	}
	for _, tt := range tests {
		if got := call(tt.fn, tt.args...).EvalDouble(); !same(got, tt.want) {
			t.Errorf("%s%v = %v, want %v", tt.fn.Name(), tt.args, got, tt.want)
		}
	}
}

func TestConstants(t *testing.T) {
	want := map[string]float64{
		"pi":    math.Pi,
		"e":     math.E,
		"nan":   math.NaN(),
		"inf":   math.Inf(1),
		"true":  1,
		"false": 0,
		"null":  math.NaN(),
	}
	for _, v := range extmath.Constants() {
		ref := ast.NewVarRef(v, v.Name())
		if !v.Natural() {
			t.Errorf("%s must be natural", v.Name())
		}
		if got := ast.NewExpression(ref, "", "").EvalDouble(); !same(got, want[v.Name()]) {
			t.Errorf("%s = %v, want %v", v.Name(), got, want[v.Name()])
		}
	}
	for _, v := range extmath.Constants() {
		if v.Name() == "null" && v.ValueType() != types.NullBoolean {
			t.Errorf("null has type %v", v.ValueType())
		}
	}
}

func TestRandomFolding(t *testing.T) {
	seeded := ast.NewCall(extmath.Random(), "random", []ast.Node{ast.NewDouble(42)})
	folded := seeded.Simplify()
	if !folded.IsConstant() {
		t.Fatal("random with a constant seed must fold")
	}
	a := ast.NewExpression(folded, "", "").EvalDouble()
	b := ast.NewExpression(seeded, "", "").EvalDouble()
	if a != b || a < 0 || a >= 1 {
		t.Errorf("random(42) = %v then %v", a, b)
	}
	if other := call(extmath.Random(), 43).EvalDouble(); other == a {
		t.Error("different seeds give the same number")
	}

	unseeded := ast.NewCall(extmath.Rand(), "rand", nil)
	if unseeded.Simplify().IsConstant() {
		t.Error("rand() must not fold")
	}
	for range 100 {
		if v := ast.NewExpression(unseeded, "", "").EvalDouble(); v < 0 || v >= 1 {
			t.Fatalf("rand() = %v", v)
		}
	}
}
