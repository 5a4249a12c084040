package ast_test

import (
	"fmt"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

var (
	plus  = functions.Func2("+", func(a, b float64) float64 { return a + b })
	times = functions.Func2("*", func(a, b float64) float64 { return a * b })
	pow   = functions.Func2("**", math.Pow)
	neg   = functions.Func1("-", func(a float64) float64 { return -a })
	sqrt  = functions.Func1("sqrt", math.Sqrt)
	ticks = functions.Func0("ticks", func() float64 { return 1 }, functions.Impure())
)

// Binding powers as the parser assigns them.
const (
	additive       = 50
	multiplicative = 60
	power          = 70
)

func add(l, r ast.Node) ast.Node { return ast.NewInfix(plus, "+", additive, false, l, r) }
func mul(l, r ast.Node) ast.Node { return ast.NewInfix(times, "*", multiplicative, false, l, r) }
func exp(l, r ast.Node) ast.Node { return ast.NewInfix(pow, "**", power, true, l, r) }

func series(name string) ast.Variable {
	return functions.Var(name,
		func() float64 { return 100 },
		func(i int64) float64 { return float64(i) },
		func(t time.Time) float64 { return float64(t.Day()) },
	)
}

func TestCompleteCoercions(t *testing.T) {
	var k types.NoKey
	tests := []struct {
		name string
		c    *ast.Closures[types.NoKey]
		d    float64
		i    int64
		b    bool
		n    types.NullBool
	}{
		{"double", ast.Closures[types.NoKey]{Double: func(types.NoKey) float64 { return 2.7 }}.Complete(types.Double), 2.7, 2, true, types.True},
		{"negative double", ast.Closures[types.NoKey]{Double: func(types.NoKey) float64 { return -0.5 }}.Complete(types.Double), -0.5, 0, false, types.False},
		{"nan", ast.Closures[types.NoKey]{Double: func(types.NoKey) float64 { return math.NaN() }}.Complete(types.Double), math.NaN(), 0, false, types.Null},
		{"integer", ast.Closures[types.NoKey]{Integer: func(types.NoKey) int64 { return 3 }}.Complete(types.Integer), 3, 3, true, types.True},
		{"boolean", ast.Closures[types.NoKey]{Boolean: func(types.NoKey) bool { return true }}.Complete(types.Boolean), 1, 1, true, types.True},
		{"null", ast.Closures[types.NoKey]{NullBool: func(types.NoKey) types.NullBool { return types.Null }}.Complete(types.NullBoolean), math.NaN(), 0, false, types.Null},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := tt.c.Double(k); d != tt.d && !(math.IsNaN(d) && math.IsNaN(tt.d)) {
				t.Errorf("Double = %v, want %v", d, tt.d)
			}
			if i := tt.c.Integer(k); i != tt.i {
				t.Errorf("Integer = %v, want %v", i, tt.i)
			}
			if b := tt.c.Boolean(k); b != tt.b {
				t.Errorf("Boolean = %v, want %v", b, tt.b)
			}
			if n := tt.c.NullBool(k); n != tt.n {
				t.Errorf("NullBool = %v, want %v", n, tt.n)
			}
		})
	}
}

func TestCompleteKeepsGivenClosures(t *testing.T) {
	c := ast.Closures[int64]{
		Double:  func(k int64) float64 { return float64(k) / 2 },
		Integer: func(int64) int64 { return -1 },
	}.Complete(types.Double)
	if got := c.Integer(10); got != -1 {
		t.Errorf("Integer = %d, want the given closure", got)
	}
	if got := c.Double(3); got != 1.5 {
		t.Errorf("Double = %v", got)
	}
}

func TestCompleteMissingNative(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	ast.Closures[int64]{}.Complete(types.Integer)
}

func TestConstantString(t *testing.T) {
	tests := []struct {
		node ast.Node
		want string
	}{
		{ast.NewInteger(42), "42"},
		{ast.NewDouble(42), "42.0"},
		{ast.NewDouble(0.25), "0.25"},
		{ast.NewDouble(1e21), "1e+21"},
		{ast.NewDouble(math.NaN()), "nan"},
		{ast.NewDouble(math.Inf(-1)), "-inf"},
		{ast.NewBoolean(true), "true"},
		{ast.NewNullBool(types.Null), "null"},
		{ast.NewText("a \"b\"\n"), `"a \"b\"\n"`},
	}
	for _, tt := range tests {
		if got := tt.node.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	if got := ast.NewText(" 2.5 ").Static().Double(types.NoKey{}); got != 2.5 {
		t.Errorf("numeric text = %v, want 2.5", got)
	}
	if got := ast.NewText("abc").Index().Double(7); !math.IsNaN(got) {
		t.Errorf("text = %v, want NaN", got)
	}
}

func TestPrinting(t *testing.T) {
	a := ast.NewVarRef(series("a"), "a")
	b := ast.NewVarRef(series("b"), "b")
	c := ast.NewVarRef(series("c"), "c")

	tests := []struct {
		node ast.Node
		want string
	}{
		{add(add(a, b), c), "a + b + c"},
		{add(a, add(b, c)), "a + (b + c)"},
		{mul(add(a, b), c), "(a + b) * c"},
		{add(a, mul(b, c)), "a + b * c"},
		{exp(a, exp(b, c)), "a ** b ** c"},
		{exp(exp(a, b), c), "(a ** b) ** c"},
		{ast.NewPrefix(neg, "-", exp(a, b)), "-a ** b"},
		{exp(ast.NewPrefix(neg, "-", a), b), "(-a) ** b"},
		{mul(ast.NewPrefix(neg, "-", a), b), "-a * b"},
		{ast.NewPrefix(neg, "-", mul(a, b)), "-(a * b)"},
		{ast.NewCall(sqrt, "sqrt", []ast.Node{add(a, b)}), "sqrt(a + b)"},
		{ast.NewOffset(add(a, b), 2, nil), "(a + b)[2]"},
		{ast.NewOffset(a, 1, nil), "a[1]"},
		{ast.NewCall(plus, "eu:add", []ast.Node{a, b}), "eu:add(a, b)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.node.String(); got != tt.want {
				t.Errorf("String() = %q", got)
			}
		})
	}
}

func TestSimplify(t *testing.T) {
	x := ast.NewVarRef(series("x"), "x")
	pi := ast.NewVarRef(functions.Const("pi", math.Pi), "pi")

	tests := []struct {
		name     string
		node     ast.Node
		want     string
		constant bool
	}{
		{"constant call", mul(ast.NewInteger(2), add(ast.NewDouble(3), ast.NewDouble(4))), "14.0", true},
		{"natural variable", mul(ast.NewInteger(2), pi), ast.FormatDouble(2 * math.Pi), true},
		{"host variable", add(x, mul(ast.NewDouble(2), ast.NewDouble(3))), "x + 6.0", false},
		{"impure", add(ast.NewCall(ticks, "ticks", nil), ast.NewDouble(1)), "ticks() + 1.0", false},
		{"offset of constant", ast.NewOffset(add(ast.NewDouble(1), ast.NewDouble(1)), 3, nil), "2.0", true},
		{"offset of variable", ast.NewOffset(add(x, ast.NewDouble(0)), 3, nil), "(x + 0.0)[3]", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.node.Simplify()
			if got := s.String(); got != tt.want {
				t.Errorf("Simplify() = %q, want %q", got, tt.want)
			}
			if s.IsConstant() != tt.constant {
				t.Errorf("IsConstant() = %v", s.IsConstant())
			}
			if again := s.Simplify().String(); again != s.String() {
				t.Errorf("second Simplify() = %q", again)
			}
		})
	}
}

func TestOffsetIndex(t *testing.T) {
	x := ast.NewVarRef(series("x"), "x")
	o := ast.NewOffset(x, 3, nil)
	if got := o.Index().Double(10); got != 7 {
		t.Errorf("x[3] at 10 = %v, want 7", got)
	}
	if got := o.Static().Double(types.NoKey{}); got != 100 {
		t.Errorf("static x[3] = %v, want the unshifted 100", got)
	}
	if got := o.Date().Double(time.Now()); !math.IsNaN(got) {
		t.Errorf("date x[3] without previous keys = %v, want NaN", got)
	}
}

func TestOffsetDate(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	keys := []time.Time{day(1), day(3), day(8)}
	prev := func(t time.Time, steps int) (time.Time, bool) {
		i := slices.IndexFunc(keys, t.Equal) - steps
		if i < 0 || i >= len(keys) {
			return time.Time{}, false
		}
		return keys[i], true
	}

	x := ast.NewVarRef(series("x"), "x")
	o := ast.NewOffset(x, 1, prev)
	if got := o.Date().Double(day(8)); got != 3 {
		t.Errorf("x[1] at day 8 = %v, want 3", got)
	}
	if got := o.Date().Double(day(1)); !math.IsNaN(got) {
		t.Errorf("x[1] at the first key = %v, want NaN", got)
	}
	if got := o.Date().NullBool(day(1)); got != types.Null {
		t.Errorf("nullable x[1] at the first key = %v, want null", got)
	}
}

func TestLocalSharesClosures(t *testing.T) {
	calls := 0
	counter := functions.Func1("count", func(a float64) float64 { calls++; return a }, functions.Impure())
	def := ast.NewCall(counter, "count", []ast.Node{ast.NewVarRef(series("x"), "x")})
	l := ast.NewLocal("v", def)
	script := ast.NewScript([]ast.Declaration{{Name: "v", Value: def}}, add(l, l))

	if got := script.Index().Double(5); got != 10 {
		t.Errorf("v + v at 5 = %v, want 10", got)
	}
	if l.Index() != def.Index() {
		t.Error("local and definition must share closures")
	}
	if got := script.String(); got != "var v = count(x); v + v" {
		t.Errorf("String() = %q", got)
	}
	if calls != 2 {
		t.Errorf("count called %d times, want 2", calls)
	}
}

func TestLocalSimplify(t *testing.T) {
	l := ast.NewLocal("v", add(ast.NewDouble(1), ast.NewDouble(2)))
	script := ast.NewScript([]ast.Declaration{{Name: "v", Value: l.Definition()}}, mul(l, ast.NewVarRef(series("x"), "x")))
	if got := script.Simplify().String(); got != "var v = 3.0; 3.0 * x" {
		t.Errorf("Simplify() = %q", got)
	}
}

// chain builds var a0 = x; var a1 = a0 + a0; ... a(n-1), with a separate
// Local node for every use, the way the parser builds scripts.
func chain(n int) *ast.Script {
	decls := []ast.Declaration{{Name: "a0", Value: ast.NewVarRef(series("x"), "x")}}
	for i := 1; i < n; i++ {
		prev := decls[i-1]
		decls = append(decls, ast.Declaration{
			Name:  fmt.Sprintf("a%d", i),
			Value: add(ast.NewLocal(prev.Name, prev.Value), ast.NewLocal(prev.Name, prev.Value)),
		})
	}
	last := decls[n-1]
	return ast.NewScript(decls, ast.NewLocal(last.Name, last.Value))
}

func TestScriptSimplifyKeepsSharing(t *testing.T) {
	const n = 30
	simplified, ok := chain(n).Simplify().(*ast.Script)
	if !ok {
		t.Fatal("a script with a variable definition must stay a script")
	}
	decls := simplified.Declarations()
	for i := 1; i < n; i++ {
		for _, arg := range decls[i].Value.(*ast.Call).Args() {
			if arg.(*ast.Local).Definition() != decls[i-1].Value {
				t.Fatalf("a%d refers to a copy of a%d", i, i-1)
			}
		}
	}
	if final := simplified.Final().(*ast.Local); final.Definition() != decls[n-1].Value {
		t.Error("the final expression refers to a copy of its definition")
	}
	if got, want := simplified.Index().Double(3), 3*math.Pow(2, n-1); got != want {
		t.Errorf("value at 3 = %v, want %v", got, want)
	}
}

func TestWalkVisitsDefinitionsOnce(t *testing.T) {
	const n = 30
	script := chain(n)
	var visited int
	ast.Walk(script, func(ast.Node) bool {
		visited++
		return true
	})
	// The script, x, and per declaration a call with two locals, plus the final local.
	if want := 2 + 3*(n-1) + 1; visited != want {
		t.Errorf("visited %d nodes, want %d", visited, want)
	}
	if got := ast.Variables(script); !slices.Equal(got, []string{"x"}) {
		t.Errorf("Variables() = %v", got)
	}
}

func TestWalk(t *testing.T) {
	x := ast.NewVarRef(series("x"), "x")
	y := ast.NewVarRef(series("y"), "y")
	tree := add(ast.NewCall(sqrt, "sqrt", []ast.Node{x}), mul(y, ast.NewOffset(x, 1, nil)))
	expr := ast.NewExpression(tree, "sqrt(x) + y * x[1]", "")

	if got := expr.Variables(); !slices.Equal(got, []string{"x", "y"}) {
		t.Errorf("Variables() = %v", got)
	}
	if got := expr.Functions(); !slices.Equal(got, []string{"sqrt"}) {
		t.Errorf("Functions() = %v", got)
	}

	var visited int
	ast.Walk(tree, func(n ast.Node) bool {
		visited++
		_, isCall := n.(*ast.Call)
		return !isCall || n == tree
	})
	if visited != 3 {
		t.Errorf("visited %d nodes, want the root and its two calls", visited)
	}
}

func TestArity(t *testing.T) {
	tests := []struct {
		arity ast.Arity
		n     int
		ok    bool
		text  string
	}{
		{ast.Fixed(1), 1, true, "1 argument"},
		{ast.Fixed(2), 3, false, "2 arguments"},
		{ast.AtLeast(1), 4, true, "at least 1 argument"},
		{ast.AtLeast(2), 1, false, "at least 2 arguments"},
	}
	for _, tt := range tests {
		if got := tt.arity.Accepts(tt.n); got != tt.ok {
			t.Errorf("%v.Accepts(%d) = %v", tt.arity, tt.n, got)
		}
		if got := tt.arity.String(); got != tt.text {
			t.Errorf("String() = %q, want %q", got, tt.text)
		}
	}
}

func BenchmarkIndexClosures(b *testing.B) {
	x := ast.NewVarRef(series("x"), "x")
	tree := add(mul(x, ast.NewDouble(2)), ast.NewOffset(x, 1, nil))
	eval := tree.Index().Double
	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		_ = eval(int64(i))
	}
}
