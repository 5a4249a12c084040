package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sandrolain/goformula/pkg/cache"
	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/ext/extmath"
	"github.com/sandrolain/goformula/pkg/ext/extops"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/series"
	"github.com/sandrolain/goformula/pkg/types"
)

func newEvaluator(opts ...evaluator.EvalOption) *evaluator.Evaluator {
	base := []evaluator.EvalOption{
		evaluator.WithFunctions(extops.All()...),
		evaluator.WithFunctions(extmath.All()...),
		evaluator.WithVariables(extmath.Constants()...),
	}
	return evaluator.New(append(base, opts...)...)
}

func TestEval(t *testing.T) {
	ev := newEvaluator()
	tests := []struct {
		expr string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"max(1, 5, 3) - min(4, 2)", 3},
		{"round(pi * 100) / 100", 3.14},
		{"if(1 < 2, 10, 20)", 10},
		{"2 ** 3 ** 2", 512},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ev.Eval(context.Background(), tt.expr)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	ev := newEvaluator()
	_, err := ev.Eval(context.Background(), "unknown(1)")
	if !errors.Is(err, types.Sentinel(types.ErrUndefinedFunction)) {
		t.Fatalf("expected %s, got %v", types.ErrUndefinedFunction, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ev.Eval(ctx, "1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScriptMode(t *testing.T) {
	ev := newEvaluator(evaluator.WithMultiStatement(true))
	got, err := ev.Eval(context.Background(), "var a = 2; var b = a * 3; a + b")
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("Eval() = %v, want 8", got)
	}
}

func TestContexts(t *testing.T) {
	reg := functions.NewRegistry()
	reg.RegisterFunction("", extops.All()...)
	reg.RegisterVariable("", functions.Const("x", 1.0))
	reg.RegisterVariable("eu", functions.Const("x", 2.0))

	global := evaluator.New(evaluator.WithRegistry(reg))
	eu := evaluator.New(evaluator.WithRegistry(reg), evaluator.WithContext("eu"))

	for _, tt := range []struct {
		ev   *evaluator.Evaluator
		expr string
		want float64
	}{
		{global, "x + 1", 2},
		{eu, "x + 1", 3},
		{global, "eu:x + x", 3},
	} {
		got, err := tt.ev.Eval(context.Background(), tt.expr)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%q in %q = %v, want %v", tt.expr, tt.ev.Context(), got, tt.want)
		}
	}
}

func TestCaching(t *testing.T) {
	ev := newEvaluator(evaluator.WithCacheSize(8))
	if _, err := ev.Compile("1 + x"); err == nil {
		t.Fatal("expected x to be unknown")
	}

	ev.RegisterVariables(functions.Const("x", 41.0))
	a, err := ev.Compile("1 + x")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ev.Compile("1 + x")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected the cached expression")
	}
	if ev.Cache().Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ev.Cache().Len())
	}

	// Registering drops the entries compiled against the old names.
	ev.RegisterVariables(functions.Const("x", 1.0))
	c, err := ev.Compile("1 + x")
	if err != nil {
		t.Fatal(err)
	}
	if c == a || c.EvalDouble() != 2 {
		t.Fatalf("expected a fresh compilation, got %v", c.EvalDouble())
	}
}

func TestSharedCache(t *testing.T) {
	shared := cache.New(8)
	one := newEvaluator(evaluator.WithCache(shared), evaluator.WithVariables(functions.Const("x", 1.0)))
	two := newEvaluator(evaluator.WithCache(shared), evaluator.WithVariables(functions.Const("x", 2.0)))
	raw := newEvaluator(evaluator.WithCache(shared), evaluator.WithRegistry(one.Registry()), evaluator.WithSimplify(false))

	tests := []struct {
		ev   *evaluator.Evaluator
		tree string
		want float64
	}{
		{one, "2.0", 2},
		{two, "3.0", 3},
		{raw, "x + 1", 2},
	}
	for _, tt := range tests {
		expr, err := tt.ev.Compile("x + 1")
		if err != nil {
			t.Fatal(err)
		}
		if expr.String() != tt.tree || expr.EvalDouble() != tt.want {
			t.Errorf("got %v = %v, want %v = %v", expr, expr.EvalDouble(), tt.tree, tt.want)
		}
	}
	if got := shared.Len(); got != 3 {
		t.Errorf("Len() = %d, want one entry per registry and setting", got)
	}
}

func TestEvalRange(t *testing.T) {
	values := make([]float64, 5000)
	for i := range values {
		values[i] = float64(i)
	}
	closes := series.New("close", values)

	for _, concurrent := range []bool{false, true} {
		ev := newEvaluator(
			evaluator.WithVariables(closes.Variable()),
			evaluator.WithConcurrency(concurrent),
			evaluator.WithWorkers(4),
		)
		expr, err := ev.Compile("close - close[2]")
		if err != nil {
			t.Fatal(err)
		}
		out, err := ev.EvalRange(context.Background(), expr, 0, int64(len(values)))
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != len(values) {
			t.Fatalf("got %d results", len(out))
		}
		if !math.IsNaN(out[1]) {
			t.Errorf("out[1] = %v, want NaN", out[1])
		}
		for i := 2; i < len(out); i++ {
			if out[i] != 2 {
				t.Fatalf("concurrent=%v: out[%d] = %v, want 2", concurrent, i, out[i])
			}
		}
	}
}

func TestEvalRangeInvalid(t *testing.T) {
	ev := newEvaluator()
	expr, _ := ev.Compile("1")
	if _, err := ev.EvalRange(context.Background(), expr, 5, 1); err == nil {
		t.Error("expected an error for an inverted range")
	}
	if _, err := ev.EvalRange(context.Background(), nil, 0, 1); err == nil {
		t.Error("expected an error for a nil expression")
	}
}

func TestEvalRangeCancelled(t *testing.T) {
	ev := newEvaluator(evaluator.WithConcurrency(true))
	expr, _ := ev.Compile("1 + 1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ev.EvalRange(ctx, expr, 0, 1<<20); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEvalDates(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	closes, err := series.NewDated("close", []time.Time{day(1), day(2), day(5)}, []float64{1, 4, 9})
	if err != nil {
		t.Fatal(err)
	}
	ev := newEvaluator(
		evaluator.WithVariables(closes.Variable()),
		evaluator.WithPreviousKey(closes.Previous),
	)
	expr, err := ev.Compile("sqrt(close) - sqrt(close[1])")
	if err != nil {
		t.Fatal(err)
	}
	out, err := ev.EvalDates(context.Background(), expr, closes.Times())
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(out[0]) || out[1] != 1 || out[2] != 1 {
		t.Errorf("EvalDates() = %v", out)
	}
}

func TestEvalStream(t *testing.T) {
	ev := newEvaluator(evaluator.WithVariables(series.New("x", []float64{1, 2, 3}).Variable()))
	expr, _ := ev.Compile("x * 10")

	keys := make(chan int64)
	go func() {
		defer close(keys)
		for _, k := range []int64{2, 0, 1} {
			keys <- k
		}
	}()
	ch, err := ev.EvalStream(context.Background(), expr, keys)
	if err != nil {
		t.Fatal(err)
	}
	var got []float64
	for r := range ch {
		if r.Err != nil {
			t.Fatal(r.Err)
		}
		got = append(got, r.Value)
	}
	if len(got) != 3 || got[0] != 30 || got[1] != 10 || got[2] != 20 {
		t.Errorf("EvalStream() = %v", got)
	}
}

func TestEvalStreamCancelWithoutReading(t *testing.T) {
	ev := newEvaluator(evaluator.WithVariables(series.New("x", []float64{1, 2, 3}).Variable()))
	expr, _ := ev.Compile("x * 10")

	keys := make(chan int64, 64)
	for i := range 64 {
		keys <- int64(i % 3)
	}
	before := runtime.NumGoroutine()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := ev.EvalStream(ctx, expr, keys)
	if err != nil {
		t.Fatal(err)
	}
	for len(ch) < cap(ch) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatal("the stream goroutine is still running after cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ev := newEvaluator(evaluator.WithLogger(logger), evaluator.WithCaching(true))
	if _, err := ev.Eval(context.Background(), "1 + 1"); err != nil {
		t.Fatal(err)
	}
	if _, err := ev.Eval(context.Background(), "1 + 1"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"formula compiled", "formula cache hit", "tree=2.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
