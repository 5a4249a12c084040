// Package evaluator compiles formulas against a function registry and
// evaluates them over keys.
//
// The evaluator owns a functions.Registry (operators, functions and
// variables per context), an optional expression cache and a logger. It
// evaluates one expression over many keys, optionally spreading the keys
// over several goroutines:
//   - Eval: compile and evaluate without a key
//   - EvalRange: evaluate over a range of integer indexes
//   - EvalDates: evaluate over a list of date keys
//   - EvalStream: evaluate keys as they arrive on a channel
//
// # Example
//
//	ev := evaluator.New(
//	    evaluator.WithFunctions(extops.All()...),
//	    evaluator.WithVariables(closes.Variable()),
//	)
//	expr, err := ev.Compile("close - close[1]")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	diffs, err := ev.EvalRange(ctx, expr, 1, int64(closes.Len()))
//
// # Concurrency
//
// Compiled expressions are immutable; EvalRange and EvalDates split their
// keys into chunks evaluated concurrently when Concurrency is enabled.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/cache"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/parser"
	"github.com/sandrolain/goformula/pkg/types"
)

// Evaluator compiles and evaluates formulas.
type Evaluator struct {
	opts     EvalOptions
	logger   *slog.Logger
	cache    *cache.Cache // non-nil when Caching is enabled
	registry *functions.Registry
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Caching enables expression compilation caching, keyed by context,
	// script mode and source. The default cache holds up to 256 entries.
	Caching bool
	// CacheSize sets the maximum number of cached expressions.
	// Only used when Caching is true and no explicit Cache is provided.
	CacheSize int
	// Cache is a custom expression cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache
	// Concurrency enables concurrent evaluation of key ranges.
	Concurrency bool
	// Workers bounds the goroutines of one range evaluation. Defaults to
	// GOMAXPROCS.
	Workers int
	// Timeout bounds one range evaluation. Zero means no timeout.
	Timeout time.Duration
	// Debug enables debug logging and source snippets in errors.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger

	// Registry resolves names. A new registry is created when nil.
	Registry *functions.Registry
	// Functions and Variables are registered in Context by New.
	Functions []ast.Function
	Variables []ast.Variable

	// Context is the context formulas are compiled in.
	Context string
	// MultiStatement compiles formulas as scripts.
	MultiStatement bool
	// PreviousKey locates earlier dates for offsets.
	PreviousKey ast.PreviousKeyFunc
	// Simplify folds constant sub-trees while compiling. Enabled by default.
	Simplify bool
	// MaxDepth limits parser recursion.
	MaxDepth int
	// Pool provides parser instances. Defaults to the parser package pool.
	Pool *parser.Pool
}

// defaultConcurrency controls the default value of EvalOptions.Concurrency.
// It is false on WebAssembly targets, see evaluator_wasm.go.
var defaultConcurrency = true

// chunkSize is the number of keys evaluated between cancellation checks.
const chunkSize = 1024

// New creates a new Evaluator.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		Concurrency: defaultConcurrency,
		Simplify:    true,
		MaxDepth:    256,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Workers <= 0 {
		options.Workers = runtime.GOMAXPROCS(0)
	}
	if options.Debug {
		types.SetDebug(true)
	}

	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		c = cache.New(options.CacheSize)
	}

	reg := options.Registry
	if reg == nil {
		reg = functions.NewRegistry()
	}
	reg.RegisterFunction(options.Context, options.Functions...)
	reg.RegisterVariable(options.Context, options.Variables...)

	return &Evaluator{
		opts:     options,
		logger:   options.Logger,
		cache:    c,
		registry: reg,
	}
}

// Cache returns the expression cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.Cache {
	return e.cache
}

// Registry returns the registry names are resolved in.
func (e *Evaluator) Registry() *functions.Registry {
	return e.registry
}

// Context returns the compile context.
func (e *Evaluator) Context() string {
	return e.opts.Context
}

// Register adds functions to the evaluator's context. Cached expressions of
// that context are dropped.
func (e *Evaluator) Register(fns ...ast.Function) {
	e.registry.RegisterFunction(e.opts.Context, fns...)
	e.invalidate()
}

// RegisterVariables adds variables to the evaluator's context. Cached
// expressions of that context are dropped.
func (e *Evaluator) RegisterVariables(vars ...ast.Variable) {
	e.registry.RegisterVariable(e.opts.Context, vars...)
	e.invalidate()
}

func (e *Evaluator) invalidate() {
	if e.cache != nil {
		e.cache.InvalidateContext(e.opts.Context)
	}
}

// Compile compiles src, through the cache when enabled.
func (e *Evaluator) Compile(src string) (*ast.Expression, error) {
	if e.cache == nil {
		return e.compile(src)
	}
	key := cache.Key{
		Context:  e.opts.Context,
		Source:   src,
		Script:   e.opts.MultiStatement,
		Simplify: e.opts.Simplify,
		Registry: e.registry,
	}
	if expr, ok := e.cache.Get(key); ok {
		e.logger.Debug("formula cache hit", "source", src)
		return expr, nil
	}
	expr, err := e.compile(src)
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, expr)
	return expr, nil
}

func (e *Evaluator) compile(src string) (*ast.Expression, error) {
	start := time.Now()
	expr, err := parser.Compile(src,
		parser.WithContext(e.opts.Context),
		parser.WithMultiStatement(e.opts.MultiStatement),
		parser.WithFunctions(e.registry.Function),
		parser.WithVariables(e.registry.Variable),
		parser.WithPreviousKey(e.opts.PreviousKey),
		parser.WithSimplify(e.opts.Simplify),
		parser.WithMaxDepth(e.opts.MaxDepth),
		parser.WithPool(e.opts.Pool),
	)
	if err != nil {
		e.logger.Debug("formula rejected", "source", src, "error", err)
		return nil, err
	}
	e.logger.Debug("formula compiled",
		"source", src,
		"tree", expr.String(),
		"constant", expr.IsConstant(),
		"duration", time.Since(start),
	)
	return expr, nil
}

// Eval compiles src and evaluates it without a key.
func (e *Evaluator) Eval(ctx context.Context, src string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	expr, err := e.Compile(src)
	if err != nil {
		return 0, err
	}
	return expr.EvalDouble(), nil
}

// EvalRange evaluates expr at every index in [from, to).
func (e *Evaluator) EvalRange(ctx context.Context, expr *ast.Expression, from, to int64) ([]float64, error) {
	if expr == nil {
		return nil, fmt.Errorf("invalid expression")
	}
	if to < from {
		return nil, fmt.Errorf("invalid range [%d, %d)", from, to)
	}
	eval := expr.Root().Index().Double
	return e.evalKeys(ctx, int(to-from), func(i int) float64 {
		return eval(from + int64(i))
	})
}

// EvalDates evaluates expr at every date in keys.
func (e *Evaluator) EvalDates(ctx context.Context, expr *ast.Expression, keys []time.Time) ([]float64, error) {
	if expr == nil {
		return nil, fmt.Errorf("invalid expression")
	}
	eval := expr.Root().Date().Double
	return e.evalKeys(ctx, len(keys), func(i int) float64 {
		return eval(keys[i])
	})
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithCaching enables or disables expression caching.
func WithCaching(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached expressions and enables caching.
func WithCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = true
		opts.CacheSize = size
	}
}

// WithCache sets a custom (possibly shared) expression cache.
func WithCache(c *cache.Cache) EvalOption {
	return func(opts *EvalOptions) {
		opts.Cache = c
	}
}

// WithConcurrency enables or disables concurrent range evaluation.
func WithConcurrency(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Concurrency = enabled
	}
}

// WithWorkers sets the number of goroutines of a range evaluation.
func WithWorkers(n int) EvalOption {
	return func(opts *EvalOptions) {
		opts.Workers = n
	}
}

// WithTimeout sets the range evaluation timeout.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithDebug enables debug mode.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithRegistry sets the registry names are resolved in.
func WithRegistry(reg *functions.Registry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Registry = reg
	}
}

// WithFunctions registers functions and operators.
func WithFunctions(fns ...ast.Function) EvalOption {
	return func(opts *EvalOptions) {
		opts.Functions = append(opts.Functions, fns...)
	}
}

// WithVariables registers variables.
func WithVariables(vars ...ast.Variable) EvalOption {
	return func(opts *EvalOptions) {
		opts.Variables = append(opts.Variables, vars...)
	}
}

// WithContext sets the compile context.
func WithContext(context string) EvalOption {
	return func(opts *EvalOptions) {
		opts.Context = context
	}
}

// WithMultiStatement compiles formulas as scripts.
func WithMultiStatement(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.MultiStatement = enabled
	}
}

// WithPreviousKey sets the previous-key provider used by date offsets.
func WithPreviousKey(prev ast.PreviousKeyFunc) EvalOption {
	return func(opts *EvalOptions) {
		opts.PreviousKey = prev
	}
}

// WithSimplify enables or disables constant folding.
func WithSimplify(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Simplify = enabled
	}
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithPool sets the parser pool.
func WithPool(pool *parser.Pool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Pool = pool
	}
}
