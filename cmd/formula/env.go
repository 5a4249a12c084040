package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/sandrolain/goformula/pkg/config"
	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/ext"
	"github.com/sandrolain/goformula/pkg/ext/extstarlark"
	"github.com/sandrolain/goformula/pkg/ext/extwasm"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/series"
)

// env is the evaluator with everything the configuration loads into it.
type env struct {
	ev      *evaluator.Evaluator
	logger  *slog.Logger
	modules []*extwasm.Module
	keys    []time.Time
}

func newEnv(ctx context.Context, cfg config.Config, f flags, logger *slog.Logger) (*env, error) {
	e := &env{logger: logger}

	opts := []evaluator.EvalOption{
		ext.WithAll(),
		evaluator.WithLogger(logger),
		evaluator.WithDebug(f.debug),
		evaluator.WithContext(cfg.Context),
		evaluator.WithMultiStatement(cfg.Script),
		evaluator.WithSimplify(cfg.Simplify),
		evaluator.WithWorkers(cfg.Workers),
		evaluator.WithTimeout(cfg.Timeout),
	}
	if cfg.CacheSize > 0 {
		opts = append(opts, evaluator.WithCacheSize(cfg.CacheSize))
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Constants)) {
		opts = append(opts, evaluator.WithVariables(functions.Const(name, cfg.Constants[name])))
	}

	var dated []*series.Series
	for _, sc := range cfg.Series {
		s, err := loadSeries(ctx, sc)
		if err != nil {
			return nil, err
		}
		if s.Times() != nil {
			dated = append(dated, s)
		}
		opts = append(opts, evaluator.WithVariables(s.Variable()))
		logger.Debug("series loaded", "name", s.Name(), "points", s.Len(), "dated", s.Times() != nil)
	}
	if len(dated) > 0 {
		e.keys = series.Keys(dated...)
		opts = append(opts, evaluator.WithPreviousKey(series.Calendar(dated...)))
	}

	for _, path := range cfg.Wasm {
		binary, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Join(err, e.close(ctx))
		}
		mod, err := extwasm.Load(ctx, path, binary)
		if err != nil {
			return nil, errors.Join(err, e.close(ctx))
		}
		e.modules = append(e.modules, mod)
		opts = append(opts, ext.WithWasm(mod))
		logger.Debug("wasm module loaded", "path", path, "functions", len(mod.Functions()), "skipped", mod.Skipped())
	}

	for _, path := range cfg.Starlark {
		script, err := extstarlark.Load(path, nil, extstarlark.WithLogger(logger))
		if err != nil {
			return nil, errors.Join(err, e.close(ctx))
		}
		opts = append(opts, ext.WithStarlark(script))
		logger.Debug("starlark script loaded", "path", path, "functions", len(script.Functions()))
	}

	e.ev = evaluator.New(opts...)
	return e, nil
}

func loadSeries(ctx context.Context, sc config.Series) (*series.Series, error) {
	data, err := os.ReadFile(sc.File)
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", sc.Name, err)
	}
	return series.FromJSON(ctx, data, series.Query{
		Name:   sc.Name,
		Values: sc.Values,
		Times:  sc.Times,
	})
}

// names lists the functions and variables a formula can use.
func (e *env) names() (fns, vars []string) {
	reg := e.ev.Registry()
	fns, vars = reg.Names(e.ev.Context())
	if e.ev.Context() != "" {
		f, v := reg.Names("")
		fns = append(fns, f...)
		vars = append(vars, v...)
	}
	slices.Sort(fns)
	slices.Sort(vars)
	return slices.Compact(fns), slices.Compact(vars)
}

func (e *env) close(ctx context.Context) error {
	var errs []error
	for _, mod := range e.modules {
		errs = append(errs, mod.Close(ctx))
	}
	e.modules = nil
	return errors.Join(errs...)
}
