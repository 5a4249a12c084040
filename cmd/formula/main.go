// Command formula compiles and evaluates formulas from the command line.
//
// Usage:
//
//	formula [flags] <formula>
//	formula -repl [flags]
//
// Examples:
//
//	formula 'sqrt(2) ** 2'
//	formula -data bars.json -values '.[].c' -times '.[].t' -name close -dates 'close - close[1]'
//	formula -config formula.cue -from 0 -to 100 'index() % 7'
//	echo 'var a = 2; a * a' | formula -script -
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/config"
	"github.com/sandrolain/goformula/pkg/logging"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type flags struct {
	configs  stringList
	wasm     stringList
	starlark stringList

	context  string
	script   bool
	debug    bool
	logLevel string
	timeout  time.Duration
	workers  int
	noFold   bool

	from, to int64
	dates    bool

	data, values, times, name string

	repl    bool
	echo    bool
	version bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("formula", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f flags
	fs.Var(&f.configs, "config", "CUE configuration file (repeatable, first wins)")
	fs.Var(&f.wasm, "wasm", "WebAssembly module exporting numeric functions (repeatable)")
	fs.Var(&f.starlark, "star", "Starlark script defining functions (repeatable)")
	fs.StringVar(&f.context, "context", "", "compile context")
	fs.BoolVar(&f.script, "script", false, "compile formulas as scripts of var declarations")
	fs.BoolVar(&f.debug, "debug", false, "debug logging and source snippets in errors")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.DurationVar(&f.timeout, "timeout", 0, "range evaluation timeout")
	fs.IntVar(&f.workers, "workers", 0, "range evaluation goroutines")
	fs.BoolVar(&f.noFold, "no-fold", false, "do not fold constant sub-trees")
	fs.Int64Var(&f.from, "from", 0, "first index of the range")
	fs.Int64Var(&f.to, "to", 0, "end of the range, exclusive; a range is evaluated when to > from")
	fs.BoolVar(&f.dates, "dates", false, "evaluate at every date of the dated series")
	fs.StringVar(&f.data, "data", "", "JSON file holding a series")
	fs.StringVar(&f.values, "values", ".[]", "jq query for the series values")
	fs.StringVar(&f.times, "times", "", "jq query for the series dates")
	fs.StringVar(&f.name, "name", "x", "variable name of the series")
	fs.BoolVar(&f.repl, "repl", false, "read formulas interactively")
	fs.BoolVar(&f.echo, "echo", false, "print the compiled formula before its value")
	fs.BoolVar(&f.version, "version", false, "print the version")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if f.version {
		fmt.Fprintln(stdout, goformula.Version())
		return 0
	}

	cfg, err := config.Load(f.configs...)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	applyFlags(fs, &f, &cfg)

	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if f.debug {
		logging.Level.Set(slog.LevelDebug)
	}
	logger := logging.New(stderr)

	session, err := newEnv(ctx, cfg, f, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer session.close(context.Background())

	if f.repl {
		return session.repl(ctx, f, stdout, stderr)
	}

	src := strings.Join(fs.Args(), " ")
	if src == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		src = string(data)
	}
	if strings.TrimSpace(src) == "" {
		fs.Usage()
		return 2
	}

	if err := session.evaluate(ctx, src, f, stdout); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(fs *flag.FlagSet, f *flags, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "context":
			cfg.Context = f.context
		case "script":
			cfg.Script = f.script
		case "log-level":
			cfg.LogLevel = f.logLevel
		case "timeout":
			cfg.Timeout = f.timeout
		case "workers":
			cfg.Workers = f.workers
		case "no-fold":
			cfg.Simplify = !f.noFold
		}
	})
	cfg.Wasm = append(cfg.Wasm, f.wasm...)
	cfg.Starlark = append(cfg.Starlark, f.starlark...)
	if f.data != "" {
		cfg.Series = append(cfg.Series, config.Series{
			Name:   f.name,
			File:   f.data,
			Values: f.values,
			Times:  f.times,
		})
	}
}

// evaluate compiles src and prints its value, or its values over the
// requested keys.
func (e *env) evaluate(ctx context.Context, src string, f flags, w io.Writer) error {
	expr, err := e.ev.Compile(src)
	if err != nil {
		return err
	}
	if f.echo {
		fmt.Fprintln(w, expr)
	}

	ctx = logging.With(ctx, "formula", src)
	switch {
	case f.dates:
		if len(e.keys) == 0 {
			return errors.New("-dates needs a dated series")
		}
		values, err := e.ev.EvalDates(ctx, expr, e.keys)
		if err != nil {
			return err
		}
		for i, v := range values {
			fmt.Fprintf(w, "%s\t%s\n", e.keys[i].Format(time.RFC3339), format(v))
		}
	case f.to > f.from:
		values, err := e.ev.EvalRange(ctx, expr, f.from, f.to)
		if err != nil {
			return err
		}
		for i, v := range values {
			fmt.Fprintf(w, "%d\t%s\n", f.from+int64(i), format(v))
		}
	default:
		fmt.Fprintln(w, format(expr.EvalDouble()))
	}
	return nil
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
