// Package config loads the command line configuration from CUE files.
//
// Several files may be given; for every setting the first file defining it
// wins. Each file is validated against Schema before use.
//
//	context: "eu"
//	script: true
//	logLevel: "debug"
//	constants: {fee: 0.002}
//	series: [{name: "close", file: "bars.json", values: ".[].c", times: ".[].t"}]
package config

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ErrValueNotFound is returned when no file defines a path.
var ErrValueNotFound = errors.New("config: value not found")

// Schema constrains every configuration file.
const Schema = `
context?: string
script?: bool
simplify?: bool
cacheSize?: int & >=0
workers?: int & >=0
timeout?: string
logLevel?: "debug" | "info" | "warn" | "error"
constants?: [string]: number
wasm?: [...string]
starlark?: [...string]
series?: [...{
	name: string
	file: string
	values: string
	times?: string
}]
`

// Config is the decoded configuration.
type Config struct {
	Context   string             `json:"context"`
	Script    bool               `json:"script"`
	Simplify  bool               `json:"simplify"`
	CacheSize int                `json:"cacheSize"`
	Workers   int                `json:"workers"`
	Timeout   time.Duration      `json:"-"`
	LogLevel  string             `json:"logLevel"`
	Constants map[string]float64 `json:"constants"`
	Wasm      []string           `json:"wasm"`
	Starlark  []string           `json:"starlark"`
	Series    []Series           `json:"series"`
}

// Series locates a series in a JSON file, see series.Query.
type Series struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Values string `json:"values"`
	Times  string `json:"times"`
}

// Default returns the configuration used when no file sets a value.
func Default() Config {
	return Config{
		Simplify:  true,
		CacheSize: 256,
		LogLevel:  "info",
	}
}

// Loader reads and validates CUE files once, on first use.
type Loader struct {
	getRoots func() ([]root, error)
}

type root struct {
	value cue.Value
	path  string
}

// NewLoader creates a loader for filePaths. When schemaSrc is not empty,
// every file is unified with it and must be concrete.
func NewLoader(filePaths []string, schemaSrc string) Loader {
	return Loader{
		getRoots: sync.OnceValues(func() (ret []root, err error) {
			ctx := cuecontext.New()
			var schema cue.Value
			if schemaSrc != "" {
				schema = ctx.CompileString("close({" + schemaSrc + "})")
				if err := schema.Err(); err != nil {
					return nil, err
				}
			}

			for _, filePath := range filePaths {
				content, err := os.ReadFile(filePath)
				if err != nil {
					return nil, err
				}
				value := ctx.CompileBytes(content, cue.Filename(filePath))
				if err := value.Err(); err != nil {
					return nil, err
				}
				if schema.Exists() {
					value = schema.Unify(value)
					if err := value.Validate(cue.Concrete(true)); err != nil {
						return nil, fmt.Errorf("%s: %w", filePath, err)
					}
				}
				ret = append(ret, root{value: value, path: filePath})
			}
			return ret, nil
		}),
	}
}

// Values yields the value at path of every file defining it, in order.
func (l Loader) Values(path string) iter.Seq2[*cue.Value, error] {
	return func(yield func(*cue.Value, error) bool) {
		roots, err := l.getRoots()
		if err != nil {
			yield(nil, err)
			return
		}
		cuePath := cue.ParsePath(path)
		for _, info := range roots {
			value := info.value.LookupPath(cuePath)
			if value.Exists() && value.Err() == nil {
				if !yield(&value, nil) {
					return
				}
			}
		}
	}
}

// AssignFirst decodes the value at path of the first file defining it into
// target.
func (l Loader) AssignFirst(path string, target any) error {
	for value, err := range l.Values(path) {
		if err != nil {
			return err
		}
		if err := value.Decode(target); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValueNotFound, path)
}

// Load reads the configuration from filePaths over Default.
func Load(filePaths ...string) (Config, error) {
	cfg := Default()
	loader := NewLoader(filePaths, Schema)

	var timeout string
	fields := []struct {
		path   string
		target any
	}{
		{"context", &cfg.Context},
		{"script", &cfg.Script},
		{"simplify", &cfg.Simplify},
		{"cacheSize", &cfg.CacheSize},
		{"workers", &cfg.Workers},
		{"timeout", &timeout},
		{"logLevel", &cfg.LogLevel},
		{"constants", &cfg.Constants},
		{"wasm", &cfg.Wasm},
		{"starlark", &cfg.Starlark},
		{"series", &cfg.Series},
	}
	for _, f := range fields {
		if err := loader.AssignFirst(f.path, f.target); err != nil && !errors.Is(err, ErrValueNotFound) {
			return Config{}, err
		}
	}

	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}
