package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	main := writeFile(t, "main.cue", `
context: "eu"
script: true
timeout: "1500ms"
constants: {fee: 0.002, lot: 100}
series: [{name: "close", file: "bars.json", values: ".[].c", times: ".[].t"}]
`)
	override := writeFile(t, "local.cue", `
context: "us"
logLevel: "debug"
wasm: ["ext.wasm"]
`)

	cfg, err := Load(main, override)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Context != "eu" {
		t.Errorf("Context = %q, want the first file to win", cfg.Context)
	}
	if !cfg.Script || !cfg.Simplify {
		t.Errorf("Script = %v, Simplify = %v", cfg.Script, cfg.Simplify)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.CacheSize != 256 {
		t.Errorf("CacheSize = %d, want the default", cfg.CacheSize)
	}
	if cfg.Timeout != 1500*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.Constants["fee"] != 0.002 || cfg.Constants["lot"] != 100 {
		t.Errorf("Constants = %v", cfg.Constants)
	}
	if len(cfg.Wasm) != 1 || cfg.Wasm[0] != "ext.wasm" {
		t.Errorf("Wasm = %v", cfg.Wasm)
	}
	if len(cfg.Series) != 1 || cfg.Series[0].Values != ".[].c" || cfg.Series[0].Times != ".[].t" {
		t.Errorf("Series = %+v", cfg.Series)
	}
}

func TestLoadNoFiles(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	if cfg.CacheSize != want.CacheSize || cfg.LogLevel != want.LogLevel || cfg.Simplify != want.Simplify {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `context: `},
		{"unknown field", `colour: "red"`},
		{"wrong type", `script: "yes"`},
		{"bad level", `logLevel: "verbose"`},
		{"negative cache", `cacheSize: -1`},
		{"bad timeout", `timeout: "soon"`},
		{"series without values", `series: [{name: "x", file: "x.json"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "bad.cue", tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.cue")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a missing file error, got %v", err)
	}
}

func TestLoaderAssignFirst(t *testing.T) {
	a := writeFile(t, "a.cue", `str: "bar"`)
	b := writeFile(t, "b.cue", `str: "foo", list: [1, 2, 3]`)
	loader := NewLoader([]string{a, b}, "")

	var str string
	if err := loader.AssignFirst("str", &str); err != nil {
		t.Fatal(err)
	}
	if str != "bar" {
		t.Fatalf("got %q", str)
	}

	var list []int
	if err := loader.AssignFirst("list", &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[2] != 3 {
		t.Fatalf("got %v", list)
	}

	if err := loader.AssignFirst("not", &list); !errors.Is(err, ErrValueNotFound) {
		t.Fatalf("got %v", err)
	}

	var strs []string
	for value, err := range loader.Values("str") {
		if err != nil {
			t.Fatal(err)
		}
		var s string
		if err := value.Decode(&s); err != nil {
			t.Fatal(err)
		}
		strs = append(strs, s)
	}
	if len(strs) != 2 || strs[0] != "bar" || strs[1] != "foo" {
		t.Fatalf("got %q", strs)
	}
}
