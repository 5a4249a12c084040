package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sandrolain/goformula/pkg/config"
	"github.com/sandrolain/goformula/pkg/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCmd(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	t.Cleanup(func() { logging.Level.Set(slog.LevelInfo) })
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"-log-level", "warn"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	bars := writeFile(t, dir, "bars.json", `[
		{"t": "2024-01-01T00:00:00Z", "c": 10},
		{"t": "2024-01-02T00:00:00Z", "c": 12},
		{"t": "2024-01-03T00:00:00Z", "c": 9}
	]`)
	star := writeFile(t, dir, "ext.star", "def half(x):\n    return x / 2\n")
	cfg := writeFile(t, dir, "formula.cue", `constants: {fee: 0.5}`)

	tests := []struct {
		name string
		args []string
		in   string
		want string
	}{
		{"constant", []string{"1 + 2 * 3"}, "", "7\n"},
		{"joined args", []string{"max(1,", "5)"}, "", "5\n"},
		{"echo", []string{"-echo", "-no-fold", "1 + 2"}, "", "1 + 2\n3\n"},
		{"stdin script", []string{"-script", "-"}, "var a = 2; a * a", "4\n"},
		{"range", []string{"-from", "2", "-to", "5", "index() * 10"}, "", "2\t20\n3\t30\n4\t40\n"},
		{"config constant", []string{"-config", cfg, "fee * 4"}, "", "2\n"},
		{"starlark", []string{"-star", star, "half(9)"}, "", "4.5\n"},
		{"series last", []string{"-data", bars, "-values", ".[].c", "-name", "close", "close"}, "", "9\n"},
		{
			"dates",
			[]string{"-data", bars, "-values", ".[].c", "-times", ".[].t", "-name", "close", "-dates", "close - close[1]"},
			"",
			"2024-01-01T00:00:00Z\tNaN\n2024-01-02T00:00:00Z\t2\n2024-01-03T00:00:00Z\t-3\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut, code := runCmd(t, tt.in, tt.args...)
			if code != 0 {
				t.Fatalf("exit %d: %s", code, errOut)
			}
			if out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.cue", `colour: "red"`)

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"syntax", []string{"1 +"}, 1, "S0201"},
		{"unknown function", []string{"nope(1)"}, 1, "unknown function"},
		{"no formula", nil, 2, "Usage"},
		{"bad flag", []string{"-bogus"}, 2, "bogus"},
		{"bad config", []string{"-config", bad, "1"}, 1, "config"},
		{"missing series", []string{"-data", filepath.Join(dir, "none.json"), "x"}, 1, "none.json"},
		{"dates without series", []string{"-dates", "1"}, 1, "dated series"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := runCmd(t, "", tt.args...)
			if code != tt.code {
				t.Errorf("exit %d, want %d", code, tt.code)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr %q misses %q", errOut, tt.want)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	out, _, code := runCmd(t, "", "-version")
	if code != 0 || !strings.HasPrefix(out, "v") {
		t.Errorf("got %q, exit %d", out, code)
	}
}

func TestReplCommand(t *testing.T) {
	session, err := newEnv(context.Background(), config.Default(), flags{}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	defer session.close(context.Background())

	var stdout, stderr bytes.Buffer
	exec := func(line string) bool {
		stdout.Reset()
		stderr.Reset()
		return session.command(context.Background(), line, flags{}, &stdout, &stderr)
	}

	if exec("2 ** 8") || stdout.String() != "256\n" {
		t.Errorf("evaluate: %q", stdout.String())
	}
	if exec(":tree 1 + 2 * x") || stderr.Len() == 0 {
		t.Errorf("unknown variable must fail: %q", stderr.String())
	}
	if exec(":names") || !strings.Contains(stdout.String(), "sqrt") || !strings.Contains(stdout.String(), "pi") {
		t.Errorf("names: %q", stdout.String())
	}
	if exec(":bogus") || !strings.Contains(stderr.String(), "unknown command") {
		t.Errorf("unknown command: %q", stderr.String())
	}
	if !exec(":quit") {
		t.Error(":quit must end the session")
	}
}
