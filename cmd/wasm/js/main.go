//go:build js && wasm

// Command goformula-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `goformula` object with the following API:
//
//	goformula.version()             → string
//	goformula.eval(formula)         → number  (throws on error)
//	goformula.run(requestJSON)      → responseJSON, see package batch
//	goformula.compile(formula)      → { eval() → number, range(from, to) → number[] }
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o goformula.wasm ./cmd/wasm/js/
//
// Usage in browser:
//
//	<script src="wasm_exec.js"></script>
//	<script>
//	  const go = new Go()
//	  WebAssembly.instantiateStreaming(fetch('goformula.wasm'), go.importObject)
//	    .then(r => { go.run(r.instance); console.log(goformula.eval('2 ** 10')) })
//	</script>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/batch"
	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/ext"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	panic(js.Global().Get("Error").New(msg))
}

// jsEval implements goformula.eval(formula) → number.
func jsEval(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("goformula.eval requires 1 argument: formula (string)")
	}
	result, err := goformula.Eval(args[0].String(), evaluator.WithConcurrency(false))
	if err != nil {
		jsThrow(fmt.Sprintf("goformula.eval: %v", err))
	}
	return result
}

// jsRun implements goformula.run(requestJSON) → responseJSON.
func jsRun(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("goformula.run requires 1 argument: request (JSON string)")
	}
	var resp batch.Response
	if req, err := batch.Decode([]byte(args[0].String())); err != nil {
		resp.Error = err.Error()
	} else {
		resp = batch.Run(context.Background(), req, evaluator.WithConcurrency(false))
	}
	out, err := json.Marshal(resp)
	if err != nil {
		jsThrow(fmt.Sprintf("goformula.run: marshal response: %v", err))
	}
	return string(out)
}

// jsCompile implements goformula.compile(formula) → { eval, range }.
func jsCompile(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("goformula.compile requires 1 argument: formula (string)")
	}

	ev := evaluator.New(ext.WithAll(), evaluator.WithConcurrency(false))
	expr, err := ev.Compile(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("goformula.compile: %v", err))
	}

	evalFn := js.FuncOf(func(_ js.Value, _ []js.Value) any {
		return expr.EvalDouble()
	})
	rangeFn := js.FuncOf(func(_ js.Value, innerArgs []js.Value) any {
		if len(innerArgs) < 2 {
			jsThrow("compiled.range requires 2 arguments: from and to")
		}
		values, err := ev.EvalRange(context.Background(), expr,
			int64(innerArgs[0].Int()), int64(innerArgs[1].Int()))
		if err != nil {
			jsThrow(fmt.Sprintf("compiled.range: %v", err))
		}
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return js.ValueOf(out)
	})

	return js.ValueOf(map[string]any{"eval": evalFn, "range": rangeFn})
}

func main() {
	api := map[string]any{
		"eval":    js.FuncOf(jsEval),
		"run":     js.FuncOf(jsRun),
		"compile": js.FuncOf(jsCompile),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) any {
			return goformula.Version()
		}),
	}
	js.Global().Set("goformula", js.ValueOf(api))

	// Block forever, the JS event loop owns execution from here.
	select {}
}
