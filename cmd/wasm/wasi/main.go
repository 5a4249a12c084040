//go:build wasip1

// Command goformula-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  {"formula": "a + a[1]", "series": {"a": [1, 2, 4]}, "from": 1, "to": 3}
//	stdout: {"values": [3, 6]}              on success, or {"result": 3}
//	        {"error": "<message>"}          on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o goformula.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"formula":"sqrt(16) + 1"}' | wasmtime goformula.wasm
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/sandrolain/goformula/pkg/batch"
)

func writeResponse(r batch.Response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func main() {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		writeResponse(batch.Response{Error: err.Error()}, 1)
	}
	req, err := batch.Decode(data)
	if err != nil {
		writeResponse(batch.Response{Error: err.Error()}, 1)
	}

	resp := batch.Run(context.Background(), req)
	if resp.Error != "" {
		writeResponse(resp, 1)
	}
	writeResponse(resp, 0)
}
