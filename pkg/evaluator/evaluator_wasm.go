//go:build (js && wasm) || wasip1

package evaluator

// init disables concurrent range evaluation on WebAssembly targets.
//
// On js/wasm the JavaScript runtime is single-threaded and goroutines only
// add scheduling overhead to a range evaluation. On wasip1 the Go runtime
// has no thread support either.
func init() {
	defaultConcurrency = false
}
