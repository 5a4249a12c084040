package evaluator

import (
	"context"
	"fmt"

	"github.com/sandrolain/goformula/pkg/ast"
)

// StreamResult holds the output of a single streaming evaluation step.
type StreamResult struct {
	// Index is the key the value was computed for.
	Index int64
	// Value is the evaluated result, zero when Err is set.
	Value float64
	// Err is non-nil when the stream was cancelled; it is the last result.
	Err error
}

// EvalStream evaluates expr for every index received on keys, sending results
// on the returned channel in the same order.
//
// The channel is closed when keys is closed or the context is cancelled. A
// cancellation is reported as a final StreamResult with a non-nil Err when
// the channel has room for it; a consumer that stopped reading does not get
// it.
//
// It is the caller's responsibility to drain the channel or cancel the context to
// avoid goroutine leaks.
func (e *Evaluator) EvalStream(ctx context.Context, expr *ast.Expression, keys <-chan int64) (<-chan StreamResult, error) {
	if expr == nil {
		return nil, fmt.Errorf("invalid expression")
	}

	eval := expr.Root().Index().Double
	ch := make(chan StreamResult, 16)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				cancelled(ctx, ch)
				return
			case k, ok := <-keys:
				if !ok {
					return
				}
				select {
				case ch <- StreamResult{Index: k, Value: eval(k)}:
				case <-ctx.Done():
					cancelled(ctx, ch)
					return
				}
			}
		}
	}()

	return ch, nil
}

func cancelled(ctx context.Context, ch chan<- StreamResult) {
	select {
	case ch <- StreamResult{Err: ctx.Err()}:
	default:
	}
}
