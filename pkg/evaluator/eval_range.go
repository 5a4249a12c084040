package evaluator

import (
	"context"
	"sync"
	"time"
)

// evalKeys fills a slice of n results with eval(i). Keys are processed in
// chunks; cancellation is checked between chunks. With concurrency enabled
// the chunks are shared by up to Workers goroutines.
func (e *Evaluator) evalKeys(ctx context.Context, n int, eval func(i int) float64) ([]float64, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	out := make([]float64, n)
	chunks := (n + chunkSize - 1) / chunkSize
	workers := min(e.opts.Workers, chunks)
	if !e.opts.Concurrency {
		workers = 1
	}

	run := func(c int) {
		lo := c * chunkSize
		hi := min(lo+chunkSize, n)
		for i := lo; i < hi; i++ {
			out[i] = eval(i)
		}
	}

	if workers <= 1 {
		for c := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			run(c)
		}
	} else {
		next := make(chan int)
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for c := range next {
					run(c)
				}
			}()
		}
	feed:
		for c := range chunks {
			select {
			case next <- c:
			case <-ctx.Done():
				break feed
			}
		}
		close(next)
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	e.logger.DebugContext(ctx, "formula evaluated",
		"keys", n,
		"workers", max(workers, 1),
		"duration", time.Since(start),
	)
	return out, nil
}
