// Package lookahead provides a pull-based reader with arbitrary-depth peeking.
//
// A Reader wraps any fetch function and buffers the items it has peeked at so
// that callers can look several items ahead without consuming them. Both the
// character reader and the tokenizer of the parser package are built on it.
//
// # Example
//
//	r := lookahead.New(fetch, eofItem)
//	if r.Current() == x && r.Next(1) == y {
//	    r.ConsumeN(2)
//	}
//
// # Thread safety
//
// A Reader holds cursor state and is NOT safe for concurrent use.
package lookahead

// Reader is a buffered lookahead reader over a fetch-based source.
//
// Once the source is exhausted, the cached end sentinel is returned for any
// offset beyond the buffered items. Reading past the end is never an error.
type Reader[T any] struct {
	fetch func() (T, bool)
	buf   []T
	head  int // index of the current item in buf
	end   T
	done  bool
}

// New creates a Reader pulling items from fetch. fetch reports false once the
// source is exhausted; end is returned from then on.
func New[T any](fetch func() (T, bool), end T) *Reader[T] {
	return &Reader[T]{
		fetch: fetch,
		end:   end,
	}
}

// Current returns the item at offset 0 without consuming it.
func (r *Reader[T]) Current() T {
	return r.Next(0)
}

// Next returns the item offset positions ahead of the current one without
// consuming anything. Intermediate items are buffered.
func (r *Reader[T]) Next(offset int) T {
	if offset < 0 {
		panic("lookahead: negative offset")
	}
	for r.head+offset >= len(r.buf) {
		if !r.fill() {
			return r.end
		}
	}
	return r.buf[r.head+offset]
}

// Consume returns the current item and advances by one.
func (r *Reader[T]) Consume() T {
	item := r.Current()
	r.advance(1)
	return item
}

// ConsumeN advances by n items, fetching them first if needed.
func (r *Reader[T]) ConsumeN(n int) {
	if n <= 0 {
		return
	}
	// Make sure the skipped items were actually pulled from the source.
	r.Next(n - 1)
	r.advance(n)
}

// Buffered returns the number of items peeked at but not consumed yet.
func (r *Reader[T]) Buffered() int {
	return len(r.buf) - r.head
}

// Exhausted reports whether the source has reported its end.
func (r *Reader[T]) Exhausted() bool {
	return r.done
}

// Reset clears all buffered state and switches to a new source.
// A nil fetch leaves the reader permanently at its end.
func (r *Reader[T]) Reset(fetch func() (T, bool)) {
	clear(r.buf)
	r.buf = r.buf[:0]
	r.head = 0
	r.fetch = fetch
	r.done = fetch == nil
}

// SetEnd replaces the end sentinel. A fetch function may call it right before
// reporting exhaustion, when the sentinel depends on where the source ended.
func (r *Reader[T]) SetEnd(end T) {
	r.end = end
}

func (r *Reader[T]) fill() bool {
	if r.done {
		return false
	}
	item, ok := r.fetch()
	if !ok {
		r.done = true
		return false
	}
	// Compact once everything before head has been consumed.
	if r.head > 0 && r.head == len(r.buf) {
		clear(r.buf)
		r.buf = r.buf[:0]
		r.head = 0
	}
	r.buf = append(r.buf, item)
	return true
}

func (r *Reader[T]) advance(n int) {
	r.head += n
	if r.head >= len(r.buf) {
		clear(r.buf)
		r.buf = r.buf[:0]
		r.head = 0
	}
}
