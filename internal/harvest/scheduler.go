package harvest

import "context"

type completion[T any] struct {
	value T
	ok    bool
	err   error
}

// FetchSet runs asynchronous fetches and yields their results in
// completion order, not submission order. New work may be pushed while
// earlier work is still outstanding, which is how follow-up page fetches
// join the same in-flight set that produced the first pages.
//
// Go and Next must be called from a single goroutine; the fetch bodies
// themselves run concurrently.
type FetchSet[T any] struct {
	results chan completion[T]
	pending int
}

// NewFetchSet creates an empty set.
func NewFetchSet[T any]() *FetchSet[T] {
	return &FetchSet[T]{results: make(chan completion[T])}
}

// Go starts fn in its own goroutine. fn returning ok=false means "skip,
// nothing usable"; Next silently discards such completions. A non-nil
// error surfaces from Next and should end the drain.
func (s *FetchSet[T]) Go(ctx context.Context, fn func(context.Context) (T, bool, error)) {
	s.pending++
	go func() {
		value, ok, err := fn(ctx)
		s.results <- completion[T]{value: value, ok: ok, err: err}
	}()
}

// Pending reports how many fetches have not completed yet.
func (s *FetchSet[T]) Pending() int {
	return s.pending
}

// Next blocks until a usable completion arrives. more is false once every
// outstanding fetch has completed. When err is non-nil the caller should
// call Drain before abandoning the set so no fetch goroutine is left
// blocked on the results channel.
func (s *FetchSet[T]) Next() (value T, more bool, err error) {
	for s.pending > 0 {
		c := <-s.results
		s.pending--
		if c.err != nil {
			return value, false, c.err
		}
		if !c.ok {
			continue
		}
		return c.value, true, nil
	}
	return value, false, nil
}

// Drain discards every outstanding completion.
func (s *FetchSet[T]) Drain() {
	for s.pending > 0 {
		<-s.results
		s.pending--
	}
}
