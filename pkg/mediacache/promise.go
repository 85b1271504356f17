package mediacache

import (
	"context"
	"sync"
)

// Result is the settled value of a Promise.
type Result[T any] struct {
	Value T
	Err   error
}

// Promise is a value computed at most once in the background. The render
// loop polls it with Ready; other goroutines may block on Wait.
type Promise[T any] struct {
	done   chan struct{}
	once   sync.Once
	result Result[T]
}

// NewPromise returns an unresolved promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolved returns a promise that is already settled.
func Resolved[T any](v T, err error) *Promise[T] {
	p := NewPromise[T]()
	p.resolve(v, err)
	return p
}

// resolve settles the promise. Only the first call has an effect.
func (p *Promise[T]) resolve(v T, err error) {
	p.once.Do(func() {
		p.result = Result[T]{Value: v, Err: err}
		close(p.done)
	})
}

// Ready returns the result if the promise has settled, without blocking.
func (p *Promise[T]) Ready() (Result[T], bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return Result[T]{}, false
	}
}

// Done is closed once the promise settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the promise settles or ctx is done.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.result.Value, p.result.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
