package future

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/asyncsoap/pkg/domain"
)

// Future is a handle to a value that becomes available later.
// It settles exactly once; later settlements are ignored.
type Future[T any] struct {
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc

	val T
	err error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{}), cancel: func() {}}
}

// Go runs fn on its own goroutine and returns a Future for its outcome.
// fn receives a child of ctx that is canceled by Cancel.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.settle(zero, fmt.Errorf("%w: %v", domain.ErrPanic, r))
			}
		}()
		v, err := fn(runCtx)
		f.settle(v, err)
	}()
	return f
}

// Resolved returns a Future already fulfilled with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)
	return f
}

// Rejected returns a Future already failed with err.
func Rejected[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Done is closed once the Future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the Future has settled.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the Future settles.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// WaitContext blocks until the Future settles or ctx is done.
// Giving up does not cancel the underlying computation.
func (f *Future[T]) WaitContext(ctx context.Context) (T, error) {
	// A settled value wins over an already-done ctx.
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel cancels the context of the computation.
// The Future still settles with whatever the computation returns.
func (f *Future[T]) Cancel() {
	f.cancel()
}
