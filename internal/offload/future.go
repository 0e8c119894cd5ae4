package offload

import (
	"context"
	"sync"
)

// Future is a single-writer, single-reader result slot.
//
// The first resolution wins; later ones are ignored. Waiting is repeatable and
// returns the same value each time.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(val T, err error) {
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
	})
}

func (f *Future[T]) abandon() {
	var zero T
	f.resolve(zero, ErrDisconnected)
}

// Wait blocks until the job has run or has been abandoned.
//
// Must not be called on the goroutine that drains the matching Receiver.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// WaitContext is Wait with caller-side cancellation. Cancelling only stops the
// wait; the queued job still runs.
func (f *Future[T]) WaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once a result (or ErrDisconnected) is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether Wait would return without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
