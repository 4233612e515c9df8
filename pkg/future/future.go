package future

import (
	"context"
	"sync"
)

// Resolver completes a Future. It reports whether this call performed the
// resolution; calls after the first are ignored and return false.
type Resolver func(err error) bool

// Future is a single-resolution completion signal.
type Future struct {
	done chan struct{}
	once sync.Once
	err  error
}

// New returns an unresolved Future and the function that resolves it.
func New() (*Future, Resolver) {
	f := &Future{done: make(chan struct{})}
	return f, f.resolve
}

// Completed returns a Future that has already succeeded.
func Completed() *Future {
	f, resolve := New()
	resolve(nil)
	return f
}

// Failed returns a Future that has already failed with err.
func Failed(err error) *Future {
	f, resolve := New()
	resolve(err)
	return f
}

func (f *Future) resolve(err error) bool {
	resolved := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done returns a channel that is closed once the Future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the Future has been resolved.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the failure of a resolved Future.
// It returns nil while the Future is pending or when it succeeded.
func (f *Future) Err() error {
	if !f.IsDone() {
		return nil
	}
	return f.err
}

// Failed reports whether the Future has resolved with an error.
func (f *Future) Failed() bool {
	return f.IsDone() && f.err != nil
}

// Wait blocks until the Future resolves or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
