package server

import (
	"context"
	"runtime/debug"
)

// loopKey marks contexts handed to code running on a renderer's dispatcher.
type loopKey struct{}

// OnLoop reports whether ctx belongs to work currently running on this
// renderer's dispatcher. Contexts received inside dispatched functions must
// not be used after those functions return.
func (r *Renderer) OnLoop(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(loopKey{}).(*Renderer)
	return owner == r
}

// loop runs dispatched work until Close. It is the only goroutine that
// touches the component arena.
func (r *Renderer) loop() {
	defer close(r.stopped)
	defer r.failPending()

	for {
		select {
		case fn := <-r.dispatchCh:
			r.execute(fn)

		case <-r.done:
			return
		}
	}
}

// execute runs a dispatched function with panic recovery.
func (r *Renderer) execute(fn func(ctx context.Context)) {
	err := protect(func() error {
		fn(r.loopCtx)
		return nil
	})
	if pe, ok := err.(*PanicError); ok {
		r.logger.Error("dispatch panic",
			"panic", pe.Value,
			"stack", string(pe.Stack))
	}
}

// Dispatch queues fn to run on the dispatcher. It is safe to call from any
// goroutine and blocks while the queue is full. It returns false if the
// renderer is closed, in which case fn never runs.
func (r *Renderer) Dispatch(fn func(ctx context.Context)) bool {
	if r.closed.Load() {
		return false
	}
	select {
	case r.dispatchCh <- fn:
		return true
	case <-r.done:
		return false
	}
}

// Invoke runs fn on the dispatcher and waits for it to return. When ctx
// already belongs to this dispatcher, fn runs inline. A panic in fn is
// returned as a *PanicError.
func (r *Renderer) Invoke(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := call(r, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

type callResult[T any] struct {
	value T
	err   error
}

// call marshals fn onto the dispatcher and returns its result. The caller's
// context values stay visible to fn.
func call[T any](r *Renderer, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return dispatch(r, ctx, fn, false)
}

// commit is call for tasks whose effects must be observed: once fn has been
// queued, cancelling ctx no longer abandons it and its result is returned.
func commit[T any](r *Renderer, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return dispatch(r, ctx, fn, true)
}

func dispatch[T any](r *Renderer, ctx context.Context, fn func(ctx context.Context) (T, error), committed bool) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}

	if r.OnLoop(ctx) {
		var value T
		err := protect(func() error {
			var err error
			value, err = fn(ctx)
			return err
		})
		return value, err
	}

	if r.closed.Load() {
		return zero, ErrRendererClosed
	}

	result := make(chan callResult[T], 1)
	loopCtx := context.WithValue(ctx, loopKey{}, r)
	task := func(context.Context) {
		var res callResult[T]
		res.err = protect(func() error {
			var err error
			res.value, err = fn(loopCtx)
			return err
		})
		result <- res
	}

	select {
	case r.dispatchCh <- task:
	case <-r.done:
		return zero, ErrRendererClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	canceled := ctx.Done()
	if committed {
		canceled = nil
	}
	select {
	case res := <-result:
		return res.value, res.err
	case <-r.stopped:
		select {
		case res := <-result:
			return res.value, res.err
		default:
			return zero, ErrRendererClosed
		}
	case <-canceled:
		return zero, ctx.Err()
	}
}

// protect runs fn and converts a panic into a *PanicError.
func protect(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return fn()
}
