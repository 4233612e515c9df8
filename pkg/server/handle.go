package server

import (
	"bytes"
	"context"
	"io"

	"github.com/vango-dev/vango-stream/pkg/future"
)

// Handle refers to one component of a Renderer. The zero Handle is the empty
// handle: it is already quiescent and materializes to nothing.
type Handle struct {
	renderer   *Renderer
	id         int
	quiescence *future.Future
}

// IsEmpty reports whether h is the empty handle.
func (h Handle) IsEmpty() bool {
	return h.renderer == nil
}

// ComponentID returns the component id, or -1 for the empty handle.
func (h Handle) ComponentID() int {
	if h.renderer == nil {
		return -1
	}
	return h.id
}

// WaitForQuiescence returns the future of the root that owns the component.
func (h Handle) WaitForQuiescence() *future.Future {
	if h.quiescence == nil {
		return future.Completed()
	}
	return h.quiescence
}

// Materialize writes the component's current markup to w, including the
// current output of every descendant. It reflects state at the time of the
// call and may be called any number of times.
func (h Handle) Materialize(ctx context.Context, w io.Writer) error {
	if h.renderer == nil {
		return nil
	}
	return h.renderer.materialize(ctx, w, h.id)
}

// MaterializeToString is Materialize into a string.
func (h Handle) MaterializeToString(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	if err := h.Materialize(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
