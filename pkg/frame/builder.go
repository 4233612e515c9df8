package frame

import (
	"errors"
	"fmt"
)

// ErrUnclosedElement is returned by Frames when an element was opened but
// never closed.
var ErrUnclosedElement = errors.New("frame: unclosed element")

// BuildError describes misuse of a Builder during a render pass.
// Builder methods panic with a *BuildError; the renderer recovers it and
// reports it as a render fault.
type BuildError struct {
	Op  string
	Msg string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("frame: %s: %s", e.Op, e.Msg)
}

// Builder accumulates the frames of one render pass.
type Builder struct {
	frames []Frame
	open   []int // indexes of open elements
	// attrs is true while attributes may still be added to the innermost
	// open element.
	attrs bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{frames: make([]Frame, 0, 16)}
}

// OpenElement starts an element. Attributes must follow immediately.
func (b *Builder) OpenElement(tag string) {
	if tag == "" {
		panic(&BuildError{Op: "OpenElement", Msg: "empty tag"})
	}
	b.open = append(b.open, len(b.frames))
	b.frames = append(b.frames, Frame{Kind: KindElement, Name: tag})
	b.attrs = true
}

// AddAttribute adds an attribute to the innermost open element.
func (b *Builder) AddAttribute(name string, value any) {
	if !b.attrs {
		panic(&BuildError{Op: "AddAttribute", Msg: fmt.Sprintf("attribute %q must directly follow its element", name)})
	}
	b.frames = append(b.frames, Frame{Kind: KindAttribute, Name: name, Value: value, SubtreeLength: 1})
}

// AddText adds escaped text content.
func (b *Builder) AddText(text string) {
	b.attrs = false
	b.frames = append(b.frames, Frame{Kind: KindText, Text: text, SubtreeLength: 1})
}

// AddTextf adds formatted text content.
func (b *Builder) AddTextf(format string, args ...any) {
	b.AddText(fmt.Sprintf(format, args...))
}

// AddMarkup adds raw markup. It is written verbatim and must only be used
// with trusted content.
func (b *Builder) AddMarkup(markup string) {
	b.attrs = false
	b.frames = append(b.frames, Frame{Kind: KindMarkup, Text: markup, SubtreeLength: 1})
}

// AddComponent references a child component. The key identifies the child
// across re-renders of this component; an empty key matches by position.
func (b *Builder) AddComponent(key string, factory Factory, params Params) {
	if factory == nil {
		panic(&BuildError{Op: "AddComponent", Msg: "nil factory"})
	}
	b.attrs = false
	b.frames = append(b.frames, Frame{
		Kind:          KindComponent,
		Key:           key,
		Factory:       factory,
		Params:        params,
		ComponentID:   -1,
		SubtreeLength: 1,
	})
}

// CloseElement closes the innermost open element.
func (b *Builder) CloseElement() {
	if len(b.open) == 0 {
		panic(&BuildError{Op: "CloseElement", Msg: "no open element"})
	}
	idx := b.open[len(b.open)-1]
	b.open = b.open[:len(b.open)-1]
	b.frames[idx].SubtreeLength = len(b.frames) - idx
	b.attrs = false
}

// Frames returns the completed frames.
func (b *Builder) Frames() ([]Frame, error) {
	if len(b.open) > 0 {
		tag := b.frames[b.open[len(b.open)-1]].Name
		return nil, fmt.Errorf("%w: <%s>", ErrUnclosedElement, tag)
	}
	return b.frames, nil
}

// Len returns the number of frames written so far.
func (b *Builder) Len() int {
	return len(b.frames)
}
