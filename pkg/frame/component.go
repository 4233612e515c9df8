package frame

import "context"

// Component is anything that can render itself into frames.
type Component interface {
	Render(b *Builder)
}

// Factory creates a fresh component instance.
type Factory func() Component

// Params holds the parameters passed to a component.
type Params map[string]any

// String returns the parameter as a string, or "" if absent or not a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Clone returns a shallow copy of the parameters.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	clone := make(Params, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// ParameterSetter is implemented by components that accept parameters.
// SetParameters runs before every render pass that supplies parameters.
// A returned error faults the render.
type ParameterSetter interface {
	SetParameters(p Params) error
}

// Loader is implemented by components that finish initialization
// asynchronously.
//
// Load runs on its own goroutine and must not touch component state.
// The returned apply function runs on the renderer's dispatcher, after which
// the component renders again. A nil apply is allowed.
type Loader interface {
	Load(ctx context.Context) (apply func(), err error)
}

// AfterRenderer is implemented by components that want a hook after their
// output has been displayed. The offline renderer suppresses it.
type AfterRenderer interface {
	AfterRender(first bool)
}

// FuncComponent wraps a render function.
type FuncComponent struct {
	render func(b *Builder)
}

// Render implements Component.
func (f *FuncComponent) Render(b *Builder) {
	f.render(b)
}

// Func creates a component from a render function.
func Func(render func(b *Builder)) Component {
	return &FuncComponent{render: render}
}

// Static returns a factory for a component with fixed output.
func Static(render func(b *Builder)) Factory {
	return func() Component { return Func(render) }
}
