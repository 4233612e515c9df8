package component

import (
	"errors"

	"github.com/vango-dev/vango-stream/pkg/frame"
)

// Parameter keys read by Host.
const (
	ParamMode    = "vango.mode"
	ParamName    = "vango.name"
	ParamFactory = "vango.factory"
	ParamParams  = "vango.params"
)

// RootTag is the element Host renders around the page.
const RootTag = "vango-root"

// FragmentTag is the element that carries an out-of-order update.
const FragmentTag = "vango-fragment"

// ErrMissingFactory is returned when Host receives no page factory.
var ErrMissingFactory = errors.New("component: host requires a factory")

// HostParams configures a Host.
type HostParams struct {
	Mode    RenderMode
	Name    string
	Factory frame.Factory
	Params  frame.Params
}

// Encode encodes p for BeginRender.
func (p HostParams) Encode() frame.Params {
	return frame.Params{
		ParamMode:    p.Mode,
		ParamName:    p.Name,
		ParamFactory: p.Factory,
		ParamParams:  p.Params,
	}
}

// Host wraps a page component in a vango-root element. In streaming mode it
// also emits the script that swaps fragments into place.
type Host struct {
	params HostParams
}

// NewHost is the factory for Host.
func NewHost() frame.Component {
	return &Host{}
}

// SetParameters implements frame.ParameterSetter.
func (h *Host) SetParameters(p frame.Params) error {
	factory, _ := p[ParamFactory].(frame.Factory)
	if factory == nil {
		return ErrMissingFactory
	}
	mode, _ := p[ParamMode].(RenderMode)
	params, _ := p[ParamParams].(frame.Params)
	h.params = HostParams{
		Mode:    mode,
		Name:    p.String(ParamName),
		Factory: factory,
		Params:  params,
	}
	return nil
}

// Render implements frame.Component.
func (h *Host) Render(b *frame.Builder) {
	b.OpenElement(RootTag)
	b.AddAttribute("data-mode", h.params.Mode.String())
	if h.params.Name != "" {
		b.AddAttribute("data-component", h.params.Name)
	}
	if h.params.Mode == ModeStreaming {
		b.AddMarkup(SwapScript)
	}
	b.AddComponent("page", h.params.Factory, h.params.Params)
	b.CloseElement()
}
