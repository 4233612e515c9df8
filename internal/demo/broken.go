package demo

import (
	"context"
	"time"

	"github.com/vango-dev/vango-stream/pkg/frame"
)

// Broken returns the factory for the "broken" component. It paints a
// placeholder and then fails its load with ErrUpstream. With the parameter
// panic=render it panics during its first render instead.
func Broken(delay time.Duration) frame.Factory {
	return func() frame.Component {
		return &broken{delay: delay}
	}
}

type broken struct {
	delay   time.Duration
	explode bool
}

func (c *broken) SetParameters(p frame.Params) error {
	c.delay = delayParam(p, c.delay)
	c.explode = p.String("panic") == "render"
	return nil
}

func (c *broken) Load(ctx context.Context) (func(), error) {
	if err := sleep(ctx, c.delay); err != nil {
		return nil, err
	}
	return nil, ErrUpstream
}

func (c *broken) Render(b *frame.Builder) {
	if c.explode {
		panic("demo: render failed")
	}
	b.OpenElement("p")
	b.AddAttribute("class", "placeholder")
	b.AddText("Contacting upstream...")
	b.CloseElement()
}
