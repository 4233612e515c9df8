package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vango-dev/vango-stream/pkg/component"
	"github.com/vango-dev/vango-stream/pkg/frame"
)

// ErrUpstream is returned by the broken component's load.
var ErrUpstream = errors.New("demo: upstream unavailable")

// DefaultDelay is the base latency of simulated loads.
const DefaultDelay = 200 * time.Millisecond

// Options tunes the demo components.
type Options struct {
	// Delay is the base latency of simulated loads. Components scale it.
	// Default: DefaultDelay.
	Delay time.Duration
}

// Register adds the demo components to reg.
func Register(reg *component.Registry, opts Options) error {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	for _, c := range []struct {
		name    string
		factory frame.Factory
	}{
		{"hello", Hello},
		{"dashboard", Dashboard(opts.Delay)},
		{"feed", Feed(opts.Delay)},
		{"broken", Broken(opts.Delay)},
	} {
		if err := reg.Register(c.name, c.factory); err != nil {
			return fmt.Errorf("register %s: %w", c.name, err)
		}
	}
	return nil
}

// delayParam reads a delay from params, accepting a time.Duration or a
// duration string. It returns def when absent or malformed.
func delayParam(p frame.Params, def time.Duration) time.Duration {
	switch v := p["delay"].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// hello is a page with no asynchronous work.
type hello struct {
	name string
}

// Hello creates the "hello" component. It greets the "name" parameter.
func Hello() frame.Component {
	return &hello{name: "world"}
}

func (h *hello) SetParameters(p frame.Params) error {
	if name := p.String("name"); name != "" {
		h.name = name
	}
	return nil
}

func (h *hello) Render(b *frame.Builder) {
	b.OpenElement("section")
	b.AddAttribute("class", "hello")
	b.OpenElement("h1")
	b.AddTextf("Hello, %s!", h.name)
	b.CloseElement()
	b.OpenElement("p")
	b.AddText("Rendered without waiting on anything.")
	b.CloseElement()
	b.CloseElement()
}
