package main

import (
	"context"
	"strconv"
	"time"

	"github.com/vango-dev/vango-stream/pkg/frame"
)

// benchPage renders a heading and cards loaders. Card i waits
// delay*(1+i%3), so completions interleave.
func benchPage(cards int, delay time.Duration) frame.Factory {
	return frame.Static(func(b *frame.Builder) {
		b.OpenElement("main")
		b.OpenElement("h1")
		b.AddText("Bench")
		b.CloseElement()
		for i := 0; i < cards; i++ {
			wait := delay * time.Duration(1+i%3)
			b.AddComponent(strconv.Itoa(i), func() frame.Component {
				return &benchCard{index: i, delay: wait}
			}, nil)
		}
		b.CloseElement()
	})
}

type benchCard struct {
	index int
	delay time.Duration
	value string
}

func (c *benchCard) Load(ctx context.Context) (func(), error) {
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	value := "card " + strconv.Itoa(c.index) + " ready"
	return func() { c.value = value }, nil
}

func (c *benchCard) Render(b *frame.Builder) {
	b.OpenElement("section")
	b.AddAttribute("data-card", c.index)
	if c.value == "" {
		b.AddText("loading")
	} else {
		b.AddText(c.value)
	}
	b.CloseElement()
}
