package demo

import (
	"context"
	"time"

	"github.com/vango-dev/vango-stream/pkg/frame"
)

// metric describes one dashboard card.
type metric struct {
	key   string
	title string
	value string

	// weight scales the base delay, so cards finish out of document order.
	weight int
}

var metrics = []metric{
	{key: "revenue", title: "Revenue", value: "$12,480", weight: 3},
	{key: "orders", title: "Orders", value: "342", weight: 1},
	{key: "visitors", title: "Visitors", value: "8,901", weight: 2},
}

// Dashboard returns the factory for the "dashboard" component: a heading
// rendered immediately and one card per metric, each loading on its own.
func Dashboard(delay time.Duration) frame.Factory {
	return func() frame.Component {
		return &dashboard{delay: delay}
	}
}

type dashboard struct {
	delay time.Duration
}

func (d *dashboard) SetParameters(p frame.Params) error {
	d.delay = delayParam(p, d.delay)
	return nil
}

func (d *dashboard) Render(b *frame.Builder) {
	b.OpenElement("main")
	b.AddAttribute("class", "dashboard")
	b.OpenElement("h1")
	b.AddText("Dashboard")
	b.CloseElement()
	for _, m := range metrics {
		b.AddComponent(m.key, newCard, frame.Params{
			"metric": m,
			"delay":  d.delay * time.Duration(m.weight),
		})
	}
	b.CloseElement()
}

// card shows a placeholder until its value has loaded.
type card struct {
	metric metric
	delay  time.Duration
	value  string
}

func newCard() frame.Component {
	return &card{}
}

func (c *card) SetParameters(p frame.Params) error {
	if m, ok := p["metric"].(metric); ok {
		c.metric = m
	}
	c.delay = delayParam(p, c.delay)
	return nil
}

func (c *card) Load(ctx context.Context) (func(), error) {
	value := c.metric.value
	if err := sleep(ctx, c.delay); err != nil {
		return nil, err
	}
	return func() { c.value = value }, nil
}

func (c *card) Render(b *frame.Builder) {
	b.OpenElement("article")
	b.AddAttribute("class", "card")
	b.AddAttribute("data-metric", c.metric.key)
	b.OpenElement("h2")
	b.AddText(c.metric.title)
	b.CloseElement()
	b.OpenElement("p")
	if c.value == "" {
		b.AddAttribute("class", "placeholder")
		b.AddText("Loading...")
	} else {
		b.AddText(c.value)
	}
	b.CloseElement()
	b.CloseElement()
}
