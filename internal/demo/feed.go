package demo

import (
	"context"
	"strconv"
	"time"

	"github.com/vango-dev/vango-stream/pkg/frame"
)

// post is a feed entry. Its body loads separately from the list.
type post struct {
	id    int
	title string
	body  string
}

var posts = []post{
	{id: 3, title: "Streaming is live", body: "Pages now paint before their data arrives."},
	{id: 2, title: "Quiescence", body: "A render is done when nothing is left to load."},
	{id: 1, title: "Hello", body: "First post."},
}

// Feed returns the factory for the "feed" component. The feed first loads
// its list of posts; each post then loads its own body, so the second wave
// of work only exists after the first wave completes.
func Feed(delay time.Duration) frame.Factory {
	return func() frame.Component {
		return &feed{delay: delay}
	}
}

type feed struct {
	delay  time.Duration
	posts  []post
	loaded bool
}

func (f *feed) SetParameters(p frame.Params) error {
	f.delay = delayParam(p, f.delay)
	return nil
}

func (f *feed) Load(ctx context.Context) (func(), error) {
	if err := sleep(ctx, f.delay); err != nil {
		return nil, err
	}
	list := append([]post(nil), posts...)
	return func() {
		f.posts = list
		f.loaded = true
	}, nil
}

func (f *feed) Render(b *frame.Builder) {
	b.OpenElement("section")
	b.AddAttribute("class", "feed")
	b.OpenElement("h1")
	b.AddText("Feed")
	b.CloseElement()
	if !f.loaded {
		b.OpenElement("p")
		b.AddAttribute("class", "placeholder")
		b.AddText("Loading posts...")
		b.CloseElement()
	}
	for i, p := range f.posts {
		b.AddComponent(strconv.Itoa(p.id), newEntry, frame.Params{
			"post":  p,
			"delay": f.delay * time.Duration(i+1),
		})
	}
	b.CloseElement()
}

type entry struct {
	post  post
	delay time.Duration
	body  string
}

func newEntry() frame.Component {
	return &entry{}
}

func (e *entry) SetParameters(p frame.Params) error {
	if v, ok := p["post"].(post); ok {
		e.post = v
	}
	e.delay = delayParam(p, e.delay)
	return nil
}

func (e *entry) Load(ctx context.Context) (func(), error) {
	body := e.post.body
	if err := sleep(ctx, e.delay); err != nil {
		return nil, err
	}
	return func() { e.body = body }, nil
}

func (e *entry) Render(b *frame.Builder) {
	b.OpenElement("article")
	b.AddAttribute("id", "post-"+strconv.Itoa(e.post.id))
	b.OpenElement("h2")
	b.AddText(e.post.title)
	b.CloseElement()
	b.OpenElement("p")
	if e.body == "" {
		b.AddText("...")
	} else {
		b.AddText(e.body)
	}
	b.CloseElement()
	b.CloseElement()
}
