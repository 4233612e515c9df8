package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/vango-stream/pkg/frame"
	"github.com/vango-dev/vango-stream/pkg/server"
)

// loader renders "loading" until released, then its label.
type loader struct {
	label   string
	release <-chan struct{}
	err     error
	loaded  bool
}

func (l *loader) SetParameters(p frame.Params) error {
	if v := p.String("label"); v != "" {
		l.label = v
	}
	return nil
}

func (l *loader) Load(ctx context.Context) (func(), error) {
	select {
	case <-l.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.loaded = true }, nil
}

func (l *loader) Render(b *frame.Builder) {
	b.OpenElement("p")
	if l.loaded {
		b.AddText(l.label)
	} else {
		b.AddText("loading")
	}
	b.CloseElement()
}

func loaderFactory(label string, release <-chan struct{}) frame.Factory {
	return func() frame.Component { return &loader{label: label, release: release} }
}

func failingLoaderFactory(err error) frame.Factory {
	released := make(chan struct{})
	close(released)
	return func() frame.Component { return &loader{release: released, err: err} }
}

func pageFactory(children ...frame.Factory) frame.Factory {
	return frame.Static(func(b *frame.Builder) {
		b.OpenElement("main")
		b.OpenElement("h1")
		b.AddText("Title")
		b.CloseElement()
		for _, c := range children {
			b.AddComponent("", c, nil)
		}
		b.CloseElement()
	})
}

func panicFactory() frame.Component {
	return frame.Func(func(b *frame.Builder) { panic("render exploded") })
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// recordObserver records lifecycle callbacks.
type recordObserver struct {
	mu         sync.Mutex
	started    []string
	firstFlush int
	fragments  []int
	finished   []string
	onFragment func(n int)
}

func (o *recordObserver) StreamStarted(mode string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, mode)
}

func (o *recordObserver) FirstFlush(mode string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.firstFlush++
}

func (o *recordObserver) FragmentWritten(bytes int) {
	o.mu.Lock()
	o.fragments = append(o.fragments, bytes)
	n := len(o.fragments)
	hook := o.onFragment
	o.mu.Unlock()
	if hook != nil {
		hook(n)
	}
}

func (o *recordObserver) StreamFinished(mode, status string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, mode+":"+status)
}

// failSink fails every write after the first failAfter writes.
type failSink struct {
	BufferSink
	failAfter int
	writes    int
}

var errSinkBroken = errors.New("sink broken")

func (f *failSink) Write(p []byte) (int, error) {
	f.writes++
	if f.writes > f.failAfter {
		return 0, errSinkBroken
	}
	return f.BufferSink.Write(p)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func streamingRenderer(t *testing.T) *server.Renderer {
	t.Helper()
	cfg := server.DefaultConfig()
	cfg.Materialize.Boundaries = true
	r := server.New(cfg)
	t.Cleanup(r.Close)
	return r
}
