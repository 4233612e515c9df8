package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vango-stream/pkg/component"
	"github.com/vango-dev/vango-stream/pkg/server"
)

const prefix = `<vango-root data-mode="streaming" data-component="page">` + component.SwapScript

func TestStreamSyncOnly(t *testing.T) {
	ctx := testContext(t)
	r := streamingRenderer(t)
	obs := &recordObserver{}
	sink := &BufferSink{}

	s := New(&Config{Observer: obs})
	err := s.Stream(ctx, r, sink, Request{Name: "page", Factory: pageFactory()})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	chunks := sink.Chunks()
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1: %q", len(chunks), chunks)
	}
	want := prefix + `<!--vango:1--><main><h1>Title</h1></main><!--/vango:1--></vango-root>`
	if chunks[0] != want {
		t.Errorf("first paint = %q\nwant %q", chunks[0], want)
	}
	if s.State() != StateQuiesced {
		t.Errorf("State() = %v, want quiesced", s.State())
	}
	if obs.firstFlush != 1 || len(obs.fragments) != 0 {
		t.Errorf("observer firstFlush=%d fragments=%d", obs.firstFlush, len(obs.fragments))
	}
	if len(obs.finished) != 1 || obs.finished[0] != "streaming:ok" {
		t.Errorf("finished = %v", obs.finished)
	}
}

func TestStreamFragmentFollowsFirstPaint(t *testing.T) {
	ctx := testContext(t)
	r := streamingRenderer(t)
	sink := &BufferSink{}

	// The load completes immediately; its fragment still follows the first paint.
	s := New(nil)
	err := s.Stream(ctx, r, sink, Request{
		Name:    "page",
		Factory: pageFactory(loaderFactory("ready", closed())),
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	chunks := sink.Chunks()
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2: %q", len(chunks), chunks)
	}
	if !strings.Contains(chunks[0], "<!--vango:2--><p>loading</p><!--/vango:2-->") {
		t.Errorf("first paint should hold the placeholder, got %q", chunks[0])
	}
	if want := `<vango-fragment component-id="2"><p>ready</p></vango-fragment>`; chunks[1] != want {
		t.Errorf("fragment = %q, want %q", chunks[1], want)
	}
	if s.State() != StateQuiesced {
		t.Errorf("State() = %v, want quiesced", s.State())
	}
	if s.Fragments() != 1 {
		t.Errorf("Fragments() = %d, want 1", s.Fragments())
	}
}

func TestStreamFragmentsInCompletionOrder(t *testing.T) {
	ctx := testContext(t)
	r := streamingRenderer(t)
	sink := &BufferSink{}

	second := make(chan struct{})
	obs := &recordObserver{onFragment: func(n int) {
		if n == 1 {
			close(second)
		}
	}}

	// Child 2 waits for child 3's fragment.
	s := New(&Config{Observer: obs})
	err := s.Stream(ctx, r, sink, Request{
		Name:    "page",
		Factory: pageFactory(loaderFactory("slow", second), loaderFactory("fast", closed())),
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	chunks := sink.Chunks()
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3: %q", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[1], `<vango-fragment component-id="3"><p>fast</p>`) {
		t.Errorf("second chunk = %q, want fragment for 3", chunks[1])
	}
	if !strings.HasPrefix(chunks[2], `<vango-fragment component-id="2"><p>slow</p>`) {
		t.Errorf("third chunk = %q, want fragment for 2", chunks[2])
	}
}

func TestStreamSyncFault(t *testing.T) {
	ctx := testContext(t)
	r := streamingRenderer(t)
	obs := &recordObserver{}
	sink := &BufferSink{}

	s := New(&Config{Observer: obs})
	err := s.Stream(ctx, r, sink, Request{Name: "page", Factory: panicFactory})
	var re *server.RenderError
	if !errors.As(err, &re) {
		t.Fatalf("Stream() error = %v, want *server.RenderError", err)
	}
	if sink.String() != "" {
		t.Errorf("nothing should be written on a sync fault, got %q", sink.String())
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %v, want failed", s.State())
	}
	if len(obs.finished) != 1 || obs.finished[0] != "streaming:error" {
		t.Errorf("finished = %v", obs.finished)
	}
}

func TestStreamAsyncFault(t *testing.T) {
	ctx := testContext(t)
	r := streamingRenderer(t)
	sink := &BufferSink{}
	loadErr := errors.New("upstream timeout")

	s := New(nil)
	err := s.Stream(ctx, r, sink, Request{Name: "page", Factory: pageFactory(failingLoaderFactory(loadErr))})
	if !errors.Is(err, loadErr) {
		t.Fatalf("Stream() error = %v, want %v", err, loadErr)
	}
	if len(sink.Chunks()) != 1 {
		t.Errorf("first paint should have been flushed, chunks = %q", sink.Chunks())
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %v, want failed", s.State())
	}
}

func TestStreamSinkFailure(t *testing.T) {
	ctx := testContext(t)
	r := streamingRenderer(t)
	sink := &failSink{failAfter: 1}

	s := New(nil)
	err := s.Stream(ctx, r, sink, Request{Name: "page", Factory: pageFactory(loaderFactory("x", closed()))})
	if !errors.Is(err, errSinkBroken) {
		t.Fatalf("Stream() error = %v, want sink error", err)
	}
	if strings.Contains(sink.String(), "vango-fragment component-id") {
		t.Errorf("no fragment should reach the sink, got %q", sink.String())
	}
}

func TestStreamFirstWriteFailure(t *testing.T) {
	ctx := testContext(t)
	r := streamingRenderer(t)
	sink := &failSink{failAfter: 0}

	err := New(nil).Stream(ctx, r, sink, Request{Name: "page", Factory: pageFactory()})
	if !errors.Is(err, errSinkBroken) {
		t.Fatalf("Stream() error = %v, want sink error", err)
	}
}

func TestStreamContextCanceled(t *testing.T) {
	r := streamingRenderer(t)
	sink := &BufferSink{}
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	obs := &recordObserver{}
	s := New(&Config{Observer: obs})

	done := make(chan error, 1)
	go func() {
		done <- s.Stream(ctx, r, sink, Request{Name: "page", Factory: pageFactory(loaderFactory("never", release))})
	}()

	tctx := testContext(t)
	for s.State() != StateSyncFlushed {
		select {
		case <-tctx.Done():
			t.Fatal("first paint never flushed")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Stream() error = %v, want context.Canceled", err)
		}
	case <-tctx.Done():
		t.Fatal("Stream() did not return after cancel")
	}
	if obs.finished[0] != "streaming:canceled" {
		t.Errorf("finished = %v", obs.finished)
	}
}

func TestStreamStatic(t *testing.T) {
	ctx := testContext(t)
	r := server.New(nil)
	defer r.Close()
	sink := &BufferSink{}

	s := New(nil)
	err := s.Stream(ctx, r, sink, Request{
		Name:    "page",
		Mode:    component.ModeStatic,
		Factory: pageFactory(loaderFactory("ready", closed())),
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	chunks := sink.Chunks()
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	want := `<vango-root data-mode="static" data-component="page"><main><h1>Title</h1><p>ready</p></main></vango-root>`
	if chunks[0] != want {
		t.Errorf("static output = %q\nwant %q", chunks[0], want)
	}
}

func TestStreamStaticWaitsForEveryRoot(t *testing.T) {
	ctx := testContext(t)
	r := server.New(nil)
	defer r.Close()

	release := make(chan struct{})
	if _, _, err := r.BeginRender(ctx, loaderFactory("other", release), nil); err != nil {
		t.Fatalf("BeginRender() error = %v", err)
	}

	sink := &BufferSink{}
	done := make(chan error, 1)
	go func() {
		done <- New(nil).Stream(ctx, r, sink, Request{
			Name:    "page",
			Mode:    component.ModeStatic,
			Factory: pageFactory(),
		})
	}()

	select {
	case err := <-done:
		t.Fatalf("Stream() returned %v before the other root was quiescent", err)
	case <-time.After(50 * time.Millisecond):
	}
	if n := len(sink.Chunks()); n != 0 {
		t.Fatalf("chunks = %d before quiescence, want 0", n)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if n := len(sink.Chunks()); n != 1 {
		t.Errorf("chunks = %d, want 1", n)
	}
}

func TestStreamDocument(t *testing.T) {
	ctx := testContext(t)
	r := streamingRenderer(t)
	sink := &BufferSink{}

	s := New(&Config{Document: &Document{Title: "A & B"}})
	if err := s.Stream(ctx, r, sink, Request{Name: "page", Factory: pageFactory(loaderFactory("x", closed()))}); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	chunks := sink.Chunks()
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "<!DOCTYPE html>") || !strings.Contains(chunks[0], "<title>A &amp; B</title>") {
		t.Errorf("first chunk should open the document, got %q", chunks[0])
	}
	if chunks[2] != "\n</body>\n</html>\n" {
		t.Errorf("last chunk = %q, want document close", chunks[2])
	}
}

func TestStreamerSingleUse(t *testing.T) {
	ctx := testContext(t)
	r := streamingRenderer(t)
	s := New(nil)

	if err := s.Stream(ctx, r, &BufferSink{}, Request{Factory: pageFactory()}); err != nil {
		t.Fatalf("first Stream() error = %v", err)
	}
	if err := s.Stream(ctx, r, &BufferSink{}, Request{Factory: pageFactory()}); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Stream() error = %v, want ErrAlreadyStarted", err)
	}
	if err := New(nil).Stream(ctx, r, &BufferSink{}, Request{}); !errors.Is(err, ErrNilFactory) {
		t.Errorf("Stream() without factory error = %v, want ErrNilFactory", err)
	}
}

func TestPrerender(t *testing.T) {
	out, err := Prerender(testContext(t), nil, Request{
		Name:    "page",
		Mode:    component.ModeStreaming,
		Factory: pageFactory(loaderFactory("done", closed())),
	})
	if err != nil {
		t.Fatalf("Prerender() error = %v", err)
	}
	if !strings.Contains(out, `data-mode="static"`) || !strings.Contains(out, "<p>done</p>") {
		t.Errorf("Prerender() = %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Error("static output should not include the swap script")
	}
}

func TestFragmentEscapesCloseMarker(t *testing.T) {
	got := Fragment(3, `<pre>x</vango-fragment>y</pre>`)
	want := `<vango-fragment component-id="3"><pre>x&lt;/vango-fragment>y</pre></vango-fragment>`
	if got != want {
		t.Errorf("Fragment() = %q, want %q", got, want)
	}
}

func TestFragmentEscapesMarkersInAnyCase(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"upper close", `<b>x</b></VANGO-FRAGMENT><i>leak</i>`, `<b>x</b>&lt;/VANGO-FRAGMENT><i>leak</i>`},
		{"mixed close", `</Vango-Fragment>`, `&lt;/Vango-Fragment>`},
		{"open", `<vango-fragment component-id="9">x`, `&lt;vango-fragment component-id="9">x`},
		{"upper open", `<VANGO-FRAGMENT>`, `&lt;VANGO-FRAGMENT>`},
		{"plain", `<p>vango-fragment</p>`, `<p>vango-fragment</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fragment(7, tt.markup)
			want := `<vango-fragment component-id="7">` + tt.want + `</vango-fragment>`
			if got != want {
				t.Errorf("Fragment() = %q, want %q", got, want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{StateInit, "init", false},
		{StateSyncFlushed, "sync_flushed", false},
		{StateStreaming, "streaming", false},
		{StateQuiesced, "quiesced", true},
		{StateFailed, "failed", true},
		{State(42), "unknown", false},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
		if tt.state.Terminal() != tt.terminal {
			t.Errorf("State(%d).Terminal() = %v", tt.state, !tt.terminal)
		}
	}
}

func TestSinks(t *testing.T) {
	var sb strings.Builder
	ws := &WriterSink{Writer: &sb}
	ws.Write([]byte("a"))
	ws.Flush()
	ws.Flush()
	if sb.String() != "a" || ws.FlushCount != 2 {
		t.Errorf("WriterSink = %q flushes=%d", sb.String(), ws.FlushCount)
	}

	var bs BufferSink
	bs.Write([]byte("ab"))
	bs.Write([]byte("c"))
	bs.Flush()
	bs.Flush()
	bs.Write([]byte("d"))
	bs.Flush()
	chunks := bs.Chunks()
	if len(chunks) != 3 || chunks[0] != "abc" || chunks[1] != "" || chunks[2] != "d" {
		t.Errorf("BufferSink chunks = %q", chunks)
	}
}
