package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/vango-dev/vango-stream/pkg/frame"
)

// mapSource is a FrameSource backed by a map.
type mapSource map[int][]frame.Frame

func (s mapSource) Frames(id int) ([]frame.Frame, bool) {
	f, ok := s[id]
	return f, ok
}

func build(t *testing.T, render func(b *frame.Builder)) []frame.Frame {
	t.Helper()
	b := frame.NewBuilder()
	render(b)
	frames, err := b.Frames()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return frames
}

// withChild points the first component frame at childID.
func withChild(frames []frame.Frame, childID int) []frame.Frame {
	for i := range frames {
		if frames[i].Kind == frame.KindComponent {
			frames[i].ComponentID = childID
			break
		}
	}
	return frames
}

func TestMaterializeElement(t *testing.T) {
	src := mapSource{
		0: build(t, func(b *frame.Builder) {
			b.OpenElement("div")
			b.AddAttribute("class", "container")
			b.OpenElement("h1")
			b.AddText("Title")
			b.CloseElement()
			b.OpenElement("p")
			b.AddText("Content")
			b.CloseElement()
			b.CloseElement()
		}),
	}

	html, err := New(src, Options{}).MaterializeToString(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<div class="container"><h1>Title</h1><p>Content</p></div>`
	if html != want {
		t.Errorf("got %q, want %q", html, want)
	}
}

func TestMaterializeAttributes(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "false omitted", value: false, want: `<input>`},
		{name: "nil omitted", value: nil, want: `<input>`},
		{name: "true name only", value: true, want: `<input disabled>`},
		{name: "string", value: "x", want: `<input disabled="x">`},
		{name: "empty string kept", value: "", want: `<input disabled="">`},
		{name: "int", value: 42, want: `<input disabled="42">`},
		{name: "float", value: 1.5, want: `<input disabled="1.5">`},
		{name: "escaped", value: `<a & "b">`, want: `<input disabled="&lt;a &amp; &quot;b&quot;&gt;">`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := mapSource{0: build(t, func(b *frame.Builder) {
				b.OpenElement("input")
				b.AddAttribute("disabled", tt.value)
				b.CloseElement()
			})}
			html, err := New(src, Options{}).MaterializeToString(0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if html != tt.want {
				t.Errorf("got %q, want %q", html, tt.want)
			}
		})
	}
}

func TestMaterializeVoidElements(t *testing.T) {
	for _, tag := range []string{"input", "br", "img", "hr", "meta"} {
		t.Run(tag, func(t *testing.T) {
			src := mapSource{0: build(t, func(b *frame.Builder) {
				b.OpenElement(tag)
				b.AddAttribute("id", "v")
				b.AddText("ignored")
				b.CloseElement()
			})}
			html, err := New(src, Options{}).MaterializeToString(0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := "<" + tag + ` id="v">`
			if html != want {
				t.Errorf("got %q, want %q", html, want)
			}
			if strings.Contains(html, "</"+tag+">") {
				t.Errorf("void element should not have closing tag, got %q", html)
			}
		})
	}
}

func TestMaterializeTextEscaping(t *testing.T) {
	src := mapSource{0: build(t, func(b *frame.Builder) {
		b.OpenElement("p")
		b.AddText(`<script>alert("x") & 'y'</script>`)
		b.CloseElement()
	})}

	html, err := New(src, Options{}).MaterializeToString(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("text should be escaped, got %q", html)
	}
	for _, want := range []string{"&lt;script&gt;", "&amp;", "&quot;x&quot;"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in %q", want, html)
		}
	}
}

func TestMaterializeRawMarkup(t *testing.T) {
	src := mapSource{0: build(t, func(b *frame.Builder) {
		b.OpenElement("div")
		b.AddMarkup("<b>bold & raw</b>")
		b.CloseElement()
	})}

	html, err := New(src, Options{}).MaterializeToString(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if html != "<div><b>bold & raw</b></div>" {
		t.Errorf("got %q", html)
	}
}

func TestMaterializeChildComponent(t *testing.T) {
	child := frame.Static(func(b *frame.Builder) {})
	parent := build(t, func(b *frame.Builder) {
		b.OpenElement("main")
		b.AddComponent("", child, nil)
		b.CloseElement()
	})
	src := mapSource{
		0: withChild(parent, 1),
		1: build(t, func(b *frame.Builder) { b.AddText("child v1") }),
	}
	m := New(src, Options{})

	html, err := m.MaterializeToString(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if html != "<main>child v1</main>" {
		t.Errorf("got %q", html)
	}

	// Composition happens at write time: a new child render shows up
	// without touching the parent's frames.
	src[1] = build(t, func(b *frame.Builder) { b.AddText("child v2") })
	html, err = m.MaterializeToString(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if html != "<main>child v2</main>" {
		t.Errorf("got %q", html)
	}
}

func TestMaterializeBoundaries(t *testing.T) {
	parent := build(t, func(b *frame.Builder) {
		b.AddComponent("", frame.Static(func(*frame.Builder) {}), nil)
	})
	src := mapSource{
		0: withChild(parent, 3),
		3: build(t, func(b *frame.Builder) { b.AddText("x") }),
	}

	html, err := New(src, Options{Boundaries: true}).MaterializeToString(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if html != "<!--vango:3-->x<!--/vango:3-->" {
		t.Errorf("got %q", html)
	}
}

func TestMaterializeIdempotent(t *testing.T) {
	src := mapSource{0: build(t, func(b *frame.Builder) {
		b.OpenElement("ul")
		for _, s := range []string{"a", "b", "c"} {
			b.OpenElement("li")
			b.AddText(s)
			b.CloseElement()
		}
		b.CloseElement()
	})}
	m := New(src, Options{})

	var first, second bytes.Buffer
	if err := m.Materialize(&first, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Materialize(&second, 0); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Errorf("outputs differ: %q vs %q", first.String(), second.String())
	}
}

func TestMaterializeMissingComponent(t *testing.T) {
	_, err := New(mapSource{}, Options{}).MaterializeToString(9)
	if !errors.Is(err, ErrComponentNotFound) {
		t.Fatalf("err = %v, want ErrComponentNotFound", err)
	}
}

type failWriter struct{ after int }

func (w *failWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("write failed")
	}
	w.after--
	return len(p), nil
}

func TestMaterializeWriteError(t *testing.T) {
	src := mapSource{0: build(t, func(b *frame.Builder) {
		b.OpenElement("div")
		b.AddText("a")
		b.CloseElement()
	})}

	err := New(src, Options{}).Materialize(&failWriter{after: 1}, 0)
	if err == nil || err.Error() != "write failed" {
		t.Fatalf("err = %v, want write failed", err)
	}
}
