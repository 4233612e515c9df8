package demo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vango-stream/pkg/component"
	"github.com/vango-dev/vango-stream/pkg/frame"
	"github.com/vango-dev/vango-stream/pkg/server"
	"github.com/vango-dev/vango-stream/pkg/stream"
)

func testRegistry(t *testing.T) *component.Registry {
	t.Helper()
	reg := component.NewRegistry()
	if err := Register(reg, Options{Delay: time.Millisecond}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

func prerender(t *testing.T, name string, params frame.Params) (string, error) {
	t.Helper()
	factory, ok := testRegistry(t).Lookup(name)
	if !ok {
		t.Fatalf("component %q not registered", name)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return stream.Prerender(ctx, nil, stream.Request{Name: name, Factory: factory, Params: params})
}

func TestRegister(t *testing.T) {
	reg := testRegistry(t)
	want := []string{"broken", "dashboard", "feed", "hello"}
	got := reg.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	if err := Register(reg, Options{}); !errors.Is(err, component.ErrDuplicateName) {
		t.Errorf("second Register = %v, want ErrDuplicateName", err)
	}
}

func TestHello(t *testing.T) {
	html, err := prerender(t, "hello", frame.Params{"name": "Ada"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<h1>Hello, Ada!</h1>") {
		t.Errorf("missing greeting in %s", html)
	}
}

func TestDashboardLoadsEveryCard(t *testing.T) {
	html, err := prerender(t, "dashboard", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range metrics {
		if !strings.Contains(html, m.value) {
			t.Errorf("missing %s value %q in %s", m.key, m.value, html)
		}
	}
	if strings.Contains(html, "Loading...") {
		t.Errorf("placeholder left in quiescent output: %s", html)
	}
}

func TestFeedLoadsNestedPosts(t *testing.T) {
	html, err := prerender(t, "feed", nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "Loading posts...") {
		t.Errorf("feed placeholder left in output: %s", html)
	}
	for _, p := range posts {
		if !strings.Contains(html, p.body) {
			t.Errorf("missing body of post %d in %s", p.id, html)
		}
	}
	if i, j := strings.Index(html, "post-3"), strings.Index(html, "post-1"); i < 0 || j < 0 || i > j {
		t.Errorf("posts out of order in %s", html)
	}
}

func TestBrokenFailsLoad(t *testing.T) {
	_, err := prerender(t, "broken", nil)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	var re *server.RenderError
	if !errors.As(err, &re) || re.Op != "load" {
		t.Errorf("err = %#v, want a load RenderError", err)
	}
}

func TestBrokenRenderPanic(t *testing.T) {
	_, err := prerender(t, "broken", frame.Params{"panic": "render"})
	var pe *server.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want a PanicError", err)
	}
}

func TestDelayParam(t *testing.T) {
	tests := []struct {
		name string
		p    frame.Params
		want time.Duration
	}{
		{"absent", nil, time.Second},
		{"duration", frame.Params{"delay": 5 * time.Millisecond}, 5 * time.Millisecond},
		{"string", frame.Params{"delay": "20ms"}, 20 * time.Millisecond},
		{"malformed", frame.Params{"delay": "soon"}, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := delayParam(tt.p, time.Second); got != tt.want {
				t.Errorf("delayParam() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleep = %v, want context.Canceled", err)
	}
}
