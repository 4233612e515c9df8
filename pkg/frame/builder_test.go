package frame

import (
	"errors"
	"testing"
)

func TestBuilderSubtreeLength(t *testing.T) {
	b := NewBuilder()
	b.OpenElement("ul")
	b.AddAttribute("class", "list")
	b.OpenElement("li")
	b.AddText("one")
	b.CloseElement()
	b.OpenElement("li")
	b.AddText("two")
	b.CloseElement()
	b.CloseElement()

	frames, err := b.Frames()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		kind    Kind
		subtree int
	}{
		{KindElement, 6}, // itself, one attribute, two li subtrees
		{KindAttribute, 1},
		{KindElement, 2},
		{KindText, 1},
		{KindElement, 2},
		{KindText, 1},
	}
	if len(frames) != 6 {
		t.Fatalf("got %d frames, want 6: %v", len(frames), frames)
	}
	for i, w := range want {
		if frames[i].Kind != w.kind {
			t.Errorf("frame %d kind = %v, want %v", i, frames[i].Kind, w.kind)
		}
		if frames[i].SubtreeLength != w.subtree {
			t.Errorf("frame %d subtree = %d, want %d", i, frames[i].SubtreeLength, w.subtree)
		}
	}
}

func TestBuilderAttributeAfterContentPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		var be *BuildError
		if err, ok := r.(error); !ok || !errors.As(err, &be) {
			t.Fatalf("expected *BuildError, got %T", r)
		}
		if be.Op != "AddAttribute" {
			t.Errorf("Op = %q, want AddAttribute", be.Op)
		}
	}()

	b := NewBuilder()
	b.OpenElement("div")
	b.AddText("content")
	b.AddAttribute("id", "late")
}

func TestBuilderCloseWithoutOpenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewBuilder().CloseElement()
}

func TestBuilderUnclosedElement(t *testing.T) {
	b := NewBuilder()
	b.OpenElement("section")
	b.AddText("x")

	_, err := b.Frames()
	if !errors.Is(err, ErrUnclosedElement) {
		t.Fatalf("err = %v, want ErrUnclosedElement", err)
	}
}

func TestBuilderComponentFrame(t *testing.T) {
	b := NewBuilder()
	b.AddComponent("card", Static(func(b *Builder) {}), Params{"title": "x"})

	frames, err := b.Frames()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := frames[0]
	if f.Kind != KindComponent || f.Key != "card" || f.ComponentID != -1 {
		t.Errorf("unexpected component frame: %+v", f)
	}
	if f.Params.String("title") != "x" {
		t.Errorf("params not kept: %v", f.Params)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindElement, "Element"},
		{KindAttribute, "Attribute"},
		{KindText, "Text"},
		{KindComponent, "Component"},
		{KindMarkup, "Markup"},
		{Kind(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
