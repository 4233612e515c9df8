package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/vango-dev/vango-stream/pkg/frame"
)

// ErrComponentNotFound is returned when a component frame references an id
// the FrameSource does not know.
var ErrComponentNotFound = errors.New("render: component not found")

// FrameSource provides the current frames of a component.
type FrameSource interface {
	Frames(componentID int) ([]frame.Frame, bool)
}

// Options configures a Materializer.
type Options struct {
	// Boundaries wraps each child component's output in
	// <!--vango:ID--> and <!--/vango:ID--> comments.
	Boundaries bool
}

// Materializer writes the markup of a component and its descendants.
type Materializer struct {
	source FrameSource
	opts   Options
}

// New creates a Materializer reading frames from source.
func New(source FrameSource, opts Options) *Materializer {
	return &Materializer{source: source, opts: opts}
}

// Materialize writes the current markup of a component to w.
func (m *Materializer) Materialize(w io.Writer, componentID int) error {
	frames, ok := m.source.Frames(componentID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrComponentNotFound, componentID)
	}
	return m.writeFrames(w, frames)
}

// MaterializeToString returns the current markup of a component.
func (m *Materializer) MaterializeToString(componentID int) (string, error) {
	var buf bytes.Buffer
	if err := m.Materialize(&buf, componentID); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *Materializer) writeFrames(w io.Writer, frames []frame.Frame) error {
	for i := 0; i < len(frames); {
		f := frames[i]
		n := f.SubtreeLength
		if n < 1 {
			n = 1
		}
		if i+n > len(frames) {
			return fmt.Errorf("render: frame %d subtree overruns sequence (%d > %d)", i, i+n, len(frames))
		}

		var err error
		switch f.Kind {
		case frame.KindElement:
			err = m.writeElement(w, frames[i:i+n])
		case frame.KindText:
			_, err = io.WriteString(w, EscapeText(f.Text))
		case frame.KindMarkup:
			_, err = io.WriteString(w, f.Text)
		case frame.KindComponent:
			err = m.writeComponent(w, f.ComponentID)
		case frame.KindAttribute:
			err = fmt.Errorf("render: attribute %q outside of an element", f.Name)
		default:
			err = fmt.Errorf("render: unknown frame kind: %d", f.Kind)
		}
		if err != nil {
			return err
		}
		i += n
	}
	return nil
}

// writeElement writes an element; subtree starts with the element frame.
func (m *Materializer) writeElement(w io.Writer, subtree []frame.Frame) error {
	tag := subtree[0].Name

	if _, err := io.WriteString(w, "<"+tag); err != nil {
		return err
	}

	i := 1
	for ; i < len(subtree) && subtree[i].Kind == frame.KindAttribute; i++ {
		if err := writeAttribute(w, subtree[i]); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	// Void elements are never closed; content under them is dropped.
	if IsVoidElement(tag) {
		return nil
	}

	if err := m.writeFrames(w, subtree[i:]); err != nil {
		return err
	}

	_, err := io.WriteString(w, "</"+tag+">")
	return err
}

func (m *Materializer) writeComponent(w io.Writer, id int) error {
	frames, ok := m.source.Frames(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrComponentNotFound, id)
	}

	if !m.opts.Boundaries {
		return m.writeFrames(w, frames)
	}

	if _, err := fmt.Fprintf(w, "<!--vango:%d-->", id); err != nil {
		return err
	}
	if err := m.writeFrames(w, frames); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "<!--/vango:%d-->", id)
	return err
}

// writeAttribute writes a single attribute. false and nil values are
// omitted; true renders the bare name.
func writeAttribute(w io.Writer, f frame.Frame) error {
	switch v := f.Value.(type) {
	case nil:
		return nil
	case bool:
		if !v {
			return nil
		}
		_, err := io.WriteString(w, " "+f.Name)
		return err
	}

	_, err := io.WriteString(w, " "+f.Name+`="`+EscapeAttr(attrToString(f.Value))+`"`)
	return err
}

// attrToString converts an attribute value to a string.
func attrToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
