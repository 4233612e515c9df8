package frame

import "fmt"

// Kind is the frame type discriminator.
type Kind uint8

const (
	KindElement   Kind = iota + 1 // <div>, <input>, ...
	KindAttribute                 // name/value pair of the preceding element
	KindText                      // Escaped text content
	KindComponent                 // Reference to a child component
	KindMarkup                    // Raw markup, written verbatim
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindAttribute:
		return "Attribute"
	case KindText:
		return "Text"
	case KindComponent:
		return "Component"
	case KindMarkup:
		return "Markup"
	default:
		return "Unknown"
	}
}

// Frame is the smallest unit of rendered output.
type Frame struct {
	Kind Kind

	// Name is the element tag or the attribute name.
	Name string

	// Value is the attribute value. nil and false omit the attribute,
	// true renders the name alone.
	Value any

	// Text holds text content (KindText) or raw markup (KindMarkup).
	Text string

	// SubtreeLength is the number of frames covered by an element,
	// counting the element itself, its attributes and all descendants.
	// It is 1 for every other kind.
	SubtreeLength int

	// Key matches a component reference to an existing child instance
	// across re-renders. Empty keys match by position.
	Key string

	// Factory creates the child component (KindComponent).
	Factory Factory

	// Params are passed to the child on every render of the parent.
	Params Params

	// ComponentID is assigned by the renderer once the child exists.
	ComponentID int
}

// String returns a compact description used in logs and test failures.
func (f Frame) String() string {
	switch f.Kind {
	case KindElement:
		return fmt.Sprintf("<%s>[%d]", f.Name, f.SubtreeLength)
	case KindAttribute:
		return fmt.Sprintf("@%s=%v", f.Name, f.Value)
	case KindText:
		return fmt.Sprintf("%q", f.Text)
	case KindComponent:
		return fmt.Sprintf("component#%d(%s)", f.ComponentID, f.Key)
	case KindMarkup:
		return fmt.Sprintf("markup(%q)", f.Text)
	default:
		return "?"
	}
}
