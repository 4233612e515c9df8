// Package frame defines the render frame model shared by the renderer and
// the materializer.
//
// A component renders by appending frames to a Builder. Frames form a flat,
// ordered slice: an element frame is followed by its attribute frames and
// then by its content, and records the length of that whole subtree so
// consumers can skip or recurse without a tree of pointers.
//
//	func (c *Greeting) Render(b *frame.Builder) {
//	    b.OpenElement("p")
//	    b.AddAttribute("class", "greeting")
//	    b.AddText("Hello, " + c.Name)
//	    b.CloseElement()
//	}
//
// Child components are referenced with OpenComponent. The renderer resolves
// each reference to a component id after the render pass, matching children
// across re-renders by key.
package frame
