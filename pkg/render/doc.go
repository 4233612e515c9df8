// Package render serializes component frames into HTML.
//
// A Materializer reads frames through a FrameSource, which is normally the
// renderer's component arena, and writes markup:
//
//   - Elements are written with their attributes and children. Void
//     elements (input, br, img, ...) never get a closing tag.
//   - Attributes with a false or nil value are omitted, true renders the
//     name alone, and anything else renders as name="escaped value".
//   - Text is escaped. Markup frames are written verbatim.
//   - Child components are resolved through the FrameSource at write time,
//     so the output always reflects their current frames.
//
// # Basic Usage
//
//	m := render.New(source, render.Options{})
//	html, err := m.MaterializeToString(componentID)
//
// # Component Boundaries
//
// With Options.Boundaries set, every child component's output is wrapped
// in comment markers so a streamed replacement can locate it:
//
//	<!--vango:7-->...<!--/vango:7-->
//
// # Security
//
// Text and attribute values are always escaped. Markup frames bypass
// escaping and must only carry trusted content.
package render
