package stream

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/vango-dev/vango-stream/pkg/component"
)

const fragmentClose = "</" + component.FragmentTag

// fragmentMarker matches opening and closing fragment tags in any case, as
// browsers compare tag names case-insensitively.
var fragmentMarker = regexp.MustCompile(`(?i)</?` + component.FragmentTag)

// escapeMarkers neutralizes fragment tags inside fragment content.
func escapeMarkers(markup string) string {
	return fragmentMarker.ReplaceAllStringFunc(markup, func(m string) string {
		return "&lt;" + m[1:]
	})
}

// appendFragment writes one framed fragment for a component to buf.
func appendFragment(buf *bytes.Buffer, componentID int, markup string) {
	buf.WriteString("<" + component.FragmentTag + ` component-id="`)
	buf.WriteString(strconv.Itoa(componentID))
	buf.WriteString(`">`)
	buf.WriteString(escapeMarkers(markup))
	buf.WriteString(fragmentClose + ">")
}

// Fragment returns the framed fragment for a component.
func Fragment(componentID int, markup string) string {
	var buf bytes.Buffer
	appendFragment(&buf, componentID, markup)
	return buf.String()
}
