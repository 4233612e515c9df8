package render

import "strings"

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// attrEscaper additionally escapes whitespace that could break attribute
// parsing.
var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\t", "&#9;",
)

// EscapeText escapes text for safe inclusion in HTML content.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// EscapeAttr escapes text for safe inclusion in a double-quoted HTML
// attribute value.
func EscapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
