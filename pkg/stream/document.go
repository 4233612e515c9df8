package stream

import (
	"github.com/vango-dev/vango-stream/pkg/render"
)

// Document wraps the streamed markup in a complete HTML page.
type Document struct {
	Title string
	Lang  string // Default: "en"

	// Head is raw markup appended to <head>.
	Head string
}

// prefix returns everything up to and including <body>.
func (d *Document) prefix() string {
	if d == nil {
		return ""
	}
	lang := d.Lang
	if lang == "" {
		lang = "en"
	}
	s := "<!DOCTYPE html>\n<html lang=\"" + render.EscapeAttr(lang) + "\">\n<head>\n" +
		"<meta charset=\"utf-8\">\n" +
		"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n"
	if d.Title != "" {
		s += "<title>" + render.EscapeText(d.Title) + "</title>\n"
	}
	s += d.Head
	return s + "</head>\n<body>\n"
}

func (d *Document) suffix() string {
	if d == nil {
		return ""
	}
	return "\n</body>\n</html>\n"
}
