package component

import (
	"fmt"
	"strings"
)

// RenderMode selects how a page is delivered.
type RenderMode uint8

const (
	// ModeStreaming flushes the first paint, then one fragment per update.
	ModeStreaming RenderMode = iota

	// ModeStatic waits for quiescence and writes the final markup once.
	ModeStatic
)

// String returns the string representation of the mode.
func (m RenderMode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	case ModeStatic:
		return "static"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name. The empty string is ModeStreaming.
func ParseMode(s string) (RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "streaming", "stream":
		return ModeStreaming, nil
	case "static", "prerender":
		return ModeStatic, nil
	default:
		return ModeStreaming, fmt.Errorf("component: unknown render mode %q", s)
	}
}
