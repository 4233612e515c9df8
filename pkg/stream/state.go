package stream

// State is the lifecycle position of a stream.
type State uint8

const (
	// StateInit is the state before the first write.
	StateInit State = iota

	// StateSyncFlushed means the first paint has been flushed.
	StateSyncFlushed

	// StateStreaming means at least one fragment has been flushed.
	StateStreaming

	// StateQuiesced means the page finished and all output was flushed.
	StateQuiesced

	// StateFailed means the stream ended with an error.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSyncFlushed:
		return "sync_flushed"
	case StateStreaming:
		return "streaming"
	case StateQuiesced:
		return "quiesced"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateQuiesced || s == StateFailed
}
