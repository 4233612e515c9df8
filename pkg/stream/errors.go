package stream

import "errors"

var (
	// ErrUnknownComponent is returned when a requested component name is
	// not registered.
	ErrUnknownComponent = errors.New("stream: unknown component")

	// ErrAlreadyStarted is returned when a Streamer is used twice.
	ErrAlreadyStarted = errors.New("stream: streamer already started")

	// ErrNilFactory is returned when a Request carries no factory.
	ErrNilFactory = errors.New("stream: request has no factory")
)
