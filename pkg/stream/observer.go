package stream

import "time"

// Status values reported to Observer.StreamFinished.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

// Observer receives stream lifecycle callbacks. Implementations must be safe
// for concurrent use; callbacks for one stream may arrive from different
// goroutines.
type Observer interface {
	StreamStarted(mode string)
	FirstFlush(mode string, elapsed time.Duration)
	FragmentWritten(bytes int)
	StreamFinished(mode, status string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) StreamStarted(string) {}
func (nopObserver) FirstFlush(string, time.Duration) {}
func (nopObserver) FragmentWritten(int) {}
func (nopObserver) StreamFinished(string, string, time.Duration) {}
