package future

import "golang.org/x/sync/errgroup"

// Join returns a Future that completes once every given Future has
// completed. It fails with the first observed failure but still waits for
// the remaining participants. nil entries are ignored.
//
// Join of no futures is already complete. When every participant is
// already resolved the result is resolved before Join returns.
func Join(futures ...*Future) *Future {
	pending := make([]*Future, 0, len(futures))
	for _, f := range futures {
		if f != nil {
			pending = append(pending, f)
		}
	}

	switch len(pending) {
	case 0:
		return Completed()
	case 1:
		return pending[0]
	}

	if allDone(pending) {
		for _, f := range pending {
			if f.err != nil {
				return Failed(f.err)
			}
		}
		return Completed()
	}

	joined, resolve := New()

	// No derived context: a failure must not cancel the other participants.
	var g errgroup.Group
	for _, f := range pending {
		g.Go(func() error {
			<-f.done
			return f.err
		})
	}
	go func() {
		resolve(g.Wait())
	}()

	return joined
}

func allDone(futures []*Future) bool {
	for _, f := range futures {
		if !f.IsDone() {
			return false
		}
	}
	return true
}
