// Package future provides single-resolution completion signals.
//
// A Future is resolved exactly once, either successfully (nil error) or with
// a failure. Later resolutions are ignored. Waiting on a Future blocks only
// the waiting goroutine.
//
// Join combines futures with join-all semantics: the result completes only
// after every participant has completed, and carries the first failure.
// A failing participant never cancels the others.
//
//	a, resolveA := future.New()
//	b, resolveB := future.New()
//	all := future.Join(a, b)
//
//	resolveA(nil)
//	resolveB(errors.New("boom"))
//	err := all.Wait(ctx) // "boom", returned once both are done
package future
