// Package server provides the offline component renderer used for streaming
// server-side rendering.
//
// A Renderer owns an arena of mounted components and a single dispatcher
// goroutine. Every mutation of the arena happens on the dispatcher; callers on
// other goroutines marshal work onto it with Dispatch or Invoke.
//
// # Roots and Quiescence
//
// BeginRender mounts a root component and runs its synchronous render pass.
// Components implementing frame.Loader continue asynchronously: Load runs off
// the dispatcher, its apply function runs on it, and the component renders
// again. A root is quiescent once no load remains outstanding anywhere in its
// subtree. Each root's future resolves at that point; the combined future
// returned by RegisterUpdateSubscriber resolves once every root registered so
// far is quiescent and fails if any of them fails.
//
// # Update Batches
//
// Every render pass after the first produces a batch of updated components.
// The batch is handed to the single update subscriber, one Handle per
// component, before the load that caused it counts as finished. A root's
// future therefore never resolves before its last batch has been delivered.
//
// # Example Usage
//
//	r := server.New(nil)
//	defer r.Close()
//
//	var done *future.Future
//	err := r.Invoke(ctx, func(ctx context.Context) error {
//	    h, err := r.RenderRoot(ctx, factory, nil)
//	    if err != nil {
//	        return err
//	    }
//	    if err := h.Materialize(ctx, w); err != nil {
//	        return err
//	    }
//	    done, err = r.RegisterUpdateSubscriber(ctx, func(ctx context.Context, h server.Handle) {
//	        h.Materialize(ctx, w)
//	    })
//	    return err
//	})
//	if err == nil {
//	    err = done.Wait(ctx)
//	}
//
// # Thread Safety
//
// All exported Renderer and Handle methods are safe for concurrent use. Code
// running on the dispatcher (components, the update subscriber, dispatched
// functions) may call them reentrantly with the context it was given.
package server
