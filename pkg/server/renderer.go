package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/vango-stream/pkg/frame"
	"github.com/vango-dev/vango-stream/pkg/future"
	"github.com/vango-dev/vango-stream/pkg/render"
)

// UpdateFunc receives every component of every update batch. It runs on the
// dispatcher; ctx may be used to materialize the handle inline.
type UpdateFunc func(ctx context.Context, h Handle)

var rendererSeq atomic.Uint64

// Renderer owns a component arena and the dispatcher that serializes all
// access to it.
type Renderer struct {
	id     uint64
	config *Config
	logger *slog.Logger

	dispatchCh chan func(ctx context.Context)
	done       chan struct{} // closed by Close
	stopped    chan struct{} // closed when the loop has exited
	closed     atomic.Bool
	closeOnce  sync.Once

	loopCtx context.Context

	// Owned by the dispatcher goroutine.
	nextID     int
	nodes      map[int]*node
	roots      []*root
	combined   *future.Future
	subscriber UpdateFunc
}

// root tracks quiescence of one BeginRender subtree.
type root struct {
	id      int
	future  *future.Future
	resolve future.Resolver
	pending int // outstanding Load calls in the subtree
}

// node is a component in the arena.
type node struct {
	id        int
	root      *root
	parent    *node
	component frame.Component
	frames    []frame.Frame
	children  map[string]*node
	version   int // render passes completed
	disposed  bool
}

// New creates a Renderer and starts its dispatcher.
func New(cfg *Config) *Renderer {
	cfg = cfg.withDefaults()
	id := rendererSeq.Add(1)

	r := &Renderer{
		id:         id,
		config:     cfg,
		logger:     cfg.Logger.With("renderer", id),
		dispatchCh: make(chan func(ctx context.Context), cfg.DispatchQueue),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		nodes:      make(map[int]*node),
	}
	r.loopCtx = context.WithValue(context.Background(), loopKey{}, r)

	go r.loop()
	return r
}

// Close stops the dispatcher. Roots that have not reached quiescence fail
// with ErrRendererClosed. Loads still running finish, but their results are
// discarded. Close does not wait; use Done for that.
func (r *Renderer) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.done)
	})
}

// Done returns a channel that is closed once the dispatcher has stopped.
func (r *Renderer) Done() <-chan struct{} {
	return r.stopped
}

// IsClosed reports whether Close has been called.
func (r *Renderer) IsClosed() bool {
	return r.closed.Load()
}

// Logger returns the renderer's logger.
func (r *Renderer) Logger() *slog.Logger {
	return r.logger
}

type beginResult struct {
	id     int
	future *future.Future
	err    error
}

// BeginRender instantiates a root component, assigns its id, and runs its
// synchronous render pass. Asynchronous loads continue in the background;
// the returned future resolves once the root's subtree is quiescent.
//
// If the synchronous pass faults, the fault is returned and the future is
// already failed with the same error.
//
// ctx only bounds the wait for the dispatcher to accept the task. Once the
// root has been queued BeginRender returns its real id and future, so they
// always agree with Quiescence.
func (r *Renderer) BeginRender(ctx context.Context, factory frame.Factory, params frame.Params) (int, *future.Future, error) {
	res, err := commit(r, ctx, func(ctx context.Context) (beginResult, error) {
		return r.beginRender(ctx, factory, params), nil
	})
	if err != nil {
		return -1, future.Failed(err), err
	}
	return res.id, res.future, res.err
}

// RenderRoot is BeginRender returning a Handle. On a synchronous fault the
// handle is still valid and its quiescence future is failed.
func (r *Renderer) RenderRoot(ctx context.Context, factory frame.Factory, params frame.Params) (Handle, error) {
	id, fut, err := r.BeginRender(ctx, factory, params)
	if id < 0 {
		return Handle{}, err
	}
	return Handle{renderer: r, id: id, quiescence: fut}, err
}

func (r *Renderer) beginRender(ctx context.Context, factory frame.Factory, params frame.Params) beginResult {
	fut, resolve := future.New()
	rt := &root{future: fut, resolve: resolve}
	n := r.allocate(rt, nil)
	rt.id = n.id

	r.roots = append(r.roots, rt)
	if r.combined == nil {
		r.combined = fut
	} else {
		r.combined = future.Join(r.combined, fut)
	}

	r.logger.Debug("begin render", "component_id", n.id)

	if err := r.mount(ctx, n, factory, params); err != nil {
		r.fail(rt, err)
		return beginResult{id: n.id, future: fut, err: err}
	}
	r.settle(rt)
	return beginResult{id: n.id, future: fut}
}

// RegisterUpdateSubscriber installs the single update subscriber and
// returns the combined quiescence future of every root registered so far.
// A second registration fails with ErrSubscriberRegistered.
func (r *Renderer) RegisterUpdateSubscriber(ctx context.Context, fn UpdateFunc) (*future.Future, error) {
	if fn == nil {
		return nil, ErrNilSubscriber
	}
	return call(r, ctx, func(ctx context.Context) (*future.Future, error) {
		if r.subscriber != nil {
			return nil, ErrSubscriberRegistered
		}
		r.subscriber = fn
		return r.combinedFuture(), nil
	})
}

// Quiescence returns the combined future of every root registered so far.
func (r *Renderer) Quiescence(ctx context.Context) (*future.Future, error) {
	return call(r, ctx, func(ctx context.Context) (*future.Future, error) {
		return r.combinedFuture(), nil
	})
}

func (r *Renderer) combinedFuture() *future.Future {
	if r.combined == nil {
		return future.Completed()
	}
	return r.combined
}

// UpdateDisplay delivers a batch to the subscriber, one handle per updated
// component in batch order, and acknowledges it. The acknowledgment is
// always AckSuppressed: output is offline, so post-display hooks never run.
func (r *Renderer) UpdateDisplay(ctx context.Context, batch Batch) Ack {
	ack, err := call(r, ctx, func(ctx context.Context) (Ack, error) {
		return r.updateDisplay(ctx, batch), nil
	})
	if err != nil {
		r.logger.Warn("update batch not delivered", "error", err)
		return AckSuppressed
	}
	return ack
}

func (r *Renderer) updateDisplay(ctx context.Context, batch Batch) Ack {
	for _, id := range batch.Updated {
		n, ok := r.nodes[id]
		if !ok || r.subscriber == nil {
			continue
		}
		h := Handle{renderer: r, id: id, quiescence: n.root.future}
		if err := protect(func() error {
			r.subscriber(ctx, h)
			return nil
		}); err != nil {
			r.logger.Error("update subscriber failed", "component_id", id, "error", err)
		}
	}
	return AckSuppressed
}

// acknowledge applies the engine-side effect of an Ack.
func (r *Renderer) acknowledge(batch Batch, ack Ack) {
	if ack != AckDelivered {
		return
	}
	for _, id := range batch.Updated {
		n, ok := r.nodes[id]
		if !ok {
			continue
		}
		if ar, ok := n.component.(frame.AfterRenderer); ok {
			first := n.version == 1
			if err := protect(func() error {
				ar.AfterRender(first)
				return nil
			}); err != nil {
				r.logger.Error("after render hook failed", "component_id", id, "error", err)
			}
		}
	}
}

// materialize writes a component's current markup. A component that no
// longer exists writes nothing.
func (r *Renderer) materialize(ctx context.Context, w io.Writer, id int) error {
	if r.closed.Load() {
		return ErrRendererClosed
	}
	return r.Invoke(ctx, func(ctx context.Context) error {
		if _, ok := r.nodes[id]; !ok {
			return nil
		}
		return render.New(frameSource{r}, r.config.Materialize).Materialize(w, id)
	})
}

// frameSource exposes the arena to the materializer. Only valid on the
// dispatcher.
type frameSource struct{ r *Renderer }

func (s frameSource) Frames(id int) ([]frame.Frame, bool) {
	n, ok := s.r.nodes[id]
	if !ok {
		return nil, false
	}
	return n.frames, true
}

// allocate assigns the next component id.
func (r *Renderer) allocate(rt *root, parent *node) *node {
	n := &node{
		id:     r.nextID,
		root:   rt,
		parent: parent,
	}
	r.nextID++
	r.nodes[n.id] = n
	return n
}

// mount instantiates a component, renders it for the first time and starts
// its asynchronous load, if any.
func (r *Renderer) mount(ctx context.Context, n *node, factory frame.Factory, params frame.Params) error {
	comp, err := instantiate(factory)
	if err != nil {
		return NewRenderError(n.id, "instantiate", err)
	}
	n.component = comp

	if err := r.setParameters(n, params); err != nil {
		return err
	}
	if err := r.renderNode(ctx, n, nil); err != nil {
		return err
	}
	if l, ok := comp.(frame.Loader); ok {
		r.startLoad(n, l)
	}
	return nil
}

func instantiate(factory frame.Factory) (frame.Component, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	var comp frame.Component
	if err := protect(func() error {
		comp = factory()
		return nil
	}); err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, ErrNilComponent
	}
	return comp, nil
}

func (r *Renderer) setParameters(n *node, params frame.Params) error {
	ps, ok := n.component.(frame.ParameterSetter)
	if !ok {
		return nil
	}
	if err := protect(func() error { return ps.SetParameters(params) }); err != nil {
		return NewRenderError(n.id, "set parameters", err)
	}
	return nil
}

// renderNode runs one render pass of n and reconciles its child components.
// Existing children that render again are appended to batch when non-nil.
func (r *Renderer) renderNode(ctx context.Context, n *node, batch *Batch) error {
	b := frame.NewBuilder()
	if err := protect(func() error {
		n.component.Render(b)
		return nil
	}); err != nil {
		return NewRenderError(n.id, "render", err)
	}
	frames, err := b.Frames()
	if err != nil {
		return NewRenderError(n.id, "render", err)
	}

	if err := r.reconcile(ctx, n, frames, batch); err != nil {
		return err
	}
	n.frames = frames
	n.version++
	return nil
}

// reconcile resolves the component frames of a new render pass to child
// nodes, reusing children by key and disposing the ones no longer rendered.
func (r *Renderer) reconcile(ctx context.Context, n *node, frames []frame.Frame, batch *Batch) error {
	var (
		next     map[string]*node
		created  []*node
		position int
	)

	rollback := func() {
		for _, c := range created {
			r.dispose(c)
		}
	}

	for i := range frames {
		f := &frames[i]
		if f.Kind != frame.KindComponent {
			continue
		}
		key := f.Key
		if key == "" {
			key = "#" + strconv.Itoa(position)
		}
		position++

		if next == nil {
			next = make(map[string]*node)
		}
		if _, dup := next[key]; dup {
			rollback()
			return NewRenderError(n.id, "render", fmt.Errorf("%w: %q", ErrDuplicateKey, key))
		}

		if child, ok := n.children[key]; ok {
			next[key] = child
			f.ComponentID = child.id
			if err := r.setParameters(child, f.Params); err != nil {
				rollback()
				return err
			}
			if batch != nil {
				batch.add(child.id)
			}
			if err := r.renderNode(ctx, child, batch); err != nil {
				rollback()
				return err
			}
			continue
		}

		child := r.allocate(n.root, n)
		next[key] = child
		created = append(created, child)
		f.ComponentID = child.id
		if err := r.mount(ctx, child, f.Factory, f.Params); err != nil {
			rollback()
			return err
		}
	}

	for key, old := range n.children {
		if next[key] != old {
			r.dispose(old)
		}
	}
	n.children = next
	return nil
}

// dispose removes a node and its descendants from the arena. Their ids are
// never reused.
func (r *Renderer) dispose(n *node) {
	if n.disposed {
		return
	}
	n.disposed = true
	delete(r.nodes, n.id)
	for _, c := range n.children {
		r.dispose(c)
	}
}

// startLoad runs a component's Load off the dispatcher and dispatches the
// result back.
func (r *Renderer) startLoad(n *node, l frame.Loader) {
	n.root.pending++
	id := n.id

	go func() {
		var apply func()
		err := protect(func() error {
			var err error
			apply, err = l.Load(r.config.BaseContext)
			return err
		})
		if !r.Dispatch(func(ctx context.Context) {
			r.completeLoad(ctx, n, apply, err)
		}) {
			r.logger.Debug("load finished after close", "component_id", id)
		}
	}()
}

// completeLoad applies a finished load, re-renders the component and
// delivers the resulting batch before counting the load as done.
func (r *Renderer) completeLoad(ctx context.Context, n *node, apply func(), loadErr error) {
	rt := n.root
	defer func() {
		rt.pending--
		r.settle(rt)
	}()

	if n.disposed {
		return
	}
	if loadErr != nil {
		r.fail(rt, NewRenderError(n.id, "load", loadErr))
		return
	}
	if apply != nil {
		if err := protect(func() error {
			apply()
			return nil
		}); err != nil {
			r.fail(rt, NewRenderError(n.id, "apply", err))
			return
		}
	}

	batch := Batch{Updated: []int{n.id}}
	if err := r.renderNode(ctx, n, &batch); err != nil {
		r.fail(rt, err)
		return
	}
	r.acknowledge(batch, r.updateDisplay(ctx, batch))
}

// settle resolves a root once nothing is pending in its subtree.
func (r *Renderer) settle(rt *root) {
	if rt.pending > 0 {
		return
	}
	if rt.resolve(nil) {
		r.logger.Debug("root quiescent", "component_id", rt.id)
	}
}

// fail resolves a root with err. Later failures are ignored.
func (r *Renderer) fail(rt *root, err error) {
	if rt.resolve(err) {
		r.logger.Error("root failed", "component_id", rt.id, "error", err)
	}
}

// failPending fails every unresolved root. Runs on the dispatcher as it exits.
func (r *Renderer) failPending() {
	for _, rt := range r.roots {
		if rt.resolve(ErrRendererClosed) {
			r.logger.Debug("root abandoned", "component_id", rt.id, "pending", rt.pending)
		}
	}
}
