package stream

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vango-stream/pkg/component"
	"github.com/vango-dev/vango-stream/pkg/frame"
	"github.com/vango-dev/vango-stream/pkg/future"
	"github.com/vango-dev/vango-stream/pkg/server"
)

// Config configures a Streamer.
type Config struct {
	// Logger receives stream diagnostics.
	// Default: slog.Default().
	Logger *slog.Logger

	// Observer receives lifecycle callbacks, typically metrics.
	// Default: no-op.
	Observer Observer

	// Document wraps the output in a full HTML page when set.
	Document *Document
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logger:   slog.Default(),
		Observer: nopObserver{},
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Document != nil {
		doc := *c.Document
		clone.Document = &doc
	}
	return &clone
}

func (c *Config) withDefaults() *Config {
	cfg := c.Clone()
	if cfg == nil {
		return DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return cfg
}

// Request describes the page to stream.
type Request struct {
	// ID identifies the stream in logs. Optional.
	ID string

	// Name is the registered component name, rendered as data-component.
	Name string

	Factory frame.Factory
	Params  frame.Params
	Mode    component.RenderMode
}

// Streamer writes one page to one sink. A Streamer is single-use.
type Streamer struct {
	config *Config
	logger *slog.Logger
	state  atomic.Uint32
	used   atomic.Bool

	sink  Sink
	span  trace.Span
	mode  string
	begin time.Time

	// mu serializes sink writes with shutdown.
	mu        sync.Mutex
	stopped   bool
	sinkErr   error
	failed    chan error
	fragments int
}

// New creates a Streamer.
func New(cfg *Config) *Streamer {
	cfg = cfg.withDefaults()
	return &Streamer{
		config: cfg,
		logger: cfg.Logger,
		failed: make(chan error, 1),
	}
}

// State returns the current state.
func (s *Streamer) State() State {
	return State(s.state.Load())
}

// Fragments returns the number of fragments written.
func (s *Streamer) Fragments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragments
}

// Stream renders req with r and writes it to sink. It returns once the page
// is quiescent and all output has been flushed, or on the first of: a
// synchronous render fault, an asynchronous fault, a sink error, or ctx
// being done.
//
// In streaming mode r should be configured with component boundaries so
// fragments can be placed by the client.
func (s *Streamer) Stream(ctx context.Context, r *server.Renderer, sink Sink, req Request) error {
	if !s.used.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if req.Factory == nil {
		return ErrNilFactory
	}

	s.sink = sink
	s.mode = req.Mode.String()
	s.span = trace.SpanFromContext(ctx)
	s.begin = time.Now()
	if req.ID != "" {
		s.logger = s.logger.With("stream_id", req.ID)
	}
	s.logger = s.logger.With("mode", s.mode, "component", req.Name)

	s.config.Observer.StreamStarted(s.mode)
	s.transition(StateInit)

	var err error
	if req.Mode == component.ModeStatic {
		err = s.streamStatic(ctx, r, req)
	} else {
		err = s.streamLive(ctx, r, req)
	}
	s.finish(err)
	return err
}

func hostParams(req Request) frame.Params {
	return component.HostParams{
		Mode:    req.Mode,
		Name:    req.Name,
		Factory: req.Factory,
		Params:  req.Params,
	}.Encode()
}

// streamLive flushes the first paint, then one fragment per update.
func (s *Streamer) streamLive(ctx context.Context, r *server.Renderer, req Request) error {
	var done *future.Future

	// Rendering, the first flush and the subscription share one dispatcher
	// turn, so no update can precede the first paint.
	err := r.Invoke(ctx, func(ctx context.Context) error {
		h, err := r.RenderRoot(ctx, component.NewHost, hostParams(req))
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		buf.WriteString(s.config.Document.prefix())
		if err := h.Materialize(ctx, &buf); err != nil {
			return err
		}
		if err := s.write(buf.Bytes()); err != nil {
			return err
		}
		s.config.Observer.FirstFlush(s.mode, time.Since(s.begin))
		s.transition(StateSyncFlushed)

		done, err = r.RegisterUpdateSubscriber(ctx, s.onUpdate)
		return err
	})
	if err != nil {
		return err
	}

	if err := s.wait(ctx, done); err != nil {
		return err
	}
	if suffix := s.config.Document.suffix(); suffix != "" {
		return s.write([]byte(suffix))
	}
	return nil
}

// streamStatic waits for quiescence and writes the final markup once.
func (s *Streamer) streamStatic(ctx context.Context, r *server.Renderer, req Request) error {
	h, err := r.RenderRoot(ctx, component.NewHost, hostParams(req))
	if err != nil {
		return err
	}
	done, err := r.Quiescence(ctx)
	if err != nil {
		return err
	}
	if err := s.wait(ctx, done); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(s.config.Document.prefix())
	if err := h.Materialize(ctx, &buf); err != nil {
		return err
	}
	buf.WriteString(s.config.Document.suffix())
	if err := s.write(buf.Bytes()); err != nil {
		return err
	}
	s.config.Observer.FirstFlush(s.mode, time.Since(s.begin))
	return nil
}

// onUpdate writes one fragment. It runs on the renderer's dispatcher.
func (s *Streamer) onUpdate(ctx context.Context, h server.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.sinkErr != nil {
		return
	}

	var markup bytes.Buffer
	if err := h.Materialize(ctx, &markup); err != nil {
		s.fail(err)
		return
	}

	var buf bytes.Buffer
	appendFragment(&buf, h.ComponentID(), markup.String())
	if err := s.writeLocked(buf.Bytes()); err != nil {
		s.logger.Warn("fragment write failed", "component_id", h.ComponentID(), "error", err)
		return
	}

	s.fragments++
	s.config.Observer.FragmentWritten(buf.Len())
	if s.State() == StateSyncFlushed {
		s.transition(StateStreaming)
	}
}

func (s *Streamer) wait(ctx context.Context, done *future.Future) error {
	select {
	case <-done.Done():
		s.mu.Lock()
		err := s.sinkErr
		s.mu.Unlock()
		if err != nil {
			return err
		}
		return done.Err()
	case err := <-s.failed:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Streamer) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(p)
}

// writeLocked writes and flushes p. The first sink error is sticky.
func (s *Streamer) writeLocked(p []byte) error {
	if s.sinkErr != nil {
		return s.sinkErr
	}
	if _, err := s.sink.Write(p); err != nil {
		s.fail(err)
		return err
	}
	if err := s.sink.Flush(); err != nil {
		s.fail(err)
		return err
	}
	return nil
}

// fail records a sink error. Called with mu held.
func (s *Streamer) fail(err error) {
	if s.sinkErr != nil {
		return
	}
	s.sinkErr = err
	select {
	case s.failed <- err:
	default:
	}
}

func (s *Streamer) transition(st State) {
	s.state.Store(uint32(st))
	s.span.AddEvent("stream.state", trace.WithAttributes(
		attribute.String("stream.state", st.String()),
		attribute.String("stream.mode", s.mode),
	))
	s.logger.Debug("stream state", "state", st.String())
}

// finish stops fragment delivery and reports the outcome.
func (s *Streamer) finish(err error) {
	s.mu.Lock()
	s.stopped = true
	fragments := s.fragments
	s.mu.Unlock()

	elapsed := time.Since(s.begin)
	if err == nil {
		s.transition(StateQuiesced)
		s.config.Observer.StreamFinished(s.mode, StatusOK, elapsed)
		s.logger.Info("stream complete", "fragments", fragments, "elapsed", elapsed)
		return
	}

	status := StatusError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = StatusCanceled
	}
	s.transition(StateFailed)
	s.span.RecordError(err)
	s.config.Observer.StreamFinished(s.mode, status, elapsed)
	s.logger.Warn("stream failed", "status", status, "fragments", fragments, "elapsed", elapsed, "error", err)
}

// Prerender renders req statically with a private renderer and returns the
// final markup.
func Prerender(ctx context.Context, cfg *Config, req Request) (string, error) {
	cfg = cfg.withDefaults()
	r := server.New(&server.Config{Logger: cfg.Logger})
	defer r.Close()

	req.Mode = component.ModeStatic
	var sink BufferSink
	if err := New(cfg).Stream(ctx, r, &sink, req); err != nil {
		return "", err
	}
	return sink.String(), nil
}
