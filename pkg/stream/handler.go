package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/vango-stream/pkg/component"
	"github.com/vango-dev/vango-stream/pkg/frame"
	"github.com/vango-dev/vango-stream/pkg/server"
)

// HandlerConfig configures the HTTP handler.
type HandlerConfig struct {
	// Registry resolves component names. Required.
	Registry *component.Registry

	// Renderer is the template for the per-request renderers.
	// Default: server.DefaultConfig().
	Renderer *server.Config

	// Stream configures each Streamer.
	// Default: DefaultConfig().
	Stream *Config

	// DefaultMode is used when a request has no mode parameter.
	// Default: component.ModeStreaming.
	DefaultMode component.RenderMode

	// Metrics is mounted at MetricsPath when set.
	Metrics http.Handler

	// MetricsPath is where Metrics is mounted.
	// Default: "/metrics".
	MetricsPath string

	// Middleware wraps every route, after panic recovery.
	Middleware []func(http.Handler) http.Handler

	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers
	// are believed when logging the client address.
	TrustedProxies []string

	// CheckOrigin validates WebSocket upgrade origins.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// WriteTimeout bounds each WebSocket message write.
	// Default: 10s.
	WriteTimeout time.Duration

	// Logger receives request diagnostics.
	// Default: slog.Default().
	Logger *slog.Logger
}

// DefaultHandlerConfig returns a HandlerConfig with sensible defaults.
func DefaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		Registry:     component.NewRegistry(),
		Renderer:     server.DefaultConfig(),
		Stream:       DefaultConfig(),
		DefaultMode:  component.ModeStreaming,
		MetricsPath:  "/metrics",
		CheckOrigin:  SameOriginCheck,
		WriteTimeout: 10 * time.Second,
		Logger:       slog.Default(),
	}
}

// Clone returns a copy of the HandlerConfig.
func (c *HandlerConfig) Clone() *HandlerConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Renderer = c.Renderer.Clone()
	clone.Stream = c.Stream.Clone()
	clone.Middleware = append([]func(http.Handler) http.Handler(nil), c.Middleware...)
	clone.TrustedProxies = append([]string(nil), c.TrustedProxies...)
	return &clone
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}

// ModeParam is the query parameter that selects the render mode.
const ModeParam = "mode"

type handler struct {
	config   *HandlerConfig
	logger   *slog.Logger
	proxies  *proxySet
	upgrader websocket.Upgrader
}

// NewHandler returns a chi router serving:
//
//	GET /healthz               liveness probe
//	GET /render/{component}    chunked HTML stream
//	GET /ws/{component}        one WebSocket text message per flush
//	GET /metrics               when HandlerConfig.Metrics is set
//
// Query values other than mode become string parameters of the component.
func NewHandler(cfg *HandlerConfig) http.Handler {
	cfg = cfg.Clone()
	if cfg == nil {
		cfg = DefaultHandlerConfig()
	}
	defaults := DefaultHandlerConfig()
	if cfg.Registry == nil {
		cfg.Registry = defaults.Registry
	}
	if cfg.Renderer == nil {
		cfg.Renderer = defaults.Renderer
	}
	if cfg.Stream == nil {
		cfg.Stream = defaults.Stream
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = defaults.MetricsPath
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = defaults.CheckOrigin
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}

	h := &handler{
		config:  cfg,
		logger:  cfg.Logger,
		proxies: newProxySet(cfg.TrustedProxies, cfg.Logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: cfg.CheckOrigin,
		},
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	for _, mw := range cfg.Middleware {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Get("/render/{component}", h.serveRender)
	r.Get("/ws/{component}", h.serveWebSocket)
	if cfg.Metrics != nil {
		r.Handle(cfg.MetricsPath, cfg.Metrics)
	}
	return r
}

// resolve builds the stream request for r.
func (h *handler) resolve(r *http.Request) (Request, int, error) {
	name := chi.URLParam(r, "component")
	factory, ok := h.config.Registry.Lookup(name)
	if !ok {
		return Request{}, http.StatusNotFound, ErrUnknownComponent
	}

	query := r.URL.Query()
	mode := h.config.DefaultMode
	if v := query.Get(ModeParam); v != "" {
		m, err := component.ParseMode(v)
		if err != nil {
			return Request{}, http.StatusBadRequest, err
		}
		mode = m
	}

	params := make(frame.Params, len(query))
	for key, values := range query {
		if key == ModeParam || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}

	return Request{
		ID:      uuid.NewString(),
		Name:    name,
		Factory: factory,
		Params:  params,
		Mode:    mode,
	}, http.StatusOK, nil
}

// newRenderer creates the private renderer of one stream.
func (h *handler) newRenderer(req Request, logger *slog.Logger) *server.Renderer {
	cfg := h.config.Renderer.Clone()
	cfg.Logger = logger
	cfg.Materialize.Boundaries = req.Mode == component.ModeStreaming
	return server.New(cfg)
}

func (h *handler) serveRender(w http.ResponseWriter, r *http.Request) {
	req, status, err := h.resolve(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	client := h.logger.With("client_ip", clientIP(r, h.proxies))
	logger := client.With("stream_id", req.ID)

	renderer := h.newRenderer(req, logger)
	defer renderer.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Stream-Id", req.ID)

	cfg := h.config.Stream.Clone()
	cfg.Logger = client
	sink := NewHTTPSink(w)
	err = New(cfg).Stream(r.Context(), renderer, sink, req)
	if err == nil {
		return
	}
	if !sink.Written() {
		logger.Error("render failed", "component", req.Name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	// Headers are gone; the stream just ends.
	logger.Warn("stream aborted", "component", req.Name, "error", err)
}

func (h *handler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	req, status, err := h.resolve(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	client := h.logger.With("client_ip", clientIP(r, h.proxies))
	logger := client.With("stream_id", req.ID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The stream is one-way; reading only processes control frames and
	// notices the peer going away.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	renderer := h.newRenderer(req, logger)
	defer renderer.Close()

	cfg := h.config.Stream.Clone()
	cfg.Logger = client
	sink := NewWebSocketSink(conn, h.config.WriteTimeout)
	err = New(cfg).Stream(ctx, renderer, sink, req)

	code, reason := websocket.CloseNormalClosure, ""
	if err != nil {
		code, reason = websocket.CloseInternalServerErr, "render failed"
		if errors.Is(err, context.Canceled) {
			code = websocket.CloseGoingAway
		}
	}
	if cerr := sink.Close(code, reason); cerr != nil {
		logger.Debug("websocket close failed", "error", cerr)
	}
}
