package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-stream/internal/config"
	"github.com/vango-dev/vango-stream/internal/errors"
	"github.com/vango-dev/vango-stream/pkg/component"
	"github.com/vango-dev/vango-stream/pkg/middleware"
	"github.com/vango-dev/vango-stream/pkg/server"
	"github.com/vango-dev/vango-stream/pkg/stream"
)

type serveOptions struct {
	port    int
	host    string
	mode    string
	metrics bool
	tracing bool
}

func serveCmd(g *globalFlags) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the streaming HTTP server",
		Long: `Start the HTTP server.

Routes:
  /render/{component}   HTML response, streamed or static
  /ws/{component}       the same stream over a WebSocket
  /healthz              liveness probe
  /metrics              Prometheus metrics (when enabled)

Query parameters other than "mode" are passed to the component.

Examples:
  vango-stream serve
  vango-stream serve --port=9000 --mode=static
  vango-stream serve --metrics --tracing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, newLogger(cfg, stderr))
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Default render mode: streaming, static")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Expose Prometheus metrics")
	cmd.Flags().BoolVar(&opts.tracing, "tracing", false, "Trace requests with OpenTelemetry")

	return cmd
}

// apply overrides cfg with the flags that were set.
func (o *serveOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	if o.port > 0 {
		cfg.Server.Port = o.port
	}
	if o.host != "" {
		cfg.Server.Host = o.host
	}
	if o.mode != "" {
		mode, err := component.ParseMode(o.mode)
		if err != nil {
			return errors.New(errors.ErrConfigMode).Wrap(err)
		}
		cfg.Stream.Mode = mode.String()
	}
	if cmd.Flags().Changed("metrics") {
		cfg.Metrics.Enabled = o.metrics
	}
	if cmd.Flags().Changed("tracing") {
		cfg.Tracing.Enabled = o.tracing
	}
	return cfg.Validate()
}

// newHandler assembles the HTTP handler described by cfg.
func newHandler(cfg *config.Config, logger *slog.Logger, metricsOpts ...middleware.MetricsOption) (http.Handler, error) {
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	mode, err := component.ParseMode(cfg.Stream.Mode)
	if err != nil {
		return nil, errors.New(errors.ErrConfigMode).Wrap(err)
	}

	hc := stream.DefaultHandlerConfig()
	hc.Registry = reg
	hc.DefaultMode = mode
	hc.Logger = logger
	hc.Renderer = &server.Config{
		DispatchQueue: cfg.Stream.DispatchQueue,
		Logger:        logger,
	}
	hc.Stream = &stream.Config{
		Logger:   logger,
		Document: document(cfg),
	}
	hc.CheckOrigin = originCheck(cfg.Server.AllowedOrigins)
	hc.TrustedProxies = cfg.Server.TrustedProxies
	hc.WriteTimeout = cfg.WriteTimeout()

	if cfg.Tracing.Enabled {
		hc.Middleware = append(hc.Middleware, middleware.Tracing(
			middleware.WithTracerName(cfg.Tracing.TracerName),
			middleware.WithRequestFilter(func(r *http.Request) bool {
				return r.URL.Path != "/healthz"
			}),
		))
	}
	if d := cfg.StreamTimeout(); d > 0 {
		hc.Middleware = append(hc.Middleware, streamTimeout(d))
	}
	if cfg.Metrics.Enabled {
		opts := append([]middleware.MetricsOption{middleware.WithNamespace(cfg.Metrics.Namespace)}, metricsOpts...)
		m := middleware.NewMetrics(opts...)
		hc.Stream.Observer = m
		hc.Metrics = m.Handler()
		hc.MetricsPath = cfg.Metrics.Path
	}
	return stream.NewHandler(hc), nil
}

// streamTimeout bounds each request's context.
func streamTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	handler, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return errors.New(errors.ErrConfigPort).Wrap(err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	printBanner()
	info("Listening on http://%s", ln.Addr())
	info("Default mode: %s", cfg.Stream.Mode)
	if cfg.Metrics.Enabled {
		info("Metrics at %s", cfg.Metrics.Path)
	}
	if cfg.Tracing.Enabled {
		info("Tracing as %q", cfg.Tracing.TracerName)
	}
	fmt.Println()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("\n  Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		warn("Shutdown incomplete: %v", err)
		return srv.Close()
	}
	logger.Info("server stopped")
	return nil
}
