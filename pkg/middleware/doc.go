// Package middleware provides observability for vango-stream servers.
//
// This package includes:
//   - Prometheus stream metrics, fed through the stream.Observer hooks
//   - OpenTelemetry HTTP tracing middleware
//
// # Prometheus Metrics
//
//	metrics := middleware.NewMetrics(middleware.WithNamespace("myapp"))
//
//	cfg := stream.DefaultHandlerConfig()
//	cfg.Stream.Observer = metrics
//	cfg.Metrics = metrics.Handler()
//
// # OpenTelemetry Tracing
//
//	cfg.Middleware = append(cfg.Middleware, middleware.Tracing(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// Spans are named after the matched chi route pattern. The streamer adds a
// span event for every state transition of the stream.
package middleware
