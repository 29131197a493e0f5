package telemetry

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TracingMiddleware creates a server span per request, continuing any
// incoming W3C trace context. Requests for excludedPaths are not traced.
// Without an installed provider the global no-op tracer is used.
func TracingMiddleware(serviceName string, excludedPaths ...string) func(http.Handler) http.Handler {
	excluded := make(map[string]bool, len(excludedPaths))
	for _, p := range excludedPaths {
		excluded[p] = true
	}
	opts := []otelhttp.Option{
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !excluded[r.URL.Path]
		}),
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	}
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName, opts...)
	}
}
