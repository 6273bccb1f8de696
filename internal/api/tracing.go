// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// tracing wraps the router with OpenTelemetry HTTP instrumentation. Health
// checks and HLS file polling are not traced. Spans are renamed to the chi
// route pattern once routing has resolved it.
func tracing(serviceName, hlsPrefix string) func(http.Handler) http.Handler {
	skip := func(r *http.Request) bool {
		switch r.URL.Path {
		case "/healthz", "/readyz":
			return true
		}
		return hlsPrefix != "" && strings.HasPrefix(r.URL.Path, hlsPrefix+"/")
	}
	return func(next http.Handler) http.Handler {
		named := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					trace.SpanFromContext(r.Context()).SetName(r.Method + " " + p)
				}
			}
		})
		return otelhttp.NewHandler(
			named,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithSpanOptions(trace.WithAttributes(semconv.ServiceName(serviceName))),
			otelhttp.WithFilter(func(r *http.Request) bool { return !skip(r) }),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}
