package muxhandlers

import (
	"net/http"

	"github.com/vitalvas/waypoint/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vitalvas/waypoint/muxhandlers"

// TracingConfig configures the Tracing middleware behaviour.
type TracingConfig struct {
	// TracerProvider creates the tracer. Defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Propagator extracts the remote span context from request headers.
	// Defaults to the global propagator.
	Propagator propagation.TextMapPropagator
}

// TracingMiddleware returns a middleware that starts a server span per
// request. The span is named after the method and the matched route URI,
// and carries the route name and action. Responses with a 5xx status mark
// the span as failed.
//
// Register it as route middleware: the matched route is only known inside
// the route pipeline.
func TracingMiddleware(cfg TracingConfig) mux.MiddlewareFunc {
	provider := cfg.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	propagator := cfg.Propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	tracer := provider.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			name := r.Method
			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			}
			if r.Host != "" {
				attrs = append(attrs, attribute.String("server.address", r.Host))
			}
			if route := mux.CurrentRoute(r); route != nil {
				name += " " + route.URI()
				attrs = append(attrs,
					attribute.String("http.route", route.URI()),
					attribute.String("waypoint.route.action", route.Action()),
				)
				if route.Name() != "" {
					attrs = append(attrs, attribute.String("waypoint.route.name", route.Name()))
				}
			}

			ctx, span := tracer.Start(ctx, name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
