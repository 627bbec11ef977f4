package muxhandlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vitalvas/waypoint/mux"
)

// DefaultRequestIDHeader carries the request ID when RequestIDConfig.HeaderName
// is empty.
const DefaultRequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the ID stored by RequestIDMiddleware, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDConfig configures RequestIDMiddleware.
type RequestIDConfig struct {
	// HeaderName defaults to DefaultRequestIDHeader.
	HeaderName string

	// GenerateFunc mints an ID when none is reused. Defaults to
	// GenerateUUIDv7. An empty result leaves the request without an ID.
	GenerateFunc func(r *http.Request) string

	// TrustIncoming reuses the ID sent by the client.
	TrustIncoming bool

	// Logger is attached to the request context with request_id and, when
	// the request was matched, route fields. Handlers read it with
	// zerolog.Ctx.
	Logger *zerolog.Logger
}

// RequestIDMiddleware tags each request with an ID, echoing it on the request
// header, the response header and the request context.
func RequestIDMiddleware(cfg RequestIDConfig) mux.MiddlewareFunc {
	header := cfg.HeaderName
	if header == "" {
		header = DefaultRequestIDHeader
	}
	if cfg.GenerateFunc == nil {
		cfg.GenerateFunc = GenerateUUIDv7
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cfg.TrustIncoming {
				id = r.Header.Get(header)
			}
			if id == "" {
				id = cfg.GenerateFunc(r)
			}
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			r.Header.Set(header, id)
			w.Header().Set(header, id)
			next.ServeHTTP(w, r.WithContext(withRequestID(r, id, cfg.Logger)))
		})
	}
}

func withRequestID(r *http.Request, id string, logger *zerolog.Logger) context.Context {
	ctx := context.WithValue(r.Context(), requestIDKey{}, id)
	if logger == nil {
		return ctx
	}

	lc := logger.With().Str("request_id", id)
	if route := mux.CurrentRoute(r); route != nil {
		lc = lc.Str("route", route.Name()).Str("action", route.Action())
	}
	l := lc.Logger()
	return l.WithContext(ctx)
}

// GenerateUUIDv4 returns a random UUID (RFC 9562 section 5.4).
func GenerateUUIDv4(_ *http.Request) string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a time-ordered UUID (RFC 9562 section 5.7); later
// IDs sort after earlier ones.
func GenerateUUIDv7(_ *http.Request) string {
	return uuid.Must(uuid.NewV7()).String()
}
