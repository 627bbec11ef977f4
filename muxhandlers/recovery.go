package muxhandlers

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/vitalvas/waypoint/mux"
)

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// Logger receives one error event per recovered panic. Defaults to a
	// disabled logger.
	Logger *zerolog.Logger

	// Stack adds the goroutine stack to the log event.
	Stack bool
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers. The panic is logged with the matched route and the
// client receives 500 Internal Server Error. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
func RecoveryMiddleware(cfg RecoveryConfig) mux.MiddlewareFunc {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rec)
				}

				event := logger.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("panic", fmt.Sprint(rec))
				if route := mux.CurrentRoute(r); route != nil {
					event = event.Str("route", route.Name()).Str("action", route.Action())
				}
				if cfg.Stack {
					event = event.Bytes("stack", debug.Stack())
				}
				event.Msg("handler panicked")

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
