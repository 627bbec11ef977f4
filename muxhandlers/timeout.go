package muxhandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vitalvas/waypoint/mux"
)

// ErrInvalidTimeout is returned when TimeoutConfig.Duration is not greater
// than zero.
var ErrInvalidTimeout = errors.New("timeout: duration must be greater than zero")

// TimeoutConfig configures the Timeout middleware behaviour.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for the handler to complete.
	// Must be greater than zero.
	Duration time.Duration

	// Message is the response body returned when the handler times out.
	// When empty, the standard library default is used.
	Message string
}

// TimeoutMiddleware returns a middleware that limits handler execution time.
// It wraps the handler with http.TimeoutHandler, which returns 503 Service
// Unavailable when the handler does not complete within the configured
// duration.
//
// It returns ErrInvalidTimeout if Duration is not greater than zero.
func TimeoutMiddleware(cfg TimeoutConfig) (mux.MiddlewareFunc, error) {
	if cfg.Duration <= 0 {
		return nil, ErrInvalidTimeout
	}

	duration := cfg.Duration
	message := cfg.Message

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, duration, message)
	}, nil
}

// TimeoutFactory builds the timeout middleware from route parameters, so
// routes can declare "timeout:5s" or "timeout:30" (seconds). Without a
// parameter def is used.
func TimeoutFactory(def time.Duration) mux.MiddlewareFactory {
	return func(params []string) (mux.MiddlewareFunc, error) {
		d := def
		if len(params) > 0 && params[0] != "" {
			var err error
			if d, err = parseTimeout(params[0]); err != nil {
				return nil, err
			}
		}

		cfg := TimeoutConfig{Duration: d}
		if len(params) > 1 {
			cfg.Message = params[1]
		}
		return TimeoutMiddleware(cfg)
	}
}

func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("timeout: invalid duration %q: %w", v, err)
	}
	return d, nil
}
