package muxhandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/vitalvas/waypoint/mux"
)

// ErrInvalidMaxSize is returned when the body limit is not greater than
// zero or cannot be parsed.
var ErrInvalidMaxSize = errors.New("request size limit: max size must be greater than zero")

// RequestSizeLimitConfig configures RequestSizeLimitMiddleware.
type RequestSizeLimitConfig struct {
	MaxBytes int64
}

// RequestSizeLimitMiddleware rejects bodies larger than MaxBytes. A declared
// Content-Length over the limit is answered with 413 before the handler
// runs; other bodies are wrapped with http.MaxBytesReader so reads past the
// limit fail.
func RequestSizeLimitMiddleware(cfg RequestSizeLimitConfig) (mux.MiddlewareFunc, error) {
	if cfg.MaxBytes <= 0 {
		return nil, ErrInvalidMaxSize
	}
	limit := cfg.MaxBytes

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				status := http.StatusRequestEntityTooLarge
				http.Error(w, http.StatusText(status), status)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}, nil
}

// RequestSizeLimitFactory reads the limit from the route parameter, a byte
// count with an optional K, M or G suffix: "size:512K". Without a
// parameter def applies.
func RequestSizeLimitFactory(def int64) mux.MiddlewareFactory {
	return func(params []string) (mux.MiddlewareFunc, error) {
		limit := def
		if len(params) > 0 {
			var err error
			if limit, err = parseByteSize(params[0]); err != nil {
				return nil, err
			}
		}
		return RequestSizeLimitMiddleware(RequestSizeLimitConfig{MaxBytes: limit})
	}
}

func parseByteSize(v string) (int64, error) {
	v = strings.ToUpper(strings.TrimSpace(v))

	shift := 0
	switch {
	case strings.HasSuffix(v, "K"):
		shift = 10
	case strings.HasSuffix(v, "M"):
		shift = 20
	case strings.HasSuffix(v, "G"):
		shift = 30
	}
	if shift > 0 {
		v = v[:len(v)-1]
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxSize, v)
	}
	return n << shift, nil
}
