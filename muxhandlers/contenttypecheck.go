package muxhandlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/vitalvas/waypoint/mux"
)

// ErrNoAllowedTypes is returned when ContentTypeCheckConfig.AllowedTypes is
// empty.
var ErrNoAllowedTypes = errors.New("content type check: at least one allowed content type is required")

// ContentTypeCheckConfig configures ContentTypeCheckMiddleware.
type ContentTypeCheckConfig struct {
	// AllowedTypes are media types without parameters, compared
	// case-insensitively.
	AllowedTypes []string

	// Methods whose bodies are checked. Defaults to POST, PUT and PATCH.
	Methods []string
}

// ContentTypeCheckMiddleware answers 415 Unsupported Media Type when a
// checked request carries no Content-Type or one outside AllowedTypes.
func ContentTypeCheckMiddleware(cfg ContentTypeCheckConfig) (mux.MiddlewareFunc, error) {
	if len(cfg.AllowedTypes) == 0 {
		return nil, ErrNoAllowedTypes
	}

	methods := cfg.Methods
	if methods == nil {
		methods = []string{http.MethodPost, http.MethodPut, http.MethodPatch}
	}
	checked := make(map[string]bool, len(methods))
	for _, m := range methods {
		checked[m] = true
	}
	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checked[r.Method] {
				mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
				if err != nil || !allowed[strings.ToLower(mediaType)] {
					status := http.StatusUnsupportedMediaType
					http.Error(w, http.StatusText(status), status)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// ContentTypeCheckFactory takes the allowed types from the route
// parameters: "content_type:application/json,application/xml".
func ContentTypeCheckFactory() mux.MiddlewareFactory {
	return func(params []string) (mux.MiddlewareFunc, error) {
		return ContentTypeCheckMiddleware(ContentTypeCheckConfig{AllowedTypes: params})
	}
}
