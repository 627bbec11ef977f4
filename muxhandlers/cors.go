package muxhandlers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/waypoint/mux"
)

// ErrWildcardCredentials is returned when AllowedOrigins contains "*" and
// AllowCredentials is true. Use AllowOriginFunc for dynamic origin checks
// with credentials.
var ErrWildcardCredentials = errors.New("cors: wildcard origin cannot be used with credentials")

// ErrInvalidOriginPattern is returned for an origin pattern with more than
// one wildcard.
var ErrInvalidOriginPattern = errors.New("cors: origin pattern may contain one wildcard")

// CORSConfig configures CORSMiddleware.
//
// Protocol: https://fetch.spec.whatwg.org/#http-cors-protocol
type CORSConfig struct {
	// AllowedOrigins holds exact origins, "*", or one-wildcard patterns
	// such as "https://*.example.com". Matching is case-insensitive.
	AllowedOrigins []string

	// AllowOriginFunc is consulted when no entry of AllowedOrigins matches.
	AllowOriginFunc func(origin string) bool

	// AllowedMethods is advertised to preflights. When empty the methods
	// are discovered through Router, or from the matched route.
	AllowedMethods []string

	// AllowedHeaders is advertised to preflights. When empty, or "*", the
	// requested headers are echoed.
	AllowedHeaders []string

	ExposeHeaders []string

	AllowCredentials bool

	// MaxAge in seconds. Negative sends 0, zero omits the header.
	MaxAge int

	// Router discovers the methods of a path before it is matched. Set it
	// when the middleware is installed with Router.Use.
	Router *mux.Router
}

// originMatcher holds the lowercased origins split into exact values and
// prefix/suffix patterns.
type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	patterns [][2]string
	fn       func(string) bool
}

func newOriginMatcher(cfg CORSConfig) (*originMatcher, error) {
	m := &originMatcher{exact: make(map[string]struct{}), fn: cfg.AllowOriginFunc}

	for _, o := range cfg.AllowedOrigins {
		o = strings.ToLower(o)
		if o == "*" {
			m.any = true
			continue
		}

		prefix, suffix, wild := strings.Cut(o, "*")
		switch {
		case !wild:
			m.exact[o] = struct{}{}
		case strings.Contains(suffix, "*"):
			return nil, fmt.Errorf("%w: %q", ErrInvalidOriginPattern, o)
		default:
			m.patterns = append(m.patterns, [2]string{prefix, suffix})
		}
	}

	return m, nil
}

func (m *originMatcher) allows(origin string) bool {
	lower := strings.ToLower(origin)
	if _, ok := m.exact[lower]; ok || m.any {
		return true
	}

	for _, p := range m.patterns {
		if len(lower) >= len(p[0])+len(p[1]) && strings.HasPrefix(lower, p[0]) && strings.HasSuffix(lower, p[1]) {
			return true
		}
	}

	return m.fn != nil && m.fn(origin)
}

// specific reports whether responses depend on the Origin header.
func (m *originMatcher) specific() bool {
	return !m.any && (len(m.exact) > 0 || len(m.patterns) > 0 || m.fn != nil)
}

// CORSMiddleware returns a middleware implementing the CORS protocol.
// Allowed origins receive the Access-Control-* headers; preflight requests
// (OPTIONS with Access-Control-Request-Method) are answered with 204
// without reaching the handler.
//
// As route middleware it sees preflights only for routes declared for
// OPTIONS. Install it with Router.Use, with Router set, to answer
// preflights for every path.
func CORSMiddleware(cfg CORSConfig) (mux.MiddlewareFunc, error) {
	if slices.Contains(cfg.AllowedOrigins, "*") && cfg.AllowCredentials {
		return nil, ErrWildcardCredentials
	}

	origins, err := newOriginMatcher(cfg)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !origins.allows(origin) {
				if origins.specific() {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if origins.any && !cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				writePreflight(w, r, &cfg)
				return
			}

			if len(cfg.ExposeHeaders) > 0 {
				h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ","))
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func writePreflight(w http.ResponseWriter, r *http.Request, cfg *CORSConfig) {
	h := w.Header()

	if methods := corsMethods(r, cfg); len(methods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(methods, ","))
	}

	requested := r.Header.Get("Access-Control-Request-Headers")
	switch {
	case len(cfg.AllowedHeaders) > 0 && !slices.Contains(cfg.AllowedHeaders, "*"):
		h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ","))
	case requested != "":
		h.Set("Access-Control-Allow-Headers", requested)
	}

	switch {
	case cfg.MaxAge > 0:
		h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
	case cfg.MaxAge < 0:
		h.Set("Access-Control-Max-Age", "0")
	}

	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
	w.WriteHeader(http.StatusNoContent)
}

func corsMethods(r *http.Request, cfg *CORSConfig) []string {
	if len(cfg.AllowedMethods) > 0 {
		return cfg.AllowedMethods
	}

	if cfg.Router != nil {
		if methods, err := cfg.Router.AllowedMethods(mux.FromHTTP(r)); err == nil {
			return methods
		}
	}

	if route := mux.CurrentRoute(r); route != nil {
		return route.Methods()
	}
	return nil
}
