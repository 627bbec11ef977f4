package muxhandlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/vitalvas/waypoint/mux"
)

// ErrInvalidOverrideMethod is returned when MethodOverrideConfig.AllowedMethods
// or MethodOverrideConfig.OriginalMethods contains a method routes cannot be
// registered for. Methods must be uppercase members of mux.Verbs.
var ErrInvalidOverrideMethod = errors.New("method override: methods must be routable HTTP verbs")

// DefaultMethodFormField is the form field read by HTML form method
// spoofing.
const DefaultMethodFormField = "_method"

// MethodOverrideConfig configures the Method Override middleware behaviour.
type MethodOverrideConfig struct {
	// HeaderNames is the list of header names checked in order.
	// The first non-empty header value is used as the override.
	// When empty, defaults to
	// ["X-HTTP-Method-Override", "X-Method-Override", "X-HTTP-Method"].
	HeaderNames []string

	// OriginalMethods is the set of HTTP methods eligible for override.
	// When nil, defaults to [POST].
	OriginalMethods []string

	// AllowedMethods restricts which methods can be used as overrides.
	// When nil, defaults to PUT, PATCH, DELETE, HEAD, OPTIONS.
	AllowedMethods []string

	// FormField names a form field consulted after the headers, as HTML
	// forms cannot send PUT or DELETE. Only url-encoded bodies are
	// inspected. Empty disables the form lookup.
	FormField string
}

var (
	defaultOverrideHeaders = []string{"X-HTTP-Method-Override", "X-Method-Override", "X-HTTP-Method"}
	defaultOriginalMethods = []string{http.MethodPost}
	defaultOverrideMethods = []string{
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodHead,
		http.MethodOptions,
	}
)

// MethodOverrideMiddleware returns a middleware that rewrites the request
// method before it is matched. The first non-empty header of HeaderNames,
// or else the FormField value, is uppercased; when it is an allowed method
// and the request method is one of OriginalMethods, r.Method is replaced and
// the header removed.
//
// Register it with Router.Use: route middleware runs after matching, too
// late to change which route answers.
func MethodOverrideMiddleware(cfg MethodOverrideConfig) (mux.MiddlewareFunc, error) {
	originals, err := verbSet(cfg.OriginalMethods, defaultOriginalMethods)
	if err != nil {
		return nil, err
	}
	allowed, err := verbSet(cfg.AllowedMethods, defaultOverrideMethods)
	if err != nil {
		return nil, err
	}

	headers := slices.Clone(cfg.HeaderNames)
	if len(headers) == 0 {
		headers = defaultOverrideHeaders
	}
	field := cfg.FormField

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := originals[r.Method]; ok {
				header, v := overrideValue(r, headers, field)
				override := strings.ToUpper(v)
				if _, ok := allowed[override]; ok {
					r.Method = override
					if header != "" {
						r.Header.Del(header)
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// verbSet validates methods, def when nil, and returns them as a set.
func verbSet(methods, def []string) (map[string]struct{}, error) {
	if methods == nil {
		methods = def
	}

	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		if !slices.Contains(mux.Verbs, m) {
			return nil, ErrInvalidOverrideMethod
		}
		set[m] = struct{}{}
	}
	return set, nil
}

// overrideValue returns the first non-empty override header with its name,
// falling back to the form field of url-encoded bodies.
func overrideValue(r *http.Request, headers []string, field string) (string, string) {
	for _, h := range headers {
		if v := r.Header.Get(h); v != "" {
			return h, v
		}
	}

	if field == "" {
		return "", ""
	}
	ct, _, _ := strings.Cut(r.Header.Get("Content-Type"), ";")
	if strings.TrimSpace(ct) != "application/x-www-form-urlencoded" {
		return "", ""
	}
	return "", r.PostFormValue(field)
}
