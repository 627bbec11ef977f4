package mux

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidMethod is returned when a route is registered for a verb
	// outside of the recognised method set.
	ErrInvalidMethod = errors.New("mux: invalid HTTP method")

	// ErrRouteNotFound is returned when no route matches the request.
	// Maps to 404 Not Found per RFC 9110 Section 15.5.5.
	ErrRouteNotFound = errors.New("mux: no matching route was found")

	// ErrMethodNotAllowed is returned when the path matches a route
	// registered for a different method. Maps to 405 Method Not Allowed
	// per RFC 9110 Section 15.5.6.
	ErrMethodNotAllowed = errors.New("mux: method is not allowed")

	// ErrPattern is returned when a parameter constraint does not compile.
	ErrPattern = errors.New("mux: invalid route pattern")

	// ErrHandlerNotFound is returned when a route action cannot be resolved
	// to something callable.
	ErrHandlerNotFound = errors.New("mux: route handler not found")

	// ErrRouteNotBound is the panic value used when bound parameters are
	// read from a route that was never matched against a request.
	ErrRouteNotBound = errors.New("mux: route is not bound to a request")

	// ErrCacheVersion is returned when a compiled route table was written
	// with an unknown format version.
	ErrCacheVersion = errors.New("mux: unsupported compiled route table version")

	// ErrUncacheableRoute is returned when a route with an in-process
	// callable handler is compiled for caching.
	ErrUncacheableRoute = errors.New("mux: route cannot be cached")

	// ErrMissingParameter is returned by URL when a required route
	// parameter is not supplied.
	ErrMissingParameter = errors.New("mux: missing route parameter")
)

// InvalidMethodError reports a verb that is not one of the recognised
// HTTP methods.
type InvalidMethodError struct {
	Method string
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("mux: invalid HTTP method %q", e.Method)
}

func (e *InvalidMethodError) Is(target error) bool {
	return target == ErrInvalidMethod
}

// RouteNotFoundError reports that neither the request method nor any
// alternate method has a route for the path.
type RouteNotFoundError struct {
	Method string
	Path   string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("mux: the route %s could not be found", e.Path)
}

func (e *RouteNotFoundError) Is(target error) bool {
	return target == ErrRouteNotFound
}

// MethodNotAllowedError reports that the path is routable, but only for
// the methods listed in Allowed.
type MethodNotAllowedError struct {
	Method  string
	Path    string
	Allowed []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("mux: the %s method is not supported for route %s, supported methods: %s",
		e.Method, e.Path, strings.Join(e.Allowed, ", "))
}

func (e *MethodNotAllowedError) Is(target error) bool {
	return target == ErrMethodNotAllowed
}

// PatternError reports a route pattern whose regular expression failed to
// compile. It surfaces on the first match attempt against the route.
type PatternError struct {
	Template string
	Source   string
	Err      error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("mux: invalid pattern %q for template %q: %v", e.Source, e.Template, e.Err)
}

func (e *PatternError) Is(target error) bool {
	return target == ErrPattern
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// HandlerNotFoundError reports a route action that could not be resolved
// at invocation time.
type HandlerNotFoundError struct {
	Action string
	Reason string
	Err    error
}

func (e *HandlerNotFoundError) Error() string {
	msg := fmt.Sprintf("mux: handler %q not found", e.Action)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *HandlerNotFoundError) Is(target error) bool {
	return target == ErrHandlerNotFound
}

func (e *HandlerNotFoundError) Unwrap() error {
	return e.Err
}

// UncacheableRouteError reports a route that cannot be written into a
// compiled route table.
type UncacheableRouteError struct {
	Name string
	URI  string
}

func (e *UncacheableRouteError) Error() string {
	return fmt.Sprintf("mux: unable to prepare route [%s] (%s) for serialization: uses a callable handler", e.URI, e.Name)
}

func (e *UncacheableRouteError) Is(target error) bool {
	return target == ErrUncacheableRoute
}

// StatusCode maps a dispatch error to the HTTP status code that the
// default error handler responds with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
