package mux

import (
	"context"
	"errors"
	"net/http"
)

// routeContextKey is an unexported type for the single context key.
type routeContextKey struct{}

// ctxKey is the single context key used to store both route and vars.
var ctxKey = routeContextKey{}

// routeContext holds the matched route and its parameters as a map.
type routeContext struct {
	route *Route
	vars  map[string]string
}

// Vars returns the route parameters for the current request, if any.
func Vars(r *http.Request) map[string]string {
	if rc, ok := r.Context().Value(ctxKey).(*routeContext); ok {
		return rc.vars
	}
	return nil
}

// VarGet returns the value of a single route parameter by name and a
// boolean indicating whether the parameter exists.
func VarGet(r *http.Request, name string) (string, bool) {
	if rc, ok := r.Context().Value(ctxKey).(*routeContext); ok && rc.vars != nil {
		val, exists := rc.vars[name]
		return val, exists
	}
	return "", false
}

// CurrentRoute returns the bound route for the current request, if any.
// This only works when called inside the handler of the matched route
// because the route is stored in the request context.
func CurrentRoute(r *http.Request) *Route {
	if rc, ok := r.Context().Value(ctxKey).(*routeContext); ok {
		return rc.route
	}
	return nil
}

// WithRoute returns a copy of r carrying route as the current route. This
// is intended for testing route handlers.
func WithRoute(r *http.Request, route *Route) *http.Request {
	return setRouteContext(r, route)
}

// setRouteContext stores the bound route and its parameters in the request
// context using a single WithContext call.
func setRouteContext(r *http.Request, route *Route) *http.Request {
	rc := &routeContext{route: route}
	if route != nil && route.bound && len(route.params) > 0 {
		rc.vars = route.params.Map()
	}
	ctx := context.WithValue(r.Context(), ctxKey, rc)
	return r.WithContext(ctx)
}

// MiddlewareFunc is a function which receives an http.Handler and returns
// another http.Handler. It can be used to wrap handlers with additional
// behavior such as logging, authentication, etc.
type MiddlewareFunc func(http.Handler) http.Handler

// Middleware allows MiddlewareFunc to implement the Middleware interface.
func (mw MiddlewareFunc) Middleware(handler http.Handler) http.Handler {
	return mw(handler)
}

// WalkFunc is the type of the function called for each route visited by
// Walk, in registration order.
type WalkFunc func(route *Route, router *Router) error

// SkipRoutes is used as a return value from WalkFunc to stop the walk
// without reporting an error.
var SkipRoutes = errors.New("skip remaining routes") //nolint:revive,staticcheck // mirrors filepath.SkipAll
