package mux

import (
	"net/http"
	"strings"
)

// routeLister is the read side of a route collection used by matching.
type routeLister interface {
	Get(method string) []*Route
}

// MatchRequest finds the route for req among routes.
//
// Routes registered for the request method are tried in registration
// order, non-fallback routes first, and the first whose pattern matches
// wins. A HEAD request with no HEAD route is answered by the GET routes.
// The match is returned as a bound copy.
//
// Without a match, every other verb is tried with the same path. If any
// matches, an OPTIONS request receives a synthesised route answering 200
// with an Allow header, and any other method fails with a
// *MethodNotAllowedError listing the verbs. Otherwise the result is a
// *RouteNotFoundError.
//
// A *PatternError from a route with a broken constraint is returned as is.
func MatchRequest(routes routeLister, req Request) (*Route, error) {
	route, err := matchAgainst(routes.Get(req.Method()), req, true)
	if err == nil && route == nil && req.Method() == http.MethodHead {
		route, err = matchAgainst(routes.Get(http.MethodGet), withMethod(req, http.MethodGet), true)
	}
	if err != nil {
		return nil, err
	}
	if route != nil {
		return route.bind(req)
	}

	others, err := alternateMethods(routes, req)
	if err != nil {
		return nil, err
	}

	if len(others) > 0 {
		if req.Method() == http.MethodOptions {
			return optionsRoute(req, others), nil
		}
		return nil, &MethodNotAllowedError{
			Method:  req.Method(),
			Path:    req.Path(),
			Allowed: others,
		}
	}

	return nil, &RouteNotFoundError{Method: req.Method(), Path: req.Path()}
}

// matchAgainst returns the first matching route, trying fallback routes
// only after every other route.
func matchAgainst(routes []*Route, req Request, includeMethod bool) (*Route, error) {
	var fallbacks []*Route

	for _, route := range routes {
		if route.fallback {
			fallbacks = append(fallbacks, route)
			continue
		}
		ok, err := route.matches(req, includeMethod)
		if err != nil {
			return nil, err
		}
		if ok {
			return route, nil
		}
	}

	for _, route := range fallbacks {
		ok, err := route.matches(req, includeMethod)
		if err != nil {
			return nil, err
		}
		if ok {
			return route, nil
		}
	}

	return nil, nil
}

// alternateMethods returns the verbs other than the request's own whose
// routes match the request path.
func alternateMethods(routes routeLister, req Request) ([]string, error) {
	return matchingMethods(routes, req, req.Method())
}

// matchingMethods returns the verbs, except skip, with a route matching the
// host and path of req, in Verbs order.
func matchingMethods(routes routeLister, req Request, skip string) ([]string, error) {
	var methods []string

	for _, method := range Verbs {
		if method == skip {
			continue
		}
		route, err := matchAgainst(routes.Get(method), withMethod(req, method), false)
		if err != nil {
			return nil, err
		}
		if route != nil {
			methods = append(methods, method)
		}
	}

	return methods, nil
}

// optionsRoute synthesises the route answering an OPTIONS request for a
// path that only has routes under other methods.
func optionsRoute(req Request, methods []string) *Route {
	allow := strings.Join(methods, ",")

	return &Route{
		methods: []string{http.MethodOptions},
		uri:     req.Path(),
		handler: CallableFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusOK)
		}),
		bound: true,
	}
}
