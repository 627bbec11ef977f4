package mux

import (
	"net/http"
	"strings"
)

// Verbs is the fixed set of methods a route may be registered for, in the
// order alternate methods are tried.
var Verbs = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// defaultMethods is used when a route is registered without methods.
var defaultMethods = []string{http.MethodGet, http.MethodHead}

// normalizeMethods uppercases and de-duplicates methods, rejecting verbs
// that are not in Verbs.
func normalizeMethods(methods []string) ([]string, error) {
	if len(methods) == 0 {
		out := make([]string, len(defaultMethods))
		copy(out, defaultMethods)
		return out, nil
	}

	out := make([]string, 0, len(methods))
	for _, m := range methods {
		upper := strings.ToUpper(m)
		if !matchInArray(Verbs, upper) {
			return nil, &InvalidMethodError{Method: m}
		}
		if !matchInArray(out, upper) {
			out = append(out, upper)
		}
	}
	return out, nil
}

// Route is a finalised route definition. A Route returned by
// RouteBuilder.Fetch is never modified afterwards; matching a request
// returns a bound copy that carries the request's parameters.
type Route struct {
	methods     []string
	uri         string
	domain      string
	name        string
	handler     Handler
	wheres      map[string]string
	defaults    map[string]string
	middleware  []string
	excluded    []string
	fallback    bool
	pattern     *Pattern
	hostPattern *Pattern

	// origin is the registered route a bound copy was made from.
	origin *Route
	params Params
	bound  bool
}

// Methods returns the methods the route answers to.
func (r *Route) Methods() []string {
	return cloneStrings(r.methods)
}

// URI returns the path template including any group prefix.
func (r *Route) URI() string {
	return r.uri
}

// Domain returns the host template, or an empty string.
func (r *Route) Domain() string {
	return r.domain
}

// Name returns the route name.
func (r *Route) Name() string {
	return r.name
}

// Handler returns the route action.
func (r *Route) Handler() Handler {
	return r.handler
}

// Action returns the canonical action identifier of the route handler.
func (r *Route) Action() string {
	return r.handler.String()
}

// Wheres returns the parameter constraints the pattern was compiled with.
func (r *Route) Wheres() map[string]string {
	return cloneMap(r.wheres)
}

// Defaults returns the default values of optional parameters.
func (r *Route) Defaults() map[string]string {
	return cloneMap(r.defaults)
}

// Middleware returns the middleware identifiers declared on the route,
// including those inherited from groups.
func (r *Route) Middleware() []string {
	return cloneStrings(r.middleware)
}

// ExcludedMiddleware returns the identifiers stripped from the route.
func (r *Route) ExcludedMiddleware() []string {
	return cloneStrings(r.excluded)
}

// IsFallback reports whether the route is only tried after every other
// route of the same method.
func (r *Route) IsFallback() bool {
	return r.fallback
}

// Pattern returns the compiled path pattern. It is nil for the route
// synthesised to answer an OPTIONS request.
func (r *Route) Pattern() *Pattern {
	return r.pattern
}

// HostPattern returns the compiled domain pattern, or nil.
func (r *Route) HostPattern() *Pattern {
	return r.hostPattern
}

// HasMethod reports whether the route answers to method.
func (r *Route) HasMethod(method string) bool {
	return matchInArray(r.methods, method)
}

// IsBound reports whether the route carries request parameters.
func (r *Route) IsBound() bool {
	return r.bound
}

// Origin returns the registered route a bound copy was made from. For a
// registered route it returns the route itself.
func (r *Route) Origin() *Route {
	if r.origin != nil {
		return r.origin
	}
	return r
}

// Parameters returns the bound parameters: domain parameters first, then
// path parameters in template order. It panics with ErrRouteNotBound when
// called on a route that was not returned by a match.
func (r *Route) Parameters() Params {
	r.mustBeBound()
	out := make(Params, len(r.params))
	copy(out, r.params)
	return out
}

// Parameter returns a bound parameter by name. It panics with
// ErrRouteNotBound when the route is not bound.
func (r *Route) Parameter(name string) (string, bool) {
	r.mustBeBound()
	return r.params.Get(name)
}

// HasParameters reports whether the bound route captured any parameters.
// It panics with ErrRouteNotBound when the route is not bound.
func (r *Route) HasParameters() bool {
	r.mustBeBound()
	return len(r.params) > 0
}

// HasParameter reports whether a bound parameter exists with a non-empty
// value. It panics with ErrRouteNotBound when the route is not bound.
func (r *Route) HasParameter(name string) bool {
	v, ok := r.Parameter(name)
	return ok && v != ""
}

func (r *Route) mustBeBound() {
	if !r.bound {
		panic(ErrRouteNotBound)
	}
}

// key identifies the route within one method of a route table.
func (r *Route) key() string {
	return r.domain + r.uri
}

// matches tests the route against the request. The method is only
// compared when includeMethod is set, so the same test can check
// alternate verbs.
func (r *Route) matches(req Request, includeMethod bool) (bool, error) {
	if includeMethod && !r.HasMethod(req.Method()) {
		return false, nil
	}

	if r.hostPattern != nil {
		ok, err := r.hostPattern.Test(req.Host())
		if err != nil || !ok {
			return false, err
		}
	}

	return r.pattern.Test(req.Path())
}

// bind returns a copy of the route carrying the request's parameters.
// The receiver is left untouched so it can serve concurrent requests.
func (r *Route) bind(req Request) (*Route, error) {
	var params Params

	if r.hostPattern != nil {
		hostParams, err := r.hostPattern.Capture(req.Host())
		if err != nil {
			return nil, err
		}
		params = append(params, hostParams...)
	}

	pathParams, err := r.pattern.Capture(req.Path())
	if err != nil {
		return nil, err
	}
	params = append(params, pathParams...)

	for i := range params {
		if params[i].Value == "" {
			if def, ok := r.defaults[params[i].Key]; ok {
				params[i].Value = def
			}
		}
	}

	bound := *r
	bound.origin = r.Origin()
	bound.params = params
	bound.bound = true

	return &bound, nil
}

func (r *Route) String() string {
	return strings.Join(r.methods, "|") + " " + r.domain + r.uri
}
