package mux

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// fallbackPlaceholder is the parameter of the catch-all route registered by
// Fallback.
const fallbackPlaceholder = "fallbackPlaceholder"

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger dispatch errors are reported to.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithContainer sets the container class/method actions are resolved with.
func WithContainer(c Container) Option {
	return func(r *Router) {
		r.container = c
	}
}

// WithResolver replaces the middleware resolver.
func WithResolver(m *MiddlewareResolver) Option {
	return func(r *Router) {
		r.resolver = m
	}
}

// WithRegistry replaces the middleware registry.
func WithRegistry(reg *MiddlewareRegistry) Option {
	return func(r *Router) {
		r.registry = reg
	}
}

// Router registers routes and dispatches requests to them.
//
// Routes are declared with the verb helpers, which return a RouteBuilder
// for further configuration. Declared routes are finalised into the route
// collection by Boot, which ServeHTTP calls on first use:
//
//	r := mux.NewRouter()
//	r.Get("/users/{id}", "UserController@show").WhereNumber("id").Name("users.show")
//	http.ListenAndServe(":8080", r)
//
// Registration is not safe for concurrent use. Once booted, the router
// serves concurrent requests.
type Router struct {
	// ErrorHandler writes the response for a dispatch error. If nil,
	// the status code from StatusCode is written with its status text.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	groups    *GroupContext
	routes    RouteCollection
	resolver  *MiddlewareResolver
	registry  *MiddlewareRegistry
	container Container
	logger    zerolog.Logger

	mu          sync.Mutex
	pending     []*RouteBuilder
	middlewares []MiddlewareFunc
	dispatch    http.Handler
	bootErr     error
	booted      atomic.Bool

	// handlerCache caches the middleware-wrapped handler per registered
	// route to avoid resolving the pipeline on every request.
	handlerCache sync.Map // map[*Route]http.Handler

	skipClean bool
}

// NewRouter returns a new router instance.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		groups:   NewGroupContext(),
		routes:   NewRouteTable(),
		resolver: NewMiddlewareResolver(),
		registry: NewMiddlewareRegistry(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SkipClean defines the path cleaning behavior. When true, the request
// path is matched as received, without removing dot segments.
func (r *Router) SkipClean(value bool) *Router {
	r.skipClean = value
	return r
}

// Resolver returns the middleware resolver.
func (r *Router) Resolver() *MiddlewareResolver {
	return r.resolver
}

// Registry returns the middleware registry.
func (r *Router) Registry() *MiddlewareRegistry {
	return r.registry
}

// --- Registration ---

// Get registers a route answering GET.
func (r *Router) Get(uri string, action any) *RouteBuilder {
	return r.Match([]string{http.MethodGet}, uri, action)
}

// Post registers a route answering POST.
func (r *Router) Post(uri string, action any) *RouteBuilder {
	return r.Match([]string{http.MethodPost}, uri, action)
}

// Put registers a route answering PUT.
func (r *Router) Put(uri string, action any) *RouteBuilder {
	return r.Match([]string{http.MethodPut}, uri, action)
}

// Patch registers a route answering PATCH.
func (r *Router) Patch(uri string, action any) *RouteBuilder {
	return r.Match([]string{http.MethodPatch}, uri, action)
}

// Delete registers a route answering DELETE.
func (r *Router) Delete(uri string, action any) *RouteBuilder {
	return r.Match([]string{http.MethodDelete}, uri, action)
}

// Options registers a route answering OPTIONS.
func (r *Router) Options(uri string, action any) *RouteBuilder {
	return r.Match([]string{http.MethodOptions}, uri, action)
}

// Head registers a route answering HEAD.
func (r *Router) Head(uri string, action any) *RouteBuilder {
	return r.Match([]string{http.MethodHead}, uri, action)
}

// Any registers a route answering every verb.
func (r *Router) Any(uri string, action any) *RouteBuilder {
	return r.Match(Verbs, uri, action)
}

// Match registers a route answering methods. An empty method list
// registers GET and HEAD.
//
// The action may be a Handler, an http.Handler, a handler function, a
// "Class@method" or invokable class name string, or a [2]string class and
// method pair. Errors are reported by the builder and by Boot.
func (r *Router) Match(methods []string, uri string, action any) *RouteBuilder {
	var b *RouteBuilder

	h, err := toHandler(action)
	if err == nil {
		b, err = NewRouteBuilder(r.groups, methods, uri, h)
	}
	if err != nil {
		b = failedBuilder(fmt.Errorf("mux: route %s: %w", uri, err))
	}

	b.withRegistry(r.registry)

	r.mu.Lock()
	r.pending = append(r.pending, b)
	r.booted.Store(false)
	r.mu.Unlock()

	return b
}

// Group declares routes sharing attrs. Groups nest; see GroupContext for
// how attributes combine.
func (r *Router) Group(attrs GroupAttributes, fn func(*Router)) {
	r.groups.Enter(attrs)
	defer r.groups.Leave()

	fn(r)
}

// Fallback registers the route used when no other GET route matches.
func (r *Router) Fallback(action any) *RouteBuilder {
	return r.Get("{"+fallbackPlaceholder+"}", action).
		Where(fallbackPlaceholder, ".*").
		Fallback()
}

// Redirect registers a route on every verb that redirects to target with
// status, 302 Found when status is zero.
func (r *Router) Redirect(uri, target string, status int) *RouteBuilder {
	if status == 0 {
		status = http.StatusFound
	}
	return r.Any(uri, CallableFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, target, status)
	}))
}

// Use appends global middleware. Global middleware wraps the whole
// dispatch, so it runs before the request is matched.
func (r *Router) Use(mwf ...MiddlewareFunc) {
	r.mu.Lock()
	r.middlewares = append(r.middlewares, mwf...)
	r.booted.Store(false)
	r.mu.Unlock()
}

// LoadCompiled installs a compiled route table as the route collection.
// Routes declared afterwards are added on top of it.
func (r *Router) LoadCompiled(ct *CompiledTable) {
	r.mu.Lock()
	r.routes = ct
	r.handlerCache.Clear()
	r.booted.Store(false)
	r.mu.Unlock()
}

// --- Boot ---

// Boot finalises every declared route into the route collection and
// assembles the global middleware. Routes that fail to finalise are
// skipped; their errors are joined and returned, and the router answers
// every request with that error. The error is kept until a later batch of
// declarations finalises without errors.
func (r *Router) Boot() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.booted.Load() {
		return r.bootErr
	}

	declared := len(r.pending) > 0

	var errs []error
	for _, b := range r.pending {
		route, err := b.Fetch()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.routes.Add(route)
	}
	r.pending = nil

	if declared {
		r.bootErr = errors.Join(errs...)
	}

	var handler http.Handler = http.HandlerFunc(r.serveRoute)
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i].Middleware(handler)
	}
	r.dispatch = handler

	r.booted.Store(true)

	r.logger.Debug().
		Int("routes", r.routes.Count()).
		Int("global_middleware", len(r.middlewares)).
		Msg("routes booted")

	return r.bootErr
}

// Routes boots the router and returns its route collection.
func (r *Router) Routes() (RouteCollection, error) {
	err := r.Boot()
	return r.routes, err
}

// Route returns the route registered under name, or nil.
func (r *Router) Route(name string) *Route {
	routes, _ := r.Routes()
	return routes.ByName(name)
}

// Compile boots the router and compiles its routes for caching.
func (r *Router) Compile() (*CompiledTable, error) {
	routes, err := r.Routes()
	if err != nil {
		return nil, err
	}
	return Compile(routes)
}

// Find matches req against the booted routes. See MatchRequest.
func (r *Router) Find(req Request) (*Route, error) {
	routes, err := r.Routes()
	if err != nil {
		return nil, err
	}
	return routes.Match(req)
}

// AllowedMethods returns the verbs with a route matching the host and path
// of req, whatever its method.
func (r *Router) AllowedMethods(req Request) ([]string, error) {
	routes, err := r.Routes()
	if err != nil {
		return nil, err
	}
	return matchingMethods(routes, req, "")
}

// Walk calls walkFn for every route in registration order. Returning
// SkipRoutes stops the walk without an error.
func (r *Router) Walk(walkFn WalkFunc) error {
	routes, err := r.Routes()
	if err != nil {
		return err
	}

	for _, route := range routes.Get("") {
		if err := walkFn(route, r); err != nil {
			if errors.Is(err, SkipRoutes) {
				return nil
			}
			return err
		}
	}
	return nil
}

// URL builds the URL of the named route from key/value pairs. Parameters
// not used by the route's path or domain are added as the query string.
// Domain routes produce a URL with a host and no scheme.
func (r *Router) URL(name string, pairs ...string) (*url.URL, error) {
	route := r.Route(name)
	if route == nil {
		return nil, fmt.Errorf("%w: no route named %q", ErrRouteNotFound, name)
	}

	values, err := mapFromPairsToString(pairs...)
	if err != nil {
		return nil, err
	}

	params := make(map[string]string, len(values)+len(route.defaults))
	for k, v := range route.defaults {
		params[k] = v
	}
	for k, v := range values {
		params[k] = v
	}

	path, used, err := route.pattern.build(params, route.wheres)
	if err != nil {
		return nil, err
	}

	u := &url.URL{RawPath: path}
	if u.Path, err = url.PathUnescape(path); err != nil {
		return nil, err
	}

	if route.hostPattern != nil {
		host, hostUsed, err := route.hostPattern.build(params, route.wheres)
		if err != nil {
			return nil, err
		}
		for k := range hostUsed {
			used[k] = true
		}
		u.Host = host
	}

	var extra []string
	for k := range values {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		q := make(url.Values, len(extra))
		for _, k := range extra {
			q.Set(k, values[k])
		}
		u.RawQuery = q.Encode()
	}

	return u, nil
}

// --- Dispatch ---

// ServeHTTP dispatches the request to the matched route.
// Implements http.Handler per RFC 9110.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !r.booted.Load() {
		if err := r.Boot(); err != nil {
			r.fail(w, req, err)
			return
		}
	} else if r.bootErr != nil {
		r.fail(w, req, r.bootErr)
		return
	}

	r.dispatch.ServeHTTP(w, req)
}

// serveRoute matches the request, builds the route pipeline and runs it.
func (r *Router) serveRoute(w http.ResponseWriter, req *http.Request) {
	// Normalize the request path per RFC 3986 Section 5.2.4
	// (removing dot segments) unless SkipClean is enabled.
	if !r.skipClean {
		if cleaned := cleanPath(req.URL.Path); cleaned != req.URL.Path {
			u := *req.URL
			u.Path = cleaned
			u.RawPath = ""
			req = req.Clone(req.Context())
			req.URL = &u
		}
	}

	route, err := r.routes.Match(FromHTTP(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}

	handler, err := r.routeHandler(route)
	if err != nil {
		r.fail(w, req, err)
		return
	}

	handler.ServeHTTP(w, setRouteContext(req, route))
}

// routeHandler resolves the action of route and wraps it with the route's
// middleware. Pipelines of registered routes are cached; the route
// synthesised for OPTIONS requests is built each time.
func (r *Router) routeHandler(route *Route) (http.Handler, error) {
	key := route.origin
	if key != nil {
		if cached, ok := r.handlerCache.Load(key); ok {
			return cached.(http.Handler), nil
		}
	}

	final, err := resolveHandler(route.handler, r.container)
	if err != nil {
		return nil, err
	}

	ids := r.resolver.Resolve(route.middleware, route.excluded)
	handler, err := r.registry.Build(ids, final)
	if err != nil {
		return nil, err
	}

	if key != nil {
		actual, _ := r.handlerCache.LoadOrStore(key, handler)
		handler = actual.(http.Handler)
	}
	return handler, nil
}

// fail logs err once and writes the error response.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	status := StatusCode(err)

	event := r.logger.Error()
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		event = r.logger.Debug()
	}
	event.Err(err).
		Str("method", req.Method).
		Str("host", req.Host).
		Str("path", req.URL.Path).
		Int("status", status).
		Msg("request not dispatched")

	if r.ErrorHandler != nil {
		r.ErrorHandler(w, req, err)
		return
	}
	DefaultErrorHandler(w, req, err)
}

// DefaultErrorHandler writes the status code of err with its status text.
// A 405 response carries the Allow header required by RFC 9110 Section
// 15.5.6. Requests accepting JSON receive a JSON body.
func DefaultErrorHandler(w http.ResponseWriter, req *http.Request, err error) {
	status := StatusCode(err)

	var notAllowed *MethodNotAllowedError
	if errors.As(err, &notAllowed) {
		w.Header().Set("Allow", strings.Join(notAllowed.Allowed, ", "))
	}

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		ResponseJSON(w, status, ErrorResponse{
			Status:  status,
			Message: http.StatusText(status),
		})
		return
	}

	http.Error(w, http.StatusText(status), status)
}
