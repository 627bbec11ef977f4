package mux

import (
	"errors"
	"maps"

	"github.com/google/uuid"
)

// errNoRegistry is recorded when inline middleware is attached to a
// builder created without a middleware registry.
var errNoRegistry = errors.New("mux: inline middleware requires a middleware registry")

// inlineMiddlewarePrefix marks identifiers generated for inline middleware.
const inlineMiddlewarePrefix = "closure:"

// RouteBuilder accumulates the definition of a single route. The group
// attributes in effect when the builder is created are captured, so a
// builder may be finalised after its group has been left.
//
// Builder methods record the first error and turn into no-ops afterwards;
// the error is returned by Fetch.
type RouteBuilder struct {
	group    GroupAttributes
	registry *MiddlewareRegistry

	methods    []string
	uri        string
	handler    Handler
	name       string
	domain     string
	wheres     map[string]string
	defaults   map[string]string
	middleware []string
	excluded   []string
	fallback   bool

	err error
}

// NewRouteBuilder starts a route for methods and uri. Methods are checked
// case-insensitively against Verbs; an unknown method is returned as an
// *InvalidMethodError. An empty method list defaults to GET and HEAD.
func NewRouteBuilder(groups *GroupContext, methods []string, uri string, handler Handler) (*RouteBuilder, error) {
	normalized, err := normalizeMethods(methods)
	if err != nil {
		return nil, err
	}

	b := &RouteBuilder{
		methods: normalized,
		uri:     uri,
		handler: handler,
	}
	if groups != nil {
		b.group = groups.Current()
	}

	return b, nil
}

// failedBuilder returns a builder that only carries err, so fluent calls on
// a rejected registration do not dereference nil.
func failedBuilder(err error) *RouteBuilder {
	return &RouteBuilder{err: err}
}

// withRegistry sets the registry inline middleware is stored in.
func (b *RouteBuilder) withRegistry(reg *MiddlewareRegistry) *RouteBuilder {
	b.registry = reg
	return b
}

// Err returns the first error recorded by the builder.
func (b *RouteBuilder) Err() error {
	return b.err
}

// Where constrains a parameter with a regular expression fragment. An empty
// fragment removes a constraint set earlier, including one inherited from
// a group.
func (b *RouteBuilder) Where(param, pattern string) *RouteBuilder {
	if b.err != nil {
		return b
	}
	if b.wheres == nil {
		b.wheres = make(map[string]string)
	}
	b.wheres[param] = pattern
	return b
}

// WhereAlpha constrains params to ASCII letters.
func (b *RouteBuilder) WhereAlpha(params ...string) *RouteBuilder {
	return b.whereAll(PatternAlpha, params)
}

// WhereNumber constrains params to decimal digits.
func (b *RouteBuilder) WhereNumber(params ...string) *RouteBuilder {
	return b.whereAll(PatternNumber, params)
}

// WhereAlphaNumeric constrains params to ASCII letters and digits.
func (b *RouteBuilder) WhereAlphaNumeric(params ...string) *RouteBuilder {
	return b.whereAll(PatternAlphaNumeric, params)
}

// WhereUUID constrains params to UUIDs.
func (b *RouteBuilder) WhereUUID(params ...string) *RouteBuilder {
	return b.whereAll(PatternUUID, params)
}

// WhereULID constrains params to ULIDs.
func (b *RouteBuilder) WhereULID(params ...string) *RouteBuilder {
	return b.whereAll(PatternULID, params)
}

// WhereIn constrains param to one of values.
func (b *RouteBuilder) WhereIn(param string, values ...string) *RouteBuilder {
	return b.Where(param, PatternIn(values...))
}

func (b *RouteBuilder) whereAll(pattern string, params []string) *RouteBuilder {
	for _, p := range params {
		b.Where(p, pattern)
	}
	return b
}

// Name appends suffix to the route name.
func (b *RouteBuilder) Name(suffix string) *RouteBuilder {
	if b.err == nil {
		b.name = joinName(b.name, suffix)
	}
	return b
}

// Domain restricts the route to hosts matching the template.
func (b *RouteBuilder) Domain(template string) *RouteBuilder {
	if b.err == nil {
		b.domain = template
	}
	return b
}

// Defaults sets the value used for param when an optional segment is
// absent from the request path.
func (b *RouteBuilder) Defaults(param, value string) *RouteBuilder {
	if b.err != nil {
		return b
	}
	if b.defaults == nil {
		b.defaults = make(map[string]string)
	}
	b.defaults[param] = value
	return b
}

// Middleware appends middleware identifiers.
func (b *RouteBuilder) Middleware(ids ...string) *RouteBuilder {
	if b.err == nil {
		b.middleware = append(b.middleware, ids...)
	}
	return b
}

// MiddlewareFunc attaches an inline middleware. It is registered under a
// generated identifier, so each inline middleware is distinct when the
// route's middleware is de-duplicated.
func (b *RouteBuilder) MiddlewareFunc(mw MiddlewareFunc) *RouteBuilder {
	if b.err != nil {
		return b
	}
	if b.registry == nil {
		b.err = errNoRegistry
		return b
	}

	id := inlineMiddlewarePrefix + uuid.NewString()
	b.registry.Register(id, mw)
	b.middleware = append(b.middleware, id)

	return b
}

// WithoutMiddleware excludes middleware identifiers, including inherited
// ones.
func (b *RouteBuilder) WithoutMiddleware(ids ...string) *RouteBuilder {
	if b.err == nil {
		b.excluded = append(b.excluded, ids...)
	}
	return b
}

// Fallback marks the route as a fallback route.
func (b *RouteBuilder) Fallback() *RouteBuilder {
	if b.err == nil {
		b.fallback = true
	}
	return b
}

// Fetch finalises the route: the group prefix, name, domain, middleware and
// constraints are merged, the action is resolved against the group
// controller and namespace, and the pattern is compiled. A route without a
// name receives a random one.
func (b *RouteBuilder) Fetch() (*Route, error) {
	if b.err != nil {
		return nil, b.err
	}

	g := b.group

	wheres := make(map[string]string, len(g.Where)+len(b.wheres))
	maps.Copy(wheres, g.Where)
	maps.Copy(wheres, b.wheres)
	maps.DeleteFunc(wheres, func(_, v string) bool { return v == "" })

	uri := joinPath(g.Prefix, b.uri)

	pattern, err := CompilePattern(uri, wheres)
	if err != nil {
		return nil, err
	}

	domain := b.domain
	if domain == "" {
		domain = g.Domain
	}
	domain = hostTemplate(domain)

	var hostPattern *Pattern
	if domain != "" {
		if hostPattern, err = compileHostPattern(domain, wheres); err != nil {
			return nil, err
		}
	}

	name := joinName(g.Name, b.name)
	if name == "" {
		name = randomName()
	}

	route := &Route{
		methods:     cloneStrings(b.methods),
		uri:         uri,
		domain:      domain,
		name:        name,
		handler:     b.handler.resolve(g.Controller, g.Namespace),
		wheres:      wheres,
		defaults:    cloneMap(b.defaults),
		middleware:  append(cloneStrings(g.Middleware), b.middleware...),
		excluded:    append(cloneStrings(g.WithoutMiddleware), b.excluded...),
		fallback:    b.fallback,
		pattern:     pattern,
		hostPattern: hostPattern,
	}

	return route, nil
}
