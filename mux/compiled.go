package mux

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// compiledVersion is the first byte of a marshalled CompiledTable.
const compiledVersion byte = 1

// compiledPattern holds the regular expression sources of one route.
type compiledPattern struct {
	Path string `json:"path"`
	Host string `json:"host,omitempty"`
}

// routeAttributes is the serialisable definition of one route. It travels
// as a plain map so the cache stays readable by other tools.
type routeAttributes struct {
	Methods      []string          `mapstructure:"methods"`
	URI          string            `mapstructure:"uri"`
	Domain       string            `mapstructure:"domain"`
	Name         string            `mapstructure:"name"`
	ActionKind   string            `mapstructure:"action_kind"`
	ActionClass  string            `mapstructure:"action_class"`
	ActionMethod string            `mapstructure:"action_method"`
	ActionRaw    string            `mapstructure:"action_raw"`
	Wheres       map[string]string `mapstructure:"wheres"`
	Defaults     map[string]string `mapstructure:"defaults"`
	Middleware   []string          `mapstructure:"middleware"`
	Excluded     []string          `mapstructure:"excluded"`
	Fallback     bool              `mapstructure:"fallback"`
}

// compiledPayload is the JSON body of a marshalled CompiledTable. Methods
// lists, per verb, the indexes of the routes answering it in match order.
type compiledPayload struct {
	Compiled   []compiledPattern `json:"compiled"`
	Attributes []map[string]any  `json:"attributes"`
	Methods    map[string][]int  `json:"methods"`
}

// CompiledTable is a route collection restored from its serialised form.
// Patterns are rebuilt from their stored sources, and lookups are computed
// once when the table is decoded.
//
// Routes added after decoding are kept in a RouteTable of their own and
// matched after the compiled routes.
type CompiledTable struct {
	payload  compiledPayload
	routes   []*Route
	byMethod map[string][]*Route
	byName   map[string]*Route
	byAction map[string]*Route
	dynamic  *RouteTable
}

var _ RouteCollection = (*CompiledTable)(nil)

// Compile captures routes in a CompiledTable. Routes with callable handlers
// or inline middleware cannot be serialised and are rejected with an
// *UncacheableRouteError.
func Compile(routes RouteCollection) (*CompiledTable, error) {
	all := routes.Get("")
	index := make(map[*Route]int, len(all))

	payload := compiledPayload{
		Compiled:   make([]compiledPattern, 0, len(all)),
		Attributes: make([]map[string]any, 0, len(all)),
		Methods:    make(map[string][]int),
	}

	for i, route := range all {
		if route.handler.kind == HandlerCallable || hasInlineMiddleware(route) {
			return nil, &UncacheableRouteError{Name: route.name, URI: route.uri}
		}
		index[route] = i

		cp := compiledPattern{Path: route.pattern.Source()}
		if route.hostPattern != nil {
			cp.Host = route.hostPattern.Source()
		}
		payload.Compiled = append(payload.Compiled, cp)

		attrs, err := encodeAttributes(route)
		if err != nil {
			return nil, err
		}
		payload.Attributes = append(payload.Attributes, attrs)
	}

	for _, method := range Verbs {
		for _, route := range routes.Get(method) {
			if i, ok := index[route]; ok {
				payload.Methods[method] = append(payload.Methods[method], i)
			}
		}
	}

	return newCompiledTable(payload)
}

// hasInlineMiddleware reports whether route refers to middleware registered
// by RouteBuilder.MiddlewareFunc, whose ids only exist in this process.
func hasInlineMiddleware(route *Route) bool {
	for _, ids := range [][]string{route.middleware, route.excluded} {
		for _, id := range ids {
			if strings.HasPrefix(id, inlineMiddlewarePrefix) {
				return true
			}
		}
	}
	return false
}

func encodeAttributes(route *Route) (map[string]any, error) {
	attrs := routeAttributes{
		Methods:      route.methods,
		URI:          route.uri,
		Domain:       route.domain,
		Name:         route.name,
		ActionKind:   route.handler.kind.String(),
		ActionClass:  route.handler.class,
		ActionMethod: route.handler.method,
		ActionRaw:    route.handler.raw,
		Wheres:       route.wheres,
		Defaults:     route.defaults,
		Middleware:   route.middleware,
		Excluded:     route.excluded,
		Fallback:     route.fallback,
	}

	out := make(map[string]any)
	if err := mapstructure.Decode(attrs, &out); err != nil {
		return nil, fmt.Errorf("mux: encode route %s: %w", route.name, err)
	}

	// Empty lists are omitted so they decode back to nil.
	for k, v := range out {
		switch v := v.(type) {
		case []string:
			if len(v) == 0 {
				delete(out, k)
			}
		case map[string]string:
			if len(v) == 0 {
				delete(out, k)
			}
		}
	}
	return out, nil
}

func decodeAttributes(in map[string]any) (routeAttributes, error) {
	var attrs routeAttributes

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &attrs,
		ErrorUnused: true,
	})
	if err != nil {
		return attrs, err
	}
	if err := dec.Decode(in); err != nil {
		return attrs, err
	}
	return attrs, nil
}

func newCompiledTable(payload compiledPayload) (*CompiledTable, error) {
	if len(payload.Compiled) != len(payload.Attributes) {
		return nil, fmt.Errorf("mux: compiled route table has %d patterns for %d routes",
			len(payload.Compiled), len(payload.Attributes))
	}

	t := &CompiledTable{
		payload:  payload,
		routes:   make([]*Route, len(payload.Attributes)),
		byMethod: make(map[string][]*Route, len(payload.Methods)),
		byName:   make(map[string]*Route),
		byAction: make(map[string]*Route),
		dynamic:  NewRouteTable(),
	}

	for i, raw := range payload.Attributes {
		route, err := restoreRoute(payload.Compiled[i], raw)
		if err != nil {
			return nil, fmt.Errorf("mux: compiled route %d: %w", i, err)
		}
		t.routes[i] = route

		if route.name != "" {
			t.byName[route.name] = route
		}
		if route.handler.kind == HandlerClassMethod {
			t.byAction[route.handler.String()] = route
		}
	}

	for method, idxs := range payload.Methods {
		list := make([]*Route, 0, len(idxs))
		for _, i := range idxs {
			if i < 0 || i >= len(t.routes) {
				return nil, fmt.Errorf("mux: compiled route table references route %d for %s", i, method)
			}
			list = append(list, t.routes[i])
		}
		t.byMethod[method] = list
	}

	return t, nil
}

func restoreRoute(cp compiledPattern, raw map[string]any) (*Route, error) {
	attrs, err := decodeAttributes(raw)
	if err != nil {
		return nil, err
	}

	var handler Handler
	switch attrs.ActionKind {
	case HandlerClassMethod.String():
		handler = ClassMethod(attrs.ActionClass, attrs.ActionMethod)
	case HandlerUnresolved.String():
		handler = Handler{kind: HandlerUnresolved, raw: attrs.ActionRaw}
	default:
		return nil, fmt.Errorf("unsupported action kind %q", attrs.ActionKind)
	}

	methods, err := normalizeMethods(attrs.Methods)
	if err != nil {
		return nil, err
	}

	pattern, err := restorePattern(attrs.URI, cp.Path, patternPath)
	if err != nil {
		return nil, err
	}

	var hostPattern *Pattern
	if attrs.Domain != "" {
		if hostPattern, err = restorePattern(attrs.Domain, cp.Host, patternHost); err != nil {
			return nil, err
		}
	}

	return &Route{
		methods:     methods,
		uri:         attrs.URI,
		domain:      attrs.Domain,
		name:        attrs.Name,
		handler:     handler,
		wheres:      attrs.Wheres,
		defaults:    attrs.Defaults,
		middleware:  attrs.Middleware,
		excluded:    attrs.Excluded,
		fallback:    attrs.Fallback,
		pattern:     pattern,
		hostPattern: hostPattern,
	}, nil
}

// MarshalBinary encodes the compiled routes: a version byte followed by a
// JSON document. Routes added after compilation are not included.
func (t *CompiledTable) MarshalBinary() ([]byte, error) {
	body, err := json.Marshal(t.payload)
	if err != nil {
		return nil, fmt.Errorf("mux: encode compiled routes: %w", err)
	}
	return append([]byte{compiledVersion}, body...), nil
}

// UnmarshalBinary replaces t with the table encoded in data. An unknown
// version byte is reported as ErrCacheVersion.
func (t *CompiledTable) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return errors.New("mux: empty compiled route table")
	}
	if data[0] != compiledVersion {
		return fmt.Errorf("%w: %d", ErrCacheVersion, data[0])
	}

	var payload compiledPayload
	if err := json.Unmarshal(data[1:], &payload); err != nil {
		return fmt.Errorf("mux: decode compiled routes: %w", err)
	}

	decoded, err := newCompiledTable(payload)
	if err != nil {
		return err
	}

	*t = *decoded
	return nil
}

// Add registers a route on top of the compiled routes.
func (t *CompiledTable) Add(route *Route) *Route {
	if t.dynamic == nil {
		t.dynamic = NewRouteTable()
	}
	return t.dynamic.Add(route)
}

// Get returns the compiled routes of method followed by the routes added
// since. With an empty method every route is returned once.
func (t *CompiledTable) Get(method string) []*Route {
	var compiled []*Route
	if method == "" {
		compiled = t.routes
	} else {
		compiled = t.byMethod[method]
	}

	out := make([]*Route, 0, len(compiled))
	out = append(out, compiled...)
	if t.dynamic != nil {
		out = append(out, t.dynamic.Get(method)...)
	}
	return out
}

// ByName returns the route registered under name, preferring routes added
// after compilation.
func (t *CompiledTable) ByName(name string) *Route {
	if t.dynamic != nil {
		if r := t.dynamic.ByName(name); r != nil {
			return r
		}
	}
	return t.byName[name]
}

// ByAction returns the route whose action is "Class@method", preferring
// routes added after compilation.
func (t *CompiledTable) ByAction(action string) *Route {
	if t.dynamic != nil {
		if r := t.dynamic.ByAction(action); r != nil {
			return r
		}
	}
	return t.byAction[action]
}

// Count returns the number of distinct routes.
func (t *CompiledTable) Count() int {
	n := len(t.routes)
	if t.dynamic != nil {
		n += t.dynamic.Count()
	}
	return n
}

// Match finds the route for req. See MatchRequest for the rules.
func (t *CompiledTable) Match(req Request) (*Route, error) {
	return MatchRequest(t, req)
}

// ToRouteCollection converts the table back into a mutable RouteTable with
// the same match order and refreshed lookups.
func (t *CompiledTable) ToRouteCollection() *RouteTable {
	table := NewRouteTable()

	for _, method := range Verbs {
		for _, route := range t.byMethod[method] {
			idx, ok := table.byMethod[method]
			if !ok {
				idx = newRouteIndex()
				table.byMethod[method] = idx
			}
			idx.set(route.key(), route)
		}
	}

	for _, route := range t.routes {
		for _, method := range route.methods {
			if slices.Contains(t.byMethod[method], route) {
				table.all.set(method+route.key(), route)
			}
		}
	}

	table.RefreshNameLookups()
	table.RefreshActionLookups()

	if t.dynamic != nil {
		for _, route := range t.dynamic.Get("") {
			table.Add(route)
		}
	}

	return table
}
