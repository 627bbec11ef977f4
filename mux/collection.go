package mux

// RouteCollection is a source of routes the Router dispatches against.
// RouteTable is the mutable implementation built during registration;
// CompiledTable is the read-optimised form loaded from a cache.
type RouteCollection interface {
	// Add registers a route and returns it.
	Add(route *Route) *Route
	// Get returns the routes of one method in registration order, or every
	// route once when method is empty.
	Get(method string) []*Route
	// ByName returns the route registered under name, or nil.
	ByName(name string) *Route
	// ByAction returns the route whose action is "Class@method", or nil.
	ByAction(action string) *Route
	// Match finds the route for a request and returns a bound copy.
	Match(req Request) (*Route, error)
	// Count returns the number of distinct routes.
	Count() int
}

// routeIndex is an insertion-ordered map of routes. Replacing an existing
// key keeps the key's original position.
type routeIndex struct {
	keys   []string
	routes map[string]*Route
}

func newRouteIndex() *routeIndex {
	return &routeIndex{routes: make(map[string]*Route)}
}

func (i *routeIndex) set(key string, route *Route) {
	if _, ok := i.routes[key]; !ok {
		i.keys = append(i.keys, key)
	}
	i.routes[key] = route
}

func (i *routeIndex) get(key string) *Route {
	return i.routes[key]
}

func (i *routeIndex) values() []*Route {
	out := make([]*Route, len(i.keys))
	for n, key := range i.keys {
		out[n] = i.routes[key]
	}
	return out
}

// unique returns every distinct route in order of first appearance.
func (i *routeIndex) unique() []*Route {
	seen := make(map[*Route]bool, len(i.keys))
	out := make([]*Route, 0, len(i.keys))
	for _, key := range i.keys {
		r := i.routes[key]
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// RouteTable holds registered routes indexed by method, name and action.
// The name and action indexes are caches over the route list and can be
// rebuilt with RefreshNameLookups and RefreshActionLookups.
//
// A RouteTable is populated during boot and only read afterwards; it does
// not synchronise concurrent registration with matching.
type RouteTable struct {
	byMethod map[string]*routeIndex
	all      *routeIndex
	byName   map[string]*Route
	byAction map[string]*Route
}

var _ RouteCollection = (*RouteTable)(nil)

// NewRouteTable returns an empty route table.
func NewRouteTable() *RouteTable {
	return &RouteTable{
		byMethod: make(map[string]*routeIndex),
		all:      newRouteIndex(),
		byName:   make(map[string]*Route),
		byAction: make(map[string]*Route),
	}
}

// Add registers route under each of its methods. A route with the same
// method, domain and URI as an earlier one replaces it for that method.
// Name and action lookups are updated; the last registration of a name
// wins.
func (t *RouteTable) Add(route *Route) *Route {
	key := route.key()
	for _, method := range route.methods {
		idx, ok := t.byMethod[method]
		if !ok {
			idx = newRouteIndex()
			t.byMethod[method] = idx
		}
		idx.set(key, route)
		t.all.set(method+key, route)
	}

	t.addLookups(route)

	return route
}

func (t *RouteTable) addLookups(route *Route) {
	if route.name != "" {
		t.byName[route.name] = route
	}
	if route.handler.kind == HandlerClassMethod {
		t.byAction[route.handler.String()] = route
	}
}

// RefreshNameLookups rebuilds the name index from the route list.
func (t *RouteTable) RefreshNameLookups() {
	t.byName = make(map[string]*Route, len(t.byName))
	for _, route := range t.all.unique() {
		if route.name != "" {
			t.byName[route.name] = route
		}
	}
}

// RefreshActionLookups rebuilds the action index from the route list.
func (t *RouteTable) RefreshActionLookups() {
	t.byAction = make(map[string]*Route, len(t.byAction))
	for _, route := range t.all.unique() {
		if route.handler.kind == HandlerClassMethod {
			t.byAction[route.handler.String()] = route
		}
	}
}

// Get returns the routes registered for method in registration order. With
// an empty method every distinct route is returned once.
func (t *RouteTable) Get(method string) []*Route {
	if method == "" {
		return t.all.unique()
	}
	if idx, ok := t.byMethod[method]; ok {
		return idx.values()
	}
	return nil
}

// ByName returns the route registered under name, or nil.
func (t *RouteTable) ByName(name string) *Route {
	return t.byName[name]
}

// HasNamedRoute reports whether a route is registered under name.
func (t *RouteTable) HasNamedRoute(name string) bool {
	return t.ByName(name) != nil
}

// ByAction returns the route whose action is "Class@method", or nil.
func (t *RouteTable) ByAction(action string) *Route {
	return t.byAction[action]
}

// Count returns the number of distinct routes.
func (t *RouteTable) Count() int {
	return len(t.all.unique())
}

// Match finds the route for req. See MatchRequest for the rules.
func (t *RouteTable) Match(req Request) (*Route, error) {
	return MatchRequest(t, req)
}
