package mux

import (
	"maps"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"
)

// MiddlewareResolver expands route middleware declarations into the
// ordered list of concrete identifiers run around a handler.
//
// Aliases map a short name to an identifier ("auth" to "app.Authenticate"),
// groups map a name to a list of names ("web"), and the priority list fixes
// the relative order of identifiers that must run before others. Parameters
// after a colon ("throttle:60,1") survive alias expansion.
//
// The resolver is configured during boot and read-only afterwards.
type MiddlewareResolver struct {
	aliases  map[string]string
	groups   map[string][]string
	priority []string
	parents  map[string][]string
}

// NewMiddlewareResolver returns a resolver without aliases, groups or
// priorities.
func NewMiddlewareResolver() *MiddlewareResolver {
	return &MiddlewareResolver{
		aliases: make(map[string]string),
		groups:  make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// Alias maps name to id.
func (m *MiddlewareResolver) Alias(name, id string) *MiddlewareResolver {
	m.aliases[name] = id
	return m
}

// Group defines or replaces the middleware group name.
func (m *MiddlewareResolver) Group(name string, ids ...string) *MiddlewareResolver {
	m.groups[name] = slices.Clone(ids)
	return m
}

// PrependToGroup adds id to the front of a group unless already present.
func (m *MiddlewareResolver) PrependToGroup(name, id string) *MiddlewareResolver {
	if !slices.Contains(m.groups[name], id) {
		m.groups[name] = append([]string{id}, m.groups[name]...)
	}
	return m
}

// AppendToGroup adds id to the end of a group unless already present.
func (m *MiddlewareResolver) AppendToGroup(name, id string) *MiddlewareResolver {
	if !slices.Contains(m.groups[name], id) {
		m.groups[name] = append(m.groups[name], id)
	}
	return m
}

// SetPriority replaces the priority list.
func (m *MiddlewareResolver) SetPriority(ids ...string) *MiddlewareResolver {
	m.priority = slices.Clone(ids)
	return m
}

// Priority returns the priority list.
func (m *MiddlewareResolver) Priority() []string {
	return slices.Clone(m.priority)
}

// Extends declares child a specialisation of parents. Excluding a parent
// also excludes the child, and a child without its own priority sorts at
// its parent's position.
func (m *MiddlewareResolver) Extends(child string, parents ...string) *MiddlewareResolver {
	m.parents[child] = append(m.parents[child], parents...)
	return m
}

// Aliases returns a copy of the alias map.
func (m *MiddlewareResolver) Aliases() map[string]string {
	return maps.Clone(m.aliases)
}

// Groups returns a copy of the group map.
func (m *MiddlewareResolver) Groups() map[string][]string {
	out := make(map[string][]string, len(m.groups))
	for k, v := range m.groups {
		out[k] = slices.Clone(v)
	}
	return out
}

// Resolve expands requested through aliases and groups, drops duplicates
// keeping the first occurrence, removes everything matched by excluded and
// sorts the result by priority. Unknown identifiers pass through unchanged.
func (m *MiddlewareResolver) Resolve(requested, excluded []string) []string {
	var expanded []string
	for _, name := range requested {
		expanded = append(expanded, m.expand(name, map[string]bool{})...)
	}

	var exclusions []string
	for _, name := range excluded {
		exclusions = append(exclusions, m.expand(name, map[string]bool{})...)
	}

	seen := make(map[string]bool, len(expanded))
	out := make([]string, 0, len(expanded))
	for _, id := range expanded {
		if seen[id] {
			continue
		}
		seen[id] = true
		if m.isExcluded(id, exclusions) {
			continue
		}
		out = append(out, id)
	}

	return m.sortByPriority(out)
}

// expand resolves one name. visiting guards against alias and group
// cycles; a name already being expanded resolves to nothing.
func (m *MiddlewareResolver) expand(name string, visiting map[string]bool) []string {
	if visiting[name] {
		return nil
	}

	if ids, ok := m.groups[name]; ok {
		visiting[name] = true
		defer delete(visiting, name)

		var out []string
		for _, id := range ids {
			out = append(out, m.expand(id, visiting)...)
		}
		return out
	}

	base, params, _ := strings.Cut(name, ":")
	if target, ok := m.aliases[base]; ok && target != "" {
		next := target
		if params != "" {
			next += ":" + params
		}
		if next != name {
			visiting[name] = true
			defer delete(visiting, name)
			return m.expand(next, visiting)
		}
	}

	return []string{name}
}

// isExcluded reports whether id is excluded directly, by its identifier
// without parameters, or through one of its ancestors.
func (m *MiddlewareResolver) isExcluded(id string, exclusions []string) bool {
	if len(exclusions) == 0 {
		return false
	}
	if slices.Contains(exclusions, id) {
		return true
	}

	base, _ := splitMiddleware(id)
	for _, candidate := range m.lineage(base) {
		if slices.Contains(exclusions, candidate) {
			return true
		}
	}
	return false
}

// lineage returns id followed by its ancestors, breadth first.
func (m *MiddlewareResolver) lineage(id string) []string {
	out := []string{id}
	seen := map[string]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, parent := range m.parents[out[i]] {
			if !seen[parent] {
				seen[parent] = true
				out = append(out, parent)
			}
		}
	}
	return out
}

// priorityIndex returns the position of id, or of its closest ancestor, in
// the priority list.
func (m *MiddlewareResolver) priorityIndex(id string) (int, bool) {
	base, _ := splitMiddleware(id)
	for _, candidate := range m.lineage(base) {
		if i := slices.Index(m.priority, candidate); i >= 0 {
			return i, true
		}
	}
	return 0, false
}

// sortByPriority reorders the prioritised entries among the positions they
// occupy. Entries without a priority keep their positions, and entries of
// equal priority keep their relative order.
func (m *MiddlewareResolver) sortByPriority(ids []string) []string {
	if len(m.priority) == 0 || len(ids) < 2 {
		return ids
	}

	type ranked struct {
		id   string
		rank int
	}

	var (
		slots       []int
		prioritised []ranked
	)
	for i, id := range ids {
		if rank, ok := m.priorityIndex(id); ok {
			slots = append(slots, i)
			prioritised = append(prioritised, ranked{id: id, rank: rank})
		}
	}

	sort.SliceStable(prioritised, func(i, j int) bool {
		return prioritised[i].rank < prioritised[j].rank
	})

	out := slices.Clone(ids)
	for n, slot := range slots {
		out[slot] = prioritised[n].id
	}
	return out
}

// MiddlewareFactory builds a middleware from the parameters given after
// the identifier, e.g. ["60", "1"] for "throttle:60,1".
type MiddlewareFactory func(params []string) (MiddlewareFunc, error)

// MiddlewareRegistry maps concrete middleware identifiers to
// implementations and assembles them around a handler.
type MiddlewareRegistry struct {
	mu      sync.RWMutex
	entries map[string]MiddlewareFactory
}

// NewMiddlewareRegistry returns an empty registry.
func NewMiddlewareRegistry() *MiddlewareRegistry {
	return &MiddlewareRegistry{entries: make(map[string]MiddlewareFactory)}
}

// Register stores a middleware that ignores identifier parameters.
func (r *MiddlewareRegistry) Register(id string, mw MiddlewareFunc) {
	r.RegisterFactory(id, func([]string) (MiddlewareFunc, error) {
		return mw, nil
	})
}

// RegisterFactory stores a middleware built from identifier parameters.
func (r *MiddlewareRegistry) RegisterFactory(id string, factory MiddlewareFactory) {
	r.mu.Lock()
	r.entries[id] = factory
	r.mu.Unlock()
}

// Has reports whether id is registered, either exactly or by its
// identifier without parameters.
func (r *MiddlewareRegistry) Has(id string) bool {
	r.mu.RLock()
	_, _, ok := r.lookup(id)
	r.mu.RUnlock()
	return ok
}

// lookup finds the factory for id. An exact registration wins over one
// for the identifier without parameters.
func (r *MiddlewareRegistry) lookup(id string) (MiddlewareFactory, []string, bool) {
	if factory, ok := r.entries[id]; ok {
		return factory, nil, true
	}
	base, params := splitMiddleware(id)
	factory, ok := r.entries[base]
	return factory, params, ok
}

// Build wraps final with the middleware identified by ids; the first id is
// the outermost. An identifier that is not registered yields a
// *HandlerNotFoundError.
func (r *MiddlewareRegistry) Build(ids []string, final http.Handler) (http.Handler, error) {
	chain := make([]MiddlewareFunc, len(ids))

	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, id := range ids {
		factory, params, ok := r.lookup(id)
		if !ok {
			return nil, &HandlerNotFoundError{Action: id, Reason: "middleware is not registered"}
		}
		mw, err := factory(params)
		if err != nil {
			return nil, &HandlerNotFoundError{Action: id, Reason: "middleware could not be built", Err: err}
		}
		chain[i] = mw
	}

	handler := final
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i].Middleware(handler)
	}
	return handler, nil
}
