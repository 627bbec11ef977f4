package mux

import "maps"

// GroupAttributes are the attributes shared by the routes of a group. Each
// field is a delta against the enclosing group.
type GroupAttributes struct {
	// Name is appended to the enclosing name with a dot.
	Name string
	// Prefix is appended to the enclosing path prefix with a slash.
	Prefix string
	// Controller is the default class for routes whose action is a bare
	// method name.
	Controller string
	// Namespace qualifies class names of route actions. The innermost
	// namespace wins.
	Namespace string
	// Domain restricts routes to a host template.
	Domain string
	// Middleware is appended to the enclosing middleware.
	Middleware []string
	// WithoutMiddleware is appended to the enclosing exclusions.
	WithoutMiddleware []string
	// Where holds parameter constraints; inner groups override outer ones.
	Where map[string]string
}

// GroupContext is the stack of groups active while routes are declared.
// It is used during registration only and is not safe for concurrent use.
type GroupContext struct {
	stack []GroupAttributes
}

// NewGroupContext returns an empty group stack.
func NewGroupContext() *GroupContext {
	return &GroupContext{}
}

// Enter pushes a group.
func (g *GroupContext) Enter(attrs GroupAttributes) {
	g.stack = append(g.stack, attrs)
}

// Leave pops the innermost group. It reports false when no group is active.
func (g *GroupContext) Leave() bool {
	if len(g.stack) == 0 {
		return false
	}
	g.stack = g.stack[:len(g.stack)-1]
	return true
}

// Depth returns the number of active groups.
func (g *GroupContext) Depth() int {
	return len(g.stack)
}

// Current aggregates every active group into a single set of attributes.
func (g *GroupContext) Current() GroupAttributes {
	var (
		agg      GroupAttributes
		names    []string
		prefixes []string
	)

	for _, frame := range g.stack {
		names = append(names, frame.Name)
		prefixes = append(prefixes, frame.Prefix)

		if frame.Controller != "" {
			agg.Controller = frame.Controller
		}
		if frame.Namespace != "" {
			agg.Namespace = frame.Namespace
		}
		if frame.Domain != "" {
			agg.Domain = frame.Domain
		}

		agg.Middleware = append(agg.Middleware, frame.Middleware...)
		agg.WithoutMiddleware = append(agg.WithoutMiddleware, frame.WithoutMiddleware...)

		if len(frame.Where) > 0 {
			if agg.Where == nil {
				agg.Where = make(map[string]string, len(frame.Where))
			}
			maps.Copy(agg.Where, frame.Where)
		}
	}

	agg.Name = joinName(names...)
	if len(g.stack) > 0 {
		agg.Prefix = joinPath(prefixes...)
		if agg.Prefix == "/" {
			agg.Prefix = ""
		}
	}

	return agg
}
