package mux

import (
	"fmt"
	"net/http"
	"strings"
)

// HandlerKind identifies the variant held by a Handler.
type HandlerKind uint8

const (
	// HandlerUnresolved is a raw action string, typically the name of an
	// invokable class resolved through the Container.
	HandlerUnresolved HandlerKind = iota
	// HandlerCallable is an in-process http.Handler.
	HandlerCallable
	// HandlerClassMethod is a class name and method pair resolved through
	// the Container at invocation time.
	HandlerClassMethod
)

func (k HandlerKind) String() string {
	switch k {
	case HandlerCallable:
		return "callable"
	case HandlerClassMethod:
		return "class_method"
	default:
		return "unresolved"
	}
}

// actionSeparator splits the class and method of a "Class@method" action.
const actionSeparator = "@"

// Handler is the action of a route.
type Handler struct {
	kind     HandlerKind
	callable http.Handler
	class    string
	method   string
	raw      string
}

// Callable returns a handler that serves requests with h.
func Callable(h http.Handler) Handler {
	return Handler{kind: HandlerCallable, callable: h}
}

// CallableFunc returns a handler that serves requests with f.
func CallableFunc(f func(http.ResponseWriter, *http.Request)) Handler {
	return Callable(http.HandlerFunc(f))
}

// ClassMethod returns a handler that invokes method on the instance the
// Container makes for class.
func ClassMethod(class, method string) Handler {
	return Handler{kind: HandlerClassMethod, class: class, method: method}
}

// Action parses a "Class@method" string into a class/method handler. Any
// other string is kept unresolved until route finalisation.
func Action(raw string) Handler {
	if class, method, ok := strings.Cut(raw, actionSeparator); ok && class != "" && method != "" {
		return ClassMethod(class, method)
	}
	return Handler{kind: HandlerUnresolved, raw: raw}
}

// toHandler converts the loosely typed handler values accepted by the
// Router verb helpers.
func toHandler(v any) (Handler, error) {
	switch h := v.(type) {
	case Handler:
		return h, nil
	case http.Handler:
		return Callable(h), nil
	case func(http.ResponseWriter, *http.Request):
		return CallableFunc(h), nil
	case string:
		return Action(h), nil
	case [2]string:
		return ClassMethod(h[0], h[1]), nil
	case []string:
		if len(h) == 2 {
			return ClassMethod(h[0], h[1]), nil
		}
	case nil:
		return Handler{}, nil
	}
	return Handler{}, fmt.Errorf("mux: unsupported handler type %T", v)
}

// Kind returns the handler variant.
func (h Handler) Kind() HandlerKind {
	return h.kind
}

// Callable returns the in-process handler, or nil for other variants.
func (h Handler) Callable() http.Handler {
	return h.callable
}

// Class returns the class name of a class/method handler.
func (h Handler) Class() string {
	return h.class
}

// Method returns the method name of a class/method handler.
func (h Handler) Method() string {
	return h.method
}

// Raw returns the unresolved action string.
func (h Handler) Raw() string {
	return h.raw
}

// IsZero reports whether no action was set.
func (h Handler) IsZero() bool {
	return h.kind == HandlerUnresolved && h.raw == ""
}

// String returns the canonical action identifier: "Class@method" for
// class/method handlers, the raw string for unresolved ones, and
// "callable" for in-process handlers.
func (h Handler) String() string {
	switch h.kind {
	case HandlerCallable:
		return "callable"
	case HandlerClassMethod:
		return h.class + actionSeparator + h.method
	default:
		return h.raw
	}
}

// resolve applies the group controller and namespace. A bare method name
// inside a controller group becomes a class/method pair; class names are
// qualified with the namespace.
func (h Handler) resolve(controller, namespace string) Handler {
	switch h.kind {
	case HandlerClassMethod:
		return ClassMethod(qualifyClass(namespace, h.class), h.method)
	case HandlerUnresolved:
		if h.raw == "" {
			return h
		}
		if resolved := Action(h.raw); resolved.kind == HandlerClassMethod {
			return resolved.resolve(controller, namespace)
		}
		if controller != "" {
			return ClassMethod(qualifyClass(namespace, controller), h.raw)
		}
		return Handler{kind: HandlerUnresolved, raw: qualifyClass(namespace, h.raw)}
	}
	return h
}

// qualifyClass prefixes class with namespace unless it is already
// qualified with it.
func qualifyClass(namespace, class string) string {
	namespace = strings.Trim(namespace, ".")
	if namespace == "" || class == namespace || strings.HasPrefix(class, namespace+".") {
		return class
	}
	return namespace + "." + class
}
