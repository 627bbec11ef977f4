package mux

import (
	"fmt"
	"net/http"
	"reflect"
	"sync"
)

// Container makes instances of the classes named by route actions.
type Container interface {
	Make(class string) (any, error)
}

// ContainerFunc adapts a function to the Container interface.
type ContainerFunc func(class string) (any, error)

// Make calls f(class).
func (f ContainerFunc) Make(class string) (any, error) {
	return f(class)
}

// MapContainer is a Container backed by a map of factories.
type MapContainer struct {
	mu        sync.RWMutex
	factories map[string]func() (any, error)
}

// NewMapContainer returns an empty MapContainer.
func NewMapContainer() *MapContainer {
	return &MapContainer{factories: make(map[string]func() (any, error))}
}

// Bind registers a factory for class.
func (c *MapContainer) Bind(class string, factory func() (any, error)) *MapContainer {
	c.mu.Lock()
	c.factories[class] = factory
	c.mu.Unlock()
	return c
}

// Instance registers a shared instance for class.
func (c *MapContainer) Instance(class string, v any) *MapContainer {
	return c.Bind(class, func() (any, error) { return v, nil })
}

// Make implements Container.
func (c *MapContainer) Make(class string) (any, error) {
	c.mu.RLock()
	factory, ok := c.factories[class]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("class %q is not bound", class)
	}
	return factory()
}

var handlerFuncType = reflect.TypeOf(func(http.ResponseWriter, *http.Request) {})

// resolveHandler turns a route action into something that serves requests.
//
// Callable handlers are used as is. A class/method action makes the class
// through the container and binds the named method, which must have the
// signature of an http.HandlerFunc. An unresolved action names an
// invokable class whose instance must implement http.Handler.
func resolveHandler(h Handler, c Container) (http.Handler, error) {
	switch h.kind {
	case HandlerCallable:
		if h.callable == nil {
			return nil, &HandlerNotFoundError{Action: h.String(), Reason: "nil callable"}
		}
		return h.callable, nil

	case HandlerClassMethod:
		inst, err := makeInstance(h, h.class, c)
		if err != nil {
			return nil, err
		}

		m := reflect.ValueOf(inst).MethodByName(h.method)
		if !m.IsValid() {
			return nil, &HandlerNotFoundError{
				Action: h.String(),
				Reason: fmt.Sprintf("method %s does not exist on %T", h.method, inst),
			}
		}
		if !m.Type().ConvertibleTo(handlerFuncType) {
			return nil, &HandlerNotFoundError{
				Action: h.String(),
				Reason: fmt.Sprintf("method %s has signature %s", h.method, m.Type()),
			}
		}
		return http.HandlerFunc(m.Convert(handlerFuncType).Interface().(func(http.ResponseWriter, *http.Request))), nil

	default:
		if h.raw == "" {
			return nil, &HandlerNotFoundError{Reason: "route has no action"}
		}

		inst, err := makeInstance(h, h.raw, c)
		if err != nil {
			return nil, err
		}
		handler, ok := inst.(http.Handler)
		if !ok {
			return nil, &HandlerNotFoundError{
				Action: h.String(),
				Reason: fmt.Sprintf("%T is not invokable", inst),
			}
		}
		return handler, nil
	}
}

func makeInstance(h Handler, class string, c Container) (any, error) {
	if c == nil {
		return nil, &HandlerNotFoundError{Action: h.String(), Reason: "no container configured"}
	}

	inst, err := c.Make(class)
	if err != nil {
		return nil, &HandlerNotFoundError{Action: h.String(), Err: err}
	}
	if inst == nil {
		return nil, &HandlerNotFoundError{Action: h.String(), Reason: "container returned nil"}
	}
	return inst, nil
}
