package mux

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareResolver(t *testing.T) {
	t.Run("dedup keeps first occurrence", func(t *testing.T) {
		m := NewMiddlewareResolver()

		assert.Equal(t, []string{"auth", "throttle"}, m.Resolve([]string{"auth", "throttle", "auth"}, nil))
		assert.Equal(t, []string{"auth"}, m.Resolve([]string{"auth", "throttle", "auth"}, []string{"throttle"}))
	})

	t.Run("aliases keep parameters", func(t *testing.T) {
		m := NewMiddlewareResolver().Alias("throttle", "rate.Limit")

		assert.Equal(t, []string{"rate.Limit:60,1"}, m.Resolve([]string{"throttle:60,1"}, nil))
	})

	t.Run("groups expand recursively", func(t *testing.T) {
		m := NewMiddlewareResolver().
			Alias("auth", "app.Authenticate").
			Group("web", "session", "csrf").
			Group("admin", "web", "auth")

		assert.Equal(t, []string{"session", "csrf", "app.Authenticate"}, m.Resolve([]string{"admin"}, nil))
	})

	t.Run("cycles terminate", func(t *testing.T) {
		m := NewMiddlewareResolver().
			Group("a", "b", "x").
			Group("b", "a", "y").
			Alias("p", "q").
			Alias("q", "p")

		assert.Equal(t, []string{"y", "x"}, m.Resolve([]string{"a"}, nil))
		assert.NotPanics(t, func() { m.Resolve([]string{"p"}, nil) })
	})

	t.Run("exclusions", func(t *testing.T) {
		m := NewMiddlewareResolver().
			Alias("auth", "app.Authenticate").
			Group("web", "session", "csrf").
			Extends("app.AuthenticateSession", "app.Authenticate")

		tests := []struct {
			name     string
			req      []string
			excluded []string
			expected []string
		}{
			{name: "by alias", req: []string{"auth", "log"}, excluded: []string{"auth"}, expected: []string{"log"}},
			{name: "by group", req: []string{"web", "log"}, excluded: []string{"web"}, expected: []string{"log"}},
			{name: "by base identifier", req: []string{"throttle:60,1", "log"}, excluded: []string{"throttle"}, expected: []string{"log"}},
			{name: "exact with parameters", req: []string{"throttle:60,1", "throttle:10,1"}, excluded: []string{"throttle:10,1"}, expected: []string{"throttle:60,1"}},
			{name: "by ancestor", req: []string{"app.AuthenticateSession", "log"}, excluded: []string{"auth"}, expected: []string{"log"}},
			{name: "ancestor is not excluded by child", req: []string{"app.Authenticate"}, excluded: []string{"app.AuthenticateSession"}, expected: []string{"app.Authenticate"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.expected, m.Resolve(tt.req, tt.excluded))
			})
		}
	})

	t.Run("priority sort", func(t *testing.T) {
		m := NewMiddlewareResolver().SetPriority("session", "auth", "bindings")

		got := m.Resolve([]string{"log", "bindings", "cors", "auth", "session"}, nil)
		assert.Equal(t, []string{"log", "session", "cors", "auth", "bindings"}, got)
	})

	t.Run("priority sort is stable", func(t *testing.T) {
		m := NewMiddlewareResolver().SetPriority("auth")

		got := m.Resolve([]string{"b", "auth:admin", "a", "auth:user"}, nil)
		assert.Equal(t, []string{"b", "auth:admin", "a", "auth:user"}, got)
	})

	t.Run("child sorts at parent priority", func(t *testing.T) {
		m := NewMiddlewareResolver().
			SetPriority("session", "auth").
			Extends("auth.session", "session")

		got := m.Resolve([]string{"auth", "auth.session"}, nil)
		assert.Equal(t, []string{"auth.session", "auth"}, got)
	})

	t.Run("group edits", func(t *testing.T) {
		m := NewMiddlewareResolver().Group("web", "session")
		m.PrependToGroup("web", "cookies").AppendToGroup("web", "csrf").AppendToGroup("web", "csrf")

		assert.Equal(t, []string{"cookies", "session", "csrf"}, m.Groups()["web"])
	})
}

func TestMiddlewareRegistry(t *testing.T) {
	tag := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Add("X-Order", name)
				next.ServeHTTP(w, r)
			})
		}
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Add("X-Order", "handler")
	})

	t.Run("first identifier is outermost", func(t *testing.T) {
		reg := NewMiddlewareRegistry()
		reg.Register("a", tag("a"))
		reg.Register("b", tag("b"))

		h, err := reg.Build([]string{"a", "b"}, final)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"a", "b", "handler"}, w.Header().Values("X-Order"))
	})

	t.Run("factories receive parameters", func(t *testing.T) {
		reg := NewMiddlewareRegistry()
		reg.RegisterFactory("role", func(params []string) (MiddlewareFunc, error) {
			return tag("role=" + strings.Join(params, "|")), nil
		})

		h, err := reg.Build([]string{"role:admin,editor"}, final)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "role=admin|editor", w.Header().Values("X-Order")[0])
	})

	t.Run("unknown identifier", func(t *testing.T) {
		reg := NewMiddlewareRegistry()

		_, err := reg.Build([]string{"missing"}, final)
		require.ErrorIs(t, err, ErrHandlerNotFound)
		assert.False(t, reg.Has("missing"))
	})

	t.Run("factory failure", func(t *testing.T) {
		reg := NewMiddlewareRegistry()
		boom := errors.New("boom")
		reg.RegisterFactory("bad", func([]string) (MiddlewareFunc, error) { return nil, boom })

		_, err := reg.Build([]string{"bad:1"}, final)
		assert.ErrorIs(t, err, ErrHandlerNotFound)
		assert.ErrorIs(t, err, boom)
	})
}
