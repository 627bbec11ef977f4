package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/waypoint/mux"
)

// overrideRouter registers one route per verb writing the verb it served.
func overrideRouter(t *testing.T, cfg MethodOverrideConfig) *mux.Router {
	t.Helper()

	r := mux.NewRouter()
	echo := func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(req.Method))
	}
	r.Post("/posts/{id}", echo)
	r.Put("/posts/{id}", echo)
	r.Delete("/posts/{id}", echo)
	r.Get("/posts/{id}", echo)

	mw, err := MethodOverrideMiddleware(cfg)
	require.NoError(t, err)
	r.Use(mw)
	return r
}

func TestMethodOverrideMiddleware(t *testing.T) {
	t.Run("config validation", func(t *testing.T) {
		tests := []struct {
			name   string
			config MethodOverrideConfig
		}{
			{"empty string in allowed methods", MethodOverrideConfig{AllowedMethods: []string{""}}},
			{"lowercase allowed method", MethodOverrideConfig{AllowedMethods: []string{"put"}}},
			{"mixed case allowed method", MethodOverrideConfig{AllowedMethods: []string{"Put"}}},
			{"lowercase original method", MethodOverrideConfig{OriginalMethods: []string{"post"}}},
			{"empty string in original methods", MethodOverrideConfig{OriginalMethods: []string{""}}},
			{"verb without routes", MethodOverrideConfig{AllowedMethods: []string{http.MethodTrace}}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := MethodOverrideMiddleware(tt.config)
				assert.ErrorIs(t, err, ErrInvalidOverrideMethod)
			})
		}

		t.Run("zero value config uses defaults", func(t *testing.T) {
			_, err := MethodOverrideMiddleware(MethodOverrideConfig{})
			assert.NoError(t, err)
		})
	})

	t.Run("default headers route to the override verb", func(t *testing.T) {
		for _, header := range []string{"X-HTTP-Method-Override", "X-Method-Override", "X-HTTP-Method"} {
			t.Run(header, func(t *testing.T) {
				r := overrideRouter(t, MethodOverrideConfig{})

				w := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodPost, "/posts/1", nil)
				req.Header.Set(header, "delete")
				r.ServeHTTP(w, req)

				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, http.MethodDelete, w.Body.String())
				assert.Empty(t, req.Header.Get(header))
			})
		}
	})

	t.Run("first header wins", func(t *testing.T) {
		r := overrideRouter(t, MethodOverrideConfig{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/posts/1", nil)
		req.Header.Set("X-HTTP-Method-Override", "PUT")
		req.Header.Set("X-HTTP-Method", "DELETE")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.MethodPut, w.Body.String())
	})

	t.Run("non-allowed override keeps method", func(t *testing.T) {
		r := overrideRouter(t, MethodOverrideConfig{AllowedMethods: []string{http.MethodPut}})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/posts/1", nil)
		req.Header.Set("X-HTTP-Method-Override", "DELETE")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.MethodPost, w.Body.String())
	})

	t.Run("GET is not eligible by default", func(t *testing.T) {
		r := overrideRouter(t, MethodOverrideConfig{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/posts/1", nil)
		req.Header.Set("X-HTTP-Method-Override", "DELETE")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.MethodGet, w.Body.String())
	})

	t.Run("custom original methods", func(t *testing.T) {
		r := overrideRouter(t, MethodOverrideConfig{OriginalMethods: []string{http.MethodGet}})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/posts/1", nil)
		req.Header.Set("X-HTTP-Method-Override", "PUT")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.MethodPut, w.Body.String())
	})

	t.Run("form field", func(t *testing.T) {
		r := overrideRouter(t, MethodOverrideConfig{FormField: DefaultMethodFormField})

		form := url.Values{"_method": {"delete"}, "title": {"x"}}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/posts/1", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.MethodDelete, w.Body.String())
	})

	t.Run("form field ignored without form body", func(t *testing.T) {
		r := overrideRouter(t, MethodOverrideConfig{FormField: DefaultMethodFormField})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/posts/1", strings.NewReader(`{"_method":"DELETE"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.MethodPost, w.Body.String())
	})

	t.Run("form field disabled by default", func(t *testing.T) {
		r := overrideRouter(t, MethodOverrideConfig{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/posts/1", strings.NewReader("_method=PUT"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.MethodPost, w.Body.String())
	})

	t.Run("header beats form field", func(t *testing.T) {
		r := overrideRouter(t, MethodOverrideConfig{FormField: DefaultMethodFormField})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/posts/1", strings.NewReader("_method=PUT"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-HTTP-Method-Override", "DELETE")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.MethodDelete, w.Body.String())
	})
}
