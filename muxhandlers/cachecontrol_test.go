package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/waypoint/mux"
)

func TestCacheHeadersMiddleware(t *testing.T) {
	body := func(status int) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(status)
			w.Write([]byte("catalogue"))
		}
	}

	tests := []struct {
		name      string
		config    CacheHeadersConfig
		method    string
		handler   http.HandlerFunc
		wantCache string
	}{
		{
			name:      "sets cache control on GET",
			config:    CacheHeadersConfig{Directives: "public, max-age=60"},
			method:    http.MethodGet,
			handler:   body(http.StatusOK),
			wantCache: "public, max-age=60",
		},
		{
			name:      "sets cache control on HEAD",
			config:    CacheHeadersConfig{Directives: "no-store"},
			method:    http.MethodHead,
			handler:   body(http.StatusOK),
			wantCache: "no-store",
		},
		{
			name:    "skips POST",
			config:  CacheHeadersConfig{Directives: "public"},
			method:  http.MethodPost,
			handler: body(http.StatusCreated),
		},
		{
			name:    "skips error responses",
			config:  CacheHeadersConfig{Directives: "public"},
			method:  http.MethodGet,
			handler: body(http.StatusNotFound),
		},
		{
			name:   "keeps the handler value",
			config: CacheHeadersConfig{Directives: "public"},
			method: http.MethodGet,
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Cache-Control", "private")
				w.Write([]byte("mine"))
			},
			wantCache: "private",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := CacheHeadersMiddleware(tt.config)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			mw.Middleware(tt.handler).ServeHTTP(w, httptest.NewRequest(tt.method, "/catalogue", nil))

			assert.Equal(t, tt.wantCache, w.Header().Get("Cache-Control"))
		})
	}

	t.Run("expires", func(t *testing.T) {
		mw, err := CacheHeadersMiddleware(CacheHeadersConfig{Directives: "public", Expires: time.Hour})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		mw.Middleware(body(http.StatusOK)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		expires, err := http.ParseTime(w.Header().Get("Expires"))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)
	})

	t.Run("etag and conditional request", func(t *testing.T) {
		mw, err := CacheHeadersMiddleware(CacheHeadersConfig{ETag: true})
		require.NoError(t, err)
		handler := mw.Middleware(body(http.StatusOK))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		etag := w.Header().Get("ETag")
		require.NotEmpty(t, etag)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "catalogue", w.Body.String())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("If-None-Match", `"other", W/`+etag)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, etag, w.Header().Get("ETag"))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("If-None-Match", `"stale"`)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "catalogue", w.Body.String())
	})

	t.Run("etag skips error responses", func(t *testing.T) {
		mw, err := CacheHeadersMiddleware(CacheHeadersConfig{ETag: true})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		mw.Middleware(body(http.StatusNotFound)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, w.Header().Get("ETag"))
		assert.Equal(t, "catalogue", w.Body.String())
	})

	t.Run("requires a directive", func(t *testing.T) {
		_, err := CacheHeadersMiddleware(CacheHeadersConfig{})
		assert.ErrorIs(t, err, ErrNoCacheDirectives)
	})
}

func TestCacheHeadersFactory(t *testing.T) {
	t.Run("parses route parameters", func(t *testing.T) {
		cfg, err := parseCacheHeaders("public;max_age=2628000;etag;expires=30")
		require.NoError(t, err)

		assert.Equal(t, "public, max-age=2628000", cfg.Directives)
		assert.True(t, cfg.ETag)
		assert.Equal(t, 30*time.Second, cfg.Expires)
	})

	t.Run("invalid expires", func(t *testing.T) {
		_, err := CacheHeadersFactory()([]string{"public;expires=soon"})
		assert.Error(t, err)
	})

	t.Run("declared on a route", func(t *testing.T) {
		r := mux.NewRouter()
		r.Registry().RegisterFactory(IDCacheHeaders, CacheHeadersFactory())
		r.Get("/items", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("items"))
		}).Middleware("cache.headers:public;max_age=60;etag")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))
		assert.NotEmpty(t, w.Header().Get("ETag"))
	})
}

func TestETagMatches(t *testing.T) {
	tests := []struct {
		header string
		etag   string
		want   bool
	}{
		{"", `"a"`, false},
		{"*", `"a"`, true},
		{`"a"`, `"a"`, true},
		{`W/"a"`, `"a"`, true},
		{`"b", "a"`, `"a"`, true},
		{`"b"`, `"a"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, etagMatches(tt.header, tt.etag))
		})
	}
}
