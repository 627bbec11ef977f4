package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		config  SecurityHeadersConfig
		want    map[string]string
		missing []string
	}{
		{
			name:   "defaults",
			config: SecurityHeadersConfig{},
			want: map[string]string{
				"X-Content-Type-Options": "nosniff",
				"X-Frame-Options":        "DENY",
				"Referrer-Policy":        "strict-origin-when-cross-origin",
			},
			missing: []string{"Strict-Transport-Security", "Content-Security-Policy"},
		},
		{
			name: "hsts with subdomains and preload",
			config: SecurityHeadersConfig{
				HSTSMaxAge:            31536000,
				HSTSIncludeSubDomains: true,
				HSTSPreload:           true,
			},
			want: map[string]string{
				"Strict-Transport-Security": "max-age=31536000; includeSubDomains; preload",
			},
		},
		{
			name: "policies",
			config: SecurityHeadersConfig{
				FrameOption:             "SAMEORIGIN",
				ContentSecurityPolicy:   "default-src 'self'",
				CrossOriginOpenerPolicy: "same-origin",
				PermissionsPolicy:       "camera=()",
			},
			want: map[string]string{
				"X-Frame-Options":            "SAMEORIGIN",
				"Content-Security-Policy":    "default-src 'self'",
				"Cross-Origin-Opener-Policy": "same-origin",
				"Permissions-Policy":         "camera=()",
			},
		},
		{
			name:    "nosniff disabled",
			config:  SecurityHeadersConfig{DisableContentTypeNosniff: true},
			missing: []string{"X-Content-Type-Options"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := SecurityHeadersMiddleware(tt.config)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			for name, value := range tt.want {
				assert.Equal(t, value, w.Header().Get(name), name)
			}
			for _, name := range tt.missing {
				assert.Empty(t, w.Header().Get(name), name)
			}
		})
	}

	t.Run("invalid frame option", func(t *testing.T) {
		_, err := SecurityHeadersMiddleware(SecurityHeadersConfig{FrameOption: "ALLOW-FROM x"})
		assert.ErrorIs(t, err, ErrInvalidFrameOption)
	})
}

func TestSecurityHeadersFactory(t *testing.T) {
	base := SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'self'"}

	t.Run("parameters override the base", func(t *testing.T) {
		mw, err := SecurityHeadersFactory(base)([]string{"frame=sameorigin", "hsts=600", "referrer=no-referrer", "coop=same-origin"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		mw.Middleware(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "max-age=600", w.Header().Get("Strict-Transport-Security"))
		assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
		assert.Equal(t, "same-origin", w.Header().Get("Cross-Origin-Opener-Policy"))
		assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	})

	t.Run("invalid parameters", func(t *testing.T) {
		for _, params := range [][]string{{"hsts=year"}, {"color=red"}, {"frame=allow"}} {
			_, err := SecurityHeadersFactory(base)(params)
			assert.Error(t, err, params)
		}
	})
}
