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

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("config validation", func(t *testing.T) {
		tests := []struct {
			name    string
			config  TimeoutConfig
			wantErr error
		}{
			{"zero duration", TimeoutConfig{Duration: 0}, ErrInvalidTimeout},
			{"negative duration", TimeoutConfig{Duration: -1 * time.Second}, ErrInvalidTimeout},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := TimeoutMiddleware(tt.config)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}

		t.Run("valid duration", func(t *testing.T) {
			_, err := TimeoutMiddleware(TimeoutConfig{Duration: time.Second})
			assert.NoError(t, err)
		})
	})

	t.Run("handler completes before timeout", func(t *testing.T) {
		mw, err := TimeoutMiddleware(TimeoutConfig{Duration: 2 * time.Second})
		require.NoError(t, err)

		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("ok"))
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("handler exceeds timeout", func(t *testing.T) {
		mw, err := TimeoutMiddleware(TimeoutConfig{Duration: 10 * time.Millisecond, Message: "too slow"})
		require.NoError(t, err)

		handler := mw(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
			select {
			case <-req.Context().Done():
			case <-time.After(time.Second):
			}
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "too slow", w.Body.String())
	})
}

func TestTimeoutFactory(t *testing.T) {
	t.Run("parameters", func(t *testing.T) {
		tests := []struct {
			name    string
			params  []string
			wantErr bool
		}{
			{"default", nil, false},
			{"empty parameter uses default", []string{""}, false},
			{"duration", []string{"5s"}, false},
			{"seconds", []string{"30"}, false},
			{"with message", []string{"1m", "slow down"}, false},
			{"garbage", []string{"soon"}, true},
			{"zero", []string{"0"}, true},
			{"negative", []string{"-5s"}, true},
		}

		factory := TimeoutFactory(time.Second)
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mw, err := factory(tt.params)
				if tt.wantErr {
					assert.Error(t, err)
					assert.Nil(t, mw)
					return
				}
				assert.NoError(t, err)
				assert.NotNil(t, mw)
			})
		}
	})

	t.Run("route declaration", func(t *testing.T) {
		r := mux.NewRouter()
		r.Registry().RegisterFactory("timeout", TimeoutFactory(time.Second))
		r.Get("/slow", func(_ http.ResponseWriter, req *http.Request) {
			select {
			case <-req.Context().Done():
			case <-time.After(time.Second):
			}
		}).Middleware("timeout:10ms,late")
		r.Get("/fast", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("ok"))
		}).Middleware("timeout")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "late", w.Body.String())

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid declaration fails dispatch", func(t *testing.T) {
		r := mux.NewRouter()
		r.Registry().RegisterFactory("timeout", TimeoutFactory(time.Second))
		r.Get("/x", func(w http.ResponseWriter, _ *http.Request) {}).Middleware("timeout:never")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
