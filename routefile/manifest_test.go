package routefile

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/waypoint/mux"
)

const manifestYAML = `
routes:
  - methods: [get]
    uri: /users/{id}
    action: UserController@Show
    name: users.show
    where: {id: number}
    middleware: [auth]
  - methods: [POST]
    uri: /users
    action: UserController@Store
    name: users.store
    without_middleware: [csrf]
  - uri: /posts/{slug}/{page?}
    action: PostController@Show
    name: posts.show
    defaults: {page: "1"}
    where: {slug: slug}
  - uri: /dashboard
    action: DashboardController@Show
    domain: "{account}.example.com"
    name: tenant.dashboard
groups:
  - prefix: admin
    name: admin.
    controller: AdminController
    middleware: [auth, admin]
    where: {id: "[0-9]+"}
    routes:
      - uri: /reports/{id}
        action: Report
        name: reports.show
    groups:
      - prefix: settings
        name: settings.
        routes:
          - methods: [PUT]
            uri: /
            action: Update
            name: update
  - prefix: docs
    routes:
      - fallback: true
        action: DocsController@Missing
redirects:
  - from: /home
    to: /
    status: 301
`

type userController struct{}

func (userController) Show(w http.ResponseWriter, r *http.Request) {
	id, _ := mux.VarGet(r, "id")
	w.Write([]byte("user " + id))
}

func TestParse(t *testing.T) {
	t.Run("manifest", func(t *testing.T) {
		m, err := Parse(strings.NewReader(manifestYAML))
		require.NoError(t, err)

		require.Len(t, m.Routes, 4)
		require.Len(t, m.Groups, 2)
		require.Len(t, m.Redirects, 1)
		assert.Equal(t, []string{"get"}, m.Routes[0].Methods)
		assert.Equal(t, "number", m.Routes[0].Where["id"])
		assert.Len(t, m.Groups[0].Groups, 1)
		assert.True(t, m.Groups[1].Routes[0].Fallback)
	})

	t.Run("empty document", func(t *testing.T) {
		m, err := Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, m.Routes)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			doc  string
		}{
			{"unknown key", "routes:\n  - uri: /a\n    action: A\n    verb: GET\n"},
			{"missing action", "routes:\n  - uri: /a\n"},
			{"missing uri", "routes:\n  - action: A\n"},
			{"unknown method", "routes:\n  - methods: [FETCH]\n    uri: /a\n    action: A\n"},
			{"empty middleware", "routes:\n  - uri: /a\n    action: A\n    middleware: ['']\n"},
			{"redirect status", "redirects:\n  - from: /a\n    to: /b\n    status: 200\n"},
			{"nested route", "groups:\n  - prefix: x\n    routes:\n      - uri: /a\n"},
			{"malformed", "routes: [\n"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Parse(strings.NewReader(tt.doc))
				assert.Error(t, err)
			})
		}
	})

	t.Run("validation errors use yaml names", func(t *testing.T) {
		_, err := Parse(strings.NewReader("routes:\n  - uri: /a\n"))
		require.Error(t, err)

		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "action", verrs[0].Field())
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifestYAML), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.Routes, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestManifestRegister(t *testing.T) {
	m, err := Parse(strings.NewReader(manifestYAML))
	require.NoError(t, err)

	r := mux.NewRouter(mux.WithContainer(mux.NewMapContainer().Instance("UserController", userController{})))
	r.Registry().Register("auth", func(next http.Handler) http.Handler { return next })
	require.NoError(t, m.Register(r))

	t.Run("attributes", func(t *testing.T) {
		show := r.Route("users.show")
		require.NotNil(t, show)
		assert.Equal(t, []string{http.MethodGet}, show.Methods())
		assert.Equal(t, []string{"auth"}, show.Middleware())

		store := r.Route("users.store")
		require.NotNil(t, store)
		assert.Equal(t, []string{"csrf"}, store.ExcludedMiddleware())

		posts := r.Route("posts.show")
		require.NotNil(t, posts)
		assert.Equal(t, []string{http.MethodGet, http.MethodHead}, posts.Methods())
		assert.Equal(t, map[string]string{"page": "1"}, posts.Defaults())

		tenant := r.Route("tenant.dashboard")
		require.NotNil(t, tenant)
		assert.Equal(t, "{account}.example.com", tenant.Domain())
	})

	t.Run("groups", func(t *testing.T) {
		report := r.Route("admin.reports.show")
		require.NotNil(t, report)
		assert.Equal(t, "/admin/reports/{id}", report.URI())
		assert.Equal(t, "AdminController@Report", report.Action())
		assert.Equal(t, []string{"auth", "admin"}, report.Middleware())
		assert.Equal(t, "[0-9]+", report.Wheres()["id"])

		update := r.Route("admin.settings.update")
		require.NotNil(t, update)
		assert.Equal(t, []string{http.MethodPut}, update.Methods())
		assert.Equal(t, "AdminController@Update", update.Action())
	})

	t.Run("dispatch", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/12", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user 12", w.Body.String())

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/abc", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/home", nil))
		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("fallback", func(t *testing.T) {
		route, err := r.Find(mux.NewRequest(http.MethodGet, "/docs/anything/at/all"))
		require.NoError(t, err)
		assert.True(t, route.IsFallback())
		assert.Equal(t, "DocsController@Missing", route.Action())
	})

	t.Run("macro constraints", func(t *testing.T) {
		_, err := r.Find(mux.NewRequest(http.MethodGet, "/posts/my-post/2"))
		assert.NoError(t, err)

		_, err = r.Find(mux.NewRequest(http.MethodGet, "/posts/-bad-/2"))
		assert.ErrorIs(t, err, mux.ErrRouteNotFound)
	})
}

func TestExpandConstraints(t *testing.T) {
	assert.Nil(t, expandConstraints(nil))

	number, ok := mux.LookupConstraint("number")
	require.True(t, ok)

	got := expandConstraints(map[string]string{"id": "number", "code": "[A-Z]{3}"})
	assert.Equal(t, number, got["id"])
	assert.Equal(t, "[A-Z]{3}", got["code"])
}
