package routecache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/waypoint/mux"
)

type pageController struct{}

func (pageController) Show(w http.ResponseWriter, r *http.Request) {
	page, _ := mux.VarGet(r, "page")
	w.Write([]byte("page " + page))
}

func container() mux.Container {
	return mux.NewMapContainer().Instance("PageController", pageController{})
}

func declarePages(r *mux.Router) error {
	r.Get("/pages/{page}", "PageController@Show").WhereNumber("page").Name("pages.show")
	r.Post("/pages", "PageController@Store").Name("pages.store")
	return nil
}

func compiledPages(t *testing.T) *mux.CompiledTable {
	t.Helper()

	r := mux.NewRouter()
	require.NoError(t, declarePages(r))
	table, err := r.Compile()
	require.NoError(t, err)
	return table
}

func TestStore(t *testing.T) {
	t.Run("save and load", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "cache", "routes.bin"))
		assert.False(t, s.Exists())

		require.NoError(t, s.Save(compiledPages(t)))
		assert.True(t, s.Exists())

		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())

		table, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, table.Count())
		assert.Equal(t, "/pages/{page}", table.ByName("pages.show").URI())
	})

	t.Run("custom permissions", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"), WithPermissions(0o600))
		require.NoError(t, s.Save(compiledPages(t)))

		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("save leaves no temporary files", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore(filepath.Join(dir, "routes.bin"))
		require.NoError(t, s.Save(compiledPages(t)))
		require.NoError(t, s.Save(compiledPages(t)))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "routes.bin", entries[0].Name())
	})

	t.Run("missing file", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"))

		_, err := s.Load(context.Background())
		assert.ErrorIs(t, err, ErrNotCached)
	})

	t.Run("foreign version", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"))
		require.NoError(t, os.WriteFile(s.Path(), []byte{9, '{', '}'}, 0o644))

		_, err := s.Load(context.Background())
		assert.ErrorIs(t, err, mux.ErrCacheVersion)
	})

	t.Run("canceled context", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"))
		require.NoError(t, s.Save(compiledPages(t)))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		table, err := s.Load(ctx)
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
			return
		}
		assert.NotNil(t, table)
	})

	t.Run("concurrent loads get separate tables", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"))
		require.NoError(t, s.Save(compiledPages(t)))

		const n = 8
		tables := make([]*mux.CompiledTable, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Go(func() {
				table, err := s.Load(context.Background())
				assert.NoError(t, err)
				tables[i] = table
			})
		}
		wg.Wait()

		for i := 1; i < n; i++ {
			require.NotNil(t, tables[i])
			assert.NotSame(t, tables[0], tables[i])
			assert.Equal(t, tables[0].Count(), tables[i].Count())
		}
	})

	t.Run("clear", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"))
		require.NoError(t, s.Save(compiledPages(t)))

		require.NoError(t, s.Clear())
		assert.False(t, s.Exists())
		assert.NoError(t, s.Clear())
	})

	t.Run("closure routes cannot be saved", func(t *testing.T) {
		r := mux.NewRouter()
		r.Get("/inline", func(http.ResponseWriter, *http.Request) {})

		_, err := r.Compile()
		assert.ErrorIs(t, err, mux.ErrUncacheableRoute)
	})
}

func TestBootstrap(t *testing.T) {
	t.Run("routes from cache", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"))
		require.NoError(t, s.Save(compiledPages(t)))

		declared := false
		r := mux.NewRouter(mux.WithContainer(container()))
		fromCache, err := Bootstrap(context.Background(), r, s, func(*mux.Router) error {
			declared = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, fromCache)
		assert.False(t, declared)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pages/3", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "page 3", w.Body.String())

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pages/x", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)

		u, err := r.URL("pages.show", "page", "9")
		require.NoError(t, err)
		assert.Equal(t, "/pages/9", u.String())
	})

	t.Run("declares without cache", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"))

		r := mux.NewRouter(mux.WithContainer(container()))
		fromCache, err := Bootstrap(context.Background(), r, s, declarePages)
		require.NoError(t, err)
		assert.False(t, fromCache)
		assert.NotNil(t, r.Route("pages.show"))
	})

	t.Run("stale cache falls back to declarations", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"))
		require.NoError(t, os.WriteFile(s.Path(), []byte{0}, 0o644))

		r := mux.NewRouter()
		fromCache, err := Bootstrap(context.Background(), r, s, declarePages)
		require.NoError(t, err)
		assert.False(t, fromCache)
		assert.NotNil(t, r.Route("pages.store"))
	})

	t.Run("declaration error", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "routes.bin"))
		boom := errors.New("boom")

		_, err := Bootstrap(context.Background(), mux.NewRouter(), s, func(*mux.Router) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unreadable cache", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore(dir)

		_, err := Bootstrap(context.Background(), mux.NewRouter(), s, declarePages)
		assert.Error(t, err)
	})
}
