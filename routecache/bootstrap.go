package routecache

import (
	"context"
	"errors"

	"github.com/vitalvas/waypoint/mux"
)

// Bootstrap installs the cached route table into r. When no usable cache
// exists, declare registers the routes instead. A cache written by an
// incompatible version is ignored and reported in the log, not as an error.
//
// It reports whether the routes came from the cache.
func Bootstrap(ctx context.Context, r *mux.Router, s *Store, declare func(*mux.Router) error) (bool, error) {
	table, err := s.Load(ctx)
	switch {
	case err == nil:
		r.LoadCompiled(table)
		return true, nil
	case errors.Is(err, mux.ErrCacheVersion):
		s.logger.Warn().Err(err).Str("path", s.path).Msg("ignoring stale route cache")
	case !errors.Is(err, ErrNotCached):
		return false, err
	}

	if declare == nil {
		return false, nil
	}
	return false, declare(r)
}
