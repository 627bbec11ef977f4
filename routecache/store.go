// Package routecache persists compiled route tables so a process can boot
// its router without evaluating route declarations.
package routecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/vitalvas/waypoint/mux"
	"golang.org/x/sync/singleflight"
)

// DefaultFilePermissions is applied to cache files written by Save.
const DefaultFilePermissions = 0o644

// ErrNotCached is returned by Load when the cache file does not exist.
var ErrNotCached = errors.New("routecache: no cached routes")

// Store reads and writes one cache file. It is safe for concurrent use;
// concurrent loads share a single read of the file.
type Store struct {
	path        string
	permissions os.FileMode
	logger      zerolog.Logger
	sfg         singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPermissions overrides DefaultFilePermissions.
func WithPermissions(perm os.FileMode) Option {
	return func(s *Store) {
		s.permissions = perm
	}
}

// NewStore returns a store for the cache file at path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		permissions: DefaultFilePermissions,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the cache file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the cache file is present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Save encodes table and replaces the cache file. The file is written to a
// temporary sibling first and renamed, so readers never observe a partial
// file.
func (s *Store) Save(table *mux.CompiledTable) error {
	data, err := table.MarshalBinary()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("routecache: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("routecache: create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("routecache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("routecache: write: %w", err)
	}
	if err := os.Chmod(tmpName, s.permissions); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("routecache: chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("routecache: replace: %w", err)
	}

	s.logger.Info().
		Str("path", s.path).
		Int("routes", table.Count()).
		Int("bytes", len(data)).
		Msg("route cache written")

	return nil
}

// Load reads and decodes the cache file. Each caller receives its own
// table, so routes added to one router do not leak into another. A missing
// file yields ErrNotCached; a file written by an incompatible version yields
// an error matching mux.ErrCacheVersion.
func (s *Store) Load(ctx context.Context) (*mux.CompiledTable, error) {
	ch := s.sfg.DoChan(s.path, func() (any, error) {
		data, err := os.ReadFile(s.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotCached, s.path)
		}
		if err != nil {
			return nil, fmt.Errorf("routecache: read: %w", err)
		}
		return data, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	table := new(mux.CompiledTable)
	if err := table.UnmarshalBinary(res.Val.([]byte)); err != nil {
		return nil, fmt.Errorf("routecache: %s: %w", s.path, err)
	}

	s.logger.Debug().
		Str("path", s.path).
		Int("routes", table.Count()).
		Bool("shared", res.Shared).
		Msg("route cache loaded")

	return table, nil
}

// Clear removes the cache file. Removing a missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("routecache: remove: %w", err)
	}

	s.logger.Info().Str("path", s.path).Msg("route cache cleared")
	return nil
}
