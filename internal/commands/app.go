package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/vitalvas/waypoint/mux"
	"github.com/vitalvas/waypoint/muxconfig"
	"github.com/vitalvas/waypoint/muxhandlers"
	"github.com/vitalvas/waypoint/routecache"
	"github.com/vitalvas/waypoint/routefile"
)

// GlobalOptions holds the flags shared by every command.
type GlobalOptions struct {
	ConfigFile string
	RoutesFile string
	CachePath  string
}

// app is the router assembled from the configuration.
type app struct {
	cfg    *muxconfig.Config
	logger zerolog.Logger
	router *mux.Router
	store  *routecache.Store
}

// newApp loads the configuration and prepares an empty router. Flags take
// precedence over configured paths.
func newApp(opts *GlobalOptions, stderr io.Writer) (*app, error) {
	cfg, err := muxconfig.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.RoutesFile != "" {
		cfg.Routes.File = opts.RoutesFile
	}
	if opts.CachePath != "" {
		cfg.Cache.Path = opts.CachePath
	}

	logger := cfg.Log.Logger(stderr)

	r := mux.NewRouter(mux.WithLogger(logger))
	cfg.Middleware.Apply(r.Resolver())
	if err := muxhandlers.Register(r.Registry(), cfg.Middleware.HandlerOptions(&logger)); err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		router: r,
		store:  routecache.NewStore(cfg.Cache.Path, routecache.WithLogger(logger)),
	}, nil
}

// declare registers the routes of the configured manifest.
func (a *app) declare(r *mux.Router) error {
	if a.cfg.Routes.File == "" {
		return fmt.Errorf("no route file configured")
	}

	m, err := routefile.Load(a.cfg.Routes.File)
	if err != nil {
		return err
	}
	return m.Register(r)
}

// load fills the router from the cache when caching is enabled and falls
// back to the manifest otherwise.
func (a *app) load(ctx context.Context) (bool, error) {
	if !a.cfg.Cache.Enabled {
		return false, a.declare(a.router)
	}
	return routecache.Bootstrap(ctx, a.router, a.store, a.declare)
}
