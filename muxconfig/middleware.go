package muxconfig

import (
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"github.com/vitalvas/waypoint/mux"
	"github.com/vitalvas/waypoint/muxhandlers"
)

// Apply installs the aliases, groups and priority list of c into m.
// Groups replace existing groups of the same name; a non-empty priority
// list replaces the current one.
func (c MiddlewareConfig) Apply(m *mux.MiddlewareResolver) {
	for _, name := range slices.Sorted(maps.Keys(c.Aliases)) {
		m.Alias(name, c.Aliases[name])
	}
	for _, name := range slices.Sorted(maps.Keys(c.Groups)) {
		m.Group(name, c.Groups[name]...)
	}
	if len(c.Priority) > 0 {
		m.SetPriority(c.Priority...)
	}
}

// HandlerOptions returns the muxhandlers settings of c.
func (c MiddlewareConfig) HandlerOptions(logger *zerolog.Logger) muxhandlers.Options {
	opts := muxhandlers.Options{
		Logger:       logger,
		Timeout:      c.Timeout,
		MaxBodySize:  c.MaxBodySize,
		ProxyHeaders: muxhandlers.ProxyHeadersConfig{TrustedProxies: c.TrustedProxies},
	}

	if len(c.CORS.AllowedOrigins) > 0 {
		opts.CORS = &muxhandlers.CORSConfig{
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			ExposeHeaders:    c.CORS.ExposeHeaders,
			AllowCredentials: c.CORS.AllowCredentials,
			MaxAge:           c.CORS.MaxAge,
		}
	}

	return opts
}
