package muxhandlers

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vitalvas/waypoint/mux"
	"go.opentelemetry.io/otel/trace"
)

// Middleware identifiers registered by Register.
const (
	IDRequestID        = "request_id"
	IDRecovery         = "recovery"
	IDTimeout          = "timeout"
	IDTracing          = "tracing"
	IDCORS             = "cors"
	IDCacheHeaders     = "cache.headers"
	IDSecurityHeaders  = "security_headers"
	IDRequestSizeLimit = "size"
	IDProxyHeaders     = "proxy"
	IDCompression      = "compress"
	IDContentType      = "content_type"
)

// DefaultTimeout applies to "timeout" declared without a duration.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBodySize applies to "size" declared without a limit.
const DefaultMaxBodySize = 8 << 20

// Options configures the middleware installed by Register.
type Options struct {
	Logger         *zerolog.Logger
	Timeout        time.Duration
	TracerProvider trace.TracerProvider

	// MaxBodySize is the "size" limit without parameters.
	MaxBodySize int64

	// CORS enables the "cors" identifier.
	CORS *CORSConfig

	SecurityHeaders SecurityHeadersConfig
	ProxyHeaders    ProxyHeadersConfig
	Compression     CompressionConfig
}

// Register installs the handlers of this package in reg, so routes can
// declare them by identifier, with parameters where the handler takes any:
//
//	if err := muxhandlers.Register(r.Registry(), muxhandlers.Options{Logger: &logger}); err != nil {
//	    return err
//	}
//	r.Get("/report", "ReportController@show").Middleware("recovery", "timeout:5s", "cache.headers:public;max_age=60;etag")
//
// Parameterised identifiers are validated when a route first runs them.
// Register fails only for an invalid CORS configuration.
func Register(reg *mux.MiddlewareRegistry, opts Options) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBody := opts.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	reg.Register(IDRequestID, RequestIDMiddleware(RequestIDConfig{
		TrustIncoming: true,
		Logger:        opts.Logger,
	}))
	reg.Register(IDRecovery, RecoveryMiddleware(RecoveryConfig{Logger: opts.Logger}))
	reg.RegisterFactory(IDTimeout, TimeoutFactory(timeout))
	reg.Register(IDTracing, TracingMiddleware(TracingConfig{TracerProvider: opts.TracerProvider}))

	reg.RegisterFactory(IDCacheHeaders, CacheHeadersFactory())
	reg.RegisterFactory(IDSecurityHeaders, SecurityHeadersFactory(opts.SecurityHeaders))
	reg.RegisterFactory(IDRequestSizeLimit, RequestSizeLimitFactory(maxBody))
	reg.RegisterFactory(IDProxyHeaders, ProxyHeadersFactory(opts.ProxyHeaders))
	reg.RegisterFactory(IDCompression, CompressionFactory(opts.Compression))
	reg.RegisterFactory(IDContentType, ContentTypeCheckFactory())

	if opts.CORS != nil {
		cors, err := CORSMiddleware(*opts.CORS)
		if err != nil {
			return fmt.Errorf("muxhandlers: cors: %w", err)
		}
		reg.Register(IDCORS, cors)
	}

	return nil
}
