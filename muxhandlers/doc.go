// Package muxhandlers provides HTTP middleware for the waypoint router.
//
// Every handler is a mux.MiddlewareFunc. Register installs them in a
// mux.MiddlewareRegistry under short identifiers so route declarations can
// reference them, with parameters where the handler takes any:
//
//	logger := zerolog.New(os.Stderr)
//	r := mux.NewRouter(mux.WithLogger(logger))
//	if err := muxhandlers.Register(r.Registry(), muxhandlers.Options{Logger: &logger}); err != nil {
//	    log.Fatal(err)
//	}
//
//	r.Resolver().Group("api", "request_id", "recovery", "tracing", "security_headers", "compress")
//	r.Get("/export", "ExportController@run").Middleware("api", "timeout:2m")
//	r.Post("/upload", "UploadController@store").Middleware("api", "size:16M", "content_type:application/json")
//
// # Request ID
//
// RequestIDMiddleware propagates or generates an X-Request-ID header,
// storing the value in the request context. With a Logger configured the
// context also carries a zerolog logger tagged with request_id.
//
// # Recovery
//
// RecoveryMiddleware turns handler panics into 500 responses and logs the
// panic together with the matched route.
//
// # Timeout
//
// TimeoutMiddleware bounds handler execution with http.TimeoutHandler.
// TimeoutFactory reads the limit from the identifier: "timeout:5s" or
// "timeout:30" for seconds.
//
// # Tracing
//
// TracingMiddleware starts an OpenTelemetry server span named after the
// method and the route URI.
//
// # CORS
//
// CORSMiddleware implements the CORS protocol for exact, wildcard and
// one-wildcard pattern origins. Register installs it as "cors" when
// Options.CORS is set. Preflights for paths without an OPTIONS route only
// reach global middleware, so answer them with Router.Use and set
// CORSConfig.Router to advertise the methods of the requested path.
//
// # Cache Headers
//
// CacheHeadersMiddleware sets Cache-Control, Expires and an xxhash ETag on
// successful GET and HEAD responses, answering If-None-Match with 304:
//
//	r.Get("/items", "ItemController@index").Middleware("cache.headers:public;max_age=60;etag")
//
// # Security Headers
//
// SecurityHeadersMiddleware sets X-Frame-Options, Referrer-Policy,
// X-Content-Type-Options and the optional HSTS, CSP, COOP and Permissions
// policies. "security_headers:frame=SAMEORIGIN,hsts=31536000" overrides
// Options.SecurityHeaders per route.
//
// # Request Size Limit
//
// RequestSizeLimitMiddleware answers 413 for bodies over the limit:
// "size:512K", or "size" for Options.MaxBodySize.
//
// # Content Type Check
//
// ContentTypeCheckMiddleware answers 415 for POST, PUT and PATCH bodies
// outside the listed types: "content_type:application/json".
//
// # Proxy Headers
//
// ProxyHeadersMiddleware applies X-Forwarded-For, X-Real-IP,
// X-Forwarded-Proto, X-Forwarded-Host and optionally Forwarded from trusted
// peers. "proxy:10.0.0.0/8" replaces the trusted list per route.
//
// # Compression
//
// CompressionMiddleware negotiates zstd, gzip or deflate and pools the
// writers. "compress:9,1024" sets the level and minimum length.
//
// # Method Override
//
// MethodOverrideMiddleware rewrites POST requests carrying an
// X-HTTP-Method-Override header or a _method form field. It must run
// before matching, so install it with Router.Use:
//
//	mw, err := muxhandlers.MethodOverrideMiddleware(muxhandlers.MethodOverrideConfig{
//	    FormField: muxhandlers.DefaultMethodFormField,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
package muxhandlers
