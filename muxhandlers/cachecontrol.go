package muxhandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/valyala/bytebufferpool"
	"github.com/vitalvas/waypoint/mux"
)

// ErrNoCacheDirectives is returned when CacheHeadersConfig sets neither
// Directives nor ETag.
var ErrNoCacheDirectives = errors.New("cache headers: a directive or etag is required")

// CacheHeadersConfig configures CacheHeadersMiddleware.
type CacheHeadersConfig struct {
	// Directives is the Cache-Control value, e.g. "public, max-age=3600".
	Directives string

	// Expires, when positive, sets Expires to the response time plus
	// Expires.
	Expires time.Duration

	// ETag hashes the response body into an ETag header and answers a
	// matching If-None-Match with 304 Not Modified. The body is buffered.
	ETag bool
}

// CacheHeadersMiddleware sets Cache-Control, Expires and ETag on successful
// GET and HEAD responses. Headers already set by the handler are kept.
func CacheHeadersMiddleware(cfg CacheHeadersConfig) (mux.MiddlewareFunc, error) {
	if cfg.Directives == "" && !cfg.ETag {
		return nil, ErrNoCacheDirectives
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			cw := &cacheHeadersWriter{ResponseWriter: w, cfg: &cfg}
			if cfg.ETag {
				cw.body = bytebufferpool.Get()
				defer bytebufferpool.Put(cw.body)
			}

			next.ServeHTTP(cw, r)

			if cw.body != nil {
				cw.flushTagged(r)
			}
		})
	}, nil
}

// CacheHeadersFactory builds the middleware from route parameters. The
// directives are separated by semicolons, underscores standing for dashes:
//
//	cache.headers:public;max_age=2628000;etag
//
// "etag" enables ETag, "expires=<seconds>" sets Expires, every other entry
// becomes a Cache-Control directive.
func CacheHeadersFactory() mux.MiddlewareFactory {
	return func(params []string) (mux.MiddlewareFunc, error) {
		cfg, err := parseCacheHeaders(strings.Join(params, ","))
		if err != nil {
			return nil, err
		}
		return CacheHeadersMiddleware(cfg)
	}
}

func parseCacheHeaders(spec string) (CacheHeadersConfig, error) {
	var (
		cfg        CacheHeadersConfig
		directives []string
	)

	for item := range strings.SplitSeq(spec, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		key, value, hasValue := strings.Cut(item, "=")
		key = strings.ReplaceAll(strings.ToLower(key), "_", "-")

		switch {
		case key == "etag":
			cfg.ETag = true
		case key == "expires":
			secs, err := strconv.Atoi(value)
			if err != nil || secs < 0 {
				return cfg, fmt.Errorf("cache headers: invalid expires %q", value)
			}
			cfg.Expires = time.Duration(secs) * time.Second
		case hasValue:
			directives = append(directives, key+"="+value)
		default:
			directives = append(directives, key)
		}
	}

	cfg.Directives = strings.Join(directives, ", ")
	return cfg, nil
}

// cacheHeadersWriter adds the cache headers before the status line. With
// ETag enabled the status and body are held until the handler returns.
type cacheHeadersWriter struct {
	http.ResponseWriter
	cfg         *CacheHeadersConfig
	body        *bytebufferpool.ByteBuffer
	status      int
	wroteHeader bool
}

func (cw *cacheHeadersWriter) WriteHeader(status int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	cw.status = status

	if cw.body == nil {
		cw.setHeaders()
		cw.ResponseWriter.WriteHeader(status)
	}
}

func (cw *cacheHeadersWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.body != nil {
		return cw.body.Write(b)
	}
	return cw.ResponseWriter.Write(b)
}

func (cw *cacheHeadersWriter) setHeaders() {
	if cw.status < 200 || cw.status >= 300 {
		return
	}

	h := cw.Header()
	if cw.cfg.Directives != "" && h.Get("Cache-Control") == "" {
		h.Set("Cache-Control", cw.cfg.Directives)
	}
	if cw.cfg.Expires > 0 && h.Get("Expires") == "" {
		h.Set("Expires", time.Now().UTC().Add(cw.cfg.Expires).Format(http.TimeFormat))
	}
}

// flushTagged writes the buffered response, or 304 when the client already
// holds the representation.
func (cw *cacheHeadersWriter) flushTagged(r *http.Request) {
	if !cw.wroteHeader {
		cw.status = http.StatusOK
	}
	cw.setHeaders()

	h := cw.Header()
	if cw.status == http.StatusOK && h.Get("ETag") == "" {
		h.Set("ETag", `"`+strconv.FormatUint(xxhash.Sum64(cw.body.B), 16)+`"`)
	}

	if etag := h.Get("ETag"); cw.status == http.StatusOK && etag != "" && etagMatches(r.Header.Get("If-None-Match"), etag) {
		h.Del("Content-Length")
		h.Del("Content-Type")
		cw.ResponseWriter.WriteHeader(http.StatusNotModified)
		return
	}

	cw.ResponseWriter.WriteHeader(cw.status)
	cw.ResponseWriter.Write(cw.body.B)
}

// etagMatches applies the weak comparison of RFC 9110 Section 13.1.2.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}

	etag = strings.TrimPrefix(etag, "W/")
	for candidate := range strings.SplitSeq(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == etag {
			return true
		}
	}
	return false
}

// Unwrap returns the underlying ResponseWriter for middleware compatibility.
func (cw *cacheHeadersWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
