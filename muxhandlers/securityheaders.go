package muxhandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/vitalvas/waypoint/mux"
)

// ErrInvalidFrameOption is returned when SecurityHeadersConfig.FrameOption
// is not DENY, SAMEORIGIN or empty.
var ErrInvalidFrameOption = errors.New("security headers: frame option must be DENY, SAMEORIGIN, or empty")

// SecurityHeadersConfig configures SecurityHeadersMiddleware. Empty policy
// fields omit their header.
type SecurityHeadersConfig struct {
	DisableContentTypeNosniff bool

	// FrameOption defaults to DENY.
	FrameOption string

	// ReferrerPolicy defaults to strict-origin-when-cross-origin.
	ReferrerPolicy string

	// HSTSMaxAge in seconds; zero omits Strict-Transport-Security.
	HSTSMaxAge            int
	HSTSIncludeSubDomains bool
	HSTSPreload           bool

	CrossOriginOpenerPolicy string
	ContentSecurityPolicy   string
	PermissionsPolicy       string
}

// SecurityHeadersMiddleware sets the configured security headers before
// the handler runs.
func SecurityHeadersMiddleware(cfg SecurityHeadersConfig) (mux.MiddlewareFunc, error) {
	switch cfg.FrameOption {
	case "":
		cfg.FrameOption = "DENY"
	case "DENY", "SAMEORIGIN":
	default:
		return nil, ErrInvalidFrameOption
	}
	if cfg.ReferrerPolicy == "" {
		cfg.ReferrerPolicy = "strict-origin-when-cross-origin"
	}

	headers := http.Header{}
	headers.Set("X-Frame-Options", cfg.FrameOption)
	headers.Set("Referrer-Policy", cfg.ReferrerPolicy)
	if !cfg.DisableContentTypeNosniff {
		headers.Set("X-Content-Type-Options", "nosniff")
	}
	if cfg.HSTSMaxAge > 0 {
		hsts := "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
		headers.Set("Strict-Transport-Security", hsts)
	}
	for name, value := range map[string]string{
		"Cross-Origin-Opener-Policy": cfg.CrossOriginOpenerPolicy,
		"Content-Security-Policy":    cfg.ContentSecurityPolicy,
		"Permissions-Policy":         cfg.PermissionsPolicy,
	} {
		if value != "" {
			headers.Set(name, value)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name := range headers {
				h.Set(name, headers.Get(name))
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// SecurityHeadersFactory builds the middleware from base overridden by
// route parameters of the form key=value:
//
//	security_headers:frame=SAMEORIGIN,hsts=31536000
//
// Keys are frame, referrer, hsts, csp and coop.
func SecurityHeadersFactory(base SecurityHeadersConfig) mux.MiddlewareFactory {
	return func(params []string) (mux.MiddlewareFunc, error) {
		cfg := base
		for _, p := range params {
			key, value, _ := strings.Cut(p, "=")
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "frame":
				cfg.FrameOption = strings.ToUpper(value)
			case "referrer":
				cfg.ReferrerPolicy = value
			case "csp":
				cfg.ContentSecurityPolicy = value
			case "coop":
				cfg.CrossOriginOpenerPolicy = value
			case "hsts":
				age, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("security headers: invalid hsts %q", value)
				}
				cfg.HSTSMaxAge = age
			default:
				return nil, fmt.Errorf("security headers: unknown parameter %q", key)
			}
		}
		return SecurityHeadersMiddleware(cfg)
	}
}
