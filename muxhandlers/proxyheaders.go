package muxhandlers

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/vitalvas/waypoint/mux"
)

// ErrInvalidProxy is returned when a TrustedProxies entry is neither an IP
// address, a CIDR prefix nor "*".
var ErrInvalidProxy = errors.New("proxy headers: invalid proxy entry")

// DefaultTrustedProxies are the loopback, private (RFC 1918, RFC 4193) and
// shared (RFC 6598) ranges trusted when none are configured.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10",
	"::1/128",
	"fc00::/7",
}

// ProxyHeadersConfig configures ProxyHeadersMiddleware.
type ProxyHeadersConfig struct {
	// TrustedProxies lists addresses and CIDR prefixes whose forwarding
	// headers are honoured; "*" trusts every peer. Defaults to
	// DefaultTrustedProxies.
	TrustedProxies []string

	// EnableForwarded reads the RFC 7239 Forwarded header when the
	// X-Forwarded-* headers are absent.
	EnableForwarded bool
}

// ProxyHeadersMiddleware rewrites the request from forwarding headers sent
// by a trusted peer:
//
//   - RemoteAddr from X-Forwarded-For (leftmost valid address) or X-Real-IP
//   - URL.Scheme from X-Forwarded-Proto or X-Forwarded-Scheme
//   - Host from X-Forwarded-Host
//
// with Forwarded for=, proto= and host= as the last resort. Host is used
// for domain route matching, so install the middleware with Router.Use
// when domain routes sit behind a proxy.
func ProxyHeadersMiddleware(cfg ProxyHeadersConfig) (mux.MiddlewareFunc, error) {
	entries := cfg.TrustedProxies
	if len(entries) == 0 {
		entries = DefaultTrustedProxies
	}

	trusted, err := parseTrustedProxies(entries)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !trusted.contains(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}

			var fwd forwarded
			if cfg.EnableForwarded {
				fwd = parseForwarded(r.Header.Get("Forwarded"))
			}

			if ip := firstNonEmpty(leftmostIP(r.Header.Get("X-Forwarded-For")), validIP(r.Header.Get("X-Real-IP")), fwd.forIP); ip != "" {
				r.RemoteAddr = ip
			}
			if scheme := firstNonEmpty(forwardedScheme(r), fwd.proto); scheme != "" {
				u := *r.URL
				u.Scheme = scheme
				r.URL = &u
			}
			if host := firstNonEmpty(r.Header.Get("X-Forwarded-Host"), fwd.host); host != "" {
				r.Host = host
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// ProxyHeadersFactory takes the trusted proxies from the route parameters,
// "proxy:10.0.0.0/8,192.168.1.1"; without parameters base applies.
func ProxyHeadersFactory(base ProxyHeadersConfig) mux.MiddlewareFactory {
	return func(params []string) (mux.MiddlewareFunc, error) {
		cfg := base
		if len(params) > 0 {
			cfg.TrustedProxies = params
		}
		return ProxyHeadersMiddleware(cfg)
	}
}

type trustedProxies struct {
	any      bool
	prefixes []netip.Prefix
}

func parseTrustedProxies(entries []string) (*trustedProxies, error) {
	t := &trustedProxies{}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "*" {
			t.any = true
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, entry)
			}
			t.prefixes = append(t.prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, entry)
		}
		t.prefixes = append(t.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return t, nil
}

func (t *trustedProxies) contains(remoteAddr string) bool {
	if t.any {
		return true
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, p := range t.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func validIP(v string) string {
	v = strings.TrimSpace(v)
	if _, err := netip.ParseAddr(v); err != nil {
		return ""
	}
	return v
}

func leftmostIP(xff string) string {
	for part := range strings.SplitSeq(xff, ",") {
		if ip := validIP(part); ip != "" {
			return ip
		}
	}
	return ""
}

func normalizeScheme(v string) string {
	v = strings.ToLower(strings.Trim(strings.TrimSpace(v), `"`))
	if v == "http" || v == "https" {
		return v
	}
	return ""
}

// forwardedScheme reads the first present scheme header.
func forwardedScheme(r *http.Request) string {
	for _, name := range []string{"X-Forwarded-Proto", "X-Forwarded-Scheme"} {
		if v := r.Header.Get(name); v != "" {
			return normalizeScheme(v)
		}
	}
	return ""
}

// forwarded holds the directives of the first Forwarded element, the one
// added by the proxy closest to the client.
type forwarded struct {
	forIP string
	proto string
	host  string
}

func parseForwarded(header string) forwarded {
	var f forwarded

	first, _, _ := strings.Cut(header, ",")
	for pair := range strings.SplitSeq(first, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "for":
			if host, _, err := net.SplitHostPort(value); err == nil {
				value = host
			}
			f.forIP = validIP(strings.Trim(value, "[]"))
		case "proto":
			f.proto = normalizeScheme(value)
		case "host":
			f.host = value
		}
	}

	return f
}
