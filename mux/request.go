package mux

import (
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/idna"
)

// Request is the part of an incoming request the matcher consumes.
// Method must already be uppercase; Path is the decoded path without the
// query string.
type Request interface {
	Method() string
	Host() string
	Path() string
}

type request struct {
	method string
	host   string
	path   string
}

func (r request) Method() string { return r.method }
func (r request) Host() string   { return r.host }
func (r request) Path() string   { return r.path }

// NewRequest returns a Request for method and path with no host.
func NewRequest(method, path string) Request {
	return request{method: method, path: path}
}

// NewHostRequest returns a Request for method, host and path. The host is
// normalised the same way as for HTTP requests.
func NewHostRequest(method, host, path string) Request {
	return request{method: method, host: normalizeHost(host), path: path}
}

// FromHTTP adapts an *http.Request. The host is lowercased, stripped of its
// port and converted to its ASCII form so internationalised domains match
// punycode route domains.
func FromHTTP(r *http.Request) Request {
	return request{
		method: r.Method,
		host:   normalizeHost(r.Host),
		path:   r.URL.Path,
	}
}

// withMethod returns a copy of req answering a different method.
func withMethod(req Request, method string) Request {
	return request{method: method, host: req.Host(), path: req.Path()}
}

// normalizeHost returns the lowercased hostname without port per
// RFC 9110 Section 7.2, in IDNA ASCII form when it converts cleanly.
func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return host
	}

	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

// hostTemplate converts the literal labels of a domain template to their
// ASCII form, leaving parameter tokens alone.
func hostTemplate(domain string) string {
	if domain == "" {
		return ""
	}

	labels := strings.Split(strings.ToLower(domain), ".")
	for i, label := range labels {
		if strings.ContainsAny(label, "{}") {
			continue
		}
		if ascii, err := idna.Lookup.ToASCII(label); err == nil {
			labels[i] = ascii
		}
	}
	return strings.Join(labels, ".")
}
