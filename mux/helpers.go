package mux

import (
	"fmt"
	"maps"
	"path"
	"strings"

	"github.com/google/uuid"
)

// cleanPath returns the canonical path for p, eliminating . and .. elements
// per RFC 3986 Section 5.2.4 (remove dot segments).
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	// path.Clean removes trailing slash except for root;
	// put the trailing slash back if necessary.
	if p[len(p)-1] == '/' && np != "/" {
		np += "/"
	}
	return np
}

// joinPath joins URI segments with single slashes. The result always has
// a leading slash and never a trailing one, except for the root.
func joinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		for _, p := range strings.Split(s, "/") {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	return "/" + strings.Join(parts, "/")
}

// joinName joins dot-separated name segments, collapsing repeated dots and
// dropping leading and trailing ones.
func joinName(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		for _, p := range strings.Split(s, ".") {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	return strings.Join(parts, ".")
}

// randomName returns a 32 character token used for routes registered
// without a name.
func randomName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// checkPairs returns an error if the list of key/value pairs has odd length.
func checkPairs(pairs ...string) (int, error) {
	if len(pairs)%2 != 0 {
		return 0, fmt.Errorf("mux: number of parameters must be multiple of 2, got %v", pairs)
	}
	return len(pairs) / 2, nil
}

// mapFromPairsToString converts variadic string parameters to a string map.
func mapFromPairsToString(pairs ...string) (map[string]string, error) {
	length, err := checkPairs(pairs...)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, length)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return m, nil
}

// matchInArray returns true if the given string value is in the array.
func matchInArray(arr []string, value string) bool {
	for _, v := range arr {
		if v == value {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// splitMiddleware separates a middleware identifier from its parameters:
// "throttle:60,1" yields "throttle" and ["60", "1"].
func splitMiddleware(id string) (string, []string) {
	base, params, ok := strings.Cut(id, ":")
	if !ok || params == "" {
		return base, nil
	}
	return base, strings.Split(params, ",")
}
