package mux

import (
	"regexp"
	"strings"
)

// Constraint fragments used by the RouteBuilder Where helpers.
const (
	PatternAlpha        = `[a-zA-Z]+`
	PatternNumber       = `[0-9]+`
	PatternAlphaNumeric = `[a-zA-Z0-9]+`
	PatternUUID         = `[\da-fA-F]{8}-[\da-fA-F]{4}-[\da-fA-F]{4}-[\da-fA-F]{4}-[\da-fA-F]{12}`
	PatternULID         = `[0-7][0-9a-hjkmnp-tv-zA-HJKMNP-TV-Z]{25}`
	PatternSlug         = `[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*`
	PatternDate         = `[0-9]{4}-[0-9]{2}-[0-9]{2}`
)

// constraintMacros maps short constraint names to their fragments. Route
// manifests refer to constraints by these names.
var constraintMacros = map[string]string{
	"alpha":    PatternAlpha,
	"number":   PatternNumber,
	"int":      PatternNumber,
	"alphanum": PatternAlphaNumeric,
	"uuid":     PatternUUID,
	"ulid":     PatternULID,
	"slug":     PatternSlug,
	"date":     PatternDate,
}

// LookupConstraint returns the fragment registered under a macro name.
func LookupConstraint(name string) (string, bool) {
	patt, ok := constraintMacros[strings.ToLower(name)]
	return patt, ok
}

// PatternIn returns a fragment matching exactly one of values. Without
// values the fragment matches nothing.
func PatternIn(values ...string) string {
	if len(values) == 0 {
		return `[^\s\S]`
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}
