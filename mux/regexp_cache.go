package mux

import (
	"regexp"
	"sync"
)

// compiledRegexp is a cache entry. Failed compilations are cached too, so
// a broken constraint shared by many routes is only parsed once.
type compiledRegexp struct {
	re  *regexp.Regexp
	err error
}

// regexpCache caches compiled route expressions by source. Route patterns
// are built at registration time, so the cache grows with the route table
// and then stays fixed.
var regexpCache sync.Map // map[string]compiledRegexp

// compileRegexp returns a shared *regexp.Regexp for source, compiling it on
// first use.
func compileRegexp(source string) (*regexp.Regexp, error) {
	if v, ok := regexpCache.Load(source); ok {
		entry := v.(compiledRegexp)
		return entry.re, entry.err
	}

	re, err := regexp.Compile(source)
	actual, _ := regexpCache.LoadOrStore(source, compiledRegexp{re: re, err: err})
	entry := actual.(compiledRegexp)

	return entry.re, entry.err
}
