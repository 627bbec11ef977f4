package mux

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// patternKind selects the default fragment and anchoring of a template.
type patternKind int

const (
	patternPath patternKind = iota
	patternHost
)

const (
	// defaultPathFragment matches one or more characters except a slash.
	defaultPathFragment = `[^/]+`
	// defaultHostFragment matches a single DNS label.
	defaultHostFragment = `[^.]+`
)

// paramName is the set of names usable as a regexp capture group.
var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// patternPart is a literal run optionally followed by a parameter token.
type patternPart struct {
	literal  string
	name     string
	optional bool
}

// Param is a single captured route parameter.
type Param struct {
	Key   string
	Value string
}

// Params holds captured route parameters in template order.
type Params []Param

// Get returns the value of the named parameter.
func (ps Params) Get(name string) (string, bool) {
	for _, p := range ps {
		if p.Key == name {
			return p.Value, true
		}
	}
	return "", false
}

// Map returns the parameters as a map.
func (ps Params) Map() map[string]string {
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.Key] = p.Value
	}
	return m
}

// Keys returns the parameter names in template order.
func (ps Params) Keys() []string {
	keys := make([]string, len(ps))
	for i, p := range ps {
		keys[i] = p.Key
	}
	return keys
}

// Pattern is a compiled URI template. It tests request paths and extracts
// the named parameters declared with {name} and {name?} tokens.
//
// The regular expression is built eagerly but compiled on first use, so an
// invalid constraint fragment is reported by Test or Capture as a
// *PatternError rather than at registration.
type Pattern struct {
	template string
	source   string
	prefix   string
	parts    []patternPart
	names    []string
	kind     patternKind

	once  sync.Once
	re    *regexp.Regexp
	index []int
	err   error
}

// CompilePattern compiles a path template. Every {name} token becomes a
// named capture group using overrides[name] as its fragment, or a run of
// non-slash characters when no override exists. A {name?} token makes the
// group optional; the literal text around it is left untouched, so the
// separator in front of an optional segment is still required.
//
// Structural problems in the template (unbalanced braces, invalid or
// duplicated names) are returned as errors. Override fragments are not
// validated here.
func CompilePattern(template string, overrides map[string]string) (*Pattern, error) {
	return compilePattern(template, overrides, patternPath)
}

// compileHostPattern compiles a domain template such as {account}.example.com.
func compileHostPattern(template string, overrides map[string]string) (*Pattern, error) {
	return compilePattern(strings.ToLower(template), overrides, patternHost)
}

func compilePattern(template string, overrides map[string]string, kind patternKind) (*Pattern, error) {
	parts, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}

	p := newPattern(template, parts, kind)
	p.source = buildSource(parts, overrides, kind)

	return p, nil
}

// restorePattern rebuilds a pattern from a previously compiled source
// without re-deriving the regular expression from constraints.
func restorePattern(template, source string, kind patternKind) (*Pattern, error) {
	parts, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}

	p := newPattern(template, parts, kind)
	p.source = source

	return p, nil
}

func newPattern(template string, parts []patternPart, kind patternKind) *Pattern {
	p := &Pattern{
		template: template,
		parts:    parts,
		kind:     kind,
	}

	var prefix strings.Builder
	literal := true
	for _, part := range parts {
		if literal {
			prefix.WriteString(part.literal)
		}
		if part.name != "" {
			literal = false
			p.names = append(p.names, part.name)
		}
	}
	p.prefix = prefix.String()

	return p
}

// parseTemplate splits a template into literal runs and parameter tokens.
func parseTemplate(tpl string) ([]patternPart, error) {
	idxs, err := braceIndices(tpl)
	if err != nil {
		return nil, err
	}

	var (
		parts []patternPart
		end   int
	)
	seen := make(map[string]bool, len(idxs)/2)

	for i := 0; i < len(idxs); i += 2 {
		raw := tpl[end:idxs[i]]
		end = idxs[i+1]

		name, optional := strings.CutSuffix(tpl[idxs[i]+1:end-1], "?")
		if !paramName.MatchString(name) {
			return nil, fmt.Errorf("mux: invalid parameter name in %q from %q", tpl[idxs[i]:end], tpl)
		}
		if seen[name] {
			return nil, fmt.Errorf("mux: duplicated route parameter %q in %q", name, tpl)
		}
		seen[name] = true

		parts = append(parts, patternPart{literal: raw, name: name, optional: optional})
	}

	if tail := tpl[end:]; tail != "" || len(parts) == 0 {
		parts = append(parts, patternPart{literal: tail})
	}

	return parts, nil
}

func buildSource(parts []patternPart, overrides map[string]string, kind patternKind) string {
	fragment := defaultPathFragment
	if kind == patternHost {
		fragment = defaultHostFragment
	}

	var b strings.Builder
	b.WriteByte('^')

	for _, part := range parts {
		b.WriteString(regexp.QuoteMeta(part.literal))
		if part.name == "" {
			continue
		}

		patt := fragment
		if o, ok := overrides[part.name]; ok && o != "" {
			patt = o
		}

		fmt.Fprintf(&b, "(?P<%s>%s)", part.name, patt)
		if part.optional {
			b.WriteByte('?')
		}
	}

	if kind == patternPath {
		b.WriteString(`\s*`)
	}
	b.WriteByte('$')

	return b.String()
}

func (p *Pattern) compiled() (*regexp.Regexp, []int, error) {
	p.once.Do(func() {
		re, err := compileRegexp(p.source)
		if err != nil {
			p.err = &PatternError{Template: p.template, Source: p.source, Err: err}
			return
		}

		index := make([]int, len(p.names))
		for i, name := range p.names {
			index[i] = re.SubexpIndex(name)
		}

		p.re = re
		p.index = index
	})

	return p.re, p.index, p.err
}

// Test reports whether the path matches the pattern.
func (p *Pattern) Test(path string) (bool, error) {
	re, _, err := p.compiled()
	if err != nil {
		return false, err
	}

	if !strings.HasPrefix(path, p.prefix) {
		return false, nil
	}

	return re.MatchString(path), nil
}

// Capture returns the named parameters of a matching path, one entry per
// template token in template order. An absent optional parameter yields an
// empty value. A nil result means the path does not match.
func (p *Pattern) Capture(path string) (Params, error) {
	re, index, err := p.compiled()
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(path, p.prefix) {
		return nil, nil
	}

	loc := re.FindStringSubmatchIndex(path)
	if loc == nil {
		return nil, nil
	}

	params := make(Params, len(p.names))
	for i, name := range p.names {
		params[i].Key = name
		if j := index[i]; j > 0 && loc[2*j] >= 0 {
			params[i].Value = path[loc[2*j]:loc[2*j+1]]
		}
	}

	return params, nil
}

// Template returns the template the pattern was compiled from.
func (p *Pattern) Template() string {
	return p.template
}

// Source returns the regular expression source.
func (p *Pattern) Source() string {
	return p.source
}

// Prefix returns the literal text in front of the first parameter token.
func (p *Pattern) Prefix() string {
	return p.prefix
}

// Names returns the parameter names in template order.
func (p *Pattern) Names() []string {
	names := make([]string, len(p.names))
	copy(names, p.names)
	return names
}

// IsOptional reports whether the named parameter was declared as {name?}.
func (p *Pattern) IsOptional(name string) bool {
	for _, part := range p.parts {
		if part.name == name {
			return part.optional
		}
	}
	return false
}

func (p *Pattern) String() string {
	return p.source
}

// build fills the template with values. Required parameters must be present
// and every value must satisfy its constraint. The names consumed from
// values are returned so callers can append the rest as a query string.
func (p *Pattern) build(values, wheres map[string]string) (string, map[string]bool, error) {
	fragment := defaultPathFragment
	if p.kind == patternHost {
		fragment = defaultHostFragment
	}

	var b strings.Builder
	used := make(map[string]bool, len(p.names))

	for _, part := range p.parts {
		b.WriteString(part.literal)
		if part.name == "" {
			continue
		}

		v, ok := values[part.name]
		used[part.name] = true
		if !ok || v == "" {
			if part.optional {
				continue
			}
			return "", nil, fmt.Errorf("%w %q for %q", ErrMissingParameter, part.name, p.template)
		}

		patt := fragment
		if o, ok := wheres[part.name]; ok && o != "" {
			patt = o
		}
		re, err := compileRegexp("^(?:" + patt + ")$")
		if err != nil {
			return "", nil, &PatternError{Template: p.template, Source: patt, Err: err}
		}
		if !re.MatchString(v) {
			return "", nil, fmt.Errorf("mux: parameter %q doesn't match, expected %q", part.name, patt)
		}

		if p.kind == patternPath {
			v = url.PathEscape(v)
		}
		b.WriteString(v)
	}

	return b.String(), used, nil
}

// braceIndices returns the start and end+1 indices of each top-level
// {...} pair in s. Returns an error if braces are unbalanced.
func braceIndices(s string) ([]int, error) {
	var (
		idxs  []int
		level int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if level++; level == 1 {
				idxs = append(idxs, i)
			}
		case '}':
			if level--; level == 0 {
				idxs = append(idxs, i+1)
			} else if level < 0 {
				return nil, fmt.Errorf("mux: unbalanced braces in %q", s)
			}
		}
	}
	if level != 0 {
		return nil, fmt.Errorf("mux: unbalanced braces in %q", s)
	}
	return idxs, nil
}
