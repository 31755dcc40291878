// Package pattern compiles the glob patterns accepted by cache invalidation
// into matchers.
//
// Only '*' is special: it matches any run of characters, including an empty
// one. Every other character matches itself. A pattern containing '*' may
// match anywhere inside a key ("*:profile" also selects "user:1:profile:draft"),
// while a pattern without '*' selects exactly one key.
package pattern

import (
	"regexp"
	"strings"
)

// kind selects the cheapest strategy able to evaluate a pattern.
type kind int

const (
	kindExact    kind = iota // no wildcard
	kindContains             // one literal run, wildcards only at the ends
	kindRegex                // anything else
)

// Matcher reports whether keys match a compiled pattern. The zero value
// matches only the empty key.
type Matcher struct {
	kind    kind
	pattern string         // original glob
	literal string         // exact key or substring
	re      *regexp.Regexp // used for regex matches
}

// Compile turns glob into a Matcher.
func Compile(glob string) Matcher {
	if !strings.Contains(glob, "*") {
		return Matcher{kind: kindExact, pattern: glob, literal: glob}
	}
	if inner := strings.Trim(glob, "*"); !strings.Contains(inner, "*") {
		return Matcher{kind: kindContains, pattern: glob, literal: inner}
	}

	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return Matcher{
		kind:    kindRegex,
		pattern: glob,
		re:      regexp.MustCompile(strings.Join(parts, ".*")),
	}
}

// Match reports whether key matches the pattern.
func (m Matcher) Match(key string) bool {
	switch m.kind {
	case kindExact:
		return key == m.literal
	case kindContains:
		return strings.Contains(key, m.literal)
	default:
		return m.re.MatchString(key)
	}
}

// Literal returns the key and true when the pattern has no wildcard.
func (m Matcher) Literal() (string, bool) {
	return m.literal, m.kind == kindExact
}

// String returns the original glob.
func (m Matcher) String() string { return m.pattern }
