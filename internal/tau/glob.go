package tau

import (
	"regexp"
	"strings"
)

// CompileGlob translates a Sigma glob literal (`*` and `?` wildcards
// only, spec §4.B) into an anchored, case-insensitive-by-default regexp.
func CompileGlob(pattern string, cased bool) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')

	expr := b.String()
	if !cased {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

// HasGlobMeta reports whether s contains a `*` or `?` glob wildcard.
// Backslash escapes are not recognised.
func HasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?")
}
