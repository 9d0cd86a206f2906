package enum

import (
	"fmt"
	"regexp"
	"strings"
)

// RewriteRule is a NAPTR style "<d>match<d>replacement<d>flags" rule. The
// replacement may refer to capture groups as \1 .. \9.
type RewriteRule struct {
	pattern  *regexp.Regexp
	template string
}

// ParseRewrite parses a delimited rewrite rule. The first character is the
// delimiter and exactly three fields must follow it. Escaped delimiters are
// not supported.
func ParseRewrite(rule string) (RewriteRule, error) {
	if len(rule) < 2 {
		return RewriteRule{}, fmt.Errorf("%w: rewrite rule %q too short", ErrMalformedRule, rule)
	}

	delim := rule[:1]
	if delim == "\\" || (delim[0] >= '0' && delim[0] <= '9') {
		return RewriteRule{}, fmt.Errorf("%w: invalid delimiter in %q", ErrMalformedRule, rule)
	}

	fields := strings.Split(rule[1:], delim)
	if len(fields) != 3 {
		return RewriteRule{}, fmt.Errorf("%w: rewrite rule %q must have three fields, got %d", ErrMalformedRule, rule, len(fields))
	}

	expr := fields[0]
	if strings.Contains(fields[2], "i") {
		expr = "(?i)" + expr
	}

	pattern, err := regexp.Compile(expr)
	if err != nil {
		return RewriteRule{}, fmt.Errorf("%w: bad regular expression %q: %v", ErrMalformedRule, fields[0], err)
	}

	return RewriteRule{pattern: pattern, template: convertTemplate(fields[1])}, nil
}

// convertTemplate turns \N backreferences into ${N} and escapes literal '$'.
func convertTemplate(replacement string) string {
	var b strings.Builder
	for i := 0; i < len(replacement); i++ {
		c := replacement[i]
		switch {
		case c == '$':
			b.WriteString("$$")
		case c == '\\' && i+1 < len(replacement):
			next := replacement[i+1]
			if next >= '0' && next <= '9' {
				b.WriteString("${")
				b.WriteByte(next)
				b.WriteString("}")
			} else {
				b.WriteByte(next)
			}
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Apply replaces every non-overlapping match in input. ok is false when
// nothing matches.
func (r RewriteRule) Apply(input string) (string, bool) {
	if !r.pattern.MatchString(input) {
		return "", false
	}
	return r.pattern.ReplaceAllString(input, r.template), true
}
