package enum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"1-2.3(4)":        "1234",
		"+1 (510) 858-02": "+151085802",
		"214+4324":        "2144324",
		"++44":            "+44",
		"tel:+44-20":      "+4420",
		"abc":             "",
		"":                "",
	}

	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestParseRewrite(t *testing.T) {
	tests := []struct {
		name  string
		rule  string
		input string
		want  string
		ok    bool
	}{
		{name: "whole number", rule: `!^(.*)$!sip:\1@example.com!`, input: "+1234", want: "sip:+1234@example.com", ok: true},
		{name: "strip plus", rule: `!^\+(.*)$!sip:\1@gw.example.net!`, input: "+1234", want: "sip:1234@gw.example.net", ok: true},
		{name: "partial splice", rule: `/^\+44/0/`, input: "+442071234567", want: "02071234567", ok: true},
		{name: "literal dollar", rule: `!^(.*)$!sip:$\1@x!`, input: "5", want: "sip:$5@x", ok: true},
		{name: "no match", rule: `!^\+1!x!`, input: "+44", ok: false},
		{name: "case insensitive flag", rule: `!^SIP:(.*)$!tel:\1!i`, input: "sip:123", want: "tel:123", ok: true},
		{name: "unanchored replaces every match", rule: `!0!9!`, input: "+1020304", want: "+1929394", ok: true},
		{name: "unanchored capture per match", rule: `!(1)(2)!\2\1!`, input: "1212", want: "2121", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRewrite(tt.rule)
			require.NoError(t, err)

			got, ok := rule.Apply(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseRewriteMalformed(t *testing.T) {
	for _, rule := range []string{
		"",
		"!",
		"!^.*$!sip:x",
		"!^.*$!sip:x!!extra!",
		"!([!x!",
		`\^.*$\x\`,
	} {
		_, err := ParseRewrite(rule)
		assert.ErrorIs(t, err, ErrMalformedRule, "rule %q", rule)
	}
}
