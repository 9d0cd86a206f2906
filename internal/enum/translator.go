package enum

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrMalformedRule   = errors.New("malformed ENUM rule")
	ErrInvalidDocument = errors.New("invalid ENUM configuration document")
)

// Translator resolves a dialled number to a destination URI. An empty result
// means no match; Translate never fails.
type Translator interface {
	Translate(ctx context.Context, raw string) string
}

// Normalize keeps digits and a leading '+'. A '+' anywhere but in front of
// the first kept digit is dropped.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func digitsOnly(number string) string {
	return strings.TrimPrefix(number, "+")
}
