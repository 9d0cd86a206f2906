package ifc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emiago/sipgo/sip"
)

var (
	ErrInvalidDocument    = errors.New("invalid filter criteria document")
	ErrMalformedCriterion = errors.New("malformed filter criterion")
	ErrEvaluation         = errors.New("filter criterion evaluation failed")
)

// SessionCase is the direction of a request relative to the served user.
type SessionCase int

const (
	Originating SessionCase = iota
	Terminating
	OriginatingCDIV
)

func (sc SessionCase) String() string {
	switch sc {
	case Originating:
		return "orig"
	case Terminating:
		return "term"
	case OriginatingCDIV:
		return "orig-cdiv"
	default:
		return fmt.Sprintf("session-case(%d)", int(sc))
	}
}

// IsOriginating is true for both plain and diverted originating requests.
func (sc SessionCase) IsOriginating() bool {
	return sc == Originating || sc == OriginatingCDIV
}

func ParseSessionCase(s string) (SessionCase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "orig", "originating":
		return Originating, nil
	case "term", "terminating":
		return Terminating, nil
	case "orig-cdiv", "originating-cdiv", "orig_cdiv":
		return OriginatingCDIV, nil
	default:
		return 0, fmt.Errorf("unknown session case %q", s)
	}
}

type ProfilePartIndicator int

const (
	ProfilePartRegistered   ProfilePartIndicator = 0
	ProfilePartUnregistered ProfilePartIndicator = 1
)

func (p ProfilePartIndicator) allows(registered bool) bool {
	if p == ProfilePartRegistered {
		return registered
	}
	return !registered
}

// MatchContext is everything a predicate may inspect.
type MatchContext struct {
	Request     *sip.Request
	SessionCase SessionCase
	Registered  bool
}

// Predicate is a single request condition, evaluated before negation.
type Predicate interface {
	Matches(ctx context.Context, mc MatchContext) (bool, error)
}

type ServicePointTrigger struct {
	Negated   bool
	Groups    []int32
	Predicate Predicate
}

type TriggerPoint struct {
	CNF  bool
	SPTs []ServicePointTrigger
}

type FilterCriterion struct {
	// Index is the position of the criterion in its document.
	Index             int
	Priority          int32
	ProfilePart       *ProfilePartIndicator
	Trigger           *TriggerPoint
	ApplicationServer string
}

type ServiceProfile struct {
	Criteria []FilterCriterion
	// Faults lists criteria dropped while compiling the document.
	Faults []CriterionFault
}

// CriterionFault identifies one criterion that could not be used.
type CriterionFault struct {
	Index int
	Err   error
}

func (f CriterionFault) Error() string {
	return fmt.Sprintf("criterion %d: %v", f.Index, f.Err)
}

func (f CriterionFault) Unwrap() error {
	return f.Err
}
