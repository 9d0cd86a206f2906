package ifc

import (
	"context"
	"errors"
	"regexp"
	"strings"

	celgo "github.com/google/cel-go/cel"

	"callrouter/internal/sipmsg"
	"callrouter/pkg/cel"
)

var errNoRequest = errors.New("no request to evaluate")

// 3GPP TS 29.228 SessionCase codes.
const (
	sessionCaseOrigRegistered   = 0
	sessionCaseTermRegistered   = 1
	sessionCaseTermUnregistered = 2
	sessionCaseOrigUnregistered = 3
	sessionCaseOrigCDIV         = 4

	maxSessionCaseCode = sessionCaseOrigCDIV
)

type requestURIPredicate struct {
	pattern *regexp.Regexp
}

func (p requestURIPredicate) Matches(_ context.Context, mc MatchContext) (bool, error) {
	if mc.Request == nil {
		return false, errNoRequest
	}
	return p.pattern.MatchString(sipmsg.RequestURI(mc.Request)), nil
}

type methodPredicate struct {
	method string
}

func (p methodPredicate) Matches(_ context.Context, mc MatchContext) (bool, error) {
	if mc.Request == nil {
		return false, errNoRequest
	}
	return strings.EqualFold(string(mc.Request.Method), p.method), nil
}

// headerPredicate matches when the header is present and, if content is
// set, at least one of its values matches content.
type headerPredicate struct {
	name    string
	content *regexp.Regexp
}

func (p headerPredicate) Matches(_ context.Context, mc MatchContext) (bool, error) {
	if mc.Request == nil {
		return false, errNoRequest
	}

	values := sipmsg.HeaderValues(mc.Request, p.name)
	if p.content == nil {
		return len(values) > 0, nil
	}
	for _, v := range values {
		if p.content.MatchString(v) {
			return true, nil
		}
	}
	return false, nil
}

type sessionCasePredicate struct {
	code int
}

func (p sessionCasePredicate) Matches(_ context.Context, mc MatchContext) (bool, error) {
	switch p.code {
	case sessionCaseOrigRegistered:
		return mc.SessionCase == Originating && mc.Registered, nil
	case sessionCaseOrigUnregistered:
		return mc.SessionCase == Originating && !mc.Registered, nil
	case sessionCaseTermRegistered:
		return mc.SessionCase == Terminating && mc.Registered, nil
	case sessionCaseTermUnregistered:
		return mc.SessionCase == Terminating && !mc.Registered, nil
	default:
		return mc.SessionCase == OriginatingCDIV, nil
	}
}

// sessionDescriptionPredicate looks for an SDP line of the given type whose
// value matches content.
type sessionDescriptionPredicate struct {
	line    string
	content *regexp.Regexp
}

func (p sessionDescriptionPredicate) Matches(_ context.Context, mc MatchContext) (bool, error) {
	if mc.Request == nil {
		return false, errNoRequest
	}

	prefix := p.line + "="
	for _, line := range strings.Split(string(mc.Request.Body()), "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		if p.content == nil || p.content.MatchString(strings.TrimPrefix(line, prefix)) {
			return true, nil
		}
	}
	return false, nil
}

type expressionPredicate struct {
	evaluator *cel.Evaluator
	program   celgo.Program
}

func (p expressionPredicate) Matches(ctx context.Context, mc MatchContext) (bool, error) {
	if mc.Request == nil {
		return false, errNoRequest
	}

	vars := cel.RequestVars{
		Method:      string(mc.Request.Method),
		RequestURI:  sipmsg.RequestURI(mc.Request),
		SessionCase: mc.SessionCase.String(),
		Registered:  mc.Registered,
		Headers:     sipmsg.HeaderMap(mc.Request),
		Body:        string(mc.Request.Body()),
	}
	return p.evaluator.EvaluateCondition(ctx, p.program, vars)
}
