package routing

import (
	"context"
	"strings"

	"github.com/emiago/sipgo/sip"
	"go.opentelemetry.io/otel/attribute"

	"callrouter/internal/bgcf"
	"callrouter/internal/enum"
	"callrouter/internal/ifc"
	"callrouter/internal/logger"
	"callrouter/internal/registrar"
	"callrouter/internal/sipmsg"
	"callrouter/internal/subscriber"
	apperrors "callrouter/pkg/errors"
	"callrouter/pkg/tracing"
)

// ErrBadTranslation is returned when a number translation produced a URI
// that cannot be parsed. Callers should reject the request.
var ErrBadTranslation = apperrors.ErrTranslationFailed

// Dependencies are the collaborators the facade composes. Routes may be nil
// when no BGCF table is configured.
type Dependencies struct {
	Subscribers subscriber.Connector
	Registrar   registrar.Checker
	Filters     *ifc.Service
	Translator  enum.Translator
	Routes      *bgcf.Service
}

// Service answers the routing questions asked while processing a request.
type Service struct {
	homeDomains map[string]struct{}
	deps        Dependencies
	logger      logger.Logger
}

func NewService(homeDomains []string, deps Dependencies, log logger.Logger) *Service {
	domains := make(map[string]struct{}, len(homeDomains))
	for _, d := range homeDomains {
		domains[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}

	if deps.Subscribers == nil {
		deps.Subscribers = subscriber.NoneConnector{}
	}
	if deps.Registrar == nil {
		deps.Registrar = registrar.StaticChecker{Registered: true}
	}

	return &Service{
		homeDomains: domains,
		deps:        deps,
		logger:      log,
	}
}

type resolveOptions struct {
	registered *bool
}

type ResolveOption func(*resolveOptions)

// WithRegistered overrides the registrar lookup for the served user.
func WithRegistered(registered bool) ResolveOption {
	return func(o *resolveOptions) {
		o.registered = &registered
	}
}

// IsHomeDomain reports whether host is served by this node.
func (s *Service) IsHomeDomain(host string) bool {
	_, ok := s.homeDomains[strings.ToLower(host)]
	return ok
}

// ServedUser identifies the subscriber a request is processed for: the
// caller for originating cases, the callee for terminating. It is empty
// when that identity is not in a home domain.
func (s *Service) ServedUser(sc ifc.SessionCase, req *sip.Request) string {
	if sc.IsOriginating() {
		from := req.From()
		if from == nil {
			return ""
		}
		if s.IsHomeDomain(from.Address.Host) {
			return sipmsg.Identity(from.Address)
		}
		return ""
	}

	if sipmsg.IsTelURI(req) {
		number := enum.Normalize(telNumber(req))
		if number == "" {
			return ""
		}
		return "tel:" + number
	}
	if s.IsHomeDomain(req.Recipient.Host) {
		return sipmsg.Identity(req.Recipient)
	}
	return ""
}

// ResolveServedUserAndAS finds the served user and the ordered application
// servers its filter criteria select for req. Store failures are logged and
// yield an empty list.
func (s *Service) ResolveServedUserAndAS(ctx context.Context, sc ifc.SessionCase, req *sip.Request, opts ...ResolveOption) (string, []string) {
	ctx, span := tracing.GetTracer("routing").Start(ctx, "routing.resolve_served_user_and_as")
	defer span.End()
	span.SetAttributes(attribute.String("session_case", sc.String()))

	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	servedUser := s.ServedUser(sc, req)
	if servedUser == "" {
		s.logger.DebugwCtx(ctx, "No served user in a home domain", "session_case", sc.String())
		return "", []string{}
	}
	span.SetAttributes(attribute.String("served_user", servedUser))

	if s.deps.Filters == nil {
		return servedUser, []string{}
	}

	document, found, err := s.deps.Subscribers.FetchFilterDocument(ctx, servedUser)
	if err != nil {
		tracing.SpanError(span, err)
		return servedUser, []string{}
	}
	if !found || strings.TrimSpace(document) == "" {
		return servedUser, []string{}
	}

	registered := s.registered(ctx, servedUser, o)
	servers := s.deps.Filters.SelectApplicationServers(ctx, document, ifc.MatchContext{
		Request:     req,
		SessionCase: sc,
		Registered:  registered,
	})
	span.SetAttributes(attribute.Int("application_servers", len(servers)))

	return servedUser, servers
}

func (s *Service) registered(ctx context.Context, servedUser string, o resolveOptions) bool {
	if o.registered != nil {
		return *o.registered
	}

	registered, err := s.deps.Registrar.IsRegistered(ctx, servedUser)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to check registration state, assuming registered",
			"served_user", servedUser,
			"error", err,
		)
		return true
	}
	return registered
}

// TranslateNumber returns the destination URI for a dialled number, or ""
// when no rule matches.
func (s *Service) TranslateNumber(ctx context.Context, raw string) string {
	if s.deps.Translator == nil {
		return ""
	}

	ctx, span := tracing.GetTracer("routing").Start(ctx, "routing.translate_number")
	defer span.End()

	uri := s.deps.Translator.Translate(ctx, raw)
	span.SetAttributes(attribute.Bool("matched", uri != ""))
	return uri
}

// TranslateRequestURI translates the request target when it is a tel URI or
// a SIP URI with a numeric user. It returns "" when the target is left as
// is, and ErrBadTranslation when the translated URI does not parse.
func (s *Service) TranslateRequestURI(ctx context.Context, req *sip.Request) (string, error) {
	var number string
	switch {
	case sipmsg.IsTelURI(req):
		number = telNumber(req)
	case isUserNumeric(req.Recipient.User):
		number = req.Recipient.User
	default:
		return "", nil
	}

	uri := s.TranslateNumber(ctx, number)
	if uri == "" {
		return "", nil
	}

	if _, err := sipmsg.ParseURI(uri); err != nil {
		s.logger.WarnwCtx(ctx, "Badly formed URI from ENUM translation",
			"number", number,
			"uri", uri,
			"error", err,
		)
		return "", ErrBadTranslation.WithDetail("uri", uri).WithCause(err)
	}

	s.logger.DebugwCtx(ctx, "Update request URI", "uri", uri)
	return uri, nil
}

// RouteToDomain returns the breakout gateway for domain, or "".
func (s *Service) RouteToDomain(ctx context.Context, domain string) string {
	if s.deps.Routes == nil {
		return ""
	}
	return s.deps.Routes.GetRoute(ctx, domain)
}

// isUserNumeric accepts digits with visual separators and an optional
// leading '+'.
func isUserNumeric(user string) bool {
	digits := 0
	for i, r := range user {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits > 0
}

func telNumber(req *sip.Request) string {
	target := sipmsg.RequestURI(req)
	if i := strings.IndexByte(target, ':'); i >= 0 {
		target = target[i+1:]
	}
	number, _, _ := strings.Cut(target, ";")
	return number
}
