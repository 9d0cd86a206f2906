package ifc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"callrouter/internal/logger"
	"callrouter/internal/trace"
	"callrouter/pkg/cel"
	"callrouter/pkg/metrics"
	"callrouter/pkg/tracing"
)

// Service evaluates subscriber filter criteria documents. Documents are
// parsed on every call; nothing is cached between requests.
type Service struct {
	exprs  *cel.Evaluator
	sink   trace.Sink
	logger logger.Logger
}

func NewService(sink trace.Sink, log logger.Logger) (*Service, error) {
	exprs, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	if sink == nil {
		sink = trace.NopSink{}
	}

	return &Service{
		exprs:  exprs,
		sink:   sink,
		logger: log,
	}, nil
}

// SelectApplicationServers returns the ordered application servers for the
// request. It never fails: an unusable document yields an empty list and a
// broken criterion is logged and skipped.
func (s *Service) SelectApplicationServers(ctx context.Context, document string, mc MatchContext) []string {
	ctx, span := tracing.GetTracer("ifc").Start(ctx, "ifc.select_application_servers")
	defer span.End()
	span.SetAttributes(
		attribute.String("session_case", mc.SessionCase.String()),
		attribute.Bool("registered", mc.Registered),
	)

	start := time.Now()

	profile, err := ParseServiceProfile(document, s.exprs)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to parse filter criteria document",
			"error", err,
		)
		tracing.SpanError(span, err)
		metrics.ObserveIFCEvaluation(mc.SessionCase.String(), "invalid_document", time.Since(start), 0)
		return []string{}
	}

	for _, fault := range profile.Faults {
		metrics.IncIFCCriterionFault("parse")
		s.logger.WarnwCtx(ctx, "Skipping malformed filter criterion",
			"criterion", fault.Index,
			"error", fault.Err,
		)
	}

	servers, faults := SelectApplicationServers(ctx, profile, mc)
	for _, fault := range faults {
		metrics.IncIFCCriterionFault("evaluate")
		s.logger.WarnwCtx(ctx, "Skipping filter criterion that failed to evaluate",
			"criterion", fault.Index,
			"error", fault.Err,
		)
	}

	status := "ok"
	if len(profile.Faults)+len(faults) > 0 {
		status = "partial"
	}
	metrics.ObserveIFCEvaluation(mc.SessionCase.String(), status, time.Since(start), len(servers))
	span.SetAttributes(attribute.Int("application_servers", len(servers)))

	trace.Record(ctx, s.sink, trace.EventIFCEvaluated,
		"session_case", mc.SessionCase.String(),
		"registered", mc.Registered,
		"criteria", len(profile.Criteria)+len(profile.Faults),
		"faults", len(profile.Faults)+len(faults),
		"application_servers", servers,
	)

	s.logger.DebugwCtx(ctx, "Selected application servers",
		"session_case", mc.SessionCase.String(),
		"application_servers", servers,
	)

	return servers
}
