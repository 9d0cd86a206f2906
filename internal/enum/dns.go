package enum

import (
	"context"
	"sort"
	"strings"
	"time"

	"callrouter/internal/constants"
	"callrouter/internal/logger"
	"callrouter/internal/trace"
	"callrouter/pkg/metrics"
)

// NAPTRRecord carries the fields of one NAPTR answer.
type NAPTRRecord struct {
	Order       uint16
	Preference  uint16
	Flags       string
	Service     string
	Regexp      string
	Replacement string
}

// Resolver issues NAPTR queries. An empty slice with a nil error is an empty
// reply.
type Resolver interface {
	QueryNAPTR(ctx context.Context, name, server string) ([]NAPTRRecord, error)
}

type candidate struct {
	record   NAPTRRecord
	rule     RewriteRule
	terminal bool
}

// DNSService translates numbers by following NAPTR rewrite chains.
type DNSService struct {
	server   string
	suffix   string
	resolver Resolver
	sink     trace.Sink
	logger   logger.Logger
}

func NewDNSService(server, suffix string, resolver Resolver, sink trace.Sink, log logger.Logger) *DNSService {
	if suffix == "" {
		suffix = constants.DefaultEnumSuffix
	}
	if !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	if sink == nil {
		sink = trace.NopSink{}
	}

	return &DNSService{
		server:   server,
		suffix:   suffix,
		resolver: resolver,
		sink:     sink,
		logger:   log,
	}
}

func (s *DNSService) Translate(ctx context.Context, raw string) string {
	start := time.Now()
	uri, result := s.translate(ctx, raw)
	metrics.ObserveEnumLookup(constants.EnumBackendDNS, result, time.Since(start))
	return uri
}

func (s *DNSService) translate(ctx context.Context, raw string) (string, string) {
	working := Normalize(raw)
	if digitsOnly(working) == "" {
		return "", "empty_input"
	}

	trace.Record(ctx, s.sink, trace.EventEnumStart, "number", working)

	for queries := 0; queries < constants.MaxDNSQueries; queries++ {
		name := s.domainFor(working)

		trace.Record(ctx, s.sink, trace.EventDNSRequest, "name", name, "server", s.server)
		records, err := s.resolver.QueryNAPTR(ctx, name, s.server)
		if err != nil {
			metrics.IncEnumDNSQuery("error")
			s.logger.InfowCtx(ctx, "ENUM DNS query failed",
				"name", name,
				"server", s.server,
				"error", err,
			)
			trace.Record(ctx, s.sink, trace.EventDNSError, "name", name, "error", err.Error())
			return "", "dns_error"
		}

		trace.Record(ctx, s.sink, trace.EventDNSResponse, "name", name, "records", len(records))
		if len(records) == 0 {
			metrics.IncEnumDNSQuery("empty")
			s.logger.DebugwCtx(ctx, "Empty ENUM DNS reply", "name", name)
			trace.Record(ctx, s.sink, trace.EventEnumIncomplete, "number", working)
			return "", "no_match"
		}
		metrics.IncEnumDNSQuery("ok")

		next, terminal, ok := s.applyRecords(ctx, working, s.candidates(ctx, records))
		if !ok {
			s.logger.DebugwCtx(ctx, "No usable ENUM record", "name", name)
			trace.Record(ctx, s.sink, trace.EventEnumIncomplete, "number", working)
			return "", "no_match"
		}

		if terminal {
			trace.Record(ctx, s.sink, trace.EventEnumComplete, "number", working, "uri", next)
			return next, "match"
		}

		working = Normalize(next)
		if digitsOnly(working) == "" {
			s.logger.DebugwCtx(ctx, "Non-terminal ENUM rule produced no digits", "result", next)
			trace.Record(ctx, s.sink, trace.EventEnumIncomplete, "number", next)
			return "", "no_match"
		}
	}

	s.logger.WarnwCtx(ctx, "ENUM lookup exceeded the query limit",
		"number", Normalize(raw),
		"max_queries", constants.MaxDNSQueries,
	)
	trace.Record(ctx, s.sink, trace.EventEnumIncomplete, "number", working, "reason", "query_limit")
	return "", "loop_limit"
}

// applyRecords runs the candidates in order and stops at the first rule that
// matches the working string.
func (s *DNSService) applyRecords(ctx context.Context, working string, candidates []candidate) (string, bool, bool) {
	for _, c := range candidates {
		out, matched := c.rule.Apply(working)
		if !matched {
			continue
		}
		trace.Record(ctx, s.sink, trace.EventEnumMatch,
			"number", working,
			"regexp", c.record.Regexp,
			"terminal", c.terminal,
		)
		return out, c.terminal, true
	}
	return "", false, false
}

// candidates keeps usable records sorted by (order, preference). Ties keep
// reply order.
func (s *DNSService) candidates(ctx context.Context, records []NAPTRRecord) []candidate {
	out := make([]candidate, 0, len(records))

	for _, rec := range records {
		if !supportedService(rec.Service) {
			s.logger.DebugwCtx(ctx, "Ignoring ENUM record with unsupported service", "service", rec.Service)
			continue
		}

		terminal, ok := parseFlags(rec.Flags)
		if !ok {
			s.logger.DebugwCtx(ctx, "Ignoring ENUM record with unsupported flags", "flags", rec.Flags)
			continue
		}

		rule, err := ParseRewrite(rec.Regexp)
		if err != nil {
			s.logger.InfowCtx(ctx, "Ignoring ENUM record with malformed regexp",
				"regexp", rec.Regexp,
				"error", err,
			)
			continue
		}

		out = append(out, candidate{record: rec, rule: rule, terminal: terminal})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].record.Order != out[j].record.Order {
			return out[i].record.Order < out[j].record.Order
		}
		return out[i].record.Preference < out[j].record.Preference
	})

	return out
}

func (s *DNSService) domainFor(number string) string {
	digits := digitsOnly(number)
	labels := make([]string, len(digits))
	for i := range digits {
		labels[len(digits)-1-i] = digits[i : i+1]
	}
	return strings.Join(labels, ".") + s.suffix
}

func supportedService(service string) bool {
	return strings.EqualFold(service, constants.ServiceE2USIP) ||
		strings.EqualFold(service, constants.ServiceE2UPSTNSIP)
}

// parseFlags maps "u" to terminal and "" to non-terminal; anything else is
// unusable.
func parseFlags(flags string) (terminal bool, ok bool) {
	switch strings.ToLower(flags) {
	case "u":
		return true, true
	case "":
		return false, true
	default:
		return false, false
	}
}
