package enum

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"callrouter/internal/constants"
	"callrouter/pkg/circuitbreaker"
)

// DNSResolver queries NAPTR records over UDP with a per-query timeout.
// Cancelling ctx abandons the query in flight.
type DNSResolver struct {
	client *dns.Client
}

func NewDNSResolver(timeout time.Duration) *DNSResolver {
	return &DNSResolver{
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
	}
}

func (r *DNSResolver) QueryNAPTR(ctx context.Context, name, server string) ([]NAPTRRecord, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeNAPTR)
	msg.RecursionDesired = true

	reply, _, err := r.client.ExchangeContext(ctx, msg, serverAddress(server))
	if err != nil {
		return nil, fmt.Errorf("NAPTR query for %s failed: %w", name, err)
	}

	switch reply.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("NAPTR query for %s returned %s", name, dns.RcodeToString[reply.Rcode])
	}

	records := make([]NAPTRRecord, 0, len(reply.Answer))
	for _, rr := range reply.Answer {
		naptr, ok := rr.(*dns.NAPTR)
		if !ok {
			continue
		}
		records = append(records, NAPTRRecord{
			Order:       naptr.Order,
			Preference:  naptr.Preference,
			Flags:       naptr.Flags,
			Service:     naptr.Service,
			Regexp:      naptr.Regexp,
			Replacement: naptr.Replacement,
		})
	}

	return records, nil
}

func serverAddress(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, constants.DefaultDNSPort)
}

// BreakerResolver stops querying a DNS server that keeps failing. An open
// breaker is reported as a resolver error, which callers treat as no reply.
type BreakerResolver struct {
	resolver Resolver
	breaker  *circuitbreaker.Wrapper
}

func NewBreakerResolver(resolver Resolver, cfg circuitbreaker.Config) *BreakerResolver {
	return &BreakerResolver{
		resolver: resolver,
		breaker:  circuitbreaker.NewWrapper(cfg),
	}
}

func (r *BreakerResolver) QueryNAPTR(ctx context.Context, name, server string) ([]NAPTRRecord, error) {
	result, err := r.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return r.resolver.QueryNAPTR(ctx, name, server)
	})
	if err != nil {
		return nil, err
	}

	records, _ := result.([]NAPTRRecord)
	return records, nil
}
