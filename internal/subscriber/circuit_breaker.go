package subscriber

import (
	"context"
	"fmt"

	"callrouter/pkg/circuitbreaker"
)

type fetchResult struct {
	document string
	found    bool
}

type circuitBreakerConnector struct {
	connector Connector
	cb        *circuitbreaker.Wrapper
	name      string
}

// WrapWithCircuitBreaker stops calling c while its store keeps failing.
// A missing document is not a failure.
func WrapWithCircuitBreaker(c Connector, name string, cfg circuitbreaker.Config) Connector {
	return &circuitBreakerConnector{
		connector: c,
		cb:        circuitbreaker.NewWrapper(cfg),
		name:      name,
	}
}

func (c *circuitBreakerConnector) FetchFilterDocument(ctx context.Context, identity string) (string, bool, error) {
	result, err := c.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		doc, found, err := c.connector.FetchFilterDocument(ctx, identity)
		if err != nil {
			return nil, err
		}
		return fetchResult{document: doc, found: found}, nil
	})
	if err != nil {
		if c.cb.IsOpen() {
			return "", false, fmt.Errorf("circuit breaker is open for %s: %w", c.name, err)
		}
		return "", false, err
	}

	res, ok := result.(fetchResult)
	if !ok {
		return "", false, fmt.Errorf("connector returned invalid result type")
	}
	return res.document, res.found, nil
}
