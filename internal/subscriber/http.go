package subscriber

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callrouter/internal/config"
	"callrouter/internal/constants"
	"callrouter/internal/logger"
	"callrouter/pkg/errors"
	"callrouter/pkg/retry"
)

// HTTPConnector reads filter criteria from a Homestead-style REST endpoint:
// GET {base_url}/filtercriteria/{identity}.
type HTTPConnector struct {
	baseURL string
	client  *http.Client
	policy  retry.Policy
	logger  logger.Logger
}

func NewHTTPConnector(cfg config.SubscriberHTTPConfig, log logger.Logger) *HTTPConnector {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeoutSeconds * time.Second
	}

	return &HTTPConnector{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		policy: policyFromConfig(cfg.Retry),
		logger: log,
	}
}

func policyFromConfig(cfg config.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	policy.Component = "subscriber_http"
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return policy
}

// FetchFilterDocument retries transport failures and 5xx answers; 404 means
// the subscriber has no filter criteria.
func (c *HTTPConnector) FetchFilterDocument(ctx context.Context, identity string) (string, bool, error) {
	var (
		doc   string
		found bool
	)

	err := retry.RetryWithCallback(ctx, c.policy, func() error {
		var err error
		doc, found, err = c.fetch(ctx, identity)
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		c.logger.InfowCtx(ctx, "Retrying subscriber filter criteria fetch",
			"identity", identity,
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
	if err != nil {
		return "", false, err
	}

	return doc, found, nil
}

func (c *HTTPConnector) fetch(ctx context.Context, identity string) (string, bool, error) {
	endpoint := c.baseURL + "/filtercriteria/" + url.PathEscape(identity)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, retry.NewFatalError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, retry.NewFatalError(ctx.Err())
		}
		return "", false, errors.Wrap(err, errors.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", false, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", false, errors.ErrServiceUnavailable.WithDetail("status", resp.StatusCode)
	case resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax:
		return "", false, retry.NewFatalError(fmt.Errorf("subscriber store returned status: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrServiceUnavailable)
	}

	return string(body), true, nil
}
