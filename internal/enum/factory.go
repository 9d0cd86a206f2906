package enum

import (
	"fmt"
	"time"

	"callrouter/internal/config"
	"callrouter/internal/constants"
	"callrouter/internal/logger"
	"callrouter/internal/trace"
	"callrouter/pkg/circuitbreaker"
)

// NewTranslator builds the backend selected by cfg.Type. Configuration that
// can never work is returned as an error.
func NewTranslator(cfg config.EnumConfig, cbCfg config.CircuitBreakerConfig, sink trace.Sink, log logger.Logger) (Translator, error) {
	switch cfg.Type {
	case constants.EnumBackendJSON:
		if cfg.JSON.File == "" {
			return nil, fmt.Errorf("enum.json.file is required for the json backend")
		}
		return NewJSONService(cfg.JSON.File, sink, log), nil

	case constants.EnumBackendDNS:
		if err := config.ValidateDNSServer(cfg.DNS.Server); err != nil {
			return nil, err
		}

		timeout := time.Duration(cfg.DNS.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = constants.DefaultDNSTimeoutSeconds * time.Second
		}

		var resolver Resolver = NewDNSResolver(timeout)
		if cfg.DNS.CircuitBreaker || cbCfg.Enabled {
			resolver = NewBreakerResolver(resolver, circuitbreaker.FromSettings(
				"enum-dns",
				cbCfg.MaxRequests,
				cbCfg.Interval,
				cbCfg.Timeout,
				cbCfg.FailureRatio,
				cbCfg.MinRequests,
			))
		}

		log.Infow("Using DNS ENUM backend",
			"server", cfg.DNS.Server,
			"suffix", cfg.DNS.Suffix,
		)
		return NewDNSService(cfg.DNS.Server, cfg.DNS.Suffix, resolver, sink, log), nil

	default:
		return nil, fmt.Errorf("unknown ENUM backend: %s", cfg.Type)
	}
}
