package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"callrouter/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic rejects contract faults: configuration values that no
// request could ever make sense of. All failing sections are reported.
func ValidateStatic(cfg *Config) error {
	validators := []func(*Config) error{
		func(c *Config) error { return validateServer(c.Server) },
		func(c *Config) error { return validateLogging(c.Logging) },
		func(c *Config) error { return validateRouting(c.Routing) },
		func(c *Config) error { return validateEnum(c.Enum) },
		func(c *Config) error { return validateSubscriber(c.Subscriber, c.Database) },
		func(c *Config) error { return validateRegistrar(c.Registrar, c.Database) },
		func(c *Config) error { return validateTrace(c.Trace) },
		func(c *Config) error { return validateDatabase(c.Database) },
		func(c *Config) error { return validateCircuitBreaker(c.CircuitBreaker) },
	}

	var errs []error
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if err := validatePort("server.port", cfg.Port); err != nil {
		return err
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0) {
		return &ValidationError{
			Field:   "server.rate_limit",
			Message: "rps and burst must be positive when rate limiting is enabled",
		}
	}

	return nil
}

func validateLogging(cfg LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", cfg.Level),
		}
	}

	switch cfg.Format {
	case "", "json", "console":
		return nil
	default:
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: json, console)", cfg.Format),
		}
	}
}

func validateRouting(cfg RoutingConfig) error {
	for i, domain := range cfg.HomeDomains {
		if strings.TrimSpace(domain) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("routing.home_domains[%d]", i),
				Message: "home domain cannot be empty",
			}
		}
	}
	return nil
}

func validateEnum(cfg EnumConfig) error {
	switch cfg.Type {
	case constants.EnumBackendJSON:
		if cfg.JSON.File == "" {
			return &ValidationError{
				Field:   "enum.json.file",
				Message: "ENUM file is required for the json backend",
			}
		}
		if cfg.JSON.ReloadIntervalSeconds < 0 {
			return &ValidationError{
				Field:   "enum.json.reload_interval_seconds",
				Message: "reload interval must be non-negative",
			}
		}
		return nil
	case constants.EnumBackendDNS:
		if err := ValidateDNSServer(cfg.DNS.Server); err != nil {
			return err
		}
		if cfg.DNS.TimeoutSeconds <= 0 {
			return &ValidationError{
				Field:   "enum.dns.timeout_seconds",
				Message: "DNS timeout must be positive",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "enum.type",
			Message: fmt.Sprintf("unknown ENUM backend: %s (supported: json, dns)", cfg.Type),
		}
	}
}

// ValidateDNSServer accepts an IP address with an optional port.
func ValidateDNSServer(server string) error {
	if server == "" {
		return &ValidationError{
			Field:   "enum.dns.server",
			Message: "DNS server is required for the dns backend",
		}
	}

	host := server
	if h, port, err := net.SplitHostPort(server); err == nil {
		p, convErr := strconv.Atoi(port)
		if convErr != nil || p < 1 || p > 65535 {
			return &ValidationError{
				Field:   "enum.dns.server",
				Message: fmt.Sprintf("invalid DNS server port in %q", server),
			}
		}
		host = h
	}

	if net.ParseIP(host) == nil {
		return &ValidationError{
			Field:   "enum.dns.server",
			Message: fmt.Sprintf("DNS server must be an IP address, got %q", server),
		}
	}

	return nil
}

func validateSubscriber(cfg SubscriberConfig, db DatabaseConfig) error {
	switch cfg.Type {
	case constants.ConnectorNone:
		return nil
	case constants.ConnectorHTTP:
		if !strings.HasPrefix(cfg.HTTP.BaseURL, "http://") && !strings.HasPrefix(cfg.HTTP.BaseURL, "https://") {
			return &ValidationError{
				Field:   "subscriber.http.base_url",
				Message: "base URL must start with http:// or https://",
			}
		}
		if cfg.HTTP.TimeoutSeconds <= 0 {
			return &ValidationError{
				Field:   "subscriber.http.timeout_seconds",
				Message: "timeout must be positive",
			}
		}
		return validateRetry("subscriber.http.retry", cfg.HTTP.Retry)
	case constants.ConnectorPostgres:
		if db.Postgres.Host == "" {
			return &ValidationError{
				Field:   "database.postgres.host",
				Message: "PostgreSQL settings are required for the postgres connector",
			}
		}
		return nil
	case constants.ConnectorRedis:
		if db.Redis.Host == "" {
			return &ValidationError{
				Field:   "database.redis.host",
				Message: "Redis settings are required for the redis connector",
			}
		}
		return nil
	case constants.ConnectorMongoDB:
		if db.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "database.mongodb.uri",
				Message: "MongoDB settings are required for the mongodb connector",
			}
		}
		if cfg.Collection == "" {
			return &ValidationError{
				Field:   "subscriber.collection",
				Message: "collection is required for the mongodb connector",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "subscriber.type",
			Message: fmt.Sprintf("unknown subscriber connector: %s (supported: http, postgres, redis, mongodb, none)", cfg.Type),
		}
	}
}

func validateRetry(field string, cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   field + ".max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.InitialInterval < 0 || cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   field,
			Message: "intervals must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   field + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier < 0 {
		return &ValidationError{
			Field:   field + ".multiplier",
			Message: "multiplier must be non-negative",
		}
	}

	return nil
}

func validateRegistrar(cfg RegistrarConfig, db DatabaseConfig) error {
	switch cfg.Type {
	case constants.RegistrarStatic:
		return nil
	case constants.RegistrarRedis:
		if db.Redis.Host == "" {
			return &ValidationError{
				Field:   "database.redis.host",
				Message: "Redis settings are required for the redis registrar",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "registrar.type",
			Message: fmt.Sprintf("unknown registrar type: %s (supported: static, redis)", cfg.Type),
		}
	}
}

func validateTrace(cfg TraceConfig) error {
	switch cfg.Type {
	case constants.TraceSinkLog, constants.TraceSinkNone:
		return nil
	case constants.TraceSinkKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return &ValidationError{
				Field:   "trace.kafka.brokers",
				Message: "at least one Kafka broker is required",
			}
		}
		for i, broker := range cfg.Kafka.Brokers {
			if broker == "" {
				return &ValidationError{
					Field:   fmt.Sprintf("trace.kafka.brokers[%d]", i),
					Message: "broker address cannot be empty",
				}
			}
		}
		if cfg.Kafka.Topic == "" {
			return &ValidationError{
				Field:   "trace.kafka.topic",
				Message: "Kafka topic is required",
			}
		}
		if cfg.BufferSize <= 0 {
			return &ValidationError{
				Field:   "trace.buffer_size",
				Message: "buffer size must be positive",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "trace.type",
			Message: fmt.Sprintf("unknown trace sink: %s (supported: log, kafka, none)", cfg.Type),
		}
	}
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if cfg.Redis.Host == "" {
			return &ValidationError{
				Field:   "database.redis.host",
				Message: "Redis host is required",
			}
		}
		if err := validatePort("database.redis.port", cfg.Redis.Port); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if !strings.HasPrefix(cfg.MongoDB.URI, "mongodb://") && !strings.HasPrefix(cfg.MongoDB.URI, "mongodb+srv://") {
			return &ValidationError{
				Field:   "database.mongodb.uri",
				Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
			}
		}
		if cfg.MongoDB.Database == "" {
			return &ValidationError{
				Field:   "database.mongodb.database",
				Message: "MongoDB database name is required",
			}
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if err := validatePort("database.postgres.port", cfg.Port); err != nil {
		return err
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.FailureRatio < 0 || cfg.FailureRatio > 1 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_ratio",
			Message: "failure ratio must be between 0 and 1",
		}
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", port),
		}
	}
	return nil
}
