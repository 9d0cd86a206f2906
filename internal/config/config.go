package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Logging        LoggingConfig
	Routing        RoutingConfig
	Enum           EnumConfig
	BGCF           BGCFConfig
	Subscriber     SubscriberConfig
	Registrar      RegistrarConfig
	Trace          TraceConfig
	Database       DatabaseConfig
	CircuitBreaker CircuitBreakerConfig
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int             `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration   `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration   `mapstructure:"write_timeout_seconds"`
	RateLimit           RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RoutingConfig holds the domains this node serves. Only identities in a home
// domain are treated as served users.
type RoutingConfig struct {
	HomeDomains []string `mapstructure:"home_domains"`
}

type EnumConfig struct {
	// Type selects the translation backend: "json" or "dns".
	Type string         `mapstructure:"type"`
	JSON EnumJSONConfig `mapstructure:"json"`
	DNS  EnumDNSConfig  `mapstructure:"dns"`
}

type EnumJSONConfig struct {
	File                  string `mapstructure:"file"`
	ReloadIntervalSeconds int    `mapstructure:"reload_interval_seconds"`
}

type EnumDNSConfig struct {
	Server         string `mapstructure:"server"`
	Suffix         string `mapstructure:"suffix"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	CircuitBreaker bool   `mapstructure:"circuit_breaker"`
}

type BGCFConfig struct {
	File string `mapstructure:"file"`
}

type SubscriberConfig struct {
	// Type selects the connector: "http", "postgres", "redis", "mongodb" or "none".
	Type       string               `mapstructure:"type"`
	HTTP       SubscriberHTTPConfig `mapstructure:"http"`
	KeyPrefix  string               `mapstructure:"key_prefix"`
	Collection string               `mapstructure:"collection"`
}

type SubscriberHTTPConfig struct {
	BaseURL        string      `mapstructure:"base_url"`
	TimeoutSeconds int         `mapstructure:"timeout_seconds"`
	Retry          RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type RegistrarConfig struct {
	// Type selects the binding check: "static" or "redis".
	Type             string `mapstructure:"type"`
	AssumeRegistered bool   `mapstructure:"assume_registered"`
	KeyPrefix        string `mapstructure:"key_prefix"`
}

type TraceConfig struct {
	// Type selects the sink: "log", "kafka" or "none".
	Type       string           `mapstructure:"type"`
	BufferSize int              `mapstructure:"buffer_size"`
	Kafka      TraceKafkaConfig `mapstructure:"kafka"`
}

type TraceKafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
