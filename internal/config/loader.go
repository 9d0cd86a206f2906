package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"callrouter/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 10)
	viper.SetDefault("server.write_timeout_seconds", 10)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("enum.type", constants.EnumBackendJSON)
	viper.SetDefault("enum.dns.suffix", constants.DefaultEnumSuffix)
	viper.SetDefault("enum.dns.timeout_seconds", constants.DefaultDNSTimeoutSeconds)

	viper.SetDefault("subscriber.type", constants.ConnectorNone)
	viper.SetDefault("subscriber.http.timeout_seconds", constants.DefaultHTTPTimeoutSeconds)
	viper.SetDefault("subscriber.key_prefix", constants.DefaultSubscriberKeyPrefix)
	viper.SetDefault("subscriber.collection", constants.DefaultSubscriberCollection)

	viper.SetDefault("registrar.type", constants.RegistrarStatic)
	viper.SetDefault("registrar.assume_registered", true)
	viper.SetDefault("registrar.key_prefix", constants.DefaultRegistrarKeyPrefix)

	viper.SetDefault("trace.type", constants.TraceSinkLog)
	viper.SetDefault("trace.buffer_size", constants.DefaultTraceBufferSize)
	viper.SetDefault("trace.kafka.topic", constants.DefaultTraceTopic)
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("enum.type", "ENUM_TYPE")
	viper.BindEnv("enum.json.file", "ENUM_JSON_FILE")
	viper.BindEnv("enum.dns.server", "ENUM_DNS_SERVER")
	viper.BindEnv("enum.dns.suffix", "ENUM_DNS_SUFFIX")

	viper.BindEnv("bgcf.file", "BGCF_FILE")

	viper.BindEnv("subscriber.type", "SUBSCRIBER_TYPE")
	viper.BindEnv("subscriber.http.base_url", "SUBSCRIBER_HTTP_BASE_URL")

	viper.BindEnv("registrar.type", "REGISTRAR_TYPE")

	viper.BindEnv("trace.type", "TRACE_TYPE")
	viper.BindEnv("trace.kafka.brokers", "TRACE_KAFKA_BROKERS")
	viper.BindEnv("trace.kafka.topic", "TRACE_KAFKA_TOPIC")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

// applyEnvOverrides handles list values that arrive from the environment as
// comma separated strings.
func applyEnvOverrides(cfg *Config) {
	if brokers := splitList(viper.GetString("TRACE_KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.Trace.Kafka.Brokers = brokers
	}

	if domains := splitList(viper.GetString("ROUTING_HOME_DOMAINS")); len(domains) > 0 {
		cfg.Routing.HomeDomains = domains
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
