package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8080, ReadTimeoutSeconds: 10, WriteTimeoutSeconds: 10},
		Logging:    LoggingConfig{Level: "info", Format: "json"},
		Enum:       EnumConfig{Type: "json", JSON: EnumJSONConfig{File: "enum.json"}},
		Subscriber: SubscriberConfig{Type: "none"},
		Registrar:  RegistrarConfig{Type: "static", AssumeRegistered: true},
		Trace:      TraceConfig{Type: "log"},
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
routing:
  home_domains: ["example.com"]
enum:
  json:
    file: /etc/callrouter/enum.json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Enum.Type)
	assert.Equal(t, ".e164.arpa", cfg.Enum.DNS.Suffix)
	assert.Equal(t, "none", cfg.Subscriber.Type)
	assert.Equal(t, "static", cfg.Registrar.Type)
	assert.True(t, cfg.Registrar.AssumeRegistered)
	assert.Equal(t, "log", cfg.Trace.Type)
	assert.Equal(t, []string{"example.com"}, cfg.Routing.HomeDomains)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
enum:
  type: dns
  dns:
    server: 127.0.0.1
`)
	t.Setenv("ENUM_DNS_SERVER", "10.0.0.53:5353")
	t.Setenv("ROUTING_HOME_DOMAINS", "a.example, b.example")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "dns", cfg.Enum.Type)
	assert.Equal(t, "10.0.0.53:5353", cfg.Enum.DNS.Server)
	assert.Equal(t, []string{"a.example", "b.example"}, cfg.Routing.HomeDomains)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsContractFaults(t *testing.T) {
	path := writeConfig(t, `
enum:
  type: dns
  dns:
    server: dns.example.com
`)

	_, err := LoadConfig(path)
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "enum.dns.server", vErr.Field)
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantField: "server.port"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantField: "logging.level"},
		{name: "unknown enum backend", mutate: func(c *Config) { c.Enum.Type = "ldap" }, wantField: "enum.type"},
		{name: "json without file", mutate: func(c *Config) { c.Enum.JSON.File = "" }, wantField: "enum.json.file"},
		{name: "dns zero timeout", mutate: func(c *Config) {
			c.Enum.Type = "dns"
			c.Enum.DNS.Server = "127.0.0.1"
		}, wantField: "enum.dns.timeout_seconds"},
		{name: "http connector without url", mutate: func(c *Config) {
			c.Subscriber.Type = "http"
			c.Subscriber.HTTP.TimeoutSeconds = 1
		}, wantField: "subscriber.http.base_url"},
		{name: "redis registrar without redis", mutate: func(c *Config) { c.Registrar.Type = "redis" }, wantField: "database.redis.host"},
		{name: "kafka sink without brokers", mutate: func(c *Config) { c.Trace.Type = "kafka" }, wantField: "trace.kafka.brokers"},
		{name: "unknown trace sink", mutate: func(c *Config) { c.Trace.Type = "syslog" }, wantField: "trace.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestValidateDNSServer(t *testing.T) {
	assert.NoError(t, ValidateDNSServer("127.0.0.1"))
	assert.NoError(t, ValidateDNSServer("127.0.0.1:5353"))
	assert.NoError(t, ValidateDNSServer("::1"))
	assert.NoError(t, ValidateDNSServer("[::1]:53"))
	assert.Error(t, ValidateDNSServer(""))
	assert.Error(t, ValidateDNSServer("ns.example.com"))
	assert.Error(t, ValidateDNSServer("127.0.0.1:0"))
}
