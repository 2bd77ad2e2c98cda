// Package config defines the gateway configuration, its YAML loader
// with environment variable substitution, validation, and a file
// watcher for hot reload.
package config

import (
	"time"

	"github.com/vyrodovalexey/aviotgw/internal/downstream"
	"github.com/vyrodovalexey/aviotgw/internal/observability"
)

// GatewayConfig is the root configuration of the gateway.
type GatewayConfig struct {
	Server           ServerConfig               `yaml:"server"`
	Logging          observability.LogConfig    `yaml:"logging"`
	Tracing          observability.TracerConfig `yaml:"tracing"`
	Kafka            downstream.KafkaConfig     `yaml:"kafka"`
	Redis            RedisConfig                `yaml:"redis"`
	Auth             AuthConfig                 `yaml:"auth"`
	CredentialPolicy CredentialPolicyConfig     `yaml:"credentialPolicy"`
	Tenant           TenantConfig               `yaml:"tenant"`
	RateLimit        RateLimitConfig            `yaml:"rateLimit"`
	Registry         RegistryConfig             `yaml:"registry"`
	Providers        []string                   `yaml:"providers"`
}

// RegistryConfig holds the device registry settings.
type RegistryConfig struct {
	// File is the path to the JSON registry file holding tenants,
	// devices and credentials.
	File string `yaml:"file"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address            string        `yaml:"address"`
	Port               int           `yaml:"port"`
	ReadTimeout        time.Duration `yaml:"readTimeout"`
	WriteTimeout       time.Duration `yaml:"writeTimeout"`
	IdleTimeout        time.Duration `yaml:"idleTimeout"`
	MaxRequestBodySize int64         `yaml:"maxRequestBodySize"`
}

// RedisConfig holds the tenant cache settings.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// AuthConfig holds the gateway authentication settings.
type AuthConfig struct {
	Basic BasicAuthConfig `yaml:"basic"`
	JWT   JWTAuthConfig   `yaml:"jwt"`
}

// BasicAuthConfig enables HTTP Basic authentication against the
// credential store.
type BasicAuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// JWTAuthConfig enables bearer token authentication.
type JWTAuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// CredentialPolicyConfig holds the organization-wide password hashing
// policy.
type CredentialPolicyConfig struct {
	// HashAlgorithmsWhitelist lists the accepted hash algorithms.
	// Empty means any algorithm is accepted.
	HashAlgorithmsWhitelist []string `yaml:"hashAlgorithmsWhitelist"`

	// MaxBcryptIterations caps the cost factor of bcrypt hashes.
	MaxBcryptIterations int `yaml:"maxBcryptIterations"`
}

// TenantConfig holds tenant conversion settings.
type TenantConfig struct {
	// FilterExpiredAuthorities drops trust anchors whose validity
	// window does not contain the current instant.
	FilterExpiredAuthorities bool `yaml:"filterExpiredAuthorities"`
}

// RateLimitConfig holds the inbound rate limit settings.
type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled"`
	RPS       int  `yaml:"rps"`
	Burst     int  `yaml:"burst"`
	PerClient bool `yaml:"perClient"`
}

// DefaultConfig returns the configuration the gateway starts with when
// no file overrides it.
func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       30 * time.Second,
			IdleTimeout:        120 * time.Second,
			MaxRequestBodySize: 1 << 20,
		},
		Logging: observability.LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: observability.TracerConfig{
			ServiceName:  "aviotgw",
			SamplingRate: 1.0,
		},
		Kafka: *downstream.DefaultKafkaConfig(),
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  time.Minute,
		},
		Auth: AuthConfig{
			Basic: BasicAuthConfig{Enabled: true},
		},
		CredentialPolicy: CredentialPolicyConfig{
			MaxBcryptIterations: 10,
		},
		Tenant: TenantConfig{
			FilterExpiredAuthorities: true,
		},
		RateLimit: RateLimitConfig{
			RPS:       100,
			Burst:     200,
			PerClient: true,
		},
		Registry: RegistryConfig{
			File: "registry.json",
		},
		Providers: []string{"ttn", "chirpstack"},
	}
}
