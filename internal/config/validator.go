package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ValidateConfig checks the configuration for values the gateway
// cannot start with.
func ValidateConfig(config *GatewayConfig) error {
	if config == nil {
		return fmt.Errorf("config must not be nil")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", config.Server.Port)
	}

	if err := config.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}

	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis enabled but no address configured")
	}

	if config.Auth.JWT.Enabled && config.Auth.JWT.Secret == "" {
		return fmt.Errorf("jwt auth enabled but no secret configured")
	}

	if !config.Auth.Basic.Enabled && !config.Auth.JWT.Enabled {
		return fmt.Errorf("at least one authentication scheme must be enabled")
	}

	if max := config.CredentialPolicy.MaxBcryptIterations; max != 0 &&
		(max < bcrypt.MinCost || max > bcrypt.MaxCost) {
		return fmt.Errorf("maxBcryptIterations %d outside the valid bcrypt cost range", max)
	}

	if config.RateLimit.Enabled && config.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limiting enabled but rps is %d", config.RateLimit.RPS)
	}

	if config.Registry.File == "" {
		return fmt.Errorf("registry file must be configured")
	}

	if len(config.Providers) == 0 {
		return fmt.Errorf("at least one provider must be enabled")
	}

	return nil
}
