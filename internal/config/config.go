// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the gateway HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for the user/session store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the address of the revocation store (e.g. localhost:6379). Empty disables revocation checks.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisUsername is the optional Redis username.
	RedisUsername string `mapstructure:"REDIS_USERNAME"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RevocationFailClosed, when true, treats an unreachable revocation store as
	// "revoked" (secure, less available). Default false: fail open so connections
	// stay available during a store outage.
	RevocationFailClosed bool `mapstructure:"REVOCATION_FAIL_CLOSED"`
	// JWTPrivateKey is the PEM-encoded private key or path to file; optional, only cmd/seed needs it.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; required to verify tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim expected on tokens (e.g. "sockgate-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim expected on tokens (e.g. "sockgate").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime for tokens issued by cmd/seed (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31) used by cmd/seed; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// RateLimitMaxEvents is the number of events an identity may send per window.
	RateLimitMaxEvents int `mapstructure:"RATE_LIMIT_MAX_EVENTS"`
	// RateLimitWindow is the fixed rate-limit window (e.g. "1s").
	RateLimitWindow string `mapstructure:"RATE_LIMIT_WINDOW"`
	// OTLPEndpoint is the OTLP gRPC endpoint security events are exported to. Empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_USERNAME", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REVOCATION_FAIL_CLOSED", false)
	v.SetDefault("JWT_ISSUER", "sockgate-auth")
	v.SetDefault("JWT_AUDIENCE", "sockgate")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RATE_LIMIT_MAX_EVENTS", 20)
	v.SetDefault("RATE_LIMIT_WINDOW", "10s")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.RateLimitMaxEvents <= 0 {
		return nil, errors.New("config: RATE_LIMIT_MAX_EVENTS must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RateWindow parses RateLimitWindow as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) RateWindow() time.Duration {
	d, err := time.ParseDuration(c.RateLimitWindow)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
