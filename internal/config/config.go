package config

import (
	"time"

	"github.com/shopql/shopql-go/ratelimit"
)

// Config is the CLI configuration, layered from defaults, the config file,
// environment variables (SHOPQL_*), and flags.
type Config struct {
	Shop        string `mapstructure:"shop"`
	AccessToken string `mapstructure:"access_token"`
	Version     string `mapstructure:"version"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PoolMaxSize    int           `mapstructure:"pool_maxsize"`

	RateLimit ratelimit.Config `mapstructure:"rate_limit"`
	OAuth     OAuthConfig      `mapstructure:"oauth"`
	Logging   LoggingConfig    `mapstructure:"logging"`
}

// OAuthConfig configures the interactive login flow.
type OAuthConfig struct {
	Key    string   `mapstructure:"key"`
	Secret string   `mapstructure:"secret"`
	Port   int      `mapstructure:"port"`
	Scopes []string `mapstructure:"scopes"`
}

// LoggingConfig controls CLI logging.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Version:        "2025-10",
		ConnectTimeout: 10 * time.Second,
		MaxRetries:     3,
		PoolMaxSize:    10,
		RateLimit: ratelimit.Config{
			Window:      time.Minute,
			MaxRequests: 1000,
		},
		OAuth: OAuthConfig{
			Port: 4545,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
