// Package config provides configuration loading for the shopql CLI:
// built-in defaults, an optional YAML config file, SHOPQL_* environment
// variables, and flag overrides bound by the command layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	appConfig Config
	configMu  sync.RWMutex
)

// DefaultPath returns the default config file location,
// $XDG_CONFIG_HOME/shopql/config.yaml.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "shopql", "config.yaml"), nil
}

// Load reads configuration into the package state. cfgFile overrides the
// default file location; a missing file is not an error, the defaults and
// environment still apply.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err == nil {
			v.SetConfigFile(path)
		}
	}

	v.SetEnvPrefix("SHOPQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Default()
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	configMu.Lock()
	appConfig = cfg
	configMu.Unlock()

	return cfg, nil
}

// Get returns the last loaded configuration.
func Get() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	d := Default()
	// Register every key so environment-only values survive Unmarshal.
	v.SetDefault("shop", "")
	v.SetDefault("access_token", "")
	v.SetDefault("oauth.key", "")
	v.SetDefault("oauth.secret", "")
	v.SetDefault("oauth.scopes", nil)
	v.SetDefault("version", d.Version)
	v.SetDefault("connect_timeout", d.ConnectTimeout)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("pool_maxsize", d.PoolMaxSize)
	v.SetDefault("rate_limit.window", d.RateLimit.Window)
	v.SetDefault("rate_limit.max_requests", d.RateLimit.MaxRequests)
	v.SetDefault("oauth.port", d.OAuth.Port)
	v.SetDefault("logging.level", d.Logging.Level)
}
