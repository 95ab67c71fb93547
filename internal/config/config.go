package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "FLEET"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "fleet.db"
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"
	defaultStoreTimeout = 5
	defaultCacheTTLSecs = 15
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	LogLevel        string
	LogFormat       string
	StoreTimeout    time.Duration
	ListCacheTTL    time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("store.timeout_seconds", defaultStoreTimeout)
	configViper.SetDefault("http.cache_ttl_seconds", defaultCacheTTLSecs)
	configViper.SetDefault("http.rate_limit_per_second", 0)
	configViper.SetDefault("http.rate_limit_burst", 0)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		DatabasePath:    configViper.GetString("database.path"),
		LogLevel:        configViper.GetString("log.level"),
		LogFormat:       configViper.GetString("log.format"),
		StoreTimeout:    time.Duration(configViper.GetInt("store.timeout_seconds")) * time.Second,
		ListCacheTTL:    time.Duration(configViper.GetInt("http.cache_ttl_seconds")) * time.Second,
		RateLimitPerSec: configViper.GetFloat64("http.rate_limit_per_second"),
		RateLimitBurst:  configViper.GetInt("http.rate_limit_burst"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store.timeout_seconds must be positive")
	}
	return nil
}
