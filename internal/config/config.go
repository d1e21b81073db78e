// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/firmable/unify/internal/classifier"
	"github.com/firmable/unify/internal/review"
	"github.com/firmable/unify/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig       `yaml:"store" mapstructure:"store"`
	Registry  RegistryConfig    `yaml:"registry" mapstructure:"registry"`
	Crawl     CrawlConfig       `yaml:"crawl" mapstructure:"crawl"`
	Match     classifier.Config `yaml:"match" mapstructure:"match"`
	Review    review.Config     `yaml:"review" mapstructure:"review"`
	Anthropic AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig      `yaml:"server" mapstructure:"server"`
	Log       LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// RegistryConfig narrows the registry staging fetch.
type RegistryConfig struct {
	ActiveOnly    bool  `yaml:"active_only" mapstructure:"active_only"`
	SampleModulus int64 `yaml:"sample_modulus" mapstructure:"sample_modulus"`
}

// CrawlConfig narrows the crawl staging fetch.
type CrawlConfig struct {
	SampleModulus int64 `yaml:"sample_modulus" mapstructure:"sample_modulus"`
}

// AnthropicConfig holds Anthropic API settings. An empty key disables the
// oracle; the pipeline then runs fuzzy-only.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("UNIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.pool.max_conns", 4)
	v.SetDefault("store.pool.min_conns", 1)
	v.SetDefault("registry.active_only", false)
	v.SetDefault("registry.sample_modulus", 1)
	v.SetDefault("crawl.sample_modulus", 1)
	v.SetDefault("match.policy", "blanket_adjudicate")
	v.SetDefault("match.high_threshold", 95.0)
	v.SetDefault("match.low_threshold", 0.0)
	v.SetDefault("review.model", "claude-haiku-4-5-20251001")
	v.SetDefault("review.max_reviews", 10)
	v.SetDefault("review.audit_log_path", "data/oracle_audit.jsonl")
	v.SetDefault("review.requests_per_sec", 2.0)
	v.SetDefault("review.max_tokens", 256)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Match.Validate(); err != nil {
		return nil, eris.Wrap(err, "config: match")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
