// Package config loads application configuration from file and environment
// and owns global logger initialization.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	UniProt UniProtConfig `yaml:"uniprot" mapstructure:"uniprot"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// UniProtConfig holds UniProt REST API settings.
type UniProtConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// SearchConfig configures protein search behavior.
type SearchConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
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
	v.SetEnvPrefix("KINOPLEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "kinoplex.db")
	v.SetDefault("uniprot.base_url", "https://rest.uniprot.org")
	v.SetDefault("uniprot.rate_per_second", 5)
	v.SetDefault("uniprot.burst", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("search.limit", 50)
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
