package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/captr/internal/logger"
)

// Config is the top-level TOML structure for the captr daemon.
//
// Example:
//
//	listen = ":8080"
//	base_path = "/api"
//	checkpoint_interval = "30s"
//	graceful_timeout = "5s"
//
//	[log]
//	level = "info"
//	color = true
//
//	[mirror]
//	dir = "/var/log/captr"
//
//	[history]
//	dsn = "sqlite:///var/lib/captr/history.db"
//
//	[metrics]
//	enabled = true
//	listen = ":9090"
type Config struct {
	Listen             string              `toml:"listen" mapstructure:"listen"`
	BasePath           string              `toml:"base_path" mapstructure:"base_path"`
	CheckpointInterval time.Duration       `toml:"checkpoint_interval" mapstructure:"checkpoint_interval"`
	GracefulTimeout    time.Duration       `toml:"graceful_timeout" mapstructure:"graceful_timeout"`
	Log                LogConfig           `toml:"log" mapstructure:"log"`
	Mirror             logger.MirrorConfig `toml:"mirror" mapstructure:"mirror"`
	History            HistoryConfig       `toml:"history" mapstructure:"history"`
	Metrics            MetricsConfig       `toml:"metrics" mapstructure:"metrics"`
}

type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	Color bool   `toml:"color" mapstructure:"color"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type MetricsConfig struct {
	Enabled  bool          `toml:"enabled" mapstructure:"enabled"`
	Listen   string        `toml:"listen" mapstructure:"listen"`
	Interval time.Duration `toml:"interval" mapstructure:"interval"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		BasePath: "/api",
		Log:      LogConfig{Level: "info", Color: true},
		Metrics:  MetricsConfig{Listen: ":9090", Interval: 15 * time.Second},
	}
}

// Load reads a TOML config file and applies defaults for unset fields.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
	if cfg.Metrics.Interval <= 0 {
		cfg.Metrics.Interval = 15 * time.Second
	}
	return cfg, nil
}
