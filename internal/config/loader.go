package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the runtime settings for the reminder service.
type Config struct {
	HTTPAddr     string        `mapstructure:"http_addr"`
	SQLiteDSN    string        `mapstructure:"sqlite_dsn"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timezone     string        `mapstructure:"timezone"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	LogLevel     string        `mapstructure:"log_level"`
}

// Location resolves the configured timezone. Load has already verified that
// the name is valid, so a failed lookup falls back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from an optional config.yaml and from REMINDERS_*
// environment variables. Environment values override file values.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("REMINDERS")
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("sqlite_dsn", "file:reminders.db?_foreign_keys=on")
	v.SetDefault("poll_interval", "60s")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("cache_ttl", "30s")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	invalid := make([]string, 0, 2)

	if strings.TrimSpace(c.HTTPAddr) == "" {
		invalid = append(invalid, "http_addr")
	}
	if strings.TrimSpace(c.SQLiteDSN) == "" {
		invalid = append(invalid, "sqlite_dsn")
	}
	if c.PollInterval <= 0 {
		invalid = append(invalid, "poll_interval")
	}
	if c.CacheTTL < 0 {
		invalid = append(invalid, "cache_ttl")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		invalid = append(invalid, "timezone")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "log_level")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return nil
}
