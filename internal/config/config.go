// Package config loads and validates application configuration from yaml
// files and environment variables, with hot reload support for the
// analytics thresholds.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds sqlite storage configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from environment variables and the default
// config file locations. A .env file is honored when present.
func Load() (*Config, error) {
	return loadFrom("")
}

// LoadFile reads configuration from a specific yaml file. Used by the
// Holder for hot reload.
func LoadFile(path string) (*Config, error) {
	return loadFrom(path)
}

func loadFrom(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "sensetrack.db")

	v.SetEnvPrefix("SENSETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.path", "DATABASE_PATH")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")

		// It's okay if config file doesn't exist
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Pre-populate analytics defaults; the file only needs to override
	// the thresholds it cares about. A named preset replaces the base
	// before per-field overrides apply.
	config := Config{Analytics: DefaultAnalyticsConfig()}
	if preset := v.GetString("analytics.preset"); preset != "" {
		presetCfg, ok := PresetConfig(Preset(preset))
		if !ok {
			return nil, fmt.Errorf("unknown analytics preset %q", preset)
		}
		config.Analytics = presetCfg
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the non-analytics fields and runs the analytics schema
// validation, replacing an invalid analytics section with the defaults.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	result := ValidateAnalytics(c.Analytics)
	if !result.IsValid {
		// Invalid thresholds are recoverable: keep serving with defaults.
		c.Analytics = result.Config
	}
	return nil
}
