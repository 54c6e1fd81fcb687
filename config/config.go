// Package config loads server settings from defaults, an optional YAML file
// and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const DefaultSecretKey = "burnout_secret_key"

type Config struct {
	SecretKey        string        `yaml:"secret_key"`
	Debug            bool          `yaml:"debug"`
	Port             int           `yaml:"port"`
	DatabasePath     string        `yaml:"database_path"`
	ModelPath        string        `yaml:"model_path"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	SessionCacheSize int           `yaml:"session_cache_size"`
	RedisURL         string        `yaml:"redis_url"`
	LogLevel         string        `yaml:"log_level"`
	LogFile          string        `yaml:"log_file"`
}

func Default() Config {
	return Config{
		SecretKey:        DefaultSecretKey,
		Port:             5000,
		DatabasePath:     "users.db",
		ModelPath:        "burnout_rf_model.json",
		SessionTTL:       24 * time.Hour,
		SessionCacheSize: 10000,
		LogLevel:         "info",
	}
}

// Load builds the configuration. A missing file at path is not an error;
// an unreadable or malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var err error
	c.SecretKey = getString(getenv, "SECRET_KEY", c.SecretKey)
	c.DatabasePath = getString(getenv, "DATABASE_PATH", c.DatabasePath)
	c.ModelPath = getString(getenv, "MODEL_PATH", c.ModelPath)
	c.RedisURL = getString(getenv, "REDIS_URL", c.RedisURL)
	c.LogLevel = getString(getenv, "LOG_LEVEL", c.LogLevel)
	c.LogFile = getString(getenv, "LOG_FILE", c.LogFile)

	if c.Debug, err = getBool(getenv, "DEBUG", c.Debug); err != nil {
		return err
	}
	if c.Port, err = getInt(getenv, "PORT", c.Port); err != nil {
		return err
	}
	if c.SessionCacheSize, err = getInt(getenv, "SESSION_CACHE_SIZE", c.SessionCacheSize); err != nil {
		return err
	}
	if c.SessionTTL, err = getDuration(getenv, "SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH must not be empty")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SessionCacheSize <= 0 {
		return errors.New("SESSION_CACHE_SIZE must be positive")
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getString(getenv func(string) string, key, fallback string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(getenv func(string) string, key string, fallback bool) (bool, error) {
	value := getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getInt(getenv func(string) string, key string, fallback int) (int, error) {
	value := getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	value := getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
