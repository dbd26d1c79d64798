// Package config resolves runtime settings from defaults, an optional YAML
// file, and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceName string `yaml:"service_name"`
	LogLevel    string `yaml:"log_level"`

	// HTTP
	HTTPPort int `yaml:"http_port"`

	// Storage
	DBDriver     string `yaml:"db_driver"`
	DBDSN        string `yaml:"db_dsn"`
	PurgeSamples bool   `yaml:"purge_samples"`

	// Redis alert outlet, disabled when RedisAddr is empty
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Evaluation
	EvalIntervalHours  int `yaml:"eval_interval_hours"`
	EvalWorkers        int `yaml:"eval_workers"`
	AlertCooldownHours int `yaml:"alert_cooldown_hours"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		ServiceName:        "autocare-monitor",
		LogLevel:           "info",
		HTTPPort:           8080,
		DBDriver:           "sqlite",
		DBDSN:              "autocare.db",
		PurgeSamples:       true,
		RedisDB:            0,
		EvalIntervalHours:  24,
		EvalWorkers:        4,
		AlertCooldownHours: 24,
	}
}

// Load reads an optional .env, then the YAML file named by AUTOCARE_CONFIG,
// then environment overrides.
func Load() (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("AUTOCARE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DBDSN = getEnv("DB_DSN", c.DBDSN)
	c.PurgeSamples = getEnvBool("PURGE_SAMPLES", c.PurgeSamples)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.EvalIntervalHours = getEnvInt("EVAL_INTERVAL_HOURS", c.EvalIntervalHours)
	c.EvalWorkers = getEnvInt("EVAL_WORKERS", c.EvalWorkers)
	c.AlertCooldownHours = getEnvInt("ALERT_COOLDOWN_HOURS", c.AlertCooldownHours)
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	if c.EvalIntervalHours <= 0 {
		return fmt.Errorf("eval_interval_hours must be positive, got %d", c.EvalIntervalHours)
	}
	if c.EvalWorkers <= 0 {
		return fmt.Errorf("eval_workers must be positive, got %d", c.EvalWorkers)
	}
	if c.AlertCooldownHours < 0 {
		return fmt.Errorf("alert_cooldown_hours must not be negative, got %d", c.AlertCooldownHours)
	}
	return nil
}

func (c *Config) EvalInterval() time.Duration {
	return time.Duration(c.EvalIntervalHours) * time.Hour
}

func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
