// Package config loads gateway configuration from a YAML file with
// environment variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Warmup    WarmupConfig    `yaml:"warmup"`
	Queue     QueueConfig     `yaml:"queue"`
}

type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ReadTimeoutSec  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSec int      `yaml:"write_timeout_seconds"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DomainLimit is a per-domain throughput tier.
type DomainLimit struct {
	PerSecond int `yaml:"per_second"`
	PerMinute int `yaml:"per_minute"`
}

type RateLimitConfig struct {
	// Domains maps recipient domains to their tier, merged over the
	// built-in webmail defaults.
	Domains          map[string]DomainLimit `yaml:"domains"`
	DefaultPerSecond int                    `yaml:"default_per_second"`
	DefaultPerMinute int                    `yaml:"default_per_minute"`
	StoreTimeoutMs   int                    `yaml:"store_timeout_ms"`
}

type WarmupConfig struct {
	StartVolume      int     `yaml:"start_volume"`
	MaxDailyVolume   int     `yaml:"max_daily_volume"`
	DailyIncrease    float64 `yaml:"daily_increase"`
	MaxDays          int     `yaml:"max_days"`
	SweepIntervalMin int     `yaml:"sweep_interval_minutes"`
}

func (w WarmupConfig) SweepInterval() time.Duration {
	return time.Duration(w.SweepIntervalMin) * time.Minute
}

type QueueConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.ReadTimeoutSec == 0 {
		cfg.Server.ReadTimeoutSec = 15
	}
	if cfg.Server.WriteTimeoutSec == 0 {
		cfg.Server.WriteTimeoutSec = 30
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.RateLimit.DefaultPerSecond == 0 {
		cfg.RateLimit.DefaultPerSecond = 50
	}
	if cfg.RateLimit.DefaultPerMinute == 0 {
		cfg.RateLimit.DefaultPerMinute = 2000
	}
	if cfg.RateLimit.StoreTimeoutMs == 0 {
		cfg.RateLimit.StoreTimeoutMs = 250
	}
	if cfg.Warmup.StartVolume == 0 {
		cfg.Warmup.StartVolume = 200
	}
	if cfg.Warmup.MaxDailyVolume == 0 {
		cfg.Warmup.MaxDailyVolume = 100_000
	}
	if cfg.Warmup.DailyIncrease == 0 {
		cfg.Warmup.DailyIncrease = 1.5
	}
	if cfg.Warmup.MaxDays == 0 {
		cfg.Warmup.MaxDays = 30
	}
	if cfg.Warmup.SweepIntervalMin == 0 {
		cfg.Warmup.SweepIntervalMin = 15
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 3
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so secrets can live in .env locally and in real env vars in
// production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Redis.DB = n
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = n
		}
	}

	return cfg, nil
}
