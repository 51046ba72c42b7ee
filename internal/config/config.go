package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	HTTP      HTTPConfig
	GRPC      GRPCConfig
	DB        DBConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	Seed      SeedConfig
	Log       LogConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// HTTPConfig holds REST server configuration
type HTTPConfig struct {
	Port           int           `envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout    time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"120s"`
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	MaxBodyBytes   int64         `envconfig:"HTTP_MAX_BODY_BYTES" default:"10485760"`
}

// GRPCConfig holds the internal lookup service configuration
type GRPCConfig struct {
	Enabled bool `envconfig:"GRPC_ENABLED" default:"true"`
	Port    int  `envconfig:"GRPC_PORT" default:"9092"`
}

// DBConfig selects and addresses the storage backend
type DBConfig struct {
	Driver        string `envconfig:"DB_DRIVER" default:"memory"`
	URL           string `envconfig:"DATABASE_URL"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"catalog"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"720h"`
}

// RateLimitConfig holds the per-client limiter settings for /api
type RateLimitConfig struct {
	Enabled bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RPS     float64 `envconfig:"RATE_LIMIT_RPS" default:"2"`
	Burst   int     `envconfig:"RATE_LIMIT_BURST" default:"100"`
}

// RedisConfig enables the stats cache when Addr is set
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	StatsTTL time.Duration `envconfig:"STATS_CACHE_TTL" default:"60s"`
}

// AMQPConfig enables catalog event publishing when URL is set
type AMQPConfig struct {
	URL      string `envconfig:"AMQP_URL"`
	Exchange string `envconfig:"AMQP_EXCHANGE" default:"catalog.events"`
}

// SeedConfig is read by the seeder
type SeedConfig struct {
	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@example.com"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	groups := []struct {
		name   string
		target any
	}{
		{"http", &cfg.HTTP},
		{"grpc", &cfg.GRPC},
		{"db", &cfg.DB},
		{"auth", &cfg.Auth},
		{"rate limit", &cfg.RateLimit},
		{"redis", &cfg.Redis},
		{"amqp", &cfg.AMQP},
		{"seed", &cfg.Seed},
		{"log", &cfg.Log},
	}
	for _, g := range groups {
		if err := envconfig.Process("", g.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", g.name, err)
		}
	}
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.GRPC.Enabled && (c.GRPC.Port <= 0 || c.GRPC.Port > 65535) {
		return fmt.Errorf("GRPC_PORT must be between 1 and 65535")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive")
	}

	switch c.DB.Driver {
	case "memory":
	case "postgres", "sqlite3", "mongodb":
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for DB_DRIVER=%s", c.DB.Driver)
		}
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for DB_DRIVER=%s", c.DB.Driver)
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of memory, postgres, sqlite3, mongodb")
	}
	if c.DB.Driver == "mongodb" && c.DB.MongoDatabase == "" {
		return fmt.Errorf("MONGO_DATABASE is required for DB_DRIVER=mongodb")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			return fmt.Errorf("RATE_LIMIT_RPS must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("RATE_LIMIT_BURST must be positive")
		}
	}
	if c.Redis.Addr != "" && c.Redis.StatsTTL <= 0 {
		return fmt.Errorf("STATS_CACHE_TTL must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LOG_LEVEL.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Log.Level)
	}
	return level, nil
}
