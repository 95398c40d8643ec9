// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendMySQL    = "mysql"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string        `env:"APP_ENV" envDefault:"dev"`
	Port           string        `env:"APP_PORT" envDefault:"8080"`
	StoreBackend   string        `env:"STORE_BACKEND" envDefault:"redis"`
	JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`

	DB        DBConfig
	Redis     RedisConfig
	AWS       AWSConfig
	Events    EventsConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// DBConfig is only required when STORE_BACKEND=mysql.
type DBConfig struct {
	User string `env:"DB_USER"`
	Pass string `env:"DB_PASS"`
	Host string `env:"DB_HOST" envDefault:"localhost"`
	Port string `env:"DB_PORT" envDefault:"3306"`
	Name string `env:"DB_NAME"`
}

// EventsConfig controls review event publishing and the audit consumer.
// An empty URL disables events entirely.
type EventsConfig struct {
	URL      string `env:"AMQP_URL"`
	Queue    string `env:"EVENTS_QUEUE" envDefault:"reviews.events"`
	Consumer bool   `env:"EVENTS_CONSUMER" envDefault:"false"`
	LogPath  string `env:"EVENTS_LOG_PATH" envDefault:"logs/reviews.log"`
}

// Load parses the environment into a Config and checks cross-field rules.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.RateLimit.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that parses but cannot run.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis, BackendDynamoDB:
	case BackendMySQL:
		if c.DB.User == "" || c.DB.Name == "" {
			return errors.New("config: DB_USER and DB_NAME are required for the mysql backend")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	return nil
}
