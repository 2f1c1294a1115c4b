// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"fleetfuel/pkg/db" // Import db package for its Config struct
)

// EnvDevelopment disables webhook signature checks.
const EnvDevelopment = "development"

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort      string
	Environment     string
	LogLevel        string
	DefaultTimezone string
	DB              db.Config
	Redis           RedisConfig
	Webhook         WebhookConfig
}

// RedisConfig configures the transaction event queue. An empty Addr disables it.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	EventsKey string
}

// WebhookConfig configures station webhook signature verification.
type WebhookConfig struct {
	Secret  string
	MaxSkew time.Duration
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

var envBindings = map[string]string{
	"server.port":          "SERVER_PORT",
	"app.env":              "APP_ENV",
	"log.level":            "LOG_LEVEL",
	"app.default_timezone": "DEFAULT_TIMEZONE",
	"db.host":              "DB_HOST",
	"db.port":              "DB_PORT",
	"db.user":              "DB_USER",
	"db.password":          "DB_PASSWORD",
	"db.name":              "DB_NAME",
	"db.sslmode":           "DB_SSLMODE",
	"db.max_open_conns":    "DB_MAX_OPEN_CONNS",
	"db.max_idle_conns":    "DB_MAX_IDLE_CONNS",
	"db.conn_max_lifetime": "DB_CONN_MAX_LIFETIME",
	"redis.addr":           "REDIS_ADDR",
	"redis.password":       "REDIS_PASSWORD",
	"redis.db":             "REDIS_DB",
	"redis.events_key":     "REDIS_EVENTS_KEY",
	"webhook.secret":       "WEBHOOK_SECRET",
	"webhook.max_skew":     "WEBHOOK_MAX_SKEW",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("log.level", "info")
	v.SetDefault("app.default_timezone", "UTC")
	v.SetDefault("db.host", "localhost") // Default to localhost for local development
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "user")
	v.SetDefault("db.password", "password")
	v.SetDefault("db.name", "fleetfueldb")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", "25")
	v.SetDefault("db.max_idle_conns", "10")
	v.SetDefault("db.conn_max_lifetime", "5m")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", "0")
	v.SetDefault("redis.events_key", "fleetfuel:transaction_events")
	v.SetDefault("webhook.max_skew", "5m")
}

// LoadConfig loads configuration from environment variables, optionally seeded by a .env
// file in the working directory. Environment variables win over the file.
func LoadConfig() (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	if _, err := os.Stat(".env"); err == nil {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
		// .env keys arrive flat (DB_HOST); map them onto the nested keys.
		for key, env := range envBindings {
			if raw := v.GetString(env); raw != "" {
				v.SetDefault(key, raw)
			}
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	var errs []error
	intOf := func(key string) int {
		n, err := strconv.Atoi(v.GetString(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", envBindings[key], err))
		}
		return n
	}
	durationOf := func(key string) time.Duration {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", envBindings[key], err))
		}
		return d
	}

	cfg := &AppConfig{
		ServerPort:      v.GetString("server.port"),
		Environment:     v.GetString("app.env"),
		LogLevel:        v.GetString("log.level"),
		DefaultTimezone: v.GetString("app.default_timezone"),
		DB: db.Config{
			Host:            v.GetString("db.host"),
			Port:            intOf("db.port"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			DBName:          v.GetString("db.name"),
			SSLMode:         v.GetString("db.sslmode"),
			MaxOpenConns:    intOf("db.max_open_conns"),
			MaxIdleConns:    intOf("db.max_idle_conns"),
			ConnMaxLifetime: durationOf("db.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:      v.GetString("redis.addr"),
			Password:  v.GetString("redis.password"),
			DB:        intOf("redis.db"),
			EventsKey: v.GetString("redis.events_key"),
		},
		Webhook: WebhookConfig{
			Secret:  v.GetString("webhook.secret"),
			MaxSkew: durationOf("webhook.max_skew"),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE: %w", err)
	}
	if !cfg.IsDevelopment() && cfg.Webhook.Secret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required outside %s", EnvDevelopment)
	}
	return cfg, nil
}
