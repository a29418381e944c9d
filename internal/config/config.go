// Package config loads application configuration from environment
// variables once at startup. The resulting Config is immutable and passed
// into constructors; business logic never reads the environment itself.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration. Access and refresh tokens are
// signed with two independent secrets so a leaked access secret cannot
// mint refresh tokens.
type Config struct {
	Env  string // "dev", "test" or "prod"
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	AccessSecret   string // signs short-lived access tokens
	RefreshSecret  string // signs long-lived refresh tokens
	AccessTTLMin   int    // access token lifetime in minutes
	RefreshTTLDays int    // refresh token lifetime in days
	BcryptCost     int    // bcrypt cost for password hashing

	AMQPURL string // RabbitMQ URL for activity events; empty disables publishing

	LogLevel string // zap level name: debug, info, warn, error
}

// Production reports whether the app runs in production mode; error
// responses then hide internal details.
func (c Config) Production() bool { return c.Env == "prod" }

// Load reads the configuration. Missing required variables abort startup
// with a fatal log; optional ones fall back to defaults.
func Load() Config {
	return Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("APP_PORT", "8080"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         getenv("DB_PORT", "3306"),
		DBName:         must("DB_NAME"),
		AccessSecret:   must("ACCESS_TOKEN_SECRET"),
		RefreshSecret:  must("REFRESH_TOKEN_SECRET"),
		AccessTTLMin:   getenvInt("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays: getenvInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     getenvInt("BCRYPT_COST", 10),
		AMQPURL:        os.Getenv("RABBITMQ_URL"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
