// Package config loads runtime configuration from the environment.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every knob the service reads at startup. Values come from
// PHARMACY_-prefixed environment variables; a local .env file is honored
// when present.
type Config struct {
	Addr            string        `split_words:"true" default:":8080"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	Development     bool          `split_words:"true" default:"false"`

	// DatabaseURL selects the Postgres-backed product store; empty keeps
	// the in-memory store.
	DatabaseURL string `split_words:"true"`

	// CatalogPath is the JSON catalog source loaded at startup and on
	// POST /catalog/reload.
	CatalogPath string `split_words:"true" default:"catalog.json"`

	CacheTTL time.Duration `split_words:"true" default:"60s"`

	MetricsEnabled bool   `split_words:"true" default:"false"`
	MetricsToken   string `split_words:"true"`

	OrderLimitPerMin  int `split_words:"true" default:"30"`
	AssistLimitPerMin int `split_words:"true" default:"10"`

	// Assistant upstream; assist routes are disabled when the URL is empty.
	AssistURL     string        `split_words:"true"`
	AssistAPIKey  string        `envconfig:"ASSIST_API_KEY"`
	AssistModel   string        `split_words:"true" default:"gpt-4o-mini"`
	AssistTimeout time.Duration `split_words:"true" default:"20s"`

	// RedisURL selects the Redis transcript store; empty keeps transcripts
	// in process memory.
	RedisURL string `split_words:"true"`
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("pharmacy", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
