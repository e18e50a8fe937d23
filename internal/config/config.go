// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config carries every server setting. Values come from STUDYHALL_-prefixed
// environment variables (the bare names work too), with a .env file honored
// for local development.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"studyhall-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`

	// EmbeddingDimensions is the expected vector width of the configured
	// model. Must match the vector column; zero selects the client default.
	EmbeddingDimensions int `envconfig:"EMBEDDING_DIMENSIONS"`

	// EmbeddingRequestsPerSecond throttles calls to the embeddings
	// endpoint. Zero selects the client default.
	EmbeddingRequestsPerSecond float64 `envconfig:"EMBEDDING_REQUESTS_PER_SECOND"`

	SentryDSN              string  `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`

	// MaxUploadBytes caps the size of a single document upload.
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	// InitServiceKey registers a service API key with a known token on
	// startup, so a fresh deployment can be administered immediately.
	InitServiceKey string `envconfig:"INIT_SERVICE_KEY"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("STUDYHALL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

// MustLoad is Load for main functions.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// HasS3 reports whether object storage is fully configured.
func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// HasOpenAI reports whether embedding generation is configured.
func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// TracesSampleRate returns the configured Sentry sampling rate, defaulting
// to full sampling in development and 10% elsewhere.
func (c *Config) TracesSampleRate() float64 {
	if c.SentryTracesSampleRate > 0 {
		return c.SentryTracesSampleRate
	}
	if c.Environment == "development" {
		return 1.0
	}
	return 0.1
}
