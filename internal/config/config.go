// Package config loads service settings from MAILSIFT_-prefixed environment
// variables, with .env support for local development.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Strategy names accepted by MAILSIFT_CLASSIFY_STRATEGY.
const (
	StrategyEmbedding = "embedding"
	StrategyLLM       = "llm"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	// Classification defaults
	ClassifyStrategy  string  `envconfig:"CLASSIFY_STRATEGY" default:"embedding"`
	ClassifyTopN      int     `envconfig:"CLASSIFY_TOP_N" default:"3"`
	ClassifyThreshold float64 `envconfig:"CLASSIFY_THRESHOLD" default:"0.5"`

	// S3-compatible archive for raw import payloads (optional)
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"mailsift-imports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Sample data for bootstrap
	SampleMessagesPath   string `envconfig:"SAMPLE_MESSAGES_PATH" default:"sample-messages.jsonl"`
	SampleCategoriesPath string `envconfig:"SAMPLE_CATEGORIES_PATH" default:"sample-categories.jsonl"`
}

// Load reads the environment (and an optional .env file) into a Config and
// validates cross-field constraints.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MAILSIFT", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if cfg.ClassifyStrategy != StrategyEmbedding && cfg.ClassifyStrategy != StrategyLLM {
		return nil, fmt.Errorf("invalid classify strategy %q (expected %q or %q)",
			cfg.ClassifyStrategy, StrategyEmbedding, StrategyLLM)
	}

	return &cfg, nil
}

// HasS3 reports whether archive storage is fully configured.
func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// HasOpenAI reports whether provider-backed embedding and LLM classification
// are available.
func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
