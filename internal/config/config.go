// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (RAGSVC_ prefix, runtime override)
//  2. Config file (~/.ragsvc/config.yaml)
//  3. Default values
//
// Categories:
//   - Storage: PostgreSQL connection (relational rows, embedding cache, lexical index)
//   - Qdrant: vector store connection
//   - Embedder: model, dimension, batch size
//   - Crawler: concurrency, rate limit, timeouts
//   - Search: fusion weights and candidate bounds
//
// Validation uses sentinel errors so callers can match with errors.Is().
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty or malformed.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidQdrantAddr indicates the Qdrant host/port is invalid.
	ErrInvalidQdrantAddr = errors.New("invalid Qdrant address")

	// ErrInvalidEmbedderModel indicates the embedder model name is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates a non-positive embedding dimension.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidCrawlerLimits indicates crawler concurrency or retry limits are out of range.
	ErrInvalidCrawlerLimits = errors.New("invalid crawler limits")

	// ErrInvalidSearchWeights indicates fusion weights are negative or both zero.
	ErrInvalidSearchWeights = errors.New("invalid search weights")
)

// DefaultEmbedderModel is the default Gemini embedder model.
const DefaultEmbedderModel = "gemini-embedding-001"

// Config stores application configuration.
type Config struct {
	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Vector store configuration
	QdrantHost     string `mapstructure:"qdrant_host"`
	QdrantGRPCPort int    `mapstructure:"qdrant_grpc_port"`

	// Embedder configuration
	EmbedderModel     string `mapstructure:"embedder_model"`
	EmbedderDimension int    `mapstructure:"embedder_dimension"`
	EmbedderBatchSize int    `mapstructure:"embedder_batch_size"`

	// Crawler configuration (see crawler.go for type definition)
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// Search configuration
	Search SearchConfig `mapstructure:"search"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// CrawlerConfig holds web crawler limits.
type CrawlerConfig struct {
	// MaxConcurrent bounds simultaneous browser/page sessions (default: 3)
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// RateLimitDelayMs is the minimum delay between fetch starts (default: 1000)
	RateLimitDelayMs int `mapstructure:"rate_limit_delay_ms"`
	// AttemptTimeoutMs bounds a single fetch attempt (default: 30000)
	AttemptTimeoutMs int `mapstructure:"attempt_timeout_ms"`
	// MaxRetries is the number of additional attempts after the first (default: 3)
	MaxRetries int `mapstructure:"max_retries"`
	// UserAgent sent with every request
	UserAgent string `mapstructure:"user_agent"`
}

// SearchConfig holds hybrid search fusion parameters.
type SearchConfig struct {
	// VectorWeight and TextWeight combine component scores (defaults: 0.7/0.3)
	VectorWeight float64 `mapstructure:"vector_weight"`
	TextWeight   float64 `mapstructure:"text_weight"`
	// CandidateMultiplier over-fetches limit*N candidates per sub-query (default: 3)
	CandidateMultiplier int `mapstructure:"candidate_multiplier"`
	// LexicalTimeoutMs bounds the lexical sub-query before degrading to vector-only (default: 80)
	LexicalTimeoutMs int `mapstructure:"lexical_timeout_ms"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".ragsvc"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("RAGSVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// Missing file is fine, defaults + env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "ragsvc")
	v.SetDefault("postgres_db_name", "ragsvc")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("qdrant_host", "localhost")
	v.SetDefault("qdrant_grpc_port", 6334)

	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimension", 1536)
	v.SetDefault("embedder_batch_size", 100)

	v.SetDefault("crawler.max_concurrent", 3)
	v.SetDefault("crawler.rate_limit_delay_ms", 1000)
	v.SetDefault("crawler.attempt_timeout_ms", 30000)
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.user_agent", "ragsvc-crawler/1.0")

	v.SetDefault("search.vector_weight", 0.7)
	v.SetDefault("search.text_weight", 0.3)
	v.SetDefault("search.candidate_multiplier", 3)
	v.SetDefault("search.lexical_timeout_ms", 80)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// Validate checks configuration values and returns the first violation found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.QdrantHost) == "" || c.QdrantGRPCPort < 1 || c.QdrantGRPCPort > 65535 {
		return fmt.Errorf("%w: %s:%d", ErrInvalidQdrantAddr, c.QdrantHost, c.QdrantGRPCPort)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return ErrInvalidEmbedderModel
	}
	if c.EmbedderDimension <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEmbedderDimension, c.EmbedderDimension)
	}
	if c.Crawler.MaxConcurrent < 1 || c.Crawler.MaxRetries < 0 {
		return fmt.Errorf("%w: max_concurrent=%d max_retries=%d",
			ErrInvalidCrawlerLimits, c.Crawler.MaxConcurrent, c.Crawler.MaxRetries)
	}
	if c.Search.VectorWeight < 0 || c.Search.TextWeight < 0 ||
		(c.Search.VectorWeight == 0 && c.Search.TextWeight == 0) {
		return fmt.Errorf("%w: vector=%v text=%v",
			ErrInvalidSearchWeights, c.Search.VectorWeight, c.Search.TextWeight)
	}
	return nil
}

// QdrantAddr returns the host:port gRPC target for the vector store.
func (c *Config) QdrantAddr() string {
	return fmt.Sprintf("%s:%d", c.QdrantHost, c.QdrantGRPCPort)
}
