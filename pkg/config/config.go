// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// retriever, its document store, Kafka, Redis, logging and metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Retriever RetrieverConfig `yaml:"retriever"`
	Store     StoreConfig     `yaml:"store"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// RetrieverConfig controls artifact locations, the ingestion limit and the
// build fan-out.
type RetrieverConfig struct {
	File       string `yaml:"file"`
	TokensFile string `yaml:"tokensFile"`
	MaxFacts   int    `yaml:"maxFacts"`
	BufferSize int    `yaml:"bufferSize"`
	Workers    int    `yaml:"workers"`
	Stem       bool   `yaml:"stem"`
}

// VocabPath returns the vocabulary artifact path, defaulting to File+".vocab".
func (r RetrieverConfig) VocabPath() string {
	if r.TokensFile != "" {
		return r.TokensFile
	}
	return r.File + ".vocab"
}

// StoreConfig selects and configures the document table backend.
type StoreConfig struct {
	Driver      string         `yaml:"driver"`
	Path        string         `yaml:"path"`
	PoolSize    int            `yaml:"poolSize"`
	BusyTimeout time.Duration  `yaml:"busyTimeout"`
	Postgres    PostgresConfig `yaml:"postgres"`
}

// SQLitePath returns the SQLite database path, defaulting to the matrix
// file path plus ".db".
func (c *Config) SQLitePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return c.Retriever.File + ".db"
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	FactsTopic    string   `yaml:"factsTopic"`
}

// RedisConfig holds Redis connection and query-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Retriever: RetrieverConfig{
			File:       "data/retriever.mat",
			MaxFacts:   100000,
			BufferSize: 1000,
			Workers:    4,
		},
		Store: StoreConfig{
			Driver:      "sqlite",
			PoolSize:    4,
			BusyTimeout: 60 * time.Second,
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "retriever",
				User:            "retriever",
				Password:        "localdev",
				SSLMode:         "disable",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "retriever-indexer",
			FactsTopic:    "retriever-facts",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

func (c *Config) validate() error {
	if c.Retriever.File == "" {
		return fmt.Errorf("retriever.file must be set")
	}
	if c.Retriever.BufferSize <= 0 {
		return fmt.Errorf("retriever.bufferSize must be positive, got %d", c.Retriever.BufferSize)
	}
	if c.Retriever.MaxFacts < 0 {
		return fmt.Errorf("retriever.maxFacts must be >= 0, got %d", c.Retriever.MaxFacts)
	}
	if c.Retriever.Workers < 0 {
		return fmt.Errorf("retriever.workers must be >= 0, got %d", c.Retriever.Workers)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	return nil
}

// applyEnvOverrides reads FR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FR_RETRIEVER_FILE"); v != "" {
		cfg.Retriever.File = v
	}
	if v := os.Getenv("FR_RETRIEVER_TOKENS_FILE"); v != "" {
		cfg.Retriever.TokensFile = v
	}
	if v := os.Getenv("FR_RETRIEVER_MAX_FACTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retriever.MaxFacts = n
		}
	}
	if v := os.Getenv("FR_RETRIEVER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retriever.Workers = n
		}
	}
	if v := os.Getenv("FR_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("FR_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FR_POSTGRES_HOST"); v != "" {
		cfg.Store.Postgres.Host = v
	}
	if v := os.Getenv("FR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Store.Postgres.Port = port
		}
	}
	if v := os.Getenv("FR_POSTGRES_DATABASE"); v != "" {
		cfg.Store.Postgres.Database = v
	}
	if v := os.Getenv("FR_POSTGRES_USER"); v != "" {
		cfg.Store.Postgres.User = v
	}
	if v := os.Getenv("FR_POSTGRES_PASSWORD"); v != "" {
		cfg.Store.Postgres.Password = v
	}
	if v := os.Getenv("FR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("FR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
