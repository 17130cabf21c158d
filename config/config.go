package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the indexer configuration.
type Config struct {
	Service struct {
		Name       string `yaml:"name"`
		HealthPort int    `yaml:"health_port"`
	} `yaml:"service"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode"`
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"postgres"`

	Queue struct {
		Workers     int `yaml:"workers"`      // Concurrent job workers
		MaxAttempts int `yaml:"max_attempts"` // Redeliveries before dead-letter
		BufferSize  int `yaml:"buffer_size"`
	} `yaml:"queue"`

	Source struct {
		Endpoint           string `yaml:"endpoint"`             // Confirmed-transaction feed
		PollIntervalMillis int    `yaml:"poll_interval_millis"` // Poll cadence
		BatchLimit         int    `yaml:"batch_limit"`          // Max transactions per poll
	} `yaml:"source"`

	Ledger struct {
		Endpoint string `yaml:"endpoint"` // Enhanced-state API base URL
	} `yaml:"ledger"`

	Enrichment struct {
		GameFetchAttempts int `yaml:"game_fetch_attempts"` // Retry ceiling for game snapshots
		BackoffBaseMillis int `yaml:"backoff_base_millis"` // Linear backoff base (attempt * base)
	} `yaml:"enrichment"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "panda-monopoly-indexer"
	}
	if c.Service.HealthPort == 0 {
		c.Service.HealthPort = 8088
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 4
	}
	if c.Queue.MaxAttempts == 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.BufferSize == 0 {
		c.Queue.BufferSize = 1024
	}
	if c.Source.Endpoint == "" {
		c.Source.Endpoint = "http://localhost:8081"
	}
	if c.Source.PollIntervalMillis == 0 {
		c.Source.PollIntervalMillis = 2000
	}
	if c.Source.BatchLimit == 0 {
		c.Source.BatchLimit = 100
	}
	if c.Ledger.Endpoint == "" {
		c.Ledger.Endpoint = "http://localhost:8080"
	}
	if c.Enrichment.GameFetchAttempts == 0 {
		c.Enrichment.GameFetchAttempts = 3
	}
	if c.Enrichment.BackoffBaseMillis == 0 {
		c.Enrichment.BackoffBaseMillis = 2000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// GetPostgresDSN returns a connection string for PostgreSQL.
func (c *Config) GetPostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Database,
		c.Postgres.SSLMode,
	)
}
