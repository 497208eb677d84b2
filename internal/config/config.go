package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultBatchSize is the default number of plan actions executed
	// between checkpoints.
	DefaultBatchSize = 50

	// DefaultBatchPause is the default pause between execution batches.
	DefaultBatchPause = 100 * time.Millisecond
)

// Config holds all configuration for personroster.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Dedupe  DedupeConfig  `mapstructure:"dedupe"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig selects and locates the roster store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // sqlite, neo4j, or memory
	Path    string `mapstructure:"path"`    // sqlite database file
}

// Neo4jConfig holds Neo4j connection settings, used when the backend
// is "neo4j".
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// String returns a safe representation of Neo4jConfig with the password masked.
func (c Neo4jConfig) String() string {
	return fmt.Sprintf("Neo4jConfig{URI:%s, Username:%s, Password:%s}", c.URI, c.Username, maskSecret(c.Password))
}

// maskSecret shows first 2 + last 2 chars, replacing the middle with asterisks.
func maskSecret(s string) string {
	const visible = 2
	if len(s) <= visible*2 {
		return "***"
	}
	return s[:visible] + "****" + s[len(s)-visible:]
}

// RulesConfig locates the curated ruleset. An empty path means the
// built-in defaults.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

// DedupeConfig holds plan creation and execution settings.
type DedupeConfig struct {
	PlanPath   string        `mapstructure:"plan_path"`
	BatchSize  int           `mapstructure:"batch_size"`
	BatchPause time.Duration `mapstructure:"batch_pause"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.path", filepath.Join(homeDir(), ".personroster", "roster.db"))

	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")

	v.SetDefault("rules.path", "")

	v.SetDefault("dedupe.plan_path", filepath.Join(homeDir(), ".personroster", "plan.json"))
	v.SetDefault("dedupe.batch_size", DefaultBatchSize)
	v.SetDefault("dedupe.batch_pause", DefaultBatchPause)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".personroster"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("PERSONROSTER")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("store.backend", "PERSONROSTER_STORE_BACKEND")
	_ = v.BindEnv("store.path", "PERSONROSTER_STORE_PATH")
	_ = v.BindEnv("neo4j.uri", "PERSONROSTER_NEO4J_URI")
	_ = v.BindEnv("neo4j.username", "PERSONROSTER_NEO4J_USERNAME")
	_ = v.BindEnv("neo4j.password", "PERSONROSTER_NEO4J_PASSWORD")
	_ = v.BindEnv("rules.path", "PERSONROSTER_RULES_PATH")
	_ = v.BindEnv("dedupe.plan_path", "PERSONROSTER_PLAN_PATH")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK — use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "neo4j", "memory":
	default:
		return fmt.Errorf("store.backend must be sqlite, neo4j, or memory, got %q", c.Store.Backend)
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty for the sqlite backend")
	}
	if c.Store.Backend == "neo4j" && c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty for the neo4j backend")
	}
	if c.Dedupe.PlanPath == "" {
		return fmt.Errorf("dedupe.plan_path must not be empty")
	}
	if c.Dedupe.BatchSize <= 0 {
		return fmt.Errorf("dedupe.batch_size must be greater than 0")
	}
	if c.Dedupe.BatchPause < 0 {
		return fmt.Errorf("dedupe.batch_pause must be >= 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
