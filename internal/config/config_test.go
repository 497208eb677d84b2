package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Store: StoreConfig{Backend: "sqlite", Path: "/tmp/roster.db"},
		Neo4j: Neo4jConfig{URI: "neo4j://localhost:7687", Username: "neo4j"},
		Dedupe: DedupeConfig{
			PlanPath:   "/tmp/plan.json",
			BatchSize:  DefaultBatchSize,
			BatchPause: DefaultBatchPause,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }},
		{"neo4j without uri", func(c *Config) { c.Store.Backend = "neo4j"; c.Neo4j.URI = "" }},
		{"empty plan path", func(c *Config) { c.Dedupe.PlanPath = "" }},
		{"zero batch size", func(c *Config) { c.Dedupe.BatchSize = 0 }},
		{"negative batch pause", func(c *Config) { c.Dedupe.BatchPause = -time.Second }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_MemoryBackendNeedsNoPath(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Backend = "memory"
	cfg.Store.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("PERSONROSTER_STORE_BACKEND", "memory")
	t.Setenv("PERSONROSTER_NEO4J_PASSWORD", "secret-password")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "secret-password", cfg.Neo4j.Password)
	assert.Equal(t, DefaultBatchSize, cfg.Dedupe.BatchSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestNeo4jConfig_StringMasksPassword(t *testing.T) {
	c := Neo4jConfig{URI: "neo4j://localhost:7687", Username: "neo4j", Password: "supersecret"}
	s := c.String()
	assert.NotContains(t, s, "supersecret")
	assert.Contains(t, s, "su****et")
}
