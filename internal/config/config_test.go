package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "https://centrala.ag3nts.org", cfg.Centrala.BaseURL)
	assert.Equal(t, "neo4j", cfg.Graph.Backend)
	assert.Equal(t, "bolt://localhost:7687", cfg.Graph.Neo4j.URI)
	assert.Equal(t, "gpt-4o", cfg.LLM.ChatModel)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 2, cfg.Conversation.MaxRetriesPerAction)
	assert.Equal(t, 30*time.Second, cfg.Conversation.ProcessDelay)
	assert.Equal(t, 2, cfg.Conversation.AnalyzeAllRounds)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config { return NewDefaultConfig() }

	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects unknown graph backend", func(t *testing.T) {
		cfg := valid()
		cfg.Graph.Backend = "dgraph"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "graph.backend")
	})

	t.Run("rejects unknown cache backend", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Backend = "redis"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.backend")
	})

	t.Run("rejects non-positive rate limit", func(t *testing.T) {
		cfg := valid()
		cfg.Centrala.RateLimit = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "centrala.rate_limit")
	})

	t.Run("rejects negative process delay", func(t *testing.T) {
		cfg := valid()
		cfg.Conversation.ProcessDelay = -time.Second
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "conversation.process_delay")
	})
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("yaml values override defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")

		yaml := []byte(`
graph:
  backend: memory
conversation:
  process_delay: 0s
llm:
  chat_model: gpt-4o-mini
`)
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yaml)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.Graph.Backend)
		assert.Equal(t, time.Duration(0), cfg.Conversation.ProcessDelay)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.ChatModel)
		// Untouched values keep their defaults.
		assert.Equal(t, "https://centrala.ag3nts.org", cfg.Centrala.BaseURL)
	})

	t.Run("secrets bind from the environment", func(t *testing.T) {
		t.Setenv("CENTRALA_API_KEY", "secret-key")
		t.Setenv("NEO4J_PASSWORD", "graph-pass")

		v := viper.New()
		SetDefaults(v)
		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "secret-key", cfg.Centrala.APIKey)
		assert.Equal(t, "graph-pass", cfg.Graph.Neo4j.Password)
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("cache.backend", "redis")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
