package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger       LoggerConfig       `mapstructure:"logger" yaml:"logger"`
	Centrala     CentralaConfig     `mapstructure:"centrala" yaml:"centrala"`
	Graph        GraphConfig        `mapstructure:"graph" yaml:"graph"`
	LLM          LLMConfig          `mapstructure:"llm" yaml:"llm"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Conversation ConversationConfig `mapstructure:"conversation" yaml:"conversation"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// CentralaConfig describes the remote report/session and relational-data
// endpoints.
type CentralaConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey    string        `mapstructure:"api_key" yaml:"-"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// GraphConfig selects and configures the social graph backend.
type GraphConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend"` // "neo4j" or "memory"
	Neo4j   Neo4jConfig `mapstructure:"neo4j" yaml:"neo4j"`
}

// Neo4jConfig holds the graph database connection details.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
}

// LLMConfig configures the AI capability client.
type LLMConfig struct {
	APIKey             string        `mapstructure:"api_key" yaml:"-"`
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url"`
	ChatModel          string        `mapstructure:"chat_model" yaml:"chat_model"`
	VisionModel        string        `mapstructure:"vision_model" yaml:"vision_model"`
	TranscriptionModel string        `mapstructure:"transcription_model" yaml:"transcription_model"`
	ImageModel         string        `mapstructure:"image_model" yaml:"image_model"`
	Temperature        float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxRetries         int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CacheConfig configures the on-disk media cache and its backing store.
type CacheConfig struct {
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Backend string        `mapstructure:"backend" yaml:"backend"` // "memory" or "postgres"
	// DatabaseURL is the pgx connection string for the postgres backend.
	DatabaseURL string `mapstructure:"database_url" yaml:"-"`
}

// ConversationConfig tunes the orchestrator loop.
type ConversationConfig struct {
	// MaxRetriesPerAction bounds how often a non-ANALYZE action may be
	// attempted before the extractor drops it.
	MaxRetriesPerAction int `mapstructure:"max_retries_per_action" yaml:"max_retries_per_action"`
	// HistoryLimit caps the conversation and analysis ring buffers.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
	// ProcessDelay is the pause applied between receiving a remote reply and
	// processing it. Zero disables the pause.
	ProcessDelay time.Duration `mapstructure:"process_delay" yaml:"process_delay"`
	// AnalyzeAllRounds is how many ANALYZE_ALL rounds run before the final
	// description is generated.
	AnalyzeAllRounds int `mapstructure:"analyze_all_rounds" yaml:"analyze_all_rounds"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "centrala")
	v.SetDefault("logger.log_file", "centrala.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Centrala endpoints --
	v.SetDefault("centrala.base_url", "https://centrala.ag3nts.org")
	v.SetDefault("centrala.timeout", "30s")
	v.SetDefault("centrala.rate_limit", 2.0)

	// -- Graph --
	v.SetDefault("graph.backend", "neo4j")
	v.SetDefault("graph.neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("graph.neo4j.username", "neo4j")

	// -- LLM --
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.chat_model", "gpt-4o")
	v.SetDefault("llm.vision_model", "gpt-4o-mini")
	v.SetDefault("llm.transcription_model", "whisper-1")
	v.SetDefault("llm.image_model", "dall-e-3")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.timeout", "2m")

	// -- Cache --
	v.SetDefault("cache.dir", "cache/barbara")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.backend", "memory")

	// -- Conversation --
	v.SetDefault("conversation.max_retries_per_action", 2)
	v.SetDefault("conversation.history_limit", 100)
	v.SetDefault("conversation.process_delay", "30s")
	v.SetDefault("conversation.analyze_all_rounds", 2)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Unreachable with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Sensitive values come from the environment, never the config file.
	v.BindEnv("centrala.api_key", "CENTRALA_API_KEY")
	v.BindEnv("llm.api_key", "OPENAI_API_KEY")
	v.BindEnv("graph.neo4j.password", "NEO4J_PASSWORD")
	v.BindEnv("cache.database_url", "CENTRALA_CACHE_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Centrala.BaseURL == "" {
		return fmt.Errorf("centrala.base_url is a required configuration field")
	}
	if c.Centrala.RateLimit <= 0 {
		return fmt.Errorf("centrala.rate_limit must be positive")
	}
	switch c.Graph.Backend {
	case "neo4j", "memory":
	default:
		return fmt.Errorf("graph.backend must be %q or %q, got %q", "neo4j", "memory", c.Graph.Backend)
	}
	switch c.Cache.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", "memory", "postgres", c.Cache.Backend)
	}
	if c.Conversation.MaxRetriesPerAction <= 0 {
		return fmt.Errorf("conversation.max_retries_per_action must be positive")
	}
	if c.Conversation.HistoryLimit <= 0 {
		return fmt.Errorf("conversation.history_limit must be positive")
	}
	if c.Conversation.ProcessDelay < 0 {
		return fmt.Errorf("conversation.process_delay must not be negative")
	}
	return nil
}
