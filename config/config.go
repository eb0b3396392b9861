// Package config loads the service configuration from the environment,
// optionally overlaid by a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backend names.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// DefaultLanguage is the prompt pack used when a request carries no
	// language tag.
	DefaultLanguage string `yaml:"default_language"`

	OpenAI   OpenAIConfig   `yaml:"openai"`
	Brave    BraveConfig    `yaml:"brave"`
	Store    StoreConfig    `yaml:"store"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// OpenAIConfig configures the generative capability.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// BraveConfig configures the web search tool. An empty APIKey disables
// live search; capability calls then run unbound.
type BraveConfig struct {
	APIKey  string `yaml:"api_key"`
	Country string `yaml:"country"`
	Lang    string `yaml:"lang"`
}

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`

	SQLitePath string `yaml:"sqlite_path"`

	PostgresConnString string `yaml:"postgres_conn_string"`
}

// PipelineConfig tunes the analysis pipeline.
type PipelineConfig struct {
	MaxKeywords       int           `yaml:"max_keywords"`
	RefineTopK        int           `yaml:"refine_top_k"`
	EnableRefine      bool          `yaml:"enable_refine"`
	GatherConcurrency int           `yaml:"gather_concurrency"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		LogLevel:        "info",
		DefaultLanguage: "en_US",
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Brave: BraveConfig{
			Country: "US",
			Lang:    "en",
		},
		Store: StoreConfig{
			Backend:    StoreMemory,
			RedisAddr:  "localhost:6379",
			SQLitePath: "geoaval.db",
		},
		Pipeline: PipelineConfig{
			MaxKeywords:       10,
			RefineTopK:        5,
			GatherConcurrency: 4,
			CallTimeout:       2 * time.Minute,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (if path is non-empty), then environment variables, highest
// precedence last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.ListenAddr, "GEOAVAL_LISTEN_ADDR")
	setString(&c.LogLevel, "GEOAVAL_LOG_LEVEL")
	setString(&c.DefaultLanguage, "GEOAVAL_DEFAULT_LANGUAGE")

	setString(&c.OpenAI.APIKey, "GEO_AVAL_API_KEY")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.Model, "GEOAVAL_OPENAI_MODEL")
	setString(&c.OpenAI.BaseURL, "GEOAVAL_OPENAI_BASE_URL")

	setString(&c.Brave.APIKey, "BRAVE_API_KEY")
	setString(&c.Brave.Country, "GEOAVAL_BRAVE_COUNTRY")
	setString(&c.Brave.Lang, "GEOAVAL_BRAVE_LANG")

	setString(&c.Store.Backend, "GEOAVAL_STORE_BACKEND")
	setString(&c.Store.RedisAddr, "GEOAVAL_REDIS_ADDR")
	setString(&c.Store.RedisPassword, "GEOAVAL_REDIS_PASSWORD")
	setInt(&c.Store.RedisDB, "GEOAVAL_REDIS_DB")
	setDuration(&c.Store.RedisTTL, "GEOAVAL_REDIS_TTL")
	setString(&c.Store.SQLitePath, "GEOAVAL_SQLITE_PATH")
	setString(&c.Store.PostgresConnString, "GEOAVAL_POSTGRES_CONN")

	setInt(&c.Pipeline.MaxKeywords, "GEOAVAL_MAX_KEYWORDS")
	setInt(&c.Pipeline.RefineTopK, "GEOAVAL_REFINE_TOP_K")
	setBool(&c.Pipeline.EnableRefine, "GEOAVAL_ENABLE_REFINE")
	setInt(&c.Pipeline.GatherConcurrency, "GEOAVAL_GATHER_CONCURRENCY")
	setDuration(&c.Pipeline.CallTimeout, "GEOAVAL_CALL_TIMEOUT")
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreRedis, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Pipeline.MaxKeywords < 1 {
		return fmt.Errorf("pipeline max_keywords must be positive, got %d", c.Pipeline.MaxKeywords)
	}
	if c.Pipeline.GatherConcurrency < 1 {
		return fmt.Errorf("pipeline gather_concurrency must be positive, got %d", c.Pipeline.GatherConcurrency)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
