// Package config loads examdiag settings from an optional YAML file with
// EXAMDIAG_* environment overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/examdiag/internal/batch"
	"github.com/abhisek/examdiag/internal/diagnosis"
	"github.com/abhisek/examdiag/internal/llm"
	"github.com/abhisek/examdiag/internal/store"
)

// Config is the full application configuration.
type Config struct {
	Server ServerConfig           `yaml:"server"`
	Batch  batch.Config           `yaml:"batch"`
	Oracle diagnosis.OracleConfig `yaml:"oracle"`
	Store  StoreConfig            `yaml:"store"`
	LLM    llm.Config             `yaml:"llm"`
}

// ServerConfig configures the HTTP surface and logging.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	LogMode     string   `yaml:"log_mode"`
}

// StoreConfig configures the oracle call log. An empty DSN disables it.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:3000"},
			LogMode:     "dev",
		},
		Batch:  batch.DefaultConfig(),
		Oracle: diagnosis.DefaultOracleConfig(),
		Store:  StoreConfig{Driver: string(store.DriverSQLite)},
		LLM:    llm.DefaultConfig(),
	}
}

// Load reads path (skipped when empty) over the defaults and then applies
// environment overrides. When no provider was chosen by file or env, the
// vendors' own API key variables are probed.
func Load(path string) (Config, error) {
	cfg := Default()
	fromFile := false

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw struct {
			LLM struct {
				Provider string `yaml:"provider"`
			} `yaml:"llm"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		fromFile = raw.LLM.Provider != ""
	}

	if !fromFile && os.Getenv("EXAMDIAG_LLM_PROVIDER") == "" {
		if found, ok := llm.DiscoverConfig(); ok {
			adoptDiscovered(&cfg.LLM, found)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func adoptDiscovered(cfg *llm.Config, found llm.Config) {
	cfg.Provider = found.Provider
	fill(&cfg.OpenAI.APIKey, found.OpenAI.APIKey)
	fill(&cfg.Anthropic.APIKey, found.Anthropic.APIKey)
	fill(&cfg.Gemini.APIKey, found.Gemini.APIKey)
	fill(&cfg.DeepSeek.APIKey, found.DeepSeek.APIKey)
	fill(&cfg.Qwen.APIKey, found.Qwen.APIKey)
	fill(&cfg.OpenRouter.APIKey, found.OpenRouter.APIKey)
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "EXAMDIAG_ADDR")
	setString(&cfg.Server.LogMode, "EXAMDIAG_LOG_MODE")
	if v := os.Getenv("EXAMDIAG_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitCSV(v)
	}

	if v := os.Getenv("EXAMDIAG_BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Batch.Concurrency = n
		}
	}
	if v := os.Getenv("EXAMDIAG_BATCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			cfg.Batch.Timeout = d
		}
	}

	setString(&cfg.Store.Driver, "EXAMDIAG_STORE_DRIVER")
	setString(&cfg.Store.DSN, "EXAMDIAG_STORE_DSN")

	llm.ApplyEnv(&cfg.LLM)
}

// Validate checks the settings that are not tied to a specific LLM
// provider. Provider credentials are checked when the provider is built.
func (c Config) Validate() error {
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.Timeout < 0 {
		return fmt.Errorf("batch.timeout must not be negative, got %s", c.Batch.Timeout)
	}
	if _, err := store.ParseDriver(c.Store.Driver); err != nil {
		return err
	}
	switch strings.ToLower(c.Server.LogMode) {
	case "", "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("unknown log_mode %q (want dev or prod)", c.Server.LogMode)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
