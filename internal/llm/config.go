package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds LLM provider configuration.
type Config struct {
	// Provider selects the backend: anthropic, openai, azure, deepseek,
	// qwen, gemini, openrouter or mock.
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig `yaml:"anthropic"`
	OpenAI     OpenAIConfig    `yaml:"openai"`
	Azure      AzureConfig     `yaml:"azure"`
	DeepSeek   OpenAIConfig    `yaml:"deepseek"`
	Qwen       OpenAIConfig    `yaml:"qwen"`
	Gemini     GeminiConfig    `yaml:"gemini"`
	OpenRouter OpenAIConfig    `yaml:"openrouter"`
	Retry      RetryConfig     `yaml:"retry"`

	// Timeout bounds a single oracle call including retries.
	Timeout time.Duration `yaml:"timeout"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// OpenAIConfig configures any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AzureConfig configures an Azure OpenAI deployment.
type AzureConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

const (
	defaultDeepSeekBaseURL   = "https://api.deepseek.com/v1"
	defaultQwenBaseURL       = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// DefaultConfig returns a Config with defaults for every provider.
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		OpenAI:    OpenAIConfig{Model: "gpt-4.1-mini"},
		Azure: AzureConfig{
			Deployment: "gpt-4o-2",
			APIVersion: "2025-01-01-preview",
		},
		DeepSeek:   OpenAIConfig{Model: "deepseek-chat", BaseURL: defaultDeepSeekBaseURL},
		Qwen:       OpenAIConfig{Model: "qwen-max", BaseURL: defaultQwenBaseURL},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenAIConfig{Model: "google/gemini-2.0-flash-exp", BaseURL: defaultOpenRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// ApplyEnv overrides cfg with EXAMDIAG_* environment variables.
func ApplyEnv(cfg *Config) {
	setString(&cfg.Provider, "EXAMDIAG_LLM_PROVIDER")

	setString(&cfg.Anthropic.APIKey, "EXAMDIAG_ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "EXAMDIAG_ANTHROPIC_MODEL")

	setString(&cfg.OpenAI.APIKey, "EXAMDIAG_OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "EXAMDIAG_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "EXAMDIAG_OPENAI_BASE_URL")

	setString(&cfg.Azure.APIKey, "EXAMDIAG_AZURE_OPENAI_API_KEY")
	setString(&cfg.Azure.Endpoint, "EXAMDIAG_AZURE_OPENAI_ENDPOINT")
	setString(&cfg.Azure.Deployment, "EXAMDIAG_AZURE_OPENAI_DEPLOYMENT")
	setString(&cfg.Azure.APIVersion, "EXAMDIAG_AZURE_OPENAI_API_VERSION")

	setString(&cfg.DeepSeek.APIKey, "EXAMDIAG_DEEPSEEK_API_KEY")
	setString(&cfg.DeepSeek.Model, "EXAMDIAG_DEEPSEEK_MODEL")

	setString(&cfg.Qwen.APIKey, "EXAMDIAG_DASHSCOPE_API_KEY")
	setString(&cfg.Qwen.Model, "EXAMDIAG_QWEN_MODEL")

	setString(&cfg.Gemini.APIKey, "EXAMDIAG_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "EXAMDIAG_GEMINI_MODEL")

	setString(&cfg.OpenRouter.APIKey, "EXAMDIAG_OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.Model, "EXAMDIAG_OPENROUTER_MODEL")

	if v := os.Getenv("EXAMDIAG_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
}

// ConfigFromEnv builds a Config from defaults plus environment overrides.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	return cfg
}

// DiscoverConfig probes the vendors' standard API key variables and returns
// a Config for the first one found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	probes := []struct {
		env      string
		provider string
		key      *string
	}{
		{"OPENAI_API_KEY", "openai", &cfg.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY", "anthropic", &cfg.Anthropic.APIKey},
		{"GEMINI_API_KEY", "gemini", &cfg.Gemini.APIKey},
		{"DEEPSEEK_API_KEY", "deepseek", &cfg.DeepSeek.APIKey},
		{"DASHSCOPE_API_KEY", "qwen", &cfg.Qwen.APIKey},
		{"OPENROUTER_API_KEY", "openrouter", &cfg.OpenRouter.APIKey},
	}
	for _, p := range probes {
		if k := os.Getenv(p.env); k != "" {
			cfg.Provider = p.provider
			*p.key = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	missing := func(env string) error {
		return fmt.Errorf("%s is required for the %s provider", env, c.Provider)
	}
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return missing("EXAMDIAG_ANTHROPIC_API_KEY")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return missing("EXAMDIAG_OPENAI_API_KEY")
		}
	case "azure":
		if c.Azure.APIKey == "" {
			return missing("EXAMDIAG_AZURE_OPENAI_API_KEY")
		}
		if c.Azure.Endpoint == "" {
			return missing("EXAMDIAG_AZURE_OPENAI_ENDPOINT")
		}
	case "deepseek":
		if c.DeepSeek.APIKey == "" {
			return missing("EXAMDIAG_DEEPSEEK_API_KEY")
		}
	case "qwen":
		if c.Qwen.APIKey == "" {
			return missing("EXAMDIAG_DASHSCOPE_API_KEY")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return missing("EXAMDIAG_GEMINI_API_KEY")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return missing("EXAMDIAG_OPENROUTER_API_KEY")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}
