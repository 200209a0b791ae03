package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/examdiag/internal/logger"
	"github.com/abhisek/examdiag/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller → retry → logging → base. The mock provider is returned bare.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "azure":
		base, err = NewAzureProvider(cfg.Azure)
	case "deepseek":
		base, err = NewDeepSeekProvider(cfg.DeepSeek)
	case "qwen":
		base, err = NewQwenProvider(cfg.Qwen)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		return NewMockProvider(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	if events == nil {
		events = store.NopEventRepo{}
	}
	if log == nil {
		log = logger.Nop()
	}

	logged := WithLogging(base, cfg.Provider, events, log)
	return WithRetry(logged, cfg.Retry), nil
}
