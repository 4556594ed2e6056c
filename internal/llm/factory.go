package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/tenscan/internal/model"
)

// NewProvider creates a new LLM provider based on configuration.
// An empty provider name disables AI classification and returns (nil, nil).
func NewProvider(config Config) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch strings.ToLower(config.Provider) {
	case "openai":
		p, err = NewOpenAIProvider(config)

	case "anthropic", "claude":
		p, err = NewAnthropicProvider(config)

	case "ollama":
		p, err = NewOllamaProvider(config)

	case "gemini", "google":
		p, err = NewGeminiProvider(config)

	case "", "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama, gemini)", config.Provider)
	}

	// avoid handing out a typed nil inside the interface
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConfigFromModel converts the application config to an llm.Config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		MaxTokens:  cfg.LLM.MaxTokens,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	}
}
