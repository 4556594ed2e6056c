package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/tenscan/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Classify asks the model to label an article and returns its raw answer.
	// The answer is untrusted; run it through ParseClassification.
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)

	// Ping checks that the provider is configured and reachable
	Ping(ctx context.Context) error
}

// ClassifyRequest contains the article to classify
type ClassifyRequest struct {
	Title   string
	Content string

	// Prompt overrides BuildPrompt when set
	Prompt string

	// Model overrides the configured model when set
	Model string

	MaxTokens int
}

// ClassifyResponse is the raw model output
type ClassifyResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   20,
		MaxTokens: 400,
	}
}

// maxPromptRunes bounds the article text sent to the model
const maxPromptRunes = 4000

// SystemPrompt frames the model as a classifier that answers in JSON only
const SystemPrompt = "You are a news analyst. You classify news articles and rate their social tension. Answer with a single JSON object and nothing else."

// BuildPrompt constructs the classification prompt for an article
func BuildPrompt(title, content string) string {
	var cats strings.Builder
	for _, c := range model.Categories {
		fmt.Fprintf(&cats, "- %s: %s\n", c, categoryHints[c])
	}

	return fmt.Sprintf(`Classify the news article below.

Categories (use the id exactly):
%s
Return JSON with these fields:
{
  "category": "<category id>",
  "tension_index": <0-100, how much social tension the article conveys>,
  "spike_index": <0-100, how urgent and sudden the event is>,
  "confidence": <0-1, confidence in the category>,
  "reasoning": "<one short sentence>"
}

Title: %s

Text:
%s`, cats.String(), title, truncateRunes(content, maxPromptRunes))
}

var categoryHints = map[model.Category]string{
	model.CategoryMilitaryOperations:   "combat, strikes, shelling, troop movements, weapons",
	model.CategoryHumanitarianCrisis:   "casualties, refugees, evacuation, shortages, aid",
	model.CategoryEconomicConsequences: "sanctions, prices, markets, currency, trade, budgets",
	model.CategoryPoliticalDecisions:   "laws, decrees, elections, negotiations, diplomacy",
	model.CategoryInformationSocial:    "media, protests, public opinion, culture, society",
	model.CategoryOther:                "anything else",
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "\n[...]"
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func pickInt(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
