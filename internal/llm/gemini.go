package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Close releases the underlying client
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// Ping counts tokens of a tiny prompt, which needs a valid key and model
func (p *GeminiProvider) Ping(ctx context.Context) error {
	m := p.client.GenerativeModel(pick(p.config.Model, defaultGeminiModel))
	if _, err := m.CountTokens(ctx, genai.Text("ping")); err != nil {
		return fmt.Errorf("Gemini API check failed: %w", err)
	}
	return nil
}

// Classify generates a JSON answer with the system prompt as instruction
func (p *GeminiProvider) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	name := pick(req.Model, p.config.Model, defaultGeminiModel)

	m := p.client.GenerativeModel(name)
	m.SetTemperature(0.1)
	m.SetMaxOutputTokens(int32(pickInt(req.MaxTokens, p.config.MaxTokens, 400)))
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(SystemPrompt)}}

	resp, err := m.GenerateContent(ctx, genai.Text(pick(req.Prompt, BuildPrompt(req.Title, req.Content))))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &ClassifyResponse{
		Text:       strings.TrimSpace(text.String()),
		Model:      name,
		TokensUsed: tokens,
	}, nil
}
