package translate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// SystemPrompt frames the model as a translator; every request carries it.
const SystemPrompt = "You are a helpful assistant that translates text."

// OpenAIClient implements the Client interface using OpenAI chat completions.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI translation client.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // API base URL override (tests, proxies)
	Model     string // e.g., "gpt-4o-mini"
	MaxTokens int    // bounded output length, 0 for default
	// Temperature of 0 selects the default (0.5).
	Temperature float32
}

// NewOpenAIClient creates a new OpenAI translation client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.5
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(apiCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Translate asks the model for a single completion translating text into
// targetLang.
func (c *OpenAIClient) Translate(ctx context.Context, text, targetLang string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Translate the following text to %s: %s", targetLang, text)},
		},
		MaxTokens:   c.maxTokens,
		N:           1,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in translation response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
