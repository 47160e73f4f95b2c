package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements the Client interface using OpenAI's speech API.
type OpenAIClient struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// OpenAIConfig holds configuration for the OpenAI TTS client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // API base URL override (tests, proxies)
	Model   string // e.g., "tts-1"
	Voice   string // e.g., "alloy"
}

// NewOpenAIClient creates a new OpenAI TTS client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := openai.SpeechModel(cfg.Model)
	if model == "" {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(cfg.Voice)
	if voice == "" {
		voice = openai.VoiceAlloy
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(apiCfg),
		model:  model,
		voice:  voice,
	}
}

// Synthesize converts text to speech and returns MP3 bytes.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return audio, nil
}
