package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperClient implements the Client interface using OpenAI's Whisper API.
type WhisperClient struct {
	client *openai.Client
	model  string
}

// WhisperConfig holds configuration for the Whisper client.
type WhisperConfig struct {
	APIKey  string
	BaseURL string // API base URL override (tests, proxies)
	Model   string // e.g., "whisper-1"
}

// NewWhisperClient creates a new Whisper transcription client.
func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &WhisperClient{
		client: openai.NewClientWithConfig(apiCfg),
		model:  model,
	}
}

// Transcribe sends the audio clip to Whisper and returns the transcript text.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model: c.model,
		// Whisper infers the container from the filename when the clip is
		// sent from memory.
		FilePath: "clip.wav",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
