package stt

import "context"

// Client defines the interface for speech-to-text providers.
type Client interface {
	// Transcribe converts a complete audio clip to text.
	// Audio should be a WAV clip (mono, ~16 kHz) unless the provider
	// is configured otherwise.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
