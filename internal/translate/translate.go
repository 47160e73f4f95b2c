package translate

import "context"

// Client defines the interface for translation providers.
type Client interface {
	// Translate renders text into the named target language (e.g. "English").
	Translate(ctx context.Context, text, targetLang string) (string, error)
}
