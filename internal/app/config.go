package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	SentryDSN string

	// AI providers
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	ElevenLabsAPIKey string

	// Model settings
	TranslateModel string
	TTSProvider    string // "openai" (default) or "elevenlabs"
	TTSVoice       string

	// Intake settings
	MinAudioBytes    int
	MaxAudioBytes    int64
	SubmitsPerMinute int

	// Session lifecycle
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:  getenv("HTTP_ADDR", ":8080"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		SentryDSN: os.Getenv("SENTRY_DSN"),

		// AI providers
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    getenv("OPENAI_BASE_URL", ""),
		ElevenLabsAPIKey: getenv("ELEVENLABS_API_KEY", ""),

		// Model settings
		TranslateModel: getenv("TRANSLATE_MODEL", ""),
		TTSProvider:    getenv("TTS_PROVIDER", "openai"),
		TTSVoice:       getenv("TTS_VOICE", ""),

		// Intake settings. The minimum clip size keeps accidental button
		// taps from burning paid API calls; clamped so a misconfigured env
		// cannot reject every recording.
		MinAudioBytes:    getenvIntClamped("MIN_AUDIO_BYTES", 16000, 0, 320000),
		MaxAudioBytes:    int64(getenvIntClamped("MAX_AUDIO_BYTES", 10<<20, 1<<10, 25<<20)),
		SubmitsPerMinute: getenvIntClamped("SUBMITS_PER_MINUTE", 30, 1, 600),

		// Session lifecycle
		SessionTTL:    getenvDuration("SESSION_TTL", 30*time.Minute),
		SweepInterval: getenvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntClamped(k string, def, min, max int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
