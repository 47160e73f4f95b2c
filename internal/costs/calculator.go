// Package costs provides spend estimation for external API usage.
package costs

import (
	"math"
	"os"
	"strconv"
	"sync"
)

// Pricing constants (in cents per unit for precision).
// These are based on current list prices and can be overridden via environment variables.
var (
	// WhisperCentsPerMinute is the cost per minute of audio for Whisper transcription.
	// Default: $0.006/min = 0.6 cents/min
	WhisperCentsPerMinute = getEnvFloat("COST_WHISPER_CENTS_PER_MIN", 0.6)

	// TranslationCentsPerThousandCharsIn is the cost per 1K input characters
	// for the translation model. Tokens are not exposed through the gateway
	// interface, so character counts stand in for them.
	TranslationCentsPerThousandCharsIn = getEnvFloat("COST_TRANSLATE_IN_CENTS_PER_1K_CHARS", 0.005)

	// TranslationCentsPerThousandCharsOut is the cost per 1K output characters
	// for the translation model.
	TranslationCentsPerThousandCharsOut = getEnvFloat("COST_TRANSLATE_OUT_CENTS_PER_1K_CHARS", 0.02)

	// TTSCentsPerThousandChars is the cost per 1K characters for speech synthesis.
	// Default: $15/1M chars = 1.5 cents/1K chars
	TTSCentsPerThousandChars = getEnvFloat("COST_TTS_CENTS_PER_1K_CHARS", 1.5)
)

// WAVBytesPerSecond estimates clip duration from payload size:
// 16 kHz mono, 16-bit samples.
const WAVBytesPerSecond = 32000

// Usage contains the raw metrics from a session used for cost estimation.
type Usage struct {
	STTAudioSeconds     float64 `json:"stt_audio_seconds"`     // audio submitted for transcription
	TranslationCharsIn  int     `json:"translation_chars_in"`  // characters sent to the translator
	TranslationCharsOut int     `json:"translation_chars_out"` // characters received back
	TTSCharacters       int     `json:"tts_characters"`        // characters synthesized
}

// Costs contains the estimated costs for a session in cents.
type Costs struct {
	STTCostCents         int `json:"stt_cost_cents"`
	TranslationCostCents int `json:"translation_cost_cents"`
	TTSCostCents         int `json:"tts_cost_cents"`
	TotalCostCents       int `json:"total_cost_cents"`
}

// Calculate computes the estimated costs for a session based on usage metrics.
func Calculate(u Usage) Costs {
	sttCents := (u.STTAudioSeconds / 60.0) * WhisperCentsPerMinute

	translationCents := (float64(u.TranslationCharsIn)/1000.0)*TranslationCentsPerThousandCharsIn +
		(float64(u.TranslationCharsOut)/1000.0)*TranslationCentsPerThousandCharsOut

	ttsCents := (float64(u.TTSCharacters) / 1000.0) * TTSCentsPerThousandChars

	c := Costs{
		STTCostCents:         roundToInt(sttCents),
		TranslationCostCents: roundToInt(translationCents),
		TTSCostCents:         roundToInt(ttsCents),
	}
	c.TotalCostCents = c.STTCostCents + c.TranslationCostCents + c.TTSCostCents
	return c
}

// Meter accumulates usage for one session as the pipeline runs.
// The zero value is ready to use; methods are safe on a nil meter.
type Meter struct {
	mu sync.Mutex
	u  Usage
}

// AddTranscription records an audio clip submitted for transcription.
func (m *Meter) AddTranscription(audioBytes int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.u.STTAudioSeconds += float64(audioBytes) / WAVBytesPerSecond
}

// AddTranslation records one translation round trip by character counts.
func (m *Meter) AddTranslation(charsIn, charsOut int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.u.TranslationCharsIn += charsIn
	m.u.TranslationCharsOut += charsOut
}

// AddSynthesis records characters sent to speech synthesis.
func (m *Meter) AddSynthesis(chars int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.u.TTSCharacters += chars
}

// Usage returns a snapshot of the accumulated usage.
func (m *Meter) Usage() Usage {
	if m == nil {
		return Usage{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.u
}

// Costs returns the estimated spend for the accumulated usage.
func (m *Meter) Costs() Costs {
	return Calculate(m.Usage())
}

func roundToInt(f float64) int {
	return int(math.Round(f))
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
