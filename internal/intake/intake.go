// Package intake runs the audio submission pipeline: guard checks, then
// transcription, translation and synthesis in sequence, then a single
// commit to the conversation store.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kitamura/hanasu/internal/conversation"
	"github.com/kitamura/hanasu/internal/costs"
	"github.com/kitamura/hanasu/internal/eventlog"
	"github.com/kitamura/hanasu/internal/stt"
	"github.com/kitamura/hanasu/internal/translate"
	"github.com/kitamura/hanasu/internal/tts"
)

// DefaultMinAudioBytes is the minimum accepted clip size, calibrated to
// roughly one second of 16 kHz mono audio. Shorter clips are almost always
// accidental clicks that would transcribe to nothing.
const DefaultMinAudioBytes = 16000

var (
	// ErrAudioTooShort rejects clips below the minimum duration threshold.
	ErrAudioTooShort = errors.New("recording too short")

	// ErrNotConfigured blocks all gateway calls when no API credential is set.
	ErrNotConfigured = errors.New("api credential not configured")

	// ErrInvalidLanguage rejects submissions for an unknown source language.
	ErrInvalidLanguage = errors.New("invalid source language")
)

// GatewayError wraps a failure from one of the three external services.
// The in-progress submission is abandoned with no store mutation.
type GatewayError struct {
	Stage string // "transcription", "translation" or "synthesis"
	Err   error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway: %v", e.Stage, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Config holds the intake pipeline settings.
type Config struct {
	MinAudioBytes int  // clips below this are rejected; 0 uses the default
	Configured    bool // false when no API credential is available
}

// Controller drives one submission through transcribe, translate, synthesize
// and commit. Each submission is a single synchronous chain; each stage needs
// the prior stage's output, so there is nothing to parallelize.
type Controller struct {
	cfg       Config
	stt       stt.Client
	translate translate.Client
	tts       tts.Client
	logger    *log.Logger
	events    *eventlog.Log
	meter     *costs.Meter
}

// NewController creates an intake controller. The event log and meter may be
// nil when diagnostics are not needed.
func NewController(cfg Config, sttClient stt.Client, trClient translate.Client, ttsClient tts.Client, logger *log.Logger, events *eventlog.Log, meter *costs.Meter) *Controller {
	if cfg.MinAudioBytes <= 0 {
		cfg.MinAudioBytes = DefaultMinAudioBytes
	}
	return &Controller{
		cfg:       cfg,
		stt:       sttClient,
		translate: trClient,
		tts:       ttsClient,
		logger:    logger,
		events:    events,
		meter:     meter,
	}
}

// MinAudioBytes returns the active minimum clip size.
func (c *Controller) MinAudioBytes() int { return c.cfg.MinAudioBytes }

// Submit runs the full pipeline for one audio clip recorded in source.
//
// On success it appends exactly one message to source's log and returns it;
// the caller is expected to autoplay the message's synthesized audio. A
// repeated transcript (equal to the last entry in the same source log) is
// silently dropped and returns (nil, nil) — the capture widget fires twice
// for the same utterance often enough that this needs no user-visible error.
// Any failure leaves the store untouched.
func (c *Controller) Submit(ctx context.Context, sess *conversation.Session, audio []byte, source conversation.Language) (*conversation.Message, error) {
	if !c.cfg.Configured {
		return nil, ErrNotConfigured
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, source)
	}

	c.events.Record(eventlog.EventSubmissionReceived, map[string]any{
		"source": string(source),
		"bytes":  len(audio),
	})

	if len(audio) < c.cfg.MinAudioBytes {
		c.events.Record(eventlog.EventAudioTooShort, map[string]any{
			"bytes": len(audio),
			"min":   c.cfg.MinAudioBytes,
		})
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrAudioTooShort, len(audio), c.cfg.MinAudioBytes)
	}

	transcript, err := c.stt.Transcribe(ctx, audio)
	if err != nil {
		return nil, c.gatewayError("transcription", err)
	}
	c.meter.AddTranscription(len(audio))
	c.events.Record(eventlog.EventSTTCompleted, map[string]any{"transcript": transcript})

	// Compare only against the immediately preceding message in the same
	// language's log; the other speaker may legitimately repeat a phrase.
	if last, ok := sess.LastOriginal(source); ok && last == transcript {
		c.logger.Printf("intake: duplicate transcript dropped (source=%s)", source)
		c.events.Record(eventlog.EventDuplicateDropped, map[string]any{"transcript": transcript})
		sess.SetLastAudio(source, audio)
		return nil, nil
	}

	translated, err := c.translate.Translate(ctx, transcript, source.Opposite().Name())
	if err != nil {
		return nil, c.gatewayError("translation", err)
	}
	c.meter.AddTranslation(len(transcript), len(translated))
	c.events.Record(eventlog.EventTranslationCompleted, map[string]any{"translated": translated})

	audioOut, err := c.tts.Synthesize(ctx, translated)
	if err != nil {
		return nil, c.gatewayError("synthesis", err)
	}
	c.meter.AddSynthesis(len(translated))
	c.events.Record(eventlog.EventTTSCompleted, map[string]any{"audio_bytes": len(audioOut)})

	// Commit happens only after all three round trips succeed. The synthesized
	// audio is cached on the message here and never regenerated on render.
	msg := conversation.Message{
		OriginalText:   transcript,
		TranslatedText: translated,
		Audio:          audioOut,
		Timestamp:      time.Now().UTC(),
	}
	sess.Append(source, msg)
	sess.SetLastAudio(source, audio)
	c.events.Record(eventlog.EventMessageCommitted, map[string]any{
		"source":    string(source),
		"timestamp": msg.TimestampSeconds(),
	})

	return &msg, nil
}

func (c *Controller) gatewayError(stage string, err error) error {
	c.logger.Printf("intake: %s gateway failed: %v", stage, err)
	c.events.Record(eventlog.EventGatewayError, map[string]any{
		"stage": stage,
		"error": err.Error(),
	})
	return &GatewayError{Stage: stage, Err: err}
}
