package eventlog

import (
	"sync"
	"time"
)

// EventType represents the type of pipeline event
type EventType string

const (
	EventSubmissionReceived   EventType = "submission_received"
	EventAudioTooShort        EventType = "audio_too_short"
	EventSTTCompleted         EventType = "stt_completed"
	EventDuplicateDropped     EventType = "duplicate_dropped"
	EventTranslationCompleted EventType = "translation_completed"
	EventTTSCompleted         EventType = "tts_completed"
	EventMessageCommitted     EventType = "message_committed"
	EventGatewayError         EventType = "gateway_error"
	EventSessionReset         EventType = "session_reset"
)

// Event is one recorded pipeline step with free-form context data.
type Event struct {
	Type EventType      `json:"type"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data,omitempty"`
}

// Log keeps a bounded in-memory history of pipeline events for one session.
// It is diagnostics only and never feeds back into the pipeline.
type Log struct {
	mu     sync.Mutex
	max    int
	events []Event
}

// New creates an event log holding at most max events; older events are
// dropped first.
func New(max int) *Log {
	if max <= 0 {
		max = 256
	}
	return &Log{max: max}
}

// Record appends an event. Safe to call on a nil log.
func (l *Log) Record(t EventType, data map[string]any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, Event{Type: t, At: time.Now().UTC(), Data: data})
	if len(l.events) > l.max {
		l.events = l.events[len(l.events)-l.max:]
	}
}

// Events returns a copy of the recorded events, oldest first.
func (l *Log) Events() []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
