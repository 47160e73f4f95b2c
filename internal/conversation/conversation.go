// Package conversation holds the in-memory state of one bilingual
// voice-translation session: two append-only message logs, one per language.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Language identifies which side of the conversation a message belongs to.
type Language string

const (
	Japanese Language = "japanese"
	English  Language = "english"
)

// Valid reports whether l is one of the two supported languages.
func (l Language) Valid() bool {
	return l == Japanese || l == English
}

// Opposite returns the language a message in l gets translated into.
func (l Language) Opposite() Language {
	if l == Japanese {
		return English
	}
	return Japanese
}

// Name returns the human-readable language name used in translation prompts.
func (l Language) Name() string {
	if l == Japanese {
		return "Japanese"
	}
	return "English"
}

// Message is one completed exchange: what was said, its translation, and the
// synthesized audio for the translation. The audio is produced exactly once
// when the message is created and reused for every later render.
// Messages are immutable once appended.
type Message struct {
	OriginalText   string
	TranslatedText string
	Audio          []byte // MP3 of TranslatedText
	Timestamp      time.Time
}

// TimestampSeconds returns the message timestamp as Unix seconds.
func (m Message) TimestampSeconds() float64 {
	return float64(m.Timestamp.UnixNano()) / 1e9
}

// Entry is a message tagged with the language log it came from.
type Entry struct {
	Message
	Lang Language
}

// Session owns the two conversation logs plus the last raw audio payload
// received per language. It lives for one browser session and is never
// persisted. The HTTP host is concurrent, so mutation is serialized with a
// mutex even though each submission runs as a single sequential pipeline.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	logs      map[Language][]Message
	lastAudio map[Language][]byte
}

// NewSession creates an empty session with a fresh ID.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		logs:      make(map[Language][]Message),
		lastAudio: make(map[Language][]byte),
	}
}

// Append adds msg to the tail of lang's log. The store enforces no ordering
// itself; the caller guarantees duplicate suppression.
func (s *Session) Append(lang Language, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[lang] = append(s.logs[lang], msg)
}

// All returns every message from both logs tagged with its source language.
// Entries keep insertion order within a log; no cross-log order is implied —
// ordering for display is the renderer's job.
func (s *Session) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.logs[Japanese])+len(s.logs[English]))
	for _, lang := range []Language{Japanese, English} {
		for _, msg := range s.logs[lang] {
			entries = append(entries, Entry{Message: msg, Lang: lang})
		}
	}
	return entries
}

// LastOriginal returns the original text of the newest message in lang's log.
// The second result is false when the log is empty.
func (s *Session) LastOriginal(lang Language) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[lang]
	if len(log) == 0 {
		return "", false
	}
	return log[len(log)-1].OriginalText, true
}

// Len returns the total number of messages across both logs.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs[Japanese]) + len(s.logs[English])
}

// SetLastAudio records the most recent raw audio payload for lang.
func (s *Session) SetLastAudio(lang Language, audio []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAudio[lang] = audio
}

// LastAudio returns the most recent raw audio payload for lang, or nil.
func (s *Session) LastAudio(lang Language) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAudio[lang]
}

// Reset drops both logs and the raw-audio bookkeeping, keeping the session ID.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = make(map[Language][]Message)
	s.lastAudio = make(map[Language][]byte)
}
