// Package transcript turns a session's two conversation logs into a single
// time-ordered bilingual rendering.
package transcript

import (
	"encoding/base64"
	"sort"
	"time"

	"github.com/kitamura/hanasu/internal/conversation"
)

// Bubble is one rendered transcript entry: the original utterance, its
// translation and the playable synthesized audio.
type Bubble struct {
	Lang          conversation.Language `json:"lang"`
	Align         string                `json:"align"` // "left" for japanese, "right" for english
	PrimaryText   string                `json:"primary_text"`
	SecondaryText string                `json:"secondary_text"`
	AudioBase64   string                `json:"audio_b64"`
	Timestamp     time.Time             `json:"timestamp"`
	Autoplay      bool                  `json:"autoplay"`
}

// Bubbles merges both logs into one sequence ordered by timestamp ascending.
// The sort is stable: messages with equal timestamps keep their log-relative
// insertion order, so the result is deterministic regardless of which
// language's widget fired last. When autoplayNewest is set, the final bubble
// (the most recent message) is marked for script-triggered playback.
//
// Audio comes from the bytes cached on each message at commit time; nothing
// is re-synthesized here.
func Bubbles(sess *conversation.Session, autoplayNewest bool) []Bubble {
	entries := sess.All()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	bubbles := make([]Bubble, 0, len(entries))
	for _, e := range entries {
		align := "left"
		if e.Lang == conversation.English {
			align = "right"
		}
		bubbles = append(bubbles, Bubble{
			Lang:          e.Lang,
			Align:         align,
			PrimaryText:   e.OriginalText,
			SecondaryText: e.TranslatedText,
			AudioBase64:   base64.StdEncoding.EncodeToString(e.Audio),
			Timestamp:     e.Timestamp,
		})
	}

	if autoplayNewest && len(bubbles) > 0 {
		bubbles[len(bubbles)-1].Autoplay = true
	}
	return bubbles
}
