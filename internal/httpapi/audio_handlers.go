package httpapi

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/kitamura/hanasu/internal/conversation"
	"github.com/kitamura/hanasu/internal/intake"
)

// handleSubmitAudio accepts a recorded clip and runs it through the
// transcribe → translate → synthesize pipeline. The body is the raw WAV
// payload; ?source= names the language it was spoken in.
func (r *Router) handleSubmitAudio(w http.ResponseWriter, req *http.Request) {
	entry, ok := r.lookupSession(w, req)
	if !ok {
		return
	}

	if !r.registry.BeginSubmission() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "server is shutting down"})
		return
	}
	defer r.registry.EndSubmission()

	source := conversation.Language(req.URL.Query().Get("source"))
	if !source.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "source must be 'japanese' or 'english'"})
		return
	}

	audio, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.cfg.MaxAudioBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "audio payload too large"})
		return
	}

	entry.touch()
	msg, err := entry.controller.Submit(req.Context(), entry.sess, audio, source)

	switch {
	case errors.Is(err, intake.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "no API credential configured; supply one when creating the session",
		})
		return

	case errors.Is(err, intake.ErrAudioTooShort):
		// Non-fatal: the page shows this as a warning, not an error.
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"warning": "recording too short, please try again",
		})
		return

	case err != nil:
		var ge *intake.GatewayError
		if errors.As(err, &ge) {
			captureError(req, err, "audio submission failed at "+ge.Stage)
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error": ge.Stage + " failed, please try again",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	if msg == nil {
		// Duplicate transcript: dropped silently, nothing changed.
		writeJSON(w, http.StatusOK, map[string]any{"duplicate": true})
		return
	}

	entry.hub.broadcast(map[string]any{
		"type":          "transcript_updated",
		"message_count": entry.sess.Len(),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": map[string]any{
			"original":   msg.OriginalText,
			"translated": msg.TranslatedText,
			"timestamp":  msg.TimestampSeconds(),
			"source":     string(source),
		},
		// The page autoplays this right away; later renders reuse the same
		// bytes from the transcript endpoint.
		"audio_b64": base64.StdEncoding.EncodeToString(msg.Audio),
	})
}
