package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kitamura/hanasu/internal/conversation"
	"github.com/kitamura/hanasu/internal/costs"
	"github.com/kitamura/hanasu/internal/eventlog"
	"github.com/kitamura/hanasu/internal/intake"
)

const sessionEventCap = 512

// handleCreateSession starts a fresh conversation session. The body may
// carry an API key override so the demo works without server-side secrets:
//
//	{"api_key": "sk-..."}
func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) {
	var body struct {
		APIKey string `json:"api_key"`
	}
	// An empty body is fine; only malformed JSON is rejected.
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	apiKey := body.APIKey
	if apiKey == "" {
		apiKey = r.cfg.OpenAIAPIKey
	}

	sttClient, trClient, ttsClient := r.gateways(apiKey)
	events := eventlog.New(sessionEventCap)
	meter := &costs.Meter{}

	controller := intake.NewController(
		intake.Config{
			MinAudioBytes: r.cfg.MinAudioBytes,
			Configured:    apiKey != "",
		},
		sttClient, trClient, ttsClient,
		r.logger, events, meter,
	)

	sess := conversation.NewSession()
	entry := &sessionEntry{
		sess:       sess,
		controller: controller,
		events:     events,
		meter:      meter,
		hub:        newUpdateHub(r.logger),
	}
	r.registry.Put(sess.ID, entry)

	r.logger.Printf("session %s created (custom_key=%t)", sess.ID, body.APIKey != "")
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         sess.ID,
		"created_at": sess.CreatedAt.Format(time.RFC3339),
	})
}

func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) {
	entry, ok := r.lookupSession(w, req)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":            entry.sess.ID,
		"created_at":    entry.sess.CreatedAt.Format(time.RFC3339),
		"message_count": entry.sess.Len(),
		"watchers":      entry.hub.watcherCount(),
	})
}

// handleDeleteSession ends a session; an explicit restart from the page
// maps here.
func (r *Router) handleDeleteSession(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "sessionID")
	if !r.registry.Delete(id) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "session not found"})
		return
	}
	r.logger.Printf("session %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents exposes the session's pipeline event history for debugging.
func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request) {
	entry, ok := r.lookupSession(w, req)
	if !ok {
		return
	}

	events := entry.events.Events()
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// handleCosts returns the estimated provider spend for the session so far.
func (r *Router) handleCosts(w http.ResponseWriter, req *http.Request) {
	entry, ok := r.lookupSession(w, req)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"usage": entry.meter.Usage(),
		"costs": entry.meter.Costs(),
	})
}
