package httpapi

import (
	"net/http"
	"strings"

	"github.com/kitamura/hanasu/internal/transcript"
)

// handleTranscript renders the merged bilingual transcript. The default
// response is an HTML fragment ready to drop into the page; clients that
// ask for JSON get the bubble data instead. ?autoplay=1 marks the newest
// bubble for script-triggered playback.
func (r *Router) handleTranscript(w http.ResponseWriter, req *http.Request) {
	entry, ok := r.lookupSession(w, req)
	if !ok {
		return
	}

	autoplay := req.URL.Query().Get("autoplay") == "1"
	bubbles := transcript.Bubbles(entry.sess, autoplay)

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, map[string]any{
			"bubbles": bubbles,
			"count":   len(bubbles),
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := transcript.RenderHTML(w, bubbles); err != nil {
		r.logger.Printf("transcript: render failed: %v", err)
		captureError(req, err, "transcript render failed")
	}
}
