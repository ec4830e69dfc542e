package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
)

// HandleLatestAudio serves the most recent narration as audio/wav
func (h *Handler) HandleLatestAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	wav, ok := h.audio.Latest()
	if !ok {
		h.writeError(w, "No narration yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(wav); err != nil {
		slog.Error("Unable to write narration", "err", err)
	}
}
