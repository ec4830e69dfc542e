package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lehigh-university-libraries/humandex/internal/models"
)

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.session.Snapshot())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleTone(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, map[string]models.Tone{"tone": h.session.Snapshot().Tone})
	case "PUT":
		var request struct {
			Tone string `json:"tone"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		tone, err := models.ParseTone(request.Tone)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.session.SetTone(tone); err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.writeJSON(w, map[string]models.Tone{"tone": tone})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleToneCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, map[string]models.Tone{"tone": h.session.CycleTone()})
}

func (h *Handler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result := h.session.Replay(r.Context())
	h.writeJSON(w, map[string]any{
		"result":   result,
		"hasAudio": h.session.Snapshot().HasAudio,
	})
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.session.Reset()
	h.writeJSON(w, h.session.Snapshot())
}
