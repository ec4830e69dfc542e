package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/humandex/internal/gemini"
	"github.com/lehigh-university-libraries/humandex/internal/images"
	"github.com/lehigh-university-libraries/humandex/internal/session"
)

// HandleCapture runs one capture flow for an uploaded image. The image comes
// from a multipart "file" field or a JSON body with base64 "image" or
// "image_url".
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		data []byte
		ok   bool
	)
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		data, ok = h.readJSONImage(w, r)
	} else {
		data, ok = h.readFileUpload(w, r)
	}
	if !ok {
		return
	}

	if _, err := images.Validate(data); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.session.Capture(r.Context(), data)
	switch {
	case errors.Is(err, session.ErrBusy):
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, gemini.ErrEmptyImage):
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, gemini.ErrAnalysisMalformed):
		h.writeError(w, "Analysis failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		h.writeError(w, "Analysis failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	snap := h.session.Snapshot()
	h.writeJSON(w, map[string]any{
		"record":   record,
		"tone":     snap.Tone,
		"hasAudio": snap.HasAudio,
	})
}

func (h *Handler) readJSONImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	var request struct {
		Image    string `json:"image"`
		ImageURL string `json:"image_url"`
	}

	if err := json.NewDecoder(io.LimitReader(r.Body, 2*images.MaxImageBytes)).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}

	switch {
	case request.Image != "":
		// accept data URLs as produced by a browser canvas
		payload := request.Image
		if i := strings.Index(payload, ";base64,"); i >= 0 {
			payload = payload[i+len(";base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			h.writeError(w, "Invalid base64 image: "+err.Error(), http.StatusBadRequest)
			return nil, false
		}
		return data, true
	case request.ImageURL != "":
		data, _, err := h.fetcher.Load(r.Context(), request.ImageURL)
		if err != nil {
			h.writeError(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
			return nil, false
		}
		return data, true
	default:
		h.writeError(w, "image or image_url is required", http.StatusBadRequest)
		return nil, false
	}
}

func (h *Handler) readFileUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, images.MaxImageBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if len(fileData) > images.MaxImageBytes {
		h.writeError(w, "File too large (max 20MB)", http.StatusBadRequest)
		return nil, false
	}
	return fileData, true
}
