package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/humandex/internal/catalog"
	"github.com/lehigh-university-libraries/humandex/internal/models"
)

// HandleEntries lists saved entries newest first, filtered by ?q=
func (h *Handler) HandleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		entries, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			h.writeError(w, "Failed to list entries: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, entries)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleEntryDetail serves /api/entries/{id} and /api/entries/{id}/select
func (h *Handler) HandleEntryDetail(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/entries/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		h.writeError(w, "Entry id is required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "select" && r.Method == "POST":
		entry, ok := h.getEntryOrError(w, r, id)
		if !ok {
			return
		}
		h.session.SelectEntry(*entry)
		h.writeJSON(w, h.session.Snapshot())
	case action != "":
		h.writeError(w, "Not found", http.StatusNotFound)
	case r.Method == "GET":
		entry, ok := h.getEntryOrError(w, r, id)
		if !ok {
			return
		}
		h.writeJSON(w, entry)
	case r.Method == "DELETE":
		if err := h.catalog.Delete(r.Context(), id); err != nil {
			h.writeError(w, "Failed to delete entry: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if n, err := h.catalog.Count(r.Context()); err == nil {
			h.metrics.SetCatalogEntries(n)
		}
		slog.Info("Deleted entry", "id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) getEntryOrError(w http.ResponseWriter, r *http.Request, id string) (*models.SavedEntry, bool) {
	entry, err := h.catalog.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		h.writeError(w, "Entry not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.writeError(w, "Failed to load entry: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return entry, true
}
