package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/humandex/internal/images"
	"github.com/lehigh-university-libraries/humandex/internal/metrics"
	"github.com/lehigh-university-libraries/humandex/internal/models"
	"github.com/lehigh-university-libraries/humandex/internal/session"
)

// Catalog is the part of the catalog store the API reads and deletes from
type Catalog interface {
	Search(ctx context.Context, query string) ([]models.SavedEntry, error)
	Get(ctx context.Context, id string) (*models.SavedEntry, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// AudioSource serves the most recent narration as a WAV file
type AudioSource interface {
	Latest() ([]byte, bool)
}

type Handler struct {
	session *session.Orchestrator
	catalog Catalog
	audio   AudioSource
	fetcher *images.Fetcher
	metrics *metrics.Metrics
}

func New(s *session.Orchestrator, c Catalog, a AudioSource, f *images.Fetcher, m *metrics.Metrics) *Handler {
	if f == nil {
		f = images.NewFetcher()
	}
	return &Handler{
		session: s,
		catalog: c,
		audio:   a,
		fetcher: f,
		metrics: m,
	}
}

// Routes registers the JSON API on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/capture", h.instrument("/api/capture", h.HandleCapture))
	mux.HandleFunc("/api/session", h.instrument("/api/session", h.HandleSession))
	mux.HandleFunc("/api/session/tone", h.instrument("/api/session/tone", h.HandleTone))
	mux.HandleFunc("/api/session/tone/cycle", h.instrument("/api/session/tone/cycle", h.HandleToneCycle))
	mux.HandleFunc("/api/session/replay", h.instrument("/api/session/replay", h.HandleReplay))
	mux.HandleFunc("/api/session/reset", h.instrument("/api/session/reset", h.HandleReset))
	mux.HandleFunc("/api/entries", h.instrument("/api/entries", h.HandleEntries))
	mux.HandleFunc("/api/entries/", h.instrument("/api/entries/{id}", h.HandleEntryDetail))
	mux.HandleFunc("/api/audio/latest", h.instrument("/api/audio/latest", h.HandleLatestAudio))
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Warn(message, "status", code)
	}
	http.Error(w, message, code)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handler) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next(rec, r)

		duration := time.Since(start)
		h.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.statusCode), duration.Seconds())
		slog.Debug("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"duration", duration,
		)
	}
}
