// Package session owns the state of one capture session: the in-flight gate,
// the current record and narration, and the selected tone.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/humandex/internal/gemini"
	"github.com/lehigh-university-libraries/humandex/internal/metrics"
	"github.com/lehigh-university-libraries/humandex/internal/models"
	"github.com/lehigh-university-libraries/humandex/internal/providers"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ErrBusy is returned by Capture while another capture is in flight.
var ErrBusy = errors.New("a capture is already in progress")

// Store persists finished analyses.
type Store interface {
	Put(ctx context.Context, entry models.SavedEntry) error
	Count(ctx context.Context) (int, error)
}

// Player plays a base64 PCM narration payload.
type Player interface {
	Play(ctx context.Context, payload string) error
}

// ReplayResult says what Replay did.
type ReplayResult string

const (
	ReplayPlayed   ReplayResult = "played"
	ReplayNarrated ReplayResult = "narrated"
	ReplayNothing  ReplayResult = "nothing"
)

// Snapshot is a copy of the session state.
type Snapshot struct {
	Tone     models.Tone            `json:"tone"`
	InFlight bool                   `json:"inFlight"`
	Record   *models.AnalysisRecord `json:"record,omitempty"`
	HasAudio bool                   `json:"hasAudio"`
}

// Orchestrator drives capture flows. Every flow is tagged with a token; a
// flow whose token is no longer current when it completes leaves the session
// alone.
type Orchestrator struct {
	analyzer providers.Analyzer
	voice    providers.Synthesizer
	store    Store
	player   Player
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	token    uint64
	inFlight bool
	record   *models.AnalysisRecord
	audio    string
	tone     models.Tone
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records flow metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator replaces the uuid generator for entry ids.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithTone sets the starting tone.
func WithTone(t models.Tone) Option {
	return func(o *Orchestrator) {
		if t.Valid() {
			o.tone = t
		}
	}
}

// New returns an idle orchestrator with the default tone.
func New(analyzer providers.Analyzer, voice providers.Synthesizer, store Store, player Player, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer: analyzer,
		voice:    voice,
		store:    store,
		player:   player,
		now:      time.Now,
		newID:    uuid.NewString,
		tone:     models.DefaultTone,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Capture runs one flow: analyze the image with the session tone, then save
// the entry and narrate the description concurrently. Only analysis errors
// are returned; storage and narration failures are logged.
func (o *Orchestrator) Capture(ctx context.Context, image []byte) (record *models.AnalysisRecord, err error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		o.metrics.RecordCapture(metrics.OutcomeBusy, 0)
		return nil, ErrBusy
	}
	o.token++
	token := o.token
	o.record = nil
	o.audio = ""
	o.inFlight = true
	tone := o.tone
	o.mu.Unlock()

	ctx, span := metrics.StartSpan(ctx, "session.capture",
		attribute.Int64("flow", int64(token)),
		attribute.String("tone", string(tone)),
	)
	defer func() { metrics.EndSpan(span, err) }()
	log := metrics.Logger(ctx).With("flow", token)

	start := time.Now()
	rec, err := o.analyzer.Analyze(ctx, image, tone)
	elapsed := time.Since(start).Seconds()

	// Only one flow can be outstanding, so it always reopens the gate, even
	// when Reset or SelectEntry superseded it.
	o.mu.Lock()
	o.inFlight = false
	current := token == o.token
	if current && err == nil {
		stored := rec.Clone()
		o.record = &stored
	}
	o.mu.Unlock()

	if err != nil {
		outcome := metrics.OutcomeUnavailable
		if errors.Is(err, gemini.ErrAnalysisMalformed) {
			outcome = metrics.OutcomeMalformed
		}
		o.metrics.RecordCapture(outcome, elapsed)
		log.Warn("Analysis failed", "err", err)
		return nil, err
	}

	entry := models.SavedEntry{
		AnalysisRecord: rec.Clone(),
		ID:             o.newID(),
		Timestamp:      o.now().UnixMilli(),
		ImageBase64:    base64.StdEncoding.EncodeToString(image),
	}

	if !current {
		// superseded by Reset or a selection; the entry is still kept
		o.metrics.RecordCapture(metrics.OutcomeStale, elapsed)
		log.Info("Discarding stale analysis result", "species", rec.SpeciesName)
		o.persist(context.WithoutCancel(ctx), entry)
		return rec, nil
	}

	o.metrics.RecordCapture(metrics.OutcomeSuccess, elapsed)
	log.Info("Analysis complete", "species", rec.SpeciesName, "types", rec.Types)

	var g errgroup.Group
	g.Go(func() error {
		o.persist(context.WithoutCancel(ctx), entry)
		return nil
	})
	if rec.Description != "" {
		g.Go(func() error {
			o.narrate(ctx, token, rec.Description)
			return nil
		})
	} else {
		log.Debug("Skipping narration for empty description")
	}
	_ = g.Wait()

	return rec, nil
}

func (o *Orchestrator) persist(ctx context.Context, entry models.SavedEntry) {
	if err := o.store.Put(ctx, entry); err != nil {
		slog.Error("Failed to save entry", "id", entry.ID, "err", err)
		return
	}
	slog.Debug("Saved entry", "id", entry.ID, "timestamp", entry.Timestamp)

	if n, err := o.store.Count(ctx); err == nil {
		o.metrics.SetCatalogEntries(n)
	}
}

// narrate synthesizes text and plays it, keeping the payload for Replay as
// long as the flow is still current.
func (o *Orchestrator) narrate(ctx context.Context, token uint64, text string) {
	payload, err := o.voice.Synthesize(ctx, text)
	if err != nil {
		o.metrics.RecordNarration(metrics.OutcomeFailed)
		slog.Warn("Narration unavailable", "flow", token, "err", err)
		return
	}
	if payload == "" {
		o.metrics.RecordNarration(metrics.OutcomeAbsent)
		slog.Info("No narration returned", "flow", token)
		return
	}

	o.mu.Lock()
	if token != o.token {
		o.mu.Unlock()
		o.metrics.RecordNarration(metrics.OutcomeStale)
		slog.Debug("Dropping narration for stale flow", "flow", token)
		return
	}
	o.audio = payload
	o.mu.Unlock()

	o.play(ctx, payload)
}

func (o *Orchestrator) play(ctx context.Context, payload string) {
	if err := o.player.Play(ctx, payload); err != nil {
		o.metrics.RecordNarration(metrics.OutcomeFailed)
		slog.Warn("Failed to play narration", "err", err)
		return
	}
	o.metrics.RecordNarration(metrics.OutcomeSuccess)
}

// Replay plays the stored narration, or narrates the current record when
// there is no stored narration yet.
func (o *Orchestrator) Replay(ctx context.Context) ReplayResult {
	o.mu.Lock()
	audio, record, token := o.audio, o.record, o.token
	o.mu.Unlock()

	switch {
	case audio != "":
		o.play(ctx, audio)
		return ReplayPlayed
	case record != nil && record.Description != "":
		o.narrate(ctx, token, record.Description)
		return ReplayNarrated
	default:
		return ReplayNothing
	}
}

// Reset clears the session and invalidates any flow in progress. A running
// analysis keeps the gate closed until it returns.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.token++
	o.record = nil
	o.audio = ""
}

// SelectEntry shows a saved entry as the current record. Any flow in
// progress is invalidated so its narration cannot attach to this record.
func (o *Orchestrator) SelectEntry(entry models.SavedEntry) {
	record := entry.AnalysisRecord.Clone()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.token++
	o.record = &record
	o.audio = ""
}

// SetTone changes the tone used by the next capture.
func (o *Orchestrator) SetTone(t models.Tone) error {
	if !t.Valid() {
		return fmt.Errorf("invalid tone %q", t)
	}
	o.mu.Lock()
	o.tone = t
	o.mu.Unlock()
	return nil
}

// CycleTone advances to the next tone and returns it.
func (o *Orchestrator) CycleTone() models.Tone {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tone = o.tone.Next()
	return o.tone
}

// Audio returns the current narration payload, if any.
func (o *Orchestrator) Audio() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.audio, o.audio != ""
}

// Snapshot returns a copy of the session state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		Tone:     o.tone,
		InFlight: o.inFlight,
		HasAudio: o.audio != "",
	}
	if o.record != nil {
		r := o.record.Clone()
		s.Record = &r
	}
	return s
}
