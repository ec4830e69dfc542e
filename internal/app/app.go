// Package app wires configuration, storage, gateways and the session together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/humandex/internal/audio"
	"github.com/lehigh-university-libraries/humandex/internal/catalog"
	"github.com/lehigh-university-libraries/humandex/internal/config"
	"github.com/lehigh-university-libraries/humandex/internal/gemini"
	"github.com/lehigh-university-libraries/humandex/internal/legacy"
	"github.com/lehigh-university-libraries/humandex/internal/metrics"
	"github.com/lehigh-university-libraries/humandex/internal/models"
	"github.com/lehigh-university-libraries/humandex/internal/providers"
	"github.com/lehigh-university-libraries/humandex/internal/session"
)

// App holds every long-lived component.
type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Store    *catalog.Store
	Audio    *audio.Context
	Analyzer *gemini.Analyzer
	Voice    *gemini.Voice
	Session  *session.Orchestrator
}

// OpenCatalog opens the catalog database and copies any legacy entries into
// it. Migration failures are logged and the catalog is returned anyway.
func OpenCatalog(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*catalog.Store, error) {
	db, err := catalog.Open(ctx, cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	store := catalog.NewStore(db)

	migrated, err := store.MigrateLegacy(ctx, legacy.NewFlatStore(cfg.Storage.LegacyDir))
	if err != nil {
		slog.Error("Legacy migration failed, continuing with current catalog", "err", err)
	} else if migrated > 0 {
		m.RecordMigrated(migrated)
	}

	if n, err := store.Count(ctx); err == nil {
		m.SetCatalogEntries(n)
		slog.Debug("Catalog opened", "path", cfg.Storage.DBPath, "entries", n)
	}
	return store, nil
}

// New builds the full pipeline. It needs a Gemini API key.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*App, error) {
	if err := cfg.Gemini.RequireAPIKey(); err != nil {
		return nil, err
	}

	store, err := OpenCatalog(ctx, cfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	analyzer, err := gemini.NewAnalyzer(ctx, cfg.Gemini.APIKey, providers.Config{
		Model:       cfg.Gemini.AnalysisModel,
		Temperature: cfg.Gemini.Temperature,
		Timeout:     cfg.Gemini.Timeout,
	}, m)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	voice := gemini.NewVoice(cfg.Gemini.APIKey,
		providers.Config{Model: cfg.Gemini.VoiceModel, Timeout: cfg.Gemini.Timeout},
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithVoiceName(cfg.Gemini.Voice),
		gemini.WithMetrics(m),
	)

	player := audio.NewContext(cfg.Audio.PlaybackRate, audio.NewWAVFileSink(cfg.Audio.OutputDir))

	orch := session.New(analyzer, voice, store, player,
		session.WithMetrics(m),
		session.WithTone(models.DefaultTone),
	)

	return &App{
		Config:   cfg,
		Metrics:  m,
		Store:    store,
		Audio:    player,
		Analyzer: analyzer,
		Voice:    voice,
		Session:  orch,
	}, nil
}

// Close releases the gateway client and the database.
func (a *App) Close() error {
	var errs []error
	if a.Analyzer != nil {
		errs = append(errs, a.Analyzer.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
