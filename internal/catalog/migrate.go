package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/humandex/internal/legacy"
	"github.com/lehigh-university-libraries/humandex/internal/models"
)

// ErrMigrationFailed wraps every failure of MigrateLegacy.
var ErrMigrationFailed = errors.New("legacy migration failed")

// LegacySource is the flat key-value storage used before the catalog existed.
type LegacySource interface {
	Get(key string) (value string, ok bool, err error)
}

// MigrateLegacy copies the legacy flat catalog, if there is one, into the
// store in a single transaction, keeping ids and timestamps. The legacy data
// is left untouched, so every start re-runs the copy; upsert by id makes that
// harmless.
func (s *Store) MigrateLegacy(ctx context.Context, src LegacySource) (int, error) {
	raw, ok, err := src.Get(legacy.CatalogKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	slog.Debug("Migration: checked legacy storage", "key", legacy.CatalogKey, "found", ok)
	if !ok {
		return 0, nil
	}

	var entries []models.SavedEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return 0, fmt.Errorf("%w: parse legacy catalog: %w", ErrMigrationFailed, err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	slog.Info("Migrating legacy entries", "count", len(entries))

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", ErrMigrationFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	migrated := 0
	for _, entry := range entries {
		if entry.ID == "" {
			slog.Warn("Skipping legacy entry without id", "species", entry.SpeciesName)
			continue
		}
		if err := put(ctx, tx, entry); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
		migrated++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ErrMigrationFailed, err)
	}

	slog.Info("Migration complete", "migrated", migrated)
	return migrated, nil
}
