package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/humandex/internal/config"
	"github.com/lehigh-university-libraries/humandex/internal/legacy"
	"github.com/lehigh-university-libraries/humandex/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(dir, "catalog.db")
	cfg.Storage.LegacyDir = filepath.Join(dir, "legacy")
	cfg.Audio.OutputDir = filepath.Join(dir, "audio")
	return cfg
}

func TestOpenCatalogMigratesLegacy(t *testing.T) {
	cfg := testConfig(t)
	src := legacy.NewFlatStore(cfg.Storage.LegacyDir)
	if err := src.Set(legacy.CatalogKey, `[{"id":"old","timestamp":10,"speciesName":"Retiree","types":["Normal"],"stats":{"hp":1,"attack":1,"defense":1,"spAtk":1,"spDef":1,"speed":1},"moves":["a","b","c","d"],"description":"Naps."}]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	m := metrics.New(prometheus.NewRegistry())
	store, err := OpenCatalog(context.Background(), cfg, m)
	if err != nil {
		t.Fatalf("OpenCatalog failed: %v", err)
	}
	defer store.Close()

	entry, err := store.Get(context.Background(), "old")
	if err != nil {
		t.Fatalf("Expected migrated entry: %v", err)
	}
	if entry.SpeciesName != "Retiree" || entry.Timestamp != 10 {
		t.Errorf("Unexpected migrated entry: %+v", entry)
	}
	if got := testutil.ToFloat64(m.CatalogEntries); got != 1 {
		t.Errorf("Expected catalog gauge 1, got %v", got)
	}
}

func TestOpenCatalogAbsorbsMigrationFailure(t *testing.T) {
	cfg := testConfig(t)
	if err := legacy.NewFlatStore(cfg.Storage.LegacyDir).Set(legacy.CatalogKey, "not json"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	store, err := OpenCatalog(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Expected migration failure to be absorbed, got %v", err)
	}
	defer store.Close()

	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("Expected empty catalog, got %d", n)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gemini.APIKey = ""
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Error("Expected error without API key")
	}
}
