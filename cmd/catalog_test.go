package cmd

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/humandex/internal/legacy"
)

const legacyFixture = `[
 {"id":"a","timestamp":2000,"speciesName":"Desk Goblin","types":["Dark","Steel"],"stats":{"hp":50,"attack":60,"defense":70,"spAtk":40,"spDef":55,"speed":20},"moves":["Spreadsheet","Reply All","Coffee Run","Standup"],"description":"Hoards staplers."},
 {"id":"b","timestamp":1000,"speciesName":"Gym Titan","types":["Fighting"],"stats":{"hp":90,"attack":110,"defense":80,"spAtk":20,"spDef":60,"speed":70},"moves":["Deadlift","Protein Shake","Mirror Check","Grunt"],"description":"Never skips leg day."}
]`

// runRoot executes the root command with args against a fresh data dir.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HUMANDEX_CONFIG", "")
	t.Setenv("HUMANDEX_DB_PATH", filepath.Join(dir, "humandex.db"))
	t.Setenv("HUMANDEX_LEGACY_DIR", filepath.Join(dir, "legacy"))
	t.Setenv("HUMANDEX_OUTPUT_DIR", filepath.Join(dir, "audio"))
	return dir
}

func TestMigrateThenList(t *testing.T) {
	dir := setupDataDir(t)
	if err := legacy.NewFlatStore(filepath.Join(dir, "legacy")).Set(legacy.CatalogKey, legacyFixture); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	out, err := runRoot(t, "migrate")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "Migrated 2 legacy entries") {
		t.Errorf("Unexpected migrate output: %q", out)
	}

	out, err = runRoot(t, "catalog", "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	goblin := strings.Index(out, "Desk Goblin")
	titan := strings.Index(out, "Gym Titan")
	if goblin < 0 || titan < 0 || goblin > titan {
		t.Errorf("Expected newest entry first, got:\n%s", out)
	}
	if !strings.Contains(out, "Dark/Steel") {
		t.Errorf("Expected joined types in list, got:\n%s", out)
	}
}

func TestMigrateReportsCorruptLegacy(t *testing.T) {
	dir := setupDataDir(t)
	if err := legacy.NewFlatStore(filepath.Join(dir, "legacy")).Set(legacy.CatalogKey, "{broken"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := runRoot(t, "migrate"); err == nil {
		t.Error("Expected migrate to fail on corrupt legacy data")
	}
}

func TestCatalogSearchShowDelete(t *testing.T) {
	dir := setupDataDir(t)
	if err := legacy.NewFlatStore(filepath.Join(dir, "legacy")).Set(legacy.CatalogKey, legacyFixture); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	out, err := runRoot(t, "catalog", "search", "Fighting")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, "Gym Titan") || strings.Contains(out, "Desk Goblin") {
		t.Errorf("Unexpected search output:\n%s", out)
	}

	out, err = runRoot(t, "catalog", "show", "a")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "speciesName: Desk Goblin") {
		t.Errorf("Expected YAML entry, got:\n%s", out)
	}

	if _, err := runRoot(t, "catalog", "show", "missing"); err == nil {
		t.Error("Expected error for unknown id")
	}

	if _, err := runRoot(t, "catalog", "delete", "a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	// The legacy copy is still there, so the next open restores it.
	out, err = runRoot(t, "catalog", "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "Desk Goblin") {
		t.Errorf("Expected legacy entry to be migrated again, got:\n%s", out)
	}
}

func TestCatalogExportImport(t *testing.T) {
	dir := setupDataDir(t)
	if err := legacy.NewFlatStore(filepath.Join(dir, "legacy")).Set(legacy.CatalogKey, legacyFixture); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	tests := []struct {
		name   string
		output string
	}{
		{name: "parquet", output: filepath.Join(dir, "dex.parquet")},
		{name: "jsonl", output: filepath.Join(dir, "dex.jsonl")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runRoot(t, "catalog", "export", "--output", tt.output); err != nil {
				t.Fatalf("export failed: %v", err)
			}
			if _, err := os.Stat(tt.output); err != nil {
				t.Fatalf("Expected export file: %v", err)
			}

			t.Setenv("HUMANDEX_DB_PATH", filepath.Join(t.TempDir(), "fresh.db"))
			t.Setenv("HUMANDEX_LEGACY_DIR", filepath.Join(t.TempDir(), "none"))
			out, err := runRoot(t, "catalog", "import", tt.output)
			if err != nil {
				t.Fatalf("import failed: %v", err)
			}
			if !strings.Contains(out, "Imported 2 of 2 entries") {
				t.Errorf("Unexpected import output: %q", out)
			}
		})
	}
}

func TestCatalogStats(t *testing.T) {
	dir := setupDataDir(t)
	if err := legacy.NewFlatStore(filepath.Join(dir, "legacy")).Set(legacy.CatalogKey, legacyFixture); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	out, err := runRoot(t, "catalog", "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	for _, want := range []string{"total_entries: 2", "species_name: Gym Titan", "type: Fighting"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in stats output:\n%s", want, out)
		}
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	setupDataDir(t)
	if _, err := runRoot(t, "catalog", "export", "--format", "csv"); err == nil {
		t.Error("Expected error for csv format")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"dex.parquet": "parquet",
		"DEX.JSONL":   "jsonl",
		"dex.yaml":    "yaml",
		"":            "yaml",
	}
	for path, want := range tests {
		if got := formatFromPath(path); got != want {
			t.Errorf("formatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestScanRequiresAPIKey(t *testing.T) {
	dir := setupDataDir(t)
	t.Setenv("GEMINI_API_KEY", "")
	img := filepath.Join(dir, "pixel.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := os.WriteFile(img, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := runRoot(t, "scan", img); err == nil {
		t.Error("Expected scan to fail without an API key")
	}
}
