package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/humandex/internal/models"
	"github.com/parquet-go/parquet-go"
)

// Loader reads entries previously exported from a catalog
type Loader struct {
	path string
}

// NewLoader creates a new loader for the given file
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load loads entries from a parquet, JSONL, or JSON array file. A JSON array
// is the same shape the legacy flat storage used.
func (l *Loader) Load() ([]models.SavedEntry, error) {
	ext := strings.ToLower(filepath.Ext(l.path))

	switch ext {
	case ".parquet":
		return l.loadParquet()
	case ".jsonl", ".json":
		return l.loadJSON()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl, .json)", ext)
	}
}

func (l *Loader) loadJSON() ([]models.SavedEntry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []models.SavedEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse JSON array: %w", err)
		}
		return entries, nil
	}

	var entries []models.SavedEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))

	// images make for long lines
	const maxCapacity = 32 * 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var entry models.SavedEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading import file: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_entries", len(entries), "total_lines", lineNum)
	return entries, nil
}

func (l *Loader) loadParquet() ([]models.SavedEntry, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[EntryRow](pf)
	defer reader.Close()

	var entries []models.SavedEntry
	rows := make([]EntryRow, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			entries = append(entries, row.Entry())
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	return entries, nil
}
