package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/humandex/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// EntryRow is the flat parquet representation of a saved entry.
type EntryRow struct {
	ID             string   `parquet:"id"`
	Timestamp      int64    `parquet:"timestamp"`
	SpeciesName    string   `parquet:"species_name"`
	Types          []string `parquet:"types,list"`
	HP             int64    `parquet:"hp"`
	Attack         int64    `parquet:"attack"`
	Defense        int64    `parquet:"defense"`
	SpecialAttack  int64    `parquet:"sp_atk"`
	SpecialDefense int64    `parquet:"sp_def"`
	Speed          int64    `parquet:"speed"`
	Moves          []string `parquet:"moves,list"`
	Description    string   `parquet:"description"`
	ImageBase64    string   `parquet:"image_base64"`
}

// ToRow flattens an entry for parquet.
func ToRow(e models.SavedEntry) EntryRow {
	return EntryRow{
		ID:             e.ID,
		Timestamp:      e.Timestamp,
		SpeciesName:    e.SpeciesName,
		Types:          e.Types,
		HP:             int64(e.Stats.HP),
		Attack:         int64(e.Stats.Attack),
		Defense:        int64(e.Stats.Defense),
		SpecialAttack:  int64(e.Stats.SpecialAttack),
		SpecialDefense: int64(e.Stats.SpecialDefense),
		Speed:          int64(e.Stats.Speed),
		Moves:          e.Moves,
		Description:    e.Description,
		ImageBase64:    e.ImageBase64,
	}
}

// Entry rebuilds a saved entry from its parquet row. Slices are copied
// because the parquet reader reuses row buffers between reads.
func (r EntryRow) Entry() models.SavedEntry {
	return models.SavedEntry{
		AnalysisRecord: models.AnalysisRecord{
			SpeciesName: r.SpeciesName,
			Types:       append([]string(nil), r.Types...),
			Stats: models.StatBlock{
				HP:             int(r.HP),
				Attack:         int(r.Attack),
				Defense:        int(r.Defense),
				SpecialAttack:  int(r.SpecialAttack),
				SpecialDefense: int(r.SpecialDefense),
				Speed:          int(r.Speed),
			},
			Moves:       append([]string(nil), r.Moves...),
			Description: r.Description,
		},
		ID:          r.ID,
		Timestamp:   r.Timestamp,
		ImageBase64: r.ImageBase64,
	}
}

// ExportParquet writes entries as a parquet file.
func ExportParquet(w io.Writer, entries []models.SavedEntry) error {
	rows := make([]EntryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, ToRow(e))
	}

	writer := parquet.NewGenericWriter[EntryRow](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// ExportJSONL writes one JSON entry per line.
func ExportJSONL(w io.Writer, entries []models.SavedEntry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// ExportYAML writes entries as a YAML list. Images are left out to keep the
// output readable.
func ExportYAML(w io.Writer, entries []models.SavedEntry) error {
	out := make([]models.SavedEntry, 0, len(entries))
	for _, e := range entries {
		e.ImageBase64 = ""
		out = append(out, e)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
