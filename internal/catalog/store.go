package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/humandex/internal/models"
)

// ErrNotFound is returned by Get when no entry has the requested id.
var ErrNotFound = errors.New("entry not found")

// Store is the durable catalog of saved entries.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

const selectColumns = `id, timestamp, species_name, types, stats, moves, description, image_base64`

// Put inserts the entry, or overwrites the entry that already has its id.
func (s *Store) Put(ctx context.Context, entry models.SavedEntry) error {
	return put(ctx, s.DB, entry)
}

func put(ctx context.Context, db execer, entry models.SavedEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("put entry: empty id")
	}

	types, err := json.Marshal(nonNil(entry.Types))
	if err != nil {
		return fmt.Errorf("marshal types: %w", err)
	}
	stats, err := json.Marshal(entry.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	moves, err := json.Marshal(nonNil(entry.Moves))
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO entries (id, timestamp, species_name, types, stats, moves, description, image_base64)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			timestamp = excluded.timestamp,
			species_name = excluded.species_name,
			types = excluded.types,
			stats = excluded.stats,
			moves = excluded.moves,
			description = excluded.description,
			image_base64 = excluded.image_base64
	`, entry.ID, entry.Timestamp, entry.SpeciesName, string(types), string(stats), string(moves), entry.Description, entry.ImageBase64)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// GetAll returns every entry, newest first. Entries sharing a timestamp keep
// the order in which they were first inserted.
func (s *Store) GetAll(ctx context.Context) ([]models.SavedEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM entries
		ORDER BY timestamp DESC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.SavedEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (*models.SavedEntry, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM entries
		WHERE id = ?
	`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Delete removes the entry with the given id. Deleting an absent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Search returns the entries whose species name, types, or description
// contain query, newest first.
func (s *Store) Search(ctx context.Context, query string) ([]models.SavedEntry, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}

	out := make([]models.SavedEntry, 0, len(all))
	for _, e := range all {
		if e.Matches(query) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func scanEntry(row scanner) (models.SavedEntry, error) {
	var (
		e                   models.SavedEntry
		types, stats, moves string
	)
	if err := row.Scan(&e.ID, &e.Timestamp, &e.SpeciesName, &types, &stats, &moves, &e.Description, &e.ImageBase64); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan entry row: %w", err)
	}
	if err := json.Unmarshal([]byte(types), &e.Types); err != nil {
		return e, fmt.Errorf("decode types of %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(stats), &e.Stats); err != nil {
		return e, fmt.Errorf("decode stats of %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(moves), &e.Moves); err != nil {
		return e, fmt.Errorf("decode moves of %s: %w", e.ID, err)
	}
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
