package legacy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CatalogKey is the flat key the previous version kept its whole catalog under,
// as one serialized JSON array.
const CatalogKey = "human_pokedex_db_v1"

// FlatStore is the legacy flat key-value storage: one file per key in a
// single directory. The current application only reads from it.
type FlatStore struct {
	dir string
}

// NewFlatStore creates a FlatStore rooted at dir. The directory need not exist.
func NewFlatStore(dir string) *FlatStore {
	return &FlatStore{dir: dir}
}

func (s *FlatStore) keyPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

// Get returns the value stored under key. ok is false when the key is absent.
func (s *FlatStore) Get(key string) (value string, ok bool, err error) {
	path, err := s.keyPath(key)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read legacy key %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set writes a value under key. Only tests and tooling that fabricate legacy
// data call this.
func (s *FlatStore) Set(key, value string) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create legacy dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0644); err != nil {
		return fmt.Errorf("write legacy key %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename legacy key %s: %w", key, err)
	}
	return nil
}
