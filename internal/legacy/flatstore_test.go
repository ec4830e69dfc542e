package legacy

import (
	"path/filepath"
	"testing"
)

func TestFlatStoreGetMissing(t *testing.T) {
	store := NewFlatStore(filepath.Join(t.TempDir(), "does-not-exist"))

	value, ok, err := store.Get(CatalogKey)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ok || value != "" {
		t.Errorf("Expected absent key, got ok=%v value=%q", ok, value)
	}
}

func TestFlatStoreSetGet(t *testing.T) {
	store := NewFlatStore(t.TempDir())

	if err := store.Set(CatalogKey, `[]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok, err := store.Get(CatalogKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || value != `[]` {
		t.Errorf("Expected stored value, got ok=%v value=%q", ok, value)
	}
}

func TestFlatStoreRejectsPathKeys(t *testing.T) {
	store := NewFlatStore(t.TempDir())

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		t.Run(key, func(t *testing.T) {
			if _, _, err := store.Get(key); err == nil {
				t.Errorf("Expected error for key %q", key)
			}
		})
	}
}
