package knowledge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func cacheFiles(t *testing.T, dir string) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatalf("glob cache dir: %v", err)
	}
	return paths
}

func TestPersistWritesRecord(t *testing.T) {
	dir := t.TempDir()
	w := NewCacheWriter(dir, 0, quietLogger())

	w.Persist("What is a loan?", "A loan is borrowed money.")

	paths := cacheFiles(t, dir)
	if len(paths) != 1 {
		t.Fatalf("cache files = %d, want 1", len(paths))
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read cache record: %v", err)
	}
	var record CacheRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode cache record: %v", err)
	}
	if record.Source != "auto_cache" {
		t.Fatalf("Source = %q, want auto_cache", record.Source)
	}
	if record.OriginalQuestion != "What is a loan?" || record.Answer != "A loan is borrowed money." {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Timestamp.IsZero() {
		t.Fatalf("Timestamp should be set")
	}
}

func TestPersistIsAppendOnly(t *testing.T) {
	dir := t.TempDir()
	w := NewCacheWriter(dir, 0, quietLogger())

	w.Persist("same question", "same answer")
	w.Persist("same question", "same answer")

	if got := len(cacheFiles(t, dir)); got != 2 {
		t.Fatalf("cache files = %d, want 2 distinct records", got)
	}
}

func TestPersistNeverFailsResponsePath(t *testing.T) {
	// A file where the cache directory should be makes every write fail.
	base := t.TempDir()
	blocked := filepath.Join(base, "cache")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	w := NewCacheWriter(blocked, 0, quietLogger())
	w.Persist("q", "a")
}

func TestPersistRetentionCapEvictsOldest(t *testing.T) {
	dir := t.TempDir()
	w := NewCacheWriter(dir, 2, quietLogger())

	for i := 0; i < 4; i++ {
		w.Persist("question", "answer")
		// Spread modtimes so eviction order is deterministic.
		time.Sleep(5 * time.Millisecond)
	}

	if got := len(cacheFiles(t, dir)); got != 2 {
		t.Fatalf("cache files after retention = %d, want 2", got)
	}
}
