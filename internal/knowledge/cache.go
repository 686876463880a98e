package knowledge

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CacheRecord is the durable form of a successful model answer. Records are
// later rescanned as knowledge fragments, so a session's answer becomes
// fast-path material for future similar questions.
type CacheRecord struct {
	Source           string    `json:"source"`
	OriginalQuestion string    `json:"original_question"`
	Answer           string    `json:"answer"`
	Timestamp        time.Time `json:"timestamp"`
}

const cacheSource = "auto_cache"

// CacheWriter owns the write path into the cache directory. Persist never
// fails the primary response path: write errors are logged and swallowed.
type CacheWriter struct {
	dir        string
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time
}

// NewCacheWriter creates a writer for dir. maxEntries > 0 enables a
// retention cap; 0 keeps the cache append-only and unbounded.
func NewCacheWriter(dir string, maxEntries int, logger *slog.Logger) *CacheWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheWriter{dir: dir, maxEntries: maxEntries, logger: logger, now: time.Now}
}

// Persist writes one freshly named record per call. Calling it twice with
// the same pair produces two distinct files; existing records are never
// updated or merged.
func (w *CacheWriter) Persist(question, answer string) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.logger.Warn("answer cache dir unavailable", "dir", w.dir, "error", err)
		return
	}

	record := CacheRecord{
		Source:           cacheSource,
		OriginalQuestion: question,
		Answer:           answer,
		Timestamp:        w.now().UTC(),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		w.logger.Warn("answer cache encode failed", "error", err)
		return
	}

	path := filepath.Join(w.dir, uuid.NewString()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		w.logger.Warn("answer cache write failed", "file", path, "error", err)
		return
	}

	w.enforceRetention()
}

// enforceRetention removes the oldest records once the cap is exceeded.
func (w *CacheWriter) enforceRetention() {
	if w.maxEntries <= 0 {
		return
	}
	paths, err := filepath.Glob(filepath.Join(w.dir, "*.json"))
	if err != nil || len(paths) <= w.maxEntries {
		return
	}

	type entry struct {
		path string
		mod  time.Time
	}
	entries := make([]entry, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: path, mod: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].mod.Before(entries[j].mod) })

	for i := 0; i < len(entries)-w.maxEntries; i++ {
		if err := os.Remove(entries[i].path); err != nil {
			w.logger.Warn("answer cache eviction failed", "file", entries[i].path, "error", err)
		}
	}
}
