package knowledge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Fragment is a unit of locally searchable text with its provenance.
type Fragment struct {
	Text   string
	File   string
	Field  string
	Record map[string]any
}

// collectFragments walks every JSON file under the given directories and
// extracts candidate fragments. Only string fields and string elements of
// list fields count; everything else is ignored. Unreadable or malformed
// files are skipped with a warning.
func collectFragments(dirs []string, logger *slog.Logger) []Fragment {
	var out []Fragment
	for _, dir := range dirs {
		paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			logger.Warn("knowledge dir glob failed", "dir", dir, "error", err)
			continue
		}
		sort.Strings(paths)
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("skipping unreadable knowledge file", "file", path, "error", err)
				continue
			}
			var doc any
			if err := json.Unmarshal(data, &doc); err != nil {
				logger.Warn("skipping malformed knowledge file", "file", path, "error", err)
				continue
			}
			out = append(out, fragmentsFromValue(path, doc)...)
		}
	}
	return out
}

func fragmentsFromValue(path string, v any) []Fragment {
	switch val := v.(type) {
	case map[string]any:
		return fragmentsFromRecord(path, val)
	case []any:
		var out []Fragment
		for _, elem := range val {
			out = append(out, fragmentsFromValue(path, elem)...)
		}
		return out
	default:
		return nil
	}
}

func fragmentsFromRecord(path string, record map[string]any) []Fragment {
	var out []Fragment
	for field, v := range record {
		switch val := v.(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				out = append(out, Fragment{Text: val, File: path, Field: field, Record: record})
			}
		case []any:
			for _, elem := range val {
				switch e := elem.(type) {
				case string:
					if strings.TrimSpace(e) != "" {
						out = append(out, Fragment{Text: e, File: path, Field: field, Record: record})
					}
				case map[string]any:
					out = append(out, fragmentsFromRecord(path, e)...)
				}
			}
		case map[string]any:
			out = append(out, fragmentsFromRecord(path, val)...)
		}
	}
	// Map iteration order is random; keep fragment order stable per record.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// fingerprintDirs summarizes the on-disk fragment set so the fitted corpus
// can be reused until a file changes.
func fingerprintDirs(dirs []string) string {
	var entries []string
	for _, dir := range dirs {
		paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			continue
		}
		for _, path := range paths {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			entries = append(entries, fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano()))
		}
	}
	sort.Strings(entries)
	return strings.Join(entries, "\n")
}
