package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists full per-session turn histories.
type Store interface {
	// Load returns the session's full history. A session that was never
	// saved is an empty history, not an error.
	Load(ctx context.Context, sessionID string) ([]Turn, error)
	// Save overwrites the session's full record.
	Save(ctx context.Context, sessionID string, turns []Turn) error
	// Reset clears the session's turn sequence.
	Reset(ctx context.Context, sessionID string) error
	Close() error
}

// FileStore keeps one JSON document per session under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Load(_ context.Context, sessionID string) ([]Turn, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return turns, nil
}

func (s *FileStore) Save(_ context.Context, sessionID string, turns []Turn) error {
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	if err := os.WriteFile(s.path(sessionID), data, 0o644); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

func (s *FileStore) Reset(ctx context.Context, sessionID string) error {
	return s.Save(ctx, sessionID, nil)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sanitizeID(sessionID)+".json")
}

// sanitizeID keeps session files inside the store directory even when a
// caller-supplied key contains path separators.
func sanitizeID(id string) string {
	id = NormalizeSessionID(id)
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", string(filepath.Separator), "_")
	return replacer.Replace(id)
}
