package conversation

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when configured, otherwise a
// file-backed store under sessionDir.
func NewStore(ctx context.Context, databaseURL, sessionDir string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileStore(sessionDir)
	}
	return NewPostgresStore(ctx, databaseURL)
}
