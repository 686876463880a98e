package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists session histories in PostgreSQL. Each session is a
// single row so Save keeps its overwrite-the-full-record semantics.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS conversation_sessions (
		session_id TEXT PRIMARY KEY,
		turns JSONB NOT NULL DEFAULT '[]'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	sessionID = NormalizeSessionID(sessionID)

	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT turns FROM conversation_sessions WHERE session_id=$1`,
		sessionID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return turns, nil
}

func (s *PostgresStore) Save(ctx context.Context, sessionID string, turns []Turn) error {
	sessionID = NormalizeSessionID(sessionID)
	if turns == nil {
		turns = []Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversation_sessions (session_id, turns, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (session_id) DO UPDATE SET turns = EXCLUDED.turns, updated_at = now()`,
		sessionID,
		raw,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) Reset(ctx context.Context, sessionID string) error {
	return s.Save(ctx, sessionID, nil)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
