package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps one JSONB row per user in scan_sessions.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*Data, error) {
	return load(ctx, s.db, userID, `SELECT data FROM scan_sessions WHERE user_id = $1`)
}

// Update locks the user's row for the duration of fn.
func (s *PostgresStore) Update(ctx context.Context, userID string, fn func(*Data) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// make sure a row exists so FOR UPDATE has something to lock
	if _, err := tx.Exec(ctx,
		`INSERT INTO scan_sessions (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return fmt.Errorf("ensure session row: %w", err)
	}

	d, err := load(ctx, tx, userID, `SELECT data FROM scan_sessions WHERE user_id = $1 FOR UPDATE`)
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE scan_sessions SET data = $2, updated_at = CURRENT_TIMESTAMP WHERE user_id = $1`,
		userID, raw,
	); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM scan_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func load(ctx context.Context, q querier, userID, query string) (*Data, error) {
	var raw []byte
	err := q.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Data{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	d := &Data{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, d); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
	}
	return d, nil
}
