package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HistoryRepository interface {
	Record(ctx context.Context, e HistoryEntry) error
	// List returns entries oldest first.
	List(ctx context.Context, userID, metric string) ([]HistoryEntry, error)
}

type InMemoryHistoryRepository struct {
	mu      sync.RWMutex
	entries []HistoryEntry
}

func NewInMemoryHistoryRepository() *InMemoryHistoryRepository {
	return &InMemoryHistoryRepository{}
}

func (r *InMemoryHistoryRepository) Record(ctx context.Context, e HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *InMemoryHistoryRepository) List(ctx context.Context, userID, metric string) ([]HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []HistoryEntry
	for _, e := range r.entries {
		if e.UserID == userID && e.Metric == metric {
			out = append(out, e)
		}
	}
	return out, nil
}

type PostgresHistoryRepository struct {
	db *pgxpool.Pool
}

func NewPostgresHistoryRepository(db *pgxpool.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

func (r *PostgresHistoryRepository) Record(ctx context.Context, e HistoryEntry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO metric_history (user_id, metric, value, recorded_at) VALUES ($1, $2, $3, $4)`,
		e.UserID, e.Metric, e.Value, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.Metric, err)
	}
	return nil
}

func (r *PostgresHistoryRepository) List(ctx context.Context, userID, metric string) ([]HistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, metric, value::float8, recorded_at
		FROM metric_history
		WHERE user_id = $1 AND metric = $2
		ORDER BY recorded_at ASC, id ASC
	`, userID, metric)
	if err != nil {
		return nil, fmt.Errorf("listing %s history: %w", metric, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (HistoryEntry, error) {
		var e HistoryEntry
		err := row.Scan(&e.UserID, &e.Metric, &e.Value, &e.RecordedAt)
		return e, err
	})
}
