package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	slog.Info("connected to postgres")

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// initSchema creates or updates the database schema
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	slog.Info("schema initialized")
	return nil
}

var schema = []string{
	// -------------------------------
	// USERS + HEALTH PROFILE
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name VARCHAR(150) NOT NULL DEFAULT '',
		email VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		age INTEGER NULL,
		height_cm NUMERIC(5,2) NULL,
		weight_kg NUMERIC(5,2) NULL,
		dietary_preferences TEXT NOT NULL DEFAULT '',
		health_issues TEXT NOT NULL DEFAULT '',
		goals TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	// -------------------------------
	// SCAN SESSIONS (one row per user)
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS scan_sessions (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	// -------------------------------
	// PRODUCT SCANS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS product_scans (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		barcode VARCHAR(50) NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		scan_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		analysis_result TEXT NOT NULL DEFAULT '',
		image_url VARCHAR(500) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_scans_user ON product_scans(user_id, scan_date DESC)`,

	// -------------------------------
	// METRIC HISTORY
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS metric_history (
		id SERIAL PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		metric VARCHAR(20) NOT NULL,
		value NUMERIC(6,2) NOT NULL,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metric_history_user ON metric_history(user_id, metric, recorded_at)`,
}
