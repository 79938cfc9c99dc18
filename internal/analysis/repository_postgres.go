package analysis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, scan *ProductScan) error {
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}

	query := `
		INSERT INTO product_scans (id, user_id, barcode, product_name, analysis_result, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING scan_date
	`
	err := r.db.QueryRow(ctx, query,
		scan.ID, scan.UserID, scan.Barcode, scan.ProductName,
		scan.AnalysisResult, scan.ImageURL,
	).Scan(&scan.ScanDate)
	if err != nil {
		return fmt.Errorf("saving product scan: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, userID string, limit int) ([]ProductScan, error) {
	query := `
		SELECT id, user_id, barcode, product_name, scan_date, analysis_result, image_url
		FROM product_scans
		WHERE user_id = $1
		ORDER BY scan_date DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing product scans: %w", err)
	}

	scans, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductScan, error) {
		var s ProductScan
		err := row.Scan(&s.ID, &s.UserID, &s.Barcode, &s.ProductName,
			&s.ScanDate, &s.AnalysisResult, &s.ImageURL)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("reading product scans: %w", err)
	}
	return scans, nil
}
