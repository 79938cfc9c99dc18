package analysis

import "context"

// RecentLimit is how many past scans the result page lists.
const RecentLimit = 5

type Repository interface {
	Create(ctx context.Context, scan *ProductScan) error
	ListRecent(ctx context.Context, userID string, limit int) ([]ProductScan, error)
}
