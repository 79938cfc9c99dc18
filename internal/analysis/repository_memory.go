package analysis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu    sync.RWMutex
	scans map[string][]ProductScan
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{scans: make(map[string][]ProductScan)}
}

func (r *InMemoryRepository) Create(ctx context.Context, scan *ProductScan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.ScanDate.IsZero() {
		scan.ScanDate = time.Now()
	}
	r.scans[scan.UserID] = append(r.scans[scan.UserID], *scan)
	return nil
}

func (r *InMemoryRepository) ListRecent(ctx context.Context, userID string, limit int) ([]ProductScan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.scans[userID]
	out := make([]ProductScan, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScanDate.After(out[j].ScanDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
