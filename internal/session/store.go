// Package session keeps the per-user scan state that links the barcode
// scan, the analysis form and the result page.
package session

import "context"

type Store interface {
	Get(ctx context.Context, userID string) (*Data, error)
	// Update applies fn to the user's session atomically and saves the
	// result unless fn returns an error.
	Update(ctx context.Context, userID string, fn func(*Data) error) error
	Clear(ctx context.Context, userID string) error
}

// PopResult removes and returns the stored analysis result, or nil.
func PopResult(ctx context.Context, s Store, userID string) (*Result, error) {
	var res *Result
	err := s.Update(ctx, userID, func(d *Data) error {
		res = d.LatestResult
		d.LatestResult = nil
		return nil
	})
	return res, err
}
