// Package banner holds time-expiring notifications shown by the page
// controllers. Banners are dismissed by the clock, never by a click.
package banner

import (
	"sync"
	"time"
)

type Kind string

const (
	Success Kind = "success"
	Warning Kind = "warning"
	Error   Kind = "error"
	Info    Kind = "info"
)

const (
	ErrorTTL   = 5 * time.Second
	SuccessTTL = 3 * time.Second
)

// TTL returns the default display time for a kind.
func TTL(k Kind) time.Duration {
	if k == Error || k == Warning {
		return ErrorTTL
	}
	return SuccessTTL
}

type Banner struct {
	Kind    Kind
	Text    string
	Expires time.Time
}

// Board is a small set of live banners. The zero value is not usable; call
// New.
type Board struct {
	mu    sync.Mutex
	now   func() time.Time
	items []Banner
}

// New creates a board. A nil clock uses time.Now.
func New(now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{now: now}
}

// Show adds a banner that expires after the default TTL for its kind.
func (b *Board) Show(kind Kind, text string) {
	b.ShowFor(kind, text, TTL(kind))
}

func (b *Board) ShowFor(kind Kind, text string, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, Banner{Kind: kind, Text: text, Expires: b.now().Add(ttl)})
}

// Active drops expired banners and returns the rest, oldest first.
func (b *Board) Active() []Banner {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	live := b.items[:0]
	for _, it := range b.items {
		if now.Before(it.Expires) {
			live = append(live, it)
		}
	}
	b.items = live

	out := make([]Banner, len(live))
	copy(out, live)
	return out
}

// Latest returns the newest live banner of the given kind.
func (b *Board) Latest(kind Kind) (Banner, bool) {
	active := b.Active()
	for i := len(active) - 1; i >= 0; i-- {
		if active[i].Kind == kind {
			return active[i], true
		}
	}
	return Banner{}, false
}

func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}
