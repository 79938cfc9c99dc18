// Package resultview enhances a rendered result page: collapsible lists,
// image fallbacks, print handling and keyboard shortcuts.
package resultview

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// VisibleItems is how many entries a collapsed list shows.
	VisibleItems = 3

	PrintingClass = "printing"
	PrintDelay    = 100 * time.Millisecond
	ScanAgainPath = "/scan/"
)

// Printer opens the system print dialog and returns when it is dismissed.
type Printer interface {
	Print(ctx context.Context) error
}

// Navigator moves the browser to another page.
type Navigator interface {
	Navigate(path string)
}

type list struct {
	id       string
	items    []string
	toggles  int
	expanded bool
}

type image struct {
	id             string
	hasPlaceholder bool
	failed         bool
}

type Page struct {
	mu sync.Mutex

	lists  []*list
	images []*image

	printing bool
	printer  Printer
	nav      Navigator
	delay    time.Duration
}

type Option func(*Page)

func WithPrinter(p Printer) Option { return func(pg *Page) { pg.printer = p } }

func WithNavigator(n Navigator) Option { return func(pg *Page) { pg.nav = n } }

// WithPrintDelay overrides the pause before the dialog opens.
func WithPrintDelay(d time.Duration) Option { return func(pg *Page) { pg.delay = d } }

func New(opts ...Option) *Page {
	p := &Page{delay: PrintDelay}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddList registers a rendered list. Registering an id twice replaces the
// entries but keeps its toggle.
func (p *Page) AddList(id string, items []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l := p.findList(id); l != nil {
		l.items = items
		return
	}
	p.lists = append(p.lists, &list{id: id, items: items})
}

func (p *Page) AddImage(id string, hasPlaceholder bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.images = append(p.images, &image{id: id, hasPlaceholder: hasPlaceholder})
}

// Enhance collapses every list longer than VisibleItems and gives it one
// toggle. Calling it again adds nothing.
func (p *Page) Enhance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range p.lists {
		if len(l.items) > VisibleItems && l.toggles == 0 {
			l.toggles = 1
		}
	}
}

// ToggleList flips a collapsed list between expanded and collapsed.
func (p *Page) ToggleList(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := p.findList(id)
	if l == nil || l.toggles == 0 {
		return fmt.Errorf("list %q has no toggle", id)
	}
	l.expanded = !l.expanded
	return nil
}

// ImageFailed hides a broken image and reveals its placeholder if any.
func (p *Page) ImageFailed(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, img := range p.images {
		if img.id == id {
			img.failed = true
		}
	}
}

// Print marks the page as printing, waits for styles to apply, opens the
// dialog and clears the marker however the dialog ends.
func (p *Page) Print(ctx context.Context) error {
	p.mu.Lock()
	if p.printing {
		p.mu.Unlock()
		return nil
	}
	p.printing = true
	printer, delay := p.printer, p.delay
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.printing = false
		p.mu.Unlock()
	}()

	if printer == nil {
		return fmt.Errorf("no printer available")
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	return printer.Print(ctx)
}

type Key struct {
	Name string
	Ctrl bool
}

// HandleKey runs the page shortcuts. It reports whether the key was
// consumed, in which case the browser default is suppressed.
func (p *Page) HandleKey(ctx context.Context, k Key) (bool, error) {
	switch {
	case k.Name == "Escape":
		p.mu.Lock()
		nav := p.nav
		p.mu.Unlock()
		if nav != nil {
			nav.Navigate(ScanAgainPath)
		}
		return true, nil
	case k.Ctrl && (k.Name == "p" || k.Name == "P"):
		return true, p.Print(ctx)
	}
	return false, nil
}

type Item struct {
	Text   string
	Hidden bool
}

type ListView struct {
	ID          string
	Items       []Item
	Toggles     int
	ToggleLabel string
	Expanded    bool
}

type ImageView struct {
	ID              string
	Hidden          bool
	ShowPlaceholder bool
}

type View struct {
	Lists    []ListView
	Images   []ImageView
	Printing bool
}

func (p *Page) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{Printing: p.printing}
	for _, l := range p.lists {
		lv := ListView{ID: l.id, Toggles: l.toggles, Expanded: l.expanded}
		collapsed := l.toggles > 0 && !l.expanded
		for i, text := range l.items {
			lv.Items = append(lv.Items, Item{Text: text, Hidden: collapsed && i >= VisibleItems})
		}
		if l.toggles > 0 {
			lv.ToggleLabel = "Show Less"
			if !l.expanded {
				lv.ToggleLabel = fmt.Sprintf("Show %d More...", len(l.items)-VisibleItems)
			}
		}
		v.Lists = append(v.Lists, lv)
	}
	for _, img := range p.images {
		v.Images = append(v.Images, ImageView{
			ID:              img.id,
			Hidden:          img.failed,
			ShowPlaceholder: img.failed && img.hasPlaceholder,
		})
	}
	return v
}

// List returns the view of one list.
func (v View) List(id string) (ListView, bool) {
	for _, l := range v.Lists {
		if l.ID == id {
			return l, true
		}
	}
	return ListView{}, false
}

func (p *Page) findList(id string) *list {
	for _, l := range p.lists {
		if l.id == id {
			return l
		}
	}
	return nil
}
