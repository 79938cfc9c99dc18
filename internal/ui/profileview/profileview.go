// Package profileview is the profile page controller: tabs, the metric edit
// modal, the BMI readout and the weight history chart.
package profileview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"nutriscan/internal/apiclient"
	"nutriscan/internal/bmi"
	"nutriscan/internal/prefs"
	"nutriscan/internal/ui/banner"
	"nutriscan/internal/units"
)

type Metric string

const (
	Weight Metric = "weight"
	Height Metric = "height"
	Age    Metric = "age"
)

var Tabs = []string{"overview", "health", "history"}

var (
	ErrUnknownMetric = errors.New("unknown metric")
	ErrModalClosed   = errors.New("no metric is being edited")
	ErrInvalidValue  = errors.New("please enter a valid number")
)

// MetricsClient is the subset of the API the page calls.
type MetricsClient interface {
	UpdateMetric(ctx context.Context, metric string, value float64) (*apiclient.MetricUpdate, error)
	MetricsHistory(ctx context.Context) (*apiclient.MetricsHistory, error)
}

type modal struct {
	open   bool
	metric Metric
	value  string
}

type Page struct {
	mu sync.Mutex

	client  MetricsClient
	store   prefs.Store
	banners *banner.Board
	logger  *slog.Logger

	activeTab int
	// displayed metric text in canonical units (kg, cm, years)
	display map[Metric]string
	unit    string
	modal   modal

	dates   []string
	weights []float64

	gen uint64
	// modalGen increments whenever the modal is opened or closed.
	modalGen uint64
}

type Option func(*Page)

func WithLogger(l *slog.Logger) Option { return func(p *Page) { p.logger = l } }

func WithClock(now func() time.Time) Option {
	return func(p *Page) { p.banners = banner.New(now) }
}

// New seeds the page with the server-rendered metric values.
func New(client MetricsClient, store prefs.Store, weightKg, heightCm, age string, opts ...Option) *Page {
	p := &Page{
		client:  client,
		store:   store,
		banners: banner.New(nil),
		logger:  slog.Default(),
		unit:    "kg",
		display: map[Metric]string{
			Weight: strings.TrimSpace(weightKg),
			Height: strings.TrimSpace(heightCm),
			Age:    strings.TrimSpace(age),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init reads the unit preference and loads the weight history. A history
// failure is logged and does not stop initialisation.
func (p *Page) Init(ctx context.Context) {
	if p.store != nil {
		if u, ok := p.store.Get(prefs.WeightUnitKey); ok && (u == "kg" || u == "lb") {
			p.mu.Lock()
			p.unit = u
			p.mu.Unlock()
		}
	}

	hist, err := p.client.MetricsHistory(ctx)
	if err != nil {
		p.logger.Warn("failed to load metrics history", "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dates = append([]string(nil), hist.Dates...)
	p.weights = append([]float64(nil), hist.Weights...)
}

// SelectTab activates exactly one tab.
func (p *Page) SelectTab(name string) error {
	for i, t := range Tabs {
		if t == name {
			p.mu.Lock()
			p.activeTab = i
			p.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("unknown tab %q", name)
}

// SetUnit changes how weight is displayed and persists the choice.
func (p *Page) SetUnit(u string) error {
	if u != "kg" && u != "lb" {
		return fmt.Errorf("unknown unit %q", u)
	}
	p.mu.Lock()
	p.unit = u
	p.mu.Unlock()

	if p.store != nil {
		return p.store.Set(prefs.WeightUnitKey, u)
	}
	return nil
}

// OpenEdit opens the modal for one metric, discarding any previous draft.
func (p *Page) OpenEdit(m Metric) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.display[m]; !ok {
		return ErrUnknownMetric
	}
	p.modal = modal{open: true, metric: m, value: p.displayTextLocked(m)}
	p.modalGen++
	return nil
}

func (p *Page) SetDraft(value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.modal.open {
		p.modal.value = value
	}
}

func (p *Page) CloseEdit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modal = modal{}
	p.modalGen++
}

// Save posts the draft. On failure the modal stays open with the entered
// value.
func (p *Page) Save(ctx context.Context) error {
	p.mu.Lock()
	if !p.modal.open {
		p.mu.Unlock()
		return ErrModalClosed
	}
	metric, draft, unit := p.modal.metric, p.modal.value, p.unit
	value, err := strconv.ParseFloat(strings.TrimSpace(draft), 64)
	if err != nil || value <= 0 {
		p.mu.Unlock()
		p.banners.Show(banner.Error, ErrInvalidValue.Error())
		return ErrInvalidValue
	}
	if metric == Weight && unit == "lb" {
		value = units.Round2(units.LbToKg(value))
	}
	p.gen++
	gen, modalGen := p.gen, p.modalGen
	p.mu.Unlock()

	resp, err := p.client.UpdateMetric(ctx, string(metric), value)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return errors.New("response discarded: a newer save superseded it")
	}
	if err != nil {
		p.banners.Show(banner.Error, saveErrorText(err))
		return fmt.Errorf("update %s: %w", metric, err)
	}

	p.display[metric] = formatCanonical(metric, resp.Value)
	// a modal opened after this save started belongs to the user
	if modalGen == p.modalGen {
		p.modal = modal{}
	}
	p.banners.Show(banner.Success, fmt.Sprintf("%s updated successfully", capitalize(string(metric))))
	return nil
}

func (p *Page) displayTextLocked(m Metric) string {
	text := p.display[m]
	if m != Weight || p.unit != "lb" {
		return text
	}
	kg, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	return strconv.FormatFloat(units.Round2(units.KgToLb(kg)), 'f', -1, 64)
}

type TabView struct {
	Name       string
	Active     bool
	Visible    bool
	AriaHidden bool
}

type ModalView struct {
	Open   bool
	Metric Metric
	Value  string
}

type Series struct {
	Name   string
	Labels []string
	Values []float64
}

type View struct {
	Tabs   []TabView
	Unit   string
	Weight string
	Height string
	Age    string

	BMIText  string
	Category string
	Color    string

	Modal   ModalView
	Chart   []Series
	Banners []banner.Banner
}

func (p *Page) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Unit:    p.unit,
		Weight:  p.displayTextLocked(Weight),
		Height:  p.display[Height],
		Age:     p.display[Age],
		BMIText: "--",
		Modal:   ModalView{Open: p.modal.open, Metric: p.modal.metric, Value: p.modal.value},
		Banners: p.banners.Active(),
	}
	for i, name := range Tabs {
		active := i == p.activeTab
		v.Tabs = append(v.Tabs, TabView{Name: name, Active: active, Visible: active, AriaHidden: !active})
	}

	w, errW := strconv.ParseFloat(p.display[Weight], 64)
	h, errH := strconv.ParseFloat(p.display[Height], 64)
	if errW == nil && errH == nil {
		if value, err := bmi.Calculate(w, h); err == nil {
			band := bmi.Classify(value)
			v.BMIText = fmt.Sprintf("%.2f", bmi.Round(value, 2))
			v.Category = band.Label
			v.Color = band.Color
		}
	}

	if len(p.dates) > 0 && len(p.dates) == len(p.weights) {
		s := Series{Name: "Weight (" + p.unit + ")", Labels: p.dates}
		for _, kg := range p.weights {
			if p.unit == "lb" {
				kg = units.Round2(units.KgToLb(kg))
			}
			s.Values = append(s.Values, kg)
		}
		v.Chart = []Series{s}
	}
	return v
}

func formatCanonical(m Metric, value float64) string {
	if m == Age {
		return strconv.Itoa(int(value))
	}
	return strconv.FormatFloat(units.Round2(value), 'f', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func saveErrorText(err error) string {
	var se *apiclient.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return "Failed to update metric. Please try again."
}
