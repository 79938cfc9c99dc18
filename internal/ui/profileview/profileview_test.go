package profileview

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"nutriscan/internal/apiclient"
	"nutriscan/internal/prefs"
	"nutriscan/internal/ui/banner"
)

type fakeMetrics struct {
	updates    []apiclient.MetricUpdate
	updateErr  error
	history    *apiclient.MetricsHistory
	historyErr error
	historyN   int
}

func (f *fakeMetrics) UpdateMetric(ctx context.Context, metric string, value float64) (*apiclient.MetricUpdate, error) {
	f.updates = append(f.updates, apiclient.MetricUpdate{Metric: metric, Value: value})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &apiclient.MetricUpdate{Success: true, Metric: metric, Value: value}, nil
}

func (f *fakeMetrics) MetricsHistory(ctx context.Context) (*apiclient.MetricsHistory, error) {
	f.historyN++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func newPage(client *fakeMetrics, store prefs.Store) *Page {
	if store == nil {
		store = prefs.NewMemory()
	}
	if client.history == nil {
		client.history = &apiclient.MetricsHistory{}
	}
	return New(client, store, "70", "175", "30")
}

func TestTabsExclusive(t *testing.T) {
	p := newPage(&fakeMetrics{}, nil)

	for _, name := range []string{"health", "history", "overview", "health"} {
		if err := p.SelectTab(name); err != nil {
			t.Fatalf("SelectTab(%q): %v", name, err)
		}
		visible := 0
		for _, tab := range p.View().Tabs {
			if tab.Active != tab.Visible || tab.Visible == tab.AriaHidden {
				t.Fatalf("tab %+v out of lockstep", tab)
			}
			if tab.Visible {
				visible++
				if tab.Name != name {
					t.Errorf("visible tab %q, want %q", tab.Name, name)
				}
			}
		}
		if visible != 1 {
			t.Fatalf("%d sections visible", visible)
		}
	}
	if err := p.SelectTab("nope"); err == nil {
		t.Fatal("expected error for unknown tab")
	}
}

func TestInitialBMI(t *testing.T) {
	v := newPage(&fakeMetrics{}, nil).View()
	if v.BMIText != "22.86" || v.Category != "Normal weight" {
		t.Fatalf("BMI = %q %q", v.BMIText, v.Category)
	}
}

func TestSaveUpdatesDisplayAndBMI(t *testing.T) {
	client := &fakeMetrics{}
	p := newPage(client, nil)

	if err := p.OpenEdit(Weight); err != nil {
		t.Fatalf("OpenEdit: %v", err)
	}
	if got := p.View().Modal.Value; got != "70" {
		t.Fatalf("modal prefill = %q, want 70", got)
	}
	p.SetDraft("100")
	if err := p.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	v := p.View()
	if v.Weight != "100" || v.BMIText != "32.65" || v.Category != "Obese" {
		t.Fatalf("after save: weight=%q bmi=%q cat=%q", v.Weight, v.BMIText, v.Category)
	}
	if v.Modal.Open {
		t.Error("modal should close on success")
	}
	if len(client.updates) != 1 || client.updates[0].Metric != "weight" || client.updates[0].Value != 100 {
		t.Fatalf("posted %+v", client.updates)
	}
	if _, ok := p.banners.Latest(banner.Success); !ok {
		t.Error("expected success notification")
	}
}

func TestSaveFailureKeepsModal(t *testing.T) {
	client := &fakeMetrics{updateErr: &apiclient.StatusError{Code: 400, Message: "Height must be between 0 and 300"}}
	p := newPage(client, nil)

	p.OpenEdit(Height)
	p.SetDraft("400")
	if err := p.Save(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	v := p.View()
	if !v.Modal.Open || v.Modal.Value != "400" || v.Modal.Metric != Height {
		t.Fatalf("modal lost the draft: %+v", v.Modal)
	}
	if v.Height != "175" {
		t.Errorf("display changed on failure: %q", v.Height)
	}
	b, ok := p.banners.Latest(banner.Error)
	if !ok || b.Text != "Height must be between 0 and 300" {
		t.Fatalf("error banner = %+v", b)
	}
}

// slowMetrics holds UpdateMetric until release is closed.
type slowMetrics struct {
	fakeMetrics
	started chan struct{}
	release chan struct{}
}

func (s *slowMetrics) UpdateMetric(ctx context.Context, metric string, value float64) (*apiclient.MetricUpdate, error) {
	close(s.started)
	<-s.release
	return s.fakeMetrics.UpdateMetric(ctx, metric, value)
}

func TestLateSaveKeepsNewerModal(t *testing.T) {
	client := &slowMetrics{
		fakeMetrics: fakeMetrics{history: &apiclient.MetricsHistory{}},
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	p := New(client, prefs.NewMemory(), "70", "175", "30")

	p.OpenEdit(Weight)
	p.SetDraft("100")
	done := make(chan error, 1)
	go func() { done <- p.Save(context.Background()) }()
	<-client.started

	p.OpenEdit(Height)
	p.SetDraft("180")
	close(client.release)
	if err := <-done; err != nil {
		t.Fatalf("Save: %v", err)
	}

	v := p.View()
	if v.Weight != "100" {
		t.Errorf("weight = %q, want 100", v.Weight)
	}
	if !v.Modal.Open || v.Modal.Metric != Height || v.Modal.Value != "180" {
		t.Fatalf("height draft lost: %+v", v.Modal)
	}
}

func TestOpeningNewEditDiscardsDraft(t *testing.T) {
	p := newPage(&fakeMetrics{}, nil)
	p.OpenEdit(Weight)
	p.SetDraft("85")
	p.OpenEdit(Age)

	m := p.View().Modal
	if m.Metric != Age || m.Value != "30" {
		t.Fatalf("modal = %+v", m)
	}
}

func TestInvalidDraftNotSent(t *testing.T) {
	client := &fakeMetrics{}
	p := newPage(client, nil)
	p.OpenEdit(Weight)
	p.SetDraft("heavy")

	if err := p.Save(context.Background()); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if len(client.updates) != 0 {
		t.Fatal("invalid draft was posted")
	}
}

func TestUnitToggleOnlyAffectsDisplay(t *testing.T) {
	store := prefs.NewMemory()
	client := &fakeMetrics{}
	p := newPage(client, store)

	if err := p.SetUnit("lb"); err != nil {
		t.Fatalf("SetUnit: %v", err)
	}
	if v, _ := store.Get(prefs.WeightUnitKey); v != "lb" {
		t.Fatalf("preference not persisted: %q", v)
	}

	v := p.View()
	if v.Weight != "154.32" {
		t.Errorf("lb display = %q", v.Weight)
	}
	if v.BMIText != "22.86" {
		t.Errorf("BMI changed with unit: %q", v.BMIText)
	}

	p.OpenEdit(Weight)
	p.SetDraft("154.32")
	if err := p.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := client.updates[0].Value; got != 70 {
		t.Fatalf("posted %v, want canonical kg 70", got)
	}
}

func TestInitReadsPreferenceAndHistory(t *testing.T) {
	store := prefs.NewMemory()
	store.Set(prefs.WeightUnitKey, "lb")
	client := &fakeMetrics{history: &apiclient.MetricsHistory{
		Dates:   []string{"2026-01-01", "2026-02-01"},
		Weights: []float64{80, 78},
	}}
	p := newPage(client, store)
	p.Init(context.Background())

	v := p.View()
	if v.Unit != "lb" {
		t.Errorf("unit = %q", v.Unit)
	}
	if len(v.Chart) != 1 || len(v.Chart[0].Labels) != 2 || len(v.Chart[0].Values) != 2 {
		t.Fatalf("chart = %+v", v.Chart)
	}
	if client.historyN != 1 {
		t.Errorf("history fetched %d times", client.historyN)
	}
}

func TestHistoryFailureDoesNotBlockInit(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	client := &fakeMetrics{historyErr: errors.New("boom")}
	p := New(client, prefs.NewMemory(), "70", "175", "30", WithLogger(logger))

	p.Init(context.Background())

	if !strings.Contains(buf.String(), "failed to load metrics history") {
		t.Errorf("failure not logged: %q", buf.String())
	}
	v := p.View()
	if len(v.Chart) != 0 || v.BMIText != "22.86" {
		t.Fatalf("page not usable after history failure: %+v", v)
	}
	if err := p.OpenEdit(Weight); err != nil {
		t.Fatalf("editing blocked: %v", err)
	}
}
