package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nutriscan/internal/auth"
	"nutriscan/internal/barcode"
	"nutriscan/internal/nutrition"
	"nutriscan/internal/product"
	"nutriscan/internal/session"
)

// --------------------------------------------------
// Fakes
// --------------------------------------------------

type fakeDecoder struct {
	result barcode.Result
	calls  int
}

func (f *fakeDecoder) Scan(data []byte) barcode.Result {
	f.calls++
	return f.result
}

type fakeProducts struct {
	products map[string]*product.Product
	err      error
	asked    []string
}

func (f *fakeProducts) Fetch(ctx context.Context, code string) (*product.Product, error) {
	f.asked = append(f.asked, code)
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[code]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type fakeAssessor struct {
	assessment *nutrition.Assessment
	err        error
	profile    nutrition.Profile
}

func (f *fakeAssessor) Analyze(ctx context.Context, p nutrition.Profile, prod *product.Product) (*nutrition.Assessment, error) {
	f.profile = p
	if f.err != nil {
		return nil, f.err
	}
	a := *f.assessment
	return &a, nil
}

type fakeArchive struct {
	saved int
}

func (f *fakeArchive) SaveScan(ctx context.Context, userID string, data []byte) string {
	f.saved++
	return "https://cdn.example.com/scans/" + userID + ".jpg"
}

type fixture struct {
	svc      *Service
	decoder  *fakeDecoder
	products *fakeProducts
	assessor *fakeAssessor
	sessions *session.MemoryStore
	repo     *InMemoryRepository
	archive  *fakeArchive
	userID   string
}

func ptr[T any](v T) *T { return &v }

func newFixture(t *testing.T, complete bool) *fixture {
	t.Helper()
	users := auth.NewInMemoryUserRepository()
	u := &auth.User{Name: "Asha", Email: "asha@example.com", Password: "x"}
	if complete {
		u.Age = ptr(30)
		u.WeightKg = ptr(70.0)
		u.HeightCm = ptr(175.0)
		u.Goals = "lose weight"
	}
	if err := users.Save(context.Background(), u); err != nil {
		t.Fatalf("save user: %v", err)
	}

	f := &fixture{
		decoder: &fakeDecoder{},
		products: &fakeProducts{products: map[string]*product.Product{
			"3017620422003": {
				Barcode:         "3017620422003",
				ProductName:     "Hazelnut Spread",
				NutriscoreGrade: "E",
				Nutriments:      map[string]any{"sugars_100g": 56.3},
			},
			"12345670": {Barcode: "12345670", ProductName: product.UnknownName, NutriscoreGrade: "N/A"},
		}},
		assessor: &fakeAssessor{assessment: &nutrition.Assessment{
			Advisability: "Not Recommended",
			Pros:         []string{"tasty"},
			Cons:         []string{"sugar", "fat", "palm oil", "calories"},
			Summary:      "Occasional treat only.",
		}},
		sessions: session.NewMemoryStore(),
		repo:     NewInMemoryRepository(),
		archive:  &fakeArchive{},
		userID:   u.ID,
	}
	f.svc = NewService(Deps{
		Decoder:  f.decoder,
		Products: f.products,
		Assessor: f.assessor,
		Users:    auth.NewService(users),
		Sessions: f.sessions,
		Repo:     f.repo,
		Archive:  f.archive,
	})
	return f
}

// --------------------------------------------------
// ScanImage
// --------------------------------------------------

func TestScanImageStoresDecodedBarcode(t *testing.T) {
	f := newFixture(t, true)
	f.decoder.result = barcode.Result{
		Success: true, Message: barcode.MsgDecoded,
		ImageWithBoxes: "aW1n", BarcodeData: "3017620422003", DetectionCount: 1,
	}

	res, err := f.svc.ScanImage(context.Background(), f.userID, []byte("img"))
	if err != nil || !res.Success {
		t.Fatalf("ScanImage = %+v, %v", res, err)
	}

	d, _ := f.sessions.Get(context.Background(), f.userID)
	if d.CurrentBarcode != "3017620422003" || d.LatestScan == nil {
		t.Fatalf("session = %+v", d)
	}
	if d.LatestScan.ScanImage != "aW1n" || d.LatestScan.ImageURL == "" {
		t.Errorf("latest scan = %+v", d.LatestScan)
	}
	if f.archive.saved != 1 {
		t.Errorf("archive saves = %d", f.archive.saved)
	}
}

func TestScanImageWithoutBarcodeLeavesSession(t *testing.T) {
	f := newFixture(t, true)
	f.decoder.result = barcode.Result{Message: barcode.MsgNotDecoded, ImageWithBoxes: "aW1n"}

	if _, err := f.svc.ScanImage(context.Background(), f.userID, []byte("img")); err != nil {
		t.Fatalf("ScanImage: %v", err)
	}
	d, _ := f.sessions.Get(context.Background(), f.userID)
	if d.LatestScan != nil || d.CurrentBarcode != "" {
		t.Fatalf("session should be untouched, got %+v", d)
	}
	if f.archive.saved != 0 {
		t.Error("undecoded scans are not archived")
	}
}

// --------------------------------------------------
// Analyze
// --------------------------------------------------

func TestAnalyzeUsesSessionBarcode(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.sessions.Update(ctx, f.userID, func(d *session.Data) error {
		d.LatestScan = &session.LatestScan{BarcodeData: "3017620422003", ScanImage: "aW1n"}
		d.CurrentBarcode = "3017620422003"
		return nil
	})

	out, err := f.svc.Analyze(ctx, f.userID, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.Barcode != "3017620422003" || out.LimitedData {
		t.Errorf("outcome = %+v", out)
	}
	if f.assessor.profile.BMI != 22.9 || f.assessor.profile.Goal != "lose weight" {
		t.Errorf("profile = %+v", f.assessor.profile)
	}

	d, _ := f.sessions.Get(ctx, f.userID)
	if d.LatestScan != nil || d.CurrentBarcode != "" {
		t.Errorf("scan keys should be removed, got %+v", d)
	}
	if d.LatestResult == nil || d.LatestResult.ScanImage != "aW1n" || d.LatestResult.NutrientMap != product.DefaultNutrientMap {
		t.Errorf("stored result = %+v", d.LatestResult)
	}

	scans, _ := f.repo.ListRecent(ctx, f.userID, RecentLimit)
	if len(scans) != 1 || scans[0].ProductName != "Hazelnut Spread" {
		t.Fatalf("history = %+v", scans)
	}
	if !strings.Contains(scans[0].AnalysisResult, "Not Recommended") {
		t.Errorf("analysis_result = %q", scans[0].AnalysisResult)
	}
}

func TestAnalyzeManualBarcodeWins(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.sessions.Update(ctx, f.userID, func(d *session.Data) error {
		d.LatestScan = &session.LatestScan{BarcodeData: "99999999"}
		return nil
	})

	if _, err := f.svc.Analyze(ctx, f.userID, " 3017620422003 "); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := f.products.asked; len(got) != 1 || got[0] != "3017620422003" {
		t.Fatalf("looked up %v", got)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		complete bool
		manual   string
		setup    func(f *fixture)
		wantErr  error
	}{
		{name: "no barcode", complete: true, wantErr: ErrNoBarcode},
		{name: "unknown product", complete: true, manual: "00000000", wantErr: ErrProductNotFound},
		{
			name: "lookup transport error", complete: true, manual: "3017620422003",
			setup:   func(f *fixture) { f.products.err = errors.New("timeout") },
			wantErr: ErrProductNotFound,
		},
		{name: "incomplete profile", complete: false, manual: "3017620422003", wantErr: ErrIncompleteProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.complete)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.svc.Analyze(context.Background(), f.userID, tt.manual)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalyzeLimitedDataStillRuns(t *testing.T) {
	f := newFixture(t, true)
	out, err := f.svc.Analyze(context.Background(), f.userID, "12345670")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !out.LimitedData {
		t.Error("expected limited data flag")
	}
}

func TestAnalyzeAssessmentFailure(t *testing.T) {
	f := newFixture(t, true)
	f.assessor.err = errors.New("LLM call failed: quota")

	_, err := f.svc.Analyze(context.Background(), f.userID, "3017620422003")
	var ae *AnalysisError
	if !errors.As(err, &ae) || ae.Error() != "LLM call failed: quota" {
		t.Fatalf("err = %v", err)
	}

	d, _ := f.sessions.Get(context.Background(), f.userID)
	if d.LatestResult != nil {
		t.Error("no result should be stored on failure")
	}
}

func TestAnalyzeFillsMissingAssessmentFields(t *testing.T) {
	f := newFixture(t, true)
	f.assessor.assessment = &nutrition.Assessment{}

	out, err := f.svc.Analyze(context.Background(), f.userID, "3017620422003")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	a := out.Result.Analysis
	if a.Advisability != "Unknown" || a.Summary != "No summary available" || a.Pros == nil || a.Cons == nil {
		t.Fatalf("assessment = %+v", a)
	}
}

func TestProfileForRanges(t *testing.T) {
	base := func() *auth.User {
		return &auth.User{Age: ptr(40), WeightKg: ptr(80.0), HeightCm: ptr(180.0)}
	}
	if _, ok := ProfileFor(base()); !ok {
		t.Fatal("valid profile rejected")
	}

	cases := map[string]func(u *auth.User){
		"age zero":       func(u *auth.User) { u.Age = ptr(0) },
		"age too high":   func(u *auth.User) { u.Age = ptr(121) },
		"weight missing": func(u *auth.User) { u.WeightKg = nil },
		"weight too big": func(u *auth.User) { u.WeightKg = ptr(300.5) },
		"height zero":    func(u *auth.User) { u.HeightCm = ptr(0.0) },
	}
	for name, mutate := range cases {
		u := base()
		mutate(u)
		if _, ok := ProfileFor(u); ok {
			t.Errorf("%s: expected rejection", name)
		}
	}

	u := base()
	u.Age, u.WeightKg, u.HeightCm = ptr(120), ptr(300.0), ptr(300.0)
	if _, ok := ProfileFor(u); !ok {
		t.Error("upper bounds are inclusive")
	}
}

func TestRecentScansNewestFirst(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	for _, code := range []string{"3017620422003", "12345670"} {
		if _, err := f.svc.Analyze(ctx, f.userID, code); err != nil {
			t.Fatalf("Analyze %s: %v", code, err)
		}
	}
	scans := f.svc.RecentScans(ctx, f.userID)
	if len(scans) != 2 || scans[0].Barcode != "12345670" {
		t.Fatalf("recent = %+v", scans)
	}
}
