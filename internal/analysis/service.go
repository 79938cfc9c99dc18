// Package analysis runs the scan flow: barcode decode, product lookup,
// profile check and assessment, and keeps each user's scan history.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"nutriscan/internal/auth"
	"nutriscan/internal/barcode"
	"nutriscan/internal/bmi"
	"nutriscan/internal/nutrition"
	"nutriscan/internal/product"
	"nutriscan/internal/session"
	"nutriscan/internal/storage"
)

var (
	ErrNoBarcode         = errors.New("no barcode provided")
	ErrProductNotFound   = errors.New("product not found")
	ErrIncompleteProfile = errors.New("profile incomplete")
)

// AnalysisError carries a failure from the assessment step.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string { return e.Err.Error() }

func (e *AnalysisError) Unwrap() error { return e.Err }

type Decoder interface {
	Scan(data []byte) barcode.Result
}

type ProductFetcher interface {
	Fetch(ctx context.Context, barcode string) (*product.Product, error)
}

type Assessor interface {
	Analyze(ctx context.Context, p nutrition.Profile, prod *product.Product) (*nutrition.Assessment, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, id string) (*auth.User, error)
}

type Service struct {
	decoder  Decoder
	products ProductFetcher
	assessor Assessor
	users    UserLookup
	sessions session.Store
	repo     Repository
	archive  storage.Archive
}

type Deps struct {
	Decoder  Decoder
	Products ProductFetcher
	Assessor Assessor
	Users    UserLookup
	Sessions session.Store
	Repo     Repository
	Archive  storage.Archive
}

func NewService(d Deps) *Service {
	archive := d.Archive
	if archive == nil {
		archive = storage.Disabled{}
	}
	return &Service{
		decoder:  d.Decoder,
		products: d.Products,
		assessor: d.Assessor,
		users:    d.Users,
		sessions: d.Sessions,
		repo:     d.Repo,
		archive:  archive,
	}
}

// ScanImage decodes an uploaded image. A decoded barcode becomes the
// session's latest scan and current barcode.
func (s *Service) ScanImage(ctx context.Context, userID string, data []byte) (barcode.Result, error) {
	res := s.decoder.Scan(data)
	slog.Info("barcode scan", "user_id", userID, "success", res.Success, "message", res.Message)

	if res.BarcodeData == "" {
		return res, nil
	}

	url := s.archive.SaveScan(ctx, userID, data)
	err := s.sessions.Update(ctx, userID, func(d *session.Data) error {
		d.LatestScan = &session.LatestScan{
			BarcodeData:    res.BarcodeData,
			ScanImage:      res.ImageWithBoxes,
			ImageURL:       url,
			DetectionCount: res.DetectionCount,
		}
		d.CurrentBarcode = res.BarcodeData
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("storing scan: %w", err)
	}
	return res, nil
}

// Outcome reports how far Analyze got. It is returned on error too so the
// caller can name the barcode and surface the limited-data warning.
type Outcome struct {
	Barcode     string
	LimitedData bool
	Result      *session.Result
}

// Analyze resolves the barcode from manual input or the last scan, looks the
// product up, checks the profile and stores the assessment for the result
// page. The temporary scan keys are removed on success.
func (s *Service) Analyze(ctx context.Context, userID, manualBarcode string) (*Outcome, error) {
	out := &Outcome{}

	data, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("loading session: %w", err)
	}
	latest := data.LatestScan
	if latest == nil {
		latest = &session.LatestScan{}
	}

	out.Barcode = strings.TrimSpace(manualBarcode)
	if out.Barcode == "" {
		out.Barcode = strings.TrimSpace(latest.BarcodeData)
	}
	if out.Barcode == "" {
		return out, ErrNoBarcode
	}
	slog.Info("starting product analysis", "user_id", userID, "barcode", out.Barcode)

	prod, err := s.products.Fetch(ctx, out.Barcode)
	if err != nil {
		if !errors.Is(err, product.ErrNotFound) {
			slog.Warn("product lookup failed", "barcode", out.Barcode, "error", err)
		}
		return out, fmt.Errorf("%w: %s", ErrProductNotFound, out.Barcode)
	}
	if !prod.HasUsableData() {
		out.LimitedData = true
		slog.Warn("incomplete product data", "barcode", out.Barcode)
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("loading user: %w", err)
	}
	profile, ok := ProfileFor(user)
	if !ok {
		return out, ErrIncompleteProfile
	}

	assessment, err := s.assessor.Analyze(ctx, profile, prod)
	if err != nil {
		slog.Error("analysis failed", "barcode", out.Barcode, "error", err)
		return out, &AnalysisError{Err: err}
	}
	fillDefaults(assessment)

	out.Result = &session.Result{
		Product:     prod,
		Analysis:    *assessment,
		NutrientMap: product.DefaultNutrientMap,
		ScanImage:   latest.ScanImage,
		ImageURL:    latest.ImageURL,
		Barcode:     out.Barcode,
	}

	err = s.sessions.Update(ctx, userID, func(d *session.Data) error {
		d.LatestResult = out.Result
		d.LatestScan = nil
		d.CurrentBarcode = ""
		return nil
	})
	if err != nil {
		return out, fmt.Errorf("storing result: %w", err)
	}

	s.record(ctx, userID, out.Result)
	slog.Info("product analysis completed", "user_id", userID, "barcode", out.Barcode)
	return out, nil
}

// record persists the history entry. A failure only costs history.
func (s *Service) record(ctx context.Context, userID string, r *session.Result) {
	if s.repo == nil {
		return
	}
	raw, err := json.Marshal(r.Analysis)
	if err != nil {
		slog.Warn("encoding analysis for history", "error", err)
		return
	}
	scan := &ProductScan{
		UserID:         userID,
		Barcode:        r.Barcode,
		ProductName:    r.Product.ProductName,
		AnalysisResult: string(raw),
		ImageURL:       r.ImageURL,
	}
	if err := s.repo.Create(ctx, scan); err != nil {
		slog.Warn("saving product scan failed", "user_id", userID, "error", err)
	}
}

func fillDefaults(a *nutrition.Assessment) {
	if a.Advisability == "" {
		a.Advisability = nutrition.UnknownAdvisability
	}
	if a.Pros == nil {
		a.Pros = []string{}
	}
	if a.Cons == nil {
		a.Cons = []string{}
	}
	if a.Summary == "" {
		a.Summary = nutrition.NoSummary
	}
}

// ProfileFor builds the assessment profile, rejecting missing or
// implausible age, weight or height.
func ProfileFor(u *auth.User) (nutrition.Profile, bool) {
	if u == nil || u.Age == nil || u.WeightKg == nil || u.HeightCm == nil {
		return nutrition.Profile{}, false
	}
	age, w, h := *u.Age, *u.WeightKg, *u.HeightCm
	if age <= 0 || age > 120 || w <= 0 || w > 300 || h <= 0 || h > 300 {
		slog.Warn("invalid profile for analysis", "user_id", u.ID, "age", age, "weight_kg", w, "height_cm", h)
		return nutrition.Profile{}, false
	}

	p := nutrition.Profile{
		Age:                age,
		WeightKg:           w,
		HeightCm:           h,
		HealthConditions:   u.HealthIssues,
		DietaryPreferences: u.DietaryPreferences,
		Goal:               u.Goals,
	}
	if v, err := bmi.Calculate(w, h); err == nil {
		p.BMI = bmi.Round(v, 1)
	}
	return p, true
}

func (s *Service) CurrentBarcode(ctx context.Context, userID string) string {
	d, err := s.sessions.Get(ctx, userID)
	if err != nil {
		slog.Warn("loading session", "user_id", userID, "error", err)
		return ""
	}
	return d.CurrentBarcode
}

func (s *Service) ClearSession(ctx context.Context, userID string) error {
	return s.sessions.Clear(ctx, userID)
}

func (s *Service) PopResult(ctx context.Context, userID string) (*session.Result, error) {
	return session.PopResult(ctx, s.sessions, userID)
}

func (s *Service) RecentScans(ctx context.Context, userID string) []ProductScan {
	if s.repo == nil {
		return nil
	}
	scans, err := s.repo.ListRecent(ctx, userID, RecentLimit)
	if err != nil {
		slog.Warn("listing recent scans", "user_id", userID, "error", err)
		return nil
	}
	return scans
}
