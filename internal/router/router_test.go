package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nutriscan/internal/analysis"
	"nutriscan/internal/apiclient"
	"nutriscan/internal/auth"
	"nutriscan/internal/barcode"
	"nutriscan/internal/nutrition"
	"nutriscan/internal/product"
	"nutriscan/internal/profile"
	"nutriscan/internal/session"
	"nutriscan/internal/web"

	"github.com/gin-gonic/gin"
)

var testSecret = []byte("router-test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

type stubDecoder struct{}

func (stubDecoder) Scan(data []byte) barcode.Result {
	return barcode.Result{
		Success: true, Message: barcode.MsgDecoded,
		ImageWithBoxes: "aW1n", BarcodeData: "3017620422003", DetectionCount: 1,
	}
}

type stubProducts struct{}

func (stubProducts) Fetch(ctx context.Context, code string) (*product.Product, error) {
	if code != "3017620422003" {
		return nil, product.ErrNotFound
	}
	return &product.Product{ProductName: "Hazelnut Spread", NutriscoreGrade: "E", Nutriments: map[string]any{"fat_100g": 30.9}}, nil
}

type stubAssessor struct{}

func (stubAssessor) Analyze(ctx context.Context, p nutrition.Profile, prod *product.Product) (*nutrition.Assessment, error) {
	return &nutrition.Assessment{Advisability: "Limit", Pros: []string{"energy"}, Cons: []string{"sugar"}, Summary: "Treat."}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Service) {
	t.Helper()
	pages, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	users := auth.NewInMemoryUserRepository()
	authService := auth.NewService(users)

	svc := analysis.NewService(analysis.Deps{
		Decoder:  stubDecoder{},
		Products: stubProducts{},
		Assessor: stubAssessor{},
		Users:    authService,
		Sessions: session.NewMemoryStore(),
		Repo:     analysis.NewInMemoryRepository(),
	})

	return NewRouter(Deps{
		Secret:   testSecret,
		Auth:     auth.NewHandler(authService, testSecret, pages, false),
		Profile:  profile.NewHandler(profile.NewService(users, profile.NewInMemoryHistoryRepository()), authService, pages),
		Analysis: analysis.NewHandler(svc, pages),
	}), authService
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("expected status 200, got %d %s", w.Code, w.Body)
	}
}

func TestRootRedirectsToScan(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/scan/" {
		t.Fatalf("got %d -> %q", w.Code, w.Header().Get("Location"))
	}
}

func TestScanRequiresLogin(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scan/", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/accounts/login/?next=%2Fscan%2F" {
		t.Fatalf("got %d -> %q", w.Code, w.Header().Get("Location"))
	}
}

func TestMetricsEndpointsAnswer401(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/profile/metrics/history/", nil))
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestMutationsRequireCSRF(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scan/clear-session/", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}

// The API client drives the same contract the browser controllers use.
func TestEndpointContractWithClient(t *testing.T) {
	r, authService := newTestRouter(t)
	ctx := context.Background()
	age, w, h := 30, 70.0, 175.0
	_, err := authService.Register(ctx, auth.RegisterInput{
		Name: "Client", Email: "client@example.com",
		Password: "longenough", PasswordConfirm: "longenough",
		Age: &age, WeightKg: &w, HeightCm: &h,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	srv := httptest.NewServer(r)
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := client.Login(ctx, "client@example.com", "wrong-password"); !errors.Is(err, apiclient.ErrLoginFailed) {
		t.Fatalf("bad login err = %v", err)
	}
	if err := client.Login(ctx, "client@example.com", "longenough"); err != nil {
		t.Fatalf("login: %v", err)
	}

	scan, err := client.Scan(ctx, apiclient.ScanRequest{FileName: "a.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n0000")})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !scan.Success || scan.BarcodeData == nil || *scan.BarcodeData != "3017620422003" {
		t.Fatalf("scan = %+v", scan)
	}

	upd, err := client.UpdateMetric(ctx, "weight", 72.5)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Value != 72.5 || upd.BMI == nil || *upd.BMI != 23.67 {
		t.Fatalf("update = %+v", upd)
	}

	hist, err := client.MetricsHistory(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist.Weights) != 1 || hist.Weights[0] != 72.5 {
		t.Fatalf("history = %+v", hist)
	}

	cleared, err := client.ClearSession(ctx)
	if err != nil || !cleared.Success {
		t.Fatalf("clear = %+v, %v", cleared, err)
	}
}
