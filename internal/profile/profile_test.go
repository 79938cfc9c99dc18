package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nutriscan/internal/auth"
	"nutriscan/internal/web"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ptr[T any](v T) *T { return &v }

func newUser(t *testing.T, repo *auth.InMemoryUserRepository) *auth.User {
	t.Helper()
	u := &auth.User{
		Name: "Ravi", Email: "ravi@example.com", Password: "x",
		Age: ptr(35), WeightKg: ptr(70.0), HeightCm: ptr(175.0),
		CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Save(context.Background(), u); err != nil {
		t.Fatalf("save: %v", err)
	}
	return u
}

func TestUpdateMetricValidation(t *testing.T) {
	users := auth.NewInMemoryUserRepository()
	u := newUser(t, users)
	svc := NewService(users, NewInMemoryHistoryRepository())

	tests := []struct {
		metric string
		value  float64
		want   error
	}{
		{"weight", 0, ErrOutOfRange},
		{"weight", 300.1, ErrOutOfRange},
		{"height", -1, ErrOutOfRange},
		{"age", 0, ErrOutOfRange},
		{"age", 121, ErrOutOfRange},
		{"age", 30.5, ErrOutOfRange},
		{"shoe", 42, ErrUnknownMetric},
		{"weight", 300, nil},
		{"age", 1, nil},
	}
	for _, tt := range tests {
		_, err := svc.UpdateMetric(context.Background(), u.ID, tt.metric, tt.value)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s=%v: err = %v, want %v", tt.metric, tt.value, err, tt.want)
		}
	}
}

func TestUpdateMetricPersistsAndRecords(t *testing.T) {
	users := auth.NewInMemoryUserRepository()
	u := newUser(t, users)
	history := NewInMemoryHistoryRepository()
	svc := NewService(users, history)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	got, err := svc.UpdateMetric(context.Background(), u.ID, MetricWeight, 69.857)
	if err != nil {
		t.Fatalf("UpdateMetric: %v", err)
	}
	if *got.WeightKg != 69.86 {
		t.Errorf("weight = %v, want 69.86", *got.WeightKg)
	}

	stored, _ := users.FindByID(context.Background(), u.ID)
	if *stored.WeightKg != 69.86 {
		t.Errorf("stored weight = %v", *stored.WeightKg)
	}

	dates, weights, err := svc.WeightHistory(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("WeightHistory: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2024-05-01" || weights[0] != 69.86 {
		t.Fatalf("history = %v %v", dates, weights)
	}
}

func TestWeightHistoryFallsBackToProfile(t *testing.T) {
	users := auth.NewInMemoryUserRepository()
	u := newUser(t, users)
	svc := NewService(users, NewInMemoryHistoryRepository())

	dates, weights, err := svc.WeightHistory(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("WeightHistory: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2024-01-02" || weights[0] != 70 {
		t.Fatalf("history = %v %v", dates, weights)
	}
}

func newRouter(t *testing.T, users *auth.InMemoryUserRepository, userID string) *gin.Engine {
	t.Helper()
	pages, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	h := NewHandler(NewService(users, NewInMemoryHistoryRepository()), auth.NewService(users), pages)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(web.UserIDContextKey, userID)
		c.Next()
	})
	r.GET("/accounts/profile/", h.Profile)
	r.POST("/accounts/profile/metrics/", h.UpdateMetric)
	r.GET("/accounts/profile/metrics/history/", h.MetricsHistory)
	return r
}

func TestUpdateMetricEndpoint(t *testing.T) {
	users := auth.NewInMemoryUserRepository()
	u := newUser(t, users)
	router := newRouter(t, users, u.ID)

	req := httptest.NewRequest(http.MethodPost, "/accounts/profile/metrics/", strings.NewReader(`{"metric":"height","value":"180"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	var resp struct {
		Success bool     `json:"success"`
		Metric  string   `json:"metric"`
		Value   float64  `json:"value"`
		BMI     *float64 `json:"bmi"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success || resp.Metric != "height" || resp.Value != 180 || resp.BMI == nil || *resp.BMI != 21.6 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestUpdateMetricEndpointRejects(t *testing.T) {
	users := auth.NewInMemoryUserRepository()
	u := newUser(t, users)
	router := newRouter(t, users, u.ID)

	for _, body := range []string{`{"metric":"age","value":500}`, `{"metric":"age","value":"abc"}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/accounts/profile/metrics/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"success":false`) {
			t.Errorf("%s: %d %s", body, w.Code, w.Body)
		}
	}
}

func TestHistoryEndpointEqualLengths(t *testing.T) {
	users := auth.NewInMemoryUserRepository()
	u := newUser(t, users)
	w := httptest.NewRecorder()
	newRouter(t, users, u.ID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/profile/metrics/history/", nil))

	var resp struct {
		Dates   []string  `json:"dates"`
		Weights []float64 `json:"weights"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Dates) != len(resp.Weights) || len(resp.Dates) != 1 {
		t.Fatalf("history = %+v", resp)
	}
}

func TestProfilePageShowsBMI(t *testing.T) {
	users := auth.NewInMemoryUserRepository()
	u := newUser(t, users)
	w := httptest.NewRecorder()
	newRouter(t, users, u.ID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/profile/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"22.86", "Normal weight", "Ravi"} {
		if !strings.Contains(body, want) {
			t.Errorf("profile page missing %q", want)
		}
	}
}
