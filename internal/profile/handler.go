package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"nutriscan/internal/auth"
	"nutriscan/internal/bmi"
	"nutriscan/internal/web"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	users   *auth.Service
	pages   *web.Renderer
}

func NewHandler(service *Service, users *auth.Service, pages *web.Renderer) *Handler {
	return &Handler{service: service, users: users, pages: pages}
}

// --------------------------------------------------
// GET /accounts/profile/
// --------------------------------------------------
func (h *Handler) Profile(c *gin.Context) {
	userID := c.GetString(web.UserIDContextKey)
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		slog.Error("loading profile", "user_id", userID, "error", err)
		c.String(http.StatusInternalServerError, "failed to load profile")
		return
	}

	data := gin.H{"User": user}
	if v, ok := user.BMI(); ok {
		band := bmi.Classify(v)
		data["BMI"] = fmt.Sprintf("%.2f", v)
		data["BMICategory"] = band.Label
		data["BMIColor"] = band.Color
	}
	h.pages.HTML(c, http.StatusOK, "profile", data)
}

type metricRequest struct {
	Metric string `json:"metric"`
	Value  any    `json:"value"`
}

// parseValue accepts a JSON number or a numeric string.
func parseValue(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	return 0, errors.New("value must be a number")
}

func metricError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// --------------------------------------------------
// POST /accounts/profile/metrics/
// --------------------------------------------------
func (h *Handler) UpdateMetric(c *gin.Context) {
	var req metricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metricError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	value, err := parseValue(req.Value)
	if err != nil {
		metricError(c, http.StatusBadRequest, "value must be a number")
		return
	}

	userID := c.GetString(web.UserIDContextKey)
	user, err := h.service.UpdateMetric(c.Request.Context(), userID, req.Metric, value)
	switch {
	case errors.Is(err, ErrUnknownMetric), errors.Is(err, ErrOutOfRange):
		metricError(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrUserNotFound):
		metricError(c, http.StatusNotFound, "user not found")
		return
	case err != nil:
		slog.Error("metric update failed", "user_id", userID, "error", err)
		metricError(c, http.StatusInternalServerError, "failed to update metric")
		return
	}

	resp := gin.H{"success": true, "metric": req.Metric, "value": storedValue(user, req.Metric), "bmi": nil}
	if v, ok := user.BMI(); ok {
		resp["bmi"] = v
	}
	c.JSON(http.StatusOK, resp)
}

func storedValue(u *auth.User, metric string) float64 {
	switch metric {
	case MetricWeight:
		return *u.WeightKg
	case MetricHeight:
		return *u.HeightCm
	default:
		return float64(*u.Age)
	}
}

// --------------------------------------------------
// GET /accounts/profile/metrics/history/
// --------------------------------------------------
func (h *Handler) MetricsHistory(c *gin.Context) {
	userID := c.GetString(web.UserIDContextKey)
	dates, weights, err := h.service.WeightHistory(c.Request.Context(), userID)
	if err != nil {
		slog.Error("metrics history failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates, "weights": weights})
}
