// Package profile serves the health profile page and the metric editing
// endpoints behind it.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"nutriscan/internal/auth"
	"nutriscan/internal/units"
)

var (
	ErrUnknownMetric = errors.New("unknown metric")
	ErrOutOfRange    = errors.New("value out of range")
)

// DateLayout formats chart dates.
const DateLayout = "2006-01-02"

type Service struct {
	users   auth.UserRepository
	history HistoryRepository
	now     func() time.Time
}

func NewService(users auth.UserRepository, history HistoryRepository) *Service {
	return &Service{users: users, history: history, now: time.Now}
}

func validate(metric string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ErrOutOfRange
	}
	switch metric {
	case MetricWeight:
		if value <= 0 || value > 300 {
			return fmt.Errorf("%w: weight must be between 0 and 300 kg", ErrOutOfRange)
		}
	case MetricHeight:
		if value <= 0 || value > 300 {
			return fmt.Errorf("%w: height must be between 0 and 300 cm", ErrOutOfRange)
		}
	case MetricAge:
		if value < 1 || value > 120 || value != math.Trunc(value) {
			return fmt.Errorf("%w: age must be a whole number between 1 and 120", ErrOutOfRange)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	return nil
}

// UpdateMetric stores one metric in canonical units (kg, cm, years) and
// records it in the history. Weight and height are kept to 2 decimals.
func (s *Service) UpdateMetric(ctx context.Context, userID, metric string, value float64) (*auth.User, error) {
	if err := validate(metric, value); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	switch metric {
	case MetricWeight:
		value = units.Round2(value)
		user.WeightKg = &value
	case MetricHeight:
		value = units.Round2(value)
		user.HeightCm = &value
	case MetricAge:
		age := int(value)
		user.Age = &age
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	entry := HistoryEntry{UserID: userID, Metric: metric, Value: value, RecordedAt: s.now()}
	if err := s.history.Record(ctx, entry); err != nil {
		slog.Warn("metric history not recorded", "user_id", userID, "metric", metric, "error", err)
	}

	slog.Info("metric updated", "user_id", userID, "metric", metric)
	return user, nil
}

// WeightHistory returns parallel date and weight series. A user with no
// recorded history but a stored weight gets a single point at signup.
func (s *Service) WeightHistory(ctx context.Context, userID string) ([]string, []float64, error) {
	entries, err := s.history.List(ctx, userID, MetricWeight)
	if err != nil {
		return nil, nil, err
	}

	dates := make([]string, 0, len(entries))
	weights := make([]float64, 0, len(entries))
	for _, e := range entries {
		dates = append(dates, e.RecordedAt.Format(DateLayout))
		weights = append(weights, e.Value)
	}

	if len(entries) == 0 {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, nil, fmt.Errorf("loading user: %w", err)
		}
		if user.WeightKg != nil {
			dates = append(dates, user.CreatedAt.Format(DateLayout))
			weights = append(weights, *user.WeightKg)
		}
	}
	return dates, weights, nil
}
