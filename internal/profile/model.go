package profile

import "time"

// Metric keys accepted by the metric update endpoint.
const (
	MetricWeight = "weight"
	MetricHeight = "height"
	MetricAge    = "age"
)

// HistoryEntry is one recorded metric value.
type HistoryEntry struct {
	UserID     string
	Metric     string
	Value      float64
	RecordedAt time.Time
}
