package domain

import "time"

// MetricsSnapshot is one persisted view of the in-process counter map.
type MetricsSnapshot struct {
	ID        string         `json:"id" db:"id"`
	Source    string         `json:"source" db:"source"`
	RequestID string         `json:"request_id,omitempty" db:"request_id"`
	Counters  map[string]int `json:"counters" db:"counters"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
