package domain

import "time"

// ArchivedRun is the headline of a stored analysis run.
type ArchivedRun struct {
	RunID          string    `json:"run_id"`
	Source         string    `json:"source"`
	TotalEvents    int       `json:"total_events"`
	Detected       int       `json:"detected"`
	DetectionRate  *float64  `json:"detection_rate,omitempty"`
	MalformedLines int       `json:"malformed_lines"`
	GeneratedAt    time.Time `json:"generated_at"`
}
