package models

import "time"

// ScanStatus is the lifecycle state of a scan job.
type ScanStatus string

const (
	StatusIdle      ScanStatus = "idle"
	StatusRunning   ScanStatus = "running"
	StatusCompleted ScanStatus = "completed"
	StatusFailed    ScanStatus = "failed"
)

// ScanParameters describe one scan request after validation.
type ScanParameters struct {
	InstrumentCount int             `json:"instrument_count"`
	Timeframes      []string        `json:"timeframes"`
	AdaptationSpeed AdaptationSpeed `json:"adaptation_speed"`
	MinBarsBetween  int             `json:"min_bars_between"`
	Variant         Variant         `json:"scanner_variant"`
	Market          Market          `json:"market"`
}

// ScanJob tracks one scan through idle -> running -> completed/failed.
// At most one job may be running process-wide.
type ScanJob struct {
	ID              string         `json:"id"`
	Status          ScanStatus     `json:"status"`
	Parameters      ScanParameters `json:"parameters"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     time.Time      `json:"completed_at,omitzero"`
	ProgressPercent float64        `json:"progress_percent"`
	TotalUnits      int            `json:"total_units"`
	CompletedUnits  int            `json:"completed_units"`
	Reason          string         `json:"reason,omitempty"`
}

// ResultSet holds the latest completed scan's signals. It is replaced
// wholesale on every successful scan, never merged.
type ResultSet struct {
	JobID       string        `json:"job_id"`
	Signals     []Signal      `json:"signals"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
}
