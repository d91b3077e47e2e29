package models

import "time"

// TestResult represents a finished typing test as persisted for the results view
type TestResult struct {
	ID          int64       `json:"id"`
	SessionID   string      `json:"session_id"`
	WPM         int         `json:"wpm"`
	Accuracy    int         `json:"accuracy"`
	TypingTime  float64     `json:"typing_time"` // seconds
	StressLevel StressLabel `json:"stress_level"`
	Progress    []int       `json:"progress"` // WPM series, one point per elapsed second
	CreatedAt   time.Time   `json:"created_at"`
}

// ProgressSample is one point of the throttled progress series: the WPM
// reading at a whole elapsed second. At most one sample exists per second.
type ProgressSample struct {
	ElapsedSeconds int
	WPM            int
}

// MetricsSnapshot is a derived view recomputed on each tick. It is never
// stored; it is always a pure function of the session and the clock.
type MetricsSnapshot struct {
	WPM             int
	AccuracyPercent int
	ElapsedSeconds  float64
}
