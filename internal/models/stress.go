package models

import "time"

// StressLabel is a discrete classification of the user's inferred tension
// state from a single camera frame.
type StressLabel string

const (
	LabelHappy    StressLabel = "Happy"
	LabelSad      StressLabel = "Sad"
	LabelTired    StressLabel = "Tired"
	LabelAngry    StressLabel = "Angry"
	LabelNervous  StressLabel = "Nervous"
	LabelStressed StressLabel = "Stressed"
	LabelCalm     StressLabel = "Calm"
	LabelChill    StressLabel = "Chill"
	LabelFocused  StressLabel = "Focused"
	LabelNormal   StressLabel = "Normal"

	// LabelUnknown is returned when no reliable face region can be isolated
	// in a frame (no face, unloadable cascade, undecodable image).
	LabelUnknown StressLabel = "Unknown"
)

// ScoredLabels is every label the analyzer can assign from a frame, in the
// tie-break priority order used when several labels score equally.
var ScoredLabels = []StressLabel{
	LabelStressed,
	LabelAngry,
	LabelNervous,
	LabelTired,
	LabelSad,
	LabelFocused,
	LabelCalm,
	LabelChill,
	LabelHappy,
}

// StressSample is the output of one scoring pass, tagged with the wall-clock
// time it was produced.
type StressSample struct {
	Timestamp time.Time
	Label     StressLabel

	// ConfidenceHint is the winning heuristic score. It is a diagnostic
	// proxy only and is not monotonic across frames.
	ConfidenceHint float64
}
