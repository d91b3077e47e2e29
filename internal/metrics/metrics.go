// Package metrics contains the pure arithmetic behind live typing statistics.
package metrics

import (
	"math"
	"strings"
	"time"

	"typestress/internal/models"
)

// CountWords counts whitespace-delimited non-empty tokens in the trimmed input
func CountWords(input string) int {
	return len(strings.Fields(input))
}

// WPM computes words per minute as round(words / elapsed * 60).
// It returns 0 whenever elapsed <= 0 or words <= 0.
func WPM(words int, elapsed time.Duration) int {
	if words <= 0 || elapsed <= 0 {
		return 0
	}
	return int(math.Round(float64(words) / elapsed.Seconds() * 60))
}

// Accuracy compares input and reference position-by-position up to the
// shorter length and returns round(correct / len(input) * 100). The
// comparison is case-sensitive with no normalization. Empty input is 100%
// accurate by convention. Characters beyond the shorter length are neither
// correct nor errors, so typing past the reference lowers accuracy only
// through the growing denominator.
//
// This is a live approximation: it does not try to reconstruct what was
// backspaced away.
func Accuracy(input, reference string) int {
	if len(input) == 0 {
		return 100
	}

	limit := len(input)
	if len(reference) < limit {
		limit = len(reference)
	}

	correct := 0
	for i := 0; i < limit; i++ {
		if input[i] == reference[i] {
			correct++
		}
	}

	return int(math.Round(float64(correct) / float64(len(input)) * 100))
}

// Snapshot derives the live metrics view for the given input against the
// reference text after elapsed typing time.
func Snapshot(input, reference string, elapsed time.Duration) models.MetricsSnapshot {
	return models.MetricsSnapshot{
		WPM:             WPM(CountWords(input), elapsed),
		AccuracyPercent: Accuracy(input, reference),
		ElapsedSeconds:  elapsed.Seconds(),
	}
}
