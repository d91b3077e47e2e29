// Package session owns the typing-test lifecycle: the Session entity, the
// registry of live sessions, and the periodic metrics task bound to each
// active session.
package session

import (
	"errors"
	"sync"
	"time"

	"typestress/internal/metrics"
	"typestress/internal/models"
	"typestress/internal/utils"
)

// State is the lifecycle state of a typing session
type State int

const (
	Idle State = iota
	Active
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

var (
	ErrNotActive      = errors.New("session is not active")
	ErrNotIdle        = errors.New("session has already been started")
	ErrAlreadyDone    = errors.New("session is already finished")
	ErrUnknownSession = errors.New("unknown session")
)

// Session is one attempt at the typing exercise. The id and reference text
// are assigned at allocation and never change; a "new paragraph" request
// discards the session and allocates a fresh one rather than resetting it.
//
// A session transitions Idle -> Active -> Finished and never backward.
type Session struct {
	mu sync.Mutex

	id            string
	state         State
	referenceText string
	startedAt     time.Time

	inputText      string
	keystrokeCount int
	errorCount     int

	progress          []models.ProgressSample
	stress            []models.StressSample
	lastSampledSecond int

	lastSeen time.Time
}

// New allocates a session in the Idle state with a fresh id and the
// reference paragraph it will be typed against.
func New(referenceText string) *Session {
	return &Session{
		id:            utils.GenerateSessionID(),
		state:         Idle,
		referenceText: referenceText,
		lastSeen:      time.Now(),
	}
}

// ID returns the opaque session identifier
func (s *Session) ID() string {
	return s.id
}

// ReferenceText returns the paragraph assigned at allocation
func (s *Session) ReferenceText() string {
	return s.referenceText
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Activate transitions the session from Idle to Active and records the
// start time. It fails on any other state; Finished is not re-enterable.
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Active:
		return ErrNotIdle
	case Finished:
		return ErrAlreadyDone
	}

	s.state = Active
	s.startedAt = time.Now()
	s.lastSeen = s.startedAt
	return nil
}

// SetInput replaces the current input snapshot and advances the keystroke
// and error counters. The counters are monotonic: a stale or smaller value
// never decreases them.
func (s *Session) SetInput(text string, keystrokes, errs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return ErrNotActive
	}

	s.inputText = text
	if keystrokes > s.keystrokeCount {
		s.keystrokeCount = keystrokes
	}
	if errs > s.errorCount {
		s.errorCount = errs
	}
	s.lastSeen = time.Now()
	return nil
}

// Tick recomputes the live metrics view at the given time and, when the
// whole elapsed second has advanced since the last recorded sample and the
// WPM reading is positive, appends one progress sample. This throttles the
// series to at most one point per second regardless of tick frequency.
//
// Ticks against a non-Active session are no-ops and report ok=false.
func (s *Session) Tick(now time.Time) (snap models.MetricsSnapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return models.MetricsSnapshot{}, false
	}

	elapsed := now.Sub(s.startedAt)
	snap = metrics.Snapshot(s.inputText, s.referenceText, elapsed)

	if elapsed > 0 && snap.WPM > 0 {
		second := int(elapsed.Seconds())
		if second > s.lastSampledSecond {
			s.progress = append(s.progress, models.ProgressSample{
				ElapsedSeconds: second,
				WPM:            snap.WPM,
			})
			s.lastSampledSecond = second
		}
	}

	// Ticks are machine-driven and must not count as activity, or the
	// idle sweep could never evict a session whose runner is alive.
	return snap, true
}

// FinalMetrics computes the closing metrics from the frozen input text. The
// caller must have stopped the metrics task first; the session itself stays
// Active so a failed result submission can be retried.
func (s *Session) FinalMetrics(now time.Time) (models.MetricsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return models.MetricsSnapshot{}, ErrNotActive
	}

	return metrics.Snapshot(s.inputText, s.referenceText, now.Sub(s.startedAt)), nil
}

// Finish transitions the session from Active to Finished
func (s *Session) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return ErrNotActive
	}

	s.state = Finished
	return nil
}

// RecordStress appends one stress sample to the session's history
func (s *Session) RecordStress(sample models.StressSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stress = append(s.stress, sample)
	s.lastSeen = time.Now()
}

// Progress returns a copy of the throttled progress series
func (s *Session) Progress() []models.ProgressSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ProgressSample, len(s.progress))
	copy(out, s.progress)
	return out
}

// ProgressWPMs returns the WPM values of the progress series, the shape the
// result intake expects.
func (s *Session) ProgressWPMs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, len(s.progress))
	for i, p := range s.progress {
		out[i] = p.WPM
	}
	return out
}

// StressHistory returns a copy of the stress samples gathered so far
func (s *Session) StressHistory() []models.StressSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.StressSample, len(s.stress))
	copy(out, s.stress)
	return out
}

// LatestStress returns the most recent stress sample, if any
func (s *Session) LatestStress() (models.StressSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stress) == 0 {
		return models.StressSample{}, false
	}
	return s.stress[len(s.stress)-1], true
}

// Counters returns the keystroke and error counters
func (s *Session) Counters() (keystrokes, errs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keystrokeCount, s.errorCount
}

// LastSeen reports the last time the session saw any activity
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
