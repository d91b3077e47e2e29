package service

import (
	"errors"
	"sync"
	"time"

	"typestress/internal/corpus"
	"typestress/internal/guard"
	"typestress/internal/models"
	"typestress/internal/session"
	"typestress/internal/vision"
)

// ErrConfirmationRequired is returned when a new paragraph is requested
// while a session is still active and the user has not confirmed
// discarding it.
var ErrConfirmationRequired = errors.New("active session must be confirmed before discarding")

// ResultIntake accepts the result bundle of a finished session.
// ResultService is the production implementation.
type ResultIntake interface {
	Submit(sessionID string, wpm, accuracy int, typingTime float64, progress []int, samples []models.StressSample) (*models.TestResult, error)
}

// SessionService owns the typing session lifecycle: it allocates sessions,
// binds the metrics task and interaction guard to them, and tears both down
// on every exit path (finish, discard, idle eviction).
type SessionService struct {
	registry *session.Registry
	corpus   corpus.Supplier
	results  ResultIntake
	analyzer *vision.Analyzer

	tickInterval time.Duration

	mu      sync.Mutex
	runners map[string]*session.Runner
	guards  map[string]*guard.Guard
	sinks   map[string]func(models.MetricsSnapshot)
}

// NewSessionService creates a new session service
func NewSessionService(registry *session.Registry, supplier corpus.Supplier, results ResultIntake, analyzer *vision.Analyzer, tickInterval time.Duration) *SessionService {
	return &SessionService{
		registry:     registry,
		corpus:       supplier,
		results:      results,
		analyzer:     analyzer,
		tickInterval: tickInterval,
		runners:      make(map[string]*session.Runner),
		guards:       make(map[string]*guard.Guard),
		sinks:        make(map[string]func(models.MetricsSnapshot)),
	}
}

// Start fetches a reference paragraph, allocates a fresh session, activates
// it, installs the interaction guard and starts the metrics task. Metric
// snapshots are delivered to sink on every tick.
func (s *SessionService) Start(sink func(models.MetricsSnapshot)) (*session.Session, error) {
	paragraph := s.corpus.Paragraph()
	if paragraph == "" {
		return nil, errors.New("paragraph supply returned empty text")
	}

	sess := session.New(paragraph)
	if err := sess.Activate(); err != nil {
		return nil, err
	}

	g := guard.New()
	g.Install()
	runner := session.StartRunner(sess, s.tickInterval, sink)

	s.mu.Lock()
	s.runners[sess.ID()] = runner
	s.guards[sess.ID()] = g
	s.sinks[sess.ID()] = sink
	s.mu.Unlock()

	s.registry.Put(sess)
	return sess, nil
}

// UpdateInput records the latest input snapshot for a session
func (s *SessionService) UpdateInput(id, text string, keystrokes, errs int) error {
	sess := s.registry.Get(id)
	if sess == nil {
		return session.ErrUnknownSession
	}
	return sess.SetInput(text, keystrokes, errs)
}

// ReportGuardEvent applies the suppression policy to an interaction event
// reported by the page and says whether it was blocked.
func (s *SessionService) ReportGuardEvent(id string, kind guard.EventKind) bool {
	s.mu.Lock()
	g := s.guards[id]
	s.mu.Unlock()

	if g == nil {
		return false
	}
	return g.Blocks(kind)
}

// StressHistory returns the stress samples gathered for a live session, or
// nil when the id matches nothing.
func (s *SessionService) StressHistory(id string) []models.StressSample {
	sess := s.registry.Get(id)
	if sess == nil {
		return nil
	}
	return sess.StressHistory()
}

// GuardInstalled reports whether the suppression policy is active for a session
func (s *SessionService) GuardInstalled(id string) bool {
	s.mu.Lock()
	g := s.guards[id]
	s.mu.Unlock()
	return g != nil && g.Installed()
}

// Finish ends an active session. The metrics task is stopped before the
// final computation so a late tick can never race it; the final metrics
// come from the frozen input text. On any submission failure the session
// stays active and its metrics task is restarted, so the user can keep
// typing and retry finishing.
func (s *SessionService) Finish(id string) (*models.TestResult, error) {
	sess := s.registry.Get(id)
	if sess == nil {
		return nil, session.ErrUnknownSession
	}

	s.stopRunner(id)

	snap, err := sess.FinalMetrics(time.Now())
	if err != nil {
		return nil, err
	}

	result, err := s.results.Submit(id, snap.WPM, snap.AccuracyPercent, snap.ElapsedSeconds, sess.ProgressWPMs(), sess.StressHistory())
	if err != nil {
		s.restartRunner(sess)
		return nil, err
	}

	if err := sess.Finish(); err != nil {
		return nil, err
	}
	s.teardown(id)
	return result, nil
}

// Discard abandons a session, as on a "new paragraph" request or a closed
// connection. Discarding an active session requires explicit confirmation.
func (s *SessionService) Discard(id string, confirmed bool) error {
	sess := s.registry.Get(id)
	if sess == nil {
		return session.ErrUnknownSession
	}

	if sess.State() == session.Active && !confirmed {
		return ErrConfirmationRequired
	}

	s.stopRunner(id)
	s.teardown(id)
	return nil
}

// EvictIdle sweeps sessions with no activity since the timeout and returns
// how many were evicted.
func (s *SessionService) EvictIdle(timeout time.Duration) int {
	idle := s.registry.IdleSince(time.Now().Add(-timeout))
	for _, sess := range idle {
		s.stopRunner(sess.ID())
		s.teardown(sess.ID())
	}
	return len(idle)
}

// restartRunner resumes the metrics task after a failed finish attempt,
// reusing the sink registered at start.
func (s *SessionService) restartRunner(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := sess.ID()
	if _, running := s.runners[id]; running {
		return
	}
	sink := s.sinks[id]
	if sink == nil {
		return
	}
	s.runners[id] = session.StartRunner(sess, s.tickInterval, sink)
}

// stopRunner synchronously cancels a session's metrics task. It is safe to
// call for sessions that have no runner (already stopped).
func (s *SessionService) stopRunner(id string) {
	s.mu.Lock()
	runner := s.runners[id]
	delete(s.runners, id)
	s.mu.Unlock()

	if runner != nil {
		// Blocks until the task goroutine has exited
		runner.Stop()
	}
}

// teardown removes the guard, the registry entry and any per-session
// analyzer state. Every path out of Active funnels through here.
func (s *SessionService) teardown(id string) {
	s.mu.Lock()
	if g := s.guards[id]; g != nil {
		g.Remove()
	}
	delete(s.guards, id)
	delete(s.sinks, id)
	s.mu.Unlock()

	s.registry.Remove(id)
	if s.analyzer != nil {
		s.analyzer.ForgetSession(id)
	}
}
