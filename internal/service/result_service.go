package service

import (
	"errors"

	"typestress/internal/models"
	"typestress/internal/repository"
)

// ErrMissingResultID signals a result-intake response without the expected
// session id. The finish attempt is fatal and must be retried by the user.
var ErrMissingResultID = errors.New("result intake returned no session id")

// ResultService handles aggregation and persistence of finished tests
type ResultService struct {
	repo *repository.ResultRepository
}

// NewResultService creates a new result service
func NewResultService(repo *repository.ResultRepository) *ResultService {
	return &ResultService{repo: repo}
}

// DominantLabel reduces a session's stress sample history to its most
// frequent label. Ties break toward the earliest label to reach the top
// count; an empty history reads as Normal.
func DominantLabel(samples []models.StressSample) models.StressLabel {
	if len(samples) == 0 {
		return models.LabelNormal
	}

	counts := make(map[models.StressLabel]int)
	best := samples[0].Label
	for _, sample := range samples {
		counts[sample.Label]++
		if counts[sample.Label] > counts[best] {
			best = sample.Label
		}
	}
	return best
}

// Submit persists the result bundle for a finished session and returns the
// stored record. The dominant stress label is computed here, from the
// samples gathered while the session ran.
func (s *ResultService) Submit(sessionID string, wpm, accuracy int, typingTime float64, progress []int, samples []models.StressSample) (*models.TestResult, error) {
	if sessionID == "" {
		return nil, ErrMissingResultID
	}

	result := &models.TestResult{
		SessionID:   sessionID,
		WPM:         wpm,
		Accuracy:    accuracy,
		TypingTime:  typingTime,
		StressLevel: DominantLabel(samples),
		Progress:    progress,
	}

	stored, err := s.repo.Save(result, samples)
	if err != nil {
		return nil, err
	}
	if stored.SessionID == "" {
		return nil, ErrMissingResultID
	}
	return stored, nil
}

// GetResult retrieves a stored result and its stress history for the
// results view.
func (s *ResultService) GetResult(sessionID string) (*models.TestResult, []models.StressSample, error) {
	result, err := s.repo.GetBySessionID(sessionID)
	if err != nil {
		return nil, nil, err
	}

	samples, err := s.repo.GetStressEvents(sessionID)
	if err != nil {
		return nil, nil, err
	}

	return result, samples, nil
}
