package service

import (
	"time"

	"typestress/internal/models"
	"typestress/internal/session"
	"typestress/internal/vision"
)

// AnalyzeService scores webcam frames and feeds the resulting stress
// samples back into the live session they belong to.
type AnalyzeService struct {
	analyzer *vision.Analyzer
	registry *session.Registry
}

// NewAnalyzeService creates a new frame analysis service
func NewAnalyzeService(analyzer *vision.Analyzer, registry *session.Registry) *AnalyzeService {
	return &AnalyzeService{
		analyzer: analyzer,
		registry: registry,
	}
}

// ScoreFrame runs one scoring pass over an encoded frame. Each call is an
// independent attempt: a frame that cannot be read scores Unknown and the
// next cadence cycle starts fresh. When the session id matches a live
// session the sample is appended to its history.
func (s *AnalyzeService) ScoreFrame(data []byte, sessionID string) (models.StressLabel, vision.FacialMetrics) {
	label, facialMetrics, hint := s.analyzer.AnalyzeFrame(data, sessionID)

	if sess := s.registry.Get(sessionID); sess != nil {
		sess.RecordStress(models.StressSample{
			Timestamp:      time.Now(),
			Label:          label,
			ConfidenceHint: hint,
		})
	}

	return label, facialMetrics
}
