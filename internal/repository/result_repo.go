package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"typestress/internal/database"
	"typestress/internal/models"
)

// ResultRepository handles typing test result persistence
type ResultRepository struct {
	db *database.DB
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *database.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Save persists a finished test result together with its stress sample
// history in one transaction. The progress series is stored as JSON.
func (r *ResultRepository) Save(result *models.TestResult, samples []models.StressSample) (*models.TestResult, error) {
	progress, err := json.Marshal(result.Progress)
	if err != nil {
		return nil, fmt.Errorf("failed to encode progress series: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}

	id, err := tx.ExecReturningID(`
		INSERT INTO test_results (session_id, wpm, accuracy, typing_time, stress_level, progress)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.SessionID, result.WPM, result.Accuracy, result.TypingTime, string(result.StressLevel), string(progress))
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	result.ID = id

	for _, sample := range samples {
		_, err := tx.Exec(`
			INSERT INTO stress_events (session_id, label, confidence, recorded_at)
			VALUES (?, ?, ?, ?)
		`, result.SessionID, string(sample.Label), sample.ConfidenceHint, sample.Timestamp)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetBySessionID(result.SessionID)
}

// GetBySessionID retrieves a result by its session id
func (r *ResultRepository) GetBySessionID(sessionID string) (*models.TestResult, error) {
	query := `
		SELECT id, session_id, wpm, accuracy, typing_time, stress_level, progress, created_at
		FROM test_results
		WHERE session_id = ?
	`

	result := &models.TestResult{}
	var stressLevel, progress string
	var createdAt sql.NullTime

	err := r.db.QueryRow(query, sessionID).Scan(
		&result.ID,
		&result.SessionID,
		&result.WPM,
		&result.Accuracy,
		&result.TypingTime,
		&stressLevel,
		&progress,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	result.StressLevel = models.StressLabel(stressLevel)
	if createdAt.Valid {
		result.CreatedAt = createdAt.Time
	}
	if err := json.Unmarshal([]byte(progress), &result.Progress); err != nil {
		// A corrupt progress blob should not hide the result itself
		result.Progress = nil
	}

	return result, nil
}

// GetStressEvents retrieves the stress sample history for a session
func (r *ResultRepository) GetStressEvents(sessionID string) ([]models.StressSample, error) {
	query := `
		SELECT label, confidence, recorded_at
		FROM stress_events
		WHERE session_id = ?
		ORDER BY recorded_at
	`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.StressSample
	for rows.Next() {
		var label string
		var sample models.StressSample
		if err := rows.Scan(&label, &sample.ConfidenceHint, &sample.Timestamp); err != nil {
			return nil, err
		}
		sample.Label = models.StressLabel(label)
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

// ListRecent retrieves the most recently finished results
func (r *ResultRepository) ListRecent(limit int) ([]models.TestResult, error) {
	query := `
		SELECT id, session_id, wpm, accuracy, typing_time, stress_level, progress, created_at
		FROM test_results
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.TestResult
	for rows.Next() {
		var result models.TestResult
		var stressLevel, progress string
		var createdAt sql.NullTime

		if err := rows.Scan(&result.ID, &result.SessionID, &result.WPM, &result.Accuracy,
			&result.TypingTime, &stressLevel, &progress, &createdAt); err != nil {
			return nil, err
		}

		result.StressLevel = models.StressLabel(stressLevel)
		if createdAt.Valid {
			result.CreatedAt = createdAt.Time
		}
		if err := json.Unmarshal([]byte(progress), &result.Progress); err != nil {
			result.Progress = nil
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
