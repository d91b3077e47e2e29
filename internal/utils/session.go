package utils

import (
	"github.com/google/uuid"
)

// GenerateSessionID creates a new opaque UUID token for session
// identification. Tokens are never reused across sessions.
func GenerateSessionID() string {
	return uuid.New().String()
}
