package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	StaticFilesPath string
	TemplatesPath   string
	MigrationsPath  string

	// Path to the pretrained frontal-face cascade file. If the file is
	// missing the analyzer degrades to the Unknown label; it never blocks
	// the typing flow.
	CascadePath string

	// MetricsTickInterval is the cadence of the per-session metrics task.
	// StressCaptureInterval is the (much coarser) cadence the client uses
	// for webcam capture; it is served to the page so both sides agree.
	MetricsTickInterval   time.Duration
	StressCaptureInterval time.Duration

	// SessionIdleTimeout is how long an active session may go without any
	// activity before the registry sweeps it.
	SessionIdleTimeout time.Duration

	FrameRateLimit  int
	FrameRateWindow time.Duration
	UploadMaxSize   int64
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./typestress.db"),
		DatabaseURL:     getEnv("DB_URL", ""),
		StaticFilesPath: getEnv("STATIC_PATH", "./static"),
		TemplatesPath:   getEnv("TEMPLATES_PATH", "./internal/templates"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		CascadePath:     getEnv("CASCADE_PATH", "./assets/facefinder"),

		MetricsTickInterval:   getEnvDuration("METRICS_TICK_INTERVAL", 250*time.Millisecond),
		StressCaptureInterval: getEnvDuration("STRESS_CAPTURE_INTERVAL", 2*time.Second),
		SessionIdleTimeout:    getEnvDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute),

		FrameRateLimit:  getEnvInt("FRAME_RATE_LIMIT", 60),
		FrameRateWindow: getEnvDuration("FRAME_RATE_WINDOW", time.Minute),
		UploadMaxSize:   5 * 1024 * 1024, // 5MB
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration reads a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
