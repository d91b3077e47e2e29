package main

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"typestress/internal/config"
	"typestress/internal/corpus"
	"typestress/internal/database"
	"typestress/internal/handlers"
	"typestress/internal/repository"
	"typestress/internal/security"
	"typestress/internal/service"
	"typestress/internal/session"
	"typestress/internal/vision"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Load templates
	templates, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	log.Println("Templates loaded successfully")

	// Load the face cascade. A missing cascade degrades frame scoring to
	// Unknown labels instead of blocking the typing flow.
	detector, err := vision.NewDetector(cfg.CascadePath)
	if err != nil {
		log.Printf("Warning: face cascade unavailable, stress labels will read Unknown: %v", err)
		detector = nil
	} else {
		log.Println("Face cascade loaded successfully")
	}

	// Initialize repositories
	resultRepo := repository.NewResultRepository(db)

	// Initialize services
	registry := session.NewRegistry()
	analyzer := vision.NewAnalyzer(detector, vision.DefaultThresholds())
	supplier := corpus.NewStaticSupplier(time.Now().UnixNano())

	resultService := service.NewResultService(resultRepo)
	sessionService := service.NewSessionService(registry, supplier, resultService, analyzer, cfg.MetricsTickInterval)
	analyzeService := service.NewAnalyzeService(analyzer, registry)

	// Initialize handlers
	frameLimiter := security.NewRateLimiter(cfg.FrameRateLimit, cfg.FrameRateWindow)
	apiHandler := handlers.NewAPIHandler(supplier, sessionService, resultService, analyzeService, templates, cfg.UploadMaxSize, cfg.StressCaptureInterval)
	socketHandler := handlers.NewSessionSocket(sessionService)

	// Setup routes
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))

	mux.HandleFunc("GET /{$}", apiHandler.Home)
	mux.HandleFunc("GET /get_paragraph", apiHandler.GetParagraph)
	mux.HandleFunc("POST /submit_results", apiHandler.SubmitResults)
	mux.HandleFunc("POST /analyze_frame", handlers.RateLimit(frameLimiter, apiHandler.AnalyzeFrame))
	mux.HandleFunc("GET /results/{session_id}", apiHandler.ShowResults)
	mux.HandleFunc("GET /ws/session", socketHandler.Serve)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background sweep of abandoned sessions
	go evictIdleSessions(sessionService, cfg.SessionIdleTimeout)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// loadTemplates loads all template files
func loadTemplates(templatesPath string) (*template.Template, error) {
	files, err := filepath.Glob(filepath.Join(templatesPath, "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob templates: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found in %s", templatesPath)
	}

	// Define template functions
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
		"formatSeconds": func(s float64) string {
			return fmt.Sprintf("%.1fs", s)
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return tmpl, nil
}

// evictIdleSessions periodically discards sessions that stopped reporting
func evictIdleSessions(sessions *service.SessionService, timeout time.Duration) {
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for range ticker.C {
		if n := sessions.EvictIdle(timeout); n > 0 {
			log.Printf("Evicted %d idle sessions", n)
		}
	}
}
