package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"typestress/internal/corpus"
	"typestress/internal/service"
	"typestress/internal/session"
	"typestress/internal/vision"
)

// APIHandler serves the typing test pages and the JSON API: paragraph
// supply, result intake, frame scoring, and the results view.
type APIHandler struct {
	corpus          corpus.Supplier
	sessions        *service.SessionService
	results         *service.ResultService
	analyzer        *service.AnalyzeService
	templates       *template.Template
	maxUpload       int64
	captureInterval time.Duration
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(supplier corpus.Supplier, sessions *service.SessionService, results *service.ResultService, analyzer *service.AnalyzeService, templates *template.Template, maxUpload int64, captureInterval time.Duration) *APIHandler {
	return &APIHandler{
		corpus:          supplier,
		sessions:        sessions,
		results:         results,
		analyzer:        analyzer,
		templates:       templates,
		maxUpload:       maxUpload,
		captureInterval: captureInterval,
	}
}

// Home displays the typing test page. The capture cadence is handed to the
// page so the client and server agree on it.
func (h *APIHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":             "TypeStress",
		"CaptureIntervalMS": int(h.captureInterval / time.Millisecond),
	}

	if err := h.templates.ExecuteTemplate(w, "index.tmpl", data); err != nil {
		log.Printf("Error rendering index template: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// GetParagraph returns one reference paragraph
func (h *APIHandler) GetParagraph(w http.ResponseWriter, r *http.Request) {
	paragraph := h.corpus.Paragraph()
	if paragraph == "" {
		respondWithError(w, http.StatusInternalServerError, "No paragraph available", "paragraph supply returned empty text", errors.New("empty corpus"))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"paragraph": paragraph,
	})
}

type submitRequest struct {
	WPM        int     `json:"wpm"`
	Accuracy   int     `json:"accuracy"`
	TypingTime float64 `json:"typing_time"`
	SessionID  string  `json:"session_id"`
	Progress   []int   `json:"progress"`
}

// SubmitResults accepts a finished test bundle from a client that computed
// its own metrics. The dominant stress label comes from the samples the
// frame scorer gathered for the same session id while it ran.
func (h *APIHandler) SubmitResults(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "Error decoding submit request", err)
		return
	}
	if req.SessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing session id", "", nil)
		return
	}

	samples := h.sessions.StressHistory(req.SessionID)

	result, err := h.results.Submit(req.SessionID, req.WPM, req.Accuracy, req.TypingTime, req.Progress, samples)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to store result", "Error storing result", err)
		return
	}

	// The live session, if any, has served its purpose
	if err := h.sessions.Discard(req.SessionID, true); err != nil && !errors.Is(err, session.ErrUnknownSession) {
		log.Printf("Error discarding submitted session: %v", err)
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":   result.SessionID,
		"wpm":          result.WPM,
		"accuracy":     result.Accuracy,
		"stress_level": string(result.StressLevel),
	})
}

type analyzeRequest struct {
	Image     string `json:"image"`
	SessionID string `json:"session_id"`
}

// AnalyzeFrame scores one webcam frame. It accepts either a JSON body with a
// base64 data-URL image or a multipart upload with an "image" part. A frame
// the scorer cannot read still answers 200 with the undetermined label, so
// the capture cadence keeps running.
func (h *APIHandler) AnalyzeFrame(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	data, sessionID, err := h.readFrame(r)
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status": "error",
			"error":  "Could not read frame",
		})
		return
	}

	label, _ := h.analyzer.ScoreFrame(data, sessionID)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "success",
		"stress_level": string(label),
	})
}

// readFrame extracts the raw image bytes and the session id from either
// request encoding.
func (h *APIHandler) readFrame(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			return nil, "", err
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		return data, r.FormValue("session_id"), nil
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", err
	}
	data, err := vision.DecodePayload(req.Image)
	if err != nil {
		return nil, "", err
	}
	return data, req.SessionID, nil
}

// ShowResults displays the stored result for a finished session
func (h *APIHandler) ShowResults(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	result, samples, err := h.results.GetResult(sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load results", "Error loading result", err)
		return
	}

	data := map[string]interface{}{
		"Title":   "Results - TypeStress",
		"Result":  result,
		"Samples": samples,
	}

	if err := h.templates.ExecuteTemplate(w, "results.tmpl", data); err != nil {
		log.Printf("Error rendering results template: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
