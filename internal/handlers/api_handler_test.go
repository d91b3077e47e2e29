package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"typestress/internal/corpus"
	"typestress/internal/security"
	"typestress/internal/service"
	"typestress/internal/session"
	"typestress/internal/vision"
)

func newTestHandler() *APIHandler {
	registry := session.NewRegistry()
	analyzer := vision.NewAnalyzer(nil, vision.DefaultThresholds())
	supplier := corpus.NewStaticSupplier(1)

	sessions := service.NewSessionService(registry, supplier, nil, analyzer, time.Hour)
	analyze := service.NewAnalyzeService(analyzer, registry)

	return NewAPIHandler(supplier, sessions, nil, analyze, nil, 5<<20, 2*time.Second)
}

func TestHomeServesCaptureInterval(t *testing.T) {
	h := newTestHandler()
	h.templates = template.Must(template.New("index.tmpl").Parse(`interval={{.CaptureIntervalMS}}`))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Home(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "interval=2000" {
		t.Errorf("body = %q, want interval=2000", got)
	}
}

func TestGetParagraph(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/get_paragraph", nil)
	rec := httptest.NewRecorder()
	h.GetParagraph(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Paragraph string `json:"paragraph"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Paragraph == "" {
		t.Error("paragraph is empty")
	}
}

func TestSubmitResultsRejectsMalformedBody(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/submit_results", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.SubmitResults(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitResultsRejectsMissingSessionID(t *testing.T) {
	h := newTestHandler()

	body := `{"wpm": 40, "accuracy": 95, "typing_time": 30.5, "progress": [20, 30, 40]}`
	req := httptest.NewRequest(http.MethodPost, "/submit_results", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SubmitResults(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeFrameRejectsUnreadableBody(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/analyze_frame", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.AnalyzeFrame(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "error" {
		t.Errorf("status field = %q, want error", body.Status)
	}
}

func TestAnalyzeFrameWithoutCascadeAnswersUnknown(t *testing.T) {
	h := newTestHandler()

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewGray(image.Rect(0, 0, 32, 32))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	payload := map[string]string{
		"image":      "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.Bytes()),
		"session_id": "sess-1",
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to encode request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/analyze_frame", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.AnalyzeFrame(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status      string `json:"status"`
		StressLevel string `json:"stress_level"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "success" {
		t.Errorf("status field = %q, want success", body.Status)
	}
	if body.StressLevel != "Unknown" {
		t.Errorf("stress_level = %q, want Unknown", body.StressLevel)
	}
}

func TestShowResultsUnknownID(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/results/", nil)
	req.SetPathValue("session_id", "")
	rec := httptest.NewRecorder()
	h.ShowResults(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRateLimitBlocksAfterBudget(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	calls := 0
	handler := RateLimit(limiter, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/analyze_frame", nil)
		req.RemoteAddr = "10.0.0.1:4242"
		rec := httptest.NewRecorder()
		handler(rec, req)

		want := http.StatusOK
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Errorf("request %d: status = %d, want %d", i, rec.Code, want)
		}
	}
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}
