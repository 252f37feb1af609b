package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whoamaiii/sensetrack/internal/apierror"
	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockTrackingService struct {
	recorded    []models.CreateTrackingEntryRequest
	recordErr   error
	entries     []models.TrackingEntry
	entriesErr  error
	lastStudent string
}

func (m *mockTrackingService) RecordEntry(_ context.Context, studentID string, req *models.CreateTrackingEntryRequest) (*models.TrackingEntry, error) {
	m.lastStudent = studentID
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	m.recorded = append(m.recorded, *req)
	return &models.TrackingEntry{ID: "entry-1", StudentID: studentID, Timestamp: req.Timestamp}, nil
}

func (m *mockTrackingService) GetEntries(_ context.Context, studentID string) ([]models.TrackingEntry, error) {
	m.lastStudent = studentID
	return m.entries, m.entriesErr
}

func newTrackingRouter(svc *mockTrackingService) *gin.Engine {
	handler := NewTrackingHandler(svc)
	router := gin.New()
	router.POST("/api/v1/students/:studentId/entries", handler.CreateEntry)
	router.GET("/api/v1/students/:studentId/entries", handler.GetEntries)
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateEntrySuccess(t *testing.T) {
	svc := &mockTrackingService{}
	router := newTrackingRouter(svc)

	body := `{
		"timestamp": "2024-06-15T10:00:00Z",
		"emotions": [{"emotion": "calm", "intensity": 5, "timestamp": "2024-06-15T10:00:00Z"}]
	}`
	rec := performJSON(t, router, http.MethodPost, "/api/v1/students/s1/entries", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}
	if svc.lastStudent != "s1" {
		t.Errorf("student id = %q, want s1", svc.lastStudent)
	}
	if len(svc.recorded) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(svc.recorded))
	}
	want := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	if !svc.recorded[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", svc.recorded[0].Timestamp, want)
	}
}

func TestCreateEntryAggregatesValidationErrors(t *testing.T) {
	svc := &mockTrackingService{}
	router := newTrackingRouter(svc)

	// Missing timestamp, unnamed emotion and unnamed sensory record
	// should all be reported in one response.
	body := `{
		"emotions": [{"emotion": "", "intensity": 5}],
		"sensory_inputs": [{"sensory_type": "", "response": "avoiding"}]
	}`
	rec := performJSON(t, router, http.MethodPost, "/api/v1/students/s1/entries", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, apierror.ContentTypeProblemJSON) {
		t.Errorf("content type = %q, want problem+json", ct)
	}

	var problem apierror.ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("unmarshal problem: %v", err)
	}
	if len(problem.Errors) != 3 {
		t.Errorf("got %d field errors, want 3: %+v", len(problem.Errors), problem.Errors)
	}
	if len(svc.recorded) != 0 {
		t.Error("service should not be called on validation failure")
	}
}

func TestCreateEntryInvalidTimestampFormat(t *testing.T) {
	router := newTrackingRouter(&mockTrackingService{})

	rec := performJSON(t, router, http.MethodPost, "/api/v1/students/s1/entries", `{"timestamp": "yesterday"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var problem apierror.ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("unmarshal problem: %v", err)
	}
	if len(problem.Errors) != 1 || problem.Errors[0].Field != "timestamp" {
		t.Errorf("field errors = %+v, want one timestamp error", problem.Errors)
	}
}

func TestCreateEntryMalformedJSON(t *testing.T) {
	router := newTrackingRouter(&mockTrackingService{})

	rec := performJSON(t, router, http.MethodPost, "/api/v1/students/s1/entries", `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateEntryUnknownStudent(t *testing.T) {
	svc := &mockTrackingService{
		recordErr: fmt.Errorf("looking up student: %w", repository.ErrNotFound),
	}
	router := newTrackingRouter(svc)

	rec := performJSON(t, router, http.MethodPost, "/api/v1/students/missing/entries", `{"timestamp": "2024-06-15T10:00:00Z"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body: %s", rec.Code, rec.Body.String())
	}
}

func TestGetEntries(t *testing.T) {
	svc := &mockTrackingService{
		entries: []models.TrackingEntry{
			{ID: "t1", StudentID: "s1"},
			{ID: "t2", StudentID: "s1"},
		},
	}
	router := newTrackingRouter(svc)

	rec := performJSON(t, router, http.MethodGet, "/api/v1/students/s1/entries", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		Entries []models.TrackingEntry `json:"entries"`
		Count   int                    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload.Count != 2 || len(payload.Entries) != 2 {
		t.Errorf("count = %d with %d entries, want 2", payload.Count, len(payload.Entries))
	}
}
