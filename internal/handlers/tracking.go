package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whoamaiii/sensetrack/internal/apierror"
	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/service"
)

type TrackingHandler struct {
	trackingService service.TrackingService
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(trackingService service.TrackingService) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
	}
}

// CreateEntry handles POST /api/v1/students/:studentId/entries
func (h *TrackingHandler) CreateEntry(c *gin.Context) {
	studentID := c.Param("studentId")
	if studentID == "" {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, "missing studentId path parameter", "A student identifier is required"))
		return
	}

	// Bind to RawCreateTrackingEntryRequest for manual parsing and aggregated validation
	var raw models.RawCreateTrackingEntryRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		// JSON syntax error (not field-level)
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "Invalid JSON format"))
		return
	}

	var fieldErrors []apierror.FieldError
	var req models.CreateTrackingEntryRequest

	// Parse and validate timestamp (required)
	if raw.Timestamp == "" {
		fieldErrors = append(fieldErrors, apierror.FieldError{
			Field:   "timestamp",
			Message: "is required",
			Code:    "required",
		})
	} else {
		ts, err := time.Parse(time.RFC3339, raw.Timestamp)
		if err != nil {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   "timestamp",
				Message: "must be a valid RFC3339 timestamp",
				Code:    "invalid_format",
			})
		} else {
			req.Timestamp = ts
		}
	}

	// Validate nested emotion records
	for i, emotion := range raw.Emotions {
		if emotion.Emotion == "" {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   fmt.Sprintf("emotions[%d].emotion", i),
				Message: "is required",
				Code:    "required",
			})
		}
		if math.IsNaN(emotion.Intensity) || math.IsInf(emotion.Intensity, 0) {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   fmt.Sprintf("emotions[%d].intensity", i),
				Message: "must be a finite number",
				Code:    "invalid_value",
			})
		}
	}

	// Validate nested sensory records
	for i, sensory := range raw.SensoryInputs {
		if sensory.SensoryType == "" {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   fmt.Sprintf("sensory_inputs[%d].sensory_type", i),
				Message: "is required",
				Code:    "required",
			})
		}
		if sensory.Intensity != nil && (math.IsNaN(*sensory.Intensity) || math.IsInf(*sensory.Intensity, 0)) {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   fmt.Sprintf("sensory_inputs[%d].intensity", i),
				Message: "must be a finite number",
				Code:    "invalid_value",
			})
		}
	}

	// Copy remaining fields
	req.Emotions = raw.Emotions
	req.SensoryInputs = raw.SensoryInputs
	req.EnvironmentalData = raw.EnvironmentalData
	req.Notes = raw.Notes
	req.GeneralNotes = raw.GeneralNotes

	// Return aggregated errors if any
	if len(fieldErrors) > 0 {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewValidationError(requestID, fieldErrors))
		return
	}

	entry, err := h.trackingService.RecordEntry(c.Request.Context(), studentID, &req)
	if err != nil {
		requestID := apierror.GetRequestID(c)
		log := logger.Ctx(c.Request.Context())

		if service.IsNotFound(err) {
			apierror.WriteProblem(c, apierror.NewNotFoundError(requestID, "student", studentID))
			return
		}

		log.Error("failed to record tracking entry", logger.Err(err), logger.String("student_id", studentID))
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GetEntries handles GET /api/v1/students/:studentId/entries
func (h *TrackingHandler) GetEntries(c *gin.Context) {
	studentID := c.Param("studentId")
	if studentID == "" {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, "missing studentId path parameter", "A student identifier is required"))
		return
	}

	entries, err := h.trackingService.GetEntries(c.Request.Context(), studentID)
	if err != nil {
		requestID := apierror.GetRequestID(c)
		logger.Ctx(c.Request.Context()).Error("failed to list tracking entries", logger.Err(err), logger.String("student_id", studentID))
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}
