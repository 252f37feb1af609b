package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/whoamaiii/sensetrack/internal/apierror"
	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/service"
)

// InsightsHandler handles insights-related HTTP requests
type InsightsHandler struct {
	insightsService service.InsightsService
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(insightsService service.InsightsService) *InsightsHandler {
	return &InsightsHandler{
		insightsService: insightsService,
	}
}

// GetStudentInsights returns the analytics results for one student.
// Results are served from the insights cache when the underlying data
// has not changed since the last computation.
// GET /api/v1/students/:studentId/insights
func (h *InsightsHandler) GetStudentInsights(c *gin.Context) {
	studentID := c.Param("studentId")
	if studentID == "" {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, "missing studentId path parameter", "A student identifier is required"))
		return
	}

	log := logger.Ctx(c.Request.Context())

	results, err := h.insightsService.GetInsights(c.Request.Context(), studentID)
	if err != nil {
		log.Error("failed to get insights", logger.Err(err), logger.String("student_id", studentID))
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetStudentAlerts returns active trigger alerts for one student. Alerts
// are computed on demand from the latest data rather than served from the
// insights cache.
// GET /api/v1/students/:studentId/alerts
func (h *InsightsHandler) GetStudentAlerts(c *gin.Context) {
	studentID := c.Param("studentId")
	if studentID == "" {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, "missing studentId path parameter", "A student identifier is required"))
		return
	}

	log := logger.Ctx(c.Request.Context())

	alerts, err := h.insightsService.GetAlerts(c.Request.Context(), studentID)
	if err != nil {
		log.Error("failed to get trigger alerts", logger.Err(err), logger.String("student_id", studentID))
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}
	if alerts == nil {
		alerts = []models.TriggerAlert{}
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// RefreshStudentInsights drops the cached results so the next read recomputes.
// POST /api/v1/students/:studentId/insights/refresh
func (h *InsightsHandler) RefreshStudentInsights(c *gin.Context) {
	studentID := c.Param("studentId")
	if studentID == "" {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, "missing studentId path parameter", "A student identifier is required"))
		return
	}

	h.insightsService.Invalidate(studentID)

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Insights cache invalidated",
	})
}
