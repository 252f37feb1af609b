package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whoamaiii/sensetrack/internal/apierror"
	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/service"
	"github.com/whoamaiii/sensetrack/internal/worker"
)

type ExportHandler struct {
	exportService service.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// CreateExportRequest is the request body for generating a report
type CreateExportRequest struct {
	StudentID string `json:"student_id"`
	Format    string `json:"format"`
	From      string `json:"from"`
	To        string `json:"to"`
	Anonymize bool   `json:"anonymize"`
	Async     bool   `json:"async"`
}

// CreateExport handles POST /api/v1/exports.
// By default the report is generated inline and the rendered document is
// returned in the response body. With async=true the job is queued on the
// background worker and only the request id is returned.
func (h *ExportHandler) CreateExport(c *gin.Context) {
	var req CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "Invalid JSON format"))
		return
	}

	var fieldErrors []apierror.FieldError

	if req.StudentID == "" {
		fieldErrors = append(fieldErrors, apierror.FieldError{
			Field:   "student_id",
			Message: "is required",
			Code:    "required",
		})
	}

	kind := worker.Kind(req.Format)
	if req.Format == "" {
		kind = worker.KindJSON
	} else if kind != worker.KindCSV && kind != worker.KindJSON {
		fieldErrors = append(fieldErrors, apierror.FieldError{
			Field:   "format",
			Message: "must be one of: csv, json",
			Code:    "invalid_value",
		})
	}

	opts := service.ExportOptions{Anonymize: req.Anonymize}
	if req.From != "" {
		from, err := parseExportTime(req.From)
		if err != nil {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   "from",
				Message: "must be an RFC3339 timestamp or YYYY-MM-DD date",
				Code:    "invalid_format",
			})
		} else {
			opts.From = &from
		}
	}
	if req.To != "" {
		to, err := parseExportTime(req.To)
		if err != nil {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   "to",
				Message: "must be an RFC3339 timestamp or YYYY-MM-DD date",
				Code:    "invalid_format",
			})
		} else {
			opts.To = &to
		}
	}

	if len(fieldErrors) > 0 {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewValidationError(requestID, fieldErrors))
		return
	}

	log := logger.Ctx(c.Request.Context())

	if req.Async {
		id, err := h.exportService.SubmitExport(c.Request.Context(), req.StudentID, kind, opts)
		if err != nil {
			requestID := apierror.GetRequestID(c)
			log.Error("failed to submit export", logger.Err(err), logger.String("student_id", req.StudentID))
			apierror.WriteProblem(c, apierror.NewInternalError(requestID))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"request_id": id,
			"status":     "queued",
		})
		return
	}

	terminal, err := h.exportService.RunExport(c.Request.Context(), req.StudentID, kind, opts)
	if err != nil {
		requestID := apierror.GetRequestID(c)
		log.Error("failed to run export", logger.Err(err), logger.String("student_id", req.StudentID))
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}
	if terminal.Type == worker.MessageError {
		requestID := apierror.GetRequestID(c)
		log.Error("export job failed",
			logger.String("request_id", terminal.ID),
			logger.String("error", terminal.Error),
		)
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}

	c.Header("X-Export-Request-ID", terminal.ID)
	switch terminal.Kind {
	case worker.KindCSV:
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName(req.StudentID, "csv")))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(terminal.Content))
	default:
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(terminal.Content))
	}
}

func parseExportTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", value)
}

func exportFileName(studentID, ext string) string {
	return fmt.Sprintf("sensetrack-export-%s.%s", studentID, ext)
}
