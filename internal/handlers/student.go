package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/whoamaiii/sensetrack/internal/apierror"
	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/service"
)

type StudentHandler struct {
	studentService service.StudentService
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(studentService service.StudentService) *StudentHandler {
	return &StudentHandler{
		studentService: studentService,
	}
}

// CreateStudent handles POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req models.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestID := apierror.GetRequestID(c)

		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			fieldErrors := make([]apierror.FieldError, 0, len(validationErrs))
			for _, fe := range validationErrs {
				fieldErrors = append(fieldErrors, apierror.FieldError{
					Field:   strings.ToLower(fe.Field()),
					Message: "failed validation rule: " + fe.Tag(),
					Code:    fe.Tag(),
				})
			}
			apierror.WriteProblem(c, apierror.NewValidationError(requestID, fieldErrors))
			return
		}

		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "Invalid JSON format"))
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), &req)
	if err != nil {
		requestID := apierror.GetRequestID(c)
		logger.Ctx(c.Request.Context()).Error("failed to create student", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}

	c.JSON(http.StatusCreated, student)
}

// GetStudent handles GET /api/v1/students/:studentId
func (h *StudentHandler) GetStudent(c *gin.Context) {
	studentID := c.Param("studentId")

	student, err := h.studentService.GetByID(c.Request.Context(), studentID)
	if err != nil {
		requestID := apierror.GetRequestID(c)
		if service.IsNotFound(err) {
			apierror.WriteProblem(c, apierror.NewNotFoundError(requestID, "student", studentID))
			return
		}
		logger.Ctx(c.Request.Context()).Error("failed to get student", logger.Err(err), logger.String("student_id", studentID))
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}

	c.JSON(http.StatusOK, student)
}

// ListStudents handles GET /api/v1/students
func (h *StudentHandler) ListStudents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	students, err := h.studentService.List(c.Request.Context(), limit, offset)
	if err != nil {
		requestID := apierror.GetRequestID(c)
		logger.Ctx(c.Request.Context()).Error("failed to list students", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"students": students,
		"count":    len(students),
	})
}

// DeleteStudent handles DELETE /api/v1/students/:studentId
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	studentID := c.Param("studentId")

	if err := h.studentService.Delete(c.Request.Context(), studentID); err != nil {
		requestID := apierror.GetRequestID(c)
		if service.IsNotFound(err) {
			apierror.WriteProblem(c, apierror.NewNotFoundError(requestID, "student", studentID))
			return
		}
		logger.Ctx(c.Request.Context()).Error("failed to delete student", logger.Err(err), logger.String("student_id", studentID))
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}

	c.Status(http.StatusNoContent)
}
