package service

import (
	"context"

	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/worker"
)

// TrackingService defines the interface for tracking session business logic
type TrackingService interface {
	RecordEntry(ctx context.Context, studentID string, req *models.CreateTrackingEntryRequest) (*models.TrackingEntry, error)
	GetEntries(ctx context.Context, studentID string) ([]models.TrackingEntry, error)
}

// InsightsService defines the interface for analytics business logic.
// GetInsights serves from a TTL cache keyed by the insights task cache key;
// writes through TrackingService invalidate the affected student.
// UpdateConfig swaps the analytics thresholds on config hot reload; the
// config subset is part of the cache key, so cached results miss naturally.
type InsightsService interface {
	GetInsights(ctx context.Context, studentID string) (models.AnalyticsResults, error)
	GetAlerts(ctx context.Context, studentID string) ([]models.TriggerAlert, error)
	Invalidate(studentID string)
	UpdateConfig(cfg config.AnalyticsConfig)
}

// ExportService defines the interface for report export business logic.
// RunExport generates the report inline and returns the terminal worker
// message; SubmitExport queues the job on the background worker instead.
type ExportService interface {
	RunExport(ctx context.Context, studentID string, kind worker.Kind, opts ExportOptions) (worker.Message, error)
	SubmitExport(ctx context.Context, studentID string, kind worker.Kind, opts ExportOptions) (string, error)
}

// StudentService defines the interface for student profile business logic
type StudentService interface {
	Create(ctx context.Context, req *models.CreateStudentRequest) (*models.Student, error)
	GetByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, limit, offset int) ([]models.Student, error)
	Delete(ctx context.Context, id string) error
}
