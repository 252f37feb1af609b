package repository

import (
	"context"
	"time"

	"github.com/whoamaiii/sensetrack/internal/models"
)

// StudentRepository defines the interface for student data access
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) (*models.Student, error)
	GetByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, limit, offset int) ([]models.Student, error)
	Delete(ctx context.Context, id string) error
}

// TrackingRepository defines the interface for tracking session data access.
// Entries returned by the Get methods carry their nested emotion and
// sensory records.
type TrackingRepository interface {
	CreateEntry(ctx context.Context, entry *models.TrackingEntry) (*models.TrackingEntry, error)
	GetEntryByID(ctx context.Context, id string) (*models.TrackingEntry, error)
	GetEntriesByStudent(ctx context.Context, studentID string) ([]models.TrackingEntry, error)
	GetEntriesByStudentAndDateRange(ctx context.Context, studentID string, start, end time.Time) ([]models.TrackingEntry, error)
	GetEmotionsByStudent(ctx context.Context, studentID string) ([]models.EmotionEntry, error)
	GetSensoryByStudent(ctx context.Context, studentID string) ([]models.SensoryEntry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// GoalRepository defines the interface for goal data access
type GoalRepository interface {
	Create(ctx context.Context, goal *models.Goal) (*models.Goal, error)
	GetByStudent(ctx context.Context, studentID string) ([]models.Goal, error)
	AddDataPoint(ctx context.Context, goalID string, point models.GoalDataPoint) error
}
