package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/repository"
)

type studentService struct {
	studentRepo repository.StudentRepository
	insights    InsightsService
}

// NewStudentService creates a student service. Deleting a student also
// drops their cached insights.
func NewStudentService(studentRepo repository.StudentRepository, insightsService InsightsService) StudentService {
	return &studentService{
		studentRepo: studentRepo,
		insights:    insightsService,
	}
}

func (s *studentService) Create(ctx context.Context, req *models.CreateStudentRequest) (*models.Student, error) {
	student := &models.Student{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Grade: req.Grade,
		Notes: req.Notes,
	}
	created, err := s.studentRepo.Create(ctx, student)
	if err != nil {
		return nil, fmt.Errorf("creating student: %w", err)
	}
	return created, nil
}

func (s *studentService) GetByID(ctx context.Context, id string) (*models.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

func (s *studentService) List(ctx context.Context, limit, offset int) ([]models.Student, error) {
	return s.studentRepo.List(ctx, limit, offset)
}

func (s *studentService) Delete(ctx context.Context, id string) error {
	if err := s.studentRepo.Delete(ctx, id); err != nil {
		return err
	}
	if s.insights != nil {
		s.insights.Invalidate(id)
	}
	return nil
}
