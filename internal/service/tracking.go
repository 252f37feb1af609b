package service

import (
	"context"
	"fmt"

	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/repository"
)

type trackingService struct {
	trackingRepo repository.TrackingRepository
	studentRepo  repository.StudentRepository
	insights     InsightsService
}

// NewTrackingService creates a tracking service. Saved entries invalidate
// the student's cached insights so the next read recomputes.
func NewTrackingService(
	trackingRepo repository.TrackingRepository,
	studentRepo repository.StudentRepository,
	insightsService InsightsService,
) TrackingService {
	return &trackingService{
		trackingRepo: trackingRepo,
		studentRepo:  studentRepo,
		insights:     insightsService,
	}
}

func (s *trackingService) RecordEntry(ctx context.Context, studentID string, req *models.CreateTrackingEntryRequest) (*models.TrackingEntry, error) {
	if _, err := s.studentRepo.GetByID(ctx, studentID); err != nil {
		return nil, fmt.Errorf("looking up student: %w", err)
	}

	entry := &models.TrackingEntry{
		StudentID:         studentID,
		Timestamp:         req.Timestamp,
		Emotions:          req.Emotions,
		SensoryInputs:     req.SensoryInputs,
		EnvironmentalData: req.EnvironmentalData,
		Notes:             req.Notes,
		GeneralNotes:      req.GeneralNotes,
	}

	created, err := s.trackingRepo.CreateEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("saving tracking entry: %w", err)
	}

	if s.insights != nil {
		s.insights.Invalidate(studentID)
	}
	return created, nil
}

func (s *trackingService) GetEntries(ctx context.Context, studentID string) ([]models.TrackingEntry, error) {
	return s.trackingRepo.GetEntriesByStudent(ctx, studentID)
}
