package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/repository"
	"github.com/whoamaiii/sensetrack/internal/worker"
)

// ExportOptions narrows and anonymizes an export.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	Anonymize bool
}

type exportService struct {
	trackingRepo repository.TrackingRepository
	jobs         *worker.Worker
}

// NewExportService creates an export service backed by the reports worker.
func NewExportService(trackingRepo repository.TrackingRepository, jobs *worker.Worker) ExportService {
	return &exportService{trackingRepo: trackingRepo, jobs: jobs}
}

// RunExport loads the student's records, runs the export inline and
// returns the terminal worker message (a rendered document or an error).
func (s *exportService) RunExport(ctx context.Context, studentID string, kind worker.Kind, opts ExportOptions) (worker.Message, error) {
	req, err := s.buildRequest(ctx, studentID, kind, opts)
	if err != nil {
		return worker.Message{}, err
	}
	messages := s.jobs.Handle(req)
	if len(messages) == 0 {
		return worker.Message{}, fmt.Errorf("export job %s produced no messages", req.ID)
	}
	return messages[len(messages)-1], nil
}

// SubmitExport loads the student's records, queues an export job and
// returns the request id the caller can correlate worker messages by.
func (s *exportService) SubmitExport(ctx context.Context, studentID string, kind worker.Kind, opts ExportOptions) (string, error) {
	req, err := s.buildRequest(ctx, studentID, kind, opts)
	if err != nil {
		return "", err
	}
	if err := s.jobs.Submit(ctx, req); err != nil {
		return "", fmt.Errorf("submitting export job: %w", err)
	}
	return req.ID, nil
}

func (s *exportService) buildRequest(ctx context.Context, studentID string, kind worker.Kind, opts ExportOptions) (worker.Request, error) {
	// A fully bounded range narrows the entry query; open-ended ranges
	// load everything and let the worker filter.
	var entries []models.TrackingEntry
	var err error
	if opts.From != nil && opts.To != nil {
		entries, err = s.trackingRepo.GetEntriesByStudentAndDateRange(ctx, studentID, *opts.From, *opts.To)
	} else {
		entries, err = s.trackingRepo.GetEntriesByStudent(ctx, studentID)
	}
	if err != nil {
		return worker.Request{}, fmt.Errorf("loading tracking entries: %w", err)
	}
	emotions, err := s.trackingRepo.GetEmotionsByStudent(ctx, studentID)
	if err != nil {
		return worker.Request{}, fmt.Errorf("loading emotion entries: %w", err)
	}
	sensory, err := s.trackingRepo.GetSensoryByStudent(ctx, studentID)
	if err != nil {
		return worker.Request{}, fmt.Errorf("loading sensory entries: %w", err)
	}

	return worker.Request{
		ID:   uuid.New().String(),
		Kind: kind,
		Payload: worker.ExportPayload{
			Entries:   entries,
			Emotions:  emotions,
			Sensory:   sensory,
			From:      opts.From,
			To:        opts.To,
			Anonymize: opts.Anonymize,
		},
	}, nil
}
