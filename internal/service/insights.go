package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/whoamaiii/sensetrack/internal/analysis"
	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/insights"
	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/repository"
)

// InsightsEngine computes analytics for one set of inputs.
type InsightsEngine interface {
	Compute(ctx context.Context, inputs insights.Inputs) models.AnalyticsResults
}

type insightsService struct {
	trackingRepo repository.TrackingRepository
	goalRepo     repository.GoalRepository
	engine       InsightsEngine
	mu           sync.RWMutex
	cfg          config.AnalyticsConfig
	cache        *resultsCache
	log          logger.Logger
}

// NewInsightsService creates an insights service with a TTL result cache
// sized from the analytics cache configuration.
func NewInsightsService(
	trackingRepo repository.TrackingRepository,
	goalRepo repository.GoalRepository,
	engine InsightsEngine,
	cfg config.AnalyticsConfig,
	log logger.Logger,
) InsightsService {
	return &insightsService{
		trackingRepo: trackingRepo,
		goalRepo:     goalRepo,
		engine:       engine,
		cfg:          cfg,
		cache:        newResultsCache(cfg.Cache.MaxSize, time.Now),
		log:          log,
	}
}

func (s *insightsService) GetInsights(ctx context.Context, studentID string) (models.AnalyticsResults, error) {
	inputs, err := s.loadInputs(ctx, studentID)
	if err != nil {
		return models.AnalyticsResults{}, err
	}

	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	task := insights.BuildTask(inputs, insights.Options{Config: &cfg})
	if cached, ok := s.cache.get(studentID, task.CacheKey); ok {
		s.log.Debug("insights cache hit",
			logger.String("student_id", studentID),
			logger.String("cache_key", task.CacheKey),
		)
		return cached, nil
	}

	results := s.engine.Compute(ctx, inputs)
	s.cache.put(studentID, task.CacheKey, results, time.Duration(task.TTLSeconds)*time.Second)
	s.log.Info("insights computed",
		logger.String("student_id", studentID),
		logger.Int("patterns", len(results.Patterns)),
		logger.Float64("confidence", results.Confidence),
	)
	return results, nil
}

// GetAlerts evaluates the trigger alert rules against the student's recent
// emotion and tracking data. Alerts are not cached: they are cheap to compute
// and must reflect the latest writes immediately.
func (s *insightsService) GetAlerts(ctx context.Context, studentID string) ([]models.TriggerAlert, error) {
	inputs, err := s.loadInputs(ctx, studentID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	alerts := analysis.New(cfg).TriggerAlerts(inputs.Emotions, inputs.Entries, studentID)
	s.log.Debug("trigger alerts evaluated",
		logger.String("student_id", studentID),
		logger.Int("alerts", len(alerts)),
	)
	return alerts, nil
}

func (s *insightsService) Invalidate(studentID string) {
	s.cache.invalidate(studentID)
}

// UpdateConfig swaps the analytics configuration after a hot reload. The
// next GetInsights builds task envelopes (and cache keys) from the new
// thresholds, so stale cached results miss without explicit invalidation.
func (s *insightsService) UpdateConfig(cfg config.AnalyticsConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *insightsService) loadInputs(ctx context.Context, studentID string) (insights.Inputs, error) {
	entries, err := s.trackingRepo.GetEntriesByStudent(ctx, studentID)
	if err != nil {
		return insights.Inputs{}, fmt.Errorf("loading tracking entries: %w", err)
	}
	emotions, err := s.trackingRepo.GetEmotionsByStudent(ctx, studentID)
	if err != nil {
		return insights.Inputs{}, fmt.Errorf("loading emotion entries: %w", err)
	}
	sensory, err := s.trackingRepo.GetSensoryByStudent(ctx, studentID)
	if err != nil {
		return insights.Inputs{}, fmt.Errorf("loading sensory entries: %w", err)
	}
	goals, err := s.goalRepo.GetByStudent(ctx, studentID)
	if err != nil {
		return insights.Inputs{}, fmt.Errorf("loading goals: %w", err)
	}
	return insights.Inputs{Entries: entries, Emotions: emotions, Sensory: sensory, Goals: goals}, nil
}
