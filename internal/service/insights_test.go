package service

import (
	"context"
	"testing"
	"time"

	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/insights"
	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/models"
)

type mockTrackingRepo struct {
	entries  []models.TrackingEntry
	emotions []models.EmotionEntry
	sensory  []models.SensoryEntry
}

func (m *mockTrackingRepo) CreateEntry(_ context.Context, entry *models.TrackingEntry) (*models.TrackingEntry, error) {
	m.entries = append(m.entries, *entry)
	return entry, nil
}

func (m *mockTrackingRepo) GetEntryByID(context.Context, string) (*models.TrackingEntry, error) {
	return nil, nil
}

func (m *mockTrackingRepo) GetEntriesByStudent(context.Context, string) ([]models.TrackingEntry, error) {
	return m.entries, nil
}

func (m *mockTrackingRepo) GetEntriesByStudentAndDateRange(context.Context, string, time.Time, time.Time) ([]models.TrackingEntry, error) {
	return m.entries, nil
}

func (m *mockTrackingRepo) GetEmotionsByStudent(context.Context, string) ([]models.EmotionEntry, error) {
	return m.emotions, nil
}

func (m *mockTrackingRepo) GetSensoryByStudent(context.Context, string) ([]models.SensoryEntry, error) {
	return m.sensory, nil
}

func (m *mockTrackingRepo) DeleteEntry(context.Context, string) error { return nil }

type mockGoalRepo struct{}

func (m *mockGoalRepo) Create(_ context.Context, goal *models.Goal) (*models.Goal, error) {
	return goal, nil
}

func (m *mockGoalRepo) GetByStudent(context.Context, string) ([]models.Goal, error) {
	return []models.Goal{}, nil
}

func (m *mockGoalRepo) AddDataPoint(context.Context, string, models.GoalDataPoint) error {
	return nil
}

type mockStudentRepo struct{}

func (m *mockStudentRepo) Create(_ context.Context, s *models.Student) (*models.Student, error) {
	return s, nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id, Name: "Test Student"}, nil
}

func (m *mockStudentRepo) List(context.Context, int, int) ([]models.Student, error) {
	return nil, nil
}

func (m *mockStudentRepo) Delete(context.Context, string) error { return nil }

type countingEngine struct {
	calls int
}

func (e *countingEngine) Compute(_ context.Context, inputs insights.Inputs) models.AnalyticsResults {
	e.calls++
	results := models.EmptyAnalyticsResults()
	results.HasMinimumData = len(inputs.Entries) > 0
	return results
}

func newTestInsightsService(repo *mockTrackingRepo, engine *countingEngine) InsightsService {
	return NewInsightsService(repo, &mockGoalRepo{}, engine, config.DefaultAnalyticsConfig(), logger.Default())
}

func seededRepo() *mockTrackingRepo {
	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	return &mockTrackingRepo{
		entries: []models.TrackingEntry{
			{ID: "t1", StudentID: "s1", Timestamp: ts},
		},
		emotions: []models.EmotionEntry{},
		sensory:  []models.SensoryEntry{},
	}
}

func TestGetInsightsCachesResults(t *testing.T) {
	engine := &countingEngine{}
	svc := newTestInsightsService(seededRepo(), engine)

	for i := 0; i < 3; i++ {
		if _, err := svc.GetInsights(context.Background(), "s1"); err != nil {
			t.Fatalf("get insights: %v", err)
		}
	}
	if engine.calls != 1 {
		t.Errorf("engine called %d times, want 1 (cached)", engine.calls)
	}
}

func TestGetInsightsRecomputesOnDataChange(t *testing.T) {
	engine := &countingEngine{}
	repo := seededRepo()
	svc := newTestInsightsService(repo, engine)

	if _, err := svc.GetInsights(context.Background(), "s1"); err != nil {
		t.Fatalf("get insights: %v", err)
	}

	repo.entries = append(repo.entries, models.TrackingEntry{
		ID: "t2", StudentID: "s1", Timestamp: time.Date(2024, 6, 16, 9, 0, 0, 0, time.UTC),
	})

	if _, err := svc.GetInsights(context.Background(), "s1"); err != nil {
		t.Fatalf("get insights: %v", err)
	}
	if engine.calls != 2 {
		t.Errorf("engine called %d times, want 2 (data changed the cache key)", engine.calls)
	}
}

func TestGetInsightsRecomputesAfterInvalidate(t *testing.T) {
	engine := &countingEngine{}
	svc := newTestInsightsService(seededRepo(), engine)

	if _, err := svc.GetInsights(context.Background(), "s1"); err != nil {
		t.Fatalf("get insights: %v", err)
	}
	svc.Invalidate("s1")
	if _, err := svc.GetInsights(context.Background(), "s1"); err != nil {
		t.Fatalf("get insights: %v", err)
	}
	if engine.calls != 2 {
		t.Errorf("engine called %d times, want 2 after invalidation", engine.calls)
	}
}

func TestRecordEntryInvalidatesInsights(t *testing.T) {
	engine := &countingEngine{}
	repo := seededRepo()
	insightsSvc := newTestInsightsService(repo, engine)
	trackingSvc := NewTrackingService(repo, &mockStudentRepo{}, insightsSvc)

	if _, err := insightsSvc.GetInsights(context.Background(), "s1"); err != nil {
		t.Fatalf("get insights: %v", err)
	}

	req := &models.CreateTrackingEntryRequest{Timestamp: time.Date(2024, 6, 17, 8, 0, 0, 0, time.UTC)}
	if _, err := trackingSvc.RecordEntry(context.Background(), "s1", req); err != nil {
		t.Fatalf("record entry: %v", err)
	}

	if _, err := insightsSvc.GetInsights(context.Background(), "s1"); err != nil {
		t.Fatalf("get insights: %v", err)
	}
	if engine.calls != 2 {
		t.Errorf("engine called %d times, want 2 after a write", engine.calls)
	}
}

func TestGetAlertsHighStress(t *testing.T) {
	repo := seededRepo()
	now := time.Now()
	for i := 0; i < 3; i++ {
		repo.emotions = append(repo.emotions, models.EmotionEntry{
			StudentID: "s1",
			Emotion:   "anxious",
			Intensity: 5,
			Timestamp: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	svc := newTestInsightsService(repo, &countingEngine{})

	alerts, err := svc.GetAlerts(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get alerts: %v", err)
	}
	if len(alerts) == 0 {
		t.Fatal("expected a concern alert for repeated high-intensity stress")
	}
	if alerts[0].Type != models.AlertConcern || alerts[0].Severity != models.SeverityHigh {
		t.Errorf("alert = %s/%s, want concern/high", alerts[0].Type, alerts[0].Severity)
	}
	if alerts[0].StudentID != "s1" {
		t.Errorf("student_id = %q, want s1", alerts[0].StudentID)
	}
}

func TestGetAlertsEmptyData(t *testing.T) {
	svc := newTestInsightsService(seededRepo(), &countingEngine{})

	alerts, err := svc.GetAlerts(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get alerts: %v", err)
	}
	if alerts == nil || len(alerts) != 0 {
		t.Errorf("alerts = %v, want empty non-nil slice", alerts)
	}
}

func TestResultsCacheEviction(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cache := newResultsCache(2, func() time.Time { return now })

	cache.put("a", "k1", models.EmptyAnalyticsResults(), time.Minute)
	cache.put("b", "k2", models.EmptyAnalyticsResults(), 2*time.Minute)
	cache.put("c", "k3", models.EmptyAnalyticsResults(), 3*time.Minute)

	if _, ok := cache.get("a", "k1"); ok {
		t.Error("oldest slot should have been evicted")
	}
	if _, ok := cache.get("c", "k3"); !ok {
		t.Error("newest slot missing")
	}
}

func TestResultsCacheTTLExpiry(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cache := newResultsCache(10, func() time.Time { return now })
	cache.put("a", "k1", models.EmptyAnalyticsResults(), time.Minute)

	now = now.Add(2 * time.Minute)
	if _, ok := cache.get("a", "k1"); ok {
		t.Error("expired slot served")
	}
}

func TestResultsCacheKeyMismatch(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cache := newResultsCache(10, func() time.Time { return now })
	cache.put("a", "k1", models.EmptyAnalyticsResults(), time.Minute)
	if _, ok := cache.get("a", "other-key"); ok {
		t.Error("stale key served")
	}
}
