package insights

import (
	"context"
	"testing"
	"time"

	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/models"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngineWithClock(config.DefaultAnalyticsConfig(), logger.Default(), func() time.Time { return testNow })
}

func makeInputs(entries, emotions, sensory int) Inputs {
	in := Inputs{
		Entries:  []models.TrackingEntry{},
		Emotions: []models.EmotionEntry{},
		Sensory:  []models.SensoryEntry{},
	}
	for i := 0; i < entries; i++ {
		in.Entries = append(in.Entries, models.TrackingEntry{
			ID:        "t",
			StudentID: "s1",
			Timestamp: testNow.AddDate(0, 0, -i),
		})
	}
	for i := 0; i < emotions; i++ {
		in.Emotions = append(in.Emotions, models.EmotionEntry{
			Emotion:   "happy",
			Intensity: 3,
			Timestamp: testNow.AddDate(0, 0, -i),
		})
	}
	for i := 0; i < sensory; i++ {
		in.Sensory = append(in.Sensory, models.SensoryEntry{
			Response:  "neutral",
			Timestamp: testNow.AddDate(0, 0, -i),
		})
	}
	return in
}

func assertTotalShape(t *testing.T, r models.AnalyticsResults) {
	t.Helper()
	if r.Patterns == nil || r.Correlations == nil || r.EnvironmentalCorrelations == nil ||
		r.PredictiveInsights == nil || r.Anomalies == nil || r.Insights == nil ||
		r.SuggestedInterventions == nil {
		t.Fatalf("result has nil slice fields: %+v", r)
	}
}

func TestBuildCacheKeyOrderInsensitive(t *testing.T) {
	in := makeInputs(3, 4, 2)
	key1 := BuildCacheKey(in, Options{})

	reversed := Inputs{
		Entries:  reverse(in.Entries),
		Emotions: reverse(in.Emotions),
		Sensory:  reverse(in.Sensory),
	}
	key2 := BuildCacheKey(reversed, Options{})
	if key1 != key2 {
		t.Errorf("reordering inputs changed key: %q vs %q", key1, key2)
	}
}

func reverse[T any](s []T) []T {
	out := make([]T, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func TestBuildCacheKeySensitiveToCounts(t *testing.T) {
	base := BuildCacheKey(makeInputs(3, 4, 2), Options{})
	more := BuildCacheKey(makeInputs(3, 5, 2), Options{})
	if base == more {
		t.Error("adding an emotion entry did not change the key")
	}

	in := makeInputs(3, 4, 2)
	in.Entries[0].Timestamp = testNow.Add(time.Hour)
	if moved := BuildCacheKey(in, Options{}); moved == base {
		t.Error("changing latest timestamp did not change the key")
	}
}

func TestBuildTaskEnvelope(t *testing.T) {
	task := BuildTask(makeInputs(1, 1, 1), Options{Tags: []string{"custom", "insights"}})
	if task.Type != TaskType {
		t.Errorf("type = %q", task.Type)
	}
	if task.CacheKey == "" {
		t.Error("cache key missing")
	}
	want := map[string]bool{"insights": true, "v2": true, "custom": true}
	if len(task.Tags) != len(want) {
		t.Fatalf("tags = %v, want exactly %v", task.Tags, want)
	}
	for _, tag := range task.Tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
	}
}

func TestResolveTTL(t *testing.T) {
	if got := resolveTTLSeconds(Options{TTLSeconds: 120}); got != 120 {
		t.Errorf("explicit ttl = %d, want 120", got)
	}

	cfg := config.DefaultAnalyticsConfig()
	cfg.Cache.TTLMillis = 5500
	if got := resolveTTLSeconds(Options{Config: &cfg}); got != 5 {
		t.Errorf("ms conversion ttl = %d, want 5 (floored)", got)
	}

	cfg.Cache.TTLMillis = 400
	if got := resolveTTLSeconds(Options{Config: &cfg}); got != 1 {
		t.Errorf("sub-second ttl = %d, want minimum 1", got)
	}

	cfg.Cache.TTLMillis = 0
	if got := resolveTTLSeconds(Options{Config: &cfg}); got != DefaultTTLSeconds {
		t.Errorf("fallback ttl = %d, want %d", got, DefaultTTLSeconds)
	}

	// default config carries a 10 minute TTL
	if got := resolveTTLSeconds(Options{}); got != 600 {
		t.Errorf("default config ttl = %d, want 600", got)
	}
}

func TestComputeInvalidInput(t *testing.T) {
	e := testEngine()
	result := e.Compute(context.Background(), Inputs{})
	if result.Error != ErrCodeInvalidInput {
		t.Errorf("error = %q, want %q", result.Error, ErrCodeInvalidInput)
	}
	if result.Confidence != 0 || result.HasMinimumData {
		t.Errorf("sentinel result carries data: %+v", result)
	}
	assertTotalShape(t, result)
}

func TestComputeEmptyInputs(t *testing.T) {
	e := testEngine()
	result := e.Compute(context.Background(), makeInputs(0, 0, 0))
	if result.Error != "" {
		t.Errorf("unexpected error %q", result.Error)
	}
	if result.HasMinimumData {
		t.Error("empty inputs reported minimum data")
	}
	assertTotalShape(t, result)
	if len(result.Insights) == 0 {
		t.Error("insights must never be empty")
	}
}

func TestComputeCorrelationGating(t *testing.T) {
	e := testEngine()

	below := e.Compute(context.Background(), makeInputs(2, 1, 0))
	if len(below.Correlations) != 0 {
		t.Errorf("correlations ran below the minimum entry count: %+v", below.Correlations)
	}

	// At the threshold the computation is attempted; with no environmental
	// data it still yields an empty (but computed) slice.
	at := e.Compute(context.Background(), makeInputs(3, 1, 0))
	assertTotalShape(t, at)
	if !at.HasMinimumData {
		t.Error("expected minimum data at threshold")
	}
}

func TestComputeNeverPanics(t *testing.T) {
	e := testEngine()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Compute panicked: %v", r)
		}
	}()
	in := makeInputs(5, 5, 5)
	in.Entries[2].EnvironmentalData = &models.EnvironmentalData{}
	result := e.Compute(context.Background(), in)
	assertTotalShape(t, result)
}

func TestCalculateConfidence(t *testing.T) {
	cfg := config.DefaultAnalyticsConfig().Confidence

	full := makeInputs(5, 10, 10)
	got := CalculateConfidence(full.Emotions, full.Sensory, full.Entries, cfg, testNow)
	if got != 1 {
		t.Errorf("saturated confidence = %v, want 1", got)
	}

	partial := makeInputs(0, 5, 0)
	got = CalculateConfidence(partial.Emotions, partial.Sensory, partial.Entries, cfg, testNow)
	if got != 0.15 {
		t.Errorf("partial confidence = %v, want 0.15", got)
	}

	if got := CalculateConfidence(nil, nil, nil, cfg, testNow); got != 0 {
		t.Errorf("empty confidence = %v, want 0", got)
	}
}

func TestCalculateConfidenceRecencyBoundary(t *testing.T) {
	cfg := config.DefaultAnalyticsConfig().Confidence

	recent := []models.TrackingEntry{{Timestamp: testNow.AddDate(0, 0, -6)}}
	stale := []models.TrackingEntry{{Timestamp: testNow.AddDate(0, 0, -8)}}

	withBoost := CalculateConfidence(nil, nil, recent, cfg, testNow)
	withoutBoost := CalculateConfidence(nil, nil, stale, cfg, testNow)
	if withBoost-withoutBoost < 0.09 {
		t.Errorf("recency boost missing: recent=%v stale=%v", withBoost, withoutBoost)
	}
}

func TestGenerateInsightsCaps(t *testing.T) {
	cfg := config.DefaultAnalyticsConfig()
	patterns := make([]models.PatternResult, 5)
	for i := range patterns {
		patterns[i] = models.PatternResult{Confidence: 0.9, Description: "recurring pattern"}
	}

	entries := makeInputs(6, 0, 0).Entries
	insights := GenerateInsights(analysisSummary{patterns: patterns}, nil, entries, cfg.Insights, cfg.Taxonomy.PositiveEmotions)

	var patternLines int
	for _, s := range insights {
		if len(s) >= 16 && s[:16] == "Pattern detected" {
			patternLines++
		}
	}
	if patternLines != cfg.Insights.MaxPatternsToShow {
		t.Errorf("pattern insights = %d, want capped at %d", patternLines, cfg.Insights.MaxPatternsToShow)
	}
}

func TestGenerateInsightsNoData(t *testing.T) {
	cfg := config.DefaultAnalyticsConfig()
	insights := GenerateInsights(analysisSummary{}, nil, nil, cfg.Insights, cfg.Taxonomy.PositiveEmotions)
	if len(insights) != 1 {
		t.Fatalf("expected the no-data message only, got %v", insights)
	}
}
