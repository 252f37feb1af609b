package analysis

import (
	"testing"
	"time"

	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/models"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer() *Analyzer {
	return NewWithClock(config.DefaultAnalyticsConfig(), func() time.Time { return testNow })
}

func emotionAt(emotion string, intensity float64, daysAgo int) models.EmotionEntry {
	return models.EmotionEntry{
		ID:        "e",
		Emotion:   emotion,
		Intensity: intensity,
		Timestamp: testNow.AddDate(0, 0, -daysAgo),
	}
}

func sensoryAt(response string, daysAgo int) models.SensoryEntry {
	return models.SensoryEntry{
		ID:        "s",
		Response:  response,
		Timestamp: testNow.AddDate(0, 0, -daysAgo),
	}
}

func hasPattern(patterns []models.PatternResult, name string) bool {
	for _, p := range patterns {
		if p.Pattern == name {
			return true
		}
	}
	return false
}

func TestEmotionPatternsBelowMinimum(t *testing.T) {
	a := newTestAnalyzer()
	patterns := a.EmotionPatterns([]models.EmotionEntry{emotionAt("anxious", 5, 1)}, 0)
	if len(patterns) != 0 {
		t.Errorf("expected no patterns below minimum data points, got %d", len(patterns))
	}
	if patterns == nil {
		t.Error("result must be an empty slice, not nil")
	}
}

func TestEmotionPatternsHighIntensityNegative(t *testing.T) {
	a := newTestAnalyzer()
	emotions := []models.EmotionEntry{
		emotionAt("anxious", 5, 1),
		emotionAt("anxious", 5, 2),
		emotionAt("frustrated", 4, 3),
		emotionAt("anxious", 5, 4),
		emotionAt("anxious", 4, 5),
	}
	patterns := a.EmotionPatterns(emotions, 0)
	if !hasPattern(patterns, "high-intensity-negative") {
		t.Errorf("expected high-intensity-negative pattern, got %+v", patterns)
	}
	if !hasPattern(patterns, "consistent-emotion") {
		t.Errorf("expected consistent-emotion pattern for dominant anxious, got %+v", patterns)
	}
	if hasPattern(patterns, "moderate-negative-trend") {
		t.Error("moderate trend must not fire when high intensity did")
	}
	for _, p := range patterns {
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Errorf("confidence %v out of [0,1]", p.Confidence)
		}
	}
}

func TestEmotionPatternsModerateTrendOnly(t *testing.T) {
	a := newTestAnalyzer()
	// Intensity 3 is below the high threshold (4) but at the moderate one.
	emotions := []models.EmotionEntry{
		emotionAt("sad", 3, 1),
		emotionAt("sad", 3, 2),
		emotionAt("happy", 2, 3),
		emotionAt("sad", 3, 4),
	}
	patterns := a.EmotionPatterns(emotions, 0)
	if !hasPattern(patterns, "moderate-negative-trend") {
		t.Errorf("expected moderate-negative-trend, got %+v", patterns)
	}
	if hasPattern(patterns, "high-intensity-negative") {
		t.Error("high-intensity pattern must not fire at moderate intensities")
	}
}

func TestEmotionPatternsIgnoresOldEntries(t *testing.T) {
	a := newTestAnalyzer()
	emotions := []models.EmotionEntry{
		emotionAt("anxious", 5, 100),
		emotionAt("anxious", 5, 101),
		emotionAt("anxious", 5, 102),
	}
	if patterns := a.EmotionPatterns(emotions, 0); len(patterns) != 0 {
		t.Errorf("entries outside the window produced patterns: %+v", patterns)
	}
}

func TestSensoryPatternsSeekingDominance(t *testing.T) {
	a := newTestAnalyzer()
	sensory := []models.SensoryEntry{
		sensoryAt("seeking movement", 1),
		sensoryAt("seeking pressure", 2),
		sensoryAt("craving input", 3),
		sensoryAt("seeking movement", 4),
		sensoryAt("avoiding noise", 5),
	}
	patterns := a.SensoryPatterns(sensory, 0)
	if !hasPattern(patterns, "sensory-seeking") {
		t.Errorf("expected sensory-seeking pattern, got %+v", patterns)
	}
}

func TestSensoryPatternsPrevalenceFallback(t *testing.T) {
	a := newTestAnalyzer()
	sensory := []models.SensoryEntry{
		sensoryAt("avoiding noise", 1),
		sensoryAt("covering ears", 2),
		sensoryAt("neutral", 3),
	}
	patterns := a.SensoryPatterns(sensory, 0)
	if !hasPattern(patterns, "sensory-avoiding") {
		t.Errorf("expected sensory-avoiding via prevalence rule, got %+v", patterns)
	}
}

func trackingEntryWithNoise(noise float64, intensity float64, daysAgo int) models.TrackingEntry {
	return models.TrackingEntry{
		ID:        "t",
		StudentID: "s1",
		Timestamp: testNow.AddDate(0, 0, -daysAgo),
		Emotions:  []models.EmotionEntry{{Emotion: "anxious", Intensity: intensity, Timestamp: testNow.AddDate(0, 0, -daysAgo)}},
		EnvironmentalData: &models.EnvironmentalData{
			RoomConditions: &models.RoomConditions{NoiseLevel: &noise},
		},
	}
}

func TestEnvironmentalCorrelationsNoise(t *testing.T) {
	a := newTestAnalyzer()
	entries := []models.TrackingEntry{
		trackingEntryWithNoise(10, 1, 1),
		trackingEntryWithNoise(20, 2, 2),
		trackingEntryWithNoise(30, 3, 3),
		trackingEntryWithNoise(40, 4, 4),
	}
	correlations := a.EnvironmentalCorrelations(entries)
	if len(correlations) == 0 {
		t.Fatal("expected a noise correlation")
	}
	c := correlations[0]
	if c.Factor1 != "Noise Level" || c.Factor2 != "Emotion Intensity" {
		t.Errorf("unexpected factors: %+v", c)
	}
	if c.Correlation < 0.9 {
		t.Errorf("correlation = %v, expected near 1", c.Correlation)
	}
	if c.Significance != models.SignificanceHigh {
		t.Errorf("significance = %v, want high", c.Significance)
	}
}

func TestEnvironmentalCorrelationsEmptyInput(t *testing.T) {
	a := newTestAnalyzer()
	if got := a.EnvironmentalCorrelations(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestTriggerAlertsHighStress(t *testing.T) {
	a := newTestAnalyzer()
	emotions := []models.EmotionEntry{
		emotionAt("anxious", 5, 1),
		emotionAt("overwhelmed", 5, 2),
		emotionAt("angry", 4, 3),
	}
	alerts := a.TriggerAlerts(emotions, nil, "s1")
	if len(alerts) == 0 {
		t.Fatal("expected a high stress alert")
	}
	alert := alerts[0]
	if alert.Type != models.AlertConcern || alert.Severity != models.SeverityHigh {
		t.Errorf("unexpected alert classification: %+v", alert)
	}
	if alert.StudentID != "s1" {
		t.Errorf("student id = %q", alert.StudentID)
	}
	if alert.ID == "" {
		t.Error("alert id must be set")
	}
}

func TestAnalyzeTrendIncreasing(t *testing.T) {
	a := newTestAnalyzer()
	data := make([]TimePoint, 10)
	for i := range data {
		data[i] = TimePoint{Value: float64(i), Timestamp: testNow.AddDate(0, 0, i-10)}
	}
	trend := a.AnalyzeTrend(data)
	if trend == nil {
		t.Fatal("expected a trend")
	}
	if trend.Direction != models.TrendIncreasing {
		t.Errorf("direction = %v, want increasing", trend.Direction)
	}
	if trend.Significance < 0.99 {
		t.Errorf("significance = %v, want near 1 for a perfect line", trend.Significance)
	}
	if trend.Forecast.Next30Days <= trend.Forecast.Next7Days {
		t.Error("30-day forecast should exceed 7-day forecast for an increasing trend")
	}
}

func TestAnalyzeTrendBelowMinimumSample(t *testing.T) {
	a := newTestAnalyzer()
	data := []TimePoint{
		{Value: 1, Timestamp: testNow},
		{Value: 2, Timestamp: testNow.AddDate(0, 0, 1)},
	}
	if trend := a.AnalyzeTrend(data); trend != nil {
		t.Errorf("expected nil trend for tiny sample, got %+v", trend)
	}
}

func TestDetectAnomaliesEmotionSpike(t *testing.T) {
	a := newTestAnalyzer()
	intensities := []float64{1, 2, 3, 2, 1, 2, 3, 2, 15}
	emotions := make([]models.EmotionEntry, len(intensities))
	for i, v := range intensities {
		emotions[i] = emotionAt("anxious", v, len(intensities)-i)
	}
	anomalies := a.DetectAnomalies(emotions, nil)
	if len(anomalies) != 1 {
		t.Fatalf("expected exactly one anomaly, got %d", len(anomalies))
	}
	anomaly := anomalies[0]
	if anomaly.Type != "emotion" {
		t.Errorf("type = %q, want emotion", anomaly.Type)
	}
	if anomaly.Severity != models.SeverityHigh {
		t.Errorf("severity = %v, want high for an extreme spike", anomaly.Severity)
	}
	if anomaly.DeviationScore <= a.cfg.EnhancedAnalysis.AnomalyThreshold {
		t.Errorf("deviation score %v not above threshold", anomaly.DeviationScore)
	}
}

func TestDetectAnomaliesSortedNewestFirst(t *testing.T) {
	a := newTestAnalyzer()
	emotions := []models.EmotionEntry{
		emotionAt("anxious", 15, 5),
		emotionAt("anxious", 1, 4),
		emotionAt("anxious", 2, 3),
		emotionAt("anxious", 1, 2),
		emotionAt("anxious", 2, 10),
		emotionAt("anxious", 1, 9),
		emotionAt("anxious", 2, 8),
		emotionAt("anxious", 15, 1),
	}
	anomalies := a.DetectAnomalies(emotions, nil)
	for i := 1; i < len(anomalies); i++ {
		if anomalies[i].Timestamp.After(anomalies[i-1].Timestamp) {
			t.Fatalf("anomalies not sorted newest first: %v before %v",
				anomalies[i-1].Timestamp, anomalies[i].Timestamp)
		}
	}
}

func TestDetectAnomaliesEmptyInputs(t *testing.T) {
	a := newTestAnalyzer()
	if got := a.DetectAnomalies(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestPredictiveInsightsStressRisk(t *testing.T) {
	a := newTestAnalyzer()
	emotions := []models.EmotionEntry{
		emotionAt("anxious", 5, 1),
		emotionAt("overwhelmed", 5, 2),
		emotionAt("angry", 5, 3),
	}
	insights := a.PredictiveInsights(emotions, nil, nil, nil)
	var found bool
	for _, in := range insights {
		if in.Title == "Stress Accumulation Risk" {
			found = true
			if in.Severity != models.SeverityHigh {
				t.Errorf("risk severity = %v, want high", in.Severity)
			}
		}
	}
	if !found {
		t.Errorf("expected stress accumulation risk, got %+v", insights)
	}
}
