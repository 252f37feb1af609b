// Package analysis derives patterns, correlations, predictive insights and
// anomalies from time-stamped tracking records. Every analyzer is a pure
// function of its inputs plus configuration: malformed or empty input yields
// empty results, never a panic.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/stats"
)

// negativeEmotions are the stress-indicating labels the pattern pass keys on.
var negativeEmotions = map[string]bool{
	"anxious":     true,
	"frustrated":  true,
	"angry":       true,
	"overwhelmed": true,
	"sad":         true,
}

// Analyzer runs the pattern and correlation passes. The clock is injectable
// so trailing-window logic is testable.
type Analyzer struct {
	cfg config.AnalyticsConfig
	now func() time.Time
}

// New creates an Analyzer with the real clock.
func New(cfg config.AnalyticsConfig) *Analyzer {
	return &Analyzer{cfg: cfg, now: time.Now}
}

// NewWithClock creates an Analyzer with a fixed clock, for tests.
func NewWithClock(cfg config.AnalyticsConfig, now func() time.Time) *Analyzer {
	return &Analyzer{cfg: cfg, now: now}
}

// EmotionPatterns surfaces recurring emotion patterns over a trailing window.
// timeframeDays <= 0 uses the configured default window.
func (a *Analyzer) EmotionPatterns(emotions []models.EmotionEntry, timeframeDays int) []models.PatternResult {
	patterns := []models.PatternResult{}
	if len(emotions) < a.cfg.PatternAnalysis.MinDataPoints {
		return patterns
	}
	if timeframeDays <= 0 {
		timeframeDays = a.cfg.TimeWindows.DefaultAnalysisDays
	}

	cutoff := a.now().AddDate(0, 0, -timeframeDays)
	recent := make([]models.EmotionEntry, 0, len(emotions))
	for _, e := range emotions {
		if !e.Timestamp.Before(cutoff) {
			recent = append(recent, e)
		}
	}
	if len(recent) == 0 {
		return patterns
	}
	total := float64(len(recent))
	timeframe := fmt.Sprintf("%d days", timeframeDays)

	highThreshold := a.cfg.PatternAnalysis.HighIntensityThreshold
	moderateThreshold := math.Max(1, highThreshold-1)

	var highNegative, moderateNegative int
	counts := map[string]int{}
	for _, e := range recent {
		name := strings.ToLower(e.Emotion)
		counts[name]++
		if negativeEmotions[name] {
			if e.Intensity >= highThreshold {
				highNegative++
			}
			if e.Intensity >= moderateThreshold {
				moderateNegative++
			}
		}
	}

	if float64(highNegative)/total > a.cfg.PatternAnalysis.ConcernFrequencyThreshold {
		ratio := float64(highNegative) / total
		patterns = append(patterns, models.PatternResult{
			Type:       models.PatternEmotion,
			Pattern:    "high-intensity-negative",
			Confidence: math.Min(ratio, 1),
			Frequency:  highNegative,
			Description: fmt.Sprintf("High-intensity negative emotions detected in %d%% of recent sessions",
				int(math.Round(ratio*100))),
			Recommendations: []string{
				"Consider implementing calming strategies before intense activities",
				"Monitor environmental triggers that may contribute to stress",
				"Discuss coping mechanisms with student",
			},
			DataPoints: len(recent),
			Timeframe:  timeframe,
		})
	}

	if dominant, count := dominantEmotion(counts); dominant != "" &&
		float64(count)/total > a.cfg.PatternAnalysis.EmotionConsistencyThreshold {
		patterns = append(patterns, models.PatternResult{
			Type:            models.PatternEmotion,
			Pattern:         "consistent-emotion",
			Confidence:      float64(count) / total,
			Frequency:       count,
			Description:     fmt.Sprintf("Consistent %s emotion pattern detected", dominant),
			Recommendations: emotionRecommendations(dominant),
			DataPoints:      len(recent),
			Timeframe:       timeframe,
		})
	}

	// The moderate-trend pattern only fires when high intensity did not.
	if highNegative == 0 && float64(moderateNegative)/total > a.cfg.PatternAnalysis.ModerateNegativeThreshold {
		ratio := float64(moderateNegative) / total
		patterns = append(patterns, models.PatternResult{
			Type:       models.PatternEmotion,
			Pattern:    "moderate-negative-trend",
			Confidence: ratio,
			Frequency:  moderateNegative,
			Description: fmt.Sprintf("Moderate negative emotions detected in %d%% of recent sessions",
				int(math.Round(ratio*100))),
			Recommendations: []string{
				"Monitor for potential stress escalation",
				"Implement preventive calming strategies",
				"Consider environmental adjustments",
			},
			DataPoints: len(recent),
			Timeframe:  timeframe,
		})
	}

	return patterns
}

// SensoryPatterns classifies seeking vs avoiding behavior over a trailing
// window.
func (a *Analyzer) SensoryPatterns(sensory []models.SensoryEntry, timeframeDays int) []models.PatternResult {
	patterns := []models.PatternResult{}
	if len(sensory) < a.cfg.PatternAnalysis.MinDataPoints {
		return patterns
	}
	if timeframeDays <= 0 {
		timeframeDays = a.cfg.TimeWindows.DefaultAnalysisDays
	}

	cutoff := a.now().AddDate(0, 0, -timeframeDays)
	recent := make([]models.SensoryEntry, 0, len(sensory))
	for _, s := range sensory {
		if !s.Timestamp.Before(cutoff) {
			recent = append(recent, s)
		}
	}
	if len(recent) == 0 {
		return patterns
	}
	timeframe := fmt.Sprintf("%d days", timeframeDays)

	var seeking, avoiding int
	for _, s := range recent {
		resp := strings.ToLower(s.Response)
		if strings.Contains(resp, "seeking") || strings.Contains(resp, "craving") {
			seeking++
		}
		if strings.Contains(resp, "avoiding") || strings.Contains(resp, "covering") {
			avoiding++
		}
	}

	total := float64(len(recent))
	dominance := 1 + a.cfg.PatternAnalysis.ConcernFrequencyThreshold
	prevalence := a.cfg.PatternAnalysis.ConcernFrequencyThreshold

	seekingResult := func(confidence float64, description string) models.PatternResult {
		return models.PatternResult{
			Type:        models.PatternSensory,
			Pattern:     "sensory-seeking",
			Confidence:  confidence,
			Frequency:   seeking,
			Description: description,
			Recommendations: []string{
				"Provide scheduled sensory breaks",
				"Offer fidget tools and movement opportunities",
				"Consider sensory-rich learning activities",
			},
			DataPoints: len(recent),
			Timeframe:  timeframe,
		}
	}
	avoidingResult := func(confidence float64, description string) models.PatternResult {
		return models.PatternResult{
			Type:        models.PatternSensory,
			Pattern:     "sensory-avoiding",
			Confidence:  confidence,
			Frequency:   avoiding,
			Description: description,
			Recommendations: []string{
				"Provide quiet, low-stimulation spaces",
				"Use noise-canceling headphones when appropriate",
				"Gradually introduce sensory experiences",
			},
			DataPoints: len(recent),
			Timeframe:  timeframe,
		}
	}

	switch {
	// Dominance relative to the opposite behavior when both are present.
	case avoiding > 0 && float64(seeking)/math.Max(1, float64(avoiding)) > dominance:
		patterns = append(patterns, seekingResult(float64(seeking)/total, "Strong sensory-seeking pattern identified"))
	case seeking > 0 && float64(avoiding)/math.Max(1, float64(seeking)) > dominance:
		patterns = append(patterns, avoidingResult(float64(avoiding)/total, "Strong sensory-avoiding pattern identified"))
	// Prevalence relative to total when the opposite behavior is absent.
	case avoiding == 0 && seeking > 0 && float64(seeking)/total >= prevalence:
		patterns = append(patterns, seekingResult(float64(seeking)/total, "Prevalent sensory-seeking behavior observed"))
	case seeking == 0 && avoiding > 0 && float64(avoiding)/total >= prevalence:
		patterns = append(patterns, avoidingResult(float64(avoiding)/total, "Prevalent sensory-avoiding behavior observed"))
	}

	return patterns
}

// EnvironmentalCorrelations derives relationships between room conditions
// and emotional outcomes across tracking entries.
func (a *Analyzer) EnvironmentalCorrelations(entries []models.TrackingEntry) []models.CorrelationResult {
	correlations := []models.CorrelationResult{}
	if len(entries) < a.cfg.PatternAnalysis.MinDataPoints {
		return correlations
	}

	// Noise level vs average emotion intensity.
	var noise, intensity []float64
	for _, entry := range entries {
		if entry.EnvironmentalData == nil || entry.EnvironmentalData.RoomConditions == nil {
			continue
		}
		rc := entry.EnvironmentalData.RoomConditions
		if rc.NoiseLevel == nil || len(entry.Emotions) == 0 || math.IsNaN(*rc.NoiseLevel) {
			continue
		}
		var sum float64
		for _, e := range entry.Emotions {
			sum += e.Intensity
		}
		noise = append(noise, *rc.NoiseLevel)
		intensity = append(intensity, sum/float64(len(entry.Emotions)))
	}
	if len(noise) >= a.cfg.PatternAnalysis.MinDataPoints {
		r := stats.PearsonCorrelation(noise, intensity)
		if math.Abs(r) > a.cfg.PatternAnalysis.CorrelationThreshold {
			description := "Higher noise levels correlate with more intense emotions"
			recommendations := []string{
				"Consider noise reduction strategies",
				"Provide quiet spaces during intense activities",
			}
			if r < 0 {
				description = "Lower noise levels correlate with more intense emotions"
				recommendations = []string{"Monitor for overstimulation in quiet environments"}
			}
			correlations = append(correlations, models.CorrelationResult{
				Factor1:         "Noise Level",
				Factor2:         "Emotion Intensity",
				Correlation:     r,
				Significance:    a.significance(math.Abs(r)),
				Description:     description,
				Recommendations: recommendations,
			})
		}
	}

	// Lighting conditions vs share of positive emotions, grouped by label.
	positive := map[string]bool{}
	for _, p := range a.cfg.Taxonomy.PositiveEmotions {
		positive[p] = true
	}
	lightingGroups := map[string][]float64{}
	for _, entry := range entries {
		if entry.EnvironmentalData == nil || entry.EnvironmentalData.RoomConditions == nil {
			continue
		}
		rc := entry.EnvironmentalData.RoomConditions
		if rc.Lighting == nil || len(entry.Emotions) == 0 {
			continue
		}
		var count int
		for _, e := range entry.Emotions {
			if positive[strings.ToLower(e.Emotion)] {
				count++
			}
		}
		ratio := float64(count) / float64(len(entry.Emotions))
		lightingGroups[*rc.Lighting] = append(lightingGroups[*rc.Lighting], ratio)
	}

	type lightingAvg struct {
		lighting string
		average  float64
		count    int
	}
	averages := make([]lightingAvg, 0, len(lightingGroups))
	for lighting, values := range lightingGroups {
		if len(values) < a.cfg.PatternAnalysis.MinDataPoints {
			continue
		}
		averages = append(averages, lightingAvg{lighting: lighting, average: stats.Mean(values), count: len(values)})
	}
	sort.Slice(averages, func(i, j int) bool {
		if averages[i].average != averages[j].average {
			return averages[i].average > averages[j].average
		}
		return averages[i].lighting < averages[j].lighting
	})

	if len(averages) > 1 {
		best := averages[0]
		worst := averages[len(averages)-1]
		if best.average-worst.average > a.cfg.PatternAnalysis.ConcernFrequencyThreshold {
			correlations = append(correlations, models.CorrelationResult{
				Factor1:      "Lighting Conditions",
				Factor2:      "Positive Emotions",
				Correlation:  0.5, // categorical estimate
				Significance: models.SignificanceModerate,
				Description: fmt.Sprintf("%s lighting shows highest positive emotion rates (%d%%)",
					best.lighting, int(math.Round(best.average*100))),
				Recommendations: []string{
					fmt.Sprintf("Optimize for %s lighting when possible", best.lighting),
					fmt.Sprintf("Minimize exposure to %s lighting during challenging activities", worst.lighting),
				},
			})
		}
	}

	return correlations
}

// TriggerAlerts derives actionable notifications from the recent window.
func (a *Analyzer) TriggerAlerts(emotions []models.EmotionEntry, entries []models.TrackingEntry, studentID string) []models.TriggerAlert {
	alerts := []models.TriggerAlert{}
	now := a.now()
	cutoff := now.AddDate(0, 0, -a.cfg.TimeWindows.RecentDays)

	recentEmotions := make([]models.EmotionEntry, 0, len(emotions))
	for _, e := range emotions {
		if !e.Timestamp.Before(cutoff) {
			recentEmotions = append(recentEmotions, e)
		}
	}
	recentEntries := make([]models.TrackingEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			recentEntries = append(recentEntries, e)
		}
	}

	positive := map[string]bool{}
	for _, p := range a.cfg.Taxonomy.PositiveEmotions {
		positive[p] = true
	}

	var highStress, positiveStrong int
	for _, e := range recentEmotions {
		name := strings.ToLower(e.Emotion)
		if e.Intensity >= a.cfg.PatternAnalysis.HighIntensityThreshold {
			if negativeEmotions[name] {
				highStress++
			}
			if positive[name] {
				positiveStrong++
			}
		}
	}

	if highStress >= a.cfg.PatternAnalysis.MinDataPoints {
		alerts = append(alerts, models.TriggerAlert{
			ID:       uuid.New().String(),
			Type:     models.AlertConcern,
			Severity: models.SeverityHigh,
			Title:    "High Stress Pattern Detected",
			Description: fmt.Sprintf("%d high-intensity stress responses recorded in the past %d days",
				highStress, a.cfg.TimeWindows.RecentDays),
			Recommendations: []string{
				"Schedule a check-in with the student",
				"Review current stressors and triggers",
				"Implement additional calming strategies",
				"Consider environmental modifications",
			},
			Timestamp:  now,
			StudentID:  studentID,
			DataPoints: len(recentEmotions),
		})
	}

	if positiveStrong >= a.cfg.PatternAnalysis.MinDataPoints && len(recentEmotions) >= a.cfg.PatternAnalysis.MinDataPoints {
		ratio := float64(positiveStrong) / float64(len(recentEmotions))
		alerts = append(alerts, models.TriggerAlert{
			ID:       uuid.New().String(),
			Type:     models.AlertImprovement,
			Severity: models.SeverityLow,
			Title:    "Positive Progress Noted",
			Description: fmt.Sprintf("Strong positive emotional responses observed in %d%% of recent sessions",
				int(math.Round(ratio*100))),
			Recommendations: []string{
				"Continue current successful strategies",
				"Document what is working well",
				"Consider sharing success with student and family",
			},
			Timestamp:  now,
			StudentID:  studentID,
			DataPoints: len(recentEmotions),
		})
	}

	for _, corr := range a.EnvironmentalCorrelations(recentEntries) {
		if corr.Significance == models.SignificanceHigh &&
			math.Abs(corr.Correlation) > a.cfg.PatternAnalysis.CorrelationThreshold*2 {
			alerts = append(alerts, models.TriggerAlert{
				ID:              uuid.New().String(),
				Type:            models.AlertPattern,
				Severity:        models.SeverityMedium,
				Title:           "Environmental Pattern Identified",
				Description:     corr.Description,
				Recommendations: corr.Recommendations,
				Timestamp:       now,
				StudentID:       studentID,
				DataPoints:      len(recentEntries),
			})
		}
	}

	return alerts
}

func (a *Analyzer) significance(absCorrelation float64) models.Significance {
	low := a.cfg.PatternAnalysis.CorrelationThreshold
	high := low * 2
	switch {
	case absCorrelation < low:
		return models.SignificanceLow
	case absCorrelation < high:
		return models.SignificanceModerate
	default:
		return models.SignificanceHigh
	}
}

func dominantEmotion(counts map[string]int) (string, int) {
	var name string
	var max int
	// Deterministic tie-break on name keeps results stable across runs.
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if counts[n] > max {
			max = counts[n]
			name = n
		}
	}
	return name, max
}

func emotionRecommendations(emotion string) []string {
	switch strings.ToLower(emotion) {
	case "anxious":
		return []string{
			"Introduce mindfulness and breathing exercises",
			"Create predictable routines and schedules",
			"Provide advance notice of changes",
		}
	case "frustrated":
		return []string{
			"Break tasks into smaller, manageable steps",
			"Offer choice and control opportunities",
			"Teach problem-solving strategies",
		}
	case "happy":
		return []string{
			"Continue activities that promote positive engagement",
			"Document successful strategies for future use",
			"Build on current strengths",
		}
	case "calm":
		return []string{
			"Maintain current supportive environment",
			"Use as a baseline for comparison",
			"Gradually introduce new challenges",
		}
	}
	return []string{
		"Monitor patterns and adjust strategies as needed",
		"Consult with support team for specialized approaches",
	}
}
