package insights

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/format"
	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/stats"
)

// CalculateConfidence scores how much the data volume and recency support
// derived insights. Each stream contributes its weight scaled by how close
// its count is to the configured threshold; a recency boost applies when the
// latest tracking entry is strictly less than the configured day window old.
// The result is clamped to [0,1] and rounded to two decimals.
func CalculateConfidence(
	emotions []models.EmotionEntry,
	sensory []models.SensoryEntry,
	entries []models.TrackingEntry,
	cfg config.ConfidenceConfig,
	now time.Time,
) float64 {
	ratio := func(count, threshold int) float64 {
		if threshold < 1 {
			threshold = 1
		}
		return math.Min(float64(count)/float64(threshold), 1)
	}

	total := ratio(len(emotions), cfg.EmotionEntriesThreshold)*cfg.EmotionWeight +
		ratio(len(sensory), cfg.SensoryEntriesThreshold)*cfg.SensoryWeight +
		ratio(len(entries), cfg.TrackingEntriesThreshold)*cfg.TrackingWeight

	if last := latestEntryTimestamp(entries); last != nil && cfg.RecencyDays > 0 {
		diff := now.Sub(*last)
		if diff >= 0 {
			// Integer day difference with an exclusive boundary.
			dayDiff := int(diff.Hours() / 24)
			if dayDiff < cfg.RecencyDays {
				total += cfg.RecencyBoost
			}
		}
	}

	return stats.Round2(stats.Clamp01(total))
}

// analysisSummary groups the analyzer outputs GenerateInsights reads.
type analysisSummary struct {
	patterns           []models.PatternResult
	correlations       []models.CorrelationResult
	predictiveInsights []models.PredictiveInsight
}

// GenerateInsights renders human-readable insight strings from analyzer
// results and recent data. Per-category output is capped by the configured
// MaxToShow limits; the result is never empty.
func GenerateInsights(
	results analysisSummary,
	emotions []models.EmotionEntry,
	entries []models.TrackingEntry,
	cfg config.InsightsConfig,
	positiveEmotions []string,
) []string {
	if len(entries) == 0 {
		return []string{
			"No tracking data available yet. Start by creating your first tracking session to begin pattern analysis.",
		}
	}

	insights := []string{}

	if len(entries) < cfg.MinSessionsForFullAnalytics {
		insights = append(insights, fmt.Sprintf(
			"Limited data available (%d sessions). Analytics will improve as more data is collected.",
			len(entries)))
	}

	shown := 0
	for _, p := range results.patterns {
		if p.Confidence <= cfg.HighConfidencePatternThreshold || shown >= cfg.MaxPatternsToShow {
			continue
		}
		insights = append(insights, fmt.Sprintf("Pattern detected: %s (%s confidence)",
			p.Description, format.Percent(p.Confidence, 0, cfg.Locale)))
		shown++
	}

	shown = 0
	for _, c := range results.correlations {
		if c.Significance != models.SignificanceHigh || shown >= cfg.MaxCorrelationsToShow {
			continue
		}
		insights = append(insights, fmt.Sprintf("Strong correlation found: %s", c.Description))
		shown++
	}

	for i, p := range results.predictiveInsights {
		if i >= cfg.MaxPredictionsToShow {
			break
		}
		insights = append(insights, fmt.Sprintf("Prediction: %s (%s confidence)",
			p.Description, format.Percent(p.Confidence, 0, cfg.Locale)))
	}

	if len(emotions) >= cfg.RecentEmotionCount {
		recent := emotions[len(emotions)-cfg.RecentEmotionCount:]
		positive := map[string]bool{}
		for _, p := range positiveEmotions {
			positive[p] = true
		}
		var count int
		for _, e := range recent {
			if positive[strings.ToLower(e.Emotion)] {
				count++
			}
		}
		rate := float64(count) / float64(len(recent))
		if rate > cfg.PositiveEmotionThreshold {
			insights = append(insights, fmt.Sprintf(
				"Positive trend: %s of recent emotions have been positive.",
				format.Percent(rate, 0, cfg.Locale)))
		} else if rate < cfg.NegativeEmotionThreshold {
			insights = append(insights, fmt.Sprintf(
				"Consider reviewing strategies - only %s of recent emotions have been positive.",
				format.Percent(rate, 0, cfg.Locale)))
		}
	}

	if len(insights) == 0 {
		insights = append(insights,
			"Analytics are active and monitoring patterns. Continue collecting data for more detailed insights.")
	}

	return insights
}
