package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/stats"
)

// TimePoint is one observation in a trend series.
type TimePoint struct {
	Value     float64
	Timestamp time.Time
}

// AnalyzeTrend fits a robust regression over the series and derives
// direction, daily rate, significance (R squared) and 7/30-day forecasts.
// Returns nil when the sample is below the configured minimum.
func (a *Analyzer) AnalyzeTrend(data []TimePoint) *models.TrendAnalysis {
	ea := a.cfg.EnhancedAnalysis
	if len(data) < ea.MinSampleSize {
		return nil
	}

	sorted := make([]TimePoint, len(data))
	copy(sorted, data)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	n := len(sorted)
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i, p := range sorted {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, p.Value)
	}
	if len(xs) < 2 {
		return nil
	}

	fit := stats.HuberRegression(xs, ys, stats.HuberOptions{
		Delta:   ea.Huber.Delta,
		MaxIter: ea.Huber.MaxIter,
		Tol:     ea.Huber.Tol,
	})

	timeSpanDays := int(sorted[n-1].Timestamp.Sub(sorted[0].Timestamp).Hours() / 24)
	safeSpan := math.Max(1, float64(timeSpanDays))
	dailyRate := fit.Slope * (float64(n) / safeSpan)

	dataQuality := math.Min(1, float64(n)/float64(ea.QualityPointsTarget))
	spanQuality := math.Min(1, float64(timeSpanDays)/float64(ea.QualitySpanDaysTarget))
	confidence := dataQuality*0.3 + spanQuality*0.3 + fit.RSquared*0.4

	direction := models.TrendStable
	if math.Abs(dailyRate) >= ea.TrendThreshold {
		if dailyRate > 0 {
			direction = models.TrendIncreasing
		} else {
			direction = models.TrendDecreasing
		}
	}

	lastPred := fit.Intercept + fit.Slope*float64(n-1)
	return &models.TrendAnalysis{
		Metric:       "Overall Trend",
		Direction:    direction,
		Rate:         dailyRate,
		Significance: fit.RSquared,
		Confidence:   confidence,
		Forecast: models.Forecast{
			Next7Days:  lastPred + fit.Slope*float64(a.cfg.TimeWindows.RecentDays),
			Next30Days: lastPred + fit.Slope*float64(a.cfg.TimeWindows.DefaultAnalysisDays),
			Confidence: confidence,
		},
	}
}

// PredictiveInsights combines emotional and sensory trend forecasts, goal
// achievement projections and short-term risk assessment.
func (a *Analyzer) PredictiveInsights(
	emotions []models.EmotionEntry,
	sensory []models.SensoryEntry,
	entries []models.TrackingEntry,
	goals []models.Goal,
) []models.PredictiveInsight {
	insights := []models.PredictiveInsight{}
	ea := a.cfg.EnhancedAnalysis

	emotionData := make([]TimePoint, len(emotions))
	for i, e := range emotions {
		emotionData[i] = TimePoint{Value: e.Intensity, Timestamp: e.Timestamp}
	}
	if trend := a.AnalyzeTrend(emotionData); trend != nil && trend.Significance >= ea.PredictionConfidenceThreshold {
		insights = append(insights, models.PredictiveInsight{
			Title:           "Emotional Well-being Forecast",
			Description:     fmt.Sprintf("Based on current trends, emotional intensity is %s", trend.Direction),
			Confidence:      trend.Significance,
			Timeframe:       "7-day forecast",
			Prediction:      &models.Prediction{Value: trend.Forecast.Next7Days, Trend: trend.Direction, Accuracy: trend.Confidence},
			Recommendations: emotionTrendRecommendations(trend),
			Severity:        a.trendSeverity(trend),
		})
	}

	// Sensory responses become a seeking/avoiding signal in [-1,1].
	sensoryData := make([]TimePoint, len(sensory))
	for i, s := range sensory {
		var value float64
		resp := strings.ToLower(s.Response)
		if strings.Contains(resp, "seeking") {
			value = 1
		} else if strings.Contains(resp, "avoiding") {
			value = -1
		}
		sensoryData[i] = TimePoint{Value: value, Timestamp: s.Timestamp}
	}
	if trend := a.AnalyzeTrend(sensoryData); trend != nil && trend.Significance >= ea.PredictionConfidenceThreshold {
		insights = append(insights, models.PredictiveInsight{
			Title:           "Sensory Regulation Forecast",
			Description:     fmt.Sprintf("Sensory seeking/avoiding patterns show %s trend", trend.Direction),
			Confidence:      trend.Significance,
			Timeframe:       "14-day forecast",
			Prediction:      &models.Prediction{Value: trend.Forecast.Next7Days, Trend: trend.Direction, Accuracy: trend.Confidence},
			Recommendations: sensoryTrendRecommendations(trend),
			Severity:        a.trendSeverity(trend),
		})
	}

	for _, goal := range goals {
		if insight := a.predictGoalAchievement(goal); insight != nil {
			insights = append(insights, *insight)
		}
	}

	insights = append(insights, a.assessRisks(emotions)...)
	return insights
}

func (a *Analyzer) predictGoalAchievement(goal models.Goal) *models.PredictiveInsight {
	if len(goal.DataPoints) < 3 {
		return nil
	}
	progress := make([]TimePoint, len(goal.DataPoints))
	for i, dp := range goal.DataPoints {
		progress[i] = TimePoint{Value: dp.Value, Timestamp: dp.Timestamp}
	}
	trend := a.AnalyzeTrend(progress)
	if trend == nil {
		return nil
	}

	current := goal.DataPoints[len(goal.DataPoints)-1].Value
	remaining := goal.TargetValue - current
	estimatedDays := -1.0
	if trend.Rate > 0 {
		estimatedDays = remaining / trend.Rate
	}

	description := "Goal may require strategy adjustment based on current trend"
	if estimatedDays > 0 {
		description = fmt.Sprintf("Estimated %d days to achieve goal at current pace", int(math.Ceil(estimatedDays)))
	}
	severity := models.SeverityLow
	if estimatedDays < 0 {
		severity = models.SeverityHigh
	} else if estimatedDays > 60 {
		severity = models.SeverityMedium
	}

	return &models.PredictiveInsight{
		Title:           fmt.Sprintf("Goal Achievement Forecast: %s", goal.Title),
		Description:     description,
		Confidence:      trend.Significance,
		Timeframe:       "Goal completion forecast",
		Prediction:      &models.Prediction{Value: goal.TargetValue, Trend: trend.Direction, Accuracy: trend.Significance},
		Recommendations: goalRecommendations(estimatedDays),
		Severity:        severity,
	}
}

// assessRisks flags stress accumulation over the short-term window.
func (a *Analyzer) assessRisks(emotions []models.EmotionEntry) []models.PredictiveInsight {
	risks := []models.PredictiveInsight{}
	cutoff := a.now().AddDate(0, 0, -a.cfg.TimeWindows.ShortTermDays)

	var highStress int
	for _, e := range emotions {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		if e.Intensity >= a.cfg.PatternAnalysis.HighIntensityThreshold && negativeEmotions[strings.ToLower(e.Emotion)] {
			highStress++
		}
	}

	if highStress >= a.cfg.PatternAnalysis.MinDataPoints {
		risks = append(risks, models.PredictiveInsight{
			Title: "Stress Accumulation Risk",
			Description: fmt.Sprintf("%d high-stress incidents in the past %d days",
				highStress, a.cfg.TimeWindows.ShortTermDays),
			Confidence: 0.8,
			Timeframe:  "Immediate attention needed",
			Recommendations: []string{
				"Implement immediate stress reduction strategies",
				"Review and adjust current interventions",
				"Consider environmental modifications",
				"Schedule additional support sessions",
			},
			Severity: models.SeverityHigh,
		})
	}
	return risks
}

// DetectAnomalies flags emotion intensities and daily sensory activity levels
// whose robust z-scores exceed the configured threshold. Results are sorted
// newest first.
func (a *Analyzer) DetectAnomalies(emotions []models.EmotionEntry, sensory []models.SensoryEntry) []models.AnomalyDetection {
	anomalies := []models.AnomalyDetection{}
	ea := a.cfg.EnhancedAnalysis

	intensities := make([]float64, len(emotions))
	for i, e := range emotions {
		intensities[i] = e.Intensity
	}
	zEmotion := stats.ZScoresMedian(intensities)
	for i, e := range emotions {
		z := math.Abs(zEmotion[i])
		if z > ea.AnomalyThreshold {
			anomalies = append(anomalies, models.AnomalyDetection{
				Timestamp:       e.Timestamp,
				Type:            "emotion",
				Severity:        a.anomalySeverity(z),
				Description:     fmt.Sprintf("Unusual %s intensity detected (%g)", e.Emotion, e.Intensity),
				DeviationScore:  z,
				Recommendations: anomalyRecommendations("emotion"),
			})
		}
	}

	// Daily sensory activity counts, keyed by calendar day.
	daily := map[string]int{}
	for _, s := range sensory {
		daily[s.Timestamp.Format("2006-01-02")]++
	}
	if len(daily) > 0 {
		days := make([]string, 0, len(daily))
		for d := range daily {
			days = append(days, d)
		}
		sort.Strings(days)
		counts := make([]float64, len(days))
		for i, d := range days {
			counts[i] = float64(daily[d])
		}
		zCounts := stats.ZScoresMedian(counts)
		for i, d := range days {
			z := math.Abs(zCounts[i])
			if z > ea.AnomalyThreshold {
				ts, _ := time.Parse("2006-01-02", d)
				anomalies = append(anomalies, models.AnomalyDetection{
					Timestamp:       ts,
					Type:            "sensory",
					Severity:        a.anomalySeverity(z),
					Description:     fmt.Sprintf("Unusual sensory activity level detected (%d inputs)", daily[d]),
					DeviationScore:  z,
					Recommendations: anomalyRecommendations("sensory"),
				})
			}
		}
	}

	sort.Slice(anomalies, func(i, j int) bool { return anomalies[i].Timestamp.After(anomalies[j].Timestamp) })
	return anomalies
}

func (a *Analyzer) anomalySeverity(z float64) models.Severity {
	ea := a.cfg.EnhancedAnalysis
	switch {
	case z >= ea.AnomalySeverityHigh:
		return models.SeverityHigh
	case z >= ea.AnomalySeverityMedium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func (a *Analyzer) trendSeverity(trend *models.TrendAnalysis) models.Severity {
	ea := a.cfg.EnhancedAnalysis
	if trend.Direction == models.TrendDecreasing && trend.Significance >= ea.CorrelationSignificanceHigh {
		return models.SeverityHigh
	}
	if trend.Direction == models.TrendDecreasing && trend.Significance >= ea.CorrelationSignificanceMid {
		return models.SeverityMedium
	}
	return models.SeverityLow
}

func emotionTrendRecommendations(trend *models.TrendAnalysis) []string {
	switch trend.Direction {
	case models.TrendDecreasing:
		return []string{
			"Increase positive reinforcement strategies",
			"Review environmental factors that may be contributing to stress",
			"Consider additional sensory support tools",
			"Schedule more frequent check-ins",
		}
	case models.TrendIncreasing:
		return []string{
			"Continue current successful strategies",
			"Document what is working well",
			"Gradually introduce new challenges",
			"Share progress with student and family",
		}
	}
	return []string{
		"Monitor for changes in patterns",
		"Maintain current support level",
		"Be prepared to adjust strategies as needed",
	}
}

func sensoryTrendRecommendations(trend *models.TrendAnalysis) []string {
	if trend.Rate > 0 {
		return []string{
			"Provide more structured sensory breaks",
			"Introduce additional sensory tools",
			"Consider sensory diet adjustments",
			"Monitor for overstimulation",
		}
	}
	if trend.Rate < 0 {
		return []string{
			"Reduce environmental stimuli",
			"Provide more quiet spaces",
			"Gradually reintroduce sensory experiences",
			"Focus on calming strategies",
		}
	}
	return []string{
		"Maintain current sensory support level",
		"Continue monitoring sensory preferences",
		"Be responsive to daily variations",
	}
}

func goalRecommendations(estimatedDays float64) []string {
	if estimatedDays < 0 {
		return []string{
			"Review and adjust goal strategies",
			"Break goal into smaller milestones",
			"Identify and address barriers",
			"Consider modifying timeline or approach",
		}
	}
	if estimatedDays > 90 {
		return []string{
			"Increase intervention frequency",
			"Add additional support strategies",
			"Review goal expectations",
			"Provide more immediate reinforcement",
		}
	}
	return []string{
		"Continue current approach",
		"Monitor progress regularly",
		"Celebrate milestones reached",
		"Maintain consistent support",
	}
}

func anomalyRecommendations(kind string) []string {
	switch kind {
	case "emotion":
		return []string{
			"Investigate potential triggers for this emotional spike",
			"Provide immediate support and coping strategies",
			"Monitor closely for additional unusual patterns",
			"Consider environmental or schedule changes",
		}
	case "sensory":
		return []string{
			"Review sensory environment for unusual factors",
			"Check for changes in routine or schedule",
			"Provide additional sensory regulation support",
			"Monitor for illness or other physical factors",
		}
	}
	return []string{
		"Investigate potential causes",
		"Provide additional support",
		"Monitor closely",
		"Document and track patterns",
	}
}
