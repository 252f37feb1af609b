package models

import "time"

// Significance qualifies how strong a correlation is
type Significance string

const (
	SignificanceLow      Significance = "low"
	SignificanceModerate Significance = "moderate"
	SignificanceHigh     Significance = "high"
)

// Severity grades alerts, anomalies and predictions
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// TrendDirection describes where a metric is heading
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// PatternType classifies pattern results
type PatternType string

const (
	PatternEmotion     PatternType = "emotion"
	PatternSensory     PatternType = "sensory"
	PatternEnvironment PatternType = "environmental"
)

// PatternResult is a recurring emotion or sensory observation surfaced with a
// confidence score in [0,1].
type PatternResult struct {
	Type            PatternType `json:"type"`
	Pattern         string      `json:"pattern"`
	Confidence      float64     `json:"confidence"`
	Frequency       int         `json:"frequency"`
	Description     string      `json:"description"`
	Recommendations []string    `json:"recommendations,omitempty"`
	DataPoints      int         `json:"data_points"`
	Timeframe       string      `json:"timeframe"`
}

// CorrelationResult is a derived relationship between an environmental factor
// and an emotional or sensory outcome. Correlation is Pearson r in [-1,1].
type CorrelationResult struct {
	Factor1         string       `json:"factor1"`
	Factor2         string       `json:"factor2"`
	Correlation     float64      `json:"correlation"`
	Significance    Significance `json:"significance"`
	Description     string       `json:"description"`
	Recommendations []string     `json:"recommendations,omitempty"`
}

// Forecast carries projected values from trend analysis
type Forecast struct {
	Next7Days  float64 `json:"next_7_days"`
	Next30Days float64 `json:"next_30_days"`
	Confidence float64 `json:"confidence"`
}

// TrendAnalysis is the output of robust trend fitting over a time series
type TrendAnalysis struct {
	Metric       string         `json:"metric"`
	Direction    TrendDirection `json:"direction"`
	Rate         float64        `json:"rate"`
	Significance float64        `json:"significance"`
	Confidence   float64        `json:"confidence"`
	Forecast     Forecast       `json:"forecast"`
}

// Prediction is the quantitative part of a predictive insight
type Prediction struct {
	Value    float64        `json:"value"`
	Trend    TrendDirection `json:"trend"`
	Accuracy float64        `json:"accuracy"`
}

// PredictiveInsight is a forward-looking statement derived from trends
type PredictiveInsight struct {
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Confidence      float64     `json:"confidence"`
	Timeframe       string      `json:"timeframe"`
	Prediction      *Prediction `json:"prediction,omitempty"`
	Recommendations []string    `json:"recommendations,omitempty"`
	Severity        Severity    `json:"severity"`
}

// AnomalyDetection flags an observation whose intensity deviates materially
// from the recent baseline
type AnomalyDetection struct {
	Timestamp       time.Time `json:"timestamp"`
	Type            string    `json:"type"`
	Severity        Severity  `json:"severity"`
	Description     string    `json:"description"`
	DeviationScore  float64   `json:"deviation_score"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// AlertType classifies trigger alerts
type AlertType string

const (
	AlertConcern     AlertType = "concern"
	AlertImprovement AlertType = "improvement"
	AlertPattern     AlertType = "pattern"
)

// TriggerAlert is an actionable notification derived from recent data
type TriggerAlert struct {
	ID              string    `json:"id"`
	Type            AlertType `json:"type"`
	Severity        Severity  `json:"severity"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Recommendations []string  `json:"recommendations"`
	Timestamp       time.Time `json:"timestamp"`
	StudentID       string    `json:"student_id"`
	DataPoints      int       `json:"data_points"`
}

// AnalyticsResults is the aggregate produced by the unified analytics pass.
// Every slice field is always non-nil, possibly empty; consumers must never
// see null arrays.
type AnalyticsResults struct {
	Patterns                  []PatternResult     `json:"patterns"`
	Correlations              []CorrelationResult `json:"correlations"`
	EnvironmentalCorrelations []CorrelationResult `json:"environmental_correlations"`
	PredictiveInsights        []PredictiveInsight `json:"predictive_insights"`
	Anomalies                 []AnomalyDetection  `json:"anomalies"`
	Insights                  []string            `json:"insights"`
	SuggestedInterventions    []string            `json:"suggested_interventions"`
	Confidence                float64             `json:"confidence"`
	HasMinimumData            bool                `json:"has_minimum_data"`
	Error                     string              `json:"error,omitempty"`
	ComputedAt                time.Time           `json:"computed_at"`
}

// EmptyAnalyticsResults returns a result with every slice initialized, so
// callers can rely on the non-nil shape even on failure paths.
func EmptyAnalyticsResults() AnalyticsResults {
	return AnalyticsResults{
		Patterns:                  []PatternResult{},
		Correlations:              []CorrelationResult{},
		EnvironmentalCorrelations: []CorrelationResult{},
		PredictiveInsights:        []PredictiveInsight{},
		Anomalies:                 []AnomalyDetection{},
		Insights:                  []string{},
		SuggestedInterventions:    []string{},
	}
}
