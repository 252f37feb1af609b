package insights

import (
	"context"
	"sync"
	"time"

	"github.com/whoamaiii/sensetrack/internal/analysis"
	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/models"
)

// Sentinel error codes carried on the result. The orchestrator never
// returns an error to its caller; failures degrade to an empty result
// tagged with one of these.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnified      = "ANALYTICS_UNIFIED_ERROR"
)

// Engine sequences the analyzers into one AnalyticsResults aggregate.
type Engine struct {
	mu  sync.RWMutex
	cfg config.AnalyticsConfig
	log logger.Logger
	now func() time.Time
}

// NewEngine creates an Engine with the real clock.
func NewEngine(cfg config.AnalyticsConfig, log logger.Logger) *Engine {
	return &Engine{cfg: cfg, log: log, now: time.Now}
}

// NewEngineWithClock creates an Engine with a fixed clock, for tests.
func NewEngineWithClock(cfg config.AnalyticsConfig, log logger.Logger, now func() time.Time) *Engine {
	return &Engine{cfg: cfg, log: log, now: now}
}

// UpdateConfig swaps the thresholds used by subsequent computations.
// Called from the config hot reload path.
func (e *Engine) UpdateConfig(cfg config.AnalyticsConfig) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

// Compute runs the full insights pass: patterns when streams are non-empty,
// correlations and enhanced analysis when the tracking-entry count clears the
// configured minimums, then insight strings and a confidence score.
//
// It never panics: invalid input and internal failures both degrade to an
// empty-but-valid result with a sentinel Error code. The context stops
// further analyzer stages when cancelled; results computed so far are kept.
func (e *Engine) Compute(ctx context.Context, inputs Inputs) (results models.AnalyticsResults) {
	if inputs.Entries == nil || inputs.Emotions == nil || inputs.Sensory == nil {
		e.log.Error("insights compute: invalid inputs",
			logger.Bool("entries_nil", inputs.Entries == nil),
			logger.Bool("emotions_nil", inputs.Emotions == nil),
			logger.Bool("sensory_nil", inputs.Sensory == nil),
		)
		results = models.EmptyAnalyticsResults()
		results.Error = ErrCodeInvalidInput
		results.ComputedAt = e.now()
		return results
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("insights compute failed", logger.Any("panic", r))
			results = models.EmptyAnalyticsResults()
			results.Error = ErrCodeUnified
			results.ComputedAt = e.now()
		}
	}()

	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	analyzer := analysis.NewWithClock(cfg, e.now)
	results = models.EmptyAnalyticsResults()
	results.HasMinimumData = len(inputs.Emotions) > 0 || len(inputs.Sensory) > 0 || len(inputs.Entries) > 0

	if results.HasMinimumData {
		analysisDays := cfg.Limits.AnalysisPeriodDays
		if len(inputs.Emotions) > 0 {
			results.Patterns = append(results.Patterns, analyzer.EmotionPatterns(inputs.Emotions, analysisDays)...)
		}
		if len(inputs.Sensory) > 0 && ctx.Err() == nil {
			results.Patterns = append(results.Patterns, analyzer.SensoryPatterns(inputs.Sensory, analysisDays)...)
		}
		if len(inputs.Entries) >= cfg.Limits.MinTrackingForCorrelation && ctx.Err() == nil {
			results.Correlations = analyzer.EnvironmentalCorrelations(inputs.Entries)
			results.EnvironmentalCorrelations = results.Correlations
		}
		if len(inputs.Entries) >= cfg.Limits.MinTrackingForEnhanced && ctx.Err() == nil {
			results.PredictiveInsights = analyzer.PredictiveInsights(inputs.Emotions, inputs.Sensory, inputs.Entries, inputs.Goals)
			results.Anomalies = analyzer.DetectAnomalies(inputs.Emotions, inputs.Sensory)
		}
	}

	results.Insights = GenerateInsights(
		analysisSummary{
			patterns:           results.Patterns,
			correlations:       results.Correlations,
			predictiveInsights: results.PredictiveInsights,
		},
		inputs.Emotions,
		inputs.Entries,
		cfg.Insights,
		cfg.Taxonomy.PositiveEmotions,
	)
	results.SuggestedInterventions = suggestInterventions(results)
	results.Confidence = CalculateConfidence(inputs.Emotions, inputs.Sensory, inputs.Entries, cfg.Confidence, e.now())
	results.ComputedAt = e.now()
	return results
}

// suggestInterventions collects the distinct recommendations attached to
// high-signal findings.
func suggestInterventions(results models.AnalyticsResults) []string {
	suggestions := []string{}
	seen := map[string]bool{}
	add := func(recs []string) {
		for _, r := range recs {
			if !seen[r] {
				seen[r] = true
				suggestions = append(suggestions, r)
			}
		}
	}
	for _, p := range results.Patterns {
		add(p.Recommendations)
	}
	for _, c := range results.Correlations {
		if c.Significance == models.SignificanceHigh {
			add(c.Recommendations)
		}
	}
	for _, a := range results.Anomalies {
		if a.Severity == models.SeverityHigh {
			add(a.Recommendations)
		}
	}
	return suggestions
}
