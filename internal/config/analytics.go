package config

// AnalyticsConfig tunes every stage of the analytics pipeline. All thresholds
// are runtime-validated; invalid configurations fall back to the defaults.
type AnalyticsConfig struct {
	PatternAnalysis  PatternAnalysisConfig  `mapstructure:"pattern_analysis" json:"pattern_analysis"`
	EnhancedAnalysis EnhancedAnalysisConfig `mapstructure:"enhanced_analysis" json:"enhanced_analysis"`
	TimeWindows      TimeWindowsConfig      `mapstructure:"time_windows" json:"time_windows"`
	Cache            CacheConfig            `mapstructure:"cache" json:"cache"`
	Insights         InsightsConfig         `mapstructure:"insights" json:"insights"`
	Limits           AnalyticsLimits        `mapstructure:"limits" json:"limits"`
	Confidence       ConfidenceConfig       `mapstructure:"confidence" json:"confidence"`
	Taxonomy         TaxonomyConfig         `mapstructure:"taxonomy" json:"taxonomy"`
	Precomputation   PrecomputationConfig   `mapstructure:"precomputation" json:"precomputation"`
}

// PatternAnalysisConfig gates the basic emotion/sensory pattern pass.
type PatternAnalysisConfig struct {
	MinDataPoints               int     `mapstructure:"min_data_points" json:"min_data_points" validate:"gte=1"`
	CorrelationThreshold        float64 `mapstructure:"correlation_threshold" json:"correlation_threshold" validate:"gte=0,lte=1"`
	HighIntensityThreshold      float64 `mapstructure:"high_intensity_threshold" json:"high_intensity_threshold" validate:"gte=0"`
	ConcernFrequencyThreshold   float64 `mapstructure:"concern_frequency_threshold" json:"concern_frequency_threshold" validate:"gte=0,lte=1"`
	EmotionConsistencyThreshold float64 `mapstructure:"emotion_consistency_threshold" json:"emotion_consistency_threshold" validate:"gte=0,lte=1"`
	ModerateNegativeThreshold   float64 `mapstructure:"moderate_negative_threshold" json:"moderate_negative_threshold" validate:"gte=0,lte=1"`
}

// HuberConfig tunes the robust trend regression.
type HuberConfig struct {
	Delta   float64 `mapstructure:"delta" json:"delta" validate:"gt=0"`
	MaxIter int     `mapstructure:"max_iter" json:"max_iter" validate:"gte=1"`
	Tol     float64 `mapstructure:"tol" json:"tol" validate:"gt=0"`
}

// EnhancedAnalysisConfig gates trends, predictions and anomaly detection.
type EnhancedAnalysisConfig struct {
	MinSampleSize                 int         `mapstructure:"min_sample_size" json:"min_sample_size" validate:"gte=1"`
	TrendThreshold                float64     `mapstructure:"trend_threshold" json:"trend_threshold" validate:"gte=0"`
	PredictionConfidenceThreshold float64     `mapstructure:"prediction_confidence_threshold" json:"prediction_confidence_threshold" validate:"gte=0,lte=1"`
	AnomalyThreshold              float64     `mapstructure:"anomaly_threshold" json:"anomaly_threshold" validate:"gt=0"`
	AnomalySeverityMedium         float64     `mapstructure:"anomaly_severity_medium" json:"anomaly_severity_medium" validate:"gt=0"`
	AnomalySeverityHigh           float64     `mapstructure:"anomaly_severity_high" json:"anomaly_severity_high" validate:"gtefield=AnomalySeverityMedium"`
	Huber                         HuberConfig `mapstructure:"huber" json:"huber"`
	QualityPointsTarget           int         `mapstructure:"quality_points_target" json:"quality_points_target" validate:"gte=1"`
	QualitySpanDaysTarget         int         `mapstructure:"quality_span_days_target" json:"quality_span_days_target" validate:"gte=1"`
	CorrelationSignificanceHigh   float64     `mapstructure:"correlation_significance_high" json:"correlation_significance_high" validate:"gte=0,lte=1"`
	CorrelationSignificanceMid    float64     `mapstructure:"correlation_significance_moderate" json:"correlation_significance_moderate" validate:"gte=0,lte=1"`
	CorrelationSignificanceLow    float64     `mapstructure:"correlation_significance_low" json:"correlation_significance_low" validate:"gte=0,lte=1"`
}

// TimeWindowsConfig sets the trailing windows, in days, the analyzers use.
type TimeWindowsConfig struct {
	DefaultAnalysisDays int `mapstructure:"default_analysis_days" json:"default_analysis_days" validate:"gte=1"`
	RecentDays          int `mapstructure:"recent_days" json:"recent_days" validate:"gte=1"`
	ShortTermDays       int `mapstructure:"short_term_days" json:"short_term_days" validate:"gte=1"`
	LongTermDays        int `mapstructure:"long_term_days" json:"long_term_days" validate:"gte=1"`
}

// CacheConfig controls result caching. TTL is kept in milliseconds to stay
// compatible with stored configurations; task envelopes convert to seconds.
type CacheConfig struct {
	TTLMillis                int  `mapstructure:"ttl_millis" json:"ttl_millis" validate:"gte=0"`
	MaxSize                  int  `mapstructure:"max_size" json:"max_size" validate:"gte=1"`
	InvalidateOnConfigChange bool `mapstructure:"invalidate_on_config_change" json:"invalidate_on_config_change"`
}

// InsightsConfig shapes the human-readable insight strings.
type InsightsConfig struct {
	MinSessionsForFullAnalytics    int     `mapstructure:"min_sessions_for_full_analytics" json:"min_sessions_for_full_analytics" validate:"gte=1"`
	HighConfidencePatternThreshold float64 `mapstructure:"high_confidence_pattern_threshold" json:"high_confidence_pattern_threshold" validate:"gte=0,lte=1"`
	MaxPatternsToShow              int     `mapstructure:"max_patterns_to_show" json:"max_patterns_to_show" validate:"gte=1"`
	MaxCorrelationsToShow          int     `mapstructure:"max_correlations_to_show" json:"max_correlations_to_show" validate:"gte=1"`
	MaxPredictionsToShow           int     `mapstructure:"max_predictions_to_show" json:"max_predictions_to_show" validate:"gte=1"`
	RecentEmotionCount             int     `mapstructure:"recent_emotion_count" json:"recent_emotion_count" validate:"gte=1"`
	PositiveEmotionThreshold       float64 `mapstructure:"positive_emotion_threshold" json:"positive_emotion_threshold" validate:"gte=0,lte=1"`
	NegativeEmotionThreshold       float64 `mapstructure:"negative_emotion_threshold" json:"negative_emotion_threshold" validate:"gte=0,lte=1"`
	Locale                         string  `mapstructure:"locale" json:"locale"`
}

// AnalyticsLimits holds the minimum-data gates for the unified pass.
type AnalyticsLimits struct {
	MinTrackingForCorrelation int `mapstructure:"min_tracking_for_correlation" json:"min_tracking_for_correlation" validate:"gte=1"`
	MinTrackingForEnhanced    int `mapstructure:"min_tracking_for_enhanced" json:"min_tracking_for_enhanced" validate:"gte=1"`
	AnalysisPeriodDays        int `mapstructure:"analysis_period_days" json:"analysis_period_days" validate:"gte=1"`
}

// ConfidenceConfig drives the volume-and-recency confidence score.
// Weights should sum to roughly 1; the result is clamped either way.
type ConfidenceConfig struct {
	EmotionEntriesThreshold  int     `mapstructure:"emotion_entries_threshold" json:"emotion_entries_threshold" validate:"gte=1"`
	SensoryEntriesThreshold  int     `mapstructure:"sensory_entries_threshold" json:"sensory_entries_threshold" validate:"gte=1"`
	TrackingEntriesThreshold int     `mapstructure:"tracking_entries_threshold" json:"tracking_entries_threshold" validate:"gte=1"`
	EmotionWeight            float64 `mapstructure:"emotion_weight" json:"emotion_weight" validate:"gte=0,lte=1"`
	SensoryWeight            float64 `mapstructure:"sensory_weight" json:"sensory_weight" validate:"gte=0,lte=1"`
	TrackingWeight           float64 `mapstructure:"tracking_weight" json:"tracking_weight" validate:"gte=0,lte=1"`
	RecencyBoost             float64 `mapstructure:"recency_boost" json:"recency_boost" validate:"gte=0,lte=1"`
	RecencyDays              int     `mapstructure:"recency_days" json:"recency_days" validate:"gte=1"`
}

// TaxonomyConfig names the emotion vocabulary the analyzers group by.
type TaxonomyConfig struct {
	PositiveEmotions []string `mapstructure:"positive_emotions" json:"positive_emotions" validate:"min=1"`
}

// PrecomputationConfig controls when background analytics may run on a
// constrained device.
type PrecomputationConfig struct {
	Enabled                  bool    `mapstructure:"enabled" json:"enabled"`
	PrecomputeOnlyWhenIdle   bool    `mapstructure:"precompute_only_when_idle" json:"precompute_only_when_idle"`
	IdleTimeoutMillis        int     `mapstructure:"idle_timeout_millis" json:"idle_timeout_millis" validate:"gte=0"`
	RespectBatteryLevel      bool    `mapstructure:"respect_battery_level" json:"respect_battery_level"`
	EnableOnBattery          bool    `mapstructure:"enable_on_battery" json:"enable_on_battery"`
	RespectNetworkConditions bool    `mapstructure:"respect_network_conditions" json:"respect_network_conditions"`
	EnableOnSlowNetwork      bool    `mapstructure:"enable_on_slow_network" json:"enable_on_slow_network"`
	RespectCPUUsage          bool    `mapstructure:"respect_cpu_usage" json:"respect_cpu_usage"`
	PauseOnUserActivity      bool    `mapstructure:"pause_on_user_activity" json:"pause_on_user_activity"`
	MaxMemoryRatio           float64 `mapstructure:"max_memory_ratio" json:"max_memory_ratio" validate:"gt=0,lte=1"`
	MaxFrameMillis           float64 `mapstructure:"max_frame_millis" json:"max_frame_millis" validate:"gt=0"`
}

// DefaultAnalyticsConfig returns the baseline ("balanced") configuration.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		PatternAnalysis: PatternAnalysisConfig{
			MinDataPoints:               3,
			CorrelationThreshold:        0.25,
			HighIntensityThreshold:      4,
			ConcernFrequencyThreshold:   0.3,
			EmotionConsistencyThreshold: 0.4,
			ModerateNegativeThreshold:   0.4,
		},
		EnhancedAnalysis: EnhancedAnalysisConfig{
			MinSampleSize:                 5,
			TrendThreshold:                0.02,
			PredictionConfidenceThreshold: 0.6,
			AnomalyThreshold:              2.5,
			AnomalySeverityMedium:         2.5,
			AnomalySeverityHigh:           3.0,
			Huber: HuberConfig{
				Delta:   1.345,
				MaxIter: 50,
				Tol:     1e-6,
			},
			QualityPointsTarget:         30,
			QualitySpanDaysTarget:       21,
			CorrelationSignificanceHigh: 0.7,
			CorrelationSignificanceMid:  0.5,
			CorrelationSignificanceLow:  0.3,
		},
		TimeWindows: TimeWindowsConfig{
			DefaultAnalysisDays: 30,
			RecentDays:          7,
			ShortTermDays:       14,
			LongTermDays:        90,
		},
		Cache: CacheConfig{
			TTLMillis:                600000,
			MaxSize:                  50,
			InvalidateOnConfigChange: true,
		},
		Insights: InsightsConfig{
			MinSessionsForFullAnalytics:    5,
			HighConfidencePatternThreshold: 0.6,
			MaxPatternsToShow:              2,
			MaxCorrelationsToShow:          2,
			MaxPredictionsToShow:           2,
			RecentEmotionCount:             7,
			PositiveEmotionThreshold:       0.6,
			NegativeEmotionThreshold:       0.3,
			Locale:                         "en-US",
		},
		Limits: AnalyticsLimits{
			MinTrackingForCorrelation: 3,
			MinTrackingForEnhanced:    2,
			AnalysisPeriodDays:        30,
		},
		Confidence: ConfidenceConfig{
			EmotionEntriesThreshold:  10,
			SensoryEntriesThreshold:  10,
			TrackingEntriesThreshold: 5,
			EmotionWeight:            0.3,
			SensoryWeight:            0.3,
			TrackingWeight:           0.4,
			RecencyBoost:             0.1,
			RecencyDays:              7,
		},
		Taxonomy: TaxonomyConfig{
			PositiveEmotions: []string{
				"happy", "calm", "excited", "content",
				"peaceful", "cheerful", "relaxed", "optimistic",
			},
		},
		Precomputation: PrecomputationConfig{
			Enabled:                  true,
			PrecomputeOnlyWhenIdle:   true,
			IdleTimeoutMillis:        5000,
			RespectBatteryLevel:      true,
			EnableOnBattery:          false,
			RespectNetworkConditions: true,
			EnableOnSlowNetwork:      false,
			RespectCPUUsage:          true,
			PauseOnUserActivity:      true,
			MaxMemoryRatio:           0.85,
			MaxFrameMillis:           40,
		},
	}
}

// Preset names an alternate sensitivity profile.
type Preset string

const (
	PresetConservative Preset = "conservative"
	PresetBalanced     Preset = "balanced"
	PresetSensitive    Preset = "sensitive"
)

// PresetConfig returns the configuration for a named preset. Unknown names
// return the balanced default with ok=false.
func PresetConfig(p Preset) (AnalyticsConfig, bool) {
	cfg := DefaultAnalyticsConfig()
	switch p {
	case PresetBalanced:
		return cfg, true
	case PresetConservative:
		// Surfaces fewer, higher-certainty findings.
		cfg.PatternAnalysis.MinDataPoints = 5
		cfg.PatternAnalysis.CorrelationThreshold = 0.4
		cfg.PatternAnalysis.ConcernFrequencyThreshold = 0.4
		cfg.EnhancedAnalysis.MinSampleSize = 8
		cfg.EnhancedAnalysis.AnomalyThreshold = 3.0
		cfg.EnhancedAnalysis.AnomalySeverityMedium = 3.0
		cfg.EnhancedAnalysis.AnomalySeverityHigh = 3.5
		cfg.EnhancedAnalysis.PredictionConfidenceThreshold = 0.75
		return cfg, true
	case PresetSensitive:
		// Flags weaker signals earlier, at the cost of noise.
		cfg.PatternAnalysis.MinDataPoints = 2
		cfg.PatternAnalysis.CorrelationThreshold = 0.15
		cfg.PatternAnalysis.ConcernFrequencyThreshold = 0.2
		cfg.EnhancedAnalysis.MinSampleSize = 3
		cfg.EnhancedAnalysis.AnomalyThreshold = 2.0
		cfg.EnhancedAnalysis.AnomalySeverityMedium = 2.0
		cfg.EnhancedAnalysis.AnomalySeverityHigh = 2.8
		cfg.EnhancedAnalysis.PredictionConfidenceThreshold = 0.45
		return cfg, true
	}
	return cfg, false
}
