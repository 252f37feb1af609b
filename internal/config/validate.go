package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationResult reports the outcome of validating an analytics
// configuration. When the candidate is invalid, Config carries the safe
// fallback (the defaults) so callers always have something usable.
type ValidationResult struct {
	IsValid bool            `json:"is_valid"`
	Config  AnalyticsConfig `json:"config"`
	Errors  []string        `json:"errors,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateAnalytics checks every threshold in cfg against its schema tags
// plus the cross-field rules the tags cannot express. All violations are
// collected, not just the first.
func ValidateAnalytics(cfg AnalyticsConfig) ValidationResult {
	var errs []string

	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	weightSum := cfg.Confidence.EmotionWeight + cfg.Confidence.SensoryWeight + cfg.Confidence.TrackingWeight
	if weightSum <= 0 {
		errs = append(errs, "confidence: weights must sum to a positive value")
	}
	if cfg.Insights.NegativeEmotionThreshold > cfg.Insights.PositiveEmotionThreshold {
		errs = append(errs, "insights: negative_emotion_threshold exceeds positive_emotion_threshold")
	}
	sig := cfg.EnhancedAnalysis
	if !(sig.CorrelationSignificanceLow <= sig.CorrelationSignificanceMid && sig.CorrelationSignificanceMid <= sig.CorrelationSignificanceHigh) {
		errs = append(errs, "enhanced_analysis: correlation significance bands must be ordered low <= moderate <= high")
	}

	if len(errs) > 0 {
		return ValidationResult{IsValid: false, Config: DefaultAnalyticsConfig(), Errors: errs}
	}
	return ValidationResult{IsValid: true, Config: cfg}
}
