// Package leakage validates train/test splits for data leakage: overlap and
// duplicate indices, temporal ordering violations, and feature contamination
// against the target column.
package leakage

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/models"
	"github.com/whoamaiii/sensetrack/internal/stats"
)

// IssueType is the fixed taxonomy of leakage findings.
type IssueType string

const (
	SplitOverlap           IssueType = "SPLIT_OVERLAP"
	SplitDuplicates        IssueType = "SPLIT_DUPLICATES"
	TemporalGlobal         IssueType = "TEMPORAL_GLOBAL"
	TemporalPerEntity      IssueType = "TEMPORAL_PER_ENTITY"
	TargetInFeatures       IssueType = "TARGET_IN_FEATURES"
	NearIdentityFeature    IssueType = "NEAR_IDENTITY_FEATURE"
	HighCorrelationFeature IssueType = "HIGH_CORRELATION_FEATURE"
	FutureNamedFeature     IssueType = "FUTURE_NAMED_FEATURE"
)

// Issue is one detected leakage finding.
type Issue struct {
	Type     IssueType       `json:"type"`
	Severity models.Severity `json:"severity"`
	Message  string          `json:"message"`
	Details  map[string]any  `json:"details,omitempty"`
}

// Report aggregates all findings for one analyzed split.
type Report struct {
	Issues      []Issue  `json:"issues"`
	HasHighRisk bool     `json:"has_high_risk"`
	Summary     []string `json:"summary"`
}

// Thresholds tunes the feature-contamination checks.
type Thresholds struct {
	// HighCorrelation is the |Pearson r| above which a numeric feature is
	// flagged against the target.
	HighCorrelation float64
	// NearIdentityFraction is the fraction of rows on which a feature must
	// equal the target to be flagged as a disguised label.
	NearIdentityFraction float64
}

// TemporalConfig enables the temporal checks. When nil on the detector
// config, temporal checks are skipped entirely.
type TemporalConfig struct {
	TimeColumn          string
	EntityColumn        string
	AllowTrainAfterTest bool
}

// Config tunes a Detector. Zero-valued thresholds fall back to defaults.
type Config struct {
	// Strict makes Analyze return an error when high-risk leakage is found,
	// in addition to the report.
	Strict     bool
	Thresholds Thresholds
	Temporal   *TemporalConfig
	Logger     logger.Logger
}

// Options describes the split under analysis. TrainIndex and TestIndex are
// zero-based row indices into the records. When FeatureKeys is empty, all
// keys of the first record except the target are used.
type Options struct {
	TrainIndex  []int
	TestIndex   []int
	TargetKey   string
	FeatureKeys []string
}

// ErrHighRiskLeakage is returned by Analyze in strict mode when at least one
// high-severity issue is present. The report is still returned alongside it.
var ErrHighRiskLeakage = errors.New("leakage: high-risk data leakage detected")

// Detector runs the leakage checks. It never mutates its inputs.
type Detector struct {
	cfg Config
	log logger.Logger
}

var futureNamePatterns = []string{
	"target", "label", "outcome", "groundtruth", "ground_truth", "true_",
	"future", "t+1", "t+2", "next", "leak", "post", "after_event",
}

// New creates a Detector, applying default thresholds of 0.9 for high
// correlation and 0.95 for near-identity where unset.
func New(cfg Config) *Detector {
	if cfg.Thresholds.HighCorrelation == 0 {
		cfg.Thresholds.HighCorrelation = 0.9
	}
	if cfg.Thresholds.NearIdentityFraction == 0 {
		cfg.Thresholds.NearIdentityFraction = 0.95
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Detector{cfg: cfg, log: log}
}

// Analyze inspects the split and returns a report of all findings. In
// strict mode it additionally returns ErrHighRiskLeakage when any
// high-severity issue is present; the report remains valid either way.
func (d *Detector) Analyze(records []map[string]any, opts Options) (Report, error) {
	issues := d.validateSplit(opts.TrainIndex, opts.TestIndex)
	if d.cfg.Temporal != nil {
		issues = append(issues, d.detectTemporal(records, opts.TrainIndex, opts.TestIndex)...)
	}
	issues = append(issues, d.checkFeatureContamination(records, opts)...)

	summary := make([]string, 0, len(issues))
	hasHighRisk := false
	for _, issue := range issues {
		summary = append(summary, fmt.Sprintf("%s %s: %s",
			strings.ToUpper(string(issue.Severity)), issue.Type, issue.Message))
		fields := []logger.Field{
			logger.String("type", string(issue.Type)),
			logger.String("severity", string(issue.Severity)),
		}
		switch issue.Severity {
		case models.SeverityHigh:
			hasHighRisk = true
			d.log.Warn("high-risk leakage detected", fields...)
		case models.SeverityMedium:
			d.log.Info("potential leakage risk", fields...)
		default:
			d.log.Debug("leakage note", fields...)
		}
	}

	report := Report{Issues: issues, HasHighRisk: hasHighRisk, Summary: summary}
	if d.cfg.Strict && hasHighRisk {
		return report, fmt.Errorf("%w: %s", ErrHighRiskLeakage, strings.Join(summary, "; "))
	}
	return report, nil
}

func (d *Detector) validateSplit(trainIndex, testIndex []int) []Issue {
	issues := []Issue{}
	train := uniqueInts(trainIndex)
	test := uniqueInts(testIndex)

	testSet := map[int]bool{}
	for _, i := range test {
		testSet[i] = true
	}
	var overlap []int
	for _, i := range train {
		if testSet[i] {
			overlap = append(overlap, i)
		}
	}
	if len(overlap) > 0 {
		issues = append(issues, Issue{
			Type:     SplitOverlap,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("train/test overlap for %d samples; splits must be disjoint", len(overlap)),
			Details:  map[string]any{"overlap_count": len(overlap), "sample_indices": capInts(overlap, 25)},
		})
	}

	if dup := len(trainIndex) - len(train); dup > 0 {
		issues = append(issues, Issue{
			Type:     SplitDuplicates,
			Severity: models.SeverityMedium,
			Message:  fmt.Sprintf("%d duplicate entries in train split", dup),
			Details:  map[string]any{"duplicate_count": dup, "split": "train"},
		})
	}
	if dup := len(testIndex) - len(test); dup > 0 {
		issues = append(issues, Issue{
			Type:     SplitDuplicates,
			Severity: models.SeverityMedium,
			Message:  fmt.Sprintf("%d duplicate entries in test split", dup),
			Details:  map[string]any{"duplicate_count": dup, "split": "test"},
		})
	}

	return issues
}

func (d *Detector) detectTemporal(records []map[string]any, trainIndex, testIndex []int) []Issue {
	issues := []Issue{}
	temporal := d.cfg.Temporal

	severity := models.SeverityHigh
	if temporal.AllowTrainAfterTest {
		severity = models.SeverityMedium
	}

	var trainTimes, testTimes []time.Time
	for _, i := range trainIndex {
		if t, ok := rowTime(records, i, temporal.TimeColumn); ok {
			trainTimes = append(trainTimes, t)
		}
	}
	for _, i := range testIndex {
		if t, ok := rowTime(records, i, temporal.TimeColumn); ok {
			testTimes = append(testTimes, t)
		}
	}
	if len(trainTimes) > 0 && len(testTimes) > 0 {
		maxTrain := maxTime(trainTimes)
		minTest := minTime(testTimes)
		if maxTrain.After(minTest) {
			issues = append(issues, Issue{
				Type:     TemporalGlobal,
				Severity: severity,
				Message: fmt.Sprintf("training data extends (%s) beyond earliest test timestamp (%s)",
					maxTrain.Format(time.RFC3339), minTest.Format(time.RFC3339)),
				Details: map[string]any{"max_train": maxTrain, "min_test": minTest},
			})
		}
	}

	if temporal.EntityColumn != "" {
		maxTrainByEntity := map[string]time.Time{}
		minTestByEntity := map[string]time.Time{}
		for _, i := range trainIndex {
			ent, t, ok := rowEntityTime(records, i, temporal.EntityColumn, temporal.TimeColumn)
			if !ok {
				continue
			}
			if cur, seen := maxTrainByEntity[ent]; !seen || t.After(cur) {
				maxTrainByEntity[ent] = t
			}
		}
		for _, i := range testIndex {
			ent, t, ok := rowEntityTime(records, i, temporal.EntityColumn, temporal.TimeColumn)
			if !ok {
				continue
			}
			if cur, seen := minTestByEntity[ent]; !seen || t.Before(cur) {
				minTestByEntity[ent] = t
			}
		}

		var offenders []string
		for ent, maxT := range maxTrainByEntity {
			minT, inTest := minTestByEntity[ent]
			if inTest && maxT.After(minT) {
				offenders = append(offenders, ent)
			}
		}
		if len(offenders) > 0 {
			sort.Strings(offenders)
			issues = append(issues, Issue{
				Type:     TemporalPerEntity,
				Severity: severity,
				Message: fmt.Sprintf("%d entity(ies) have training data after their test start",
					len(offenders)),
				Details: map[string]any{"entities": capStrings(offenders, 25)},
			})
		}
	}

	return issues
}

func (d *Detector) checkFeatureContamination(records []map[string]any, opts Options) []Issue {
	issues := []Issue{}
	features := pickFeatureKeys(records, opts.TargetKey, opts.FeatureKeys)

	for _, f := range features {
		if hasLeakNamePattern(f) {
			issues = append(issues, Issue{
				Type:     FutureNamedFeature,
				Severity: models.SeverityHigh,
				Message:  fmt.Sprintf("feature %q name suggests future or label leakage", f),
				Details:  map[string]any{"feature": f},
			})
		}
	}

	if opts.TargetKey == "" {
		return issues
	}

	for _, f := range features {
		if f == opts.TargetKey {
			issues = append(issues, Issue{
				Type:     TargetInFeatures,
				Severity: models.SeverityHigh,
				Message:  fmt.Sprintf("target key %q is present among features", opts.TargetKey),
				Details:  map[string]any{"target_key": opts.TargetKey},
			})
			break
		}
	}

	trainSet := map[int]bool{}
	for _, i := range opts.TrainIndex {
		trainSet[i] = true
	}

	for _, f := range features {
		if frac := fractionEqual(records, f, opts.TargetKey); frac >= d.cfg.Thresholds.NearIdentityFraction {
			issues = append(issues, Issue{
				Type:     NearIdentityFeature,
				Severity: models.SeverityHigh,
				Message:  fmt.Sprintf("feature %q matches target in %d%% of rows", f, int(math.Round(frac*100))),
				Details:  map[string]any{"feature": f, "fraction_equal": frac},
			})
		}

		var xTrain, yTrain []float64
		for i, row := range records {
			if !trainSet[i] {
				continue
			}
			xv, xok := numericValue(row[f])
			yv, yok := numericValue(row[opts.TargetKey])
			if xok && yok && isFinite(xv) && isFinite(yv) {
				xTrain = append(xTrain, xv)
				yTrain = append(yTrain, yv)
			}
		}
		if len(xTrain) >= 3 {
			r := math.Abs(stats.PearsonCorrelation(xTrain, yTrain))
			if isFinite(r) && r >= d.cfg.Thresholds.HighCorrelation {
				issues = append(issues, Issue{
					Type:     HighCorrelationFeature,
					Severity: models.SeverityHigh,
					Message:  fmt.Sprintf("feature %q has |r|=%.3f with target on training data", f, r),
					Details:  map[string]any{"feature": f, "correlation": r},
				})
			}
		}
	}

	return issues
}

func pickFeatureKeys(records []map[string]any, targetKey string, provided []string) []string {
	if len(provided) > 0 {
		out := make([]string, len(provided))
		copy(out, provided)
		return out
	}
	if len(records) == 0 {
		return nil
	}
	var keys []string
	for k := range records[0] {
		if k != targetKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func hasLeakNamePattern(name string) bool {
	lowered := strings.ToLower(name)
	if lowered == "y" {
		return true
	}
	for _, p := range futureNamePatterns {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// fractionEqual compares a feature column against the target row-by-row,
// counting only rows where both values are present.
func fractionEqual(records []map[string]any, featureKey, targetKey string) float64 {
	var eq, total int
	for _, row := range records {
		fv, fok := row[featureKey]
		tv, tok := row[targetKey]
		if !fok || !tok {
			continue
		}
		total++
		if valuesEqual(fv, tv) {
			eq++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(eq) / float64(total)
}

func valuesEqual(a, b any) bool {
	if an, ok := numericValue(a); ok {
		if bn, ok := numericValue(b); ok {
			return an == bn
		}
		return false
	}
	return a == b
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

func rowTime(records []map[string]any, i int, timeColumn string) (time.Time, bool) {
	if i < 0 || i >= len(records) {
		return time.Time{}, false
	}
	return toTime(records[i][timeColumn])
}

func rowEntityTime(records []map[string]any, i int, entityColumn, timeColumn string) (string, time.Time, bool) {
	if i < 0 || i >= len(records) {
		return "", time.Time{}, false
	}
	row := records[i]
	ent, _ := row[entityColumn].(string)
	if ent == "" {
		return "", time.Time{}, false
	}
	t, ok := toTime(row[timeColumn])
	return ent, t, ok
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case float64:
		return time.UnixMilli(int64(t)), true
	case int64:
		return time.UnixMilli(t), true
	case int:
		return time.UnixMilli(int64(t)), true
	}
	return time.Time{}, false
}

func maxTime(times []time.Time) time.Time {
	out := times[0]
	for _, t := range times[1:] {
		if t.After(out) {
			out = t
		}
	}
	return out
}

func minTime(times []time.Time) time.Time {
	out := times[0]
	for _, t := range times[1:] {
		if t.Before(out) {
			out = t
		}
	}
	return out
}

func uniqueInts(in []int) []int {
	seen := map[int]bool{}
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func capInts(in []int, n int) []int {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

func capStrings(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}
