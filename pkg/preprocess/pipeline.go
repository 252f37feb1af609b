// Package preprocess implements a configurable tabular preprocessing
// pipeline with fit/transform semantics and JSON serialization of fitted
// state, so a pipeline trained once can be reapplied reproducibly.
package preprocess

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/whoamaiii/sensetrack/internal/cachekey"
)

// PipelineVersion is stamped into serialized pipelines.
const PipelineVersion = "1.0.0"

// ErrNotFitted is returned by Transform on a pipeline that has not been
// fitted. Transform-before-Fit is a programmer error and fails loudly,
// unlike the analytics path which degrades to empty results.
var ErrNotFitted = errors.New("preprocess: pipeline has not been fitted")

// StepKind identifies a preprocessing step type. Steps always run in the
// canonical order cleaning, scaling, encoding, feature_engineering
// regardless of declaration order.
type StepKind string

const (
	StepCleaning StepKind = "cleaning"
	StepScaling  StepKind = "scaling"
	StepEncoding StepKind = "encoding"
	StepFeatures StepKind = "feature_engineering"
)

var kindOrder = map[StepKind]int{
	StepCleaning: 0,
	StepScaling:  1,
	StepEncoding: 2,
	StepFeatures: 3,
}

// StepConfig declares one pipeline step. Fields not relevant to the step's
// kind are ignored. When, if set, is evaluated against the fit-time
// DataProfile and skips the step when it returns false; it does not survive
// serialization (fitted state alone drives Transform).
type StepConfig struct {
	Name     string   `json:"name"`
	Kind     StepKind `json:"kind"`
	Disabled bool     `json:"disabled,omitempty"`

	When func(DataProfile) bool `json:"-"`

	// cleaning
	DropAllNullColumns bool `json:"drop_all_null_columns,omitempty"`
	TrimStrings        bool `json:"trim_strings,omitempty"`

	// scaling
	Method string `json:"method,omitempty"`

	// encoding
	OneHotMaxCategories int   `json:"one_hot_max_categories,omitempty"`
	IncludeBooleans     *bool `json:"include_booleans,omitempty"`

	// feature_engineering
	PolynomialDegree int `json:"polynomial_degree,omitempty"`
}

// CleaningParams is the fitted state of a cleaning step.
type CleaningParams struct {
	DropColumns []string `json:"drop_columns"`
	TrimStrings bool     `json:"trim_strings"`
}

// ScalingParams holds per-column mean/std learned at fit time. A std of 0
// is stored as-is; Transform substitutes 1 so constant columns center to 0.
type ScalingParams struct {
	Means  map[string]float64 `json:"means"`
	Stds   map[string]float64 `json:"stds"`
	Method string             `json:"method"`
}

// EncodingParams holds the one-hot category sets learned at fit time.
// Unseen categories at transform time map to an all-zero encoding.
type EncodingParams struct {
	Categories      map[string][]string `json:"categories"`
	IncludeBooleans bool                `json:"include_booleans"`
	MaxCategories   int                 `json:"max_categories"`
}

// FeatureParams holds the fitted feature-engineering state.
type FeatureParams struct {
	Degree  int      `json:"degree"`
	Columns []string `json:"columns"`
}

// FittedStep is the serializable state of one fitted step. Exactly one of
// the params fields is set, matching Kind. Warnings record data-quality
// observations from fit time, such as non-finite scaled outputs.
type FittedStep struct {
	Name     string          `json:"name"`
	Kind     StepKind        `json:"kind"`
	Cleaning *CleaningParams `json:"cleaning,omitempty"`
	Scaling  *ScalingParams  `json:"scaling,omitempty"`
	Encoding *EncodingParams `json:"encoding,omitempty"`
	Features *FeatureParams  `json:"features,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Schema records the fit-time column layout.
type Schema struct {
	Columns       []string              `json:"columns"`
	InferredTypes map[string]ColumnType `json:"inferred_types"`
}

// Metadata describes one fitting run.
type Metadata struct {
	CreatedAt       time.Time `json:"created_at"`
	PipelineVersion string    `json:"pipeline_version"`
	ConfigHash      string    `json:"config_hash"`
	DataSchema      Schema    `json:"data_schema"`
	Notes           string    `json:"notes,omitempty"`
}

// Pipeline is an ordered sequence of preprocessing steps. Fit learns step
// parameters and returns the transformed training set; Transform reapplies
// the learned parameters without re-fitting. A Pipeline is not safe for
// concurrent Fit calls; Transform on a fitted pipeline only reads state.
type Pipeline struct {
	config   []StepConfig
	fitted   []FittedStep
	isFitted bool
	meta     *Metadata
	now      func() time.Time
}

// New creates a pipeline from step configs, sorted into canonical kind
// order. Relative order within the same kind is preserved.
func New(configs ...StepConfig) *Pipeline {
	sorted := make([]StepConfig, len(configs))
	copy(sorted, configs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return kindOrder[sorted[i].Kind] < kindOrder[sorted[j].Kind]
	})
	return &Pipeline{config: sorted, now: time.Now}
}

// Metadata returns a copy of the fit metadata, or nil before Fit.
func (p *Pipeline) Metadata() *Metadata {
	if p.meta == nil {
		return nil
	}
	m := *p.meta
	return &m
}

// FittedSteps returns the fitted step states, in execution order.
func (p *Pipeline) FittedSteps() []FittedStep {
	out := make([]FittedStep, len(p.fitted))
	copy(out, p.fitted)
	return out
}

// Fit learns step parameters from the dataset and returns the transformed
// training data. The input is never mutated. An empty dataset fits to an
// empty result without error.
func (p *Pipeline) Fit(data Dataset) (Dataset, error) {
	current := cloneDataset(data)
	profile := InferProfile(current)

	p.meta = &Metadata{
		CreatedAt:       p.now().UTC(),
		PipelineVersion: PipelineVersion,
		ConfigHash:      cachekey.StableHash(p.config),
		DataSchema:      Schema{Columns: profile.Columns, InferredTypes: profile.InferredTypes},
	}
	p.fitted = nil
	p.isFitted = false

	for _, cfg := range p.config {
		if cfg.Disabled {
			continue
		}
		if cfg.When != nil && !cfg.When(profile) {
			continue
		}
		var state FittedStep
		switch cfg.Kind {
		case StepCleaning:
			state = fitCleaning(current, cfg)
		case StepScaling:
			state = fitScaling(current, cfg, profile)
		case StepEncoding:
			state = fitEncoding(current, cfg, profile)
		case StepFeatures:
			state = fitFeatures(cfg, profile)
		default:
			return nil, fmt.Errorf("preprocess: unknown step kind %q", cfg.Kind)
		}
		current = applyStep(current, &state)
		p.fitted = append(p.fitted, state)
	}
	p.isFitted = true

	return current, nil
}

// Transform applies the fitted steps to a dataset. It is a pure function of
// the fitted state and the input: calling it twice on the same input yields
// identical output, and the input is never mutated. A fitted pipeline whose
// steps were all skipped at fit time transforms as the identity.
func (p *Pipeline) Transform(data Dataset) (Dataset, error) {
	if !p.isFitted {
		return nil, ErrNotFitted
	}
	current := cloneDataset(data)
	for i := range p.fitted {
		current = applyStep(current, &p.fitted[i])
	}
	return current, nil
}

func fitCleaning(data Dataset, cfg StepConfig) FittedStep {
	drop := []string{}
	if cfg.DropAllNullColumns {
		columnSet := map[string]bool{}
		for _, row := range data {
			for k := range row {
				columnSet[k] = true
			}
		}
		for col := range columnSet {
			allNull := true
			for _, row := range data {
				if v, ok := row[col]; ok && v != nil {
					allNull = false
					break
				}
			}
			if allNull {
				drop = append(drop, col)
			}
		}
		sort.Strings(drop)
	}
	return FittedStep{
		Name:     cfg.Name,
		Kind:     StepCleaning,
		Cleaning: &CleaningParams{DropColumns: drop, TrimStrings: cfg.TrimStrings},
	}
}

func fitScaling(data Dataset, cfg StepConfig, profile DataProfile) FittedStep {
	method := cfg.Method
	if method == "" {
		method = "standard"
	}
	params := &ScalingParams{Means: map[string]float64{}, Stds: map[string]float64{}, Method: method}

	for _, col := range profile.NumericColumns {
		var vals []float64
		for _, row := range data {
			if v, ok := numericValue(row[col]); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
		var mean, variance float64
		if len(vals) > 0 {
			for _, v := range vals {
				mean += v
			}
			mean /= float64(len(vals))
			for _, v := range vals {
				variance += (v - mean) * (v - mean)
			}
			variance /= float64(len(vals))
		}
		params.Means[col] = mean
		params.Stds[col] = math.Sqrt(variance)
	}

	state := FittedStep{Name: cfg.Name, Kind: StepScaling, Scaling: params}

	// Surface non-finite scaled outputs on the training data rather than
	// letting extreme magnitudes pass silently.
	for _, row := range applyStep(cloneDataset(data), &state) {
		for col := range params.Means {
			if v, ok := numericValue(row[col]); ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
				state.Warnings = append(state.Warnings,
					fmt.Sprintf("column %q produced a non-finite scaled value", col))
				break
			}
		}
	}
	sort.Strings(state.Warnings)

	return state
}

func fitEncoding(data Dataset, cfg StepConfig, profile DataProfile) FittedStep {
	max := cfg.OneHotMaxCategories
	if max <= 0 {
		max = 20
	}
	includeBooleans := true
	if cfg.IncludeBooleans != nil {
		includeBooleans = *cfg.IncludeBooleans
	}

	categories := map[string][]string{}
	for _, col := range profile.Columns {
		colType := profile.InferredTypes[col]
		if colType != ColumnString && !(includeBooleans && colType == ColumnBoolean) {
			continue
		}
		if profile.UniqueCount[col] <= 1 || profile.UniqueCount[col] > max {
			continue
		}
		// Missing values are not a category; they encode as all-zero at
		// transform time, like unseen categories.
		seen := map[string]bool{}
		for _, row := range data {
			if v, ok := row[col]; ok && v != nil {
				seen[categoryKey(v)] = true
			}
		}
		cats := make([]string, 0, len(seen))
		for k := range seen {
			cats = append(cats, k)
		}
		sort.Strings(cats)
		categories[col] = cats
	}

	return FittedStep{
		Name:     cfg.Name,
		Kind:     StepEncoding,
		Encoding: &EncodingParams{Categories: categories, IncludeBooleans: includeBooleans, MaxCategories: max},
	}
}

func fitFeatures(cfg StepConfig, profile DataProfile) FittedStep {
	var cols []string
	if cfg.PolynomialDegree >= 2 {
		cols = append([]string{}, profile.NumericColumns...)
	} else {
		cols = []string{}
	}
	return FittedStep{
		Name:     cfg.Name,
		Kind:     StepFeatures,
		Features: &FeatureParams{Degree: cfg.PolynomialDegree, Columns: cols},
	}
}

func applyStep(data Dataset, state *FittedStep) Dataset {
	out := make(Dataset, 0, len(data))
	for _, row := range data {
		switch state.Kind {
		case StepCleaning:
			out = append(out, applyCleaningRow(row, state.Cleaning))
		case StepScaling:
			out = append(out, applyScalingRow(row, state.Scaling))
		case StepEncoding:
			out = append(out, applyEncodingRow(row, state.Encoding))
		case StepFeatures:
			out = append(out, applyFeaturesRow(row, state.Features))
		default:
			out = append(out, row)
		}
	}
	return out
}

func applyCleaningRow(row Row, params *CleaningParams) Row {
	drop := map[string]bool{}
	for _, c := range params.DropColumns {
		drop[c] = true
	}
	out := Row{}
	for k, v := range row {
		if drop[k] {
			continue
		}
		if s, ok := v.(string); ok && params.TrimStrings {
			out[k] = strings.TrimSpace(s)
			continue
		}
		out[k] = v
	}
	return out
}

func applyScalingRow(row Row, params *ScalingParams) Row {
	out := Row{}
	for k, v := range row {
		out[k] = v
	}
	for col, mean := range params.Means {
		v, ok := numericValue(row[col])
		if !ok {
			continue
		}
		std := params.Stds[col]
		if std == 0 {
			std = 1
		}
		out[col] = (v - mean) / std
	}
	return out
}

func applyEncodingRow(row Row, params *EncodingParams) Row {
	out := Row{}
	for k, v := range row {
		cats, encoded := params.Categories[k]
		if !encoded {
			out[k] = v
			continue
		}
		key := categoryKey(v)
		for _, cat := range cats {
			col := k + "__" + cat
			if key == cat {
				out[col] = 1.0
			} else {
				out[col] = 0.0
			}
		}
	}
	return out
}

func applyFeaturesRow(row Row, params *FeatureParams) Row {
	out := Row{}
	for k, v := range row {
		out[k] = v
	}
	if params.Degree >= 2 {
		for _, col := range params.Columns {
			if v, ok := numericValue(row[col]); ok {
				out[col+"__squared"] = v * v
			}
		}
	}
	return out
}

func categoryKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

func cloneDataset(data Dataset) Dataset {
	out := make(Dataset, 0, len(data))
	for _, row := range data {
		nr := Row{}
		for k, v := range row {
			nr[k] = v
		}
		out = append(out, nr)
	}
	return out
}
