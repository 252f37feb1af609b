// Package insights is the unified analytics entry point: it builds cacheable
// task envelopes for insight computation and orchestrates the analyzers into
// a single AnalyticsResults aggregate.
package insights

import (
	"time"

	"github.com/whoamaiii/sensetrack/internal/cachekey"
	"github.com/whoamaiii/sensetrack/internal/config"
	"github.com/whoamaiii/sensetrack/internal/models"
)

// TaskType identifies insight computation tasks in worker envelopes.
const TaskType = "Insights/Compute"

// DefaultTTLSeconds applies when neither options nor config resolve a TTL.
const DefaultTTLSeconds = 300

// Inputs carries the raw records one computation runs over.
type Inputs struct {
	Entries  []models.TrackingEntry `json:"entries"`
	Emotions []models.EmotionEntry  `json:"emotions"`
	Sensory  []models.SensoryEntry  `json:"sensory_inputs"`
	Goals    []models.Goal          `json:"goals,omitempty"`
}

// Options tunes task construction.
type Options struct {
	// Config overrides the runtime configuration for this computation.
	Config *config.AnalyticsConfig
	// TTLSeconds overrides the cache TTL when > 0.
	TTLSeconds int
	// Tags extend the base task tags.
	Tags []string
}

// ConfigSubset is the narrow slice of configuration that affects computation
// semantics. Hashing only this subset keeps cache keys stable across
// unrelated config edits.
type ConfigSubset struct {
	Insights    config.InsightsConfig    `json:"insights"`
	Confidence  config.ConfidenceConfig  `json:"confidence"`
	Limits      config.AnalyticsLimits   `json:"limits"`
	TimeWindows config.TimeWindowsConfig `json:"time_windows"`
}

// Payload is what a worker receives for one computation.
type Payload struct {
	Inputs Inputs        `json:"inputs"`
	Config *ConfigSubset `json:"config,omitempty"`
}

// Task is the envelope describing one unit of insights work. Building one
// has no side effects: no worker is spawned and no cache is touched.
type Task struct {
	Type       string   `json:"type"`
	Payload    Payload  `json:"payload"`
	CacheKey   string   `json:"cache_key"`
	TTLSeconds int      `json:"ttl_seconds"`
	Tags       []string `json:"tags"`
}

func pickConfigSubset(cfg *config.AnalyticsConfig) ConfigSubset {
	base := config.DefaultAnalyticsConfig()
	if cfg != nil {
		base = *cfg
	}
	return ConfigSubset{
		Insights:    base.Insights,
		Confidence:  base.Confidence,
		Limits:      base.Limits,
		TimeWindows: base.TimeWindows,
	}
}

// BuildCacheKey derives a deterministic key for one computation. The key
// hashes structural summaries (counts, latest timestamps, config subset)
// rather than the raw arrays, so reordering inputs never changes the key
// while adding or removing a record always does.
func BuildCacheKey(inputs Inputs, opts Options) string {
	summary := map[string]any{
		"counts": map[string]any{
			"entries":  len(inputs.Entries),
			"emotions": len(inputs.Emotions),
			"sensory":  len(inputs.Sensory),
			"goals":    len(inputs.Goals),
		},
		"latestTimestamps": map[string]any{
			"entries":  latestEntryTimestamp(inputs.Entries),
			"emotions": latestEmotionTimestamp(inputs.Emotions),
			"sensory":  latestSensoryTimestamp(inputs.Sensory),
		},
		"config": pickConfigSubset(opts.Config),
	}

	return cachekey.Build(cachekey.Options{
		Namespace:           "insights",
		Input:               summary,
		NormalizeArrayOrder: true,
	})
}

// BuildTask assembles the full envelope: cache key, resolved TTL and tags.
func BuildTask(inputs Inputs, opts Options) Task {
	var subset *ConfigSubset
	if opts.Config != nil {
		s := pickConfigSubset(opts.Config)
		subset = &s
	}

	baseTags := []string{"insights", "v2"}
	tags := baseTags
	if len(opts.Tags) > 0 {
		seen := map[string]bool{}
		tags = make([]string, 0, len(baseTags)+len(opts.Tags))
		for _, t := range append(baseTags, opts.Tags...) {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}

	return Task{
		Type:       TaskType,
		Payload:    Payload{Inputs: inputs, Config: subset},
		CacheKey:   BuildCacheKey(inputs, opts),
		TTLSeconds: resolveTTLSeconds(opts),
		Tags:       tags,
	}
}

func resolveTTLSeconds(opts Options) int {
	if opts.TTLSeconds > 0 {
		return opts.TTLSeconds
	}
	cfg := config.DefaultAnalyticsConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if ms := cfg.Cache.TTLMillis; ms > 0 {
		ttl := ms / 1000
		if ttl < 1 {
			ttl = 1
		}
		return ttl
	}
	return DefaultTTLSeconds
}

func latestEntryTimestamp(entries []models.TrackingEntry) *time.Time {
	var latest *time.Time
	for i := range entries {
		ts := entries[i].Timestamp
		if latest == nil || ts.After(*latest) {
			latest = &ts
		}
	}
	return latest
}

func latestEmotionTimestamp(emotions []models.EmotionEntry) *time.Time {
	var latest *time.Time
	for i := range emotions {
		ts := emotions[i].Timestamp
		if latest == nil || ts.After(*latest) {
			latest = &ts
		}
	}
	return latest
}

func latestSensoryTimestamp(sensory []models.SensoryEntry) *time.Time {
	var latest *time.Time
	for i := range sensory {
		ts := sensory[i].Timestamp
		if latest == nil || ts.After(*latest) {
			latest = &ts
		}
	}
	return latest
}
