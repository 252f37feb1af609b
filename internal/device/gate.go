// Package device decides whether background analytics precomputation may
// run, based on idle time, battery, network quality and memory/CPU
// pressure. Probes are injected so the gate stays testable; each probe
// fails open when its underlying source is unavailable, while the gate as a
// whole fails closed when the execution environment itself is unavailable.
package device

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/whoamaiii/sensetrack/internal/config"
)

// MinIdleTimeout is the floor applied to the configured idle timeout.
const MinIdleTimeout = 1000 * time.Millisecond

// activityPauseIdle is the minimum idle period required when
// pause_on_user_activity is set.
const activityPauseIdle = 1500 * time.Millisecond

// frameSampleCount is how many frame intervals the CPU check averages.
const frameSampleCount = 6

// BatteryStatus reports the device power state.
type BatteryStatus struct {
	// Level is the charge fraction in [0,1].
	Level    float64
	Charging bool
}

// NetworkStatus reports connection quality.
type NetworkStatus struct {
	EffectiveType string
	DownlinkMbps  float64
	RTT           time.Duration
	SaveData      bool
}

// MemoryStatus reports heap pressure.
type MemoryStatus struct {
	UsedBytes  uint64
	TotalBytes uint64
}

// ActivityTracker reports the last user interaction. Implementations are
// updated by event listeners elsewhere; the gate only reads.
type ActivityTracker interface {
	LastActivity() time.Time
}

// BatteryProbe reads the battery state.
type BatteryProbe interface {
	Battery(ctx context.Context) (BatteryStatus, error)
}

// NetworkProbe reads connection quality.
type NetworkProbe interface {
	Network(ctx context.Context) (NetworkStatus, error)
}

// MemoryProbe reads heap usage.
type MemoryProbe interface {
	Memory(ctx context.Context) (MemoryStatus, error)
}

// FrameSampler measures the average interval across n rendering frames.
type FrameSampler interface {
	SampleFrames(ctx context.Context, n int) (time.Duration, error)
}

// Probes bundles the environment sensors the gate consults. Available
// reports whether the execution environment supports probing at all; when
// false, CanPrecompute returns false regardless of configuration. Any nil
// probe makes its corresponding check pass.
type Probes struct {
	Available bool
	Activity  ActivityTracker
	Battery   BatteryProbe
	Network   NetworkProbe
	Memory    MemoryProbe
	Frames    FrameSampler
}

// Gate evaluates the precomputation policy against the probed environment.
type Gate struct {
	probes Probes
	now    func() time.Time
}

// NewGate creates a Gate with the real clock.
func NewGate(probes Probes) *Gate {
	return &Gate{probes: probes, now: time.Now}
}

// NewGateWithClock creates a Gate with a fixed clock, for tests.
func NewGateWithClock(probes Probes, now func() time.Time) *Gate {
	return &Gate{probes: probes, now: now}
}

// CanPrecompute evaluates the configured checks in order, short-circuiting
// to false on the first failure: idle timeout, battery, network, memory and
// frame timing, then the user-activity pause.
func (g *Gate) CanPrecompute(ctx context.Context, cfg config.PrecomputationConfig) bool {
	if !g.probes.Available || !cfg.Enabled {
		return false
	}

	if cfg.PrecomputeOnlyWhenIdle && !g.idleFor(idleTimeout(cfg)) {
		return false
	}

	if cfg.RespectBatteryLevel && !cfg.EnableOnBattery && g.probes.Battery != nil {
		status, err := g.probes.Battery.Battery(ctx)
		if err == nil && !status.Charging && status.Level <= 0.3 {
			return false
		}
	}

	if cfg.RespectNetworkConditions && !cfg.EnableOnSlowNetwork && g.probes.Network != nil {
		status, err := g.probes.Network.Network(ctx)
		if err == nil && isSlowNetwork(status) {
			return false
		}
	}

	if cfg.RespectCPUUsage {
		if !g.memoryOK(ctx, cfg) {
			return false
		}
		if !g.framesOK(ctx, cfg) {
			return false
		}
	}

	if cfg.PauseOnUserActivity && !g.idleFor(activityPauseIdle) {
		return false
	}

	return true
}

func (g *Gate) idleFor(d time.Duration) bool {
	if g.probes.Activity == nil {
		return true
	}
	return g.now().Sub(g.probes.Activity.LastActivity()) >= d
}

func (g *Gate) memoryOK(ctx context.Context, cfg config.PrecomputationConfig) bool {
	if g.probes.Memory == nil {
		return true
	}
	status, err := g.probes.Memory.Memory(ctx)
	if err != nil || status.TotalBytes == 0 {
		return true
	}
	maxRatio := cfg.MaxMemoryRatio
	if maxRatio <= 0 {
		maxRatio = 0.85
	}
	return float64(status.UsedBytes)/float64(status.TotalBytes) <= maxRatio
}

func (g *Gate) framesOK(ctx context.Context, cfg config.PrecomputationConfig) bool {
	if g.probes.Frames == nil {
		return true
	}
	avg, err := g.probes.Frames.SampleFrames(ctx, frameSampleCount)
	if err != nil {
		return true
	}
	maxFrame := cfg.MaxFrameMillis
	if maxFrame <= 0 {
		maxFrame = 40
	}
	return avg <= time.Duration(maxFrame*float64(time.Millisecond))
}

func idleTimeout(cfg config.PrecomputationConfig) time.Duration {
	d := time.Duration(cfg.IdleTimeoutMillis) * time.Millisecond
	if d < MinIdleTimeout {
		d = MinIdleTimeout
	}
	return d
}

func isSlowNetwork(status NetworkStatus) bool {
	if strings.Contains(strings.ToLower(status.EffectiveType), "2g") {
		return true
	}
	if status.DownlinkMbps > 0 && status.DownlinkMbps < 1 {
		return true
	}
	if status.RTT > 800*time.Millisecond {
		return true
	}
	return status.SaveData
}

// ActivityRecorder is a thread-safe ActivityTracker updated by interaction
// events.
type ActivityRecorder struct {
	mu   sync.RWMutex
	last time.Time
}

// NewActivityRecorder starts with the current time as the last activity.
func NewActivityRecorder() *ActivityRecorder {
	return &ActivityRecorder{last: time.Now()}
}

// Touch records an interaction at the given time.
func (r *ActivityRecorder) Touch(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.After(r.last) {
		r.last = t
	}
}

// LastActivity returns the most recent recorded interaction.
func (r *ActivityRecorder) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}
