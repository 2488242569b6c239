// Motion engine. Samples the accelerometer on its own cadence, computes an
// orientation-independent force and classifies sustained motion (swing, from
// the smoothed force) versus impacts (hit, from the raw force; smoothing
// would attenuate a short transient spike below its true peak).
package core

import (
	"math"
	"time"
)

// Accelerometer is the capability interface for the 3-axis sensor.
// Acceleration returns micro-g per axis, matching the tinygo.org/x/drivers
// convention, so driver types plug in directly.
type Accelerometer interface {
	Configure() error
	Acceleration() (x, y, z int32, err error)
}

const gravity = 9.80665 // m/s^2 per g

// Motion tracks force and classification state.
type Motion struct {
	cfg   *Config
	accel Accelerometer

	smoothed float32 // EMA of raw force
	raw      float32 // Latest gravity-relative force
	seeded   bool    // EMA has a first sample

	enabled   bool
	failures  int // Consecutive read failures
	nextRetry time.Time
	lastTick  time.Time
}

// NewMotion returns a motion engine. The sensor is assumed configured by the
// target; a nil accelerometer starts disabled and retries like a dead sensor.
func NewMotion(cfg *Config, accel Accelerometer) *Motion {
	m := &Motion{
		cfg:     cfg,
		accel:   accel,
		enabled: accel != nil,
	}
	if accel == nil {
		m.nextRetry = time.Time{}
	}
	return m
}

// Sample reads the sensor if the sampling cadence has elapsed. On persistent
// failure, detection is disabled (fail-safe, not fail-fatal) and periodic
// reinitialization attempts are scheduled.
func (m *Motion) Sample(now time.Time) {
	if !m.enabled {
		m.maybeRetry(now)
		return
	}
	if !m.lastTick.IsZero() && now.Sub(m.lastTick) < m.cfg.MotionPeriod {
		return
	}
	m.lastTick = now

	x, y, z, err := m.accel.Acceleration()
	if err != nil {
		m.failures++
		RecordFault(FaultMotionRead, 0, uint32(m.failures))
		if m.failures >= m.cfg.MotionFailureLimit {
			DebugPrintln("[MOTION] sensor disabled after repeated read failures")
			m.enabled = false
			m.raw = 0
			m.smoothed = 0
			m.seeded = false
			m.nextRetry = now.Add(m.cfg.MotionRetryInterval)
		}
		return
	}
	m.failures = 0

	// Euclidean magnitude in m/s^2, minus nominal resting gravity,
	// clamped non-negative: the raw orientation-independent force.
	fx := float64(x) * gravity / 1e6
	fy := float64(y) * gravity / 1e6
	fz := float64(z) * gravity / 1e6
	force := float32(math.Sqrt(fx*fx+fy*fy+fz*fz)) - gravity
	if force < 0 {
		force = 0
	}
	m.raw = force

	if !m.seeded {
		m.smoothed = force
		m.seeded = true
		return
	}
	a := m.cfg.SmoothingAlpha
	m.smoothed = a*force + (1-a)*m.smoothed
}

// maybeRetry attempts sensor reinitialization at the fixed retry interval.
func (m *Motion) maybeRetry(now time.Time) {
	if m.accel == nil || now.Before(m.nextRetry) {
		return
	}
	if err := m.accel.Configure(); err != nil {
		m.nextRetry = now.Add(m.cfg.MotionRetryInterval)
		return
	}
	DebugPrintln("[MOTION] sensor recovered")
	m.enabled = true
	m.failures = 0
	m.seeded = false
	m.raw = 0
	m.smoothed = 0
	m.lastTick = time.Time{}
}

// Swing reports sustained motion: smoothed force above the swing threshold.
func (m *Motion) Swing() bool {
	return m.enabled && m.smoothed > m.cfg.SwingThreshold
}

// Hit reports an impact: raw force above the hit threshold.
func (m *Motion) Hit() bool {
	return m.enabled && m.raw > m.cfg.HitThreshold
}

// Enabled reports whether detection is currently active.
func (m *Motion) Enabled() bool {
	return m.enabled
}

// Raw returns the latest gravity-relative force.
func (m *Motion) Raw() float32 {
	return m.raw
}

// Smoothed returns the EMA-filtered force.
func (m *Motion) Smoothed() float32 {
	return m.smoothed
}
