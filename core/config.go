// Saber firmware core: motion-reactive control loop, LED and audio engines.
//
// Everything in this package is hardware agnostic. Concrete device access
// happens through the narrow capability interfaces declared next to each
// engine (LedStrip, Accelerometer, TouchChannel, AudioSink, ...), which the
// target packages implement on real hardware.
package core

import (
	"image/color"
	"time"
)

// Ring animation style selectors, chosen per theme and operating state
const (
	RingAnimBreath = iota
	RingAnimSpin
	RingAnimCrackle
	RingAnimDoublePulse
	RingAnimFlicker
	RingAnimSparkle
)

// Audio event names. One clip exists per (theme index, event) pair.
const (
	EventPowerOn  = "on"
	EventPowerOff = "off"
	EventIdle     = "idle"
	EventSwing    = "swing"
	EventHit      = "hit"
	EventSwitch   = "switch"
)

// Theme describes one selectable blade theme.
// Themes are immutable; only the selected index is ever persisted.
type Theme struct {
	Name       string
	BladeColor color.RGBA // Full-brightness blade color (swing color)
	HitColor   color.RGBA // Impact flash color

	// Ring animation selectors per operating state
	IdleAnim  uint8
	SwingAnim uint8
	HitAnim   uint8
}

// IdleColor is the dimmed blade color shown while idle.
func (t *Theme) IdleColor() color.RGBA {
	c := t.BladeColor
	return color.RGBA{R: c.R / 4, G: c.G / 4, B: c.B / 4, A: c.A}
}

// Config carries every tunable the firmware uses. It is constructed once at
// boot and passed by reference into each component; nothing mutates it.
type Config struct {
	// Strip geometry
	NumPixels  int
	RingPixels int

	// Frame pacing
	FramePeriod  time.Duration // Fixed control loop period
	MotionPeriod time.Duration // Accelerometer sampling cadence (finer than FramePeriod)

	// Motion classification, in m/s^2 above resting gravity
	SwingThreshold float32
	HitThreshold   float32
	SmoothingAlpha float32 // EMA coefficient for the smoothed force

	// Motion failure circuit breaker
	MotionFailureLimit  int
	MotionRetryInterval time.Duration

	// LED write pacing
	LedMinWriteInterval time.Duration

	// Input timing
	LongPressDuration time.Duration

	// Power transition animations
	PowerOnDuration  time.Duration
	PowerOffDuration time.Duration
	PowerAnimStep    time.Duration // Sub-iteration sleep inside power animations

	// Audio
	VolumePresets []float32 // Mixer voice gains, ascending
	MinGain       float32
	MaxGain       float32

	// LED brightness presets applied at write time
	BrightnessLevels []float32

	// Scheduler error policy
	MaxLoopErrors int           // Consecutive frame errors before teardown/rebuild
	MaxRestarts   int           // Controller rebuilds before halting safely
	ErrorBackoff  time.Duration // Sleep after a recoverable frame error

	// Periodic maintenance
	BatteryCheckInterval time.Duration
	MemoryMaintInterval  time.Duration
	BatterySamples       int
	BatterySampleGap     time.Duration
	BatteryRefVolts      float32

	Themes []Theme
}

// DefaultConfig returns the stock saber configuration.
func DefaultConfig() *Config {
	return &Config{
		NumPixels:  30,
		RingPixels: 12,

		FramePeriod:  20 * time.Millisecond,
		MotionPeriod: 10 * time.Millisecond,

		SwingThreshold: 4.0,
		HitThreshold:   15.0,
		SmoothingAlpha: 0.3,

		MotionFailureLimit:  5,
		MotionRetryInterval: 5 * time.Second,

		LedMinWriteInterval: 15 * time.Millisecond,

		LongPressDuration: 700 * time.Millisecond,

		PowerOnDuration:  1700 * time.Millisecond,
		PowerOffDuration: 1150 * time.Millisecond,
		PowerAnimStep:    5 * time.Millisecond,

		VolumePresets: []float32{0.2, 0.5, 1.0},
		MinGain:       0.0,
		MaxGain:       1.0,

		BrightnessLevels: []float32{0.25, 0.5, 1.0},

		MaxLoopErrors: 5,
		MaxRestarts:   3,
		ErrorBackoff:  100 * time.Millisecond,

		BatteryCheckInterval: 10 * time.Second,
		MemoryMaintInterval:  30 * time.Second,
		BatterySamples:       10,
		BatterySampleGap:     10 * time.Millisecond,
		BatteryRefVolts:      3.3,

		Themes: []Theme{
			{
				Name:       "jedi",
				BladeColor: color.RGBA{R: 0, G: 0, B: 255, A: 255},
				HitColor:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
				IdleAnim:   RingAnimBreath,
				SwingAnim:  RingAnimSpin,
				HitAnim:    RingAnimCrackle,
			},
			{
				Name:       "powerpuff",
				BladeColor: color.RGBA{R: 255, G: 0, B: 255, A: 255},
				HitColor:   color.RGBA{R: 0, G: 200, B: 255, A: 255},
				IdleAnim:   RingAnimDoublePulse,
				SwingAnim:  RingAnimSpin,
				HitAnim:    RingAnimSparkle,
			},
			{
				Name:       "ricknmorty",
				BladeColor: color.RGBA{R: 0, G: 255, B: 0, A: 255},
				HitColor:   color.RGBA{R: 255, G: 0, B: 0, A: 255},
				IdleAnim:   RingAnimFlicker,
				SwingAnim:  RingAnimSpin,
				HitAnim:    RingAnimCrackle,
			},
			{
				Name:       "spongebob",
				BladeColor: color.RGBA{R: 255, G: 255, B: 0, A: 255},
				HitColor:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
				IdleAnim:   RingAnimBreath,
				SwingAnim:  RingAnimSpin,
				HitAnim:    RingAnimSparkle,
			},
		},
	}
}

// Theme returns the theme at index, clamped into range.
func (c *Config) Theme(index int) *Theme {
	if index < 0 || index >= len(c.Themes) {
		index = 0
	}
	return &c.Themes[index]
}
