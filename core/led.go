// LED engine. Owns the blade strip and the indicator ring and enforces the
// minimum write interval on the bus. A requested frame that arrives too soon
// stays pending and is flushed on a later tick, so every distinct final
// request is eventually applied without exceeding the write-rate budget.
package core

import (
	"image/color"
	"time"
)

// LedStrip is the capability interface for an addressable LED device.
// tinygo.org/x/drivers/ws2812 satisfies it directly.
type LedStrip interface {
	WriteColors(colors []color.RGBA) error
}

// Strip wraps one LED device with frame buffering, write pacing and
// brightness scaling.
type Strip struct {
	dev         LedStrip
	minInterval time.Duration
	brightness  float32

	requested []color.RGBA // What the caller wants shown
	written   []color.RGBA // Last frame actually put on the bus (post-scaling input)
	scaled    []color.RGBA // Scratch buffer for the bus write
	dirty     bool
	everWrote bool
	lastWrite time.Time
}

// NewStrip returns a strip engine over dev with n pixels. A nil dev is a
// soft-degraded strip: frames are tracked but never reach a bus.
func NewStrip(dev LedStrip, n int, minInterval time.Duration) *Strip {
	return &Strip{
		dev:         dev,
		minInterval: minInterval,
		brightness:  1.0,
		requested:   make([]color.RGBA, n),
		written:     make([]color.RGBA, n),
		scaled:      make([]color.RGBA, n),
	}
}

// Len returns the pixel count.
func (s *Strip) Len() int {
	return len(s.requested)
}

// SetBrightness sets the write-time brightness scale, clamped to [0,1].
// A brightness change invalidates the written-frame cache.
func (s *Strip) SetBrightness(b float32) {
	if b < 0 {
		b = 0
	}
	if b > 1 {
		b = 1
	}
	if b != s.brightness {
		s.brightness = b
		s.dirty = true
	}
}

// Fill requests a uniform color across the strip.
func (s *Strip) Fill(c color.RGBA) {
	for i := range s.requested {
		s.requested[i] = c
	}
	s.markDirty()
}

// FillLit requests the first lit pixels in c and the rest dark.
// Used by the power transition animations.
func (s *Strip) FillLit(lit int, c color.RGBA) {
	if lit < 0 {
		lit = 0
	}
	if lit > len(s.requested) {
		lit = len(s.requested)
	}
	for i := 0; i < lit; i++ {
		s.requested[i] = c
	}
	off := color.RGBA{A: 255}
	for i := lit; i < len(s.requested); i++ {
		s.requested[i] = off
	}
	s.markDirty()
}

// SetFrame requests an arbitrary frame (ring animators produce these).
func (s *Strip) SetFrame(frame []color.RGBA) {
	copy(s.requested, frame)
	s.markDirty()
}

// Frame exposes the request buffer for in-place animator rendering.
// Callers must follow with MarkDirty.
func (s *Strip) Frame() []color.RGBA {
	return s.requested
}

// MarkDirty flags the request buffer as changed after in-place rendering.
func (s *Strip) MarkDirty() {
	s.markDirty()
}

// markDirty compares against the cache so a redundant request never reaches
// the bus at all.
func (s *Strip) markDirty() {
	if !s.everWrote {
		s.dirty = true
		return
	}
	for i := range s.requested {
		if s.requested[i] != s.written[i] {
			s.dirty = true
			return
		}
	}
}

// Sync writes the pending frame if one is due and the minimum interval has
// elapsed. Called every tick; a deferred frame is flushed here once the
// interval allows it.
func (s *Strip) Sync(now time.Time) error {
	if !s.dirty {
		return nil
	}
	if s.everWrote && now.Sub(s.lastWrite) < s.minInterval {
		return nil // Too soon; stays pending for a later tick
	}
	return s.write(now)
}

// ForceSync bypasses the rate limiter for the handful of discrete events
// (final frame of a power animation) where exact timing matters more than
// pacing discipline.
func (s *Strip) ForceSync(now time.Time) error {
	if !s.dirty {
		return nil
	}
	return s.write(now)
}

// Dark forces the strip off immediately. Used on teardown and halt.
func (s *Strip) Dark(now time.Time) error {
	s.Fill(color.RGBA{A: 255})
	return s.ForceSync(now)
}

func (s *Strip) write(now time.Time) error {
	if s.dev != nil {
		for i, c := range s.requested {
			s.scaled[i] = scaleColor(c, s.brightness)
		}
		if err := s.dev.WriteColors(s.scaled); err != nil {
			return err
		}
	}
	copy(s.written, s.requested)
	s.lastWrite = now
	s.everWrote = true
	s.dirty = false
	return nil
}

// Blend linearly interpolates each channel from a to b. The ratio is clamped
// to [0,1]; 0 yields a, 1 yields b.
func Blend(a, b color.RGBA, ratio float32) color.RGBA {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	inv := 1 - ratio
	return color.RGBA{
		R: uint8(float32(a.R)*inv + float32(b.R)*ratio),
		G: uint8(float32(a.G)*inv + float32(b.G)*ratio),
		B: uint8(float32(a.B)*inv + float32(b.B)*ratio),
		A: 255,
	}
}

func scaleColor(c color.RGBA, s float32) color.RGBA {
	return color.RGBA{
		R: uint8(float32(c.R) * s),
		G: uint8(float32(c.G) * s),
		B: uint8(float32(c.B) * s),
		A: c.A,
	}
}
