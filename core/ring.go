// Indicator ring animations. Each animator is a pure function of elapsed time
// and a base color with no carried state, so switching themes or states mid
// animation needs no reset. The noisy generators (crackle, flicker, sparkle)
// derive their randomness from a hash of the elapsed tick, which keeps them
// deterministic for a given instant.
package core

import (
	"image/color"
	"math"
	"time"
)

// RingAnimator renders one ring frame for the given elapsed time and base
// color into frame.
type RingAnimator func(elapsed time.Duration, base color.RGBA, frame []color.RGBA)

// Animator returns the animator for a style selector.
func Animator(style uint8) RingAnimator {
	switch style {
	case RingAnimSpin:
		return SpinAnimator
	case RingAnimCrackle:
		return CrackleAnimator
	case RingAnimDoublePulse:
		return DoublePulseAnimator
	case RingAnimFlicker:
		return FlickerAnimator
	case RingAnimSparkle:
		return SparkleAnimator
	default:
		return BreathAnimator
	}
}

// BreathAnimator is a slow sinusoidal brightness pulse across the whole ring.
func BreathAnimator(elapsed time.Duration, base color.RGBA, frame []color.RGBA) {
	phase := float64(elapsed) / float64(3*time.Second) * 2 * math.Pi
	level := float32(0.15 + 0.85*(0.5+0.5*math.Sin(phase)))
	c := scaleColor(base, level)
	for i := range frame {
		frame[i] = c
	}
}

// SpinAnimator is a chase with a decaying trail, one revolution per second.
func SpinAnimator(elapsed time.Duration, base color.RGBA, frame []color.RGBA) {
	n := len(frame)
	if n == 0 {
		return
	}
	pos := float64(elapsed%time.Second) / float64(time.Second) * float64(n)
	head := int(pos) % n
	for i := range frame {
		// Distance behind the head, wrapping around the ring
		d := head - i
		if d < 0 {
			d += n
		}
		level := float32(1.0)
		for j := 0; j < d; j++ {
			level *= 0.55 // Trail decay per pixel
		}
		frame[i] = scaleColor(base, level)
	}
}

// CrackleAnimator is an electrical crackle: most pixels dim, a shifting few
// flash near white.
func CrackleAnimator(elapsed time.Duration, base color.RGBA, frame []color.RGBA) {
	tick := uint32(elapsed / (40 * time.Millisecond))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for i := range frame {
		h := ringHash(tick, uint32(i))
		switch {
		case h%7 == 0:
			frame[i] = white
		case h%3 == 0:
			frame[i] = base
		default:
			frame[i] = scaleColor(base, 0.2)
		}
	}
}

// DoublePulseAnimator fires two quick pulses then rests, on a 1.5 s cycle.
func DoublePulseAnimator(elapsed time.Duration, base color.RGBA, frame []color.RGBA) {
	cycle := float64(elapsed%(1500*time.Millisecond)) / float64(time.Millisecond)
	level := float32(0.1)
	switch {
	case cycle < 150:
		level = float32(math.Sin(cycle / 150 * math.Pi))
	case cycle < 300:
		// Gap between pulses
	case cycle < 450:
		level = float32(math.Sin((cycle - 300) / 150 * math.Pi))
	}
	if level < 0.1 {
		level = 0.1
	}
	c := scaleColor(base, level)
	for i := range frame {
		frame[i] = c
	}
}

// FlickerAnimator is an unsteady plasma flicker across the whole ring.
func FlickerAnimator(elapsed time.Duration, base color.RGBA, frame []color.RGBA) {
	tick := uint32(elapsed / (30 * time.Millisecond))
	level := 0.5 + float32(ringHash(tick, 0)%512)/1024.0
	c := scaleColor(base, level)
	for i := range frame {
		frame[i] = c
	}
}

// SparkleAnimator lights a changing subset of pixels at full base color over
// a dim background.
func SparkleAnimator(elapsed time.Duration, base color.RGBA, frame []color.RGBA) {
	tick := uint32(elapsed / (60 * time.Millisecond))
	for i := range frame {
		if ringHash(tick, uint32(i))%5 == 0 {
			frame[i] = base
		} else {
			frame[i] = scaleColor(base, 0.1)
		}
	}
}

// ringHash is a small integer mix (xorshift flavored) used by the noisy
// animators in place of carried random state.
func ringHash(tick, pixel uint32) uint32 {
	x := tick*2654435761 + pixel*40503 + 12345
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	return x
}
