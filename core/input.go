// Input manager. Per-channel edge detection over the capacitive touch pads,
// producing one-shot tap and long-press events. Raw pad state is sampled once
// per tick; each physical gesture fires its event exactly once no matter how
// often the queries run.
package core

import "time"

// TouchChannel is the capability interface for one capacitive touch pad.
type TouchChannel interface {
	Pressed() bool
}

// Logical touch channels in dispatch priority order.
type Channel uint8

const (
	ChannelVolumeUp Channel = iota
	ChannelVolumeDown
	ChannelTheme
	ChannelPower
	NumChannels
)

// channelState tracks edge detection for one pad. Created at boot, mutated
// every frame, never destroyed.
type channelState struct {
	down      bool
	pressedAt time.Time
	longFired bool // Long press reported for this hold
	tapReady  bool // Falling edge before the hold duration, not yet consumed
	longReady bool // Hold duration crossed, not yet consumed
}

// Input polls the touch pads and turns raw levels into events.
type Input struct {
	pads     [NumChannels]TouchChannel
	holdTime time.Duration
	states   [NumChannels]channelState
}

// NewInput returns an input manager over the given pads. A nil pad is a
// soft-degraded channel that simply never fires.
func NewInput(cfg *Config, pads [NumChannels]TouchChannel) *Input {
	return &Input{
		pads:     pads,
		holdTime: cfg.LongPressDuration,
	}
}

// Poll samples every pad once and updates edges. Call once per tick.
func (in *Input) Poll(now time.Time) {
	for ch := Channel(0); ch < NumChannels; ch++ {
		pad := in.pads[ch]
		if pad == nil {
			continue
		}
		st := &in.states[ch]
		pressed := pad.Pressed()

		switch {
		case pressed && !st.down:
			// Rising edge: record press start
			st.down = true
			st.pressedAt = now
			st.longFired = false

		case pressed && st.down:
			// Held: crossing the hold duration arms long-press once
			if !st.longFired && now.Sub(st.pressedAt) >= in.holdTime {
				st.longFired = true
				st.longReady = true
			}

		case !pressed && st.down:
			// Falling edge: a release before the hold duration is a tap
			st.down = false
			if !st.longFired {
				st.tapReady = true
			}
		}
	}
}

// Tap reports a completed tap on ch. One-shot: true at most once per gesture.
func (in *Input) Tap(ch Channel) bool {
	st := &in.states[ch]
	if st.tapReady {
		st.tapReady = false
		return true
	}
	return false
}

// LongPress reports a hold crossing the long-press duration on ch. One-shot.
func (in *Input) LongPress(ch Channel) bool {
	st := &in.states[ch]
	if st.longReady {
		st.longReady = false
		return true
	}
	return false
}

// Held reports the raw level of ch. Used by the power animations to wait for
// release without consuming events.
func (in *Input) Held(ch Channel) bool {
	pad := in.pads[ch]
	return pad != nil && pad.Pressed()
}
