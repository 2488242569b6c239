//go:build rp2040

package main

import (
	"machine"

	"saber/core"
)

// Gesture pad GPIOs. Each pad is a bare copper area with a high-value pulldown.
var touchPins = [core.NumChannels]machine.Pin{
	core.ChannelVolumeUp:   machine.GP2,
	core.ChannelVolumeDown: machine.GP3,
	core.ChannelTheme:      machine.GP4,
	core.ChannelPower:      machine.GP5,
}

// chargeLimit bounds the charge-time measurement loop.
const chargeLimit = 10000

// touchPad senses a finger by RC charge time: drive the pad low to discharge,
// switch to a pulled-up input and count iterations until the pin reads high.
// A finger adds capacitance, so a touched pad charges measurably slower than
// the baseline taken at boot.
type touchPad struct {
	pin       machine.Pin
	threshold uint32
}

func newTouchPads() [core.NumChannels]core.TouchChannel {
	var pads [core.NumChannels]core.TouchChannel
	for ch, pin := range touchPins {
		p := &touchPad{pin: pin}
		p.calibrate()
		pads[ch] = p
	}
	return pads
}

// calibrate averages a few untouched charge times and sets the detection
// threshold comfortably above them.
func (p *touchPad) calibrate() {
	const rounds = 16
	var sum uint32
	for i := 0; i < rounds; i++ {
		sum += p.chargeTime()
	}
	base := sum / rounds
	p.threshold = base*2 + 8
}

func (p *touchPad) chargeTime() uint32 {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin.Low()
	// A handful of cycles is plenty to drain the pad
	for i := 0; i < 16; i++ {
	}

	p.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	var n uint32
	for n = 0; n < chargeLimit; n++ {
		if p.pin.Get() {
			break
		}
	}
	return n
}

func (p *touchPad) Pressed() bool {
	return p.chargeTime() >= p.threshold
}
