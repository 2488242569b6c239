//go:build pybadge

package main

import (
	"tinygo.org/x/drivers/shifter"

	"saber/core"
)

// Button bit positions in the shift register, LSB first.
const (
	bitLeft = iota
	bitUp
	bitDown
	bitRight
	bitSelect
	bitStart
	bitA
	bitB
)

// buttonBank reads the PyBadge's shift-register buttons. Each controller
// channel is one bit of the latched state.
type buttonBank struct {
	dev shifter.Device
}

type buttonPad struct {
	bank *buttonBank
	bit  uint8
}

func (p *buttonPad) Pressed() bool {
	state, err := p.bank.dev.ReadInput()
	if err != nil {
		return false
	}
	return state&(1<<p.bit) != 0
}

// newButtonPads maps the gesture channels onto the d-pad and action buttons:
// up/down step the volume, B cycles themes, A is the power switch.
func newButtonPads() [core.NumChannels]core.TouchChannel {
	bank := &buttonBank{dev: shifter.NewButtons()}
	bank.dev.Configure()

	var pads [core.NumChannels]core.TouchChannel
	pads[core.ChannelVolumeUp] = &buttonPad{bank: bank, bit: bitUp}
	pads[core.ChannelVolumeDown] = &buttonPad{bank: bank, bit: bitDown}
	pads[core.ChannelTheme] = &buttonPad{bank: bank, bit: bitB}
	pads[core.ChannelPower] = &buttonPad{bank: bank, bit: bitA}
	return pads
}
