//go:build pybadge

package main

import (
	"machine"

	"saber/targets/mixer"
)

// speaker feeds the on-board amplifier from DAC0 (the A0/speaker pin).
type speaker struct{}

func newSpeaker() mixer.Output {
	machine.SPEAKER_ENABLE.Configure(machine.PinConfig{Mode: machine.PinOutput})
	machine.SPEAKER_ENABLE.High()
	machine.DAC0.Configure(machine.DACConfig{})
	return speaker{}
}

func (speaker) WriteSample(v uint16) {
	machine.DAC0.Set(v)
}
