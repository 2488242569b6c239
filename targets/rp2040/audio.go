//go:build rp2040

package main

import (
	"machine"

	"saber/core"
	"saber/targets/mixer"
)

const speakerPin = machine.GP16

// pwmSlice is the part of the machine PWM peripheral the speaker needs; the
// concrete slice type is unexported.
type pwmSlice interface {
	Set(channel uint8, value uint32)
	Top() uint32
}

// pwmSpeaker turns mixer samples into PWM duty cycles on the speaker pin.
// The carrier runs an order of magnitude above the sample rate so the
// amplifier's low-pass filter recovers the audio band.
type pwmSpeaker struct {
	pwm     pwmSlice
	channel uint8
	top     uint32
}

func newSpeaker() mixer.Output {
	pwm := machine.PWM0 // GP16 sits on slice 0
	err := pwm.Configure(machine.PWMConfig{Period: 1e9 / 250000})
	if err != nil {
		core.DebugPrintln("[AUDIO] pwm configure failed: " + err.Error())
	}
	ch, err := pwm.Channel(speakerPin)
	if err != nil {
		core.DebugPrintln("[AUDIO] pwm channel failed: " + err.Error())
	}
	return &pwmSpeaker{pwm: pwm, channel: ch, top: pwm.Top()}
}

func (s *pwmSpeaker) WriteSample(v uint16) {
	s.pwm.Set(s.channel, s.top*uint32(v)/0xFFFF)
}
