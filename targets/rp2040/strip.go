//go:build rp2040

package main

import (
	"image/color"
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
	"tinygo.org/x/drivers/ws2812"

	"saber/core"
)

const (
	bladePin = machine.GP0
	ringPin  = machine.GP1
)

// pioStrip drives the blade over a PIO state machine. The controller's write
// path stays the capability interface; only the raw GRB packing lives here.
type pioStrip struct {
	dev *piolib.WS2812B
	raw []uint32
}

func newBladeStrip() core.LedStrip {
	sm, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		core.DebugPrintln("[LED] no free PIO state machine: " + err.Error())
		return nil
	}
	dev, err := piolib.NewWS2812B(sm, bladePin)
	if err != nil {
		core.DebugPrintln("[LED] pio strip init failed: " + err.Error())
		return nil
	}
	return &pioStrip{dev: dev}
}

func (s *pioStrip) WriteColors(colors []color.RGBA) error {
	if cap(s.raw) < len(colors) {
		s.raw = make([]uint32, len(colors))
	}
	s.raw = s.raw[:len(colors)]
	for i, c := range colors {
		s.raw[i] = uint32(c.G)<<24 | uint32(c.R)<<16 | uint32(c.B)<<8
	}
	return s.dev.WriteRaw(s.raw)
}

func newRingStrip() core.LedStrip {
	ringPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	dev := ws2812.NewWS2812(ringPin)
	return &dev
}
