//go:build pybadge

package main

import (
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"saber/core"
)

// ringPixels is the on-board NeoPixel count.
const ringPixels = 5

// bladePin is the JST port the external blade strip plugs into.
const bladePin = machine.D2

func newBladeStrip() core.LedStrip {
	bladePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	dev := ws2812.NewWS2812(bladePin)
	return &dev
}

func newRingStrip() core.LedStrip {
	machine.NEOPIXELS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	dev := ws2812.NewWS2812(machine.NEOPIXELS)
	return &dev
}
