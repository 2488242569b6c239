//go:build pybadge

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/st7735"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"

	"saber/core"
)

var (
	displayBlack = color.RGBA{A: 255}
	displayWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	displayAmber = color.RGBA{R: 255, G: 160, B: 0, A: 255}
)

// statusDisplay draws the overlay screens (battery, volume, brightness,
// theme logo placeholder) on the built-in ST7735.
type statusDisplay struct {
	dev st7735.Device
}

func newStatusDisplay() core.StatusDisplay {
	machine.SPI1.Configure(machine.SPIConfig{
		SCK:       machine.SPI1_SCK_PIN,
		SDO:       machine.SPI1_SDO_PIN,
		SDI:       machine.SPI1_SDI_PIN,
		Frequency: 15_000_000,
	})
	dev := st7735.New(machine.SPI1, machine.TFT_RST, machine.TFT_DC, machine.TFT_CS, machine.TFT_LITE)
	dev.Configure(st7735.Config{Rotation: st7735.ROTATION_90})

	d := &statusDisplay{dev: dev}
	d.dev.FillScreen(displayBlack)
	return d
}

func (d *statusDisplay) text(line1, line2 string, c color.RGBA) {
	d.dev.FillScreen(displayBlack)
	tinyfont.WriteLine(&d.dev, &freemono.Regular12pt7b, 10, 40, line1, c)
	if line2 != "" {
		tinyfont.WriteLine(&d.dev, &freemono.Regular9pt7b, 10, 80, line2, displayWhite)
	}
}

func (d *statusDisplay) ShowBattery(percent int, external bool) {
	if external {
		d.text("POWER", "external supply", displayWhite)
		return
	}
	c := displayWhite
	if percent <= 20 {
		c = displayAmber
	}
	d.text("BATTERY", itoa(percent)+"%", c)
}

func (d *statusDisplay) ShowVolume(index int) {
	d.text("VOLUME", gauge(index), displayWhite)
}

func (d *statusDisplay) ShowBrightness(index int) {
	d.text("BRIGHTNESS", gauge(index), displayWhite)
}

func (d *statusDisplay) ShowImage(theme int, kind string) {
	d.text("THEME "+itoa(theme+1), kind, displayWhite)
}

// gauge renders a preset index as a filled bar.
func gauge(index int) string {
	s := ""
	for i := 0; i <= index; i++ {
		s += "#"
	}
	return s
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [12]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
