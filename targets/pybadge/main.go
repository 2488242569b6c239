//go:build pybadge

// PyBadge (ATSAMD51) wiring for the saber firmware. The blade strip hangs off
// the D2 JST port, the on-board NeoPixels act as the indicator ring, the
// LIS3DH rides the internal I2C bus and the speaker runs from DAC0 through the
// software mixer.
package main

import (
	"machine"
	"time"

	"saber/assets"
	"saber/core"
	"saber/targets/mixer"
)

// watchdogTimeoutMillis must comfortably exceed the longest intentional
// suspension (the battery averaging burst plus one frame).
const watchdogTimeoutMillis = 2000

func main() {
	// Clear any watchdog state left over from a previous reset before
	// anything slow happens.
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})

	initDebug()

	cfg := core.DefaultConfig()
	cfg.RingPixels = ringPixels

	hw := &core.Hardware{
		Strip:      newBladeStrip(),
		Ring:       newRingStrip(),
		Accel:      newAccelerometer(),
		Pads:       newButtonPads(),
		Clips:      assets.NewStore(assets.ThemeNames(cfg.Themes)),
		BatteryADC: newBatteryReader(),
		Watchdog:   watchdog{},
		Display:    newStatusDisplay(),
		Settings:   &flashStore{},
	}
	// The sink must pace output at the same format the engine pins, so probe
	// the assets before constructing it.
	hw.Sink = mixer.New(newSpeaker(), core.ProbeClipFormat(hw.Clips, len(cfg.Themes)))

	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: watchdogTimeoutMillis})
	machine.Watchdog.Start()

	core.NewController(cfg, hw).Run()

	// Run only returns after the restart budget is spent. The hardware is
	// already safe; park without feeding so the watchdog reboots the board.
	core.DebugPrintln("[MAIN] halted, awaiting watchdog reset")
	for {
		time.Sleep(time.Second)
	}
}

// watchdog adapts the machine dead-man timer to the controller interface.
type watchdog struct{}

func (watchdog) Feed() {
	machine.Watchdog.Update()
}
