//go:build rp2040

// RP2040 wiring for the saber firmware. The blade strip is driven by a PIO
// state machine so the bit timing is hardware-exact regardless of what the
// frame loop is doing; the ring runs on the bit-banged driver, audio on PWM
// and the gesture pads on RC charge-time touch sensing.
package main

import (
	"machine"
	"time"

	"saber/assets"
	"saber/core"
	"saber/targets/mixer"
)

const watchdogTimeoutMillis = 2000

func main() {
	// Clear any watchdog state left over from a previous reset.
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})

	initDebug()

	cfg := core.DefaultConfig()

	hw := &core.Hardware{
		Strip:      newBladeStrip(),
		Ring:       newRingStrip(),
		Accel:      newAccelerometer(),
		Pads:       newTouchPads(),
		Clips:      assets.NewStore(assets.ThemeNames(cfg.Themes)),
		BatteryADC: newBatteryReader(),
		Watchdog:   watchdog{},
		Settings:   &flashStore{},
	}
	// The sink must pace output at the same format the engine pins, so probe
	// the assets before constructing it.
	hw.Sink = mixer.New(newSpeaker(), core.ProbeClipFormat(hw.Clips, len(cfg.Themes)))

	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: watchdogTimeoutMillis})
	machine.Watchdog.Start()

	core.NewController(cfg, hw).Run()

	core.DebugPrintln("[MAIN] halted, awaiting watchdog reset")
	for {
		time.Sleep(time.Second)
	}
}

type watchdog struct{}

func (watchdog) Feed() {
	machine.Watchdog.Update()
}
