//go:build rp2040

package main

import (
	"machine"

	"saber/core"
	"saber/telemetry"
)

// initDebug routes core debug output over the USB console as framed telemetry
// log records, so sabermon can split firmware logs from raw console noise.
// Structured records (state changes, battery, faults) arrive pre-framed and
// go straight onto the wire.
func initDebug() {
	core.SetDebugWriter(func(msg string) {
		machine.Serial.Write(telemetry.Encode(telemetry.TypeLog, []byte(msg)))
	})
	core.SetEventWriter(func(frame []byte) {
		machine.Serial.Write(frame)
	})
}
