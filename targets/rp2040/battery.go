//go:build rp2040

package main

import (
	"machine"

	"saber/core"
)

// batteryReader samples the LiPo voltage divider on ADC0 (GP26).
type batteryReader struct {
	adc machine.ADC
}

func newBatteryReader() core.AnalogReader {
	machine.InitADC()
	r := &batteryReader{adc: machine.ADC{Pin: machine.GP26}}
	r.adc.Configure(machine.ADCConfig{})
	return r
}

func (r *batteryReader) ReadRaw() (uint16, error) {
	return r.adc.Get(), nil
}
