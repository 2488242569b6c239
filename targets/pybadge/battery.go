//go:build pybadge

package main

import (
	"machine"

	"saber/core"
)

// batteryReader samples the LiPo voltage divider on A6.
type batteryReader struct {
	adc machine.ADC
}

func newBatteryReader() core.AnalogReader {
	machine.InitADC()
	r := &batteryReader{adc: machine.ADC{Pin: machine.A6}}
	r.adc.Configure(machine.ADCConfig{})
	return r
}

func (r *batteryReader) ReadRaw() (uint16, error) {
	return r.adc.Get(), nil
}
