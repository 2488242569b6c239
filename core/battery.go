// Battery monitor. Averages a short burst of ADC readings behind a voltage
// divider and maps the pack voltage onto a percentage. External power
// short-circuits the measurement entirely.
package core

import "time"

// AnalogReader is the capability interface for the battery voltage channel.
// ReadRaw returns a 16-bit scaled sample.
type AnalogReader interface {
	ReadRaw() (uint16, error)
}

// ExternalPower reports whether external (USB) power is present.
type ExternalPower interface {
	Present() bool
}

// LiPo discharge window mapped to 0-100%
const (
	batteryEmptyVolts = 3.3
	batteryFullVolts  = 4.2
)

// Battery samples the pack voltage.
type Battery struct {
	cfg *Config
	adc AnalogReader
	ext ExternalPower

	// sleep paces the averaging burst; injectable for tests
	sleep func(time.Duration)
}

// NewBattery returns a battery monitor. adc may be nil on boards without a
// voltage tap, in which case Percent always reports external power.
func NewBattery(cfg *Config, adc AnalogReader, ext ExternalPower) *Battery {
	return &Battery{
		cfg:   cfg,
		adc:   adc,
		ext:   ext,
		sleep: time.Sleep,
	}
}

// Percent returns the charge percentage in [0,100] and whether the device
// runs on external power (in which case the percentage is meaningless).
// The short averaging burst is one of the few intentional suspension points
// in the firmware; it stays well under the watchdog window.
func (b *Battery) Percent() (percent int, external bool, err error) {
	if b.ext != nil && b.ext.Present() {
		return 100, true, nil
	}
	if b.adc == nil {
		return 100, true, nil
	}

	var sum uint32
	for i := 0; i < b.cfg.BatterySamples; i++ {
		v, rerr := b.adc.ReadRaw()
		if rerr != nil {
			RecordFault(FaultBatteryRead, 0, uint32(i))
			return 0, false, rerr
		}
		sum += uint32(v)
		b.sleep(b.cfg.BatterySampleGap)
	}
	avg := float32(sum) / float32(b.cfg.BatterySamples)

	// Divider halves the pack voltage before the ADC
	volts := avg / 65535 * b.cfg.BatteryRefVolts * 2
	pct := int((volts - batteryEmptyVolts) / (batteryFullVolts - batteryEmptyVolts) * 100)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, false, nil
}
