//go:build pybadge

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/lis3dh"

	"saber/core"
)

var errAccelMissing = errors.New("lis3dh not responding")

// lis3dhAdapter wraps the driver behind the core capability interface so the
// motion engine can re-run Configure during breaker recovery.
type lis3dhAdapter struct {
	dev lis3dh.Device
}

func newAccelerometer() core.Accelerometer {
	machine.I2C0.Configure(machine.I2CConfig{
		SCL:       machine.SCL_PIN,
		SDA:       machine.SDA_PIN,
		Frequency: 400 * machine.KHz,
	})
	a := &lis3dhAdapter{dev: lis3dh.New(machine.I2C0)}
	a.dev.Address = lis3dh.Address1 // On-board sensor straps SA0 high
	if err := a.Configure(); err != nil {
		core.DebugPrintln("[ACCEL] configure failed, motion disabled until retry")
	}
	return a
}

func (a *lis3dhAdapter) Configure() error {
	a.dev.Configure()
	a.dev.SetRange(lis3dh.RANGE_4_G)
	if !a.dev.Connected() {
		return errAccelMissing
	}
	return nil
}

func (a *lis3dhAdapter) Acceleration() (x, y, z int32, err error) {
	return a.dev.ReadAcceleration()
}
