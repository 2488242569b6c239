//go:build rp2040

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/lis3dh"

	"saber/core"
)

var errAccelMissing = errors.New("lis3dh not responding")

type lis3dhAdapter struct {
	dev lis3dh.Device
}

func newAccelerometer() core.Accelerometer {
	machine.I2C0.Configure(machine.I2CConfig{
		SCL:       machine.GP9,
		SDA:       machine.GP8,
		Frequency: 400 * machine.KHz,
	})
	a := &lis3dhAdapter{dev: lis3dh.New(machine.I2C0)}
	a.dev.Address = lis3dh.Address0
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
