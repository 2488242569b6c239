//go:build pybadge

package main

import "machine"

// flashStore persists the settings bytes in the last erase block of the
// internal flash, well above the firmware image.
type flashStore struct{}

func settingsOffset() int64 {
	return machine.Flash.Size() - machine.Flash.EraseBlockSize()
}

func (flashStore) Load(buf []byte) error {
	_, err := machine.Flash.ReadAt(buf, settingsOffset())
	return err
}

func (flashStore) Store(buf []byte) error {
	off := settingsOffset()
	if err := machine.Flash.EraseBlocks(off/machine.Flash.EraseBlockSize(), 1); err != nil {
		return err
	}
	// Pad the record up to the write granularity.
	page := make([]byte, machine.Flash.WriteBlockSize())
	copy(page, buf)
	_, err := machine.Flash.WriteAt(page, off)
	return err
}
