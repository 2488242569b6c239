package core

import "runtime"

// forceReclaim runs a full garbage collection pass. The controller schedules
// it only while OFF or under the low-memory condition; the audio engine runs
// it between clip swaps while the voice is parked on silence.
func forceReclaim() {
	runtime.GC()
}
