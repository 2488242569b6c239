package core

import "saber/telemetry"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// EventWriter carries an encoded telemetry frame to the console link.
// Platform code registers one next to the debug writer; without one,
// structured records are dropped and only text logging remains.
type EventWriter func(frame []byte)

// Fault captures an abnormal event for post-mortem analysis
type Fault struct {
	Code  uint8  // Fault code
	State uint8  // Operating state at the time
	Value uint32 // Context-dependent value
}

// Fault codes
const (
	FaultBadTransition = 1 // Rejected state transition
	FaultMotionRead    = 2 // Accelerometer read failure
	FaultAudioOpen     = 3 // Audio clip open/decode failure
	FaultLoopPanic     = 4 // Panic recovered at the frame boundary
	FaultLowMemory     = 5 // Allocation failure recovered via reclamation
	FaultSettings      = 6 // Settings store read/write failure
	FaultBatteryRead   = 7 // Battery ADC read failure
)

const (
	FaultRingSize = 32 // Keep last 32 faults for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = true

	// eventWrite forwards framed telemetry records (nil drops them)
	eventWrite EventWriter

	// Fault capture ring buffer (non-blocking, for post-mortem)
	faultRing     [FaultRingSize]Fault
	faultRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// SetEventWriter registers the platform console-frame writer for structured
// telemetry records (state changes, battery reports, faults).
func SetEventWriter(w EventWriter) {
	eventWrite = w
}

// emitRecord frames and forwards one telemetry record.
func emitRecord(recType byte, payload []byte) {
	if eventWrite != nil {
		eventWrite(telemetry.Encode(recType, payload))
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordFault captures a fault in the ring buffer and forwards it as a
// telemetry record. Non-blocking; safe to call from the frame loop.
func RecordFault(code, state uint8, value uint32) {
	idx := faultRingHead
	faultRing[idx] = Fault{Code: code, State: state, Value: value}
	faultRingHead = (idx + 1) % FaultRingSize

	emitRecord(telemetry.TypeFault, []byte{code, state,
		byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)})
}

// DumpFaultRing outputs the fault ring buffer (call on teardown/halt)
func DumpFaultRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[FAULT] === Fault Ring Dump ===")

	// Read from oldest to newest
	start := faultRingHead
	for i := uint8(0); i < FaultRingSize; i++ {
		idx := (start + i) % FaultRingSize
		f := &faultRing[idx]
		if f.Code == 0 {
			continue // Empty slot
		}

		var name string
		switch f.Code {
		case FaultBadTransition:
			name = "BAD_TRANSITION"
		case FaultMotionRead:
			name = "MOTION_READ"
		case FaultAudioOpen:
			name = "AUDIO_OPEN"
		case FaultLoopPanic:
			name = "LOOP_PANIC"
		case FaultLowMemory:
			name = "LOW_MEMORY"
		case FaultSettings:
			name = "SETTINGS"
		case FaultBatteryRead:
			name = "BATTERY_READ"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[FAULT] " + name +
			" state=" + itoa(int(f.State)) +
			" value=" + itoa(int(f.Value)))
	}
	debugPrintln("[FAULT] === End Dump ===")
}

// ClearFaultRing clears the fault buffer
func ClearFaultRing() {
	for i := range faultRing {
		faultRing[i] = Fault{}
	}
	faultRingHead = 0
}
