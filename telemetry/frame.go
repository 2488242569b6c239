// Package telemetry frames console records sent from the firmware to the
// host monitor. Each frame is
//
//	[sync 0x7E][length][type][payload...][crc16 hi][crc16 lo]
//
// where length counts the type byte plus the payload, and the CRC covers the
// same span. Anything on the wire outside a frame is raw console output and
// passes through undecoded.
package telemetry

import "errors"

const (
	SyncByte      = 0x7E
	headerSize    = 2 // sync + length
	trailerSize   = 2 // crc16
	MaxPayloadLen = 60
)

// Record types
const (
	TypeLog     = 0x01 // UTF-8 log line
	TypeState   = 0x02 // payload: [from][to]
	TypeBattery = 0x03 // payload: [percent][external]
	TypeFault   = 0x04 // payload: [code][state][value u32 big-endian]
)

var (
	// ErrTruncated means more bytes are needed to finish the frame.
	ErrTruncated = errors.New("telemetry: truncated frame")
	// ErrBadFrame means the framing or CRC is damaged.
	ErrBadFrame = errors.New("telemetry: bad frame")
)

// CRC16 is the CCITT-flavored checksum used on the console link.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

// Encode builds one frame for the given record type and payload.
// The payload is truncated to MaxPayloadLen.
func Encode(recType byte, payload []byte) []byte {
	if len(payload) > MaxPayloadLen {
		payload = payload[:MaxPayloadLen]
	}
	n := 1 + len(payload)
	frame := make([]byte, 0, headerSize+n+trailerSize)
	frame = append(frame, SyncByte, byte(n), recType)
	frame = append(frame, payload...)
	crc := CRC16(frame[headerSize : headerSize+n])
	frame = append(frame, byte(crc>>8), byte(crc))
	return frame
}

// Record is one decoded telemetry record.
type Record struct {
	Type    byte
	Payload []byte
}

// Decode extracts the first frame starting at buf[0], which must be the sync
// byte. Returns the record and the number of bytes consumed. ErrTruncated
// leaves the buffer untouched for a retry with more data; ErrBadFrame
// consumes one byte so the scanner can resynchronize.
func Decode(buf []byte) (Record, int, error) {
	if len(buf) == 0 || buf[0] != SyncByte {
		return Record{}, 0, ErrBadFrame
	}
	if len(buf) < headerSize {
		return Record{}, 0, ErrTruncated
	}
	n := int(buf[1])
	if n < 1 || n > 1+MaxPayloadLen {
		return Record{}, 1, ErrBadFrame
	}
	total := headerSize + n + trailerSize
	if len(buf) < total {
		return Record{}, 0, ErrTruncated
	}

	body := buf[headerSize : headerSize+n]
	want := uint16(buf[headerSize+n])<<8 | uint16(buf[headerSize+n+1])
	if CRC16(body) != want {
		return Record{}, 1, ErrBadFrame
	}

	payload := make([]byte, n-1)
	copy(payload, body[1:])
	return Record{Type: body[0], Payload: payload}, total, nil
}
