// Minimal RIFF/WAVE reader for the audio engine. Parses just enough of the
// header to learn the sample format and expose the PCM payload as a stream.
// Full decode/normalization lives in the host-side saberwav tool; on target
// the clips are already mono PCM so a chunk scan is all that is needed.
package core

import (
	"encoding/binary"
	"errors"
	"io"
)

// Format describes a PCM sample format.
type Format struct {
	SampleRate uint32
	Bits       uint8
	Channels   uint8
}

// SampleSource is a stream of PCM samples with a known format.
type SampleSource interface {
	io.Reader
	Format() Format
}

var (
	// ErrNotWave is returned when the stream is not a RIFF/WAVE file.
	ErrNotWave = errors.New("wav: not a RIFF/WAVE stream")
	// ErrBadFormat is returned for compressed or otherwise unusable encodings.
	ErrBadFormat = errors.New("wav: unsupported sample format")
)

const wavPCMTag = 1

// WavSource reads PCM samples out of a WAV stream.
type WavSource struct {
	r         io.Reader
	format    Format
	remaining uint32 // Bytes left in the data chunk

	// For looping playback on seekable streams (embedded assets)
	dataStart int64
	dataLen   uint32
	seeker    io.Seeker
}

// NewWavSource scans the WAV header of r and positions the stream at the
// start of the data chunk. Only uncompressed PCM is accepted.
func NewWavSource(r io.Reader) (*WavSource, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, ErrNotWave
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return nil, ErrNotWave
	}

	w := &WavSource{r: r}
	haveFmt := false

	// Scan chunks until the data chunk. The fmt chunk must come first.
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return nil, ErrNotWave
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrBadFormat
			}
			var f [16]byte
			if _, err := io.ReadFull(r, f[:]); err != nil {
				return nil, ErrNotWave
			}
			if binary.LittleEndian.Uint16(f[0:2]) != wavPCMTag {
				return nil, ErrBadFormat
			}
			w.format = Format{
				Channels:   uint8(binary.LittleEndian.Uint16(f[2:4])),
				SampleRate: binary.LittleEndian.Uint32(f[4:8]),
				Bits:       uint8(binary.LittleEndian.Uint16(f[14:16])),
			}
			haveFmt = true
			if err := skip(r, int64(size)-16); err != nil {
				return nil, ErrNotWave
			}

		case "data":
			if !haveFmt {
				return nil, ErrBadFormat
			}
			w.remaining = size
			w.dataLen = size
			if s, ok := r.(io.Seeker); ok {
				if pos, err := s.Seek(0, io.SeekCurrent); err == nil {
					w.seeker = s
					w.dataStart = pos
				}
			}
			return w, nil

		default:
			// LIST, fact, etc. Not interesting here.
			if err := skip(r, int64(size)); err != nil {
				return nil, ErrNotWave
			}
		}
	}
}

// Format returns the probed sample format.
func (w *WavSource) Format() Format {
	return w.format
}

// Read returns PCM payload bytes, EOF at the end of the data chunk.
func (w *WavSource) Read(p []byte) (int, error) {
	if w.remaining == 0 {
		return 0, io.EOF
	}
	if uint32(len(p)) > w.remaining {
		p = p[:w.remaining]
	}
	n, err := w.r.Read(p)
	w.remaining -= uint32(n)
	if err == nil && w.remaining == 0 {
		err = io.EOF
	}
	return n, err
}

// ErrNotSeekable is returned by Rewind when the underlying stream cannot seek.
var ErrNotSeekable = errors.New("wav: stream is not seekable")

// Rewind repositions a seekable stream at the start of the data chunk.
// Mixer voices use this to loop a clip without reopening its handle.
func (w *WavSource) Rewind() error {
	if w.seeker == nil {
		return ErrNotSeekable
	}
	if _, err := w.seeker.Seek(w.dataStart, io.SeekStart); err != nil {
		return err
	}
	w.remaining = w.dataLen
	return nil
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}

// silenceSource is the tiny placeholder clip the audio engine parks the mixer
// voice on while swapping real clips. Reads zeros forever.
type silenceSource struct {
	format Format
}

// Silence returns an endless silent source in the given format.
func Silence(f Format) SampleSource {
	return &silenceSource{format: f}
}

func (s *silenceSource) Format() Format {
	return s.format
}

func (s *silenceSource) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
