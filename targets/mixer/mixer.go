// Package mixer is the software mixing layer between the audio engine and a
// raw sample output (DAC on pybadge, PWM on rp2040). It provides the one
// persistent voice the engine swaps clip sources on: the feeder goroutine runs
// from boot onward and emits the midpoint level whenever no clip is attached,
// so the output stage never starts or stops.
package mixer

import (
	"io"
	"sync"
	"time"

	"saber/core"
)

// Output is one mono sample sink. Implementations write the unsigned 16-bit
// value to their converter; scaling to the converter's real resolution is
// theirs to do.
type Output interface {
	WriteSample(v uint16)
}

// chunkSamples is the feeder granularity. Small enough that a source swap is
// picked up well inside one video frame.
const chunkSamples = 64

// Voice is the persistent mixing voice. Implements core.MixerVoice.
type Voice struct {
	mu      sync.Mutex
	src     core.SampleSource
	loop    bool
	level   float32
	playing bool
}

// SetSource replaces the sample source. A nil source detaches the voice.
func (v *Voice) SetSource(src core.SampleSource, loop bool) {
	v.mu.Lock()
	v.src = src
	v.loop = loop
	v.playing = src != nil
	v.mu.Unlock()
}

// SetLevel sets the voice gain.
func (v *Voice) SetLevel(level float32) {
	v.mu.Lock()
	v.level = level
	v.mu.Unlock()
}

// Level returns the voice gain.
func (v *Voice) Level() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.level
}

// Playing reports whether the current source still produces samples.
func (v *Voice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// take snapshots the feeder-relevant state in one critical section.
func (v *Voice) take() (core.SampleSource, bool, float32, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.src, v.loop, v.level, v.playing
}

// drained marks the source as finished without detaching it; the engine's
// Poll notices Playing()==false and closes the clip handle.
func (v *Voice) drained() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
}

// Sink drives one Output from the voice. Implements core.AudioSink.
type Sink struct {
	voice  *Voice
	out    Output
	format core.Format

	// sleep paces the feeder; injectable for tests
	sleep func(time.Duration)

	buf [chunkSamples * 2]byte
}

// New returns a running sink: the feeder goroutine starts immediately and
// never exits.
func New(out Output, format core.Format) *Sink {
	s := newSink(out, format)
	go s.run()
	return s
}

func newSink(out Output, format core.Format) *Sink {
	return &Sink{
		voice:  &Voice{level: 1.0},
		out:    out,
		format: format,
		sleep:  time.Sleep,
	}
}

// Voice returns the persistent mixer voice. Always available.
func (s *Sink) Voice() (core.MixerVoice, bool) {
	return s.voice, true
}

// Play attaches src directly to the voice. Only exercised when a caller
// ignores the mixer voice; kept for the core.AudioSink contract.
func (s *Sink) Play(src core.SampleSource, loop bool) error {
	s.voice.SetSource(src, loop)
	return nil
}

// Stop detaches the current source.
func (s *Sink) Stop() {
	s.voice.SetSource(nil, false)
}

// Playing reports whether a source is producing samples.
func (s *Sink) Playing() bool {
	return s.voice.Playing()
}

func (s *Sink) run() {
	interval := time.Second / time.Duration(s.format.SampleRate)
	chunk := interval * chunkSamples
	for {
		s.pump()
		s.sleep(chunk)
	}
}

// pump emits one chunk of samples: the scaled source samples while a clip
// plays, the midpoint level otherwise.
func (s *Sink) pump() {
	src, loop, level, playing := s.voice.take()
	if src == nil || !playing {
		s.emitSilence()
		return
	}

	want := chunkSamples * int(s.format.Bits) / 8
	n, err := io.ReadFull(src, s.buf[:want])
	s.emit(s.buf[:n], level)

	if err == io.ErrUnexpectedEOF || err == io.EOF {
		if loop {
			if r, ok := src.(interface{ Rewind() error }); ok && r.Rewind() == nil {
				return
			}
		}
		s.voice.drained()
	}
}

func (s *Sink) emitSilence() {
	for i := 0; i < chunkSamples; i++ {
		s.out.WriteSample(0x8000)
	}
}

// emit converts raw PCM bytes to unsigned 16-bit samples, applies the gain
// around the midpoint and writes them out.
func (s *Sink) emit(raw []byte, level float32) {
	if s.format.Bits == 8 {
		for _, b := range raw {
			s.out.WriteSample(scale(uint16(b)<<8, level))
		}
		return
	}
	for i := 0; i+1 < len(raw); i += 2 {
		signed := int16(uint16(raw[i]) | uint16(raw[i+1])<<8)
		s.out.WriteSample(scale(uint16(signed)+0x8000, level))
	}
}

// scale attenuates an unsigned sample toward the midpoint.
func scale(v uint16, level float32) uint16 {
	if level >= 1 {
		return v
	}
	if level < 0 {
		level = 0
	}
	centered := float32(int32(v) - 0x8000)
	return uint16(int32(centered*level) + 0x8000)
}
