package core

// Shared in-memory fakes for the hardware capability interfaces.

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/color"
	"io"
	"time"
)

// fakeClock drives injectable now/sleep hooks deterministically.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) sleep(d time.Duration) {
	c.t = c.t.Add(d)
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

var errBus = errors.New("bus write failed")

// fakeStrip records every frame put on the bus.
type fakeStrip struct {
	writes [][]color.RGBA
	err    error
}

func (s *fakeStrip) WriteColors(colors []color.RGBA) error {
	if s.err != nil {
		return s.err
	}
	frame := make([]color.RGBA, len(colors))
	copy(frame, colors)
	s.writes = append(s.writes, frame)
	return nil
}

func (s *fakeStrip) last() []color.RGBA {
	if len(s.writes) == 0 {
		return nil
	}
	return s.writes[len(s.writes)-1]
}

// fakePad is a touch channel whose level tests set directly.
type fakePad struct {
	pressed bool
}

func (p *fakePad) Pressed() bool {
	return p.pressed
}

// fakeAccel serves scripted acceleration vectors in micro-g.
type fakeAccel struct {
	x, y, z    int32
	readErr    error
	configErr  error
	configures int
}

func (a *fakeAccel) Configure() error {
	a.configures++
	return a.configErr
}

func (a *fakeAccel) Acceleration() (int32, int32, int32, error) {
	if a.readErr != nil {
		return 0, 0, 0, a.readErr
	}
	return a.x, a.y, a.z, nil
}

// setForce points the vector straight up with the given force (m/s^2) on top
// of resting gravity, so the computed raw force equals force.
func (a *fakeAccel) setForce(force float32) {
	total := (float64(force) + gravity) / gravity * 1e6 // micro-g
	a.x, a.y, a.z = 0, 0, int32(total)
}

// buildWav returns a minimal RIFF/WAVE byte blob with the given format and a
// zeroed data chunk of dataLen bytes.
func buildWav(rate uint32, bits, channels uint16, dataLen int) []byte {
	var buf bytes.Buffer
	byteRate := rate * uint32(channels) * uint32(bits) / 8
	blockAlign := channels * bits / 8

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, rate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, bits)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

// trackedClip wraps a clip handle and records Close calls.
type trackedClip struct {
	io.Reader
	store  *fakeClipStore
	closed bool
}

func (c *trackedClip) Close() error {
	if !c.closed {
		c.closed = true
		c.store.openCount--
	}
	return nil
}

// fakeClipStore serves buildWav blobs and tracks the open-handle count.
type fakeClipStore struct {
	missing   map[string]bool // "theme/event" pairs that fail to open
	corrupt   map[string]bool // pairs that open but do not decode
	rate      uint32          // Sample rate served; zero means 22050
	openCount int
	maxOpen   int
	opens     []string
}

func newFakeClipStore() *fakeClipStore {
	return &fakeClipStore{
		missing: make(map[string]bool),
		corrupt: make(map[string]bool),
	}
}

func (s *fakeClipStore) Open(theme int, event string) (io.ReadCloser, error) {
	key := itoa(theme) + "/" + event
	if s.missing[key] {
		return nil, errors.New("no such clip")
	}
	s.opens = append(s.opens, key)
	s.openCount++
	if s.openCount > s.maxOpen {
		s.maxOpen = s.openCount
	}
	rate := s.rate
	if rate == 0 {
		rate = 22050
	}
	data := buildWav(rate, 16, 1, 64)
	if s.corrupt[key] {
		data = []byte("not a wav at all")
	}
	return &trackedClip{Reader: bytes.NewReader(data), store: s}, nil
}

// fakeVoice is a mixer voice that tracks source swaps and levels.
type fakeVoice struct {
	source  SampleSource
	loop    bool
	level   float32
	playing bool
	swaps   int

	// resetLevelOnSwap mimics hardware that loses gain on source replacement
	resetLevelOnSwap bool
}

func (v *fakeVoice) SetSource(src SampleSource, loop bool) {
	v.source = src
	v.loop = loop
	v.swaps++
	_, v.playing = src.(*WavSource)
	if v.resetLevelOnSwap {
		v.level = 1.0
	}
}

func (v *fakeVoice) SetLevel(level float32) { v.level = level }
func (v *fakeVoice) Level() float32         { return v.level }
func (v *fakeVoice) Playing() bool          { return v.playing }

// fakeSink is an audio sink with an optional mixer voice.
type fakeSink struct {
	voice   *fakeVoice
	direct  SampleSource
	playing bool
	stops   int
}

func (s *fakeSink) Play(src SampleSource, loop bool) error {
	s.direct = src
	s.playing = true
	return nil
}

func (s *fakeSink) Stop() {
	s.stops++
	s.playing = false
}

func (s *fakeSink) Playing() bool {
	return s.playing
}

func (s *fakeSink) Voice() (MixerVoice, bool) {
	if s.voice == nil {
		return nil, false
	}
	return s.voice, true
}

// fakeWatchdog counts feeds.
type fakeWatchdog struct {
	feeds int
}

func (w *fakeWatchdog) Feed() { w.feeds++ }

// fakeSettingsStore is an in-memory settings byte store.
type fakeSettingsStore struct {
	data    []byte
	loadErr error
}

func (s *fakeSettingsStore) Load(buf []byte) error {
	if s.loadErr != nil {
		return s.loadErr
	}
	if s.data == nil {
		return errors.New("empty store")
	}
	copy(buf, s.data)
	return nil
}

func (s *fakeSettingsStore) Store(buf []byte) error {
	s.data = make([]byte, len(buf))
	copy(s.data, buf)
	return nil
}

// fakeADC serves a fixed raw battery reading.
type fakeADC struct {
	value uint16
	err   error
	reads int
}

func (a *fakeADC) ReadRaw() (uint16, error) {
	a.reads++
	if a.err != nil {
		return 0, a.err
	}
	return a.value, nil
}

// fakeExternal reports external power presence.
type fakeExternal struct {
	present bool
}

func (e *fakeExternal) Present() bool { return e.present }

// fakeDisplay records collaborator calls.
type fakeDisplay struct {
	batteryCalls    int
	lastBatteryPct  int
	lastBatteryExt  bool
	volumeCalls     int
	lastVolume      int
	brightnessCalls int
	lastBrightness  int
	imageCalls      int
	lastImageTheme  int
	lastImageKind   string
}

func (d *fakeDisplay) ShowBattery(percent int, external bool) {
	d.batteryCalls++
	d.lastBatteryPct = percent
	d.lastBatteryExt = external
}

func (d *fakeDisplay) ShowVolume(index int) {
	d.volumeCalls++
	d.lastVolume = index
}

func (d *fakeDisplay) ShowBrightness(index int) {
	d.brightnessCalls++
	d.lastBrightness = index
}

func (d *fakeDisplay) ShowImage(theme int, kind string) {
	d.imageCalls++
	d.lastImageTheme = theme
	d.lastImageKind = kind
}
