package core

import (
	"testing"
	"time"
)

// testRig wires a controller to fakes with a deterministic clock.
type testRig struct {
	c     *Controller
	clock *fakeClock
	strip *fakeStrip
	ring  *fakeStrip
	accel *fakeAccel
	pads  [NumChannels]*fakePad
	voice *fakeVoice
	sink  *fakeSink
	store *fakeClipStore
	wdog  *fakeWatchdog
	disp  *fakeDisplay
	flash *fakeSettingsStore
}

func newTestRig() *testRig {
	r := &testRig{
		clock: newFakeClock(),
		strip: &fakeStrip{},
		ring:  &fakeStrip{},
		accel: &fakeAccel{},
		voice: &fakeVoice{},
		store: newFakeClipStore(),
		wdog:  &fakeWatchdog{},
		disp:  &fakeDisplay{},
		flash: &fakeSettingsStore{},
	}
	r.accel.setForce(0)
	r.sink = &fakeSink{voice: r.voice}

	hw := &Hardware{
		Strip:    r.strip,
		Ring:     r.ring,
		Accel:    r.accel,
		Sink:     r.sink,
		Clips:    r.store,
		External: &fakeExternal{present: true},
		Watchdog: r.wdog,
		Display:  r.disp,
		Settings: r.flash,
	}
	for i := range r.pads {
		r.pads[i] = &fakePad{}
		hw.Pads[i] = r.pads[i]
	}

	r.c = &Controller{
		cfg:     DefaultConfig(),
		hw:      hw,
		now:     r.clock.now,
		sleep:   r.clock.sleep,
		reclaim: func() {},
	}
	r.c.build()
	r.c.audio.reclaim = func() {}
	return r
}

// frame runs one controller tick and advances to the next frame boundary.
func (r *testRig) frame(t *testing.T) {
	t.Helper()
	start := r.clock.now()
	if err := r.c.safeFrame(start); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if elapsed := r.clock.now().Sub(start); elapsed < r.c.cfg.FramePeriod {
		r.clock.advance(r.c.cfg.FramePeriod - elapsed)
	}
}

// tap presses and releases a channel across two frames.
func (r *testRig) tap(t *testing.T, ch Channel) {
	t.Helper()
	r.pads[ch].pressed = true
	r.frame(t)
	r.pads[ch].pressed = false
	r.frame(t)
}

// hold keeps a channel pressed long enough for a long press to fire.
func (r *testRig) hold(t *testing.T, ch Channel) {
	t.Helper()
	r.pads[ch].pressed = true
	deadline := r.clock.now().Add(r.c.cfg.LongPressDuration + 100*time.Millisecond)
	for r.clock.now().Before(deadline) {
		r.frame(t)
	}
	r.pads[ch].pressed = false
	r.frame(t)
}

func lastClip(store *fakeClipStore) string {
	if len(store.opens) == 0 {
		return ""
	}
	return store.opens[len(store.opens)-1]
}

func TestBootsIntoOffDarkAndSilent(t *testing.T) {
	r := newTestRig()
	r.frame(t)

	if r.c.State() != StateOff {
		t.Fatalf("boot state %v, want OFF", r.c.State())
	}
	for i, c := range r.strip.last() {
		if c.R != 0 || c.G != 0 || c.B != 0 {
			t.Errorf("strip pixel %d lit at boot: %v", i, c)
		}
	}
	if r.c.audio.Playing() {
		t.Error("audio playing at boot")
	}
}

func TestPowerTapIgnitesToIdle(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	r.tap(t, ChannelPower)

	if r.c.State() != StateIdle {
		t.Fatalf("state %v after power tap, want IDLE", r.c.State())
	}
	if lastClip(r.store) != "0/"+EventIdle {
		t.Errorf("last clip %q, want the looping idle clip", lastClip(r.store))
	}
	if !r.voice.loop {
		t.Error("idle clip not looping")
	}

	// Blade fully lit at the theme's idle color (brightness-scaled)
	r.frame(t)
	lit := false
	for _, c := range r.strip.last() {
		if c.R != 0 || c.G != 0 || c.B != 0 {
			lit = true
		} else {
			t.Fatal("dark pixel on an ignited blade")
		}
	}
	if !lit {
		t.Error("blade not lit in IDLE")
	}
}

func TestPowerTapRetractsToOff(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	r.tap(t, ChannelPower) // ignite
	r.tap(t, ChannelPower) // retract

	if r.c.State() != StateOff {
		t.Fatalf("state %v after second tap, want OFF", r.c.State())
	}
	for i, c := range r.strip.last() {
		if c.R != 0 || c.G != 0 || c.B != 0 {
			t.Errorf("strip pixel %d lit after retraction: %v", i, c)
		}
	}
}

func TestIgnitionAnimationGrowsFromTheHilt(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	before := len(r.strip.writes)
	r.tap(t, ChannelPower)

	// The animation must have produced several intermediate frames with a
	// partially lit blade, each respecting the write-rate limiter.
	anim := r.strip.writes[before:]
	if len(anim) < 5 {
		t.Fatalf("only %d frames during ignition", len(anim))
	}
	partials := 0
	for _, frame := range anim {
		litRun := 0
		for _, c := range frame {
			if c.R != 0 || c.G != 0 || c.B != 0 {
				litRun++
			}
		}
		if litRun > 0 && litRun < len(frame) {
			partials++
		}
	}
	if partials == 0 {
		t.Error("no partially lit frames; blade snapped on instead of growing")
	}
}

func TestHitOutranksSwing(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	r.tap(t, ChannelPower)
	r.frame(t) // seed the motion filter in IDLE

	// A raw spike above the hit threshold classifies as HIT even though the
	// smoothed value also crosses the swing threshold.
	r.accel.setForce(20)
	r.frame(t)

	if r.c.State() != StateHit {
		t.Fatalf("state %v, want HIT", r.c.State())
	}
	if lastClip(r.store) != "0/"+EventHit {
		t.Errorf("last clip %q, want the hit clip", lastClip(r.store))
	}
}

func TestHitFlashesRingWhite(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	r.tap(t, ChannelPower)
	r.frame(t)

	r.accel.setForce(20)
	r.frame(t)
	r.accel.setForce(0)
	r.frame(t) // render tick inside the flash window

	frame := r.ring.last()
	if len(frame) == 0 {
		t.Fatal("ring never written during the hit")
	}
	for i, c := range frame {
		if c.R != c.G || c.G != c.B || c.R == 0 {
			t.Errorf("ring pixel %d = %v during the flash window, want white", i, c)
		}
	}
}

func TestSustainedMotionFiresSwingNotHit(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	r.tap(t, ChannelPower)
	r.frame(t)

	// Sustained force between the thresholds: swing only
	r.accel.setForce(8)
	for i := 0; i < 20 && r.c.State() == StateIdle; i++ {
		r.frame(t)
	}

	if r.c.State() != StateSwing {
		t.Fatalf("state %v, want SWING", r.c.State())
	}
	if lastClip(r.store) != "0/"+EventSwing {
		t.Errorf("last clip %q, want the swing clip", lastClip(r.store))
	}
}

func TestMotionEventReturnsToIdleWhenClipEnds(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	r.tap(t, ChannelPower)
	r.frame(t)

	r.accel.setForce(20)
	r.frame(t)
	r.accel.setForce(0)
	if r.c.State() != StateHit {
		t.Fatalf("state %v, want HIT", r.c.State())
	}

	// The clip runs out
	r.voice.playing = false
	r.frame(t)
	r.frame(t)

	if r.c.State() != StateIdle {
		t.Fatalf("state %v after the clip drained, want IDLE", r.c.State())
	}
	if lastClip(r.store) != "0/"+EventIdle || !r.voice.loop {
		t.Error("idle loop not resumed after the motion event")
	}
}

func TestWatchdogFedEveryFrame(t *testing.T) {
	r := newTestRig()
	for i := 0; i < 10; i++ {
		r.frame(t)
	}
	if r.wdog.feeds < 10 {
		t.Errorf("watchdog fed %d times over 10 frames", r.wdog.feeds)
	}

	// Also throughout the quasi-blocking ignition animation
	feeds := r.wdog.feeds
	r.tap(t, ChannelPower)
	if r.wdog.feeds-feeds < 20 {
		t.Errorf("watchdog fed only %d times during ignition", r.wdog.feeds-feeds)
	}
}

func TestVolumeTapsStepAndPersist(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	startVol := r.c.settings.Volume

	r.tap(t, ChannelVolumeUp)
	if r.c.settings.Volume != startVol+1 {
		t.Fatalf("volume %d, want %d", r.c.settings.Volume, startVol+1)
	}
	if r.voice.level != r.c.cfg.VolumePresets[startVol+1] {
		t.Error("gain not applied on volume step")
	}
	if r.disp.volumeCalls != 1 {
		t.Error("volume overlay not shown")
	}
	if r.flash.data == nil || r.flash.data[settingsOffVolume] != uint8(startVol+1) {
		t.Error("volume step not persisted")
	}

	// Steps saturate at the ends of the preset table
	for i := 0; i < 5; i++ {
		r.tap(t, ChannelVolumeUp)
	}
	if int(r.c.settings.Volume) != len(r.c.cfg.VolumePresets)-1 {
		t.Errorf("volume %d, want the top preset", r.c.settings.Volume)
	}
	for i := 0; i < 8; i++ {
		r.tap(t, ChannelVolumeDown)
	}
	if r.c.settings.Volume != 0 {
		t.Errorf("volume %d, want the bottom preset", r.c.settings.Volume)
	}
}

func TestVolumeLongPressShowsBattery(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	r.hold(t, ChannelVolumeUp)

	if r.disp.batteryCalls == 0 {
		t.Fatal("battery overlay not shown")
	}
	if !r.disp.lastBatteryExt {
		t.Error("external power not reported")
	}
	if r.disp.volumeCalls != 0 {
		t.Error("long press also stepped the volume")
	}
}

func TestBrightnessCyclesOnlyWhenOff(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	start := r.c.settings.Brightness

	r.hold(t, ChannelPower)
	want := uint8((int(start) + 1) % len(r.c.cfg.BrightnessLevels))
	if r.c.settings.Brightness != want {
		t.Fatalf("brightness %d, want %d", r.c.settings.Brightness, want)
	}
	if r.disp.brightnessCalls != 1 {
		t.Error("brightness overlay not shown")
	}
	if r.c.State() != StateOff {
		t.Errorf("long press changed state to %v", r.c.State())
	}

	// While lit, a power long-press does nothing
	r.tap(t, ChannelPower)
	before := r.c.settings.Brightness
	r.hold(t, ChannelPower)
	if r.c.settings.Brightness != before {
		t.Error("brightness changed while the blade was lit")
	}
}

func TestThemeTapCyclesAndPersists(t *testing.T) {
	r := newTestRig()
	r.frame(t)

	r.tap(t, ChannelTheme)
	if r.c.settings.Theme != 1 {
		t.Fatalf("theme %d, want 1", r.c.settings.Theme)
	}
	if lastClip(r.store) != "1/"+EventSwitch {
		t.Errorf("last clip %q, want the new theme's switch clip", lastClip(r.store))
	}
	if r.disp.imageCalls != 1 || r.disp.lastImageTheme != 1 {
		t.Error("theme logo not shown")
	}
	if r.flash.data == nil || r.flash.data[settingsOffTheme] != 1 {
		t.Error("theme not persisted")
	}

	// Wraps around the table
	for i := 0; i < len(r.c.cfg.Themes)-1; i++ {
		r.tap(t, ChannelTheme)
	}
	if r.c.settings.Theme != 0 {
		t.Errorf("theme %d after a full cycle, want 0", r.c.settings.Theme)
	}
}

func TestThemeTapWhileLitRetractsFirst(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	r.tap(t, ChannelPower)

	r.tap(t, ChannelTheme)
	if r.c.State() != StateOff {
		t.Fatalf("state %v after theme switch, want OFF", r.c.State())
	}
	if r.c.settings.Theme != 1 {
		t.Errorf("theme %d, want 1", r.c.settings.Theme)
	}
}

func TestLowMemoryPanicRecoversWithoutCounting(t *testing.T) {
	r := newTestRig()
	reclaims := 0
	r.c.reclaim = func() { reclaims++ }
	r.c.hw.Watchdog = panickyWatchdog{text: "runtime: out of memory"}

	if err := r.c.safeFrame(r.clock.now()); err != nil {
		t.Fatalf("low-memory panic escalated: %v", err)
	}
	if reclaims == 0 {
		t.Error("no reclamation pass after the low-memory recovery")
	}
}

func TestUnclassifiedPanicCountsAsFrameError(t *testing.T) {
	r := newTestRig()
	r.c.hw.Watchdog = panickyWatchdog{text: "nil map write"}

	if err := r.c.safeFrame(r.clock.now()); err != errFramePanic {
		t.Fatalf("got %v, want errFramePanic", err)
	}
}

func TestRunHaltsSafelyAfterRestartBudget(t *testing.T) {
	r := newTestRig()
	r.c.hw.Watchdog = panickyWatchdog{text: "broken"}
	// Rebuilds keep the same hardware, so every lifetime fails the same way
	// and Run must give up within the restart budget.
	r.c.Run()

	if r.voice.playing || r.sink.playing {
		t.Error("audio left running at halt")
	}
	last := r.strip.last()
	if last == nil {
		t.Fatal("strip never darkened at halt")
	}
	for i, c := range last {
		if c.R != 0 || c.G != 0 || c.B != 0 {
			t.Errorf("strip pixel %d lit at halt: %v", i, c)
		}
	}
}

func TestBatteryCheckedPeriodicallyInBackground(t *testing.T) {
	r := newTestRig()
	ext := &fakeExternal{}
	adc := &fakeADC{value: rawForVolts(r.c.cfg, 3.8)}
	r.c.hw.BatteryADC = adc
	r.c.hw.External = ext
	r.c.build()
	r.c.audio.reclaim = func() {}
	r.c.battery.sleep = func(time.Duration) {}

	r.frame(t)
	first := adc.reads
	if first == 0 {
		t.Fatal("no initial battery check")
	}

	// Inside the interval: no further reads
	for i := 0; i < 5; i++ {
		r.frame(t)
	}
	if adc.reads != first {
		t.Error("battery polled inside the check interval")
	}

	r.clock.advance(r.c.cfg.BatteryCheckInterval)
	r.frame(t)
	if adc.reads <= first {
		t.Error("battery not re-checked after the interval")
	}
}

func TestMemoryReclaimedOnlyWhileOff(t *testing.T) {
	r := newTestRig()
	reclaims := 0
	r.c.reclaim = func() { reclaims++ }

	// OFF: reclamation happens on the maintenance cadence
	r.clock.advance(r.c.cfg.MemoryMaintInterval)
	r.frame(t)
	if reclaims == 0 {
		t.Fatal("no reclamation in OFF")
	}

	// IDLE with audio looping: never
	r.tap(t, ChannelPower)
	reclaims = 0
	r.clock.advance(r.c.cfg.MemoryMaintInterval)
	for i := 0; i < 5; i++ {
		r.frame(t)
	}
	if reclaims != 0 {
		t.Error("reclamation ran while audio was playing")
	}
}

func TestMotionReinitAttemptedWhileDisabled(t *testing.T) {
	r := newTestRig()
	r.frame(t)
	r.tap(t, ChannelPower)
	r.frame(t)

	r.accel.readErr = errBus
	for i := 0; i < r.c.cfg.MotionFailureLimit+2; i++ {
		r.frame(t)
	}
	if r.c.motion.Enabled() {
		t.Fatal("motion breaker did not trip")
	}

	r.accel.readErr = nil
	r.accel.setForce(0)
	configures := r.accel.configures
	r.clock.advance(r.c.cfg.MotionRetryInterval)
	r.frame(t)
	if r.accel.configures <= configures {
		t.Fatal("no reinit attempt after the retry interval")
	}
	if !r.c.motion.Enabled() {
		t.Error("motion did not recover")
	}
}

func TestNilLedHardwareDegradesInsteadOfCrashing(t *testing.T) {
	r := newTestRig()
	r.c.hw.Strip = nil
	r.c.hw.Ring = nil
	r.c.build()
	r.c.audio.reclaim = func() {}

	r.frame(t)
	r.tap(t, ChannelPower) // Ignition animation drives many strip writes
	if r.c.State() != StateIdle {
		t.Fatalf("state %v after ignition with no LED hardware, want IDLE", r.c.State())
	}

	// Teardown runs outside the frame panic boundary, so it must be just as
	// safe with the device absent.
	r.c.teardown()
}

func TestSimultaneousVolumeHoldsShowBatteryOnce(t *testing.T) {
	r := newTestRig()
	r.pads[ChannelVolumeUp].pressed = true
	r.pads[ChannelVolumeDown].pressed = true
	deadline := r.clock.now().Add(r.c.cfg.LongPressDuration + 100*time.Millisecond)
	for r.clock.now().Before(deadline) {
		r.frame(t)
	}
	r.pads[ChannelVolumeUp].pressed = false
	r.pads[ChannelVolumeDown].pressed = false
	r.frame(t)
	r.frame(t)

	if r.disp.batteryCalls != 1 {
		t.Fatalf("battery screen shown %d times for one combined hold, want 1", r.disp.batteryCalls)
	}
	if r.disp.volumeCalls != 0 {
		t.Error("volume stepped during the combined hold")
	}
}

// panickyWatchdog panics on Feed, driving the frame panic boundary.
type panickyWatchdog struct {
	text string
}

func (w panickyWatchdog) Feed() {
	panic(w.text)
}
