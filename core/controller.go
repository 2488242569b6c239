// Saber controller: the frame scheduler and orchestrator. Each tick feeds the
// watchdog, polls every subsystem in fixed order, dispatches the first
// actionable input, runs the state-specific behavior and sleeps the remainder
// of the frame period. The loop never blocks longer than a small fraction of
// the frame, because the audio DMA refill must never be starved.
package core

import (
	"errors"
	"image/color"
	"math"
	"strings"
	"time"

	"saber/telemetry"
)

// Watchdog is the capability interface for the hardware dead-man timer.
// Feed must be called at least once per timeout window or the system reboots
// unconditionally.
type Watchdog interface {
	Feed()
}

// Hardware bundles the platform adapters injected into the controller.
// Any nil entry degrades the matching feature instead of failing.
type Hardware struct {
	Strip      LedStrip
	Ring       LedStrip
	Accel      Accelerometer
	Pads       [NumChannels]TouchChannel
	Sink       AudioSink
	Clips      ClipStore
	BatteryADC AnalogReader
	External   ExternalPower
	Watchdog   Watchdog
	Display    StatusDisplay
	Settings   SettingsStore
}

var errFramePanic = errors.New("controller: frame panic")

// Controller owns the frame loop and all subsystems.
type Controller struct {
	cfg *Config
	hw  *Hardware

	machine *Machine
	input   *Input
	motion  *Motion
	strip   *Strip
	ring    *Strip
	audio   *AudioEngine
	battery *Battery
	display StatusDisplay

	settings Settings
	theme    *Theme

	eventStart   time.Time // Start of the active swing/hit event
	lastBattery  time.Time
	lastMemMaint time.Time
	lowMemory    bool

	// Injectable for tests
	now     func() time.Time
	sleep   func(time.Duration)
	reclaim func()
}

// NewController constructs the controller and all subsystems, loads the
// persisted settings and applies them.
func NewController(cfg *Config, hw *Hardware) *Controller {
	c := &Controller{
		cfg:     cfg,
		hw:      hw,
		now:     time.Now,
		sleep:   time.Sleep,
		reclaim: forceReclaim,
	}
	c.build()
	return c
}

// build constructs (or reconstructs, after teardown) every subsystem.
func (c *Controller) build() {
	cfg, hw := c.cfg, c.hw

	c.machine = NewMachine(c.now)
	c.input = NewInput(cfg, hw.Pads)
	c.motion = NewMotion(cfg, hw.Accel)
	c.strip = NewStrip(hw.Strip, cfg.NumPixels, cfg.LedMinWriteInterval)
	c.ring = NewStrip(hw.Ring, cfg.RingPixels, cfg.LedMinWriteInterval)
	c.audio = NewAudioEngine(cfg, hw.Clips, hw.Sink)
	c.battery = NewBattery(cfg, hw.BatteryADC, hw.External)

	c.display = hw.Display
	if c.display == nil {
		c.display = NopDisplay{}
	}

	c.settings = LoadSettings(hw.Settings, cfg)
	c.theme = cfg.Theme(int(c.settings.Theme))
	c.audio.SetLevel(cfg.VolumePresets[c.settings.Volume])
	c.strip.SetBrightness(cfg.BrightnessLevels[c.settings.Brightness])
	c.ring.SetBrightness(cfg.BrightnessLevels[c.settings.Brightness])
}

// Run executes the frame loop until the controller halts. A bounded run of
// consecutive frame errors triggers full teardown and reconstruction; too
// many reconstructions halt the system in a safe state (audio stopped, LEDs
// dark) and Run returns so the target main can park.
func (c *Controller) Run() {
	restarts := 0
	for {
		err := c.loop()
		DebugPrintln("[CTRL] loop failed: " + err.Error())
		DumpFaultRing()
		c.teardown()

		restarts++
		if restarts > c.cfg.MaxRestarts {
			DebugPrintln("[CTRL] restart budget exhausted, halting")
			return
		}
		DebugPrintln("[CTRL] rebuilding controller, restart " + itoa(restarts))
		c.build()
	}
}

// loop is one controller lifetime: fixed-period frames until the consecutive
// error bound is exceeded.
func (c *Controller) loop() error {
	consecutive := 0
	for {
		start := c.now()
		err := c.safeFrame(start)
		if err != nil {
			consecutive++
			c.sleep(c.cfg.ErrorBackoff)
			if consecutive >= c.cfg.MaxLoopErrors {
				return err
			}
			continue
		}
		consecutive = 0

		elapsed := c.now().Sub(start)
		if remain := c.cfg.FramePeriod - elapsed; remain > 0 {
			c.sleep(remain)
		}
	}
}

// safeFrame runs one frame with the panic boundary. Memory exhaustion is
// recovered locally (forced reclamation, not counted as a frame error);
// anything else unclassified is logged and counted.
func (c *Controller) safeFrame(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if isLowMemory(r) {
				RecordFault(FaultLowMemory, uint8(c.machine.State()), 0)
				DebugPrintln("[CTRL] low memory recovered")
				c.lowMemory = true
				c.reclaim()
				err = nil
				return
			}
			RecordFault(FaultLoopPanic, uint8(c.machine.State()), 0)
			DebugPrintln("[CTRL] recovered: " + panicText(r))
			err = errFramePanic
		}
	}()
	return c.frame(now)
}

// frame is one tick of the fixed-order control flow.
func (c *Controller) frame(now time.Time) error {
	c.feedWatchdog()
	c.audio.Poll()
	c.input.Poll(now)
	c.dispatchInput(now)
	c.updateState(now)
	c.maintain(now)

	if err := c.strip.Sync(c.now()); err != nil {
		return err
	}
	return c.ring.Sync(c.now())
}

func (c *Controller) feedWatchdog() {
	if c.hw.Watchdog != nil {
		c.hw.Watchdog.Feed()
	}
}

// dispatchInput checks the channels in fixed priority order and acts on the
// first actionable result for the tick; remaining checks are skipped.
func (c *Controller) dispatchInput(now time.Time) bool {
	// Status/volume channels first. Both holds are consumed up front so a
	// simultaneous hold on the pair cannot leave one latched for a re-fire
	// on the next tick.
	upHold := c.input.LongPress(ChannelVolumeUp)
	downHold := c.input.LongPress(ChannelVolumeDown)
	if upHold || downHold {
		c.showBattery()
		return true
	}
	if c.input.Tap(ChannelVolumeUp) {
		c.stepVolume(1)
		return true
	}
	if c.input.Tap(ChannelVolumeDown) {
		c.stepVolume(-1)
		return true
	}

	// Theme channel
	if c.input.Tap(ChannelTheme) {
		c.cycleTheme(now)
		return true
	}

	// Power channel
	if c.input.LongPress(ChannelPower) {
		if c.machine.State() == StateOff {
			c.stepBrightness()
			return true
		}
		return false
	}
	if c.input.Tap(ChannelPower) {
		c.togglePower(now)
		return true
	}
	return false
}

// updateState runs the per-state behavior for this tick.
func (c *Controller) updateState(now time.Time) {
	switch c.machine.State() {
	case StateOff:
		c.strip.Fill(colorOff)
		c.ring.Fill(colorOff)

	case StateIdle:
		c.motion.Sample(now)
		if c.motion.Hit() {
			c.startMotionEvent(StateHit, now)
			return
		}
		if c.motion.Swing() {
			c.startMotionEvent(StateSwing, now)
			return
		}
		c.strip.Fill(c.theme.IdleColor())
		c.renderRing(c.theme.IdleAnim, c.theme.BladeColor, c.machine.Since())

	case StateSwing, StateHit:
		c.updateMotionEvent(now)

	case StateError:
		// Safe recovery: silence, dark, back to OFF
		c.audio.Stop()
		c.strip.Fill(colorOff)
		c.ring.Fill(colorOff)
		c.machine.Transition(StateOff)
	}
}

var colorOff = color.RGBA{A: 255}

var colorWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// hitFlashWindow is how long the indicator ring holds the white impact flash
// before the themed hit animation takes over.
const hitFlashWindow = 150 * time.Millisecond

// startMotionEvent transitions into SWING or HIT and starts the event clip.
func (c *Controller) startMotionEvent(to State, now time.Time) {
	if err := c.machine.Transition(to); err != nil {
		return
	}
	c.eventStart = now
	if to == StateHit {
		DebugPrintln("[MOTION] hit raw=" + ftoa(c.motion.Raw()))
		c.audio.Play(int(c.settings.Theme), EventHit, false)
	} else {
		DebugPrintln("[MOTION] swing smoothed=" + ftoa(c.motion.Smoothed()))
		c.audio.Play(int(c.settings.Theme), EventSwing, false)
	}
}

// updateMotionEvent renders the blade blend while the event clip plays and
// falls back to IDLE when it finishes.
func (c *Controller) updateMotionEvent(now time.Time) {
	state := c.machine.State()
	if !c.audio.Playing() {
		if c.machine.Transition(StateIdle) == nil {
			c.audio.Play(int(c.settings.Theme), EventIdle, true)
			c.strip.Fill(c.theme.IdleColor())
		}
		return
	}

	elapsed := now.Sub(c.eventStart)
	blend := float32(elapsed) / float32(time.Second)
	active := c.theme.HitColor
	if state == StateSwing {
		// Pulse toward the blade color and back
		active = c.theme.BladeColor
		blend = abs32(0.5-blend) * 2
	}
	c.strip.Fill(Blend(active, c.theme.IdleColor(), blend))

	if state == StateHit && elapsed < hitFlashWindow {
		c.ring.Fill(colorWhite)
		return
	}
	style := c.theme.SwingAnim
	if state == StateHit {
		style = c.theme.HitAnim
	}
	c.renderRing(style, active, elapsed)
}

func (c *Controller) renderRing(style uint8, base color.RGBA, elapsed time.Duration) {
	Animator(style)(elapsed, base, c.ring.Frame())
	c.ring.MarkDirty()
}

// togglePower runs the ignition or retraction sequence.
func (c *Controller) togglePower(now time.Time) {
	switch c.machine.State() {
	case StateOff:
		c.powerOn(now)
	case StateIdle, StateSwing, StateHit:
		c.powerOff(now)
	}
}

// powerOn runs the ignition animation and lands in IDLE with the idle clip
// looping and the strip fully lit at the theme's idle color.
func (c *Controller) powerOn(now time.Time) {
	if c.machine.Transition(StatePowerOn) != nil {
		return
	}
	c.audio.Play(int(c.settings.Theme), EventPowerOn, false)
	c.runPowerAnim(c.cfg.PowerOnDuration, false)

	c.strip.Fill(c.theme.IdleColor())
	c.strip.ForceSync(c.now())

	c.machine.Transition(StateIdle)
	c.audio.Play(int(c.settings.Theme), EventIdle, true)
}

// powerOff runs the retraction animation and lands in OFF, dark and silent
// once the retraction clip drains.
func (c *Controller) powerOff(now time.Time) {
	if c.machine.Transition(StatePowerOff) != nil {
		return
	}
	c.audio.Play(int(c.settings.Theme), EventPowerOff, false)
	c.runPowerAnim(c.cfg.PowerOffDuration, true)

	c.strip.Dark(c.now())
	c.ring.Dark(c.now())
	c.machine.Transition(StateOff)
}

// runPowerAnim is one of the two short bounded quasi-blocking sequences that
// run outside the fixed frame cadence. Every sub-iteration still feeds the
// watchdog and still goes through the LED rate limiter, so the audio pipeline
// is never starved even here.
func (c *Controller) runPowerAnim(duration time.Duration, reverse bool) {
	start := c.now()
	idle := c.theme.IdleColor()
	for {
		now := c.now()
		elapsed := now.Sub(start)
		if elapsed > duration {
			break
		}
		c.feedWatchdog()
		c.audio.Poll()

		// Square-root easing: fast start, settling finish
		fraction := math.Sqrt(float64(elapsed) / float64(duration))
		lit := int(float64(c.cfg.NumPixels)*fraction + 0.5)
		if reverse {
			lit = c.cfg.NumPixels - lit
		}
		c.strip.FillLit(lit, idle)
		c.strip.Sync(now)

		c.sleep(c.cfg.PowerAnimStep)
	}
}

// stepVolume moves the volume preset index, persists it and applies the gain.
func (c *Controller) stepVolume(delta int) {
	idx := int(c.settings.Volume) + delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.cfg.VolumePresets) {
		idx = len(c.cfg.VolumePresets) - 1
	}
	if idx == int(c.settings.Volume) {
		return
	}
	c.settings.Volume = uint8(idx)
	c.audio.SetLevel(c.cfg.VolumePresets[idx])
	SaveSettings(c.hw.Settings, c.settings)
	c.display.ShowVolume(idx)
}

// stepBrightness cycles the strip brightness preset (OFF state only).
func (c *Controller) stepBrightness() {
	idx := (int(c.settings.Brightness) + 1) % len(c.cfg.BrightnessLevels)
	c.settings.Brightness = uint8(idx)
	c.strip.SetBrightness(c.cfg.BrightnessLevels[idx])
	c.ring.SetBrightness(c.cfg.BrightnessLevels[idx])
	SaveSettings(c.hw.Settings, c.settings)
	c.display.ShowBrightness(idx)
}

// cycleTheme advances to the next theme. A lit blade retracts first, exactly
// like a power-off, before the switch clip and logo are shown.
func (c *Controller) cycleTheme(now time.Time) {
	switch c.machine.State() {
	case StateIdle, StateSwing, StateHit:
		c.powerOff(now)
	case StateOff:
	default:
		return
	}

	c.settings.Theme = uint8((int(c.settings.Theme) + 1) % len(c.cfg.Themes))
	c.theme = c.cfg.Theme(int(c.settings.Theme))
	SaveSettings(c.hw.Settings, c.settings)

	c.audio.Play(int(c.settings.Theme), EventSwitch, false)
	c.display.ShowImage(int(c.settings.Theme), "logo")
	DebugPrintln("[CTRL] theme -> " + c.theme.Name)
}

func (c *Controller) showBattery() {
	pct, ext, err := c.battery.Percent()
	if err != nil {
		return
	}
	c.display.ShowBattery(pct, ext)
}

// maintain runs the periodic housekeeping: battery checks, sensor recovery
// attempts and memory reclamation. Forced reclamation is scheduled only in
// the OFF state or under the low-memory condition, never while audio plays,
// because the pass itself can stall long enough to glitch the stream.
func (c *Controller) maintain(now time.Time) {
	if !c.motion.Enabled() {
		c.motion.Sample(now) // Drives the timed reinit attempts
	}

	if c.lastBattery.IsZero() || now.Sub(c.lastBattery) >= c.cfg.BatteryCheckInterval {
		c.lastBattery = now
		if pct, ext, err := c.battery.Percent(); err == nil {
			external := byte(0)
			if ext {
				external = 1
			}
			emitRecord(telemetry.TypeBattery, []byte{uint8(pct), external})
			if !ext && pct <= 5 {
				DebugPrintln("[BATT] low: " + itoa(pct) + "%")
			}
		}
	}

	if c.lowMemory || (c.machine.State() == StateOff &&
		now.Sub(c.lastMemMaint) >= c.cfg.MemoryMaintInterval) {
		c.lastMemMaint = now
		c.lowMemory = false
		c.reclaim()
	}
}

// teardown stops everything and leaves the hardware safe.
func (c *Controller) teardown() {
	c.audio.Stop()
	c.strip.Dark(c.now())
	c.ring.Dark(c.now())
}

// State exposes the current operating state (for telemetry and tests).
func (c *Controller) State() State {
	return c.machine.State()
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func panicText(r interface{}) string {
	switch v := r.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return "panic"
	}
}

// isLowMemory classifies a recovered panic as an allocation failure.
func isLowMemory(r interface{}) bool {
	return strings.Contains(panicText(r), "out of memory")
}
