// Audio engine. Owns the one audio output path for the process lifetime.
//
// Primary mode keeps a single mixer voice attached to the sink from boot
// onward; playing a new clip replaces the voice's source instead of restarting
// the sink, so the DMA stream underneath never stops. If the sink cannot
// provide a mixer voice the engine degrades to stop-then-replace direct
// playback, accepting an audible gap between clips.
package core

import (
	"errors"
	"io"
	"runtime"
)

// ClipStore opens the media resource for a (theme index, event name) pair.
// Implemented by the targets over their asset filesystem.
type ClipStore interface {
	Open(theme int, event string) (io.ReadCloser, error)
}

// MixerVoice is the persistent mixing primitive on the audio sink.
type MixerVoice interface {
	// SetSource atomically replaces the voice's sample source. The previous
	// source is no longer referenced when this returns.
	SetSource(src SampleSource, loop bool)

	// SetLevel applies a real gain to the voice. Replacing the source may
	// reset the level, so the engine re-applies it after every swap.
	SetLevel(level float32)

	Level() float32

	// Playing reports whether the current source still produces samples.
	// A looping source plays until replaced.
	Playing() bool
}

// AudioSink is the one audio output path. Exclusively owned by the engine.
type AudioSink interface {
	// Play starts direct playback of src, stopping whatever played before.
	// Used only in fallback mode.
	Play(src SampleSource, loop bool) error

	// Stop halts direct playback.
	Stop()

	// Playing reports whether the sink is producing samples.
	Playing() bool

	// Voice returns the persistent mixer voice, if the sink supports one.
	Voice() (MixerVoice, bool)
}

// ErrNoClip is returned when an asset cannot be opened or decoded. The engine
// stays silent and playable; the caller treats the feature as unavailable.
var ErrNoClip = errors.New("audio: clip unavailable")

// AudioEngine coordinates clip playback over the sink.
//
// Invariant: at most one clip handle is open at any time. Every clip swap
// passes through the silent placeholder so the previous handle can be closed
// (and its buffer reclaimed) before the next one opens.
type AudioEngine struct {
	cfg   *Config
	store ClipStore
	sink  AudioSink

	voice   MixerVoice // nil in fallback mode
	silence SampleSource
	format  Format // Probed once at boot, pinned for the session

	open    io.Closer // The currently open clip handle, nil when idle
	looping bool
	level   float32

	// reclaim forces a memory reclamation pass between closing the old clip
	// and opening the next; only one full clip buffer may exist at a time.
	reclaim func()
}

// defaultFormat is assumed when no clip can be probed at boot. Matches the
// format saberwav produces.
var defaultFormat = Format{SampleRate: 22050, Bits: 16, Channels: 1}

// NewAudioEngine attaches the engine to the sink and probes the session
// sample format from the first clip that opens.
func NewAudioEngine(cfg *Config, store ClipStore, sink AudioSink) *AudioEngine {
	e := &AudioEngine{
		cfg:     cfg,
		store:   store,
		sink:    sink,
		level:   cfg.VolumePresets[len(cfg.VolumePresets)-1],
		reclaim: runtime.GC,
	}
	e.format = ProbeClipFormat(store, len(cfg.Themes))
	e.silence = Silence(e.format)

	if v, ok := sink.Voice(); ok {
		// Primary mode: park the persistent voice on silence now; it is
		// never detached again during normal operation.
		e.voice = v
		v.SetSource(e.silence, true)
		v.SetLevel(e.level)
		DebugPrintln("[AUDIO] mixer voice attached, rate=" + utoa(e.format.SampleRate))
	} else {
		DebugPrintln("[AUDIO] no mixer voice, using stop/replace fallback")
	}
	return e
}

// ProbeClipFormat opens clips in fixed order until one decodes, and returns
// that clip's format. The engine pins it for the whole session, and the
// target mains call it before constructing the sink so the output pacing
// matches what the engine will pin. Assets are expected to be uniform;
// saberwav exists to make them so.
func ProbeClipFormat(store ClipStore, themes int) Format {
	if store == nil {
		return defaultFormat
	}
	events := []string{EventIdle, EventPowerOn, EventSwing, EventHit, EventPowerOff, EventSwitch}
	for theme := 0; theme < themes; theme++ {
		for _, ev := range events {
			rc, err := store.Open(theme, ev)
			if err != nil {
				continue
			}
			src, err := NewWavSource(rc)
			rc.Close()
			if err != nil {
				continue
			}
			return src.Format()
		}
	}
	DebugPrintln("[AUDIO] no probeable clip found, assuming defaults")
	return defaultFormat
}

// Format returns the session sample format.
func (e *AudioEngine) Format() Format {
	return e.format
}

// Play replaces the current clip with (theme, event). Returns ErrNoClip and
// leaves the engine silent if the asset cannot be opened or decoded; missing
// audio is a degraded feature, never a crash.
func (e *AudioEngine) Play(theme int, event string, loop bool) error {
	if e.voice != nil {
		return e.playMixed(theme, event, loop)
	}
	return e.playDirect(theme, event, loop)
}

// playMixed is the gapless primary path.
func (e *AudioEngine) playMixed(theme int, event string, loop bool) error {
	// 1. Swap the voice to the silent placeholder. This atomically drops the
	//    voice's reference to the previous clip.
	e.voice.SetSource(e.silence, true)

	// 2. Close the previous handle.
	e.closeClip()

	// 3. Force a reclamation pass while parked on silence; only one full
	//    clip buffer may exist at a time under tight memory.
	e.reclaim()

	// 4. Open and attach the new clip.
	src, err := e.openClip(theme, event)
	if err != nil {
		return err
	}
	e.voice.SetSource(src, loop)
	e.looping = loop

	// 5. Re-apply gain; source replacement may reset it.
	e.voice.SetLevel(e.level)
	return nil
}

// playDirect is the fallback path. The gap between Stop and Play is audible.
func (e *AudioEngine) playDirect(theme int, event string, loop bool) error {
	e.sink.Stop()
	e.closeClip()
	e.reclaim()

	src, err := e.openClip(theme, event)
	if err != nil {
		return err
	}
	if err := e.sink.Play(src, loop); err != nil {
		e.closeClip()
		return err
	}
	e.looping = loop
	return nil
}

// openClip opens and decodes one clip, tracking its handle.
func (e *AudioEngine) openClip(theme int, event string) (SampleSource, error) {
	if e.store == nil {
		return nil, ErrNoClip
	}
	rc, err := e.store.Open(theme, event)
	if err != nil {
		DebugPrintln("[AUDIO] missing clip theme=" + itoa(theme) + " event=" + event)
		RecordFault(FaultAudioOpen, 0, uint32(theme))
		return nil, ErrNoClip
	}
	src, err := NewWavSource(rc)
	if err != nil {
		rc.Close()
		DebugPrintln("[AUDIO] bad clip theme=" + itoa(theme) + " event=" + event)
		RecordFault(FaultAudioOpen, 0, uint32(theme))
		return nil, ErrNoClip
	}
	e.open = rc
	return src, nil
}

func (e *AudioEngine) closeClip() {
	if e.open != nil {
		e.open.Close()
		e.open = nil
	}
	e.looping = false
}

// Stop silences playback. The voice stays attached (parked on silence) so the
// sink never restarts; fallback mode stops the sink directly.
func (e *AudioEngine) Stop() {
	if e.voice != nil {
		e.voice.SetSource(e.silence, true)
	} else {
		e.sink.Stop()
	}
	e.closeClip()
}

// Playing reports whether a real clip is currently producing samples.
func (e *AudioEngine) Playing() bool {
	if e.open == nil {
		return false
	}
	if e.voice != nil {
		return e.voice.Playing()
	}
	return e.sink.Playing()
}

// Poll releases the handle of a finished clip. O(1), non-blocking, called
// every tick.
func (e *AudioEngine) Poll() {
	if e.open == nil {
		return
	}
	if e.voice != nil {
		if !e.voice.Playing() {
			e.closeClip()
		}
		return
	}
	if !e.sink.Playing() {
		e.closeClip()
	}
}

// SetLevel applies a bounded gain to the output.
func (e *AudioEngine) SetLevel(level float32) {
	if level < e.cfg.MinGain {
		level = e.cfg.MinGain
	}
	if level > e.cfg.MaxGain {
		level = e.cfg.MaxGain
	}
	e.level = level
	if e.voice != nil {
		e.voice.SetLevel(level)
	}
}

// Level returns the current gain.
func (e *AudioEngine) Level() float32 {
	return e.level
}

// Reinit tears the engine state down and rebuilds the voice attachment.
// Reserved for unrecoverable audio faults; never called on the ordinary
// power-toggle path.
func (e *AudioEngine) Reinit() {
	e.Stop()
	if v, ok := e.sink.Voice(); ok {
		e.voice = v
		v.SetSource(e.silence, true)
		v.SetLevel(e.level)
	} else {
		e.voice = nil
	}
	DebugPrintln("[AUDIO] reinitialized")
}
