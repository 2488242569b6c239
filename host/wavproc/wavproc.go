// Package wavproc conditions sound clips for the firmware's audio path:
// mono, 22050 Hz, 16-bit PCM, normalized below clipping, DC-free, with short
// fades against clicks at clip boundaries.
package wavproc

import (
	"errors"
	"math"

	"github.com/go-audio/audio"
)

// Firmware audio format
const (
	TargetSampleRate = 22050
	TargetBitDepth   = 16
	TargetChannels   = 1
)

// Click-suppression fades
const (
	FadeInMs  = 10
	FadeOutMs = 50
)

// NormalizeHeadroomDB keeps the peak this far below full scale.
const NormalizeHeadroomDB = 1.0

var ErrEmptyClip = errors.New("wavproc: clip has no samples")

// Process runs the full conditioning chain on a decoded buffer and returns a
// new buffer in the firmware format. volumePercent scales the output level
// (100 = normalized full level).
func Process(buf *audio.IntBuffer, volumePercent int) (*audio.IntBuffer, error) {
	if buf == nil || len(buf.Data) == 0 {
		return nil, ErrEmptyClip
	}

	samples := toFloat(buf)
	if buf.Format.NumChannels > 1 {
		samples = Downmix(samples, buf.Format.NumChannels)
	}
	if buf.Format.SampleRate != TargetSampleRate {
		samples = Resample(samples, buf.Format.SampleRate, TargetSampleRate)
	}

	Normalize(samples, NormalizeHeadroomDB)
	if volumePercent != 100 {
		ApplyGainDB(samples, VolumeDB(volumePercent))
	}
	RemoveDCOffset(samples)
	Fade(samples, TargetSampleRate, FadeInMs, FadeOutMs)

	return toInt(samples), nil
}

// Downmix averages interleaved channels into mono.
func Downmix(samples []float64, channels int) []float64 {
	frames := len(samples) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// Resample converts mono samples between rates by linear interpolation.
// Good enough for effect clips headed to an 8-bit-ish output stage.
func Resample(samples []float64, from, to int) []float64 {
	if from == to || len(samples) == 0 {
		return samples
	}
	n := int(float64(len(samples)) * float64(to) / float64(from))
	if n == 0 {
		n = 1
	}
	out := make([]float64, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}

// Normalize scales the signal so its peak sits headroomDB below full scale.
// A silent clip is left untouched.
func Normalize(samples []float64, headroomDB float64) {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	target := math.Pow(10, -headroomDB/20)
	gain := target / peak
	for i := range samples {
		samples[i] *= gain
	}
}

// VolumeDB converts a volume percentage to a dB change (50% = -6 dB).
func VolumeDB(percent int) float64 {
	return 20 * math.Log10(float64(percent)/100)
}

// ApplyGainDB applies a dB gain, clamping at full scale.
func ApplyGainDB(samples []float64, db float64) {
	gain := math.Pow(10, db/20)
	for i := range samples {
		v := samples[i] * gain
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		samples[i] = v
	}
}

// RemoveDCOffset subtracts the mean so the waveform centers on zero.
func RemoveDCOffset(samples []float64) {
	if len(samples) == 0 {
		return
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	for i := range samples {
		samples[i] -= mean
	}
}

// Fade applies linear fade-in and fade-out ramps.
func Fade(samples []float64, rate, inMs, outMs int) {
	in := rate * inMs / 1000
	if in > len(samples) {
		in = len(samples)
	}
	for i := 0; i < in; i++ {
		samples[i] *= float64(i) / float64(in)
	}

	out := rate * outMs / 1000
	if out > len(samples) {
		out = len(samples)
	}
	for i := 0; i < out; i++ {
		idx := len(samples) - 1 - i
		samples[idx] *= float64(i) / float64(out)
	}
}

// VolumeName labels a percentage the way the asset filenames do.
func VolumeName(percent int) string {
	switch {
	case percent <= 30:
		return "quiet"
	case percent <= 60:
		return "medium"
	default:
		return "loud"
	}
}

func toFloat(buf *audio.IntBuffer) []float64 {
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}
	scale := float64(int64(1) << (depth - 1))
	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float64(v) / scale
	}
	return out
}

func toInt(samples []float64) *audio.IntBuffer {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: TargetChannels, SampleRate: TargetSampleRate},
		SourceBitDepth: TargetBitDepth,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		v := int(math.Round(s * 32767))
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		buf.Data[i] = v
	}
	return buf
}
