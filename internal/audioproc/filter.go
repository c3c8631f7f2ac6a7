// Package audioproc implements the waveform side of the cloning pipeline:
// reference preparation, post-synthesis artifact cleanup, and the voice
// fingerprint used for validation and quality matching. All waveforms are
// mono float64 slices in [-1, 1].
package audioproc

import "math"

// biquad is a single second-order IIR section, coefficients normalized so
// a0 == 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

const butterworthQ = math.Sqrt2 / 2

// highpass returns a 2nd-order Butterworth high-pass section.
func highpass(cutoffHz, sampleRate float64) biquad {
	w := 2 * math.Pi * cutoffHz / sampleRate
	cosw := math.Cos(w)
	alpha := math.Sin(w) / (2 * butterworthQ)
	a0 := 1 + alpha
	return biquad{
		b0: (1 + cosw) / 2 / a0,
		b1: -(1 + cosw) / a0,
		b2: (1 + cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

// lowpass returns a 2nd-order Butterworth low-pass section.
func lowpass(cutoffHz, sampleRate float64) biquad {
	w := 2 * math.Pi * cutoffHz / sampleRate
	cosw := math.Cos(w)
	alpha := math.Sin(w) / (2 * butterworthQ)
	a0 := 1 + alpha
	return biquad{
		b0: (1 - cosw) / 2 / a0,
		b1: (1 - cosw) / a0,
		b2: (1 - cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f biquad) run(x []float64) []float64 {
	out := make([]float64, len(x))
	var z1, z2 float64
	for i, v := range x {
		y := f.b0*v + z1
		z1 = f.b1*v - f.a1*y + z2
		z2 = f.b2*v - f.a2*y
		out[i] = y
	}
	return out
}

// filtfilt applies f forward and then backward so the net phase response
// is zero. Phase distortion at chunk edges would otherwise smear the very
// boundaries the sanitizer is trying to clean, and in reference audio it
// corrupts the timbre the engine clones.
func filtfilt(f biquad, x []float64) []float64 {
	if len(x) == 0 {
		return x
	}
	forward := f.run(x)
	reverse(forward)
	backward := f.run(forward)
	reverse(backward)
	return backward
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
