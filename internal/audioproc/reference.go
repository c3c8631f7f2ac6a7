package audioproc

import "math"

// WorkingSampleRate is the pipeline's fixed internal rate; it matches the
// rate the synthesis engine was trained at.
const WorkingSampleRate = 22050

const (
	referencePeak  = 0.8
	referenceHPHz  = 80
	referenceLPHz  = 8000
	referenceTopDB = 30
)

// ReferenceOptions tunes reference preparation.
type ReferenceOptions struct {
	// BandLimit applies a zero-phase 80 Hz high-pass and 8 kHz low-pass
	// to confine the reference to the voice band.
	BandLimit bool
}

// PrepareReference converts a speaker recording into the fixed form the
// engine clones from: resampled to the working rate, trimmed of leading
// and trailing silence, and peak-normalized to 80% of full scale. Gentle
// normalization preserves the dynamics that carry voice identity. A silent
// recording is returned as-is rather than dividing by zero; the caller's
// quality validation is expected to have rejected it already.
func PrepareReference(samples []float64, sampleRate int, opts ReferenceOptions) []float64 {
	out := Resample(samples, sampleRate, WorkingSampleRate)
	if opts.BandLimit {
		out = filtfilt(highpass(referenceHPHz, WorkingSampleRate), out)
		out = filtfilt(lowpass(referenceLPHz, WorkingSampleRate), out)
	}
	out = trimSilenceDB(out, referenceTopDB)
	return normalizePeak(out, referencePeak)
}

func normalizePeak(samples []float64, target float64) []float64 {
	peak := 0.0
	for _, v := range samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}
	out := make([]float64, len(samples))
	gain := target / peak
	for i, v := range samples {
		out[i] = v * gain
	}
	return out
}

// trimSilenceDB drops leading and trailing samples quieter than topDB
// below the peak.
func trimSilenceDB(samples []float64, topDB float64) []float64 {
	if len(samples) == 0 {
		return samples
	}
	peak := 0.0
	for _, v := range samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}
	threshold := peak * math.Pow(10, -topDB/20)
	start, end := 0, len(samples)
	for start < end && math.Abs(samples[start]) < threshold {
		start++
	}
	for end > start && math.Abs(samples[end-1]) < threshold {
		end--
	}
	return samples[start:end]
}
