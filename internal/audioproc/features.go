package audioproc

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Fingerprint is a compact numeric summary of a voice's pitch, timbre and
// energy. It is stored with a voice profile and used two ways: to sanity
// check reference uploads and to nudge synthesized audio back toward the
// reference level and tilt. Every field is finite by construction.
type Fingerprint struct {
	PitchMean         float64   `json:"pitch_mean"`
	PitchStd          float64   `json:"pitch_std"`
	SpectralCentroid  float64   `json:"spectral_centroid"`
	SpectralRolloff   float64   `json:"spectral_rolloff"`
	SpectralBandwidth float64   `json:"spectral_bandwidth"`
	ZeroCrossingRate  float64   `json:"zero_crossing_rate"`
	RMSEnergy         float64   `json:"rms_energy"`
	Cepstrum          []float64 `json:"cepstrum"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// Neutral pitch used when no reliable pitch peak is found; a zero or NaN
// pitch would poison every later comparison.
const (
	DefaultPitchMean = 150.0
	DefaultPitchStd  = 25.0
)

const (
	frameSize          = 2048
	hopSize            = 512
	pitchMinHz         = 60.0
	pitchMaxHz         = 400.0
	pitchPeakThreshold = 0.3
	rolloffFraction    = 0.85
	cepstrumOrder      = 13
	logFloor           = 1e-10
)

// ExtractFingerprint computes the fingerprint of a mono waveform. It is a
// pure function of its input.
func ExtractFingerprint(samples []float64, sampleRate int) Fingerprint {
	fp := Fingerprint{
		PitchMean:       DefaultPitchMean,
		PitchStd:        DefaultPitchStd,
		DurationSeconds: float64(len(samples)) / float64(sampleRate),
		Cepstrum:        make([]float64, cepstrumOrder),
	}
	if len(samples) == 0 {
		return fp
	}

	fp.RMSEnergy = rms(samples)
	fp.ZeroCrossingRate = zeroCrossingRate(samples)

	frames := frameSignal(samples)
	fft := fourier.NewFFT(frameSize)
	window := hannWindow(frameSize)

	bins := frameSize/2 + 1
	meanLogMag := make([]float64, bins)
	var centroidSum, rolloffSum, bandwidthSum float64
	var pitches []float64

	buf := make([]float64, frameSize)
	for _, frame := range frames {
		for i := range buf {
			buf[i] = frame[i] * window[i]
		}
		coeffs := fft.Coefficients(nil, buf)

		var magSum, weighted float64
		mags := make([]float64, bins)
		for k, c := range coeffs {
			m := cmplx.Abs(c)
			mags[k] = m
			hz := fft.Freq(k) * float64(sampleRate)
			magSum += m
			weighted += m * hz
		}
		if magSum > 0 {
			centroid := weighted / magSum
			centroidSum += centroid
			rolloffSum += rolloffFreq(mags, fft, sampleRate, magSum)
			bandwidthSum += bandwidth(mags, fft, sampleRate, centroid, magSum)
		}
		for k, m := range mags {
			meanLogMag[k] += math.Log(m + logFloor)
		}

		if pitch, ok := detectPitch(frame, sampleRate); ok {
			pitches = append(pitches, pitch)
		}
	}

	n := float64(len(frames))
	fp.SpectralCentroid = finiteOr(centroidSum/n, 0)
	fp.SpectralRolloff = finiteOr(rolloffSum/n, 0)
	fp.SpectralBandwidth = finiteOr(bandwidthSum/n, 0)

	for k := range meanLogMag {
		meanLogMag[k] /= n
	}
	fp.Cepstrum = dct(meanLogMag, cepstrumOrder)

	if len(pitches) > 0 {
		mean, std := meanStd(pitches)
		fp.PitchMean = finiteOr(mean, DefaultPitchMean)
		fp.PitchStd = finiteOr(std, DefaultPitchStd)
	}
	return fp
}

// MatchToFingerprint nudges a synthesized waveform toward the reference
// voice: gain toward the reference RMS level and a gentle level tilt for
// unusually dark or bright references.
func MatchToFingerprint(samples []float64, fp Fingerprint) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)

	if current := rms(out); current > 0 && fp.RMSEnergy > 0 {
		gain := fp.RMSEnergy / current
		for i := range out {
			out[i] *= gain
		}
	}

	switch {
	case fp.SpectralCentroid > 0 && fp.SpectralCentroid < 1500:
		for i := range out {
			out[i] *= 0.95
		}
	case fp.SpectralCentroid > 3000:
		for i := range out {
			out[i] *= 1.05
		}
	}

	for i, v := range out {
		out[i] = math.Max(-1, math.Min(1, v))
	}
	return out
}

func frameSignal(samples []float64) [][]float64 {
	padded := samples
	if len(padded) < frameSize {
		padded = make([]float64, frameSize)
		copy(padded, samples)
	}
	var frames [][]float64
	for i := 0; i+frameSize <= len(padded); i += hopSize {
		frames = append(frames, padded[i:i+frameSize])
	}
	return frames
}

// detectPitch runs a normalized autocorrelation over the voice pitch range
// and accepts the best lag only when its peak clears the threshold.
func detectPitch(frame []float64, sampleRate int) (float64, bool) {
	energy := 0.0
	for _, v := range frame {
		energy += v * v
	}
	if energy == 0 {
		return 0, false
	}

	minLag := int(float64(sampleRate) / pitchMaxHz)
	maxLag := int(float64(sampleRate) / pitchMinHz)
	if maxLag >= len(frame) {
		maxLag = len(frame) - 1
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		for i := 0; i+lag < len(frame); i++ {
			corr += frame[i] * frame[i+lag]
		}
		corr /= energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 || bestCorr < pitchPeakThreshold {
		return 0, false
	}
	return float64(sampleRate) / float64(bestLag), true
}

func rolloffFreq(mags []float64, fft *fourier.FFT, sampleRate int, magSum float64) float64 {
	target := rolloffFraction * magSum
	cum := 0.0
	for k, m := range mags {
		cum += m
		if cum >= target {
			return fft.Freq(k) * float64(sampleRate)
		}
	}
	return fft.Freq(len(mags)-1) * float64(sampleRate)
}

func bandwidth(mags []float64, fft *fourier.FFT, sampleRate int, centroid, magSum float64) float64 {
	sum := 0.0
	for k, m := range mags {
		d := fft.Freq(k)*float64(sampleRate) - centroid
		sum += m * d * d
	}
	return math.Sqrt(sum / magSum)
}

// dct is a DCT-II of the log spectrum truncated to order coefficients, the
// cepstral summary kept with the fingerprint.
func dct(x []float64, order int) []float64 {
	out := make([]float64, order)
	n := float64(len(x))
	for c := 0; c < order; c++ {
		sum := 0.0
		for k, v := range x {
			sum += v * math.Cos(math.Pi*float64(c)*(float64(k)+0.5)/n)
		}
		out[c] = finiteOr(sum/n, 0)
	}
	return out
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples))
}

func meanStd(values []float64) (float64, float64) {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
