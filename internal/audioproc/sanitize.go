package audioproc

import (
	"errors"
	"log/slog"
	"math"
	"sort"
)

// CleanupProfile names an aggressiveness level for post-synthesis cleanup.
// Both profiles run the same pipeline; the profile only switches individual
// steps on or off.
type CleanupProfile string

const (
	// CleanupStandard is the full pipeline for single-shot delivery.
	CleanupStandard CleanupProfile = "standard"
	// CleanupMinimal trades artifact removal for latency in streaming.
	CleanupMinimal CleanupProfile = "minimal"
)

// Boundary artifacts the engine leaves on raw output: a sub-sonic thump at
// chunk edges, click transients, and padding silence. These constants are
// the tuned removal parameters.
const (
	sanitizeHPHz        = 85.0
	energyWindowSec     = 0.020
	energyThresholdFrac = 0.01
	fallbackTopDB       = 30.0
	minimalTopDB        = 25.0
	clipPercentile      = 0.99
	fadeStandardSec     = 0.030
	fadeMinimalSec      = 0.005
	fadeMaxFrac         = 15 // fade capped at len/15 (~6.7%)
	outputPeak          = 0.95
	runawayDurationSec  = 12.0
)

// ErrEmptyWaveform reports that there is nothing to sanitize. Callers
// treat sanitization failures as recoverable and fall back to the raw
// waveform.
var ErrEmptyWaveform = errors.New("audioproc: empty waveform")

// Sanitizer cleans raw engine output for delivery.
type Sanitizer struct {
	profile    CleanupProfile
	sampleRate int
	log        *slog.Logger
}

func NewSanitizer(profile CleanupProfile, sampleRate int, log *slog.Logger) *Sanitizer {
	return &Sanitizer{
		profile:    profile,
		sampleRate: sampleRate,
		log:        log.With(slog.String("component", "sanitizer"), slog.String("profile", string(profile))),
	}
}

func (s *Sanitizer) Profile() CleanupProfile { return s.profile }

// Clean runs the cleanup pipeline and returns a waveform with every sample
// finite and within [-0.95, 0.95].
func (s *Sanitizer) Clean(samples []float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyWaveform
	}

	out := removeDC(samples)

	if s.profile == CleanupStandard {
		out = filtfilt(highpass(sanitizeHPHz, float64(s.sampleRate)), out)
		out = s.trimByEnergy(out)
		out = clipToPercentile(out, clipPercentile)
		out = fadeEased(out, s.fadeSamples(fadeStandardSec, len(out)))
	} else {
		out = trimSilenceDB(out, minimalTopDB)
		out = fadeLinear(out, s.fadeSamples(fadeMinimalSec, len(out)))
	}

	out = zeroNonFinite(out)
	out = normalizePeak(out, outputPeak)

	if dur := float64(len(out)) / float64(s.sampleRate); dur > runawayDurationSec {
		// Likely runaway generation; the audio is still returned.
		s.log.Warn("sanitized chunk unusually long",
			slog.Float64("duration_seconds", dur))
	}
	return out, nil
}

// trimByEnergy keeps the span between the first and last short-time energy
// window above 1% of the loudest window, padded by one window each side.
// If no window clears the threshold the generic dB trim is used instead.
func (s *Sanitizer) trimByEnergy(samples []float64) []float64 {
	window := int(energyWindowSec * float64(s.sampleRate))
	if window <= 0 || len(samples) <= window {
		return trimSilenceDB(samples, fallbackTopDB)
	}
	hop := window / 2

	var energies []float64
	for i := 0; i+window <= len(samples); i += hop {
		e := 0.0
		for _, v := range samples[i : i+window] {
			e += v * v
		}
		energies = append(energies, e)
	}
	maxEnergy := 0.0
	for _, e := range energies {
		if e > maxEnergy {
			maxEnergy = e
		}
	}
	if maxEnergy == 0 {
		return trimSilenceDB(samples, fallbackTopDB)
	}

	threshold := maxEnergy * energyThresholdFrac
	first, last := -1, -1
	for i, e := range energies {
		if e > threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return trimSilenceDB(samples, fallbackTopDB)
	}

	start := (first - 1) * hop
	if start < 0 {
		start = 0
	}
	end := (last + 2) * hop
	if end > len(samples) {
		end = len(samples)
	}
	return samples[start:end]
}

func (s *Sanitizer) fadeSamples(seconds float64, total int) int {
	n := int(seconds * float64(s.sampleRate))
	if limit := total / fadeMaxFrac; n > limit {
		n = limit
	}
	return n
}

func removeDC(samples []float64) []float64 {
	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v - mean
	}
	return out
}

// clipToPercentile clips to the given percentile of absolute amplitude,
// removing isolated spikes without touching overall dynamics.
func clipToPercentile(samples []float64, pct float64) []float64 {
	abs := make([]float64, len(samples))
	for i, v := range samples {
		abs[i] = math.Abs(v)
	}
	sort.Float64s(abs)
	limit := abs[int(pct*float64(len(abs)-1))]
	if limit == 0 {
		return samples
	}
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = math.Max(-limit, math.Min(limit, v))
	}
	return out
}

// fadeEased applies a quadratic fade at both ends; the curve keeps the
// onset smoother than a linear ramp.
func fadeEased(samples []float64, n int) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	if n <= 0 || len(out) < 2*n {
		return out
	}
	for i := 0; i < n; i++ {
		g := float64(i) / float64(n)
		g *= g
		out[i] *= g
		out[len(out)-1-i] *= g
	}
	return out
}

func fadeLinear(samples []float64, n int) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	if n <= 0 || len(out) < 2*n {
		return out
	}
	for i := 0; i < n; i++ {
		g := float64(i) / float64(n)
		out[i] *= g
		out[len(out)-1-i] *= g
	}
	return out
}

func zeroNonFinite(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = 0
			continue
		}
		out[i] = v
	}
	return out
}
